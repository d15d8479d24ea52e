package models

import (
	"strings"

	"github.com/noah-isme/trs-ewc-import/pkg/csvrow"
)

// ImportFileType identifies the layout of an EWC Wales pickup file.
type ImportFileType int

const (
	ImportFileTypeInduction ImportFileType = iota + 1
	ImportFileTypeQualification
)

func (t ImportFileType) String() string {
	switch t {
	case ImportFileTypeInduction:
		return "Induction"
	case ImportFileTypeQualification:
		return "Qualification"
	default:
		return "Unknown"
	}
}

// EwcWalesMatchStatus is the outcome of resolving a row against the teacher records.
type EwcWalesMatchStatus string

const (
	EwcWalesMatchStatusNoMatch                      EwcWalesMatchStatus = "NoMatch"
	EwcWalesMatchStatusTrnAndDateOfBirthMatchFailed EwcWalesMatchStatus = "TrnAndDateOfBirthMatchFailed"
	EwcWalesMatchStatusMultipleTrnMatched           EwcWalesMatchStatus = "MultipleTrnMatched"
	EwcWalesMatchStatusTeacherInactive              EwcWalesMatchStatus = "TeacherInactive"
	EwcWalesMatchStatusTeacherHasQts                EwcWalesMatchStatus = "TeacherHasQts"
	EwcWalesMatchStatusTeacherHasNoQts              EwcWalesMatchStatus = "TeacherHasNoQts"
)

// Matched reports whether the lookup resolved to a usable teacher record.
func (s EwcWalesMatchStatus) Matched() bool {
	return s == EwcWalesMatchStatusTeacherHasQts || s == EwcWalesMatchStatusTeacherHasNoQts
}

// InductionImportHeaders is the exact header line of an induction file.
var InductionImportHeaders = []string{
	"ReferenceNumber",
	"FirstName",
	"LastName",
	"DateOfBirth",
	"StartDate",
	"PassedDate",
	"FailDate",
	"EmployerName",
	"EmployerCode",
	"InductionStatusName",
}

// InductionImportRow is one line of an induction file.
type InductionImportRow struct {
	ReferenceNumber     string `csv:"ReferenceNumber"`
	FirstName           string `csv:"FirstName"`
	LastName            string `csv:"LastName"`
	DateOfBirth         string `csv:"DateOfBirth"`
	StartDate           string `csv:"StartDate"`
	PassedDate          string `csv:"PassedDate"`
	FailDate            string `csv:"FailDate"`
	EmployerName        string `csv:"EmployerName"`
	EmployerCode        string `csv:"EmployerCode"`
	InductionStatusName string `csv:"InductionStatusName"`
}

// Normalise trims every field.
func (r *InductionImportRow) Normalise() {
	r.ReferenceNumber = strings.TrimSpace(r.ReferenceNumber)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.PassedDate = strings.TrimSpace(r.PassedDate)
	r.FailDate = strings.TrimSpace(r.FailDate)
	r.EmployerName = strings.TrimSpace(r.EmployerName)
	r.EmployerCode = strings.TrimSpace(r.EmployerCode)
	r.InductionStatusName = strings.TrimSpace(r.InductionStatusName)
}

// Values returns the fields in header order.
func (r *InductionImportRow) Values() []string {
	return []string{
		r.ReferenceNumber,
		r.FirstName,
		r.LastName,
		r.DateOfBirth,
		r.StartDate,
		r.PassedDate,
		r.FailDate,
		r.EmployerName,
		r.EmployerCode,
		r.InductionStatusName,
	}
}

// ConvertToCsvString renders the header line and the row for the import ledger.
func (r *InductionImportRow) ConvertToCsvString() (string, error) {
	return csvrow.Encode(InductionImportHeaders, r.Values())
}

// QTS column positions. Both historical layouts share the first six.
const (
	QtsColRefNo = iota
	QtsColForename
	QtsColSurname
	QtsColDateOfBirth
	QtsColStatus
	QtsColDate
	QtsColIttStartMonth
	QtsColIttStartYear
	QtsColIttEndMonth
	QtsColIttEndYear
	QtsColIttResult
	QtsColQualificationType
	QtsColSubjectCode
	QtsColSubjectCode2
	QtsColSubjectCode3
	QtsColAgeRangeFrom
	QtsColAgeRangeTo
	QtsColIttEstablishmentLeaCode
	QtsColIttEstablishmentCode
	QtsColIttQualificationCode
	QtsColIttClassCode
	QtsColPqYearOfAward
	QtsColCountry
	QtsColPqEstablishmentCode
	QtsColPqQualificationCode
	QtsColHonours
	QtsColPqClassCode
	QtsColPqSubjectCode
	QtsColPqSubjectCode2
	QtsColPqSubjectCode3

	qtsColumnCount
	qtsRequiredColumns = QtsColDate + 1
)

// QtsImportHeaders names every column of the long QTS layout.
var QtsImportHeaders = [qtsColumnCount]string{
	"QTS_REF_NO",
	"FORENAME",
	"SURNAME",
	"DATE_OF_BIRTH",
	"QTS_STATUS",
	"QTS_DATE",
	"ITT_START_MONTH",
	"ITT_START_YY",
	"ITT_END_MONTH",
	"ITT_END_YY",
	"ITT_Result",
	"QUALIFICATION_TYPE",
	"Subject_Code",
	"Subject_Code2",
	"Subject_Code3",
	"Age_Range_From",
	"Age_Range_To",
	"ITT_Establishment_LEA_code",
	"ITT_Establishment_Code",
	"ITT_Qualification_Code",
	"ITT_Class_Code",
	"PQ_Year_of_Award",
	"Country",
	"PQ_Establishment_Code",
	"PQ_Qualification_Code",
	"Honours",
	"PQ_Class_Code",
	"PQ_Subject_Code",
	"PQ_Subject_Code2",
	"PQ_Subject_Code3",
}

// QtsImportRow is one line of a QTS file. Columns after QtsDate are optional.
type QtsImportRow struct {
	QtsRefNo    string
	Forename    string
	Surname     string
	DateOfBirth string
	QtsStatus   string
	QtsDate     string

	IttStartMonth           *string
	IttStartYear            *string
	IttEndMonth             *string
	IttEndYear              *string
	IttResult               *string
	QualificationType       *string
	SubjectCode             *string
	SubjectCode2            *string
	SubjectCode3            *string
	AgeRangeFrom            *string
	AgeRangeTo              *string
	IttEstablishmentLeaCode *string
	IttEstablishmentCode    *string
	IttQualificationCode    *string
	IttClassCode            *string
	PqYearOfAward           *string
	Country                 *string
	PqEstablishmentCode     *string
	PqQualificationCode     *string
	Honours                 *string
	PqClassCode             *string
	PqSubjectCode           *string
	PqSubjectCode2          *string
	PqSubjectCode3          *string

	// Columns is the width of the source record, used to reproduce the same layout.
	Columns int
}

func (r *QtsImportRow) optionalFields() [qtsColumnCount - qtsRequiredColumns]**string {
	return [...]**string{
		&r.IttStartMonth,
		&r.IttStartYear,
		&r.IttEndMonth,
		&r.IttEndYear,
		&r.IttResult,
		&r.QualificationType,
		&r.SubjectCode,
		&r.SubjectCode2,
		&r.SubjectCode3,
		&r.AgeRangeFrom,
		&r.AgeRangeTo,
		&r.IttEstablishmentLeaCode,
		&r.IttEstablishmentCode,
		&r.IttQualificationCode,
		&r.IttClassCode,
		&r.PqYearOfAward,
		&r.Country,
		&r.PqEstablishmentCode,
		&r.PqQualificationCode,
		&r.Honours,
		&r.PqClassCode,
		&r.PqSubjectCode,
		&r.PqSubjectCode2,
		&r.PqSubjectCode3,
	}
}

// QtsImportRowFromRecord maps a raw record by position. Missing trailing
// columns leave the optional fields nil.
func QtsImportRowFromRecord(record []string) *QtsImportRow {
	row := &QtsImportRow{
		QtsRefNo:    csvrow.Field(record, QtsColRefNo),
		Forename:    csvrow.Field(record, QtsColForename),
		Surname:     csvrow.Field(record, QtsColSurname),
		DateOfBirth: csvrow.Field(record, QtsColDateOfBirth),
		QtsStatus:   csvrow.Field(record, QtsColStatus),
		QtsDate:     csvrow.Field(record, QtsColDate),
		Columns:     len(record),
	}
	for i, field := range row.optionalFields() {
		*field = csvrow.Optional(csvrow.Field(record, qtsRequiredColumns+i))
	}
	return row
}

func (r *QtsImportRow) width() int {
	n := r.Columns
	if n < qtsRequiredColumns {
		n = qtsRequiredColumns
	}
	if n > qtsColumnCount {
		n = qtsColumnCount
	}
	return n
}

// Values returns the fields in column order, trimmed to the source layout width.
func (r *QtsImportRow) Values() []string {
	values := make([]string, 0, qtsColumnCount)
	values = append(values, r.QtsRefNo, r.Forename, r.Surname, r.DateOfBirth, r.QtsStatus, r.QtsDate)
	for _, field := range r.optionalFields() {
		values = append(values, csvrow.Value(*field))
	}
	return values[:r.width()]
}

// ConvertToCsvString renders the header line and the row for the import ledger.
func (r *QtsImportRow) ConvertToCsvString() (string, error) {
	return csvrow.Encode(QtsImportHeaders[:r.width()], r.Values())
}
