package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/pkg/csvrow"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
)

// Legacy EWC status codes.
const (
	QtsStatusCodeEcDirective = "67"
	QtsStatusCodeWelshR      = "71"
	QtsStatusCodeWelshRAlt   = "49"
)

// DefaultQtsCutoverDate is the day from which code 67 is no longer awarded.
var DefaultQtsCutoverDate = time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC)

// QtsLookupData is what GetLookupData resolved for one QTS row.
type QtsLookupData struct {
	MatchStatus    models.EwcWalesMatchStatus
	Person         *models.Person
	HasActiveAlert bool
	Routes         []models.RouteToProfessionalStatus
}

// QtsImportService imports EWC Wales QTS award files.
type QtsImportService struct {
	begin   ImportTxBeginner
	metrics importRowMetrics
	logger  *zap.Logger
	cutover time.Time
	now     func() time.Time
}

// NewQtsImportService constructs the importer. A zero cutover selects DefaultQtsCutoverDate.
func NewQtsImportService(begin ImportTxBeginner, metrics *MetricsService, logger *zap.Logger, cutover time.Time) *QtsImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cutover.IsZero() {
		cutover = DefaultQtsCutoverDate
	}
	svc := &QtsImportService{
		begin:   begin,
		metrics: noopImportMetrics{},
		logger:  logger,
		cutover: dateOnly(cutover),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if metrics != nil {
		svc.metrics = metrics
	}
	return svc
}

// Import processes every row of a QTS file inside one database transaction.
// The header line is skipped; columns are mapped by position.
func (s *QtsImportService) Import(ctx context.Context, r io.Reader, fileName string) (*models.ImportResult, error) {
	reader := csvrow.NewReader(r)
	if _, err := reader.Read(); err != nil && !errors.Is(err, io.EOF) && !csvrow.IsRowError(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidImportFile.Code, appErrors.ErrInvalidImportFile.Status, "failed to read qts file")
	}

	store, err := s.begin.BeginImport(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start qts import")
	}
	defer func() {
		if rbErr := store.Rollback(); rbErr != nil {
			s.logger.Warn("rollback qts import", zap.String("file", fileName), zap.Error(rbErr))
		}
	}()

	ledger, err := openImportLedger(ctx, store, models.ImportFileTypeQualification, fileName, s.now(), s.metrics)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create integration transaction")
	}
	logger := s.logger.With(zap.String("file", fileName), zap.Int64("integration_transaction_id", ledger.header.ID))

	for line := 1; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var record *models.IntegrationTransactionRecord
		switch {
		case err == nil:
			record, err = isolateRow(ctx, store, func() *models.IntegrationTransactionRecord {
				return s.importRow(ctx, store, models.QtsImportRowFromRecord(fields), fileName, line, logger)
			})
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to isolate qts row")
			}
		case csvrow.IsRowError(err):
			logger.Warn("unreadable qts row", zap.Int("row", line), zap.Error(err))
			record = rejectedRecord(strings.Join(fields, ","), fmt.Sprintf("Row could not be read: %v", err))
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidImportFile.Code, appErrors.ErrInvalidImportFile.Status, "failed to read qts file")
		}

		if err := ledger.record(ctx, line, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write integration transaction record")
		}
	}

	result, err := ledger.complete(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete integration transaction")
	}
	if err := store.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit qts import")
	}
	logger.Info("qts file imported",
		zap.Int("total", result.TotalCount),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount),
		zap.Int("duplicate", result.DuplicateCount),
	)
	return result, nil
}

func (s *QtsImportService) importRow(ctx context.Context, store ImportStore, row *models.QtsImportRow, fileName string, line int, logger *zap.Logger) (record *models.IntegrationTransactionRecord) {
	rowData, encErr := row.ConvertToCsvString()
	if encErr != nil {
		logger.Warn("re-encode qts row", zap.Int("row", line), zap.Error(encErr))
	}
	rowLogger := logger.With(zap.Int("row", line), zap.String("trn", row.QtsRefNo))

	defer func() {
		if p := recover(); p != nil {
			rowLogger.Error("panic importing qts row", zap.Any("panic", p))
			record = rejectedRecord(rowData, fmt.Sprintf("Unexpected error processing row: %v", p))
		}
	}()

	lookup, err := s.GetLookupData(ctx, store, row)
	if err != nil {
		rowLogger.Error("qts lookup failed", zap.Error(err))
		return rejectedRecord(rowData, fmt.Sprintf("Unexpected error processing row: %v", err))
	}

	warnings, errs := s.Validate(row, lookup)
	record = &models.IntegrationTransactionRecord{
		RowData:        rowData,
		Status:         models.IntegrationTransactionRecordStatusSuccess,
		HasActiveAlert: lookup.HasActiveAlert,
		CreatedDate:    s.now(),
	}
	if lookup.Person != nil && lookup.MatchStatus.Matched() {
		record.PersonID = &lookup.Person.PersonID
	}

	qtsDate := csvrow.ParseDate(row.QtsDate)
	if qtsDate != nil && lookup.Person != nil {
		routeType := s.RouteTypeFor(row.QtsStatus, *qtsDate)
		if _, ok := findRoute(lookup.Routes, routeType, *qtsDate); ok {
			record.Duplicate = true
		}
	}

	if len(errs) > 0 {
		record.Status = models.IntegrationTransactionRecordStatusFailure
		record.FailureMessage = failureText(append(errs, warnings...))
		return record
	}

	if err := s.apply(ctx, store, row, lookup.Person, *qtsDate, fileName); err != nil {
		rowLogger.Error("apply qts row", zap.Error(err))
		return rejectedRecord(rowData, fmt.Sprintf("Unexpected error processing row: %v", err))
	}
	record.FailureMessage = failureText(warnings)
	return record
}

// GetLookupData matches the row against active teacher records and loads their routes.
func (s *QtsImportService) GetLookupData(ctx context.Context, store ImportStore, row *models.QtsImportRow) (QtsLookupData, error) {
	lookup := QtsLookupData{MatchStatus: models.EwcWalesMatchStatusNoMatch}
	if !validTrn(row.QtsRefNo) {
		return lookup, nil
	}
	status, person, err := matchTeacher(ctx, store, row.QtsRefNo, csvrow.ParseDate(row.DateOfBirth))
	if err != nil {
		return lookup, err
	}
	lookup.MatchStatus = status
	lookup.Person = person
	if person == nil || !status.Matched() {
		return lookup, nil
	}
	if lookup.HasActiveAlert, err = store.HasOpenAlert(ctx, person.PersonID); err != nil {
		return lookup, err
	}
	if lookup.Routes, err = store.ListRoutesByPerson(ctx, person.PersonID); err != nil {
		return lookup, err
	}
	return lookup, nil
}

// Validate returns soft warnings and hard errors for a row.
func (s *QtsImportService) Validate(row *models.QtsImportRow, lookup QtsLookupData) ([]string, []string) {
	warnings := make([]string, 0)
	errs := make([]string, 0)

	switch {
	case row.QtsRefNo == "":
		errs = append(errs, "Missing QTS Ref Number")
	case !validTrn(row.QtsRefNo):
		errs = append(errs, fmt.Sprintf("QTS Ref Number %s must be a 7 digit TRN", row.QtsRefNo))
	}
	requiredDate(row.DateOfBirth, "Missing Date of Birth", "Validation Failed: Invalid Date of Birth", &errs)
	if row.QtsStatus == "" {
		errs = append(errs, "Missing QTS Status")
	}
	qtsDate := requiredDate(row.QtsDate, "Missing QTS Date", "Validation Failed: Invalid QTS Date", &errs)

	if qtsDate != nil {
		if qtsDate.After(dateOnly(s.now())) {
			errs = append(errs, "Qts date cannot be set in the future")
		}
		if row.QtsStatus != "" {
			if msg := s.statusCodeError(row.QtsStatus, *qtsDate); msg != "" {
				errs = append(errs, msg)
			}
		}
	}

	if row.QtsRefNo != "" {
		errs = append(errs, lookupErrors(row.QtsRefNo, lookup.MatchStatus)...)
	}

	if person := lookup.Person; person != nil && lookup.MatchStatus.Matched() {
		if qtsDate != nil {
			routeType := s.RouteTypeFor(row.QtsStatus, *qtsDate)
			if _, ok := findRoute(lookup.Routes, routeType, *qtsDate); ok {
				errs = append(errs, fmt.Sprintf("Teacher with TRN %s already holds %s route with holdsfrom %s",
					row.QtsRefNo, strings.ToLower(string(routeType)), qtsDate.Format(csvrow.DateLayout)))
			}
		}
		if !namesMatch(row.Forename, person.FirstName) || !namesMatch(row.Surname, person.LastName) {
			warnings = append(warnings, fmt.Sprintf("Name %s %s does not match %s on the existing record", row.Forename, row.Surname, person.FullName()))
		}
	}

	return warnings, errs
}

// RouteTypeFor classifies the award: code 67 before the cutover is an EC directive, everything else Welsh R.
func (s *QtsImportService) RouteTypeFor(statusCode string, qtsDate time.Time) models.RouteType {
	if qtsDate.Before(s.cutover) && statusCode == QtsStatusCodeEcDirective {
		return models.RouteTypeECDirective
	}
	return models.RouteTypeWelshR
}

func (s *QtsImportService) statusCodeError(statusCode string, qtsDate time.Time) string {
	if qtsDate.Before(s.cutover) {
		switch statusCode {
		case QtsStatusCodeEcDirective, QtsStatusCodeWelshR, QtsStatusCodeWelshRAlt:
			return ""
		}
		return fmt.Sprintf("Qts Status must be 67, 71 or 49 when qts date is before %s", s.cutover.Format(csvrow.DateLayout))
	}
	switch statusCode {
	case QtsStatusCodeWelshR, QtsStatusCodeWelshRAlt:
		return ""
	}
	return fmt.Sprintf("Qts Status can only be 71 or 49 when qts date is on or past %s", s.cutover.Format(csvrow.DateLayout))
}

func (s *QtsImportService) apply(ctx context.Context, store ImportStore, row *models.QtsImportRow, person *models.Person, qtsDate time.Time, fileName string) error {
	now := s.now()
	route, event := models.NewWelshRoute(person.PersonID, s.RouteTypeFor(row.QtsStatus, qtsDate), qtsDate, fileName, now)
	if err := store.CreateRoute(ctx, route); err != nil {
		return err
	}
	if err := store.SetQtsDate(ctx, person.PersonID, qtsDate, now); err != nil {
		return err
	}
	return appendDomainEvent(ctx, store, event)
}

func findRoute(routes []models.RouteToProfessionalStatus, routeType models.RouteType, holdsFrom time.Time) (*models.RouteToProfessionalStatus, bool) {
	for i := range routes {
		if routes[i].RouteType == routeType && models.SameDate(routes[i].HoldsFrom, &holdsFrom) {
			return &routes[i], true
		}
	}
	return nil, false
}

// namesMatch tolerates abbreviations and diacritics in either direction.
func namesMatch(fromFile, onRecord string) bool {
	if fromFile == "" || onRecord == "" {
		return true
	}
	return fuzzy.MatchNormalizedFold(fromFile, onRecord) || fuzzy.MatchNormalizedFold(onRecord, fromFile)
}
