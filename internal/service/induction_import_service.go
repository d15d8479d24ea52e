package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/pkg/csvrow"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
)

// InductionLookupData is what GetLookupData resolved for one induction row.
type InductionLookupData struct {
	MatchStatus    models.EwcWalesMatchStatus
	Person         *models.Person
	HasActiveAlert bool
}

// InductionImportService imports EWC Wales induction outcome files.
type InductionImportService struct {
	begin   ImportTxBeginner
	metrics importRowMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewInductionImportService constructs the importer.
func NewInductionImportService(begin ImportTxBeginner, metrics *MetricsService, logger *zap.Logger) *InductionImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &InductionImportService{
		begin:   begin,
		metrics: noopImportMetrics{},
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if metrics != nil {
		svc.metrics = metrics
	}
	return svc
}

// Import processes every row of an induction file inside one database transaction.
func (s *InductionImportService) Import(ctx context.Context, r io.Reader, fileName string) (*models.ImportResult, error) {
	dec, err := csvrow.NewHeaderDecoder(r, models.InductionImportHeaders)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidImportFile.Code, appErrors.ErrInvalidImportFile.Status, "induction file header is invalid")
	}

	store, err := s.begin.BeginImport(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start induction import")
	}
	defer func() {
		if rbErr := store.Rollback(); rbErr != nil {
			s.logger.Warn("rollback induction import", zap.String("file", fileName), zap.Error(rbErr))
		}
	}()

	ledger, err := openImportLedger(ctx, store, models.ImportFileTypeInduction, fileName, s.now(), s.metrics)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create integration transaction")
	}
	logger := s.logger.With(zap.String("file", fileName), zap.Int64("integration_transaction_id", ledger.header.ID))

	for line := 1; ; line++ {
		var row models.InductionImportRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}

		var record *models.IntegrationTransactionRecord
		switch {
		case err == nil:
			record, err = isolateRow(ctx, store, func() *models.IntegrationTransactionRecord {
				return s.importRow(ctx, store, &row, fileName, line, logger)
			})
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to isolate induction row")
			}
		case csvrow.IsRowError(err):
			logger.Warn("unreadable induction row", zap.Int("row", line), zap.Error(err))
			rowData, _ := csvrow.Encode(dec.Header(), dec.Record())
			record = rejectedRecord(rowData, fmt.Sprintf("Row could not be read: %v", err))
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidImportFile.Code, appErrors.ErrInvalidImportFile.Status, "failed to read induction file")
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
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit induction import")
	}
	logger.Info("induction file imported",
		zap.Int("total", result.TotalCount),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount),
		zap.Int("duplicate", result.DuplicateCount),
	)
	return result, nil
}

// importRow resolves, validates and applies one row. It never fails: errors
// and panics become a Failure record.
func (s *InductionImportService) importRow(ctx context.Context, store ImportStore, row *models.InductionImportRow, fileName string, line int, logger *zap.Logger) (record *models.IntegrationTransactionRecord) {
	row.Normalise()
	rowData, encErr := row.ConvertToCsvString()
	if encErr != nil {
		logger.Warn("re-encode induction row", zap.Int("row", line), zap.Error(encErr))
	}
	rowLogger := logger.With(zap.Int("row", line), zap.String("trn", row.ReferenceNumber))

	defer func() {
		if p := recover(); p != nil {
			rowLogger.Error("panic importing induction row", zap.Any("panic", p))
			record = rejectedRecord(rowData, fmt.Sprintf("Unexpected error processing row: %v", p))
		}
	}()

	lookup, err := s.GetLookupData(ctx, store, row)
	if err != nil {
		rowLogger.Error("induction lookup failed", zap.Error(err))
		return rejectedRecord(rowData, fmt.Sprintf("Unexpected error processing row: %v", err))
	}

	validationFailures, errs := s.Validate(row, lookup)
	record = &models.IntegrationTransactionRecord{
		RowData:        rowData,
		Status:         models.IntegrationTransactionRecordStatusSuccess,
		HasActiveAlert: lookup.HasActiveAlert,
		CreatedDate:    s.now(),
	}
	if lookup.Person != nil && lookup.MatchStatus.Matched() {
		record.PersonID = &lookup.Person.PersonID
		record.Duplicate = isDuplicateInduction(row, lookup.Person)
	}

	if len(errs) > 0 {
		record.Status = models.IntegrationTransactionRecordStatusFailure
		record.FailureMessage = failureText(append(errs, validationFailures...))
		return record
	}

	if err := s.apply(ctx, store, row, lookup.Person, fileName); err != nil {
		rowLogger.Error("apply induction row", zap.Error(err))
		return rejectedRecord(rowData, fmt.Sprintf("Unexpected error processing row: %v", err))
	}
	record.FailureMessage = failureText(validationFailures)
	return record
}

// GetLookupData matches the row against active teacher records.
func (s *InductionImportService) GetLookupData(ctx context.Context, store ImportStore, row *models.InductionImportRow) (InductionLookupData, error) {
	lookup := InductionLookupData{MatchStatus: models.EwcWalesMatchStatusNoMatch}
	if !validTrn(row.ReferenceNumber) {
		return lookup, nil
	}
	status, person, err := matchTeacher(ctx, store, row.ReferenceNumber, csvrow.ParseDate(row.DateOfBirth))
	if err != nil {
		return lookup, err
	}
	lookup.MatchStatus = status
	lookup.Person = person
	if person != nil && status.Matched() {
		lookup.HasActiveAlert, err = store.HasOpenAlert(ctx, person.PersonID)
		if err != nil {
			return lookup, err
		}
	}
	return lookup, nil
}

// Validate returns soft validation failures and hard errors for a row.
func (s *InductionImportService) Validate(row *models.InductionImportRow, lookup InductionLookupData) ([]string, []string) {
	validationFailures := make([]string, 0)
	errs := make([]string, 0)

	switch {
	case row.ReferenceNumber == "":
		errs = append(errs, "Missing Reference No")
	case !validTrn(row.ReferenceNumber):
		errs = append(errs, fmt.Sprintf("Reference No %s must be a 7 digit TRN", row.ReferenceNumber))
	}

	requiredDate(row.DateOfBirth, "Missing Date of Birth", "Validation Failed: Invalid Date of Birth", &errs)
	start := requiredDate(row.StartDate, "Missing Induction Start date", "Validation Failed: Invalid Induction start date", &errs)
	passed := requiredDate(row.PassedDate, "Missing Induction passed date", "Validation Failed: Invalid Induction passed date", &errs)

	if start != nil && passed != nil && passed.Before(*start) {
		errs = append(errs, "Induction passed date cannot be before Induction Start Date.")
	}

	if row.ReferenceNumber != "" {
		errs = append(errs, lookupErrors(row.ReferenceNumber, lookup.MatchStatus)...)
	}

	if person := lookup.Person; person != nil && lookup.MatchStatus.Matched() {
		if person.QtsDate != nil {
			if passed != nil && passed.Before(*person.QtsDate) {
				errs = append(errs, "Induction passed date cannot be before Qts Date.")
			}
			if start != nil && start.Before(*person.QtsDate) {
				errs = append(errs, "Induction start date cannot be before qts date.")
			}
		}
		if person.InductionStatus.Info().BlocksEwcImport {
			errs = append(errs, fmt.Sprintf("Teacher with TRN %s completed induction already or is in progress.", row.ReferenceNumber))
		}
	}

	return validationFailures, errs
}

func (s *InductionImportService) apply(ctx context.Context, store ImportStore, row *models.InductionImportRow, person *models.Person, fileName string) error {
	passedDate := csvrow.ParseDate(row.PassedDate)
	event, changed := person.TrySetWelshInductionStatus(
		passedDate != nil,
		csvrow.ParseDate(row.StartDate),
		passedDate,
		fmt.Sprintf("Imported from EWC Wales file %s", fileName),
		s.now(),
	)
	if !changed {
		return nil
	}
	if err := store.UpdateInduction(ctx, person); err != nil {
		return err
	}
	return appendDomainEvent(ctx, store, event)
}

// isDuplicateInduction reports whether the row restates the outcome already recorded.
func isDuplicateInduction(row *models.InductionImportRow, person *models.Person) bool {
	return person.InductionStatus == models.InductionStatusPassed &&
		models.SameDate(person.InductionStartDate, csvrow.ParseDate(row.StartDate)) &&
		models.SameDate(person.InductionCompletedDate, csvrow.ParseDate(row.PassedDate))
}

func rejectedRecord(rowData, message string) *models.IntegrationTransactionRecord {
	return &models.IntegrationTransactionRecord{
		RowData:        rowData,
		Status:         models.IntegrationTransactionRecordStatusFailure,
		FailureMessage: &message,
		CreatedDate:    time.Now().UTC(),
	}
}
