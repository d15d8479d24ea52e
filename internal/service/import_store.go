package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/internal/repository"
)

// ImportStore is the transactional view an importer works through for one file.
type ImportStore interface {
	FindActiveByTRN(ctx context.Context, trn string) ([]models.Person, error)
	HasOpenAlert(ctx context.Context, personID string) (bool, error)
	UpdateInduction(ctx context.Context, person *models.Person) error
	SetQtsDate(ctx context.Context, personID string, qtsDate time.Time, updatedOn time.Time) error
	ListRoutesByPerson(ctx context.Context, personID string) ([]models.RouteToProfessionalStatus, error)
	CreateRoute(ctx context.Context, route *models.RouteToProfessionalStatus) error
	CreateTransaction(ctx context.Context, it *models.IntegrationTransaction) error
	UpdateTransactionCounts(ctx context.Context, it *models.IntegrationTransaction) error
	CreateTransactionRecord(ctx context.Context, record *models.IntegrationTransactionRecord) error
	AppendEvent(ctx context.Context, event *models.Event) error
	SavepointRow(ctx context.Context) error
	ReleaseRow(ctx context.Context) error
	RollbackRow(ctx context.Context) error
	Commit() error
	Rollback() error
}

// ImportTxBeginner opens the store for one file.
type ImportTxBeginner interface {
	BeginImport(ctx context.Context) (ImportStore, error)
}

// ImportTxBeginnerFunc adapts a function into an ImportTxBeginner.
type ImportTxBeginnerFunc func(ctx context.Context) (ImportStore, error)

// BeginImport implements ImportTxBeginner.
func (f ImportTxBeginnerFunc) BeginImport(ctx context.Context) (ImportStore, error) {
	return f(ctx)
}

// NewImportTxBeginner binds importers to the database transaction manager.
func NewImportTxBeginner(manager *repository.TxManager) ImportTxBeginner {
	return ImportTxBeginnerFunc(func(ctx context.Context) (ImportStore, error) {
		tx, err := manager.BeginImport(ctx)
		if err != nil {
			return nil, err
		}
		return tx, nil
	})
}

type importRowMetrics interface {
	ObserveImportRow(fileType models.ImportFileType, status models.IntegrationTransactionRecordStatus)
}

type noopImportMetrics struct{}

func (noopImportMetrics) ObserveImportRow(models.ImportFileType, models.IntegrationTransactionRecordStatus) {
}

// importLedger threads the run header through the row loop and flushes it after every row.
type importLedger struct {
	store    ImportStore
	header   *models.IntegrationTransaction
	fileType models.ImportFileType
	metrics  importRowMetrics
	failures []string
}

func openImportLedger(ctx context.Context, store ImportStore, fileType models.ImportFileType, fileName string, now time.Time, metrics importRowMetrics) (*importLedger, error) {
	header := models.NewIntegrationTransaction(fileName, now)
	if err := store.CreateTransaction(ctx, header); err != nil {
		return nil, err
	}
	return &importLedger{store: store, header: header, fileType: fileType, metrics: metrics}, nil
}

// record writes one ledger line and persists the updated counters.
func (l *importLedger) record(ctx context.Context, line int, record *models.IntegrationTransactionRecord) error {
	record.IntegrationTransactionID = l.header.ID
	if err := l.store.CreateTransactionRecord(ctx, record); err != nil {
		return err
	}
	l.header.Tally(record)
	if err := l.store.UpdateTransactionCounts(ctx, l.header); err != nil {
		return err
	}
	if record.Status != models.IntegrationTransactionRecordStatusSuccess && record.FailureMessage != nil {
		l.failures = append(l.failures, fmt.Sprintf("row %d: %s", line, *record.FailureMessage))
	}
	l.metrics.ObserveImportRow(l.fileType, record.Status)
	return nil
}

// complete marks the run finished. Row failures do not change the run status.
func (l *importLedger) complete(ctx context.Context) (*models.ImportResult, error) {
	l.header.ImportStatus = models.IntegrationTransactionImportStatusSuccess
	if err := l.store.UpdateTransactionCounts(ctx, l.header); err != nil {
		return nil, err
	}
	return &models.ImportResult{
		TotalCount:               l.header.TotalCount,
		SuccessCount:             l.header.SuccessCount,
		DuplicateCount:           l.header.DuplicateCount,
		FailureCount:             l.header.FailureCount,
		FailureMessage:           strings.Join(l.failures, "\n"),
		IntegrationTransactionID: l.header.ID,
	}, nil
}

// isolateRow runs one row between a savepoint and its release. Rows that do not
// succeed are rolled back to the savepoint so their partial writes are dropped
// and the file transaction stays usable for the ledger.
func isolateRow(ctx context.Context, store ImportStore, importRow func() *models.IntegrationTransactionRecord) (*models.IntegrationTransactionRecord, error) {
	if err := store.SavepointRow(ctx); err != nil {
		return nil, err
	}
	record := importRow()
	if record.Status == models.IntegrationTransactionRecordStatusSuccess {
		return record, store.ReleaseRow(ctx)
	}
	return record, store.RollbackRow(ctx)
}

func appendDomainEvent(ctx context.Context, store ImportStore, domainEvent models.DomainEvent) error {
	event, err := models.NewEvent(domainEvent)
	if err != nil {
		return err
	}
	return store.AppendEvent(ctx, event)
}

func failureText(messages []string) *string {
	if len(messages) == 0 {
		return nil
	}
	text := strings.Join(messages, ",")
	return &text
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
