package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
	"github.com/noah-isme/trs-ewc-import/pkg/export"
)

type integrationTransactionReader interface {
	GetTransaction(ctx context.Context, id int64) (*models.IntegrationTransaction, error)
	ListTransactions(ctx context.Context, filter models.IntegrationTransactionFilter) ([]models.IntegrationTransaction, int, error)
	ListTransactionRecords(ctx context.Context, id int64, filter models.IntegrationTransactionRecordFilter) ([]models.IntegrationTransactionRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(title string, summary export.Summary, data export.Dataset) ([]byte, error)
}

// IntegrationTransactionService serves the import ledger to operators.
type IntegrationTransactionService struct {
	repo   integrationTransactionReader
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewIntegrationTransactionService constructs the service.
func NewIntegrationTransactionService(repo integrationTransactionReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *IntegrationTransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &IntegrationTransactionService{repo: repo, csv: csv, pdf: pdf, logger: logger}
}

// List returns one page of run headers.
func (s *IntegrationTransactionService) List(ctx context.Context, filter models.IntegrationTransactionFilter) ([]models.IntegrationTransaction, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list integration transactions")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a run header together with its records.
func (s *IntegrationTransactionService) Get(ctx context.Context, id int64) (*models.IntegrationTransaction, error) {
	it, err := s.getHeader(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.Records(ctx, id, models.IntegrationTransactionRecordFilter{})
	if err != nil {
		return nil, err
	}
	it.Records = records
	return it, nil
}

// Records returns the ledger lines of one run.
func (s *IntegrationTransactionService) Records(ctx context.Context, id int64, filter models.IntegrationTransactionRecordFilter) ([]models.IntegrationTransactionRecord, error) {
	records, err := s.repo.ListTransactionRecords(ctx, id, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list integration transaction records")
	}
	return records, nil
}

// ExportCSV renders the records of one run as CSV.
func (s *IntegrationTransactionService) ExportCSV(ctx context.Context, id int64) ([]byte, string, error) {
	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	content, err := s.csv.Render(recordDataset(it.Records))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return content, fmt.Sprintf("integration-transaction-%d.csv", id), nil
}

// ReportPDF renders a run summary with its failed records.
func (s *IntegrationTransactionService) ReportPDF(ctx context.Context, id int64) ([]byte, string, error) {
	it, err := s.getHeader(ctx, id)
	if err != nil {
		return nil, "", err
	}
	failures, err := s.Records(ctx, id, models.IntegrationTransactionRecordFilter{Status: models.IntegrationTransactionRecordStatusFailure})
	if err != nil {
		return nil, "", err
	}
	summary := export.Summary{
		{Label: "File", Value: it.FileName},
		{Label: "Interface", Value: string(it.InterfaceType)},
		{Label: "Status", Value: string(it.ImportStatus)},
		{Label: "Created", Value: it.CreatedDate.Format("02/01/2006 15:04")},
		{Label: "Total", Value: strconv.Itoa(it.TotalCount)},
		{Label: "Success", Value: strconv.Itoa(it.SuccessCount)},
		{Label: "Failure", Value: strconv.Itoa(it.FailureCount)},
		{Label: "Duplicate", Value: strconv.Itoa(it.DuplicateCount)},
	}
	content, err := s.pdf.Render(fmt.Sprintf("EWC Wales import %d", it.ID), summary, recordDataset(failures))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
	}
	return content, fmt.Sprintf("integration-transaction-%d.pdf", id), nil
}

func (s *IntegrationTransactionService) getHeader(ctx context.Context, id int64) (*models.IntegrationTransaction, error) {
	it, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "integration transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load integration transaction")
	}
	return it, nil
}

var recordExportHeaders = []string{"id", "status", "person_id", "duplicate", "has_active_alert", "failure_message", "row_data", "created_date"}

func recordDataset(records []models.IntegrationTransactionRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := map[string]string{
			"id":               strconv.FormatInt(rec.ID, 10),
			"status":           string(rec.Status),
			"duplicate":        strconv.FormatBool(rec.Duplicate),
			"has_active_alert": strconv.FormatBool(rec.HasActiveAlert),
			"row_data":         rec.RowData,
			"created_date":     rec.CreatedDate.Format("2006-01-02T15:04:05Z07:00"),
		}
		if rec.PersonID != nil {
			row["person_id"] = *rec.PersonID
		}
		if rec.FailureMessage != nil {
			row["failure_message"] = *rec.FailureMessage
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: recordExportHeaders, Rows: rows}
}
