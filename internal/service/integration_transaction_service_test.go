package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
)

type ledgerReaderStub struct {
	header     *models.IntegrationTransaction
	records    []models.IntegrationTransactionRecord
	lastFilter models.IntegrationTransactionFilter
}

func (s *ledgerReaderStub) GetTransaction(ctx context.Context, id int64) (*models.IntegrationTransaction, error) {
	if s.header == nil || s.header.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.header
	return &copied, nil
}

func (s *ledgerReaderStub) ListTransactions(ctx context.Context, filter models.IntegrationTransactionFilter) ([]models.IntegrationTransaction, int, error) {
	s.lastFilter = filter
	if s.header == nil {
		return []models.IntegrationTransaction{}, 0, nil
	}
	return []models.IntegrationTransaction{*s.header}, 1, nil
}

func (s *ledgerReaderStub) ListTransactionRecords(ctx context.Context, id int64, filter models.IntegrationTransactionRecordFilter) ([]models.IntegrationTransactionRecord, error) {
	out := make([]models.IntegrationTransactionRecord, 0)
	for _, rec := range s.records {
		if filter.Status == "" || rec.Status == filter.Status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func sampleLedger() *ledgerReaderStub {
	personID := "p-1"
	failure := "row 2: Teacher with TRN 7654321 was not found."
	created := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	return &ledgerReaderStub{
		header: &models.IntegrationTransaction{
			ID:            42,
			InterfaceType: models.IntegrationTransactionInterfaceTypeEwcWales,
			ImportStatus:  models.IntegrationTransactionImportStatusSuccess,
			FileName:      "IND_2024.csv",
			TotalCount:    2,
			SuccessCount:  1,
			FailureCount:  1,
			CreatedDate:   created,
		},
		records: []models.IntegrationTransactionRecord{
			{ID: 1, IntegrationTransactionID: 42, RowData: "ReferenceNumber\n1234567\n", Status: models.IntegrationTransactionRecordStatusSuccess, PersonID: &personID, CreatedDate: created},
			{ID: 2, IntegrationTransactionID: 42, RowData: "ReferenceNumber\n7654321\n", Status: models.IntegrationTransactionRecordStatusFailure, FailureMessage: &failure, CreatedDate: created},
		},
	}
}

func TestIntegrationTransactionServiceList(t *testing.T) {
	repo := sampleLedger()
	svc := NewIntegrationTransactionService(repo, nil, nil, nil)

	items, pagination, err := svc.List(context.Background(), models.IntegrationTransactionFilter{PageSize: 1000})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 20, repo.lastFilter.PageSize)
}

func TestIntegrationTransactionServiceGetNotFound(t *testing.T) {
	svc := NewIntegrationTransactionService(sampleLedger(), nil, nil, nil)
	_, err := svc.Get(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIntegrationTransactionServiceGetIncludesRecords(t *testing.T) {
	svc := NewIntegrationTransactionService(sampleLedger(), nil, nil, nil)
	it, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, it.Records, 2)
}

func TestIntegrationTransactionServiceExportCSV(t *testing.T) {
	svc := NewIntegrationTransactionService(sampleLedger(), nil, nil, nil)
	content, filename, err := svc.ExportCSV(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "integration-transaction-42.csv", filename)

	text := string(content)
	assert.True(t, strings.HasPrefix(text, "id,status,person_id,duplicate,has_active_alert,failure_message,row_data,created_date"))
	assert.Contains(t, text, "Teacher with TRN 7654321 was not found.")
	assert.Contains(t, text, "p-1")
}

func TestIntegrationTransactionServiceReportPDF(t *testing.T) {
	svc := NewIntegrationTransactionService(sampleLedger(), nil, nil, nil)
	content, filename, err := svc.ReportPDF(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "integration-transaction-42.pdf", filename)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}
