package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

func TestMetricsServiceSnapshotCountsImports(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)
	metrics.ObserveImportRow(models.ImportFileTypeInduction, models.IntegrationTransactionRecordStatusSuccess)
	metrics.ObserveImportRow(models.ImportFileTypeQualification, models.IntegrationTransactionRecordStatusFailure)
	metrics.ObserveImportFile(models.ImportFileTypeInduction, FileResultProcessed, time.Second)
	metrics.ObserveImportFile(0, FileResultUnrecognised, 0)

	stats := metrics.Snapshot()
	assert.Equal(t, uint64(1), stats.RequestsTotal)
	assert.Equal(t, uint64(1), stats.RowsSucceeded)
	assert.Equal(t, uint64(1), stats.RowsFailed)
	assert.Equal(t, uint64(1), stats.FilesProcessed)
	assert.Equal(t, uint64(1), stats.FilesUnrecognised)
	require.NotNil(t, stats.LastFileAt)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `ewc_import_rows_total{file_type="Induction",outcome="Success"} 1`)
	assert.Contains(t, body, `ewc_import_files_total{file_type="Unknown",result="unrecognised"} 1`)
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveImportRow(models.ImportFileTypeInduction, models.IntegrationTransactionRecordStatusSuccess)
	metrics.ObserveImportFile(models.ImportFileTypeInduction, FileResultFailed, 0)
	assert.Zero(t, metrics.Snapshot().RowsSucceeded)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
