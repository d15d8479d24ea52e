package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trs-ewc-import/internal/middleware"
	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/internal/service"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
)

type ledgerServiceMock struct {
	lastFilter       models.IntegrationTransactionFilter
	lastRecordFilter models.IntegrationTransactionRecordFilter
	getErr           error
}

func (m *ledgerServiceMock) List(ctx context.Context, filter models.IntegrationTransactionFilter) ([]models.IntegrationTransaction, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.IntegrationTransaction{{ID: 1, FileName: "IND_2024.csv"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *ledgerServiceMock) Get(ctx context.Context, id int64) (*models.IntegrationTransaction, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.IntegrationTransaction{ID: id, FileName: "IND_2024.csv"}, nil
}

func (m *ledgerServiceMock) Records(ctx context.Context, id int64, filter models.IntegrationTransactionRecordFilter) ([]models.IntegrationTransactionRecord, error) {
	m.lastRecordFilter = filter
	return []models.IntegrationTransactionRecord{}, nil
}

func (m *ledgerServiceMock) ExportCSV(ctx context.Context, id int64) ([]byte, string, error) {
	return []byte("id,status\n"), "integration-transaction-1.csv", nil
}

func (m *ledgerServiceMock) ReportPDF(ctx context.Context, id int64) ([]byte, string, error) {
	return []byte("%PDF-1.3"), "integration-transaction-1.pdf", nil
}

type runnerMock struct {
	jobID   string
	err     error
	trigger string
}

func (m *runnerMock) Trigger(trigger string) (string, error) {
	m.trigger = trigger
	return m.jobID, m.err
}

func (m *runnerMock) Status() service.ImportRunStatus {
	return service.ImportRunStatus{LastTrigger: "schedule"}
}

func newLedgerRouter(mock *ledgerServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewIntegrationTransactionHandler(mock)
	router := gin.New()
	router.GET("/integration-transactions", h.List)
	router.GET("/integration-transactions/:id", h.Get)
	router.GET("/integration-transactions/:id/records", h.Records)
	router.GET("/integration-transactions/:id/export.csv", h.ExportCSV)
	router.GET("/integration-transactions/:id/report.pdf", h.ReportPDF)
	return router
}

func get(router *gin.Engine, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIntegrationTransactionHandlerList(t *testing.T) {
	mock := &ledgerServiceMock{}
	rec := get(newLedgerRouter(mock), "/integration-transactions?status=success&fileName=IND_2024.csv&page=2&page_size=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.IntegrationTransactionImportStatusSuccess, mock.lastFilter.ImportStatus)
	assert.Equal(t, "IND_2024.csv", mock.lastFilter.FileName)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 5, mock.lastFilter.PageSize)

	var body struct {
		Data       []models.IntegrationTransaction `json:"data"`
		Pagination models.Pagination               `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 1, body.Pagination.TotalCount)
}

func TestIntegrationTransactionHandlerRejectsBadInput(t *testing.T) {
	router := newLedgerRouter(&ledgerServiceMock{})
	assert.Equal(t, http.StatusBadRequest, get(router, "/integration-transactions?status=done").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/integration-transactions/abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/integration-transactions/1/records?status=maybe").Code)
}

func TestIntegrationTransactionHandlerRejectsPageBeyondLimit(t *testing.T) {
	mock := &ledgerServiceMock{}
	rec := get(newLedgerRouter(mock), "/integration-transactions?page=4611686018427387904")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "page must not exceed 100000")
	assert.Zero(t, mock.lastFilter.Page)
}

func TestIntegrationTransactionHandlerGetNotFound(t *testing.T) {
	router := newLedgerRouter(&ledgerServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "integration transaction not found")})
	rec := get(router, "/integration-transactions/9")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestIntegrationTransactionHandlerRecordsFilter(t *testing.T) {
	mock := &ledgerServiceMock{}
	rec := get(newLedgerRouter(mock), "/integration-transactions/1/records?status=failure")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.IntegrationTransactionRecordStatusFailure, mock.lastRecordFilter.Status)
}

func TestIntegrationTransactionHandlerDownloads(t *testing.T) {
	router := newLedgerRouter(&ledgerServiceMock{})

	rec := get(router, "/integration-transactions/1/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="integration-transaction-1.csv"`, rec.Header().Get("Content-Disposition"))

	rec = get(router, "/integration-transactions/1/report.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestImportHandlerRunAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &runnerMock{jobID: "job-1"}
	h := NewImportHandler(runner)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/imports/ewc-wales/run", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "op-1", Role: models.RoleAdmin})

	h.Run(c)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "manual:op-1", runner.trigger)
	assert.Contains(t, rec.Body.String(), `"jobId":"job-1"`)
}

func TestImportHandlerRunConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewImportHandler(&runnerMock{err: appErrors.ErrImportInProgress})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/imports/ewc-wales/run", nil)

	h.Run(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "IMPORT_IN_PROGRESS")
}

func TestImportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewImportHandler(&runnerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/imports/ewc-wales/status", nil)

	h.Status(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lastTrigger":"schedule"`)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingerFunc(func(ctx context.Context) error { return nil }),
	})
	failing := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingerFunc(func(ctx context.Context) error { return nil }),
		"redis":    PingerFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})

	router := gin.New()
	router.GET("/ready", healthy.Ready)
	router.GET("/ready-failing", failing.Ready)
	router.GET("/metrics", healthy.Prometheus)

	assert.Equal(t, http.StatusOK, get(router, "/ready").Code)
	rec := get(router, "/ready-failing")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/metrics").Code)
}
