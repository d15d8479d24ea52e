package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
	"github.com/noah-isme/trs-ewc-import/pkg/response"
)

type integrationTransactionService interface {
	List(ctx context.Context, filter models.IntegrationTransactionFilter) ([]models.IntegrationTransaction, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.IntegrationTransaction, error)
	Records(ctx context.Context, id int64, filter models.IntegrationTransactionRecordFilter) ([]models.IntegrationTransactionRecord, error)
	ExportCSV(ctx context.Context, id int64) ([]byte, string, error)
	ReportPDF(ctx context.Context, id int64) ([]byte, string, error)
}

// IntegrationTransactionHandler exposes the import ledger.
type IntegrationTransactionHandler struct {
	ledger integrationTransactionService
}

// NewIntegrationTransactionHandler constructs the handler.
func NewIntegrationTransactionHandler(ledger integrationTransactionService) *IntegrationTransactionHandler {
	return &IntegrationTransactionHandler{ledger: ledger}
}

// List godoc
// @Summary List import runs
// @Tags IntegrationTransactions
// @Produce json
// @Param status query string false "InProgress, Success or Failed"
// @Param fileName query string false "Exact file name"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /integration-transactions [get]
func (h *IntegrationTransactionHandler) List(c *gin.Context) {
	var filter models.IntegrationTransactionFilter
	if raw := c.Query("status"); raw != "" {
		status, ok := parseImportStatus(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be InProgress, Success or Failed"))
			return
		}
		filter.ImportStatus = status
	}
	filter.FileName = strings.TrimSpace(c.Query("fileName"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		if page > models.MaxListPage {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("page must not exceed %d", models.MaxListPage)))
			return
		}
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	items, pagination, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get an import run with its records
// @Tags IntegrationTransactions
// @Produce json
// @Param id path int true "Integration transaction ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /integration-transactions/{id} [get]
func (h *IntegrationTransactionHandler) Get(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	it, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, it, nil)
}

// Records godoc
// @Summary List the records of an import run
// @Tags IntegrationTransactions
// @Produce json
// @Param id path int true "Integration transaction ID"
// @Param status query string false "Success or Failure"
// @Success 200 {object} response.Envelope
// @Router /integration-transactions/{id}/records [get]
func (h *IntegrationTransactionHandler) Records(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	var filter models.IntegrationTransactionRecordFilter
	switch raw := c.Query("status"); {
	case raw == "":
	case strings.EqualFold(raw, string(models.IntegrationTransactionRecordStatusSuccess)):
		filter.Status = models.IntegrationTransactionRecordStatusSuccess
	case strings.EqualFold(raw, string(models.IntegrationTransactionRecordStatusFailure)):
		filter.Status = models.IntegrationTransactionRecordStatusFailure
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be Success or Failure"))
		return
	}

	records, err := h.ledger.Records(c.Request.Context(), id, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExportCSV godoc
// @Summary Download the records of an import run as CSV
// @Tags IntegrationTransactions
// @Produce text/csv
// @Param id path int true "Integration transaction ID"
// @Success 200 {file} file
// @Router /integration-transactions/{id}/export.csv [get]
func (h *IntegrationTransactionHandler) ExportCSV(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	content, filename, err := h.ledger.ExportCSV(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "text/csv", filename, content)
}

// ReportPDF godoc
// @Summary Download a PDF summary of an import run
// @Tags IntegrationTransactions
// @Produce application/pdf
// @Param id path int true "Integration transaction ID"
// @Success 200 {file} file
// @Router /integration-transactions/{id}/report.pdf [get]
func (h *IntegrationTransactionHandler) ReportPDF(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	content, filename, err := h.ledger.ReportPDF(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "application/pdf", filename, content)
}

func transactionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func parseImportStatus(raw string) (models.IntegrationTransactionImportStatus, bool) {
	for _, status := range []models.IntegrationTransactionImportStatus{
		models.IntegrationTransactionImportStatusInProgress,
		models.IntegrationTransactionImportStatusSuccess,
		models.IntegrationTransactionImportStatusFailed,
	} {
		if strings.EqualFold(raw, string(status)) {
			return status, true
		}
	}
	return "", false
}
