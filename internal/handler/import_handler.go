package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trs-ewc-import/internal/dto"
	"github.com/noah-isme/trs-ewc-import/internal/service"
	"github.com/noah-isme/trs-ewc-import/pkg/response"
)

type importRunner interface {
	Trigger(trigger string) (string, error)
	Status() service.ImportRunStatus
}

// ImportHandler lets operators start and inspect EWC Wales import runs.
type ImportHandler struct {
	runner importRunner
}

// NewImportHandler constructs the handler.
func NewImportHandler(runner importRunner) *ImportHandler {
	return &ImportHandler{runner: runner}
}

// Run godoc
// @Summary Start an EWC Wales import run
// @Tags Imports
// @Produce json
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /imports/ewc-wales/run [post]
func (h *ImportHandler) Run(c *gin.Context) {
	trigger := "manual"
	if claims := claimsFromContext(c); claims != nil {
		trigger = "manual:" + claims.UserID
	}
	jobID, err := h.runner.Trigger(trigger)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.ImportRunResponse{JobID: jobID, Status: dto.ImportRunQueued})
}

// Status godoc
// @Summary Show the last EWC Wales import run
// @Tags Imports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /imports/ewc-wales/status [get]
func (h *ImportHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.runner.Status(), nil)
}
