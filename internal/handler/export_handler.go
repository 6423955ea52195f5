package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinsched/rotations-api/internal/service"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
	"github.com/clinsched/rotations-api/pkg/response"
)

// ExportHandler serves the rotation schedule table and its file exports.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Schedule godoc
// @Summary Rotation schedule table per group member
// @Tags Exports
// @Produce json
// @Param id path string true "Rotation ID"
// @Success 200 {object} response.Envelope
// @Router /rotations/{id}/schedule [get]
func (h *ExportHandler) Schedule(c *gin.Context) {
	table, err := h.exports.ScheduleTable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, table, nil)
}

// Export godoc
// @Summary Download the schedule table as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Rotation ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /rotations/{id}/schedule/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	rotationID := c.Param("id")
	format := c.DefaultQuery("format", "csv")

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case "csv":
		payload, err = h.exports.ExportCSV(c.Request.Context(), rotationID)
		contentType = "text/csv"
	case "pdf":
		payload, err = h.exports.ExportPDF(c.Request.Context(), rotationID)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("rotation-schedule-%s.%s", rotationID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
