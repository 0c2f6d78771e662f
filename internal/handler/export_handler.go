package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elimu-sms/admissions-api/internal/dto"
	"github.com/elimu-sms/admissions-api/internal/service"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
	"github.com/elimu-sms/admissions-api/pkg/response"
)

// ExportHandler serves register and offer letter downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// RegisterCSV godoc
// @Summary Download the admissions register as CSV
// @Tags Exports
// @Produce text/csv
// @Param stage query string false "Stage filter"
// @Param grade query string false "Grade filter"
// @Success 200
// @Router /admissions/register.csv [get]
func (h *ExportHandler) RegisterCSV(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.QueueQuery{
		Stage: c.Query("stage"),
		Grade: c.Query("grade"),
	}
	payload, err := h.exports.RegisterCSV(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="admissions-register.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// OfferLetter godoc
// @Summary Download the placement offer letter as PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Application ID"
// @Success 200
// @Failure 409 {object} response.Envelope
// @Router /admissions/{id}/offer-letter [get]
func (h *ExportHandler) OfferLetter(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, filename, err := h.exports.OfferLetterPDF(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
