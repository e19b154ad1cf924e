package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/service"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/response"
)

// ExportHandler serves ledger downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Download godoc
// @Summary Export ledger tables
// @Tags Roster
// @Produce text/csv
// @Produce application/pdf
// @Param table query string false "records or audit"
// @Param scope query string false "current or ledger"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid export parameters"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Ledger-Revision", strconv.FormatUint(file.Revision, 10))
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
