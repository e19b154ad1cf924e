package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-ledger-api/internal/service"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/response"
)

// ImportHandler accepts bulk uploads.
type ImportHandler struct {
	service *service.ImportService
}

// NewImportHandler constructs the handler.
func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{service: svc}
}

// Upload godoc
// @Summary Bulk upload workers
// @Description Applies a CSV or XLSX file as one transaction. Row problems are reported as warnings.
// @Tags Roster
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/import [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "unable to read upload"))
		return
	}
	defer file.Close()

	result, err := h.service.Import(c.Request.Context(), header.Filename, file, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
