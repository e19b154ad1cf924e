package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/service"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/response"
)

// AuditHandler lists the audit log.
type AuditHandler struct {
	query *service.QueryService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(query *service.QueryService) *AuditHandler {
	return &AuditHandler{query: query}
}

// List godoc
// @Summary List audit entries
// @Tags Audit
// @Produce json
// @Param person_id query string false "Person id"
// @Param record_id query string false "Record id"
// @Param action query string false "add, transfer, edit, remove or purge"
// @Param by_user query string false "Username"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var q dto.AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid query parameters"))
		return
	}
	entries, pagination, err := h.query.Audit(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
