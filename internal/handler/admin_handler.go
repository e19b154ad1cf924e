package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/service"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/response"
)

// AdminHandler exposes ledger maintenance.
type AdminHandler struct {
	service *service.AdminService
	metrics *service.MetricsService
}

// NewAdminHandler constructs the handler. metrics may be nil.
func NewAdminHandler(svc *service.AdminService, metrics *service.MetricsService) *AdminHandler {
	return &AdminHandler{service: svc, metrics: metrics}
}

// Wipe godoc
// @Summary Remove all data
// @Description Archives then destroys both ledger tables. Requires the configured confirmation code.
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.WipeRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/wipe [post]
func (h *AdminHandler) Wipe(c *gin.Context) {
	var req dto.WipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "confirmation code is required"))
		return
	}
	report, err := h.service.Wipe(c.Request.Context(), req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Rebuild godoc
// @Summary Rebuild projection
// @Description Reloads the ledger from storage and recomputes the current view
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/rebuild [post]
func (h *AdminHandler) Rebuild(c *gin.Context) {
	report, err := h.service.Rebuild(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Status godoc
// @Summary Ledger status
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/status [get]
func (h *AdminHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status(h.metrics), nil)
}
