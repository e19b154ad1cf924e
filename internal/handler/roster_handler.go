package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/middleware"
	"github.com/noah-isme/roster-ledger-api/internal/service"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/response"
)

// RosterHandler exposes roster listings and single-record mutations.
type RosterHandler struct {
	roster *service.RosterService
	query  *service.QueryService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(roster *service.RosterService, query *service.QueryService) *RosterHandler {
	return &RosterHandler{roster: roster, query: query}
}

// List godoc
// @Summary List workers
// @Description Current roster with dashboard filters. Users only see active workers.
// @Tags Roster
// @Produce json
// @Param area query string false "City or Sadar"
// @Param pp_sz query string false "Unit code substring"
// @Param zone query string false "Zone substring"
// @Param cc_uc query string false "Cell code substring"
// @Param search query string false "Name, record id, CNIC or vehicle registration"
// @Param status query string false "active or removed (admin)"
// @Param all_versions query bool false "List every version (admin)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /roster [get]
func (h *RosterHandler) List(c *gin.Context) {
	var q dto.RosterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid query parameters"))
		return
	}
	middleware.SetRevision(c, h.query.Stats().Revision)

	items, pagination, err := h.query.List(c.Request.Context(), q, roleOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Person godoc
// @Summary Get worker
// @Description Current version and history by person id, record id or CNIC
// @Tags Roster
// @Produce json
// @Param id path string true "Person id, record id or CNIC"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/persons/{id} [get]
func (h *RosterHandler) Person(c *gin.Context) {
	view, err := h.query.Person(c.Request.Context(), c.Param("id"), roleOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Add godoc
// @Summary Add worker
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.AddWorkerRequest true "Worker"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/workers [post]
func (h *RosterHandler) Add(c *gin.Context) {
	var req dto.AddWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid worker payload"))
		return
	}
	created, err := h.roster.Add(c.Request.Context(), req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Transfer godoc
// @Summary Transfer worker
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Person id, record id or CNIC"
// @Param payload body dto.TransferRequest true "Destination"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/persons/{id}/transfer [post]
func (h *RosterHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid transfer payload"))
		return
	}
	moved, err := h.roster.Transfer(c.Request.Context(), c.Param("id"), req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, moved, nil)
}

// Remove godoc
// @Summary Remove worker
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Person id, record id or CNIC"
// @Param payload body dto.RemoveRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/persons/{id}/remove [post]
func (h *RosterHandler) Remove(c *gin.Context) {
	var req dto.RemoveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid remove payload"))
			return
		}
	}
	removed, err := h.roster.Remove(c.Request.Context(), c.Param("id"), req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, removed, nil)
}

// Edit godoc
// @Summary Edit worker field
// @Description Changes phone, cnic, vehicle_id or vehicle_reg_no
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Person id, record id or CNIC"
// @Param payload body dto.EditRequest true "Field and value"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /roster/persons/{id}/edit [post]
func (h *RosterHandler) Edit(c *gin.Context) {
	var req dto.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid edit payload"))
		return
	}
	edited, err := h.roster.Edit(c.Request.Context(), c.Param("id"), req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edited, nil)
}
