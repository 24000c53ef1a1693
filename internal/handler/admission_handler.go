package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/internal/service"
	appErrors "github.com/edusuite/school-api/pkg/errors"
	"github.com/edusuite/school-api/pkg/response"
)

// AdmissionHandler exposes public draft/submission endpoints and the admin
// review endpoints.
type AdmissionHandler struct {
	admissions *service.AdmissionService
}

// NewAdmissionHandler constructs AdmissionHandler.
func NewAdmissionHandler(admissions *service.AdmissionService) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions}
}

// SaveDraft godoc
// @Summary Save application draft
// @Description Upserts an in-progress application keyed by draft id
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body models.SaveDraftRequest true "Draft payload"
// @Success 200 {object} response.Envelope
// @Router /admissions/drafts [post]
func (h *AdmissionHandler) SaveDraft(c *gin.Context) {
	var req models.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	draft, err := h.admissions.SaveDraft(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// GetDraft godoc
// @Summary Get application draft
// @Tags Admissions
// @Produce json
// @Param draftId path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Router /admissions/drafts/{draftId} [get]
func (h *AdmissionHandler) GetDraft(c *gin.Context) {
	draft, err := h.admissions.GetDraft(c.Request.Context(), c.Param("draftId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Submit godoc
// @Summary Submit application
// @Description Promotes a draft into a submitted application
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body models.SubmitAdmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /admissions [post]
func (h *AdmissionHandler) Submit(c *gin.Context) {
	var req models.SubmitAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	application, err := h.admissions.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// List godoc
// @Summary List applications
// @Tags Admissions
// @Produce json
// @Param status query string false "Filter by status"
// @Param appliedClass query string false "Filter by applied class"
// @Param search query string false "Search by name or admission number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admissions [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	var filter models.AdmissionFilter
	if status := c.Query("status"); status != "" {
		s := models.AdmissionStatus(status)
		filter.Status = &s
	}
	filter.AppliedClass = c.Query("appliedClass")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	applications, total, err := h.admissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get application
// @Tags Admissions
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id} [get]
func (h *AdmissionHandler) Get(c *gin.Context) {
	application, err := h.admissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// UpdateStatus godoc
// @Summary Decide on application
// @Description Moves an application through the review state machine
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.UpdateAdmissionStatusRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id}/status [put]
func (h *AdmissionHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateAdmissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	application, err := h.admissions.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}
