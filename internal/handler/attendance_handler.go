package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/internal/service"
	appErrors "github.com/edusuite/school-api/pkg/errors"
	"github.com/edusuite/school-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark attendance
// @Description Upserts attendance records for a set of students on a date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 204
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	if err := h.attendance.Mark(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param sectionId query string false "Filter by section"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.StudentID = c.Query("studentId")
	filter.SectionID = c.Query("sectionId")
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.DateTo = &t
		}
	}
	if status := c.Query("status"); status != "" {
		s := models.AttendanceStatus(status)
		filter.Status = &s
	}
	filter.Page, filter.PageSize = pageParams(c)

	records, total, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, paginationFor(filter.Page, filter.PageSize, total))
}
