package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/internal/service"
	appErrors "github.com/edusuite/school-api/pkg/errors"
	"github.com/edusuite/school-api/pkg/response"
)

// BookIssueHandler exposes lending endpoints, receipt download and CSV export.
type BookIssueHandler struct {
	issues *service.BookIssueService
}

// NewBookIssueHandler constructs BookIssueHandler.
func NewBookIssueHandler(issues *service.BookIssueService) *BookIssueHandler {
	return &BookIssueHandler{issues: issues}
}

func issueFilterFromQuery(c *gin.Context) models.BookIssueFilter {
	var filter models.BookIssueFilter
	filter.BookID = c.Query("bookId")
	filter.IssuedTo = c.Query("issuedTo")
	if status := c.Query("status"); status != "" {
		s := models.BookIssueStatus(status)
		filter.Status = &s
	}
	if overdue := boolQuery(c, "overdue"); overdue != nil {
		filter.Overdue = *overdue
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}

// List godoc
// @Summary List book issues
// @Tags Library
// @Produce json
// @Param bookId query string false "Filter by book"
// @Param issuedTo query string false "Filter by borrower"
// @Param status query string false "Filter by status"
// @Param overdue query bool false "Only overdue records"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /book-issues [get]
func (h *BookIssueHandler) List(c *gin.Context) {
	filter := issueFilterFromQuery(c)
	issues, total, err := h.issues.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get book issue
// @Tags Library
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Router /book-issues/{id} [get]
func (h *BookIssueHandler) Get(c *gin.Context) {
	issue, err := h.issues.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue, nil)
}

// Create godoc
// @Summary Issue book
// @Tags Library
// @Accept json
// @Produce json
// @Param payload body models.CreateBookIssueRequest true "Issue payload"
// @Success 201 {object} response.Envelope
// @Router /book-issues [post]
func (h *BookIssueHandler) Create(c *gin.Context) {
	var req models.CreateBookIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	issue, err := h.issues.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, issue)
}

// Update godoc
// @Summary Transition book issue
// @Description Return a book or mark it overdue or lost
// @Tags Library
// @Accept json
// @Produce json
// @Param id path string true "Issue ID"
// @Param payload body models.UpdateBookIssueRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /book-issues/{id} [put]
func (h *BookIssueHandler) Update(c *gin.Context) {
	var req models.UpdateBookIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	issue, err := h.issues.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue, nil)
}

// Delete godoc
// @Summary Delete book issue
// @Description Remove a closed lending record
// @Tags Library
// @Produce json
// @Param id path string true "Issue ID"
// @Success 204
// @Router /book-issues/{id} [delete]
func (h *BookIssueHandler) Delete(c *gin.Context) {
	if err := h.issues.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Fine godoc
// @Summary Get accrued fine
// @Tags Library
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Router /book-issues/{id}/fine [get]
func (h *BookIssueHandler) Fine(c *gin.Context) {
	fine, err := h.issues.Fine(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"fine": fine}, nil)
}

// Receipt godoc
// @Summary Download lending receipt
// @Tags Library
// @Produce application/pdf
// @Param id path string true "Issue ID"
// @Success 200 {file} binary
// @Router /book-issues/{id}/receipt [get]
func (h *BookIssueHandler) Receipt(c *gin.Context) {
	data, err := h.issues.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("receipt-%s.pdf", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Export godoc
// @Summary Export book issues as CSV
// @Tags Library
// @Produce text/csv
// @Param bookId query string false "Filter by book"
// @Param issuedTo query string false "Filter by borrower"
// @Param status query string false "Filter by status"
// @Param overdue query bool false "Only overdue records"
// @Success 200 {file} binary
// @Router /book-issues/export [get]
func (h *BookIssueHandler) Export(c *gin.Context) {
	filter := issueFilterFromQuery(c)
	data, err := h.issues.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("book-issues-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
