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

// BookHandler exposes library catalog endpoints.
type BookHandler struct {
	books *service.BookService
}

// NewBookHandler constructs BookHandler.
func NewBookHandler(books *service.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// List godoc
// @Summary List books
// @Tags Library
// @Produce json
// @Param search query string false "Search by title, author or ISBN"
// @Param category query string false "Filter by category"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /books [get]
func (h *BookHandler) List(c *gin.Context) {
	var filter models.BookFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Category = c.Query("category")
	filter.Page, filter.PageSize = pageParams(c)

	books, total, err := h.books.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, books, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get book
// @Tags Library
// @Produce json
// @Param id path string true "Book ID or catalog code"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	book, err := h.books.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// GetByISBN godoc
// @Summary Look up a book by ISBN
// @Tags Library
// @Produce json
// @Param isbn path string true "ISBN"
// @Success 200 {object} response.Envelope
// @Router /books/isbn/{isbn} [get]
func (h *BookHandler) GetByISBN(c *gin.Context) {
	book, err := h.books.GetByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// Create godoc
// @Summary Add book to catalog
// @Tags Library
// @Accept json
// @Produce json
// @Param payload body models.CreateBookRequest true "Book payload"
// @Success 201 {object} response.Envelope
// @Router /books [post]
func (h *BookHandler) Create(c *gin.Context) {
	var req models.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	book, err := h.books.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, book)
}

// Update godoc
// @Summary Update book
// @Tags Library
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param payload body models.UpdateBookRequest true "Book payload"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *gin.Context) {
	var req models.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.FromValidator(err, "invalid payload"))
		return
	}
	book, err := h.books.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// Delete godoc
// @Summary Remove book from catalog
// @Tags Library
// @Produce json
// @Param id path string true "Book ID"
// @Success 204
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.books.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
