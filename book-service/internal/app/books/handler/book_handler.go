package handler

import (
	"errors"
	"io"
	"net/http"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BookHandler обрабатывает HTTP запросы /api/book
type BookHandler struct {
	bookService service.BookServiceInterface
	validator   *validator.Validate
}

func NewBookHandler(bookService service.BookServiceInterface) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		validator:   validator.New(),
	}
}

// CreateBook обрабатывает POST /api/book/create_book
// @Summary      Создать книгу
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body entity.CreateBookRequest true "Книга"
// @Success      201 {object} entity.BookDetails
// @Failure      400 {object} entity.ErrorResponse
// @Failure      409 {object} entity.ErrorResponse
// @Router       /api/book/create_book [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req entity.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	book, err := h.bookService.CreateBook(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to create book")
		return
	}

	c.Header("Location", "/api/book/"+book.ISBN)
	c.JSON(http.StatusCreated, book)
}

// GetAllBooks обрабатывает GET /api/book/all_books
// @Summary      Список книг
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} entity.BookDetails
// @Router       /api/book/all_books [get]
func (h *BookHandler) GetAllBooks(c *gin.Context) {
	books, err := h.bookService.GetAllBooks(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to get books")
		return
	}

	c.JSON(http.StatusOK, books)
}

// GetBook обрабатывает GET /api/book/:isbn
// @Summary      Книга по ISBN
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        isbn path string true "ISBN"
// @Success      200 {object} entity.BookDetails
// @Failure      404 {object} entity.ErrorResponse
// @Router       /api/book/{isbn} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	book, err := h.bookService.GetBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		respondServiceError(c, err, "Failed to get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// SearchBooks обрабатывает POST /api/book/search
// Пустое тело равносильно пустому фильтру
// @Summary      Поиск книг
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body entity.SearchBooksRequest false "Фильтр"
// @Success      200 {array} entity.BookDetails
// @Failure      400 {object} entity.ErrorResponse
// @Router       /api/book/search [post]
func (h *BookHandler) SearchBooks(c *gin.Context) {
	var req entity.SearchBooksRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	books, err := h.bookService.SearchBooks(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to search books")
		return
	}

	c.JSON(http.StatusOK, books)
}

// BookExists обрабатывает GET /api/book/exists/:isbn
// @Summary      Проверка наличия книги
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        isbn path string true "ISBN"
// @Success      200 {boolean} boolean
// @Router       /api/book/exists/{isbn} [get]
func (h *BookHandler) BookExists(c *gin.Context) {
	exists, err := h.bookService.BookExists(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		respondServiceError(c, err, "Failed to check book")
		return
	}

	c.JSON(http.StatusOK, exists)
}

// UpdateBook обрабатывает PUT /api/book/update/:isbn
// @Summary      Обновить книгу
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        isbn path string true "ISBN"
// @Param        request body entity.UpdateBookRequest true "Книга"
// @Success      200 {object} entity.BookDetails
// @Failure      400 {object} entity.ErrorResponse
// @Failure      404 {object} entity.ErrorResponse
// @Failure      409 {object} entity.ErrorResponse
// @Router       /api/book/update/{isbn} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	var req entity.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	book, err := h.bookService.UpdateBook(c.Request.Context(), c.Param("isbn"), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to update book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// DeleteBook обрабатывает DELETE /api/book/delete/:isbn
// @Summary      Удалить книгу
// @Tags         books
// @Security     BearerAuth
// @Param        isbn path string true "ISBN"
// @Success      204
// @Failure      404 {object} entity.ErrorResponse
// @Router       /api/book/delete/{isbn} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	if err := h.bookService.DeleteBook(c.Request.Context(), c.Param("isbn")); err != nil {
		respondServiceError(c, err, "Failed to delete book")
		return
	}

	c.Status(http.StatusNoContent)
}
