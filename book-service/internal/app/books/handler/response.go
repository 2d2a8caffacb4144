package handler

import (
	"errors"
	"net/http"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/service"
	"bookshelf/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError отправляет ответ об ошибке
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// respondServiceError переводит ошибку сервиса в HTTP статус
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrBookAlreadyExists),
		errors.Is(err, service.ErrBookURLTaken),
		errors.Is(err, service.ErrCategoryAlreadyExists):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCategories),
		errors.Is(err, service.ErrInvalidCategoryName):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg(fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

// formatValidationError форматирует ошибки валидации
func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return validationErrors[0].Field() + " validation failed"
	}
	return "Validation failed"
}
