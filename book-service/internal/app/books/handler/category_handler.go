package handler

import (
	"net/http"
	"strconv"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CategoryHandler обрабатывает HTTP запросы /api/category
type CategoryHandler struct {
	categoryService service.CategoryServiceInterface
	validator       *validator.Validate
}

func NewCategoryHandler(categoryService service.CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		validator:       validator.New(),
	}
}

// CreateCategory обрабатывает POST /api/category/create_category
// @Summary      Создать категорию
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body entity.CreateCategoryRequest true "Категория"
// @Success      201 {object} entity.Category
// @Failure      400 {object} entity.ErrorResponse
// @Failure      409 {object} entity.ErrorResponse
// @Router       /api/category/create_category [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req entity.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to create category")
		return
	}

	c.Header("Location", "/api/category/"+strconv.FormatInt(category.ID, 10))
	c.JSON(http.StatusCreated, category)
}

// GetAllCategories обрабатывает GET /api/category/all_categories
// @Summary      Список категорий
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} entity.Category
// @Router       /api/category/all_categories [get]
func (h *CategoryHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.categoryService.GetAllCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to get categories")
		return
	}

	c.JSON(http.StatusOK, categories)
}

// GetCategory обрабатывает GET /api/category/:id
// @Summary      Категория по id
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "ID категории"
// @Success      200 {object} entity.Category
// @Failure      400 {object} entity.ErrorResponse
// @Failure      404 {object} entity.ErrorResponse
// @Router       /api/category/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := parseCategoryID(c)
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to get category")
		return
	}

	c.JSON(http.StatusOK, category)
}

// UpdateCategory обрабатывает PUT /api/category/update/:id
// @Summary      Переименовать категорию
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "ID категории"
// @Param        request body entity.UpdateCategoryRequest true "Категория"
// @Success      200 {object} entity.Category
// @Failure      400 {object} entity.ErrorResponse
// @Failure      404 {object} entity.ErrorResponse
// @Failure      409 {object} entity.ErrorResponse
// @Router       /api/category/update/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseCategoryID(c)
	if !ok {
		return
	}

	var req entity.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, formatValidationError(err))
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, err, "Failed to update category")
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory обрабатывает DELETE /api/category/delete/:id
// @Summary      Удалить категорию
// @Tags         categories
// @Security     BearerAuth
// @Param        id path int true "ID категории"
// @Success      200
// @Failure      404 {object} entity.ErrorResponse
// @Router       /api/category/delete/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseCategoryID(c)
	if !ok {
		return
	}

	if err := h.categoryService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "Failed to delete category")
		return
	}

	c.Status(http.StatusOK)
}

func parseCategoryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid category ID")
		return 0, false
	}
	return id, true
}
