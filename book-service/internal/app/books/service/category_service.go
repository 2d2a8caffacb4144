package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/repository"
	"bookshelf/book-service/internal/app/books/util"
	"bookshelf/pkg/logger"
)

// CategoryService управляет категориями и кешем их списка
type CategoryService struct {
	categoryRepo repository.CategoryRepository
	cache        util.CategoryCache
	cacheTTL     time.Duration
}

func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	cache util.CategoryCache,
	cacheTTL time.Duration,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
	}
}

// CreateCategory создает категорию, имя должно быть уникальным (точное совпадение)
func (s *CategoryService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	name, err := validateCategoryName(req.Name)
	if err != nil {
		return nil, err
	}

	_, err = s.categoryRepo.GetByName(ctx, name)
	if err == nil {
		return nil, ErrCategoryAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}

	category := &entity.Category{Name: name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		// Параллельное создание с тем же именем
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCache(ctx)

	logger.Info().Int64("category_id", category.ID).Str("name", category.Name).Msg("Category created")
	return category, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// GetAllCategories возвращает категории в порядке создания, сначала из кеша
func (s *CategoryService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.cache.GetCategories(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read categories cache")
	} else if categories != nil {
		return categories, nil
	}

	return s.loadAndCache(ctx)
}

// WarmCache перезагружает список категорий в кеш
func (s *CategoryService) WarmCache(ctx context.Context) error {
	_, err := s.loadAndCache(ctx)
	return err
}

func (s *CategoryService) loadAndCache(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if err := s.cache.SetCategories(ctx, categories, s.cacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache categories")
	}

	return categories, nil
}

// UpdateCategory переименовывает категорию
// Новое имя не должно совпадать с именем другой категории
func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	name, err := validateCategoryName(req.Name)
	if err != nil {
		return nil, err
	}

	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.categoryRepo.GetByName(ctx, name)
	switch {
	case err == nil && existing.ID != id:
		return nil, ErrCategoryAlreadyExists
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}

	category.Name = name
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCache(ctx)
	return category, nil
}

// DeleteCategory удаляет категорию и её связи с книгами
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.invalidateCache(ctx)

	logger.Info().Int64("category_id", id).Msg("Category deleted")
	return nil
}

// validateCategoryName - имя хранится как есть, но не может состоять только из пробелов
func validateCategoryName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrInvalidCategoryName
	}
	return name, nil
}

// invalidateCache - ошибка кеша не прерывает операцию, данные в БД уже изменены
func (s *CategoryService) invalidateCache(ctx context.Context) {
	if err := s.cache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate categories cache")
	}
}
