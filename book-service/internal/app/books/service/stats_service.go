package service

import (
	"context"
	"fmt"

	"bookshelf/book-service/internal/app/books/repository"
	"bookshelf/pkg/logger"
	"bookshelf/pkg/metrics"
)

type cacheWarmer interface {
	WarmCache(ctx context.Context) error
}

// StatsService обновляет метрики размера каталога и прогревает кеш категорий
type StatsService struct {
	bookRepo     repository.BookRepository
	categoryRepo repository.CategoryRepository
	categories   cacheWarmer
}

func NewStatsService(
	bookRepo repository.BookRepository,
	categoryRepo repository.CategoryRepository,
	categories cacheWarmer,
) *StatsService {
	return &StatsService{
		bookRepo:     bookRepo,
		categoryRepo: categoryRepo,
		categories:   categories,
	}
}

func (s *StatsService) RefreshStats(ctx context.Context) error {
	books, err := s.bookRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count books: %w", err)
	}

	categories, err := s.categoryRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}

	metrics.CatalogBooksTotal.Set(float64(books))
	metrics.CatalogCategoriesTotal.Set(float64(categories))

	if err := s.categories.WarmCache(ctx); err != nil {
		return fmt.Errorf("failed to warm categories cache: %w", err)
	}

	logger.Debug().Int64("books", books).Int64("categories", categories).Msg("Catalog stats refreshed")
	return nil
}
