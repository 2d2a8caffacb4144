package service

import (
	"context"
	"fmt"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/repository"
	"bookshelf/pkg/logger"
	"bookshelf/pkg/metrics"
)

const (
	reconcileAdded   = "added"
	reconcileRemoved = "removed"
	reconcileSkipped = "skipped"
)

// ReconcilerService синхронизирует множества отзывов книг по событиям user-service и review-service
// Каждое событие обрабатывается в одной транзакции
type ReconcilerService struct {
	bookRepo repository.BookRepository
	tx       repository.Transactor
}

func NewReconcilerService(bookRepo repository.BookRepository, tx repository.Transactor) *ReconcilerService {
	return &ReconcilerService{
		bookRepo: bookRepo,
		tx:       tx,
	}
}

// HandleUserEvent - USER_DELETED убирает отзывы пользователя из всех книг
func (s *ReconcilerService) HandleUserEvent(ctx context.Context, event *entity.UserEvent) error {
	if event.EventType != entity.EventTypeUserDeleted {
		logger.Debug().Str("event_type", string(event.EventType)).Msg("Ignoring user event")
		return nil
	}

	return s.removeReviews(ctx, event.EventType, event.ReviewsIDs)
}

// HandleReviewEvent обрабатывает REVIEWS_CREATED и REVIEWS_DELETED
func (s *ReconcilerService) HandleReviewEvent(ctx context.Context, event *entity.ReviewEvent) error {
	switch event.EventType {
	case entity.EventTypeReviewsCreated:
		return s.addReviews(ctx, event)
	case entity.EventTypeReviewsDeleted:
		// Удаление только по id отзыва, isbn события не используется
		return s.removeReviews(ctx, event.EventType, event.ReviewsIDs)
	default:
		logger.Debug().Str("event_type", string(event.EventType)).Msg("Ignoring review event")
		return nil
	}
}

func (s *ReconcilerService) addReviews(ctx context.Context, event *entity.ReviewEvent) error {
	if len(event.ReviewsIDs) == 0 {
		return nil
	}

	var added int64
	skipped := false

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.bookRepo.ExistsByISBN(ctx, event.ISBN)
		if err != nil {
			return fmt.Errorf("failed to check book: %w", err)
		}
		if !exists {
			skipped = true
			return nil
		}

		added, err = s.bookRepo.AddReviews(ctx, event.ISBN, event.ReviewsIDs)
		if err != nil {
			return fmt.Errorf("failed to add reviews: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	eventType := string(event.EventType)
	if skipped {
		metrics.RecordReviewsReconciled(eventType, reconcileSkipped, len(event.ReviewsIDs))
		logger.Debug().Str("isbn", event.ISBN).Msg("Book not found, reviews skipped")
		return nil
	}

	metrics.RecordReviewsReconciled(eventType, reconcileAdded, int(added))
	logger.Info().
		Str("isbn", event.ISBN).
		Str("username", event.Username).
		Int64("added", added).
		Msg("Reviews added to book")
	return nil
}

func (s *ReconcilerService) removeReviews(ctx context.Context, eventType entity.EventType, reviewIDs []int64) error {
	if len(reviewIDs) == 0 {
		return nil
	}

	var removed int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.bookRepo.RemoveReviews(ctx, reviewIDs)
		if err != nil {
			return fmt.Errorf("failed to remove reviews: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordReviewsReconciled(string(eventType), reconcileRemoved, int(removed))
	logger.Info().
		Str("event_type", string(eventType)).
		Int("requested", len(reviewIDs)).
		Int64("removed", removed).
		Msg("Reviews removed from books")
	return nil
}
