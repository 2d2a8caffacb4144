package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/repository"
	"bookshelf/book-service/internal/app/books/util"
	"bookshelf/pkg/logger"
	"bookshelf/pkg/metrics"
)

// BookService управляет каталогом книг
type BookService struct {
	bookRepo     repository.BookRepository
	categoryRepo repository.CategoryRepository
	tx           repository.Transactor
	publisher    util.MessagePublisher
	matchMode    repository.Combinator
}

func NewBookService(
	bookRepo repository.BookRepository,
	categoryRepo repository.CategoryRepository,
	tx repository.Transactor,
	publisher util.MessagePublisher,
	matchMode repository.Combinator,
) *BookService {
	return &BookService{
		bookRepo:     bookRepo,
		categoryRepo: categoryRepo,
		tx:           tx,
		publisher:    publisher,
		matchMode:    matchMode,
	}
}

// CreateBook создает книгу с категориями, множество отзывов пустое
func (s *BookService) CreateBook(ctx context.Context, req *entity.CreateBookRequest) (*entity.BookDetails, error) {
	var book *entity.Book

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		categories, err := s.resolveCategories(ctx, req.CategoryIDs)
		if err != nil {
			return err
		}

		exists, err := s.bookRepo.ExistsByISBN(ctx, req.ISBN)
		if err != nil {
			return fmt.Errorf("failed to check isbn: %w", err)
		}
		if exists {
			return ErrBookAlreadyExists
		}

		if err := s.checkURLAvailable(ctx, req.URL, req.ISBN); err != nil {
			return err
		}

		book = &entity.Book{
			ISBN:        req.ISBN,
			Title:       req.Title,
			Description: req.Description,
			Author:      req.Author,
			URL:         req.URL,
			Categories:  categories,
		}

		if err := s.bookRepo.Create(ctx, book); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrBookAlreadyExists
			}
			return fmt.Errorf("failed to create book: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CatalogBooksCreated.Inc()
	logger.Info().Str("isbn", book.ISBN).Int("categories", len(book.Categories)).Msg("Book created")

	details := entity.NewBookDetails(book)
	return &details, nil
}

func (s *BookService) GetAllBooks(ctx context.Context) ([]entity.BookDetails, error) {
	books, err := s.bookRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get books: %w", err)
	}
	return toDetails(books), nil
}

func (s *BookService) GetBook(ctx context.Context, isbn string) (*entity.BookDetails, error) {
	book, err := s.getBook(ctx, isbn)
	if err != nil {
		return nil, err
	}

	details := entity.NewBookDetails(book)
	return &details, nil
}

// SearchBooks ищет книги по подстроке в заданных полях
// Пустой запрос возвращает все книги
func (s *BookService) SearchBooks(ctx context.Context, req *entity.SearchBooksRequest) ([]entity.BookDetails, error) {
	filter := repository.NewBookFilter(s.matchMode).
		Contains(repository.FieldISBN, req.ISBN).
		Contains(repository.FieldTitle, req.Title).
		Contains(repository.FieldDescription, req.Description).
		Contains(repository.FieldAuthor, req.Author)

	books, err := s.bookRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	logger.Debug().
		Str("match", filter.Combinator().String()).
		Int("predicates", len(filter.Predicates())).
		Int("found", len(books)).
		Msg("Books search")

	return toDetails(books), nil
}

func (s *BookService) BookExists(ctx context.Context, isbn string) (bool, error) {
	exists, err := s.bookRepo.ExistsByISBN(ctx, isbn)
	if err != nil {
		return false, fmt.Errorf("failed to check book: %w", err)
	}
	return exists, nil
}

// UpdateBook полностью заменяет поля и категории книги, отзывы не меняются
func (s *BookService) UpdateBook(ctx context.Context, isbn string, req *entity.UpdateBookRequest) (*entity.BookDetails, error) {
	var book *entity.Book

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		book, err = s.getBook(ctx, isbn)
		if err != nil {
			return err
		}

		categories, err := s.resolveCategories(ctx, req.CategoryIDs)
		if err != nil {
			return err
		}

		if err := s.checkURLAvailable(ctx, req.URL, isbn); err != nil {
			return err
		}

		book.Title = req.Title
		book.Description = req.Description
		book.Author = req.Author
		book.URL = req.URL
		book.Categories = categories

		if err := s.bookRepo.Update(ctx, book); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return ErrBookNotFound
			case errors.Is(err, repository.ErrDuplicateKey):
				return ErrBookURLTaken
			}
			return fmt.Errorf("failed to update book: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	details := entity.NewBookDetails(book)
	return &details, nil
}

// DeleteBook удаляет книгу и после коммита публикует BOOK_DELETED с её отзывами
func (s *BookService) DeleteBook(ctx context.Context, isbn string) error {
	var reviewIDs []int64

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		book, err := s.getBook(ctx, isbn)
		if err != nil {
			return err
		}
		reviewIDs = book.ReviewIDs()

		if err := s.bookRepo.Delete(ctx, isbn); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("failed to delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.CatalogBooksDeleted.Inc()
	logger.Info().Str("isbn", isbn).Int("reviews", len(reviewIDs)).Msg("Book deleted")

	s.publishBookDeleted(ctx, isbn, reviewIDs)
	return nil
}

// publishBookDeleted - книга уже удалена, ошибка отправки только логируется
func (s *BookService) publishBookDeleted(ctx context.Context, isbn string, reviewIDs []int64) {
	event := entity.BookEvent{
		EventType:  entity.EventTypeBookDeleted,
		ReviewsIDs: reviewIDs,
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("isbn", isbn).Msg("Failed to marshal book event")
		return
	}

	if err := s.publisher.PublishMessage(ctx, isbn, data); err != nil {
		logger.Error().Err(err).Str("isbn", isbn).Msg("Failed to publish BOOK_DELETED event")
		return
	}

	logger.Debug().Str("isbn", isbn).Msg("BOOK_DELETED event published")
}

func (s *BookService) getBook(ctx context.Context, isbn string) (*entity.Book, error) {
	book, err := s.bookRepo.GetByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// resolveCategories загружает категории по id, повторы схлопываются
// Если хотя бы одной категории нет - ErrInvalidCategories
func (s *BookService) resolveCategories(ctx context.Context, ids []int64) ([]entity.Category, error) {
	distinct := uniqueIDs(ids)
	if len(distinct) == 0 {
		return []entity.Category{}, nil
	}

	categories, err := s.categoryRepo.GetByIDs(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	if len(categories) != len(distinct) {
		return nil, ErrInvalidCategories
	}
	return categories, nil
}

func (s *BookService) checkURLAvailable(ctx context.Context, url, isbn string) error {
	taken, err := s.bookRepo.ExistsByURL(ctx, url, isbn)
	if err != nil {
		return fmt.Errorf("failed to check url: %w", err)
	}
	if taken {
		return ErrBookURLTaken
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func toDetails(books []entity.Book) []entity.BookDetails {
	result := make([]entity.BookDetails, 0, len(books))
	for i := range books {
		result = append(result, entity.NewBookDetails(&books[i]))
	}
	return result
}
