package repository

import (
	"context"
	"errors"

	"bookshelf/book-service/internal/app/books/entity"

	"github.com/jackc/pgx/v5/pgconn"
)

const metricsService = "book-service"

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
	GetByName(ctx context.Context, name string) (*entity.Category, error)
	GetByIDs(ctx context.Context, ids []int64) ([]entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error
	GetByISBN(ctx context.Context, isbn string) (*entity.Book, error)
	GetAll(ctx context.Context) ([]entity.Book, error)
	Search(ctx context.Context, filter *BookFilter) ([]entity.Book, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	ExistsByURL(ctx context.Context, url string, excludeISBN string) (bool, error)
	Update(ctx context.Context, book *entity.Book) error
	Delete(ctx context.Context, isbn string) error
	AddReviews(ctx context.Context, isbn string, reviewIDs []int64) (int64, error)
	RemoveReviews(ctx context.Context, reviewIDs []int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// isUniqueViolation проверяет нарушение UNIQUE constraint в PostgreSQL
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
