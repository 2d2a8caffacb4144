package service

import (
	"context"
	"errors"

	"bookshelf/book-service/internal/app/books/entity"
)

var (
	// NotFound
	ErrBookNotFound     = errors.New("book not found")
	ErrCategoryNotFound = errors.New("category not found")

	// Conflict
	ErrBookAlreadyExists     = errors.New("book with this isbn already exists")
	ErrBookURLTaken          = errors.New("book with this url already exists")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")

	// InvalidArgument
	ErrInvalidCategories   = errors.New("at least one category doesn't exist")
	ErrInvalidCategoryName = errors.New("category name must not be blank")
)

type CategoryServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	GetCategory(ctx context.Context, id int64) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, id int64, req *entity.UpdateCategoryRequest) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type BookServiceInterface interface {
	CreateBook(ctx context.Context, req *entity.CreateBookRequest) (*entity.BookDetails, error)
	GetAllBooks(ctx context.Context) ([]entity.BookDetails, error)
	GetBook(ctx context.Context, isbn string) (*entity.BookDetails, error)
	SearchBooks(ctx context.Context, req *entity.SearchBooksRequest) ([]entity.BookDetails, error)
	BookExists(ctx context.Context, isbn string) (bool, error)
	UpdateBook(ctx context.Context, isbn string, req *entity.UpdateBookRequest) (*entity.BookDetails, error)
	DeleteBook(ctx context.Context, isbn string) error
}

type ReconcilerServiceInterface interface {
	HandleUserEvent(ctx context.Context, event *entity.UserEvent) error
	HandleReviewEvent(ctx context.Context, event *entity.ReviewEvent) error
}

type StatsServiceInterface interface {
	RefreshStats(ctx context.Context) error
}
