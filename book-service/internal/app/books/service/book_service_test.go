package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/repository"
	"bookshelf/book-service/internal/app/books/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookServiceDeps struct {
	bookRepo     *mocks.MockBookRepository
	categoryRepo *mocks.MockCategoryRepository
	tx           *mocks.MockTransactor
	publisher    *mocks.MockMessagePublisher
}

func newBookService(mode repository.Combinator) (*BookService, *bookServiceDeps) {
	deps := &bookServiceDeps{
		bookRepo:     new(mocks.MockBookRepository),
		categoryRepo: new(mocks.MockCategoryRepository),
		tx:           new(mocks.MockTransactor),
		publisher:    new(mocks.MockMessagePublisher),
	}
	service := NewBookService(deps.bookRepo, deps.categoryRepo, deps.tx, deps.publisher, mode)
	return service, deps
}

func newTestBook() *entity.Book {
	return &entity.Book{
		ISBN:        "978-5-389-07435-4",
		Title:       "The Master and Margarita",
		Description: "Novel",
		Author:      "Mikhail Bulgakov",
		URL:         "https://example.com/master",
		Categories:  []entity.Category{{ID: 2, Name: "Satire"}, {ID: 1, Name: "Classic"}},
		Reviews: []entity.BookReview{
			{BookISBN: "978-5-389-07435-4", ReviewID: 30},
			{BookISBN: "978-5-389-07435-4", ReviewID: 10},
		},
	}
}

func newCreateBookRequest() *entity.CreateBookRequest {
	return &entity.CreateBookRequest{
		ISBN:        "978-5-389-07435-4",
		Title:       "The Master and Margarita",
		Description: "Novel",
		Author:      "Mikhail Bulgakov",
		URL:         "https://example.com/master",
		CategoryIDs: []int64{1, 2, 1},
	}
}

func strPtr(s string) *string { return &s }

// ==================== CreateBook ====================

func TestBookService_CreateBook_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	req := newCreateBookRequest()

	categories := []entity.Category{{ID: 1, Name: "Classic"}, {ID: 2, Name: "Satire"}}
	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.categoryRepo.On("GetByIDs", ctx, []int64{1, 2}).Return(categories, nil)
	deps.bookRepo.On("ExistsByISBN", ctx, req.ISBN).Return(false, nil)
	deps.bookRepo.On("ExistsByURL", ctx, req.URL, req.ISBN).Return(false, nil)
	deps.bookRepo.On("Create", ctx, mock.AnythingOfType("*entity.Book")).Return(nil)

	// Act
	details, err := service.CreateBook(ctx, req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, req.ISBN, details.ISBN)
	assert.Equal(t, []string{"Classic", "Satire"}, details.Categories)
	assert.Empty(t, details.ReviewsIDs)
	assert.NotNil(t, details.ReviewsIDs)

	created := deps.bookRepo.Calls[len(deps.bookRepo.Calls)-1].Arguments.Get(1).(*entity.Book)
	assert.Len(t, created.Categories, 2)
	assert.Empty(t, created.Reviews)

	deps.tx.AssertExpectations(t)
	deps.bookRepo.AssertExpectations(t)
	deps.categoryRepo.AssertExpectations(t)
}

func TestBookService_CreatedCategoryVisibleOnBook(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	cache := new(mocks.MockCategoryCache)
	categoryService := NewCategoryService(deps.categoryRepo, cache, testCacheTTL)

	deps.categoryRepo.On("GetByName", ctx, "Magic Realism").Return(nil, repository.ErrNotFound)
	deps.categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.Category).ID = 42
		}).
		Return(nil)
	cache.On("DeleteCategories", ctx).Return(nil)

	// Act: категория
	category, err := categoryService.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "Magic Realism"})
	require.NoError(t, err)

	req := newCreateBookRequest()
	req.CategoryIDs = []int64{category.ID}

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.categoryRepo.On("GetByIDs", ctx, []int64{42}).Return([]entity.Category{*category}, nil)
	deps.bookRepo.On("ExistsByISBN", ctx, req.ISBN).Return(false, nil)
	deps.bookRepo.On("ExistsByURL", ctx, req.URL, req.ISBN).Return(false, nil)

	var stored *entity.Book
	deps.bookRepo.On("Create", ctx, mock.AnythingOfType("*entity.Book")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*entity.Book)
		}).
		Return(nil)

	// Act: книга с этой категорией
	_, err = service.CreateBook(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, stored)

	deps.bookRepo.On("GetByISBN", ctx, req.ISBN).Return(stored, nil)

	// Act: чтение книги
	details, err := service.GetBook(ctx, req.ISBN)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"Magic Realism"}, details.Categories)
	deps.categoryRepo.AssertExpectations(t)
	deps.bookRepo.AssertExpectations(t)
}

func TestBookService_CreateBook_WithoutCategories(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	req := newCreateBookRequest()
	req.CategoryIDs = nil

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("ExistsByISBN", ctx, req.ISBN).Return(false, nil)
	deps.bookRepo.On("ExistsByURL", ctx, req.URL, req.ISBN).Return(false, nil)
	deps.bookRepo.On("Create", ctx, mock.AnythingOfType("*entity.Book")).Return(nil)

	// Act
	details, err := service.CreateBook(ctx, req)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, details.Categories)
	deps.categoryRepo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestBookService_CreateBook_InvalidCategories(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	req := newCreateBookRequest()
	req.CategoryIDs = []int64{1, 99}

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.categoryRepo.On("GetByIDs", ctx, []int64{1, 99}).
		Return([]entity.Category{{ID: 1, Name: "Classic"}}, nil)

	// Act
	details, err := service.CreateBook(ctx, req)

	// Assert
	assert.Nil(t, details)
	assert.ErrorIs(t, err, ErrInvalidCategories)
	deps.bookRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookService_CreateBook_ISBNTaken(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	req := newCreateBookRequest()
	req.CategoryIDs = nil

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("ExistsByISBN", ctx, req.ISBN).Return(true, nil)

	// Act
	_, err := service.CreateBook(ctx, req)

	// Assert
	assert.ErrorIs(t, err, ErrBookAlreadyExists)
	deps.bookRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookService_CreateBook_URLTaken(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	req := newCreateBookRequest()
	req.CategoryIDs = nil

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("ExistsByISBN", ctx, req.ISBN).Return(false, nil)
	deps.bookRepo.On("ExistsByURL", ctx, req.URL, req.ISBN).Return(true, nil)

	// Act
	_, err := service.CreateBook(ctx, req)

	// Assert
	assert.ErrorIs(t, err, ErrBookURLTaken)
}

func TestBookService_CreateBook_ConcurrentDuplicate(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	req := newCreateBookRequest()
	req.CategoryIDs = nil

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("ExistsByISBN", ctx, req.ISBN).Return(false, nil)
	deps.bookRepo.On("ExistsByURL", ctx, req.URL, req.ISBN).Return(false, nil)
	deps.bookRepo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicateKey)

	// Act
	_, err := service.CreateBook(ctx, req)

	// Assert
	assert.ErrorIs(t, err, ErrBookAlreadyExists)
}

func TestBookService_CreateBook_TransactionError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.tx.On("WithinTransaction", ctx).Return(errors.New("begin failed"))

	// Act
	details, err := service.CreateBook(ctx, newCreateBookRequest())

	// Assert
	assert.Nil(t, details)
	assert.EqualError(t, err, "begin failed")
}

// ==================== Get / Exists ====================

func TestBookService_GetBook_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()

	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)

	// Act
	details, err := service.GetBook(ctx, book.ISBN)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"Classic", "Satire"}, details.Categories)
	assert.Equal(t, []int64{10, 30}, details.ReviewsIDs)
}

func TestBookService_GetBook_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.bookRepo.On("GetByISBN", ctx, "missing").Return(nil, repository.ErrNotFound)

	// Act
	details, err := service.GetBook(ctx, "missing")

	// Assert
	assert.Nil(t, details)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookService_GetAllBooks_Empty(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.bookRepo.On("GetAll", ctx).Return([]entity.Book{}, nil)

	// Act
	books, err := service.GetAllBooks(ctx)

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestBookService_BookExists(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.bookRepo.On("ExistsByISBN", ctx, "present").Return(true, nil)
	deps.bookRepo.On("ExistsByISBN", ctx, "absent").Return(false, nil)

	// Act
	present, err1 := service.BookExists(ctx, "present")
	absent, err2 := service.BookExists(ctx, "absent")

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, present)
	assert.False(t, absent)
}

// ==================== SearchBooks ====================

func TestBookService_SearchBooks_BuildsFilter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAll)
	book := newTestBook()

	deps.bookRepo.On("Search", ctx, mock.MatchedBy(func(f *repository.BookFilter) bool {
		return f.Combinator() == repository.MatchAll &&
			assert.ObjectsAreEqual([]repository.Predicate{
				{Field: repository.FieldTitle, Op: repository.OpContains, Value: "Master"},
				{Field: repository.FieldAuthor, Op: repository.OpContains, Value: "Bulgakov"},
			}, f.Predicates())
	})).Return([]entity.Book{*book}, nil)

	// Act
	books, err := service.SearchBooks(ctx, &entity.SearchBooksRequest{
		Title:  strPtr("Master"),
		Author: strPtr("Bulgakov"),
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, book.ISBN, books[0].ISBN)
	deps.bookRepo.AssertExpectations(t)
}

func TestBookService_SearchBooks_EmptyRequest(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.bookRepo.On("Search", ctx, mock.MatchedBy(func(f *repository.BookFilter) bool {
		return f.IsEmpty()
	})).Return([]entity.Book{*newTestBook()}, nil)

	// Act
	books, err := service.SearchBooks(ctx, &entity.SearchBooksRequest{})

	// Assert
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestBookService_SearchBooks_RepoError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.bookRepo.On("Search", ctx, mock.Anything).Return(nil, errors.New("db error"))

	// Act
	books, err := service.SearchBooks(ctx, &entity.SearchBooksRequest{Title: strPtr("x")})

	// Assert
	require.Error(t, err)
	assert.Nil(t, books)
}

// ==================== UpdateBook ====================

func TestBookService_UpdateBook_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()

	req := &entity.UpdateBookRequest{
		Title:       "Master & Margarita",
		Description: "Updated",
		Author:      "M. Bulgakov",
		URL:         "https://example.com/master-2",
		CategoryIDs: []int64{3},
	}

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)
	deps.categoryRepo.On("GetByIDs", ctx, []int64{3}).Return([]entity.Category{{ID: 3, Name: "Novel"}}, nil)
	deps.bookRepo.On("ExistsByURL", ctx, req.URL, book.ISBN).Return(false, nil)
	deps.bookRepo.On("Update", ctx, mock.AnythingOfType("*entity.Book")).Return(nil)

	// Act
	details, err := service.UpdateBook(ctx, book.ISBN, req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Master & Margarita", details.Title)
	assert.Equal(t, "https://example.com/master-2", details.URL)
	assert.Equal(t, []string{"Novel"}, details.Categories)
	// Отзывы сохраняются
	assert.Equal(t, []int64{10, 30}, details.ReviewsIDs)
	deps.bookRepo.AssertExpectations(t)
}

func TestBookService_UpdateBook_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, "missing").Return(nil, repository.ErrNotFound)

	// Act
	_, err := service.UpdateBook(ctx, "missing", &entity.UpdateBookRequest{})

	// Assert
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookService_UpdateBook_URLTakenByOther(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()
	req := &entity.UpdateBookRequest{Title: "t", Author: "a", URL: "https://example.com/other"}

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)
	deps.bookRepo.On("ExistsByURL", ctx, req.URL, book.ISBN).Return(true, nil)

	// Act
	_, err := service.UpdateBook(ctx, book.ISBN, req)

	// Assert
	assert.ErrorIs(t, err, ErrBookURLTaken)
	deps.bookRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestBookService_UpdateBook_InvalidCategories(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()
	req := &entity.UpdateBookRequest{Title: "t", Author: "a", URL: book.URL, CategoryIDs: []int64{5}}

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)
	deps.categoryRepo.On("GetByIDs", ctx, []int64{5}).Return([]entity.Category{}, nil)

	// Act
	_, err := service.UpdateBook(ctx, book.ISBN, req)

	// Assert
	assert.ErrorIs(t, err, ErrInvalidCategories)
}

// ==================== DeleteBook ====================

func TestBookService_DeleteBook_PublishesEvent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)
	deps.bookRepo.On("Delete", ctx, book.ISBN).Return(nil)
	deps.publisher.On("PublishMessage", ctx, book.ISBN, mock.Anything).Return(nil)

	// Act
	err := service.DeleteBook(ctx, book.ISBN)

	// Assert
	require.NoError(t, err)
	deps.publisher.AssertNumberOfCalls(t, "PublishMessage", 1)

	payload := deps.publisher.Calls[0].Arguments.Get(2).([]byte)
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "BOOK_DELETED", event["eventType"])
	assert.Equal(t, []interface{}{float64(10), float64(30)}, event["reviewsIds"])
}

func TestBookService_DeleteBook_NoReviewsPublishesEmptyList(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()
	book.Reviews = nil

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)
	deps.bookRepo.On("Delete", ctx, book.ISBN).Return(nil)
	deps.publisher.On("PublishMessage", ctx, book.ISBN, mock.Anything).Return(nil)

	// Act
	err := service.DeleteBook(ctx, book.ISBN)

	// Assert
	require.NoError(t, err)
	payload := deps.publisher.Calls[0].Arguments.Get(2).([]byte)
	assert.JSONEq(t, `{"eventType":"BOOK_DELETED","reviewsIds":[]}`, string(payload))
}

func TestBookService_DeleteBook_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, "missing").Return(nil, repository.ErrNotFound)

	// Act
	err := service.DeleteBook(ctx, "missing")

	// Assert
	assert.ErrorIs(t, err, ErrBookNotFound)
	deps.bookRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	deps.publisher.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookService_DeleteBook_RollbackDoesNotPublish(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)
	deps.bookRepo.On("Delete", ctx, book.ISBN).Return(errors.New("db error"))

	// Act
	err := service.DeleteBook(ctx, book.ISBN)

	// Assert
	require.Error(t, err)
	deps.publisher.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookService_DeleteBook_PublishFailureNotReturned(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newBookService(repository.MatchAny)
	book := newTestBook()

	deps.tx.On("WithinTransaction", ctx).Return(nil)
	deps.bookRepo.On("GetByISBN", ctx, book.ISBN).Return(book, nil)
	deps.bookRepo.On("Delete", ctx, book.ISBN).Return(nil)
	deps.publisher.On("PublishMessage", ctx, book.ISBN, mock.Anything).Return(errors.New("broker unavailable"))

	// Act
	err := service.DeleteBook(ctx, book.ISBN)

	// Assert
	require.NoError(t, err)
	deps.publisher.AssertExpectations(t)
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, uniqueIDs([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, uniqueIDs(nil))
}
