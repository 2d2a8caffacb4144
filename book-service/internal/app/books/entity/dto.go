package entity

import "sort"

// CreateCategoryRequest - запрос на создание категории
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// UpdateCategoryRequest - запрос на переименование категории
type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// CreateBookRequest - запрос на создание книги
type CreateBookRequest struct {
	ISBN        string  `json:"isbn" validate:"required,max=20"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=5000"`
	Author      string  `json:"author" validate:"required,max=255"`
	URL         string  `json:"url" validate:"required,url"`
	CategoryIDs []int64 `json:"category_ids" validate:"dive,gt=0"`
}

// UpdateBookRequest - полная замена полей книги, отзывы не затрагиваются
type UpdateBookRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=5000"`
	Author      string  `json:"author" validate:"required,max=255"`
	URL         string  `json:"url" validate:"required,url"`
	CategoryIDs []int64 `json:"category_ids" validate:"dive,gt=0"`
}

// SearchBooksRequest - критерии поиска, nil поле не участвует в фильтре
type SearchBooksRequest struct {
	ISBN        *string `json:"isbn"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Author      *string `json:"author"`
}

// BookDetails - представление книги для клиента
type BookDetails struct {
	ISBN        string   `json:"isbn"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	URL         string   `json:"url"`
	Categories  []string `json:"categories"`
	ReviewsIDs  []int64  `json:"reviews_ids"`
}

// NewBookDetails строит представление книги с отсортированными категориями и отзывами
func NewBookDetails(book *Book) BookDetails {
	names := make([]string, 0, len(book.Categories))
	for _, c := range book.Categories {
		names = append(names, c.Name)
	}
	sort.Strings(names)

	return BookDetails{
		ISBN:        book.ISBN,
		Title:       book.Title,
		Description: book.Description,
		Author:      book.Author,
		URL:         book.URL,
		Categories:  names,
		ReviewsIDs:  book.ReviewIDs(),
	}
}

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
