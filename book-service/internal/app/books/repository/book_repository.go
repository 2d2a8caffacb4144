package repository

import (
	"context"
	"errors"
	"fmt"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/pkg/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository создает репозиторий книг поверх GORM
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// withRelations подгружает категории и идентификаторы отзывов
func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Categories").Preload("Reviews")
}

// Create сохраняет книгу и её связи с категориями
// Категории должны существовать, отзывы у новой книги всегда пусты
func (r *bookRepository) Create(ctx context.Context, book *entity.Book) error {
	return withinTransaction(ctx, r.db, func(ctx context.Context) error {
		db := dbFromContext(ctx, r.db)

		timer := metrics.NewDbTimer(metricsService, metrics.DbOpInsert, "books")
		err := db.Omit(clause.Associations).Create(book).Error
		timer.ObserveDuration(err)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("failed to create book: %w", err)
		}

		return r.linkCategories(db, book.ISBN, book.Categories)
	})
}

func (r *bookRepository) linkCategories(db *gorm.DB, isbn string, categories []entity.Category) error {
	if len(categories) == 0 {
		return nil
	}

	links := make([]entity.BookCategory, 0, len(categories))
	for _, c := range categories {
		links = append(links, entity.BookCategory{BookISBN: isbn, CategoryID: c.ID})
	}

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpInsert, "book_categories")
	err := db.Create(&links).Error
	timer.ObserveDuration(err)
	if err != nil {
		return fmt.Errorf("failed to link book categories: %w", err)
	}
	return nil
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*entity.Book, error) {
	var book entity.Book
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "books")
	err := withRelations(dbFromContext(ctx, r.db)).Where("isbn = ?", isbn).First(&book).Error
	timer.ObserveDuration(ignoreNotFound(err))

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book by isbn: %w", err)
	}
	return &book, nil
}

func (r *bookRepository) GetAll(ctx context.Context) ([]entity.Book, error) {
	return r.Search(ctx, nil)
}

// Search возвращает книги, удовлетворяющие фильтру, отсортированные по ISBN
func (r *bookRepository) Search(ctx context.Context, filter *BookFilter) ([]entity.Book, error) {
	books := make([]entity.Book, 0)
	query := withRelations(dbFromContext(ctx, r.db))
	if expr := filter.Expression(); expr != nil {
		query = query.Clauses(clause.Where{Exprs: []clause.Expression{expr}})
	}

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "books")
	err := query.Order("isbn ASC").Find(&books).Error
	timer.ObserveDuration(err)

	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	return books, nil
}

func (r *bookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var count int64
	err := dbFromContext(ctx, r.db).Model(&entity.Book{}).Where("isbn = ?", isbn).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check book existence: %w", err)
	}
	return count > 0, nil
}

// ExistsByURL проверяет, занят ли url другой книгой (excludeISBN не учитывается)
func (r *bookRepository) ExistsByURL(ctx context.Context, url string, excludeISBN string) (bool, error) {
	var count int64
	err := dbFromContext(ctx, r.db).Model(&entity.Book{}).
		Where("url = ? AND isbn <> ?", url, excludeISBN).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check book url: %w", err)
	}
	return count > 0, nil
}

// Update полностью заменяет поля и категории книги, отзывы не меняются
func (r *bookRepository) Update(ctx context.Context, book *entity.Book) error {
	return withinTransaction(ctx, r.db, func(ctx context.Context) error {
		db := dbFromContext(ctx, r.db)

		timer := metrics.NewDbTimer(metricsService, metrics.DbOpUpdate, "books")
		result := db.Model(&entity.Book{}).Where("isbn = ?", book.ISBN).Updates(map[string]interface{}{
			"title":       book.Title,
			"description": book.Description,
			"author":      book.Author,
			"url":         book.URL,
		})
		timer.ObserveDuration(result.Error)
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("failed to update book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		timer = metrics.NewDbTimer(metricsService, metrics.DbOpDelete, "book_categories")
		err := db.Where("book_isbn = ?", book.ISBN).Delete(&entity.BookCategory{}).Error
		timer.ObserveDuration(err)
		if err != nil {
			return fmt.Errorf("failed to unlink book categories: %w", err)
		}

		return r.linkCategories(db, book.ISBN, book.Categories)
	})
}

// Delete удаляет книгу, её связи с категориями и идентификаторы отзывов
func (r *bookRepository) Delete(ctx context.Context, isbn string) error {
	return withinTransaction(ctx, r.db, func(ctx context.Context) error {
		db := dbFromContext(ctx, r.db)

		if err := db.Where("book_isbn = ?", isbn).Delete(&entity.BookCategory{}).Error; err != nil {
			return fmt.Errorf("failed to delete book categories: %w", err)
		}
		if err := db.Where("book_isbn = ?", isbn).Delete(&entity.BookReview{}).Error; err != nil {
			return fmt.Errorf("failed to delete book reviews: %w", err)
		}

		timer := metrics.NewDbTimer(metricsService, metrics.DbOpDelete, "books")
		result := db.Where("isbn = ?", isbn).Delete(&entity.Book{})
		timer.ObserveDuration(result.Error)
		if result.Error != nil {
			return fmt.Errorf("failed to delete book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddReviews добавляет идентификаторы отзывов к книге, уже существующие пропускаются
// Возвращает количество реально добавленных
func (r *bookRepository) AddReviews(ctx context.Context, isbn string, reviewIDs []int64) (int64, error) {
	if len(reviewIDs) == 0 {
		return 0, nil
	}

	rows := make([]entity.BookReview, 0, len(reviewIDs))
	for _, id := range reviewIDs {
		rows = append(rows, entity.BookReview{BookISBN: isbn, ReviewID: id})
	}

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpInsert, "book_reviews")
	result := dbFromContext(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	timer.ObserveDuration(result.Error)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to add book reviews: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// RemoveReviews удаляет идентификаторы отзывов у всех книг
// Поиск владельцев идёт по индексу review_id, без обхода всех книг
func (r *bookRepository) RemoveReviews(ctx context.Context, reviewIDs []int64) (int64, error) {
	if len(reviewIDs) == 0 {
		return 0, nil
	}

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpDelete, "book_reviews")
	result := dbFromContext(ctx, r.db).Where("review_id IN ?", reviewIDs).Delete(&entity.BookReview{})
	timer.ObserveDuration(result.Error)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to remove book reviews: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *bookRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := dbFromContext(ctx, r.db).Model(&entity.Book{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}
