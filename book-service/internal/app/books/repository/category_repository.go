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

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository создает репозиторий категорий поверх GORM
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create сохраняет категорию, id генерируется БД
func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpInsert, "categories")
	err := dbFromContext(ctx, r.db).Omit(clause.Associations).Create(category).Error
	timer.ObserveDuration(err)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	var category entity.Category
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "categories")
	err := dbFromContext(ctx, r.db).Where("id = ?", id).First(&category).Error
	timer.ObserveDuration(ignoreNotFound(err))

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}
	return &category, nil
}

// GetByName ищет категорию по точному совпадению имени
func (r *categoryRepository) GetByName(ctx context.Context, name string) (*entity.Category, error) {
	var category entity.Category
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "categories")
	err := dbFromContext(ctx, r.db).Where("name = ?", name).First(&category).Error
	timer.ObserveDuration(ignoreNotFound(err))

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return &category, nil
}

// GetByIDs возвращает только существующие категории из списка
func (r *categoryRepository) GetByIDs(ctx context.Context, ids []int64) ([]entity.Category, error) {
	categories := make([]entity.Category, 0, len(ids))
	if len(ids) == 0 {
		return categories, nil
	}

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "categories")
	err := dbFromContext(ctx, r.db).Where("id IN ?", ids).Order("id ASC").Find(&categories).Error
	timer.ObserveDuration(err)

	if err != nil {
		return nil, fmt.Errorf("failed to get categories by ids: %w", err)
	}
	return categories, nil
}

// GetAll возвращает категории в порядке создания
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	categories := make([]entity.Category, 0)
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "categories")
	err := dbFromContext(ctx, r.db).Order("id ASC").Find(&categories).Error
	timer.ObserveDuration(err)

	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *entity.Category) error {
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpUpdate, "categories")
	result := dbFromContext(ctx, r.db).Model(&entity.Category{}).
		Where("id = ?", category.ID).
		Update("name", category.Name)
	timer.ObserveDuration(result.Error)

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to update category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет категорию вместе со связями book_categories
// Книги после удаления не ссылаются на удалённую категорию
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	return withinTransaction(ctx, r.db, func(ctx context.Context) error {
		db := dbFromContext(ctx, r.db)

		timer := metrics.NewDbTimer(metricsService, metrics.DbOpDelete, "book_categories")
		err := db.Where("category_id = ?", id).Delete(&entity.BookCategory{}).Error
		timer.ObserveDuration(err)
		if err != nil {
			return fmt.Errorf("failed to delete category links: %w", err)
		}

		timer = metrics.NewDbTimer(metricsService, metrics.DbOpDelete, "categories")
		result := db.Where("id = ?", id).Delete(&entity.Category{})
		timer.ObserveDuration(result.Error)
		if result.Error != nil {
			return fmt.Errorf("failed to delete category: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *categoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := dbFromContext(ctx, r.db).Model(&entity.Category{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

// ignoreNotFound - отсутствие записи не считается ошибкой БД в метриках
func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
