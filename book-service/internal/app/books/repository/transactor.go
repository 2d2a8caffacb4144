package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// Transactor выполняет fn в одной транзакции: ошибка - ROLLBACK, nil - COMMIT
// Репозитории, получившие ctx из fn, работают внутри этой транзакции
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return withinTransaction(ctx, t.db, fn)
}

// withinTransaction присоединяется к уже открытой транзакции из ctx или открывает новую
func withinTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFromContext возвращает транзакцию из ctx, если она есть
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
