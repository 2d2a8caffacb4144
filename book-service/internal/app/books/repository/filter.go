package repository

import (
	"strings"

	"gorm.io/gorm/clause"
)

// FilterField - колонка книги, по которой разрешён поиск
type FilterField string

const (
	FieldISBN        FilterField = "isbn"
	FieldTitle       FilterField = "title"
	FieldDescription FilterField = "description"
	FieldAuthor      FilterField = "author"
)

// MatchOp - вид предиката
type MatchOp int

const (
	OpEquals MatchOp = iota
	OpContains
)

// Combinator - способ объединения предикатов фильтра
type Combinator int

const (
	MatchAny Combinator = iota // OR
	MatchAll                   // AND
)

func (c Combinator) String() string {
	if c == MatchAll {
		return "all"
	}
	return "any"
}

// Predicate - одно условие фильтра
type Predicate struct {
	Field FilterField
	Op    MatchOp
	Value string
}

// BookFilter накапливает предикаты по полям книги
// Пустой фильтр не ограничивает выборку
type BookFilter struct {
	combinator Combinator
	predicates []Predicate
}

func NewBookFilter(combinator Combinator) *BookFilter {
	return &BookFilter{combinator: combinator}
}

// Equals добавляет точное совпадение, nil значение пропускается
func (f *BookFilter) Equals(field FilterField, value *string) *BookFilter {
	if value != nil {
		f.predicates = append(f.predicates, Predicate{Field: field, Op: OpEquals, Value: *value})
	}
	return f
}

// Contains добавляет совпадение по подстроке, nil значение пропускается
func (f *BookFilter) Contains(field FilterField, value *string) *BookFilter {
	if value != nil {
		f.predicates = append(f.predicates, Predicate{Field: field, Op: OpContains, Value: *value})
	}
	return f
}

func (f *BookFilter) Combinator() Combinator {
	return f.combinator
}

func (f *BookFilter) Predicates() []Predicate {
	return f.predicates
}

func (f *BookFilter) IsEmpty() bool {
	return f == nil || len(f.predicates) == 0
}

// Expression переводит фильтр в условие WHERE
func (f *BookFilter) Expression() clause.Expression {
	if f.IsEmpty() {
		return nil
	}

	exprs := make([]clause.Expression, 0, len(f.predicates))
	for _, p := range f.predicates {
		column := clause.Column{Name: string(p.Field)}
		switch p.Op {
		case OpEquals:
			exprs = append(exprs, clause.Eq{Column: column, Value: p.Value})
		case OpContains:
			exprs = append(exprs, clause.Like{Column: column, Value: "%" + escapeLike(p.Value) + "%"})
		}
	}

	if f.combinator == MatchAll {
		return clause.And(exprs...)
	}
	return clause.Or(exprs...)
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike экранирует спецсимволы LIKE (экранирующий символ по умолчанию в PostgreSQL - \)
func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
