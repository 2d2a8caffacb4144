package entity

import "sort"

// Book - книга каталога, ISBN является натуральным первичным ключом
// Связь с категориями many-to-many через book_categories
// Идентификаторы отзывов хранятся в отдельной таблице book_reviews
type Book struct {
	ISBN        string       `json:"isbn" gorm:"column:isbn;primaryKey"`
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description" gorm:"type:text"`
	Author      string       `json:"author" gorm:"not null"`
	URL         string       `json:"url" gorm:"column:url;not null;uniqueIndex"`
	Categories  []Category   `json:"categories" gorm:"many2many:book_categories;joinForeignKey:BookISBN;joinReferences:CategoryID"`
	Reviews     []BookReview `json:"-" gorm:"foreignKey:BookISBN;references:ISBN"`
}

func (Book) TableName() string {
	return "books"
}

// ReviewIDs возвращает идентификаторы отзывов книги в порядке возрастания
func (b *Book) ReviewIDs() []int64 {
	ids := make([]int64, 0, len(b.Reviews))
	for _, r := range b.Reviews {
		ids = append(ids, r.ReviewID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Category - категория книг, имя уникально
// Обратная ссылка на книги не сериализуется наружу
type Category struct {
	ID    int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name  string `json:"name" gorm:"not null;uniqueIndex"`
	Books []Book `json:"-" gorm:"many2many:book_categories;joinForeignKey:CategoryID;joinReferences:BookISBN"`
}

func (Category) TableName() string {
	return "categories"
}

// BookCategory - строка join-таблицы книга/категория
type BookCategory struct {
	BookISBN   string `gorm:"column:book_isbn;primaryKey"`
	CategoryID int64  `gorm:"column:category_id;primaryKey;autoIncrement:false"`
}

func (BookCategory) TableName() string {
	return "book_categories"
}

// BookReview - идентификатор отзыва из review-service, привязанный к книге
// Индекс по review_id позволяет удалять отзывы без полного скана книг
type BookReview struct {
	BookISBN string `gorm:"column:book_isbn;primaryKey"`
	ReviewID int64  `gorm:"column:review_id;primaryKey;autoIncrement:false;index:idx_book_reviews_review_id"`
}

func (BookReview) TableName() string {
	return "book_reviews"
}
