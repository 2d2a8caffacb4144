package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEvent - событие не удалось сериализовать/десериализовать
var ErrMalformedEvent = errors.New("malformed event")

// EventType - тип события в обмене с user-service и review-service
// Формат JSON совместим с соседними сервисами (camelCase)
type EventType string

const (
	EventTypeUserDeleted    EventType = "USER_DELETED"
	EventTypeReviewsCreated EventType = "REVIEWS_CREATED"
	EventTypeReviewsDeleted EventType = "REVIEWS_DELETED"
	EventTypeBookDeleted    EventType = "BOOK_DELETED"
)

func (t EventType) valid() bool {
	switch t {
	case EventTypeUserDeleted, EventTypeReviewsCreated, EventTypeReviewsDeleted, EventTypeBookDeleted:
		return true
	}
	return false
}

// UnmarshalJSON отклоняет неизвестные типы событий
func (t *EventType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: event type: %v", ErrMalformedEvent, err)
	}
	v := EventType(s)
	if !v.valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, s)
	}
	*t = v
	return nil
}

// MarshalJSON не позволяет отправить неизвестный тип события
func (t EventType) MarshalJSON() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, string(t))
	}
	return json.Marshal(string(t))
}

// UserEvent - событие из топика user.events
type UserEvent struct {
	EventType  EventType `json:"eventType"`
	ReviewsIDs []int64   `json:"reviewsIds"`
}

// ReviewEvent - событие из топика review.events
type ReviewEvent struct {
	EventType  EventType `json:"eventType"`
	Username   string    `json:"username"`
	ISBN       string    `json:"isbn"`
	ReviewsIDs []int64   `json:"reviewsIds"`
}

// BookEvent - событие в топик book.events, отправляется при удалении книги
type BookEvent struct {
	EventType  EventType `json:"eventType"`
	ReviewsIDs []int64   `json:"reviewsIds"`
}
