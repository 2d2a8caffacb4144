package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookshelf/book-service/internal/app/books/config"
	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/service"
	"bookshelf/pkg/logger"
	"bookshelf/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

const metricsService = "book-service"

// KafkaConsumer читает user.events и review.events и передаёт события в reconciler
type KafkaConsumer struct {
	reader      *kafka.Reader
	reconciler  service.ReconcilerServiceInterface
	userTopic   string
	reviewTopic string
	groupID     string
	stopChan    chan struct{}
	doneChan    chan struct{}
}

// NewKafkaConsumer создает consumer group, подписанную на оба входящих топика
func NewKafkaConsumer(cfg config.KafkaConfig, reconciler service.ReconcilerServiceInterface) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: []string{cfg.UserTopic, cfg.ReviewTopic},
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		// Новая группа читает топики с начала, иначе отзывы до первого запуска потеряются
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
	})

	return &KafkaConsumer{
		reader:      reader,
		reconciler:  reconciler,
		userTopic:   cfg.UserTopic,
		reviewTopic: cfg.ReviewTopic,
		groupID:     cfg.GroupID,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	logger.Info().
		Str("group", c.groupID).
		Strs("topics", []string{c.userTopic, c.reviewTopic}).
		Msg("Starting Kafka consumer")

	go c.consume(ctx)
}

// Stop останавливает consumer и закрывает reader
func (c *KafkaConsumer) Stop() {
	logger.Info().Msg("Stopping Kafka consumer")
	close(c.stopChan)
	<-c.doneChan

	stats := c.GetStats()
	logger.Info().
		Int64("messages", stats.Messages).
		Int64("errors", stats.Errors).
		Int64("rebalances", stats.Rebalances).
		Msg("Kafka consumer stats")

	if err := c.reader.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close Kafka reader")
	}
	logger.Info().Msg("Kafka consumer stopped")
}

func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
			readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			message, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}

				logger.Error().Err(err).Msg("Error fetching message")
				time.Sleep(time.Second)
				continue
			}

			c.handleMessage(ctx, message)
		}
	}
}

// handleMessage коммитит offset после успешной обработки
// Сообщение с ошибкой пропускается без повтора: коммит накопительный,
// следующий успешный коммит в той же партиции сдвигает offset дальше него
func (c *KafkaConsumer) handleMessage(ctx context.Context, message kafka.Message) {
	start := time.Now()
	c.recordLag(message)

	if err := c.processMessage(ctx, message); err != nil {
		operation := "process"
		if errors.Is(err, entity.ErrMalformedEvent) {
			operation = "decode"
		}
		metrics.RecordKafkaError(metricsService, message.Topic, operation)
		logger.Error().
			Err(err).
			Str("topic", message.Topic).
			Int("partition", message.Partition).
			Int64("offset", message.Offset).
			Msg("Error processing message")
		return
	}

	if err := c.reader.CommitMessages(ctx, message); err != nil {
		metrics.RecordKafkaError(metricsService, message.Topic, "commit")
		logger.Error().Err(err).Str("topic", message.Topic).Msg("Error committing message")
		return
	}

	metrics.RecordKafkaMessageConsumed(metricsService, message.Topic, c.groupID, time.Since(start))
}

// processMessage декодирует событие по топику и передаёт его reconciler
func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	switch message.Topic {
	case c.userTopic:
		var event entity.UserEvent
		if err := decodeEvent(message.Value, &event, &event.EventType); err != nil {
			return fmt.Errorf("failed to unmarshal user event: %w", err)
		}

		logger.Debug().
			Str("event_type", string(event.EventType)).
			Int("reviews", len(event.ReviewsIDs)).
			Int64("offset", message.Offset).
			Msg("Received user event")

		if err := c.reconciler.HandleUserEvent(ctx, &event); err != nil {
			return fmt.Errorf("failed to process user event: %w", err)
		}

	case c.reviewTopic:
		var event entity.ReviewEvent
		if err := decodeEvent(message.Value, &event, &event.EventType); err != nil {
			return fmt.Errorf("failed to unmarshal review event: %w", err)
		}

		logger.Debug().
			Str("event_type", string(event.EventType)).
			Str("isbn", event.ISBN).
			Int("reviews", len(event.ReviewsIDs)).
			Int64("offset", message.Offset).
			Msg("Received review event")

		if err := c.reconciler.HandleReviewEvent(ctx, &event); err != nil {
			return fmt.Errorf("failed to process review event: %w", err)
		}

	default:
		logger.Warn().Str("topic", message.Topic).Msg("Message from unexpected topic skipped")
	}

	return nil
}

// decodeEvent - любая ошибка разбора приводится к ErrMalformedEvent, тип события обязателен
func decodeEvent(data []byte, event interface{}, eventType *entity.EventType) error {
	if err := json.Unmarshal(data, event); err != nil {
		if errors.Is(err, entity.ErrMalformedEvent) {
			return err
		}
		return fmt.Errorf("%w: %v", entity.ErrMalformedEvent, err)
	}
	if *eventType == "" {
		return fmt.Errorf("%w: missing event type", entity.ErrMalformedEvent)
	}
	return nil
}

func (c *KafkaConsumer) recordLag(message kafka.Message) {
	if message.HighWaterMark <= 0 {
		return
	}
	lag := message.HighWaterMark - message.Offset - 1
	if lag < 0 {
		lag = 0
	}
	metrics.KafkaConsumerLag.WithLabelValues(metricsService, c.groupID).Set(float64(lag))
}

// GetStats возвращает статистику consumer
func (c *KafkaConsumer) GetStats() kafka.ReaderStats {
	return c.reader.Stats()
}
