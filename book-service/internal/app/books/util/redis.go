package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	metricsService     = "book-service"
	categoriesCacheKey = "categories:all"
	categoriesKeyLabel = "categories"
)

// RedisClient кеширует список категорий
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFromConn оборачивает готовый клиент
func NewRedisClientFromConn(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) SetCategories(ctx context.Context, categories []entity.Category, ttl time.Duration) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpSet)
	err = r.client.Set(ctx, categoriesCacheKey, data, ttl).Err()
	timer.ObserveDuration()
	if err != nil {
		metrics.RecordRedisError(metricsService, metrics.RedisOpSet)
		return fmt.Errorf("failed to set categories in cache: %w", err)
	}

	return nil
}

// GetCategories возвращает nil, nil при промахе кеша
func (r *RedisClient) GetCategories(ctx context.Context) ([]entity.Category, error) {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpGet)
	data, err := r.client.Get(ctx, categoriesCacheKey).Bytes()
	timer.ObserveDuration()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(metricsService, categoriesKeyLabel)
			return nil, nil
		}
		metrics.RecordRedisError(metricsService, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get categories from cache: %w", err)
	}

	var categories []entity.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}

	metrics.RecordCacheHit(metricsService, categoriesKeyLabel)
	return categories, nil
}

func (r *RedisClient) DeleteCategories(ctx context.Context) error {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpDel)
	err := r.client.Del(ctx, categoriesCacheKey).Err()
	timer.ObserveDuration()
	if err != nil {
		metrics.RecordRedisError(metricsService, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete categories from cache: %w", err)
	}
	return nil
}

// Ping используется readiness проверкой
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
