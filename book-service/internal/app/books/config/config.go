package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Поддерживаемые режимы объединения предикатов поиска
const (
	SearchMatchAny = "any" // OR - книга подходит, если совпал хотя бы один критерий
	SearchMatchAll = "all" // AND - книга подходит, если совпали все критерии
)

// Config содержит все настройки Book Service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Search   SearchConfig
	Cron     CronConfig
	Log      LogConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig - настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig - Redis для кеширования списка категорий
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration // Время жизни кеша категорий
}

// KafkaConfig - топики обмена событиями с user-service и review-service
type KafkaConfig struct {
	Brokers     []string
	GroupID     string
	UserTopic   string // Входящие USER_DELETED
	ReviewTopic string // Входящие REVIEWS_CREATED / REVIEWS_DELETED
	BookTopic   string // Исходящие BOOK_DELETED
	MinBytes    int
	MaxBytes    int
}

// JWTConfig - секрет для проверки токенов, выпущенных auth-service
type JWTConfig struct {
	Secret string
}

// SearchConfig - стратегия объединения предикатов поиска книг
type SearchConfig struct {
	MatchMode string
}

// CronConfig - расписание фоновых задач
type CronConfig struct {
	StatsSchedule string
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level        string
	LogstashAddr string
}

// Load загружает конфигурацию из переменных окружения
// Если рядом лежит .env, его значения подхватываются, но не перекрывают окружение
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getEnvDuration("CATEGORY_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}

	maxOpen, err := getEnvInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}

	maxIdle, err := getEnvInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}

	minBytes, err := getEnvInt("KAFKA_MIN_BYTES", 1)
	if err != nil {
		return nil, err
	}

	maxBytes, err := getEnvInt("KAFKA_MAX_BYTES", 10e6)
	if err != nil {
		return nil, err
	}

	matchMode := strings.ToLower(getEnv("SEARCH_MATCH_MODE", SearchMatchAny))
	if matchMode != SearchMatchAny && matchMode != SearchMatchAll {
		return nil, fmt.Errorf("invalid SEARCH_MATCH_MODE value %q: expected %q or %q", matchMode, SearchMatchAny, SearchMatchAll)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8084"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "book_service"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: maxOpen,
			MaxIdleConns: maxIdle,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
		Kafka: KafkaConfig{
			Brokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			GroupID:     getEnv("KAFKA_GROUP_ID", "book-service-group"),
			UserTopic:   getEnv("KAFKA_USER_TOPIC", "user.events"),
			ReviewTopic: getEnv("KAFKA_REVIEW_TOPIC", "review.events"),
			BookTopic:   getEnv("KAFKA_BOOK_TOPIC", "book.events"),
			MinBytes:    minBytes,
			MaxBytes:    maxBytes,
		},
		JWT: JWTConfig{
			// Должен совпадать с секретом auth-service
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
		},
		Search: SearchConfig{
			MatchMode: matchMode,
		},
		Cron: CronConfig{
			StatsSchedule: getEnv("CRON_STATS_SCHEDULE", "@every 5m"),
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
		},
	}, nil
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес сервера в формате host:port
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес Redis в формате host:port
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}

// splitAndTrim разбирает список брокеров через запятую
func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
