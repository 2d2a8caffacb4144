package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookshelf/book-service/internal/app/books/config"
	"bookshelf/book-service/internal/app/books/entity"
	"bookshelf/book-service/internal/app/books/handler"
	"bookshelf/book-service/internal/app/books/processor"
	"bookshelf/book-service/internal/app/books/repository"
	"bookshelf/book-service/internal/app/books/service"
	"bookshelf/book-service/internal/app/books/util"
	"bookshelf/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "book-service"

//go:generate swag init -d .. -g cmd/main.go -o ../docs --parseInternal

// @title                      Book Service API
// @version                    1.0
// @description                Каталог книг и категорий
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === ЛОГИРОВАНИЕ ===
	// Logstash опционален, при недоступности пишем только в stdout
	logger.Init(serviceName, cfg.Log.Level)
	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Log.LogstashAddr).Msg("Logstash unavailable, logging to stdout only")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}
	logger.Info().Msg("Successfully connected to PostgreSQL")

	// === ПОДКЛЮЧЕНИЕ К REDIS ===
	// Redis используется для кеширования списка категорий
	redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("Successfully connected to Redis")

	// === KAFKA PRODUCER ===
	// BOOK_DELETED уходит в book.events, на него подписан review-service
	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.BookTopic)
	defer kafkaProducer.Close()

	// === РЕПОЗИТОРИИ ===
	categoryRepo := repository.NewCategoryRepository(db)
	bookRepo := repository.NewBookRepository(db)
	transactor := repository.NewTransactor(db)

	// === СЕРВИСЫ ===
	matchMode := repository.MatchAny
	if cfg.Search.MatchMode == config.SearchMatchAll {
		matchMode = repository.MatchAll
	}

	categoryService := service.NewCategoryService(categoryRepo, redisClient, cfg.Redis.TTL)
	bookService := service.NewBookService(bookRepo, categoryRepo, transactor, kafkaProducer, matchMode)
	reconcilerService := service.NewReconcilerService(bookRepo, transactor)
	statsService := service.NewStatsService(bookRepo, categoryRepo, categoryService)

	// === KAFKA CONSUMER ===
	// Синхронизация отзывов по событиям user-service и review-service
	// Топики создаются заранее, ошибка не фатальна: брокер может создать их сам
	topicsCtx, topicsCancel := context.WithTimeout(ctx, 10*time.Second)
	topics := util.TopicConfigs(cfg.Kafka.UserTopic, cfg.Kafka.ReviewTopic)
	if err := util.EnsureTopics(topicsCtx, cfg.Kafka.Brokers, topics...); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure Kafka topics")
	}
	topicsCancel()

	consumer := processor.NewKafkaConsumer(cfg.Kafka, reconcilerService)
	consumer.Start(ctx)

	// === CRON ===
	scheduler := processor.NewCronScheduler(statsService)
	if err := scheduler.Start(ctx, cfg.Cron.StatsSchedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Cron.StatsSchedule).Msg("Failed to start cron scheduler")
	}

	// === HTTP ===
	healthHandler := handler.NewHealthHandler(
		serviceName,
		func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		redisClient.Ping,
	)

	router := handler.SetupRoutes(
		handler.NewBookHandler(bookService),
		handler.NewCategoryHandler(categoryService),
		healthHandler,
		handler.NewAuthMiddleware(cfg.JWT.Secret),
	)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.Server.Address()).
			Str("search_match", matchMode.String()).
			Msg("Starting Book Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Book Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	scheduler.Stop()
	cancel()
	consumer.Stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info().Msg("Book Service stopped gracefully")
}

// connectDB подключается к PostgreSQL через GORM
// 10 попыток, пока PostgreSQL поднимается в Docker
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if pingErr := sqlDB.Ping(); pingErr != nil {
				err = pingErr
			} else {
				sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
				sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(1 * time.Minute)
				return db, nil
			}
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Failed to connect to database")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

// migrate создает таблицы каталога и join-таблицу книга/категория
func migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&entity.Book{}, "Categories", &entity.BookCategory{}); err != nil {
		return fmt.Errorf("failed to setup book categories: %w", err)
	}
	if err := db.SetupJoinTable(&entity.Category{}, "Books", &entity.BookCategory{}); err != nil {
		return fmt.Errorf("failed to setup category books: %w", err)
	}

	return db.AutoMigrate(
		&entity.Category{},
		&entity.Book{},
		&entity.BookCategory{},
		&entity.BookReview{},
	)
}
