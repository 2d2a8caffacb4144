package processor

import (
	"context"

	"bookshelf/book-service/internal/app/books/service"
	"bookshelf/pkg/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger направляет логи cron в zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// CronScheduler периодически пересчитывает статистику каталога
type CronScheduler struct {
	cron     *cron.Cron
	statsSvc service.StatsServiceInterface
}

func NewCronScheduler(statsSvc service.StatsServiceInterface) *CronScheduler {
	c := cron.New(cron.WithLogger(cronLogger{}))

	return &CronScheduler{
		cron:     c,
		statsSvc: statsSvc,
	}
}

// Start регистрирует задачу и сразу выполняет её один раз
func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("Starting cron scheduler")

	_, err := s.cron.AddFunc(schedule, func() {
		s.refresh(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()

	if err := s.statsSvc.RefreshStats(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial catalog stats refresh failed")
	}

	return nil
}

func (s *CronScheduler) refresh(ctx context.Context) {
	if err := s.statsSvc.RefreshStats(ctx); err != nil {
		logger.Error().Err(err).Msg("Catalog stats refresh failed")
		return
	}
	logger.Debug().Msg("Catalog stats refresh completed")
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("Stopping cron scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
