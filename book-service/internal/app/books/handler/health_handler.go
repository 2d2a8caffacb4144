package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc проверяет доступность зависимости
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	serviceName string
	database    PingFunc
	cache       PingFunc
}

func NewHealthHandler(serviceName string, database, cache PingFunc) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		database:    database,
		cache:       cache,
	}
}

// Health - liveness, зависимости не проверяются
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.serviceName,
	})
}

// Readiness - сервис готов, если доступна БД; недоступный кеш только отражается в ответе
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}

	if err := h.database(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": checks})
		return
	}
	checks["database"] = "healthy"

	if h.cache != nil {
		if err := h.cache(ctx); err != nil {
			checks["redis"] = "degraded: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
