package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependency is a named store checked by the readiness probe
type Dependency struct {
	Name   string
	Pinger Pinger
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	logger       *slog.Logger
	dependencies []Dependency
}

func NewHealthHandler(logger *slog.Logger, dependencies ...Dependency) *HealthHandler {
	return &HealthHandler{
		logger:       logger,
		dependencies: dependencies,
	}
}

// Live handles GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

// Ready handles GET /ready. Every dependency is pinged; one failure makes the
// whole probe unavailable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(gin.H, len(h.dependencies))
	for _, dep := range h.dependencies {
		if err := dep.Pinger.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", "dependency", dep.Name, "error", err)
			checks[dep.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[dep.Name] = "ok"
	}

	result := "ready"
	if status != http.StatusOK {
		result = "not_ready"
	}
	c.JSON(status, gin.H{"status": result, "checks": checks})
}
