// Package health serves liveness and readiness endpoints for container orchestration.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger defines the interface for checking a dependency's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Checker reports service health. Readiness fails until SetReady(true) and
// whenever a registered dependency fails to ping.
type Checker struct {
	serviceName string
	version     string
	logger      *logrus.Logger
	deps        map[string]Pinger
	mu          sync.RWMutex
	ready       bool
}

// NewChecker creates a new health checker.
func NewChecker(serviceName, version string, logger *logrus.Logger) *Checker {
	return &Checker{
		serviceName: serviceName,
		version:     version,
		logger:      logger,
		deps:        make(map[string]Pinger),
	}
}

// AddDependency registers a dependency checked by /ready.
func (c *Checker) AddDependency(name string, p Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps[name] = p
}

// SetReady marks the service as ready to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady returns whether the service is ready.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Register mounts /health, /live and /ready on the router.
func (c *Checker) Register(r gin.IRoutes) {
	r.GET("/health", c.handleHealth)
	r.GET("/live", c.handleLive)
	r.GET("/ready", c.handleReady)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (c *Checker) handleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   c.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (c *Checker) handleLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: c.serviceName,
	})
}

// handleReady handles the /ready endpoint - checks every dependency.
func (c *Checker) handleReady(ctx *gin.Context) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !c.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	c.mu.RLock()
	deps := make(map[string]Pinger, len(c.deps))
	for name, p := range c.deps {
		deps[name] = p
	}
	c.mu.RUnlock()

	for name, p := range deps {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		err := p.Ping(pingCtx)
		cancel()

		if err != nil {
			allHealthy = false
			checks[name] = fmt.Sprintf("error: %v", err)
			c.logger.WithError(err).WithField("dependency", name).Warn("Readiness check failed")
		} else {
			checks[name] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  c.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	if allHealthy {
		response.Status = "ok"
		ctx.JSON(http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	ctx.JSON(http.StatusServiceUnavailable, response)
}
