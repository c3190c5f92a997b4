package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/internal/middleware"
	"github.com/w3cp/w3cp/internal/server"
	"github.com/w3cp/w3cp/internal/service"
)

const defaultHealthTimeout = 5 * time.Second

var errBackendNotVerified = errors.New("backend connection not verified")

// HealthHandler reports whether the charge point and its dependencies are
// reachable, for monitors and load balancers.
type HealthHandler struct {
	Handler
	chargePoint *service.ChargePointService
}

func NewHealthHandler(s *server.Server, chargePoint *service.ChargePointService) *HealthHandler {
	return &HealthHandler{
		Handler:     NewHandler(s),
		chargePoint: chargePoint,
	}
}

type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	CPID        string                 `json:"cp_id"`
	Checks      map[string]checkResult `json:"checks"`
}

// CheckHealth runs the configured checks of the dependencies that exist.
// A failing database or backend check answers 503; a failing redis check
// is reported but tolerated, since sessions then go straight to the
// database.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	cfg := h.server.Config

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Environment: cfg.Primary.Env,
		CPID:        cfg.ChargePoint.CPID,
		Checks:      make(map[string]checkResult),
	}

	obs := cfg.Observability
	if obs == nil {
		obs = config.DefaultObservabilityConfig()
	}
	checks := obs.HealthChecks
	timeout := checks.Timeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}

	run := func(name string, critical bool, fn func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		checkStart := time.Now()
		err := fn(ctx)
		took := time.Since(checkStart)

		if err == nil {
			response.Checks[name] = checkResult{Status: "healthy", ResponseTime: took.String()}
			logger.Debug().Str("check", name).Dur("response_time", took).Msg("health check passed")
			return
		}

		response.Checks[name] = checkResult{Status: "unhealthy", ResponseTime: took.String(), Error: err.Error()}
		if critical {
			response.Status = "unhealthy"
		}

		logger.Error().Err(err).Str("check", name).Dur("response_time", took).Msg("health check failed")
		h.server.LoggerService.RecordCustomEvent("HealthCheckError", map[string]any{
			"check_type":       name,
			"operation":        "health_check",
			"error_type":       name + "_unhealthy",
			"response_time_ms": took.Milliseconds(),
			"error_message":    err.Error(),
		})
	}

	if h.server.DB != nil && checks.Has("database") {
		run("database", true, h.server.DB.Ping)
	}

	if h.server.Redis != nil && checks.Has("redis") {
		run("redis", false, func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		})
	}

	if configured, verified := h.chargePoint.BackendConnection(); configured && checks.Has("backend") {
		run("backend", true, func(context.Context) error {
			if !verified {
				return errBackendNotVerified
			}
			return nil
		})
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
	}

	if err := c.JSON(status, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}
