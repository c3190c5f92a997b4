// Package server defines the core Server struct that composes the charge
// point's main dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - the charge point runtime (ports, simulator, backend connection)
//   - optional database pool
//   - optional redis client and background job workers (asynq)
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/internal/chargepoint"
	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/internal/database"
	"github.com/w3cp/w3cp/internal/lib/job"
	loggerPkg "github.com/w3cp/w3cp/internal/logger"
)

// Server is the application container that holds shared resources. It is
// not the HTTP server itself.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	// Runtime is the charge point itself.
	Runtime *chargepoint.Runtime

	// DB is nil when no database is configured.
	DB *database.Database

	// Redis and Job are nil when no redis is configured.
	Redis *redis.Client
	Job   *job.JobService

	httpServer *http.Server
}

// New constructs a Server and initializes its dependencies. Nothing is
// started until Start.
//
// A configured database must be reachable. Redis connection failures are
// logged and startup continues, since asynq reconnects on its own.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	server := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
	}

	if cfg.Database != nil {
		db, err := database.New(cfg, logger, loggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		server.DB = db
	} else {
		logger.Info().Msg("no database configured, session archive disabled")
	}

	if cfg.Redis != nil {
		server.Redis = newRedisClient(ctx, cfg.Redis, logger, loggerService)
		server.Job = job.NewJobService(logger, cfg.Redis)
	}

	runtime, err := chargepoint.NewRuntime(ctx, cfg, logger)
	if err != nil {
		server.closeStores()
		return nil, fmt.Errorf("failed to initialize charge point runtime: %w", err)
	}
	server.Runtime = runtime

	return server, nil
}

func newRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	// Connections are lazy; Ping below is the first one.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if loggerService.GetApplication() != nil {
		redisClient.AddHook(nrredis.NewHook(redisClient.Options()))
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis, continuing without Redis")
	}
	return redisClient
}

// SetupHTTPServer configures the internal net/http server around handler.
// Config timeouts are whole seconds.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start starts the job workers and the charge point runtime, then serves
// HTTP until the server is shut down. It requires SetupHTTPServer.
func (s *Server) Start(ctx context.Context) error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	if s.Job != nil {
		if err := s.Job.Start(); err != nil {
			return err
		}
	}

	if err := s.Runtime.Start(ctx); err != nil {
		return fmt.Errorf("failed to start charge point runtime: %w", err)
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server, the runtime and the job workers, then
// closes the stores. The first error is returned after everything had a
// chance to stop.
func (s *Server) Shutdown(ctx context.Context) error {
	var errList []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errList = append(errList, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.Runtime != nil {
		if err := s.Runtime.Stop(ctx); err != nil {
			errList = append(errList, err)
		}
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if err := s.closeStores(); err != nil {
		errList = append(errList, err)
	}

	return errors.Join(errList...)
}

func (s *Server) closeStores() error {
	var errList []error

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	return errors.Join(errList...)
}
