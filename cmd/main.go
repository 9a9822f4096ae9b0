package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tuncerburak97/munzi/internal/config"
	"github.com/tuncerburak97/munzi/internal/handler"
	"github.com/tuncerburak97/munzi/internal/logger"
	"github.com/tuncerburak97/munzi/internal/metrics"
	"github.com/tuncerburak97/munzi/internal/middleware"
	"github.com/tuncerburak97/munzi/internal/pipeline"
	"github.com/tuncerburak97/munzi/internal/policy"
	"github.com/tuncerburak97/munzi/internal/ratelimit"
	"github.com/tuncerburak97/munzi/internal/repository"
	"github.com/tuncerburak97/munzi/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "munzi",
		Short:         "Hello service with request/response traffic logging",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("munzi stopped")
	}
}

func run(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	rootLogger := logger.Init(cfg.Log)
	ctx = rootLogger.WithContext(ctx)

	pol, err := policy.New(cfg.APILog)
	if err != nil {
		return fmt.Errorf("invalid api_log configuration: %w", err)
	}

	var metricsCollector *metrics.MetricsCollector
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.NewMetricsCollector(cfg.Metrics.Namespace, cfg.APILog.ServerName)
	}

	traffic, err := pipeline.New(pol,
		pipeline.WithLogger(rootLogger),
		pipeline.WithMetrics(metricsCollector),
		pipeline.WithProfile(cfg.Profile),
	)
	if err != nil {
		return err
	}

	// Initialize repository
	repo, err := repository.NewRepository(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("initialize repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close repository")
		}
	}()

	// Initialize rate limiter if enabled
	var rateLimiter *ratelimit.Service
	if cfg.RateLimit.Enabled {
		store, err := ratelimit.NewStore(ctx, cfg.RateLimit)
		if err != nil {
			return fmt.Errorf("create rate limit store: %w", err)
		}
		rateLimiter = ratelimit.NewService(cfg.RateLimit, store, metricsCollector)
		defer func() {
			if err := rateLimiter.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close rate limiter")
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.APILog.ServerName,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          handler.ErrorHandler,
		DisableStartupMessage: true,
	})

	// Registered ahead of the traffic middleware so scrapes are not logged
	if metricsCollector != nil {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(metricsCollector.Handler()))
		app.Get(cfg.Metrics.Path+"/json", func(c *fiber.Ctx) error {
			body, err := metricsCollector.GetMetricsJSON()
			if err != nil {
				return err
			}
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(body)
		})
	}

	app.Use(middleware.Fiber(traffic, middleware.WithSecurityDetector(authorized)))
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	if rateLimiter != nil {
		app.Use(ratelimit.Middleware(rateLimiter))
	}

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("UP") })
	handler.NewHelloHandler(service.NewNameService(repo)).Register(app)

	// Start server
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("addr", addr).Str("profile", cfg.Profile).Msg("Starting server")
		errCh <- app.Listen(addr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}
	return nil
}

// authorized marks requests carrying credentials as security wrapped.
func authorized(_ context.Context, header func(string) string) bool {
	return header(fiber.HeaderAuthorization) != ""
}
