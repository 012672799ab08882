package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-progress-api/internal/app"
	"github.com/noah-isme/lms-progress-api/internal/config"
	"github.com/noah-isme/lms-progress-api/internal/handler"
	"github.com/noah-isme/lms-progress-api/internal/middleware"
	"github.com/noah-isme/lms-progress-api/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	container, err := app.Open(startupCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open backing services")
	}
	defer container.Close()

	if err := container.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	progressHandler := handler.NewProgressHandler(
		container.Progress,
		middleware.RateLimit("progress", cfg.ProgressRateLimit, cfg.ProgressRateWindow),
		logger,
	)
	quizHandler := handler.NewQuizHandler(container.Quizzes, logger)

	server := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(server, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.IsDevelopment(),
	})
	router.Register(server, cfg, router.Dependencies{
		ProgressHandler: progressHandler,
		QuizHandler:     quizHandler,
		HealthProbes:    container.HealthProbes(),
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("http server listening")
		if err := server.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(server, logger)
}

func waitForShutdown(server *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
