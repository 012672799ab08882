package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/config"
	"github.com/noah-isme/lms-progress-api/internal/database"
	"github.com/noah-isme/lms-progress-api/internal/handler"
	"github.com/noah-isme/lms-progress-api/internal/repository"
	"github.com/noah-isme/lms-progress-api/internal/service"
	"github.com/noah-isme/lms-progress-api/internal/utils"
)

// Container holds the connections and services shared by the API server and
// the operator CLI.
type Container struct {
	Config   config.Config
	Logger   zerolog.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	NATS     *nats.Conn
	Validate *validator.Validate
	Rollups  service.RollupService
	Progress service.ProgressService
	Quizzes  service.QuizService
}

// NewLogger builds the process root logger.
func NewLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
}

// Open dials postgres, redis and nats according to cfg and wires the services.
// Redis and NATS are optional and stay nil when their URL is empty.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Container, error) {
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		closeDB(db)
		return nil, err
	}

	if redisClient == nil {
		logger.Warn().Msg("redis url not set; stats cache and redis events disabled")
	}
	if natsConn == nil {
		logger.Warn().Msg("nats url not set; broker events disabled")
	}

	return Wire(cfg, logger, db, redisClient, natsConn), nil
}

// Wire builds repositories and services on top of already opened connections.
func Wire(cfg config.Config, logger zerolog.Logger, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) *Container {
	validate := utils.NewValidator()

	catalogRepo := repository.NewCatalogRepository(db)
	progressRepo := repository.NewLessonProgressRepository(db)
	quizRepo := repository.NewQuizRepository(db)

	rollups := service.NewRollupService(catalogRepo, progressRepo, repository.NewRollupRepository(db), repository.NewEnrollmentRepository(db), logger)
	quizzes := service.NewQuizService(catalogRepo, quizRepo, validate, cfg.APIBasePath, cfg.QuizPassingScore, logger)
	stats := service.NewStatsCache(redisClient, cfg.StatsCacheTTL, logger)
	events := service.NewEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    redisClient,
		NATS:     natsConn,
		Validate: validate,
		Rollups:  rollups,
		Progress: service.NewProgressService(catalogRepo, progressRepo, rollups, quizzes, stats, events, validate, logger),
		Quizzes:  quizzes,
	}
}

// Migrate applies the schema owned by the service.
func (c *Container) Migrate() error {
	return database.Migrate(c.DB)
}

// HealthProbes reports one probe per configured backing service.
func (c *Container) HealthProbes() map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	if c.Redis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}
	}

	if c.NATS != nil {
		probes["nats"] = func(context.Context) error {
			if !c.NATS.IsConnected() {
				return fmt.Errorf("nats status %s", c.NATS.Status())
			}
			return nil
		}
	}

	return probes
}

// Close releases every connection held by the container.
func (c *Container) Close() {
	if c.NATS != nil {
		if err := c.NATS.Drain(); err != nil {
			c.Logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	closeDB(c.DB)
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
