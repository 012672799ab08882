package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	APIBasePath        string
	CORSAllowOrigins   string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	JWTSecret          string
	StatsCacheTTL      time.Duration
	EventsChannel      string
	ProgressRateLimit  int
	ProgressRateWindow time.Duration
	QuizPassingScore   float64
}

// IsDevelopment reports whether the service runs in a local development environment.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development") || strings.EqualFold(c.AppEnv, "local")
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	return load(true)
}

// LoadWithoutSecret reads the same configuration as Load but does not require a
// JWT secret. Operator tooling that never verifies tokens uses it.
func LoadWithoutSecret() (Config, error) {
	return load(false)
}

func load(requireSecret bool) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LMS Progress API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("api.base_path", "/api/v1")
	v.SetDefault("http.cors_allow_origins", "*")
	v.SetDefault("progress.stats_cache_ttl", "1m")
	v.SetDefault("progress.events_channel", "lms:progress")
	v.SetDefault("progress.rate_limit_max", 60)
	v.SetDefault("progress.rate_limit_window", "1m")
	v.SetDefault("quiz.passing_score", 70)

	ttl, err := parseDuration(v.GetString("progress.stats_cache_ttl"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("progress.rate_limit_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		APIBasePath:        strings.TrimRight(v.GetString("api.base_path"), "/"),
		CORSAllowOrigins:   v.GetString("http.cors_allow_origins"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		StatsCacheTTL:      ttl,
		EventsChannel:      v.GetString("progress.events_channel"),
		ProgressRateLimit:  v.GetInt("progress.rate_limit_max"),
		ProgressRateWindow: window,
		QuizPassingScore:   v.GetFloat64("quiz.passing_score"),
	}

	if requireSecret && cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.APIBasePath == "" {
		cfg.APIBasePath = "/api/v1"
	}

	if cfg.ProgressRateLimit <= 0 {
		cfg.ProgressRateLimit = 60
	}

	if cfg.QuizPassingScore <= 0 || cfg.QuizPassingScore > 100 {
		cfg.QuizPassingScore = 70
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}

	return time.ParseDuration(raw)
}
