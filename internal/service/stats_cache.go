package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-progress-api/internal/dto"
	"github.com/noah-isme/lms-progress-api/internal/repository"
)

const statsCachePrefix = "progress:stats"

// StatsCache stores read-side progress stats. Keys embed a per-scope version
// so a write only has to bump the version to invalidate every cached filter.
type StatsCache interface {
	Get(ctx context.Context, filter repository.ProgressFilter) (dto.ProgressStats, bool)
	Set(ctx context.Context, filter repository.ProgressFilter, stats dto.ProgressStats)
	Invalidate(ctx context.Context, studentID uint)
}

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStatsCache builds a Redis-backed stats cache. A nil client disables caching.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &redisStatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "stats_cache").Logger(),
	}
}

func (c *redisStatsCache) Get(ctx context.Context, filter repository.ProgressFilter) (dto.ProgressStats, bool) {
	if c.client == nil {
		return dto.ProgressStats{}, false
	}

	key, err := c.key(ctx, filter)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to resolve stats cache key")
		return dto.ProgressStats{}, false
	}

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read stats cache")
		}
		return dto.ProgressStats{}, false
	}

	var stats dto.ProgressStats
	if err := json.Unmarshal([]byte(cached), &stats); err != nil {
		return dto.ProgressStats{}, false
	}

	return stats, true
}

func (c *redisStatsCache) Set(ctx context.Context, filter repository.ProgressFilter, stats dto.ProgressStats) {
	if c.client == nil {
		return
	}

	key, err := c.key(ctx, filter)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to resolve stats cache key")
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store stats cache")
	}
}

// Invalidate bumps the student's version and the unscoped version, which
// staff listings without a user filter read from.
func (c *redisStatsCache) Invalidate(ctx context.Context, studentID uint) {
	if c.client == nil {
		return
	}

	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, versionKey(studentScope(&studentID)))
	pipe.Incr(ctx, versionKey(studentScope(nil)))
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate stats cache")
	}
}

func (c *redisStatsCache) key(ctx context.Context, filter repository.ProgressFilter) (string, error) {
	scope := studentScope(filter.StudentID)

	version, err := c.client.Get(ctx, versionKey(scope)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}

	return fmt.Sprintf("%s:%s:v%d:%s", statsCachePrefix, scope, version, filterSignature(filter)), nil
}

func versionKey(scope string) string {
	return fmt.Sprintf("%s:version:%s", statsCachePrefix, scope)
}

func studentScope(studentID *uint) string {
	if studentID == nil {
		return "all"
	}
	return "student:" + strconv.FormatUint(uint64(*studentID), 10)
}

func filterSignature(filter repository.ProgressFilter) string {
	parts := []string{
		"course=" + optionalUint(filter.CourseID),
		"lesson=" + optionalUint(filter.LessonID),
		"completed=" + optionalBool(filter.IsCompleted),
	}
	return strings.Join(parts, "|")
}

func optionalUint(value *uint) string {
	if value == nil {
		return "*"
	}
	return strconv.FormatUint(uint64(*value), 10)
}

func optionalBool(value *bool) string {
	if value == nil {
		return "*"
	}
	return strconv.FormatBool(*value)
}
