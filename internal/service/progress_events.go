package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Progress event types.
const (
	EventLessonCompleted = "lesson.completed"
	EventCourseCompleted = "course.completed"
)

// ProgressEvent is broadcast when a student completes a lesson or a course.
type ProgressEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	StudentID  uint      `json:"student_id"`
	CourseID   uint      `json:"course_id"`
	LessonID   *uint     `json:"lesson_id,omitempty"`
	Progress   int       `json:"progress"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher fans progress events out to the configured brokers.
type EventPublisher interface {
	Publish(ctx context.Context, event ProgressEvent) error
}

type brokerEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
}

// NewEventPublisher publishes on "<channel>:<type>" in Redis and
// "<channel with dots>.<type>" in NATS. Nil clients are skipped.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventPublisher {
	channelBase = strings.TrimSpace(channelBase)
	if channelBase == "" {
		channelBase = "lms:progress"
	}

	return &brokerEventPublisher{
		redis:        redisClient,
		redisChannel: channelBase,
		nats:         natsConn,
		natsSubject:  strings.ReplaceAll(channelBase, ":", "."),
		logger:       logger.With().Str("component", "progress_events").Logger(),
	}
}

func (p *brokerEventPublisher) Publish(ctx context.Context, event ProgressEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel+":"+event.Type, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.natsSubject+"."+event.Type, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		p.logger.Debug().Str("event_id", event.ID).Str("type", event.Type).Msg("progress event published")
	}

	return errors.Join(errs...)
}
