package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

// UserUpserter is the auth bridge the consumer feeds.
type UserUpserter interface {
	Upsert(ctx context.Context, in domain.UpsertUserInput) (*domain.User, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryBackoff    = 500 * time.Millisecond
	maxRetryBackoff = 30 * time.Second
)

// IdentityConsumer syncs users from identity-provider sign-in events.
// Offsets are committed once a message is handled or found unusable. A
// message that cannot be stored is retried until it succeeds or the
// consumer stops, so later offsets are never committed past it.
type IdentityConsumer struct {
	reader  messageReader
	users   UserUpserter
	logger  *zap.Logger
	backoff time.Duration
}

func NewIdentityConsumer(brokers []string, topic, groupID string, users UserUpserter, logger *zap.Logger) *IdentityConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		SessionTimeout: 6 * time.Second,
	})

	return &IdentityConsumer{
		reader:  reader,
		users:   users,
		logger:  logger,
		backoff: retryBackoff,
	}
}

// Run consumes until ctx is cancelled, then closes the reader.
func (c *IdentityConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("Identity consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Identity consumer stopped")
				return nil
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			c.logger.Error("Error reading message", zap.Error(err))
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			// Only cancellation ends handle early; the message stays
			// uncommitted and is redelivered after a restart.
			c.logger.Info("Identity consumer stopped",
				zap.Int64("pending_offset", msg.Offset),
				zap.Error(err))
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("Error committing message", zap.Error(err))
		}
	}
}

// handle returns only once the event is stored or skipped, or with the
// context error when the consumer is stopping. Malformed and invalid
// events are logged and skipped.
func (c *IdentityConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var event SignInEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("Skipping malformed identity event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return nil
	}
	if event.Type != UserSignedIn {
		c.logger.Debug("Skipping identity event", zap.String("type", event.Type))
		return nil
	}

	delay := c.backoff
	for attempt := 1; ; attempt++ {
		user, err := c.users.Upsert(ctx, event.UpsertInput())
		if err == nil {
			c.logger.Info("User synced from sign-in",
				zap.String("event_id", event.EventID),
				zap.String("user_id", user.ID))
			return nil
		}
		if domain.IsValidation(err) {
			c.logger.Warn("Skipping invalid sign-in event",
				zap.String("event_id", event.EventID),
				zap.Error(err))
			return nil
		}

		c.logger.Error("Failed to sync user, retrying",
			zap.String("event_id", event.EventID),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}
}
