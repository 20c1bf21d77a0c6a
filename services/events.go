package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"bounty-ledger/models"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// recordEvent appends ev to the outbox on tx so it commits or rolls back with
// the state change it describes.
func (s *BountyService) recordEvent(tx *gorm.DB, ev models.BountyEvent) error {
	ev.ID = 0
	ev.Published = false
	ev.CreatedAt = s.Clock.Now()
	return tx.Create(&ev).Error
}

// EventPublisher ships one outbox row to a downstream consumer
type EventPublisher interface {
	Publish(ctx context.Context, ev models.BountyEvent) error
}

// RedisStreamPublisher appends events to a Redis stream with XADD
type RedisStreamPublisher struct {
	Client *redis.Client
	Stream string
}

func NewRedisStreamPublisher(client *redis.Client, stream string) *RedisStreamPublisher {
	if stream == "" {
		stream = "bounty.events"
	}
	return &RedisStreamPublisher{Client: client, Stream: stream}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, ev models.BountyEvent) error {
	_, err := p.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream,
		Values: eventPayload(ev),
	}).Result()
	return err
}

func eventPayload(ev models.BountyEvent) map[string]interface{} {
	payload := map[string]interface{}{
		"event_id":   strconv.FormatUint(uint64(ev.ID), 10),
		"kind":       string(ev.Kind),
		"bounty_id":  strconv.FormatUint(uint64(ev.BountyID), 10),
		"created_at": ev.CreatedAt.UTC().Format(time.RFC3339),
	}
	if ev.UserID != "" {
		payload["user_id"] = ev.UserID
	}
	if ev.RequestIndex != 0 {
		payload["request_index"] = strconv.FormatUint(uint64(ev.RequestIndex), 10)
	}
	if ev.Amount != 0 {
		payload["amount"] = strconv.FormatInt(ev.Amount, 10)
	}
	if ev.RequestID != "" {
		payload["request_id"] = ev.RequestID
	}
	return payload
}

// LogPublisher is used when no Redis is configured
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev models.BountyEvent) error {
	log.Printf("📣 [EVENTS] %s bounty=%d user=%s index=%d amount=%d",
		ev.Kind, ev.BountyID, ev.UserID, ev.RequestIndex, ev.Amount)
	return nil
}

// EventRelay drains unpublished outbox rows in id order. A row is marked
// published only after the publisher accepts it, so delivery is at-least-once.
type EventRelay struct {
	DB        *gorm.DB
	Publisher EventPublisher
	Clock     clockwork.Clock
	BatchSize int
}

func NewEventRelay(db *gorm.DB, publisher EventPublisher, clock clockwork.Clock) *EventRelay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventRelay{DB: db, Publisher: publisher, Clock: clock, BatchSize: 100}
}

// RelayPending publishes one batch and returns how many rows went out.
// It stops at the first publish failure to keep ordering.
func (r *EventRelay) RelayPending(ctx context.Context) (int, error) {
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	var events []models.BountyEvent
	if err := r.DB.WithContext(ctx).
		Where("published = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, ev := range events {
		if err := r.Publisher.Publish(ctx, ev); err != nil {
			return sent, fmt.Errorf("publish event %d: %w", ev.ID, err)
		}
		now := r.Clock.Now()
		if err := r.DB.WithContext(ctx).Model(&models.BountyEvent{}).
			Where("id = ?", ev.ID).
			Updates(map[string]interface{}{"published": true, "published_at": now}).Error; err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
