// Package notifications publishes moderation events to Redis for out-of-process consumers
// such as the email digest worker.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel every moderation event goes to.
const Channel = "moderation:events"

// Event types.
const (
	EventReportCreated = "report.created"
	EventUserBanned    = "user.banned"
	EventBanLifted     = "user.ban_lifted"
)

const publishTimeout = 3 * time.Second

// Event is the JSON payload published on Channel.
type Event struct {
	Type       string         `json:"type"`
	ActorID    uint           `json:"actor_id"`
	TargetType string         `json:"target_type"`
	TargetID   uint           `json:"target_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notifier publishes events into Redis. A nil client turns every call into a no-op.
type Notifier struct {
	rdb  *redis.Client
	gate func(actorID uint) bool
	wg   sync.WaitGroup
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// WithActorGate restricts Notify to events whose actor passes gate.
func (n *Notifier) WithActorGate(gate func(actorID uint) bool) *Notifier {
	n.gate = gate
	return n
}

// Publish sends ev and waits for Redis to accept it.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, Channel, payload).Err()
}

// Notify publishes ev in the background. The caller's cancellation does not abort it and
// failures are only logged.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if n == nil || n.rdb == nil {
		return
	}
	if n.gate != nil && !n.gate(ev.ActorID) {
		observability.NotificationsPublished.WithLabelValues(ev.Type, "skipped").Inc()
		return
	}
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				middleware.Logger.ErrorContext(ctx, "panic publishing moderation event",
					"event", ev.Type, "panic", r, "stack", string(debug.Stack()))
			}
		}()

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := n.Publish(pubCtx, ev); err != nil {
			observability.NotificationsPublished.WithLabelValues(ev.Type, "error").Inc()
			middleware.Logger.WarnContext(ctx, "failed to publish moderation event",
				"event", ev.Type, "target_id", ev.TargetID, "error", err)
			return
		}
		observability.NotificationsPublished.WithLabelValues(ev.Type, "ok").Inc()
	}()
}

// Wait blocks until every background publish has finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
