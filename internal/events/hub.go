// Package events fans registration changes out to live-feed subscribers.
// Events flow to local websocket clients directly and across instances
// via a redis pub/sub channel. Only events travel this path; participant
// counts are always recomputed from storage by readers.
package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	redisinfra "github.com/mergington/activities/internal/infrastructure/redis"
	"github.com/mergington/activities/internal/reliability/circuitbreaker"
	"github.com/mergington/activities/internal/reliability/retry"
)

// Channel is the redis pub/sub channel roster events travel on
const Channel = "roster:events"

// Event types
const (
	TypeSignup     = "signup"
	TypeUnregister = "unregister"
)

// RosterEvent describes one registration change
type RosterEvent struct {
	Type                string    `json:"type"`
	ActivityID          int64     `json:"activity_id"`
	ActivityName        string    `json:"activity_name"`
	Email               string    `json:"email"`
	CurrentParticipants int       `json:"current_participants"`
	MaxParticipants     int       `json:"max_participants"`
	At                  time.Time `json:"at"`
	Origin              string    `json:"origin,omitempty"`
}

// Hub delivers roster events to subscribers. A nil redis client keeps the
// hub fully local, which is how tests run it.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan RosterEvent
	nextSub int

	redis    *redisinfra.Client
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
	logger   *slog.Logger
	origin   string
}

// NewHub creates a hub. redisClient may be nil for single-instance or
// test deployments.
func NewHub(redisClient *redisinfra.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:     map[int]chan RosterEvent{},
		redis:    redisClient,
		breaker:  circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
		origin:   newOrigin(),
	}
}

// Subscribe registers a local subscriber. The returned cancel func must be
// called when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan RosterEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan RosterEvent, 16)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers an event to local subscribers and, when redis is
// configured, to the shared channel so other instances see it too.
// Publishing never fails the caller's request: broker errors are logged
// and absorbed by the circuit breaker.
func (h *Hub) Publish(ctx context.Context, ev RosterEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	ev.Origin = h.origin

	h.fanout(ev)

	if h.redis == nil {
		return
	}
	if !h.breaker.AllowRequest() {
		h.logger.Warn("roster event dropped: redis circuit open",
			slog.String("type", ev.Type),
			slog.Int64("activity_id", ev.ActivityID),
		)
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal roster event", slog.String("error", err.Error()))
		return
	}

	_, err = retry.Do(ctx, h.retryCfg, h.logger, "redis publish", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.redis.Publish(ctx, Channel, payload)
	})
	if err != nil {
		h.breaker.RecordFailure()
		h.logger.Error("failed to publish roster event",
			slog.String("error", err.Error()),
		)
		return
	}
	h.breaker.RecordSuccess()
}

// Run consumes roster events published by other instances and fans them
// out to local subscribers. Blocks until ctx is cancelled. No-op without
// a redis client.
func (h *Hub) Run(ctx context.Context) {
	if h.redis == nil {
		return
	}

	ps := h.redis.Subscribe(ctx, Channel)
	defer ps.Close()

	h.logger.Info("roster event relay started", slog.String("channel", Channel))

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("roster event relay stopped")
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev RosterEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Warn("dropping malformed roster event", slog.String("error", err.Error()))
				continue
			}
			if ev.Origin == h.origin {
				continue // already delivered locally at publish time
			}
			h.fanout(ev)
		}
	}
}

// fanout delivers to local subscribers without blocking. A slow consumer
// loses events rather than stalling the hub.
func (h *Hub) fanout(ev RosterEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func newOrigin() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return time.Now().Format("150405.000000000")
}
