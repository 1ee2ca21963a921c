package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/pkg/redis"
)

// EventGuard remembers events that were handled successfully so exact
// redeliveries skip the database. Nothing is written before the work
// commits; in-flight and failed deliveries always fall through to the
// payments fence.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

// NewEventGuard builds a guard whose keys live under scope. A zero ttl keeps
// markers forever.
func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &EventGuard{store: store, ttl: ttl, scope: scope}, nil
}

// Handled reports whether an earlier delivery of event completed.
func (g *EventGuard) Handled(ctx context.Context, event *stripe.Event) (bool, error) {
	key, err := g.key(event)
	if err != nil {
		return false, err
	}
	if _, err := g.store.Get(ctx, key); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("read event %s: %w", event.ID, err)
	}
	return true, nil
}

// MarkHandled records event as done. Call it only after processing succeeded.
func (g *EventGuard) MarkHandled(ctx context.Context, event *stripe.Event) error {
	key, err := g.key(event)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, key, string(event.Type), g.ttl); err != nil {
		return fmt.Errorf("mark event %s: %w", event.ID, err)
	}
	return nil
}

// Live and test events share id space only by accident; keep them apart.
func (g *EventGuard) key(event *stripe.Event) (string, error) {
	if event == nil || event.ID == "" {
		return "", errors.New("event id is required")
	}
	mode := "test"
	if event.Livemode {
		mode = "live"
	}
	return g.store.IdempotencyKey(g.scope+":"+mode, event.ID), nil
}
