package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/sneakwatch/go-release-pipeline/internal/kafka"
	"github.com/sneakwatch/go-release-pipeline/internal/obs"
	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

// PrefsProvider yields the current preferences snapshot; PrefsCache
// satisfies it.
type PrefsProvider interface {
	Snapshot() []Preferences
}

// Engine evaluates mutation events against every subscribed user's rules
// and fans out dispatches to the enabled channels.
type Engine struct {
	Prefs    PrefsProvider
	Throttle Throttle
	Channels []Channel

	// Dedup enables at-most-once processing per event ID when set.
	Dedup Deduper
}

// HandleMessage adapts the engine to the Kafka consumer handler signature.
func (e *Engine) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env releases.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	return e.HandleEvent(ctx, env)
}

// HandleEvent runs the per-event pipeline for every subscribed user:
// quiet hours, first rule of matching type, condition conjunction, throttle
// window, then channel fan-out.
func (e *Engine) HandleEvent(ctx context.Context, env releases.Envelope) error {
	if e.Dedup != nil {
		if seen, _ := e.Dedup.Seen(ctx, env.EventID); seen {
			return nil
		}
	}

	payload, err := kafkax.UnwrapPayload[releases.MutationPayload](env.Payload)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(env.Payload, &fields); err != nil {
		return err
	}

	for _, prefs := range e.Prefs.Snapshot() {
		e.evaluate(ctx, env, payload, fields, prefs)
	}

	// marked only once evaluation finished, so a failure above leaves the
	// broker redelivery usable
	if e.Dedup != nil {
		_ = e.Dedup.Mark(ctx, env.EventID)
	}
	return nil
}

func (e *Engine) evaluate(ctx context.Context, env releases.Envelope, payload releases.MutationPayload, fields map[string]any, prefs Preferences) {
	if InQuietHours(prefs.QuietHours, env.OccurredAt) {
		return
	}
	rule, ok := FirstRuleOfType(prefs.Rules, env.EventType)
	if !ok || !rule.Matches(fields) {
		return
	}
	if rule.ThrottleSeconds > 0 && e.Throttle != nil {
		window := time.Duration(rule.ThrottleSeconds) * time.Second
		allowed, err := e.Throttle.Allow(ctx, prefs.UserID, rule.Type, window)
		if err != nil {
			obs.Logger.Error("throttle check failed", "user", prefs.UserID, "err", err)
			return
		}
		if !allowed {
			return
		}
	}
	e.dispatch(ctx, prefs, buildNotification(env, payload, rule))
}

// dispatch fans out to every enabled channel independently with an
// all-settle join: one slow or failing channel neither blocks nor fails the
// others.
func (e *Engine) dispatch(ctx context.Context, prefs Preferences, n Notification) {
	var wg sync.WaitGroup
	for _, ch := range e.Channels {
		if !prefs.Channels[ch.Name()] {
			continue
		}
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, prefs.UserID, n); err != nil {
				obs.Logger.Error("channel delivery failed",
					"channel", ch.Name(), "user", prefs.UserID, "err", err)
			}
		}(ch)
	}
	wg.Wait()
}

func buildNotification(env releases.Envelope, p releases.MutationPayload, rule Rule) Notification {
	priority := rule.Priority
	if priority == "" {
		priority = releases.DefaultPriority(p.Status)
	}
	return Notification{
		Type:      env.EventType,
		Priority:  priority,
		Title:     fmt.Sprintf("%s %s (%s)", p.Brand, p.Name, p.RetailerID),
		Message:   describe(env.EventType, p),
		Data:      map[string]any{"release_id": p.ReleaseID, "sku": p.SKU, "retailer_id": p.RetailerID},
		Timestamp: env.OccurredAt,
	}
}

func describe(eventType string, p releases.MutationPayload) string {
	switch eventType {
	case releases.EventNewRelease:
		return fmt.Sprintf("New release tracked with status %s", p.Status)
	case releases.EventStatusChange:
		return fmt.Sprintf("Status changed %s -> %s", p.OldStatus, p.Status)
	case releases.EventPriceChange:
		return fmt.Sprintf("Price changed to %s", priceString(p.Price))
	case releases.EventReleaseDateChange:
		return "Release date changed"
	case releases.EventStockChange:
		return fmt.Sprintf("Inventory changed across %d sizes", len(p.Stock))
	default:
		return "Release updated"
	}
}

func priceString(p *float64) string {
	if p == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.2f", *p)
}
