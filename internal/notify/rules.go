// Package notify matches store mutation events against per-user rules and
// fans dispatches out to alert channels, subject to throttling and quiet
// hours.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

// Condition is one predicate over a field of the event payload.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"` // eq, neq, gt, lt, gte, lte, contains
	Value    any    `json:"value"`
}

// Rule subscribes a user to one event category. A rule matches only when
// all of its conditions hold.
type Rule struct {
	Type            string            `json:"type"`
	Conditions      []Condition       `json:"conditions,omitempty"`
	Priority        releases.Priority `json:"priority,omitempty"`
	ThrottleSeconds int               `json:"throttle_seconds,omitempty"`
}

// QuietHours silences all notifications while the user's local hour falls
// in [Start, End), wrapping past midnight when Start > End.
type QuietHours struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Timezone string `json:"timezone"`
}

// Preferences is one user's notification setup. Read-only to this
// subsystem; maintained by an external preferences API.
type Preferences struct {
	UserID     string          `json:"user_id"`
	Rules      []Rule          `json:"rules"`
	Channels   map[string]bool `json:"channels"`
	QuietHours *QuietHours     `json:"quiet_hours,omitempty"`
}

// FirstRuleOfType returns the first rule of the given event type. Only that
// rule is evaluated per event, even if later rules of the same type would
// also match.
func FirstRuleOfType(rules []Rule, eventType string) (Rule, bool) {
	for _, r := range rules {
		if r.Type == eventType {
			return r, true
		}
	}
	return Rule{}, false
}

// Matches reports whether every condition of the rule holds against the
// event payload fields (conjunction).
func (r Rule) Matches(payload map[string]any) bool {
	for _, c := range r.Conditions {
		if !c.holds(payload[c.Field]) {
			return false
		}
	}
	return true
}

func (c Condition) holds(got any) bool {
	switch c.Operator {
	case "eq":
		return equalValues(got, c.Value)
	case "neq":
		return !equalValues(got, c.Value)
	case "gt", "lt", "gte", "lte":
		a, aok := numeric(got)
		b, bok := numeric(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case "gt":
			return a > b
		case "lt":
			return a < b
		case "gte":
			return a >= b
		default:
			return a <= b
		}
	case "contains":
		return strings.Contains(
			strings.ToLower(stringValue(got)),
			strings.ToLower(stringValue(c.Value)))
	default:
		return false
	}
}

func equalValues(a, b any) bool {
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return fa == fb
		}
	}
	return stringValue(a) == stringValue(b)
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// InQuietHours reports whether the event instant falls inside the user's
// quiet window. A zero-width window (start == end) never silences.
func InQuietHours(q *QuietHours, at time.Time) bool {
	if q == nil || q.Start == q.End {
		return false
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		loc = time.UTC
	}
	hour := at.In(loc).Hour()
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	// window wraps past midnight
	return hour >= q.Start || hour < q.End
}
