package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

func TestConditionOperators(t *testing.T) {
	payload := map[string]any{
		"brand":       "Nike",
		"retailer_id": "footlocker",
		"price":       130.0,
		"status":      "LIVE",
	}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq match", Condition{"status", "eq", "LIVE"}, true},
		{"eq miss", Condition{"status", "eq", "SOLD_OUT"}, false},
		{"neq", Condition{"brand", "neq", "Adidas"}, true},
		{"gt", Condition{"price", "gt", 100}, true},
		{"gt miss", Condition{"price", "gt", 200}, false},
		{"lt", Condition{"price", "lt", 150.0}, true},
		{"gte boundary", Condition{"price", "gte", 130}, true},
		{"lte boundary", Condition{"price", "lte", 130}, true},
		{"contains", Condition{"retailer_id", "contains", "foot"}, true},
		{"contains case-insensitive", Condition{"brand", "contains", "nike"}, true},
		{"contains miss", Condition{"brand", "contains", "adidas"}, false},
		{"numeric string value", Condition{"price", "gt", "100"}, true},
		{"missing field", Condition{"colorway", "eq", "Bred"}, false},
		{"unknown operator", Condition{"brand", "matches", "Nike"}, false},
		{"gt non-numeric", Condition{"brand", "gt", 10}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := Rule{Type: "STATUS_CHANGE", Conditions: []Condition{tc.cond}}
			require.Equal(t, tc.want, rule.Matches(payload))
		})
	}
}

func TestRuleConditionsAreConjunctive(t *testing.T) {
	payload := map[string]any{"brand": "Nike", "price": 130.0}
	rule := Rule{Type: "STATUS_CHANGE", Conditions: []Condition{
		{"brand", "eq", "Nike"},
		{"price", "lt", 100},
	}}
	require.False(t, rule.Matches(payload))

	rule.Conditions[1] = Condition{"price", "lt", 200}
	require.True(t, rule.Matches(payload))
}

func TestFirstRuleOfType(t *testing.T) {
	rules := []Rule{
		{Type: "PRICE_CHANGE"},
		{Type: "STATUS_CHANGE", Conditions: []Condition{{"brand", "eq", "Nike"}}},
		{Type: "STATUS_CHANGE"}, // never reached: first-match policy
	}
	r, ok := FirstRuleOfType(rules, "STATUS_CHANGE")
	require.True(t, ok)
	require.Len(t, r.Conditions, 1)

	_, ok = FirstRuleOfType(rules, "STOCK_CHANGE")
	require.False(t, ok)
}

func TestQuietHoursWrapPastMidnight(t *testing.T) {
	q := &QuietHours{Start: 22, End: 7, Timezone: "UTC"}

	require.True(t, InQuietHours(q, time.Date(2026, 2, 1, 23, 0, 0, 0, time.UTC)))
	require.True(t, InQuietHours(q, time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)))
	require.True(t, InQuietHours(q, time.Date(2026, 2, 1, 22, 0, 0, 0, time.UTC))) // start inclusive
	require.False(t, InQuietHours(q, time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC))) // end exclusive
	require.False(t, InQuietHours(q, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)))
}

func TestQuietHoursSameDayWindow(t *testing.T) {
	q := &QuietHours{Start: 9, End: 17, Timezone: "UTC"}
	require.True(t, InQuietHours(q, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)))
	require.False(t, InQuietHours(q, time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)))
}

func TestQuietHoursTimezone(t *testing.T) {
	// 23:00 in Tokyo is 14:00 UTC
	q := &QuietHours{Start: 22, End: 7, Timezone: "Asia/Tokyo"}
	require.True(t, InQuietHours(q, time.Date(2026, 2, 1, 14, 0, 0, 0, time.UTC)))
	require.False(t, InQuietHours(q, time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)))
}

func TestQuietHoursDisabled(t *testing.T) {
	require.False(t, InQuietHours(nil, time.Now()))
	require.False(t, InQuietHours(&QuietHours{Start: 5, End: 5, Timezone: "UTC"},
		time.Date(2026, 2, 1, 5, 0, 0, 0, time.UTC)))
}

func TestRulePriorityFallback(t *testing.T) {
	n := buildNotification(
		releases.Envelope{EventType: releases.EventStatusChange},
		releases.MutationPayload{Status: releases.StatusLive},
		Rule{Type: releases.EventStatusChange},
	)
	require.Equal(t, releases.PriorityUrgent, n.Priority)

	n = buildNotification(
		releases.Envelope{EventType: releases.EventStatusChange},
		releases.MutationPayload{Status: releases.StatusLive},
		Rule{Type: releases.EventStatusChange, Priority: releases.PriorityLow},
	)
	require.Equal(t, releases.PriorityLow, n.Priority)
}
