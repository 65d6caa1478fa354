package releases

import "strings"

type Status string

const (
	StatusUpcoming     Status = "UPCOMING"
	StatusLive         Status = "LIVE"
	StatusRaffleOpen   Status = "RAFFLE_OPEN"
	StatusRaffleClosed Status = "RAFFLE_CLOSED"
	StatusRestocked    Status = "RESTOCKED"
	StatusSoldOut      Status = "SOLD_OUT"
	StatusClosed       Status = "CLOSED"
	StatusUnknown      Status = "UNKNOWN"
)

// statusVocab maps the raw status strings adapters emit to canonical values.
var statusVocab = map[string]Status{
	"upcoming":      StatusUpcoming,
	"announced":     StatusUpcoming,
	"coming_soon":   StatusUpcoming,
	"live":          StatusLive,
	"available":     StatusLive,
	"in_stock":      StatusLive,
	"raffle":        StatusRaffleOpen,
	"raffle_open":   StatusRaffleOpen,
	"raffle_closed": StatusRaffleClosed,
	"restock":       StatusRestocked,
	"restocked":     StatusRestocked,
	"sold_out":      StatusSoldOut,
	"soldout":       StatusSoldOut,
	"oos":           StatusSoldOut,
	"closed":        StatusClosed,
	"ended":         StatusClosed,
}

// ParseStatus maps a raw adapter status to the canonical enum, defaulting to
// UNKNOWN for unrecognized input.
func ParseStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if s, ok := statusVocab[key]; ok {
		return s
	}
	return StatusUnknown
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var statusPriority = map[Status]Priority{
	StatusLive:         PriorityUrgent,
	StatusRestocked:    PriorityUrgent,
	StatusRaffleOpen:   PriorityHigh,
	StatusUpcoming:     PriorityMedium,
	StatusRaffleClosed: PriorityLow,
	StatusSoldOut:      PriorityLow,
	StatusClosed:       PriorityLow,
	StatusUnknown:      PriorityLow,
}

// DefaultPriority is the fallback notification priority for a status when a
// rule does not set its own.
func DefaultPriority(s Status) Priority {
	if p, ok := statusPriority[s]; ok {
		return p
	}
	return PriorityLow
}
