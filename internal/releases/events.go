package releases

import (
	"encoding/json"
	"time"
)

const (
	EventNewRelease        = "NEW_RELEASE"
	EventStatusChange      = "STATUS_CHANGE"
	EventPriceChange       = "PRICE_CHANGE"
	EventReleaseDateChange = "RELEASE_DATE_CHANGE"
	EventStockChange       = "STOCK_CHANGE"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "release-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // release_id
	Payload       json.RawMessage `json:"payload"`
}

// MutationPayload carries the post-mutation state of a release plus the prior
// values of the changed comparison fields. The notification rule engine
// evaluates rule conditions against these JSON field names.
type MutationPayload struct {
	ReleaseID      string     `json:"release_id"`
	SKU            string     `json:"sku"`
	RetailerID     string     `json:"retailer_id"`
	Name           string     `json:"name"`
	Brand          string     `json:"brand"`
	Status         Status     `json:"status"`
	Price          *float64   `json:"price"`
	ReleaseDate    *time.Time `json:"release_date"`
	OldStatus      Status     `json:"old_status,omitempty"`
	OldPrice       *float64   `json:"old_price,omitempty"`
	OldReleaseDate *time.Time `json:"old_release_date,omitempty"`
	Stock          StockMap   `json:"stock,omitempty"`
}
