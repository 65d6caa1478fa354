package releases

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SizeStock is the inventory reading for one size or SKU variant.
type SizeStock struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// StockMap maps size/variant identifiers to their inventory reading.
type StockMap map[string]SizeStock

// Release is the canonical availability record for one product at one
// retailer. At most one Release exists per (retailer_id, sku).
type Release struct {
	ID             string     `json:"id"`
	SKU            string     `json:"sku"`
	RetailerID     string     `json:"retailer_id"`
	Name           string     `json:"name"`
	Brand          string     `json:"brand"`
	Colorway       string     `json:"colorway,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	URL            string     `json:"url,omitempty"`
	Price          *float64   `json:"price"`
	Status         Status     `json:"status"`
	ReleaseDate    *time.Time `json:"release_date"`
	LiveStock      StockMap   `json:"live_stock,omitempty"`
	StockUpdatedAt *time.Time `json:"stock_updated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StockSnapshot is an immutable inventory capture for a release, stored only
// when it differs from the previous capture.
type StockSnapshot struct {
	ID        int64     `json:"id"`
	ReleaseID string    `json:"release_id"`
	Stock     StockMap  `json:"stock"`
	TakenAt   time.Time `json:"taken_at"`
}

var idNamespace = uuid.MustParse("7f1c2a9e-6b3d-4c58-9f0a-2d84c1e5b7a3")

// DeriveID returns the deterministic release ID for a (retailer, identity
// key) pair, so re-ingesting the same product always targets the same row.
func DeriveID(retailerID, key string) string {
	return uuid.NewSHA1(idNamespace, []byte(retailerID+"/"+key)).String()
}

// IdentityKey is the dedup grouping key within a retailer: the SKU when one
// exists, otherwise the normalized product name. Without the fallback every
// SKU-less record from a retailer would collapse onto the same key.
func IdentityKey(sku, name string) string {
	if sku != "" {
		return sku
	}
	return "name::" + normalizeName(name)
}

// normalizeName lowercases, maps runs of non-alphanumerics to single
// spaces, and trims, so "Air-Max 95  OG" and "air max 95 og" group together.
func normalizeName(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		} else {
			space = true
		}
	}
	return b.String()
}
