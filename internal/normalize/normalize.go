// Package normalize maps heterogeneous raw adapter records into canonical
// Release drafts. It performs no I/O and never fails fatally: malformed
// values degrade to nil/UNKNOWN fields so one bad record cannot abort a
// batch.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

// RawRecord is one untyped record as produced by a source adapter. Adapters
// disagree on key names, so lookups try a list of aliases.
type RawRecord map[string]any

var ErrNoIdentity = errors.New("record has neither sku nor name")

// brandTable canonicalises the common lowercase brand spellings; anything
// else passes through as-is.
var brandTable = map[string]string{
	"nike":        "Nike",
	"adidas":      "Adidas",
	"jordan":      "Jordan",
	"air jordan":  "Jordan",
	"yeezy":       "Yeezy",
	"new balance": "New Balance",
	"asics":       "ASICS",
	"puma":        "Puma",
	"reebok":      "Reebok",
	"converse":    "Converse",
	"vans":        "Vans",
	"salomon":     "Salomon",
	"crocs":       "Crocs",
}

// Record builds a Release draft for the given retailer from one raw record.
// The only rejection is a record with no identity at all; every other
// malformed field degrades instead of failing.
func Record(retailerID string, raw RawRecord) (*releases.Release, error) {
	sku := strings.ToUpper(strings.TrimSpace(str(raw, "sku", "style_code", "styleCode", "style")))
	name := strings.TrimSpace(str(raw, "name", "title", "product_name"))
	if sku == "" && name == "" {
		return nil, ErrNoIdentity
	}
	if name == "" {
		name = "Unknown"
	}

	rel := &releases.Release{
		ID:          releases.DeriveID(retailerID, releases.IdentityKey(sku, name)),
		SKU:         sku,
		RetailerID:  retailerID,
		Name:        name,
		Brand:       Brand(str(raw, "brand", "vendor")),
		Colorway:    strings.TrimSpace(str(raw, "colorway", "color")),
		ImageURL:    strings.TrimSpace(str(raw, "image_url", "image", "imageUrl")),
		URL:         strings.TrimSpace(str(raw, "url", "link", "product_url")),
		Price:       Price(raw["price"]),
		Status:      releases.ParseStatus(str(raw, "status", "availability")),
		ReleaseDate: Date(first(raw, "release_date", "releaseDate", "date")),
		LiveStock:   Stock(first(raw, "stock", "sizes", "variants")),
	}
	return rel, nil
}

// Brand maps a raw brand through the canonical table, falling back to the
// trimmed raw value or "Unknown".
func Brand(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "Unknown"
	}
	if canon, ok := brandTable[strings.ToLower(t)]; ok {
		return canon
	}
	return t
}

// Price parses a positive decimal out of whatever shape the adapter sent,
// returning nil on anything unparseable or non-positive.
func Price(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return nil
		}
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimPrefix(s, "$")
		s = strings.TrimPrefix(s, "€")
		s = strings.TrimPrefix(s, "£")
		s = strings.ReplaceAll(s, ",", "")
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return nil
		}
	default:
		return nil
	}
	if f <= 0 {
		return nil
	}
	return &f
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Date parses a release date into a UTC instant, or nil when absent or
// unparseable.
func Date(v any) *time.Time {
	switch x := v.(type) {
	case time.Time:
		u := x.UTC()
		return &u
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				u := t.UTC()
				return &u
			}
		}
	}
	return nil
}

// Stock coerces the adapter's inventory shape into a StockMap. Accepted
// value shapes per size: {"total": n, "available": n} or a bare number
// (treated as available with total equal to it). Returns nil when the
// record carries no usable inventory.
func Stock(v any) releases.StockMap {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(releases.StockMap, len(m))
	for size, val := range m {
		switch x := val.(type) {
		case map[string]any:
			out[size] = releases.SizeStock{
				Total:     intOf(x["total"]),
				Available: intOf(x["available"]),
			}
		default:
			n := intOf(val)
			out[size] = releases.SizeStock{Total: n, Available: n}
		}
	}
	return out
}

func intOf(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return i
		}
	}
	return 0
}

// str returns the first non-empty string value among the given keys.
func str(raw RawRecord, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			switch x := v.(type) {
			case string:
				if x != "" {
					return x
				}
			case fmt.Stringer:
				if s := x.String(); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func first(raw RawRecord, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
