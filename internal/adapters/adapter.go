// Package adapters defines the source-adapter boundary. The per-retailer
// scraping logic lives outside this repository; workers talk to sources
// through the Source interface.
package adapters

import (
	"context"

	"github.com/sneakwatch/go-release-pipeline/internal/normalize"
)

// Source produces raw, heterogeneous records for a single retailer. It may
// fail or return partial data; callers treat each record independently.
type Source interface {
	Fetch(ctx context.Context, target string, params map[string]any) ([]normalize.RawRecord, error)
}
