package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sneakwatch/go-release-pipeline/internal/ingest"
	"github.com/sneakwatch/go-release-pipeline/internal/normalize"
)

// Ingestor runs one adapter batch through the pipeline; satisfied by
// ingest.Service.
type Ingestor interface {
	Run(ctx context.Context, retailerID string, records []normalize.RawRecord, traceID string) ingest.Summary
}

type IngestHandler struct {
	Service Ingestor
}

func (h *IngestHandler) Register(r *chi.Mux) {
	r.Post("/ingest/{retailer}", h.ingestBatch)
}

// ingestBatch accepts one source-adapter batch and returns the aggregate
// counts; a bad record inside the batch costs an error counter, not a 4xx.
func (h *IngestHandler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	retailer := chi.URLParam(r, "retailer")
	if retailer == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing retailer"})
		return
	}

	var records []normalize.RawRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty batch"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	sum := h.Service.Run(ctx, retailer, records, r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusOK, sum)
}
