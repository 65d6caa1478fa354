package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFeedAdapterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"sku":"ABC123","name":"Dunk Low","status":"live"}]`))
	}))
	defer srv.Close()

	a := NewFeedAdapter(map[string]string{"nike": srv.URL}, 5*time.Second)
	records, err := a.Fetch(context.Background(), "nike", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "ABC123", records[0]["sku"])
}

func TestFeedAdapterWrappedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"sku":"A"},{"sku":"B"}]}`))
	}))
	defer srv.Close()

	a := NewFeedAdapter(nil, 5*time.Second)
	records, err := a.Fetch(context.Background(), "nike", map[string]any{"url": srv.URL})
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestFeedAdapterErrors(t *testing.T) {
	a := NewFeedAdapter(nil, time.Second)
	_, err := a.Fetch(context.Background(), "unconfigured", nil)
	require.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err = a.Fetch(context.Background(), "nike", map[string]any{"url": srv.URL})
	require.ErrorContains(t, err, "status 503")
}

func TestDecodeFeedBadPayload(t *testing.T) {
	_, err := decodeFeed([]byte(`"just a string"`))
	require.Error(t, err)
}
