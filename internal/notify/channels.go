package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sneakwatch/go-release-pipeline/internal/obs"
	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

// Notification is a finished payload handed to an alert transport.
type Notification struct {
	Type      string            `json:"type"`
	Priority  releases.Priority `json:"priority"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]any    `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Channel is one delivery transport. Delivery has no retries here; retry
// policy belongs to the transport provider behind it.
type Channel interface {
	Name() string
	Send(ctx context.Context, userID string, n Notification) error
}

// WebhookChannel POSTs notifications to a single configured endpoint.
type WebhookChannel struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookChannel(endpoint string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		client:   resty.New().SetTimeout(timeout),
		endpoint: endpoint,
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(ctx context.Context, userID string, n Notification) error {
	type body struct {
		UserID string `json:"user_id"`
		Notification
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body{UserID: userID, Notification: n}).
		Post(c.endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &TransportError{Channel: c.Name(), Status: resp.StatusCode()}
	}
	return nil
}

type TransportError struct {
	Channel string
	Status  int
}

func (e *TransportError) Error() string {
	return e.Channel + " transport returned non-2xx status"
}

// LogChannel writes notifications to the structured log; useful as a dev
// transport and as the fallback channel.
type LogChannel struct{}

func (LogChannel) Name() string { return "log" }

func (LogChannel) Send(_ context.Context, userID string, n Notification) error {
	obs.Logger.Info("notification",
		"user", userID, "type", n.Type, "priority", string(n.Priority),
		"title", n.Title, "message", n.Message)
	return nil
}
