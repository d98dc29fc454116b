package notification

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"

	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/domain/notification"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// webhookEvent is the envelope posted to the configured endpoint
type webhookEvent struct {
	ProfileID string                 `json:"profile_id"`
	Kind      notification.Kind      `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// WebhookSender posts notification events to a single configured endpoint
// with bounded retries
type WebhookSender struct {
	client  *retryablehttp.Client
	url     string
	enabled bool
	logger  *logger.Logger
}

func NewWebhookSender(cfg *config.Configuration, log *logger.Logger) *WebhookSender {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = log.GetRetryableHTTPLogger()

	return &WebhookSender{
		client:  client,
		url:     cfg.Webhook.URL,
		enabled: cfg.Webhook.Enabled && cfg.Webhook.URL != "",
		logger:  log,
	}
}

func (s *WebhookSender) Send(ctx context.Context, profileID string, kind notification.Kind, payload map[string]interface{}) error {
	if !s.enabled {
		return nil
	}

	body, err := json.Marshal(webhookEvent{
		ProfileID: profileID,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Webhook delivery failed").
			Mark(ierr.ErrSystem)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return ierr.NewErrorf("webhook endpoint returned %d", resp.StatusCode).
			Mark(ierr.ErrSystem)
	}
	return nil
}
