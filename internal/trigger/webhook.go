package trigger

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/metrics"
)

// SignatureHeader carries the HMAC-SHA256 signature of the request body
const SignatureHeader = "X-Usagepulse-Signature"

// WebhookPublisher POSTs events as JSON to a single endpoint
type WebhookPublisher struct {
	url        string
	secret     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewWebhookPublisher creates a webhook publisher. A zero timeout means 10s.
func NewWebhookPublisher(url, secret string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookPublisher{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "trigger-webhook",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
		}),
	}
}

// Publish delivers one event. It fails fast while the circuit is open.
func (p *WebhookPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.deliver(ctx, event)
	})
	if err != nil {
		metrics.RecordTriggerPublish("webhook", "failed")
		return apperrors.TriggerError("webhook", err)
	}
	metrics.RecordTriggerPublish("webhook", "delivered")
	return nil
}

func (p *WebhookPublisher) deliver(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Usagepulse-Event", event.Type)
	req.Header.Set("X-Usagepulse-Timestamp", fmt.Sprintf("%d", event.Timestamp.Unix()))
	if p.secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, p.secret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned error status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Sign returns the signature header value for payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
