// Package webhook posts calculation results to a caller-supplied URL. A
// delivery is attempted once and its outcome is reported as a status value,
// never as an error.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/kpicalc/internal/kpi"
	"github.com/iwvelando/kpicalc/internal/metrics"
	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/validation"
	"go.uber.org/zap"
)

// DeliveryStatus describes the outcome of one delivery attempt.
type DeliveryStatus struct {
	ID         string `json:"id,omitempty"`
	Delivered  bool   `json:"delivered"`
	Skipped    bool   `json:"skipped,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
}

// Notifier sends payloads to webhook URLs.
type Notifier struct {
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// Option configures the notifier.
type Option func(*Notifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			n.client = client
		}
	}
}

// WithTimeout bounds each delivery. Zero keeps the platform default.
func WithTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			client := *n.client
			client.Timeout = timeout
			n.client = &client
		}
	}
}

// WithClock overrides the clock used for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNotifier constructs a notifier. A nil logger disables logging.
func NewNotifier(logger *zap.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		client: &http.Client{},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyResult posts result to the webhook URL carried by raw.
func (n *Notifier) NotifyResult(ctx context.Context, raw kpi.RawInput, result kpi.Result) DeliveryStatus {
	return n.Notify(ctx, raw.WebhookURL, NewPayload(result, raw, n.now()))
}

// Notify posts payload to url. A blank url skips delivery.
func (n *Notifier) Notify(ctx context.Context, url string, payload Payload) DeliveryStatus {
	url = strings.TrimSpace(url)
	if url == "" {
		metrics.ObserveWebhook(metrics.WebhookSkipped, 0)
		return DeliveryStatus{Skipped: true, Message: constants.WebhookStatusSkipped}
	}

	start := time.Now()
	var status DeliveryStatus
	if err := validation.ValidateWebhookURL(url); err != nil {
		status = failed(err)
	} else {
		status = n.deliver(ctx, url, payload)
	}
	elapsed := time.Since(start)
	status.ID = payload.ID

	outcome := metrics.WebhookDelivered
	switch {
	case status.Delivered:
		n.logger.Info("webhook delivered",
			zap.String("op", "webhook.Notify"),
			zap.String("id", payload.ID),
			zap.Int("status", status.StatusCode),
			zap.Duration("duration", elapsed),
		)
	case status.StatusCode != 0:
		outcome = metrics.WebhookRejected
		n.logger.Warn("webhook rejected delivery",
			zap.String("op", "webhook.Notify"),
			zap.String("id", payload.ID),
			zap.Int("status", status.StatusCode),
		)
	default:
		outcome = metrics.WebhookFailed
		n.logger.Warn("webhook delivery failed",
			zap.String("op", "webhook.Notify"),
			zap.String("id", payload.ID),
			zap.String("error", status.Message),
		)
	}
	metrics.ObserveWebhook(outcome, elapsed)
	return status
}

func (n *Notifier) deliver(ctx context.Context, url string, payload Payload) DeliveryStatus {
	body, err := json.Marshal(payload)
	if err != nil {
		return failed(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return failed(err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return failed(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			n.logger.Debug("failed to close webhook response body",
				zap.String("op", "webhook.deliver"),
				zap.Error(closeErr),
			)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DeliveryStatus{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s: %d", constants.WebhookStatusError, resp.StatusCode),
		}
	}
	return DeliveryStatus{
		Delivered:  true,
		StatusCode: resp.StatusCode,
		Message:    constants.WebhookStatusPosted,
	}
}

func failed(err error) DeliveryStatus {
	return DeliveryStatus{Message: fmt.Sprintf("%s: %v", constants.WebhookStatusFailed, err)}
}
