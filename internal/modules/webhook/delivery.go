package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/partnerhub/core/internal/models"
	"go.uber.org/zap"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderID        = "X-Webhook-Id"
	HeaderDelivery  = "X-Webhook-Delivery"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// DeliveryConfig tunes outbound requests.
type DeliveryConfig struct {
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	// MaxAttempts bounds retries of a failed delivery. 1 disables retry.
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	UserAgent      string
}

func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{
		Timeout:              5 * time.Second,
		MaxResponseBodyBytes: 4 << 10,
		MaxAttempts:          1,
		RetryBaseDelay:       time.Second,
		RetryMaxDelay:        30 * time.Second,
		UserAgent:            "PartnerHub-Webhook/1.0",
	}
}

func (c DeliveryConfig) withDefaults() DeliveryConfig {
	def := DefaultDeliveryConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxResponseBodyBytes <= 0 {
		c.MaxResponseBodyBytes = def.MaxResponseBodyBytes
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = def.RetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = def.RetryMaxDelay
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	return c
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	LogID          string  `json:"log_id,omitempty"`
	DeliveryID     string  `json:"delivery_id"`
	Success        bool    `json:"success"`
	StatusCode     *int    `json:"status_code"`
	ResponseTimeMs *int64  `json:"response_time_ms"`
	ResponseBody   *string `json:"-"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	Attempt        int     `json:"attempt"`
}

// deliverer performs signed POSTs and records every attempt.
type deliverer struct {
	client *http.Client
	cfg    DeliveryConfig
	subs   *SubscriptionStore
	logs   *DeliveryLogStore
	logger *zap.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func newDeliverer(client *http.Client, cfg DeliveryConfig, subs *SubscriptionStore, logs *DeliveryLogStore, logger *zap.Logger) *deliverer {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &deliverer{
		client: client,
		cfg:    cfg,
		subs:   subs,
		logs:   logs,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// deliver runs up to MaxAttempts attempts, backing off between failures.
// Every attempt produces its own log row and counter update.
func (d *deliverer) deliver(ctx context.Context, sub *models.WebhookSubscription, eventType string, body []byte) Outcome {
	for attempt := 1; ; attempt++ {
		out := d.attempt(ctx, sub, eventType, body, attempt)
		if out.Success || attempt >= d.cfg.MaxAttempts {
			return out
		}
		if err := d.sleep(ctx, retryDelay(attempt, d.cfg.RetryBaseDelay, d.cfg.RetryMaxDelay)); err != nil {
			return out
		}
	}
}

// attempt sends body once, then records the outcome. Bookkeeping failures
// are logged and never change the outcome.
func (d *deliverer) attempt(ctx context.Context, sub *models.WebhookSubscription, eventType string, body []byte, attempt int) Outcome {
	out := d.send(ctx, sub, eventType, body)
	out.Attempt = attempt

	deliveriesTotal.WithLabelValues(eventType, outcomeLabel(out.Success)).Inc()

	entry := &models.WebhookDeliveryLog{
		SubscriptionID: sub.ID,
		DeliveryID:     out.DeliveryID,
		EventType:      eventType,
		Payload:        string(body),
		StatusCode:     out.StatusCode,
		ResponseBody:   out.ResponseBody,
		ResponseTimeMs: out.ResponseTimeMs,
		Success:        out.Success,
		ErrorMessage:   out.ErrorMessage,
		Attempt:        attempt,
		CreatedAt:      d.now().UTC(),
	}
	// Bookkeeping must outlive a cancelled caller: the request already happened.
	bctx := context.WithoutCancel(ctx)
	if err := d.logs.Append(bctx, entry); err != nil {
		persistenceFailures.WithLabelValues("append_log").Inc()
		d.logger.Error("failed to write delivery log",
			zap.String("subscription", sub.ID), zap.String("event", eventType), zap.Error(err))
	} else {
		out.LogID = entry.ID
	}
	if err := d.subs.RecordDeliveryOutcome(bctx, sub.ID, out.Success); err != nil {
		persistenceFailures.WithLabelValues("record_outcome").Inc()
		d.logger.Error("failed to record delivery outcome",
			zap.String("subscription", sub.ID), zap.Bool("success", out.Success), zap.Error(err))
	}

	if out.Success {
		d.logger.Debug("webhook delivered",
			zap.String("subscription", sub.ID), zap.String("event", eventType), zap.Intp("status", out.StatusCode))
	} else {
		d.logger.Warn("webhook delivery failed",
			zap.String("subscription", sub.ID), zap.String("event", eventType),
			zap.Int("attempt", attempt), zap.Intp("status", out.StatusCode), zap.Stringp("error", out.ErrorMessage))
	}
	return out
}

// send issues one signed POST. success is true iff the request completed
// and the status is 2xx.
func (d *deliverer) send(ctx context.Context, sub *models.WebhookSubscription, eventType string, body []byte) Outcome {
	out := Outcome{DeliveryID: uuid.New().String()}

	reqCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		out.ErrorMessage = stringPtr(err.Error())
		return out
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set(SignatureHeader, Sign(sub.Secret, body))
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderID, sub.ID)
	req.Header.Set(HeaderDelivery, out.DeliveryID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(d.now().Unix(), 10))

	deliveriesInFlight.Inc()
	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		deliveriesInFlight.Dec()
		deliveryDuration.WithLabelValues(outcomeLabel(false)).Observe(time.Since(start).Seconds())
		out.ErrorMessage = stringPtr(err.Error())
		return out
	}
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxResponseBodyBytes))
	_ = resp.Body.Close()
	elapsed := time.Since(start)
	deliveriesInFlight.Dec()

	status := resp.StatusCode
	ms := elapsed.Milliseconds()
	text := string(respBody)
	out.StatusCode = &status
	out.ResponseTimeMs = &ms
	out.ResponseBody = &text
	out.Success = status >= 200 && status < 300
	if !out.Success {
		out.ErrorMessage = stringPtr(fmt.Sprintf("unexpected status code %d", status))
	} else if readErr != nil {
		// The receiver accepted the request; a truncated read does not
		// change that.
		d.logger.Debug("failed to read webhook response body", zap.String("subscription", sub.ID), zap.Error(readErr))
	}
	deliveryDuration.WithLabelValues(outcomeLabel(out.Success)).Observe(elapsed.Seconds())
	return out
}

// retryDelay is exponential backoff with full jitter; attempt is 1-based.
func retryDelay(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := ceiling
	if shift := attempt - 1; shift < 32 {
		if d := base << shift; d > 0 && d < ceiling {
			delay = d
		}
	}
	return time.Duration(rand.Int64N(int64(delay) + 1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func stringPtr(s string) *string { return &s }
