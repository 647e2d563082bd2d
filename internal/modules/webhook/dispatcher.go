package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/partnerhub/core/internal/models"
	"go.uber.org/zap"
)

// TimestampLayout is the envelope timestamp format: UTC, millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("webhook dispatcher closed")

// Envelope is the JSON body POSTed to every subscriber.
type Envelope struct {
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func buildPayload(eventType string, now time.Time, data map[string]interface{}) ([]byte, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	return json.Marshal(Envelope{
		Event:     eventType,
		Timestamp: now.UTC().Format(TimestampLayout),
		Data:      data,
	})
}

// Dispatcher fans events out to every active subscription of the event.
type Dispatcher struct {
	subs    *SubscriptionStore
	deliver *deliverer
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newDispatcher(subs *SubscriptionStore, d *deliverer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{subs: subs, deliver: d, logger: logger}
}

// FireEvent schedules a fan-out and returns immediately. It never blocks the
// caller on network I/O and never fails it; problems are logged. data is
// encoded before FireEvent returns, so the caller may reuse the map.
func (d *Dispatcher) FireEvent(eventType string, data map[string]interface{}) {
	if !IsValidEventType(eventType) {
		d.logger.Warn("ignoring unknown webhook event", zap.String("event", eventType))
		return
	}
	body, err := buildPayload(eventType, d.deliver.now(), data)
	if err != nil {
		d.logger.Error("failed to encode webhook payload", zap.String("event", eventType), zap.Error(err))
		return
	}
	if !d.track() {
		d.logger.Warn("dispatcher closed, dropping webhook event", zap.String("event", eventType))
		return
	}
	go func() {
		defer d.wg.Done()
		defer d.recoverPanic(eventType)
		if _, err := d.dispatch(context.Background(), eventType, body); err != nil {
			d.logger.Error("webhook dispatch failed", zap.String("event", eventType), zap.Error(err))
		}
	}()
}

// Dispatch delivers eventType to every matching subscription and waits for
// all of them. It returns how many subscriptions were notified. Individual
// delivery failures are recorded in the log and never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, data map[string]interface{}) (int, error) {
	if !IsValidEventType(eventType) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	body, err := buildPayload(eventType, d.deliver.now(), data)
	if err != nil {
		return 0, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	if !d.track() {
		return 0, ErrDispatcherClosed
	}
	defer d.wg.Done()
	return d.dispatch(ctx, eventType, body)
}

// dispatch sends the encoded envelope to every active subscription of
// eventType concurrently.
func (d *Dispatcher) dispatch(ctx context.Context, eventType string, body []byte) (int, error) {
	subs, err := d.subs.ListActiveForEvent(ctx, eventType)
	if err != nil {
		return 0, err
	}
	dispatchesTotal.WithLabelValues(eventType).Inc()
	if len(subs) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	for i := range subs {
		sub := subs[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer d.recoverPanic(eventType)
			d.deliver.deliver(ctx, &sub, eventType, body)
		}()
	}
	wg.Wait()
	return len(subs), nil
}

// deliverOne sends an already encoded body to a single subscription.
func (d *Dispatcher) deliverOne(ctx context.Context, sub *models.WebhookSubscription, eventType string, body []byte) Outcome {
	return d.deliver.attempt(ctx, sub, eventType, body, 1)
}

func (d *Dispatcher) track() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.wg.Add(1)
	return true
}

func (d *Dispatcher) recoverPanic(eventType string) {
	if r := recover(); r != nil {
		d.logger.Error("webhook delivery panicked", zap.String("event", eventType), zap.Any("panic", r))
	}
}

// Wait blocks until every scheduled fan-out has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Close stops accepting events and waits for in-flight fan-outs until ctx
// is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
