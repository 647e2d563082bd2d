package webhook

import (
	"context"
	"fmt"
)

// TestResult is the synchronous outcome of a test or redispatch delivery.
type TestResult struct {
	Success        bool    `json:"success"`
	StatusCode     *int    `json:"status_code"`
	ResponseTimeMs *int64  `json:"response_time_ms"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	LogID          string  `json:"log_id,omitempty"`
	DeliveryID     string  `json:"delivery_id"`
}

func resultFromOutcome(out Outcome) *TestResult {
	return &TestResult{
		Success:        out.Success,
		StatusCode:     out.StatusCode,
		ResponseTimeMs: out.ResponseTimeMs,
		ErrorMessage:   out.ErrorMessage,
		LogID:          out.LogID,
		DeliveryID:     out.DeliveryID,
	}
}

// Tester sends a synthetic webhook.test event to one subscription.
type Tester struct {
	subs       *SubscriptionStore
	dispatcher *Dispatcher
}

func newTester(subs *SubscriptionStore, d *Dispatcher) *Tester {
	return &Tester{subs: subs, dispatcher: d}
}

// Test delivers once, regardless of the subscription's active flag. The
// attempt is logged and counted like any other delivery.
func (t *Tester) Test(ctx context.Context, subscriptionID string) (*TestResult, error) {
	sub, err := t.subs.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	body, err := buildPayload(EventTest, t.dispatcher.deliver.now(), testData(sub.ID, sub.Name))
	if err != nil {
		return nil, fmt.Errorf("encode test payload: %w", err)
	}
	return resultFromOutcome(t.dispatcher.deliverOne(ctx, sub, EventTest, body)), nil
}

func testData(subscriptionID, name string) map[string]interface{} {
	return map[string]interface{}{
		"message":         "This is a test webhook from Partner Hub",
		"subscription_id": subscriptionID,
		"subscription":    name,
		"sample": map[string]interface{}{
			"partner_id":   "00000000-0000-0000-0000-000000000000",
			"partner_name": "Example Partner Ltd.",
			"tier":         "gold",
			"status":       "approved",
		},
	}
}
