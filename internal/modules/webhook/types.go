package webhook

import (
	"time"

	"github.com/partnerhub/core/internal/models"
)

// CreateSubscriptionDTO is the request body for creating a subscription.
// Field rules are enforced by the store so the API and Go callers share them.
type CreateSubscriptionDTO struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Events      []string `json:"events"`
}

func (d CreateSubscriptionDTO) input() CreateSubscriptionInput {
	return CreateSubscriptionInput{Name: d.Name, URL: d.URL, Description: d.Description, Events: d.Events}
}

// UpdateSubscriptionDTO is the request body for a partial update.
type UpdateSubscriptionDTO struct {
	Name        *string  `json:"name"`
	URL         *string  `json:"url"`
	Description *string  `json:"description"`
	Events      []string `json:"events"`
}

func (d UpdateSubscriptionDTO) input() UpdateSubscriptionInput {
	return UpdateSubscriptionInput{Name: d.Name, URL: d.URL, Description: d.Description, Events: d.Events}
}

// subscriptionResponse is the outbound representation of a subscription.
// The secret is only filled in on detail, create and regenerate responses.
type subscriptionResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Description     string     `json:"description"`
	Secret          string     `json:"secret,omitempty"`
	IsActive        bool       `json:"is_active"`
	Events          []string   `json:"events"`
	SuccessCount    int64      `json:"success_count"`
	FailureCount    int64      `json:"failure_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
	DeliveryCount   *int64     `json:"delivery_count,omitempty"`
	Created         time.Time  `json:"created"`
	Modified        time.Time  `json:"modified"`
}

func toResponse(s *models.WebhookSubscription, withSecret bool) subscriptionResponse {
	events := []string(s.Events)
	if events == nil {
		events = []string{}
	}
	out := subscriptionResponse{
		ID:              s.ID,
		Name:            s.Name,
		URL:             s.URL,
		Description:     s.Description,
		IsActive:        s.IsActive,
		Events:          events,
		SuccessCount:    s.SuccessCount,
		FailureCount:    s.FailureCount,
		LastTriggeredAt: s.LastTriggeredAt,
		Created:         s.CreatedAt,
		Modified:        s.UpdatedAt,
	}
	if withSecret {
		out.Secret = s.Secret
	}
	return out
}

// deliveryLogResponse adds the event label to a stored attempt.
type deliveryLogResponse struct {
	models.WebhookDeliveryLog
	EventLabel string `json:"event_label"`
}

func toLogResponse(l models.WebhookDeliveryLog) deliveryLogResponse {
	return deliveryLogResponse{WebhookDeliveryLog: l, EventLabel: EventLabel(l.EventType)}
}

type eventsResponse struct {
	Events     []EventType     `json:"events"`
	Categories []EventCategory `json:"categories"`
}

type secretResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}
