package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookSubscription is an admin-configured outbound endpoint.
type WebhookSubscription struct {
	Base
	Name            string     `json:"name"              gorm:"size:191;not null"`
	URL             string     `json:"url"               gorm:"type:text;not null"`
	Description     string     `json:"description"       gorm:"type:text"`
	Secret          string     `json:"secret"            gorm:"size:128;not null"`
	IsActive        bool       `json:"is_active"         gorm:"index;not null;default:true"`
	Events          StringList `json:"events"            gorm:"type:text"`
	SuccessCount    int64      `json:"success_count"     gorm:"not null;default:0"`
	FailureCount    int64      `json:"failure_count"     gorm:"not null;default:0"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
}

func (WebhookSubscription) TableName() string { return "webhook_subscriptions" }

// WebhookSubscriptionEvent is the membership index behind the dispatch
// hot path: one row per (subscription, event type).
type WebhookSubscriptionEvent struct {
	SubscriptionID string `gorm:"type:char(36);primaryKey"`
	EventType      string `gorm:"size:64;primaryKey;index"`
}

func (WebhookSubscriptionEvent) TableName() string { return "webhook_subscription_events" }

// WebhookDeliveryLog is one delivery attempt. Rows are never updated.
type WebhookDeliveryLog struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	SubscriptionID string    `json:"subscription_id"  gorm:"type:char(36);index;not null"`
	DeliveryID     string    `json:"delivery_id"      gorm:"type:char(36)"`
	EventType      string    `json:"event_type"       gorm:"size:64;index;not null"`
	Payload        string    `json:"payload"          gorm:"type:text;not null"`
	StatusCode     *int      `json:"status_code"`
	ResponseBody   *string   `json:"response_body"    gorm:"type:text"`
	ResponseTimeMs *int64    `json:"response_time_ms"`
	Success        bool      `json:"success"          gorm:"index;not null"`
	ErrorMessage   *string   `json:"error_message"    gorm:"type:text"`
	Attempt        int       `json:"attempt"          gorm:"not null;default:1"`
	CreatedAt      time.Time `json:"created"          gorm:"index"`
}

func (WebhookDeliveryLog) TableName() string { return "webhook_delivery_logs" }

func (l *WebhookDeliveryLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
