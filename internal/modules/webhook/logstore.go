package webhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/partnerhub/core/internal/models"
	"github.com/partnerhub/core/internal/pkg/pagination"
	"github.com/partnerhub/core/internal/pkg/response"
	"gorm.io/gorm"
)

// LogFilter narrows a delivery log query. Zero-value fields are ignored and
// the remaining ones are combined with AND.
type LogFilter struct {
	SubscriptionID string
	EventType      string
	Success        *bool
}

// DeliveryLogStore is the append-only record of delivery attempts.
type DeliveryLogStore struct {
	db *gorm.DB
}

func NewDeliveryLogStore(db *gorm.DB) *DeliveryLogStore {
	return &DeliveryLogStore{db: db}
}

// Append inserts one attempt. Rows are never updated afterwards.
func (s *DeliveryLogStore) Append(ctx context.Context, log *models.WebhookDeliveryLog) error {
	return persistence("append delivery log", s.db.WithContext(ctx).Create(log).Error)
}

func (s *DeliveryLogStore) Get(ctx context.Context, id string) (*models.WebhookDeliveryLog, error) {
	var item models.WebhookDeliveryLog
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "delivery log", ID: id}
		}
		return nil, persistence("get delivery log", err)
	}
	return &item, nil
}

// Query returns one page of logs, newest first. id breaks ties between rows
// written in the same instant so page boundaries stay stable.
func (s *DeliveryLogStore) Query(ctx context.Context, f LogFilter, q pagination.Query) ([]models.WebhookDeliveryLog, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.WebhookDeliveryLog{})
	if id := strings.TrimSpace(f.SubscriptionID); id != "" {
		tx = tx.Where("subscription_id = ?", id)
	}
	if event := strings.TrimSpace(f.EventType); event != "" {
		tx = tx.Where("event_type = ?", event)
	}
	if f.Success != nil {
		tx = tx.Where("success = ?", *f.Success)
	}
	tx = tx.Order("created_at DESC").Order("id DESC")

	items := []models.WebhookDeliveryLog{}
	pag, err := pagination.Paginate(tx, q, &items)
	if err != nil {
		return nil, response.Pagination{}, persistence("query delivery logs", err)
	}
	return items, pag, nil
}

// CountBySubscription returns the number of attempts logged for a subscription.
func (s *DeliveryLogStore) CountBySubscription(ctx context.Context, subscriptionID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.WebhookDeliveryLog{}).
		Where("subscription_id = ?", subscriptionID).Count(&n).Error
	return n, persistence("count delivery logs", err)
}

// PurgeBefore deletes attempts older than cutoff and returns how many went.
func (s *DeliveryLogStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.WebhookDeliveryLog{})
	return res.RowsAffected, persistence("purge delivery logs", res.Error)
}

// DeleteOrphans removes attempts whose subscription no longer exists. A
// delivery still in flight when its subscription is deleted appends its row
// after the cascade has run.
func (s *DeliveryLogStore) DeleteOrphans(ctx context.Context) (int64, error) {
	db := s.db.WithContext(ctx)
	live := db.Model(&models.WebhookSubscription{}).Select("id")
	res := db.Where("subscription_id NOT IN (?)", live).Delete(&models.WebhookDeliveryLog{})
	return res.RowsAffected, persistence("delete orphaned delivery logs", res.Error)
}
