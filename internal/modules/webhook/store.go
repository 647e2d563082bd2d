package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/partnerhub/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateSubscriptionInput carries the admin-supplied fields of a new subscription.
type CreateSubscriptionInput struct {
	Name        string
	URL         string
	Description string
	Events      []string
}

// UpdateSubscriptionInput is a partial update; nil fields are left unchanged.
// A non-nil but empty Events is rejected.
type UpdateSubscriptionInput struct {
	Name        *string
	URL         *string
	Description *string
	Events      []string
}

// SubscriptionStore persists webhook subscriptions and their event membership.
type SubscriptionStore struct {
	db     *gorm.DB
	cache  *ActiveCache
	logger *zap.Logger
	now    func() time.Time
}

// NewSubscriptionStore creates a store. cache may be nil.
func NewSubscriptionStore(db *gorm.DB, cache *ActiveCache, logger *zap.Logger) *SubscriptionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionStore{db: db, cache: cache, logger: logger, now: time.Now}
}

func (s *SubscriptionStore) Create(ctx context.Context, in CreateSubscriptionInput) (*models.WebhookSubscription, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	target, err := normalizeURL(in.URL)
	if err != nil {
		return nil, err
	}
	events, err := normalizeEvents(in.Events)
	if err != nil {
		return nil, err
	}
	secret, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	sub := &models.WebhookSubscription{
		Name:        name,
		URL:         target,
		Description: strings.TrimSpace(in.Description),
		Secret:      secret,
		IsActive:    true,
		Events:      models.StringList(events),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return tx.Create(membershipRows(sub.ID, events)).Error
	})
	if err != nil {
		return nil, persistence("create subscription", err)
	}
	s.invalidate(ctx)
	return sub, nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	var sub models.WebhookSubscription
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "subscription", ID: id}
		}
		return nil, persistence("get subscription", err)
	}
	return &sub, nil
}

func (s *SubscriptionStore) Update(ctx context.Context, id string, in UpdateSubscriptionInput) (*models.WebhookSubscription, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name, err := normalizeName(*in.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.URL != nil {
		target, err := normalizeURL(*in.URL)
		if err != nil {
			return nil, err
		}
		updates["url"] = target
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	var events []string
	if in.Events != nil {
		var err error
		if events, err = normalizeEvents(in.Events); err != nil {
			return nil, err
		}
		updates["events"] = models.StringList(events)
	}

	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.WebhookSubscription{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		// Checked after the UPDATE so the row lock it took keeps a concurrent
		// Delete out until commit.
		if err := tx.Select("id").First(&models.WebhookSubscription{}, "id = ?", id).Error; err != nil {
			return err
		}
		if events == nil {
			return nil
		}
		if err := tx.Where("subscription_id = ?", id).Delete(&models.WebhookSubscriptionEvent{}).Error; err != nil {
			return err
		}
		return tx.Create(membershipRows(id, events)).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "subscription", ID: id}
	}
	if err != nil {
		return nil, persistence("update subscription", err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// RegenerateSecret replaces the signing secret. Existing delivery logs are
// left untouched.
func (s *SubscriptionStore) RegenerateSecret(ctx context.Context, id string) (string, error) {
	secret, err := newSecret()
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&models.WebhookSubscription{}).Where("id = ?", id).Update("secret", secret)
	if res.Error != nil {
		return "", persistence("regenerate secret", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", &NotFoundError{Resource: "subscription", ID: id}
	}
	s.invalidate(ctx)
	return secret, nil
}

// ToggleActive flips is_active in a single statement and returns the new state.
func (s *SubscriptionStore) ToggleActive(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	res := s.db.WithContext(ctx).Model(&models.WebhookSubscription{}).Where("id = ?", id).
		Update("is_active", gorm.Expr("NOT is_active"))
	if res.Error != nil {
		return nil, persistence("toggle subscription", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "subscription", ID: id}
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes the subscription together with its membership rows and
// delivery logs.
func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.WebhookSubscription{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("subscription_id = ?", id).Delete(&models.WebhookSubscriptionEvent{}).Error; err != nil {
			return err
		}
		return tx.Where("subscription_id = ?", id).Delete(&models.WebhookDeliveryLog{}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: "subscription", ID: id}
	}
	if err != nil {
		return persistence("delete subscription", err)
	}
	s.invalidate(ctx)
	return nil
}

// ListAll returns every subscription, inactive included, newest first.
func (s *SubscriptionStore) ListAll(ctx context.Context) ([]models.WebhookSubscription, error) {
	var items []models.WebhookSubscription
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, persistence("list subscriptions", err)
	}
	return items, nil
}

// ListActiveForEvent is the dispatch hot path: active subscriptions whose
// event set contains eventType, resolved through the membership index.
func (s *SubscriptionStore) ListActiveForEvent(ctx context.Context, eventType string) ([]models.WebhookSubscription, error) {
	// The generation is read before the database so a mutation committed
	// after our read always invalidates what we are about to cache.
	var gen int64
	cached := s.cache != nil
	if cached {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("active subscription cache read failed", zap.String("event", eventType), zap.Error(err))
			cached = false
		}
	}
	if cached {
		subs, ok, err := s.cache.Get(ctx, gen, eventType)
		if err != nil {
			s.logger.Warn("active subscription cache read failed", zap.String("event", eventType), zap.Error(err))
		} else if ok {
			return subs, nil
		}
	}

	db := s.db.WithContext(ctx)
	members := db.Model(&models.WebhookSubscriptionEvent{}).Select("subscription_id").Where("event_type = ?", eventType)
	var subs []models.WebhookSubscription
	err := db.Where("is_active = ?", true).Where("id IN (?)", members).
		Order("created_at ASC").Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return nil, persistence("list active subscriptions", err)
	}

	if cached {
		if err := s.cache.Set(ctx, gen, eventType, subs); err != nil {
			s.logger.Warn("active subscription cache write failed", zap.String("event", eventType), zap.Error(err))
		}
	}
	return subs, nil
}

// RecordDeliveryOutcome bumps one rolling counter and last_triggered_at in a
// single UPDATE, so concurrent deliveries never lose increments.
func (s *SubscriptionStore) RecordDeliveryOutcome(ctx context.Context, id string, success bool) error {
	column := "failure_count"
	if success {
		column = "success_count"
	}
	res := s.db.WithContext(ctx).Model(&models.WebhookSubscription{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			column:              gorm.Expr(column+" + ?", 1),
			"last_triggered_at": s.now().UTC(),
		})
	if res.Error != nil {
		return persistence("record delivery outcome", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "subscription", ID: id}
	}
	return nil
}

func (s *SubscriptionStore) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("active subscription cache invalidation failed", zap.Error(err))
	}
}

func membershipRows(subscriptionID string, events []string) []models.WebhookSubscriptionEvent {
	rows := make([]models.WebhookSubscriptionEvent, len(events))
	for i, event := range events {
		rows[i] = models.WebhookSubscriptionEvent{SubscriptionID: subscriptionID, EventType: event}
	}
	return rows
}
