package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/partnerhub/core/internal/models"
	"github.com/partnerhub/core/internal/pkg/pagination"
	"github.com/partnerhub/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service exposes every webhook operation behind one type.
type Service struct {
	subs       *SubscriptionStore
	logs       *DeliveryLogStore
	dispatcher *Dispatcher
	tester     *Tester
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*serviceOptions)

type serviceOptions struct {
	logger *zap.Logger
	cache  *ActiveCache
	client *http.Client
	cfg    DeliveryConfig
	now    func() time.Time
}

func WithLogger(l *zap.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCache enables the active subscription cache. A nil cache is ignored.
func WithCache(c *ActiveCache) Option {
	return func(o *serviceOptions) { o.cache = c }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *serviceOptions) { o.client = c }
}

func WithDeliveryConfig(cfg DeliveryConfig) Option {
	return func(o *serviceOptions) { o.cfg = cfg }
}

func withClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	o := serviceOptions{logger: zap.NewNop(), cfg: DefaultDeliveryConfig(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("WebhookService")

	subs := NewSubscriptionStore(db, o.cache, logger)
	subs.now = o.now
	logs := NewDeliveryLogStore(db)
	d := newDeliverer(o.client, o.cfg, subs, logs, logger)
	d.now = o.now
	dispatcher := newDispatcher(subs, d, logger)

	return &Service{
		subs:       subs,
		logs:       logs,
		dispatcher: dispatcher,
		tester:     newTester(subs, dispatcher),
		logger:     logger,
		now:        o.now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateSubscriptionInput) (*models.WebhookSubscription, error) {
	sub, err := s.subs.Create(ctx, in)
	if err == nil {
		s.logger.Info("webhook subscription created", zap.String("id", sub.ID), zap.Strings("events", sub.Events))
	}
	return sub, err
}

func (s *Service) Get(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	return s.subs.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateSubscriptionInput) (*models.WebhookSubscription, error) {
	return s.subs.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.subs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("webhook subscription deleted", zap.String("id", id))
	return nil
}

func (s *Service) ListAll(ctx context.Context) ([]models.WebhookSubscription, error) {
	return s.subs.ListAll(ctx)
}

func (s *Service) ToggleActive(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	return s.subs.ToggleActive(ctx, id)
}

func (s *Service) RegenerateSecret(ctx context.Context, id string) (string, error) {
	secret, err := s.subs.RegenerateSecret(ctx, id)
	if err == nil {
		s.logger.Info("webhook secret regenerated", zap.String("id", id))
	}
	return secret, err
}

// FireEvent is the call-point for business code. See Dispatcher.FireEvent.
func (s *Service) FireEvent(eventType string, data map[string]interface{}) {
	s.dispatcher.FireEvent(eventType, data)
}

func (s *Service) Dispatch(ctx context.Context, eventType string, data map[string]interface{}) (int, error) {
	return s.dispatcher.Dispatch(ctx, eventType, data)
}

func (s *Service) Test(ctx context.Context, id string) (*TestResult, error) {
	return s.tester.Test(ctx, id)
}

func (s *Service) QueryLogs(ctx context.Context, f LogFilter, q pagination.Query) ([]models.WebhookDeliveryLog, response.Pagination, error) {
	return s.logs.Query(ctx, f, q)
}

func (s *Service) GetLog(ctx context.Context, id string) (*models.WebhookDeliveryLog, error) {
	return s.logs.Get(ctx, id)
}

// DeliveryCount returns the number of logged attempts for a subscription.
func (s *Service) DeliveryCount(ctx context.Context, id string) (int64, error) {
	return s.logs.CountBySubscription(ctx, id)
}

// PurgeLogs removes delivery logs older than retention together with logs
// left behind by deleted subscriptions. retention <= 0 keeps every log of a
// live subscription.
func (s *Service) PurgeLogs(ctx context.Context, retention time.Duration) (int64, error) {
	var expired int64
	if retention > 0 {
		n, err := s.logs.PurgeBefore(ctx, s.now().Add(-retention))
		if err != nil {
			return 0, err
		}
		expired = n
	}
	orphans, err := s.logs.DeleteOrphans(ctx)
	if err != nil {
		return expired, err
	}
	if total := expired + orphans; total > 0 {
		s.logger.Info("purged webhook delivery logs",
			zap.Int64("expired", expired), zap.Int64("orphaned", orphans), zap.Duration("retention", retention))
	}
	return expired + orphans, nil
}

// Redispatch re-sends the payload of a logged attempt, signed with the
// subscription's current secret. It is recorded as a new attempt.
func (s *Service) Redispatch(ctx context.Context, logID string) (*TestResult, error) {
	entry, err := s.logs.Get(ctx, logID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subs.Get(ctx, entry.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive {
		return nil, invalid("subscription", "subscription %s is inactive", sub.ID)
	}
	out := s.dispatcher.deliverOne(ctx, sub, entry.EventType, []byte(entry.Payload))
	s.logger.Info("webhook redispatched",
		zap.String("log", logID), zap.String("subscription", sub.ID), zap.Bool("success", out.Success))
	return resultFromOutcome(out), nil
}

// Wait blocks until every fired event has been delivered.
func (s *Service) Wait() { s.dispatcher.Wait() }

// Close stops accepting events and drains in-flight deliveries.
func (s *Service) Close(ctx context.Context) error {
	return s.dispatcher.Close(ctx)
}
