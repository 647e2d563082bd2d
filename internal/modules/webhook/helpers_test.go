package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/partnerhub/core/internal/database"
	"github.com/partnerhub/core/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 15, 123000000, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestService(t *testing.T, opts ...Option) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := DefaultDeliveryConfig()
	cfg.Timeout = 2 * time.Second
	all := append([]Option{WithDeliveryConfig(cfg), withClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewService(db, all...)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc, db
}

type receivedRequest struct {
	Header http.Header
	Body   []byte
}

// receiver is an httptest endpoint that records every request and answers
// with a configurable status.
type receiver struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []receivedRequest
}

func newReceiver(t *testing.T, status int) *receiver {
	t.Helper()
	r := &receiver{status: status, body: `{"ok":true}`}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.requests = append(r.requests, receivedRequest{Header: req.Header.Clone(), Body: body})
		status, respBody := r.status, r.body
		r.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(r.Close)
	return r
}

func (r *receiver) setStatus(status int) {
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()
}

func (r *receiver) setBody(body string) {
	r.mu.Lock()
	r.body = body
	r.mu.Unlock()
}

func (r *receiver) received() []receivedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]receivedRequest(nil), r.requests...)
}

func mustCreate(t *testing.T, svc *Service, url string, events ...string) *models.WebhookSubscription {
	t.Helper()
	sub, err := svc.Create(context.Background(), CreateSubscriptionInput{
		Name:   "test hook",
		URL:    url,
		Events: events,
	})
	require.NoError(t, err)
	return sub
}

func boolPtr(b bool) *bool { return &b }
