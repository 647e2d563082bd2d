package webhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/partnerhub/core/internal/models"
	"github.com/partnerhub/core/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLogs(t *testing.T, s *DeliveryLogStore, subID, event string, n int, success bool, start time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Append(context.Background(), &models.WebhookDeliveryLog{
			SubscriptionID: subID,
			EventType:      event,
			Payload:        fmt.Sprintf(`{"n":%d}`, i),
			Success:        success,
			Attempt:        1,
			CreatedAt:      start.Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestLogStoreQueryFilters(t *testing.T) {
	s := NewDeliveryLogStore(newTestDB(t))
	ctx := context.Background()
	seedLogs(t, s, "sub-a", EventLeadCreated, 3, true, fixedNow)
	seedLogs(t, s, "sub-a", EventLeadLost, 2, false, fixedNow)
	seedLogs(t, s, "sub-b", EventLeadCreated, 4, false, fixedNow)

	cases := []struct {
		name  string
		f     LogFilter
		total int64
	}{
		{"no filter", LogFilter{}, 9},
		{"subscription", LogFilter{SubscriptionID: "sub-a"}, 5},
		{"event", LogFilter{EventType: EventLeadCreated}, 7},
		{"failures", LogFilter{Success: boolPtr(false)}, 6},
		{"successes", LogFilter{Success: boolPtr(true)}, 3},
		{"combined", LogFilter{SubscriptionID: "sub-b", EventType: EventLeadCreated, Success: boolPtr(false)}, 4},
		{"no match", LogFilter{SubscriptionID: "sub-b", Success: boolPtr(true)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, pag, err := s.Query(ctx, tc.f, pagination.New(1, 50))
			require.NoError(t, err)
			assert.EqualValues(t, tc.total, pag.Total)
			assert.Len(t, items, int(tc.total))
			for _, item := range items {
				if tc.f.SubscriptionID != "" {
					assert.Equal(t, tc.f.SubscriptionID, item.SubscriptionID)
				}
				if tc.f.EventType != "" {
					assert.Equal(t, tc.f.EventType, item.EventType)
				}
				if tc.f.Success != nil {
					assert.Equal(t, *tc.f.Success, item.Success)
				}
			}
		})
	}
}

func TestLogStoreQueryPaging(t *testing.T) {
	s := NewDeliveryLogStore(newTestDB(t))
	ctx := context.Background()
	seedLogs(t, s, "sub-a", EventLeadCreated, 25, false, fixedNow)
	seedLogs(t, s, "sub-a", EventLeadCreated, 5, true, fixedNow)

	seen := map[string]bool{}
	var last time.Time
	for page, want := range []int{10, 10, 5} {
		items, pag, err := s.Query(ctx, LogFilter{Success: boolPtr(false)}, pagination.New(page+1, 10))
		require.NoError(t, err)
		require.Len(t, items, want)
		assert.EqualValues(t, 25, pag.Total)
		assert.Equal(t, 3, pag.TotalPage)
		assert.Equal(t, page < 2, pag.HasNextPage)
		for _, item := range items {
			assert.False(t, item.Success)
			assert.False(t, seen[item.ID], "log %s returned twice", item.ID)
			seen[item.ID] = true
			if !last.IsZero() {
				assert.False(t, item.CreatedAt.After(last), "logs must be newest first")
			}
			last = item.CreatedAt
		}
	}
	assert.Len(t, seen, 25)
}

func TestLogStoreGet(t *testing.T) {
	s := NewDeliveryLogStore(newTestDB(t))
	ctx := context.Background()
	status := 202
	entry := &models.WebhookDeliveryLog{SubscriptionID: "sub-a", EventType: EventLeadCreated, Payload: "{}", StatusCode: &status, Success: true}
	require.NoError(t, s.Append(ctx, entry))
	require.NotEmpty(t, entry.ID)

	got, err := s.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StatusCode)
	assert.Equal(t, 202, *got.StatusCode)
	assert.Nil(t, got.ResponseTimeMs)

	_, err = s.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestLogStorePurgeBefore(t *testing.T) {
	s := NewDeliveryLogStore(newTestDB(t))
	ctx := context.Background()
	seedLogs(t, s, "sub-a", EventLeadCreated, 3, true, fixedNow.Add(-48*time.Hour))
	seedLogs(t, s, "sub-a", EventLeadCreated, 2, true, fixedNow)

	n, err := s.PurgeBefore(ctx, fixedNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	left, err := s.CountBySubscription(ctx, "sub-a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, left)
}

func TestLogStoreDeleteOrphans(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sub := mustCreate(t, svc, "https://a.example", EventLeadCreated)
	seedLogs(t, svc.logs, sub.ID, EventLeadCreated, 2, true, fixedNow)
	seedLogs(t, svc.logs, "deleted-sub", EventLeadCreated, 3, false, fixedNow)

	n, err := svc.logs.DeleteOrphans(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	kept, err := svc.DeliveryCount(ctx, sub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, kept)
}

func TestServicePurgeLogs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sub := mustCreate(t, svc, "https://a.example", EventLeadCreated)
	seedLogs(t, svc.logs, sub.ID, EventLeadCreated, 3, true, fixedNow.Add(-48*time.Hour))
	seedLogs(t, svc.logs, sub.ID, EventLeadCreated, 2, true, fixedNow)
	seedLogs(t, svc.logs, "deleted-sub", EventLeadCreated, 1, true, fixedNow)

	n, err := svc.PurgeLogs(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	kept, err := svc.DeliveryCount(ctx, sub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, kept)

	n, err = svc.PurgeLogs(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	kept, err = svc.DeliveryCount(ctx, sub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, kept)
}
