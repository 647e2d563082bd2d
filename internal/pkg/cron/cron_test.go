package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNow(t *testing.T) {
	s := New(nil)
	var runs int32
	s.Register(Job{Name: "ok", Interval: time.Hour, Fn: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}})
	s.Register(Job{Name: "bad", Interval: time.Hour, Fn: func(context.Context) error {
		return errors.New("boom")
	}})
	s.Register(Job{Name: "panics", Interval: time.Hour, Fn: func(context.Context) error {
		panic("nope")
	}})

	require.NoError(t, s.RunNow(context.Background(), "ok"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
	assert.ErrorContains(t, s.RunNow(context.Background(), "bad"), "boom")
	assert.ErrorContains(t, s.RunNow(context.Background(), "panics"), "panicked")
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)

	items := s.List()
	require.Len(t, items, 3)
	assert.Equal(t, "bad", items[0].Name)
	assert.Equal(t, StatusReject, items[0].Status)
	assert.Equal(t, StatusFulfill, items[1].Status)
	assert.NotNil(t, items[1].LastRunAt)
}

func TestStartRunsOnInterval(t *testing.T) {
	s := New(nil)
	ran := make(chan struct{}, 10)
	s.Register(Job{Name: "tick", Interval: 10 * time.Millisecond, Fn: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	cancel()
	s.Wait()
}
