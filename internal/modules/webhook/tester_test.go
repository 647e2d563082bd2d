package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/partnerhub/core/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTesterSuccess(t *testing.T) {
	svc, _ := newTestService(t)
	rcv := newReceiver(t, http.StatusOK)
	sub := mustCreate(t, svc, rcv.URL, EventLeadCreated)
	ctx := context.Background()

	res, err := svc.Test(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusOK, *res.StatusCode)
	assert.NotNil(t, res.ResponseTimeMs)
	assert.Nil(t, res.ErrorMessage)
	assert.NotEmpty(t, res.LogID)

	reqs := rcv.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, EventTest, reqs[0].Header.Get(HeaderEvent))
	assert.True(t, Verify(sub.Secret, reqs[0].Body, reqs[0].Header.Get(SignatureHeader)))

	var env Envelope
	require.NoError(t, json.Unmarshal(reqs[0].Body, &env))
	assert.Equal(t, EventTest, env.Event)
	assert.Equal(t, sub.ID, env.Data["subscription_id"])
	assert.NotEmpty(t, env.Data["message"])
	assert.NotNil(t, env.Data["sample"])

	entry, err := svc.GetLog(ctx, res.LogID)
	require.NoError(t, err)
	assert.Equal(t, EventTest, entry.EventType)
	assert.True(t, entry.Success)

	got, err := svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.SuccessCount)
}

func TestTesterFailure(t *testing.T) {
	svc, _ := newTestService(t)
	rcv := newReceiver(t, http.StatusNotFound)
	sub := mustCreate(t, svc, rcv.URL, EventLeadCreated)

	res, err := svc.Test(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, 404, *res.StatusCode)
	require.NotNil(t, res.ErrorMessage)
	assert.Equal(t, "unexpected status code 404", *res.ErrorMessage)

	got, err := svc.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.FailureCount)
}

func TestTesterInactiveSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	rcv := newReceiver(t, http.StatusOK)
	sub := mustCreate(t, svc, rcv.URL, EventLeadCreated)
	_, err := svc.ToggleActive(context.Background(), sub.ID)
	require.NoError(t, err)

	res, err := svc.Test(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, rcv.received(), 1)
}

func TestTesterUnknownSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Test(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestSecretRotationSignsWithNewSecret(t *testing.T) {
	svc, _ := newTestService(t)
	rcv := newReceiver(t, http.StatusOK)
	sub := mustCreate(t, svc, rcv.URL, EventLeadCreated)
	ctx := context.Background()

	_, err := svc.Dispatch(ctx, EventLeadCreated, nil)
	require.NoError(t, err)
	secret, err := svc.RegenerateSecret(ctx, sub.ID)
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, EventLeadCreated, nil)
	require.NoError(t, err)

	reqs := rcv.received()
	require.Len(t, reqs, 2)
	assert.True(t, Verify(sub.Secret, reqs[0].Body, reqs[0].Header.Get(SignatureHeader)))
	assert.False(t, Verify(sub.Secret, reqs[1].Body, reqs[1].Header.Get(SignatureHeader)))
	assert.True(t, Verify(secret, reqs[1].Body, reqs[1].Header.Get(SignatureHeader)))

	logs, pag, err := svc.QueryLogs(ctx, LogFilter{SubscriptionID: sub.ID}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, pag.Total)
	assert.Len(t, logs, 2)
}

func TestRedispatch(t *testing.T) {
	svc, _ := newTestService(t)
	rcv := newReceiver(t, http.StatusInternalServerError)
	sub := mustCreate(t, svc, rcv.URL, EventLeadConverted)
	ctx := context.Background()

	_, err := svc.Dispatch(ctx, EventLeadConverted, map[string]interface{}{"lead_id": "l1"})
	require.NoError(t, err)
	logs, _, err := svc.QueryLogs(ctx, LogFilter{SubscriptionID: sub.ID}, pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	failed := logs[0]

	secret, err := svc.RegenerateSecret(ctx, sub.ID)
	require.NoError(t, err)
	rcv.setStatus(http.StatusOK)

	res, err := svc.Redispatch(ctx, failed.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEqual(t, failed.ID, res.LogID)

	reqs := rcv.received()
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].Body, reqs[1].Body)
	assert.Equal(t, EventLeadConverted, reqs[1].Header.Get(HeaderEvent))
	assert.True(t, Verify(secret, reqs[1].Body, reqs[1].Header.Get(SignatureHeader)))

	original, err := svc.GetLog(ctx, failed.ID)
	require.NoError(t, err)
	assert.False(t, original.Success)

	got, err := svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.SuccessCount)
	assert.EqualValues(t, 1, got.FailureCount)
}

func TestRedispatchErrors(t *testing.T) {
	svc, _ := newTestService(t)
	rcv := newReceiver(t, http.StatusOK)
	sub := mustCreate(t, svc, rcv.URL, EventLeadCreated)
	ctx := context.Background()

	_, err := svc.Redispatch(ctx, "missing")
	assert.True(t, IsNotFound(err))

	res, err := svc.Test(ctx, sub.ID)
	require.NoError(t, err)
	_, err = svc.ToggleActive(ctx, sub.ID)
	require.NoError(t, err)
	_, err = svc.Redispatch(ctx, res.LogID)
	assert.True(t, IsValidation(err))
}
