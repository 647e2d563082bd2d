package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"), func(c *gin.Context) { c.Next() })
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHandlerSubscriptionLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)
	rcv := newReceiver(t, http.StatusOK)

	w := doJSON(t, r, http.MethodPost, "/api/v1/webhooks", gin.H{
		"name":   "CRM",
		"url":    rcv.URL,
		"events": []string{EventPartnerApproved},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[subscriptionResponse](t, w)
	assert.Len(t, created.Secret, 64)
	assert.True(t, created.IsActive)

	w = doJSON(t, r, http.MethodGet, "/api/v1/webhooks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Data []subscriptionResponse `json:"data"`
	}](t, w)
	require.Len(t, list.Data, 1)
	assert.Empty(t, list.Data[0].Secret)

	w = doJSON(t, r, http.MethodPatch, "/api/v1/webhooks/"+created.ID, gin.H{"description": "sync"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sync", decode[subscriptionResponse](t, w).Description)

	w = doJSON(t, r, http.MethodPost, "/api/v1/webhooks/"+created.ID+"/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[TestResult](t, w)
	assert.True(t, res.Success)

	w = doJSON(t, r, http.MethodGet, "/api/v1/webhooks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[subscriptionResponse](t, w)
	assert.EqualValues(t, 1, detail.SuccessCount)
	require.NotNil(t, detail.DeliveryCount)
	assert.EqualValues(t, 1, *detail.DeliveryCount)

	w = doJSON(t, r, http.MethodPost, "/api/v1/webhooks/"+created.ID+"/secret", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, created.Secret, decode[secretResponse](t, w).Secret)

	w = doJSON(t, r, http.MethodPost, "/api/v1/webhooks/"+created.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[subscriptionResponse](t, w).IsActive)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/webhooks/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/webhooks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/webhooks", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/webhooks", gin.H{"name": "x", "url": "https://a.example", "events": []string{"bogus"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/v1/webhooks/missing", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/webhooks/missing/test", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/webhooks/logs?success=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/webhooks/logs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerEvents(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/v1/webhooks/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[eventsResponse](t, w)
	assert.Len(t, out.Events, len(EventTypes()))
	assert.Len(t, out.Categories, len(EventCategories()))
}

func TestHandlerLogs(t *testing.T) {
	r, svc := newTestRouter(t)
	ok := newReceiver(t, http.StatusOK)
	bad := newReceiver(t, http.StatusInternalServerError)
	good := mustCreate(t, svc, ok.URL, EventLeadCreated)
	failing := mustCreate(t, svc, bad.URL, EventLeadCreated)
	for i := 0; i < 3; i++ {
		_, err := svc.Dispatch(t.Context(), EventLeadCreated, nil)
		require.NoError(t, err)
	}

	type page struct {
		Data       []deliveryLogResponse `json:"data"`
		Pagination struct {
			Total     int64 `json:"total"`
			TotalPage int   `json:"total_page"`
		} `json:"pagination"`
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/webhooks/logs?success=false&size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[page](t, w)
	assert.EqualValues(t, 3, p.Pagination.Total)
	assert.Equal(t, 2, p.Pagination.TotalPage)
	require.Len(t, p.Data, 2)
	for _, l := range p.Data {
		assert.Equal(t, failing.ID, l.SubscriptionID)
		assert.Equal(t, "Lead created", l.EventLabel)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/webhooks/logs?subscriptionId="+good.ID+"&eventType="+EventLeadCreated, nil)
	require.Equal(t, http.StatusOK, w.Code)
	p = decode[page](t, w)
	assert.EqualValues(t, 3, p.Pagination.Total)

	w = doJSON(t, r, http.MethodGet, "/api/v1/webhooks/logs/"+p.Data[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, p.Data[0].ID, decode[deliveryLogResponse](t, w).ID)

	w = doJSON(t, r, http.MethodPost, "/api/v1/webhooks/logs/"+p.Data[0].ID+"/redispatch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[TestResult](t, w).Success)
	assert.Len(t, ok.received(), 4)
}
