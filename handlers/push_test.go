package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVAPIDPublicKey(t *testing.T) {
	ts := newTestServer(t)

	res := ts.do(http.MethodGet, "/api/push/vapid-public-key", nil, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.JSONEq(t, `{"publicKey":"test-public-key"}`, string(res.Body.Data))

	ts.push.enabled = false
	res = ts.do(http.MethodGet, "/api/push/vapid-public-key", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestSubscribePush(t *testing.T) {
	ts := newTestServer(t)
	u := ts.user("ada")

	body := map[string]any{
		"endpoint": "https://push.example.test/abc",
		"keys":     map[string]any{"p256dh": "key", "auth": "secret"},
	}
	res := ts.do(http.MethodPost, "/api/push/subscribe", body, token(t, u.ID))
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)

	subs, err := ts.store.PushSubscriptions(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example.test/abc", subs[0].Endpoint)

	// Same endpoint again updates in place.
	res = ts.do(http.MethodPost, "/api/push/subscribe", body, token(t, u.ID))
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	subs, err = ts.store.PushSubscriptions(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	res = ts.do(http.MethodPost, "/api/push/subscribe", body, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = ts.do(http.MethodPost, "/api/push/subscribe", map[string]any{"endpoint": "not a url"}, token(t, u.ID))
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
