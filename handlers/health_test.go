package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	res := ts.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "OK", res.Raw)

	res = ts.do(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.True(t, res.Body.Success)
}

func TestUnknownAPIRoute(t *testing.T) {
	ts := newTestServer(t)

	res := ts.do(http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.JSONEq(t, `{"success":false,"message":"Endpoint not found","data":null}`, res.Raw)
}

func TestStoreFailureHidesCause(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.Close())

	res := ts.do(http.MethodGet, "/api/feed", nil, "")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal server error","data":null}`, res.Raw)

	res = ts.do(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, withLimiter(2))

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/feed", nil, "").Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/feed", nil, "").Code)

	res := ts.do(http.MethodGet, "/api/feed", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "Too many requests", res.Body.Message)

	// The plain health check is outside the limiter.
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/health", nil, "").Code)
}
