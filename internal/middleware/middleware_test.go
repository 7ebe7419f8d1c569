package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churncli/internal/infrastructure"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGeneratesUUID(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetReqID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, captured)
	_, err := uuid.Parse(captured)
	assert.NoError(t, err)
	assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsIncomingHeader(t *testing.T) {
	var captured, traceID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetReqID(r.Context())
		traceID = infrastructure.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-id", captured)
	assert.Equal(t, "upstream-id", traceID)
	assert.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
}

func TestGetReqIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetReqID(req.Context()))
}

func TestStructuredLoggerPassesThrough(t *testing.T) {
	handler := StructuredLogger(testLogger())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/features", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovererConvertsPanicTo500(t *testing.T) {
	handler := Recoverer(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", resp.Error.ErrorCode)
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(100, 10, testLogger())
	handler := rl.Handler(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	// One token, no refill to speak of within the test window.
	rl := NewRateLimiter(0.001, 1, testLogger())
	handler := rl.Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var resp struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Error.ErrorCode)
}
