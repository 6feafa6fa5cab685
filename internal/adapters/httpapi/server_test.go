package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/cache"
	"github.com/jsodeh/konvato/internal/core"
	"github.com/jsodeh/konvato/internal/logging"
	"github.com/jsodeh/konvato/internal/ratelimit"
)

type stubAutomation struct {
	calls int
}

func (a *stubAutomation) ConvertBetslip(ctx context.Context, req *core.ConversionRequest) (*core.AutomationResponse, error) {
	a.calls++
	return &core.AutomationResponse{
		Success:     true,
		BetslipCode: "DST123",
		Selections: []core.ConvertedSelection{{
			Game:         "Arsenal vs Chelsea",
			Market:       "Match Result",
			Odds:         1.85,
			OriginalOdds: 1.85,
			Status:       "converted",
		}},
	}, nil
}

func newTestServer(t *testing.T, limit int) (*Server, *stubAutomation, func()) {
	t.Helper()
	logger := zap.NewNop()

	memory := cache.NewTTLCache(logger, time.Minute)
	manager := cache.NewManager(memory, nil, logger, logging.NewComplianceLogger(logger), time.Hour)
	limiter := ratelimit.NewSlidingWindow(limit, time.Minute, time.Minute, logger)

	registry, err := core.NewBookmakerRegistry(core.DefaultBookmakers(), logger)
	require.NoError(t, err)

	automation := &stubAutomation{}
	service := core.NewConversionService(
		automation,
		manager,
		registry,
		logger,
		logging.NewComplianceLogger(logger),
		time.Second,
		3,
		time.Millisecond,
	)

	server := NewServer(service, manager, limiter, logger, ":0")

	cleanup := func() {
		limiter.Stop()
		manager.Stop()
	}
	return server, automation, cleanup
}

func postConvert(server *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestConvertEndpoint_Success(t *testing.T) {
	server, automation, cleanup := newTestServer(t, 10)
	defer cleanup()

	rec := postConvert(server, `{"betslipCode":"ABC123","sourceBookmaker":"bet9ja","destinationBookmaker":"sportybet"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, automation.calls)

	var result core.ConversionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "DST123", result.BetslipCode)
	assert.Len(t, result.Selections, 1)
	assert.False(t, result.FromCache)
	assert.NotEmpty(t, result.RequestID)
}

func TestConvertEndpoint_MissingFields(t *testing.T) {
	server, automation, cleanup := newTestServer(t, 10)
	defer cleanup()

	rec := postConvert(server, `{"betslipCode":"ABC123"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, automation.calls)

	var result core.ConversionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, core.CodeValidation, result.ErrorCode)
}

func TestConvertEndpoint_SamePairRejected(t *testing.T) {
	server, automation, cleanup := newTestServer(t, 10)
	defer cleanup()

	rec := postConvert(server, `{"betslipCode":"ABC123","sourceBookmaker":"bet9ja","destinationBookmaker":"bet9ja"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, automation.calls)
}

func TestConvertEndpoint_RateLimited(t *testing.T) {
	server, _, cleanup := newTestServer(t, 2)
	defer cleanup()

	body := `{"betslipCode":"ABC123","sourceBookmaker":"bet9ja","destinationBookmaker":"sportybet"}`
	for i := 0; i < 2; i++ {
		rec := postConvert(server, body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postConvert(server, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var result core.ConversionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, core.CodeRateLimited, result.ErrorCode)
	assert.NotNil(t, result.Selections)
	assert.NotNil(t, result.Warnings)
}

func TestCacheStatsEndpoint(t *testing.T) {
	server, _, cleanup := newTestServer(t, 10)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats core.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
}

func TestHealthEndpoint(t *testing.T) {
	server, _, cleanup := newTestServer(t, 10)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
