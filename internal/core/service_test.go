package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/logging"
)

// fakeCache is an in-memory ConversionCache for orchestrator tests
type fakeCache struct {
	mu      sync.Mutex
	records map[string]*ConversionRecord
	configs map[string]*BookmakerConfig
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		records: make(map[string]*ConversionRecord),
		configs: make(map[string]*BookmakerConfig),
	}
}

func (c *fakeCache) GetConversion(ctx context.Context, source, destination string) (*ConversionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[source+":"+destination]
	return rec, ok
}

func (c *fakeCache) SetConversion(ctx context.Context, record *ConversionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.SourceBookmaker+":"+record.DestinationBookmaker] = record
}

func (c *fakeCache) GetBookmakerConfig(ctx context.Context, bookmaker string) (*BookmakerConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.configs[bookmaker]
	return cfg, ok
}

// scriptedAutomation replays a fixed sequence of attempt outcomes
type scriptedAutomation struct {
	mu        sync.Mutex
	responses []func() (*AutomationResponse, error)
	calls     int
}

func (a *scriptedAutomation) ConvertBetslip(ctx context.Context, req *ConversionRequest) (*AutomationResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	a.calls++
	if idx >= len(a.responses) {
		idx = len(a.responses) - 1
	}
	return a.responses[idx]()
}

func (a *scriptedAutomation) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func successResponse(selections int) func() (*AutomationResponse, error) {
	return func() (*AutomationResponse, error) {
		sels := make([]ConvertedSelection, 0, selections)
		for i := 0; i < selections; i++ {
			sels = append(sels, ConvertedSelection{
				Game:         fmt.Sprintf("Home %d vs Away %d", i, i),
				Market:       "Match Result",
				Odds:         1.85,
				OriginalOdds: 1.85,
				Status:       "converted",
			})
		}
		return &AutomationResponse{Success: true, BetslipCode: "DST123", Selections: sels}, nil
	}
}

func failWith(sentinel error) func() (*AutomationResponse, error) {
	return func() (*AutomationResponse, error) {
		return nil, fmt.Errorf("%w: scripted failure", sentinel)
	}
}

func newTestService(t *testing.T, automation AutomationClient, cache ConversionCache) *ConversionService {
	t.Helper()
	logger := zap.NewNop()
	return NewConversionService(
		automation,
		cache,
		testRegistry(t),
		logger,
		logging.NewComplianceLogger(logger),
		time.Second,
		3,
		time.Millisecond,
	)
}

func TestConvert_SuccessOnEmptyCache(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){successResponse(3)}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
		ClientID:             "client-1",
	})

	require.True(t, result.Success)
	assert.Equal(t, 1, automation.callCount(), "empty cache must trigger exactly one collaborator call")
	assert.Len(t, result.Selections, 3)
	assert.False(t, result.FromCache)
	assert.Equal(t, "DST123", result.BetslipCode)
	assert.NotEmpty(t, result.RequestID)
}

func TestConvert_DistinctCodesShareCachedAnswer(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){successResponse(2)}}
	service := newTestService(t, automation, newFakeCache())
	ctx := context.Background()

	first := service.Convert(ctx, &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})
	require.True(t, first.Success)
	require.False(t, first.FromCache)

	// Different submitted code, same pair: served from cache within the TTL
	// window. Deliberate speed/privacy trade-off, not a bug.
	second := service.Convert(ctx, &ConversionRequest{
		BetslipCode:          "XYZ999",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.BetslipCode, second.BetslipCode)
	assert.Equal(t, first.Selections, second.Selections)
	assert.Equal(t, 1, automation.callCount(), "cache hit must not call the collaborator")
}

func TestConvert_ValidationFailureNeverCallsCollaborator(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){successResponse(1)}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "bet9ja",
	})

	require.False(t, result.Success)
	assert.Equal(t, CodeValidation, result.ErrorCode)
	assert.Equal(t, 0, automation.callCount())
	assert.NotEmpty(t, result.RequestID)
}

func TestConvert_NonRetryableAbortsAfterOneCall(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){failWith(ErrUpstreamRejected)}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})

	require.False(t, result.Success)
	assert.Equal(t, CodeUpstreamRejected, result.ErrorCode)
	assert.Equal(t, 1, automation.callCount(), "non-retryable classification must abort immediately")
}

func TestConvert_AllTimeoutsSurfaceTimeout(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){
		failWith(ErrUpstreamTimeout),
		failWith(ErrUpstreamTimeout),
		failWith(ErrUpstreamTimeout),
	}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})

	require.False(t, result.Success)
	assert.Equal(t, CodeTimeout, result.ErrorCode)
	assert.Equal(t, 3, automation.callCount(), "retryable failures use the full attempt budget")
	assert.Empty(t, result.Selections, "no partial success after exhausted attempts")
}

func TestConvert_TransientThenSuccess(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){
		failWith(ErrUpstreamTransient),
		successResponse(1),
	}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})

	require.True(t, result.Success)
	assert.Equal(t, 2, automation.callCount())
}

func TestConvert_UpstreamFailureTextIsClassified(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){
		func() (*AutomationResponse, error) {
			return &AutomationResponse{Success: false, Error: "Game not found on destination"}, nil
		},
	}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})

	require.False(t, result.Success)
	assert.Equal(t, CodeUpstreamRejected, result.ErrorCode)
	assert.Equal(t, 1, automation.callCount())
	assert.NotContains(t, result.Message, "not found", "upstream text must not leak to the caller")
}

func TestConvert_FailureEnvelopeShapeMatchesSuccess(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){failWith(ErrUpstreamTransient)}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})

	require.False(t, result.Success)
	assert.NotNil(t, result.Selections)
	assert.NotNil(t, result.Warnings)
	assert.NotEmpty(t, result.RequestID)
	assert.NotEmpty(t, result.ErrorCode)
	assert.NotEmpty(t, result.Message)
	assert.GreaterOrEqual(t, result.ProcessingTime, 0.0)
}

func TestConvert_OddsDriftProducesWarning(t *testing.T) {
	automation := &scriptedAutomation{responses: []func() (*AutomationResponse, error){
		func() (*AutomationResponse, error) {
			return &AutomationResponse{
				Success:     true,
				BetslipCode: "DST123",
				Selections: []ConvertedSelection{
					{
						Game:         "Arsenal vs Chelsea",
						Market:       "Match Result",
						Odds:         2.50,
						OriginalOdds: 2.00,
						Status:       "converted",
					},
					{
						Game:         "Liverpool vs Everton",
						Market:       "Match Result",
						Odds:         1.88,
						OriginalOdds: 1.85,
						Status:       "converted",
					},
				},
			}, nil
		},
	}}
	service := newTestService(t, automation, newFakeCache())

	result := service.Convert(context.Background(), &ConversionRequest{
		BetslipCode:          "ABC123",
		SourceBookmaker:      "bet9ja",
		DestinationBookmaker: "sportybet",
	})

	require.True(t, result.Success)
	require.Len(t, result.Warnings, 1, "only the selection beyond the 0.05 tolerance warns")
	assert.Contains(t, result.Warnings[0], "Arsenal vs Chelsea")
	assert.Contains(t, result.Warnings[0], "Odds changed")
}

func TestBackoffDelay_StrictlyIncreasing(t *testing.T) {
	base := 2 * time.Second

	assert.Equal(t, time.Duration(0), BackoffDelay(base, 0))
	assert.Equal(t, 2*time.Second, BackoffDelay(base, 1))
	assert.Equal(t, 4*time.Second, BackoffDelay(base, 2))
	assert.Equal(t, 8*time.Second, BackoffDelay(base, 3))

	for n := 1; n < 6; n++ {
		assert.Greater(t, BackoffDelay(base, n+1), BackoffDelay(base, n))
	}
}

func TestClassifyAttempt(t *testing.T) {
	assert.Equal(t, CodeTimeout, ClassifyAttempt(fmt.Errorf("%w: x", ErrUpstreamTimeout)))
	assert.Equal(t, CodeUpstreamTransient, ClassifyAttempt(fmt.Errorf("%w: x", ErrUpstreamTransient)))
	assert.Equal(t, CodeUpstreamRejected, ClassifyAttempt(fmt.Errorf("%w: x", ErrUpstreamRejected)))
	assert.Equal(t, CodeInternal, ClassifyAttempt(fmt.Errorf("boom")))
}

func TestClassifyUpstreamFailure(t *testing.T) {
	tests := []struct {
		text string
		code string
	}{
		{"Betslip creation timed out", CodeTimeout},
		{"Access blocked by anti-bot protection", CodeUpstreamTransient},
		{"System memory pressure detected", CodeUpstreamTransient},
		{"Game not found on destination", CodeUpstreamRejected},
		{"something else entirely", CodeUpstreamRejected},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.code, ClassifyAttempt(classifyUpstreamFailure(tt.text)))
		})
	}
}
