package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/core"
)

// Wire format of the automation service. It extracts selections from the
// source bookmaker and builds the betslip on the destination; all we do here
// is one bounded request/response call per attempt.
type conversionRequest struct {
	BetslipCode          string `json:"betslip_code"`
	SourceBookmaker      string `json:"source_bookmaker"`
	DestinationBookmaker string `json:"destination_bookmaker"`
}

type wireSelection struct {
	Game         string  `json:"game"`
	Market       string  `json:"market"`
	Odds         float64 `json:"odds"`
	OriginalOdds float64 `json:"originalOdds"`
	Status       string  `json:"status"`
}

type conversionResponse struct {
	Success           bool            `json:"success"`
	NewBetslipCode    string          `json:"new_betslip_code"`
	Selections        []wireSelection `json:"converted_selections"`
	Warnings          []string        `json:"warnings"`
	PartialConversion bool            `json:"partial_conversion"`
	Error             string          `json:"error"`
	Detail            string          `json:"detail"`
}

// HTTPClient talks to the browser-automation collaborator over HTTP
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a new automation client. The per-attempt timeout is
// enforced through the request context by the orchestrator, not here.
func NewHTTPClient(baseURL string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// ConvertBetslip performs one conversion attempt. Failures are wrapped in the
// orchestrator's classification sentinels.
func (c *HTTPClient) ConvertBetslip(ctx context.Context, req *core.ConversionRequest) (*core.AutomationResponse, error) {
	body, err := json.Marshal(conversionRequest{
		BetslipCode:          req.BetslipCode,
		SourceBookmaker:      req.SourceBookmaker,
		DestinationBookmaker: req.DestinationBookmaker,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", core.ErrUpstreamRejected, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", core.ErrUpstreamRejected, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", core.ErrUpstreamTimeout, time.Since(start).Round(time.Millisecond), err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrUpstreamTransient, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", core.ErrUpstreamTransient, err)
	}

	if httpResp.StatusCode >= 400 {
		// The automation service reports conversion failures as an error
		// status with a detail field; pass the text up so the orchestrator
		// can classify it
		var failure conversionResponse
		if err := json.Unmarshal(raw, &failure); err == nil {
			if detail := firstNonEmpty(failure.Error, failure.Detail); detail != "" {
				return &core.AutomationResponse{Success: false, Error: detail, Warnings: failure.Warnings}, nil
			}
		}
		if httpResp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: automation returned status %d", core.ErrUpstreamTransient, httpResp.StatusCode)
		}
		return nil, fmt.Errorf("%w: automation returned status %d", core.ErrUpstreamRejected, httpResp.StatusCode)
	}

	var wire conversionResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		// Garbage response: retrying will not make it parseable
		return nil, fmt.Errorf("%w: undecodable response: %v", core.ErrUpstreamRejected, err)
	}

	c.logger.Debug("Automation attempt completed",
		zap.Int("status", httpResp.StatusCode),
		zap.Bool("success", wire.Success),
		zap.Int("selections", len(wire.Selections)),
		zap.Duration("duration", time.Since(start)))

	errText := firstNonEmpty(wire.Error, wire.Detail)

	resp := &core.AutomationResponse{
		Success:           wire.Success,
		BetslipCode:       wire.NewBetslipCode,
		Selections:        make([]core.ConvertedSelection, 0, len(wire.Selections)),
		Warnings:          wire.Warnings,
		PartialConversion: wire.PartialConversion,
		Error:             errText,
	}
	for _, sel := range wire.Selections {
		resp.Selections = append(resp.Selections, core.ConvertedSelection{
			Game:         sel.Game,
			Market:       sel.Market,
			Odds:         sel.Odds,
			OriginalOdds: sel.OriginalOdds,
			Status:       sel.Status,
		})
	}

	if resp.Success && resp.BetslipCode == "" {
		return nil, fmt.Errorf("%w: success response without a betslip code", core.ErrUpstreamRejected)
	}

	return resp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
