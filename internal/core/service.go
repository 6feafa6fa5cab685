package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/logging"
	"github.com/jsodeh/konvato/internal/metrics"
)

// Converted odds whose absolute difference from the source odds exceeds this
// produce a warning in the envelope
const oddsTolerance = 0.05

// ConversionService orchestrates a betslip conversion: validation, cache
// lookup, bounded collaborator attempts with classification and backoff, and
// sanitized cache writes
type ConversionService struct {
	automation     AutomationClient
	cache          ConversionCache
	registry       *BookmakerRegistry
	logger         *zap.Logger
	compliance     *logging.ComplianceLogger
	attemptTimeout time.Duration
	maxAttempts    int
	backoffBase    time.Duration
}

// NewConversionService creates a new conversion orchestrator
func NewConversionService(
	automation AutomationClient,
	cache ConversionCache,
	registry *BookmakerRegistry,
	logger *zap.Logger,
	compliance *logging.ComplianceLogger,
	attemptTimeout time.Duration,
	maxAttempts int,
	backoffBase time.Duration,
) *ConversionService {
	return &ConversionService{
		automation:     automation,
		cache:          cache,
		registry:       registry,
		logger:         logger,
		compliance:     compliance,
		attemptTimeout: attemptTimeout,
		maxAttempts:    maxAttempts,
		backoffBase:    backoffBase,
	}
}

// Convert handles one conversion request end to end. Every outcome, success
// or failure, is returned in the same envelope shape.
func (s *ConversionService) Convert(ctx context.Context, req *ConversionRequest) *ConversionResult {
	start := time.Now()
	requestID := uuid.NewString()

	var source, destination string
	if req != nil {
		source = strings.ToLower(req.SourceBookmaker)
		destination = strings.ToLower(req.DestinationBookmaker)
	}

	if err := ValidateRequest(req, s.registry); err != nil {
		s.logger.Debug("Request rejected by validation",
			zap.String("request_id", requestID),
			zap.Error(err))
		metrics.ConversionsTotal.WithLabelValues(source, destination, "validation_error").Inc()
		return s.failure(requestID, CodeValidation, validationMessage(err), nil, start)
	}

	// Pair-only cache key: the submitted code is deliberately excluded, so a
	// hit here answers any code for the same route within the TTL window.
	if record, ok := s.cache.GetConversion(ctx, source, destination); ok {
		elapsed := time.Since(start)
		metrics.ConversionsTotal.WithLabelValues(source, destination, "cache_hit").Inc()
		s.compliance.RecordConversion(requestID, req.ClientID, source, destination, true, elapsed)
		return resultFromRecord(record, requestID, elapsed)
	}

	resp, err := s.invokeWithRetry(ctx, req)
	if err != nil {
		code := ClassifyAttempt(err)
		elapsed := time.Since(start)
		s.logger.Error("Conversion failed",
			zap.String("request_id", requestID),
			zap.String("source", source),
			zap.String("destination", destination),
			zap.String("code", code),
			zap.Error(err))
		metrics.ConversionsTotal.WithLabelValues(source, destination, "failure_"+strings.ToLower(code)).Inc()
		s.compliance.RecordFailure(requestID, req.ClientID, source, destination, code, elapsed)
		return s.failure(requestID, code, SafeMessage(code), upstreamWarnings(err), start)
	}

	elapsed := time.Since(start)
	warnings := append([]string{}, resp.Warnings...)
	warnings = append(warnings, oddsDriftWarnings(resp.Selections)...)

	record := &ConversionRecord{
		SourceBookmaker:      source,
		DestinationBookmaker: destination,
		BetslipCode:          resp.BetslipCode,
		Selections:           resp.Selections,
		Warnings:             warnings,
		PartialConversion:    resp.PartialConversion,
		ProcessingTime:       elapsed.Seconds() * 1000,
		CreatedAt:            time.Now(),
	}
	s.cache.SetConversion(ctx, record)

	metrics.ConversionsTotal.WithLabelValues(source, destination, "success").Inc()
	metrics.ConversionDuration.WithLabelValues(source, destination).Observe(elapsed.Seconds())
	s.compliance.RecordConversion(requestID, req.ClientID, source, destination, false, elapsed)

	return &ConversionResult{
		Success:           true,
		BetslipCode:       resp.BetslipCode,
		Selections:        resp.Selections,
		Warnings:          warnings,
		PartialConversion: resp.PartialConversion,
		ProcessingTime:    elapsed.Seconds() * 1000,
		FromCache:         false,
		RequestID:         requestID,
	}
}

// invokeWithRetry runs bounded collaborator attempts. Each attempt gets its
// own timeout; the gap before each retry doubles from the configured base.
// Non-retryable classifications abort immediately.
func (s *ConversionService) invokeWithRetry(ctx context.Context, req *ConversionRequest) (*AutomationResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := BackoffDelay(s.backoffBase, attempt-1)
			s.logger.Debug("Backing off before retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, ctx.Err())
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		resp, err := s.automation.ConvertBetslip(attemptCtx, req)
		cancel()

		if err == nil && resp.Success {
			metrics.AutomationAttempts.WithLabelValues("success").Inc()
			return resp, nil
		}
		if err == nil {
			// Collaborator answered but could not convert; classify its
			// error text
			err = classifyUpstreamFailure(resp.Error)
		}

		lastErr = err
		metrics.AutomationAttempts.WithLabelValues(strings.ToLower(ClassifyAttempt(err))).Inc()
		if ClassifyAttempt(err) == CodeTimeout {
			metrics.AutomationTimeouts.Inc()
		}

		if !Retryable(err) {
			break
		}
	}

	return nil, lastErr
}

// BackoffDelay returns the pure backoff delay before retry number n (1-based):
// base, 2*base, 4*base, ...
func BackoffDelay(base time.Duration, n int) time.Duration {
	if n < 1 {
		return 0
	}
	return base << (n - 1)
}

// classifyUpstreamFailure maps collaborator error text onto the attempt
// taxonomy. Unrecognized failures are treated as non-retryable: repeating a
// request the collaborator understood and rejected wastes its budget.
func classifyUpstreamFailure(errText string) error {
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return fmt.Errorf("%w: %s", ErrUpstreamTimeout, errText)
	case strings.Contains(lower, "blocked"), strings.Contains(lower, "bot"),
		strings.Contains(lower, "memory"), strings.Contains(lower, "queue"),
		strings.Contains(lower, "unavailable"), strings.Contains(lower, "overload"):
		return fmt.Errorf("%w: %s", ErrUpstreamTransient, errText)
	default:
		return fmt.Errorf("%w: %s", ErrUpstreamRejected, errText)
	}
}

// upstreamWarnings translates a classified failure into user-safe warnings,
// never echoing upstream error text
func upstreamWarnings(err error) []string {
	switch ClassifyAttempt(err) {
	case CodeTimeout:
		return []string{"Betslip conversion timed out - the bookmaker may be slow or unavailable"}
	case CodeUpstreamTransient:
		return []string{"The conversion service is under load - try again shortly"}
	case CodeUpstreamRejected:
		return []string{"Some games or markets were not available on the destination bookmaker"}
	default:
		return nil
	}
}

// oddsDriftWarnings flags selections whose converted odds differ from the
// source odds by more than the tolerance
func oddsDriftWarnings(selections []ConvertedSelection) []string {
	var warnings []string
	for _, sel := range selections {
		if sel.OriginalOdds <= 0 || sel.Odds <= 0 {
			continue
		}
		if math.Abs(sel.Odds-sel.OriginalOdds) > oddsTolerance {
			warnings = append(warnings, fmt.Sprintf("Odds changed for %s (%s): %.2f -> %.2f", sel.Game, sel.Market, sel.OriginalOdds, sel.Odds))
		}
	}
	return warnings
}

// failure builds the uniform failure envelope
func (s *ConversionService) failure(requestID, code, message string, warnings []string, start time.Time) *ConversionResult {
	if warnings == nil {
		warnings = []string{}
	}
	return &ConversionResult{
		Success:        false,
		Selections:     []ConvertedSelection{},
		Warnings:       warnings,
		ProcessingTime: time.Since(start).Seconds() * 1000,
		FromCache:      false,
		RequestID:      requestID,
		ErrorCode:      code,
		Message:        message,
	}
}

// resultFromRecord converts a cached record into a response envelope
func resultFromRecord(record *ConversionRecord, requestID string, elapsed time.Duration) *ConversionResult {
	return &ConversionResult{
		Success:           true,
		BetslipCode:       record.BetslipCode,
		Selections:        record.Selections,
		Warnings:          record.Warnings,
		PartialConversion: record.PartialConversion,
		ProcessingTime:    elapsed.Seconds() * 1000,
		FromCache:         true,
		RequestID:         requestID,
	}
}

func validationMessage(err error) string {
	if cerr, ok := err.(*ConversionError); ok {
		return cerr.Message
	}
	return SafeMessage(CodeValidation)
}
