package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

// ComplianceLogger emits the audit trail for conversion attempts. Client
// identifiers are anonymized before they reach the log; the submitted betslip
// code is never logged at all.
type ComplianceLogger struct {
	logger *zap.Logger
}

// NewComplianceLogger creates a compliance logger as a named child of the
// application logger
func NewComplianceLogger(logger *zap.Logger) *ComplianceLogger {
	return &ComplianceLogger{
		logger: logger.Named("compliance"),
	}
}

// AnonymizeClient reduces a client identifier to a stable short digest
func AnonymizeClient(clientID string) string {
	sum := sha256.Sum256([]byte(clientID))
	return hex.EncodeToString(sum[:8])
}

// RecordConversion logs a completed conversion attempt
func (c *ComplianceLogger) RecordConversion(requestID, clientID, source, destination string, fromCache bool, duration time.Duration) {
	c.logger.Info("Conversion completed",
		zap.String("request_id", requestID),
		zap.String("client", AnonymizeClient(clientID)),
		zap.String("source", source),
		zap.String("destination", destination),
		zap.Bool("from_cache", fromCache),
		zap.Duration("duration", duration))
}

// RecordFailure logs a failed conversion attempt with its classified reason
func (c *ComplianceLogger) RecordFailure(requestID, clientID, source, destination, reason string, duration time.Duration) {
	c.logger.Warn("Conversion failed",
		zap.String("request_id", requestID),
		zap.String("client", AnonymizeClient(clientID)),
		zap.String("source", source),
		zap.String("destination", destination),
		zap.String("reason", reason),
		zap.Duration("duration", duration))
}

// RecordRetention logs the outcome of a retention sweep
func (c *ComplianceLogger) RecordRetention(kind string, deleted int64, cutoff time.Time) {
	c.logger.Info("Retention sweep",
		zap.String("kind", kind),
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
}
