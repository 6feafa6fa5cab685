package core

import (
	"regexp"
	"strings"
)

// Betslip codes are short identifiers of 6 to 20 letters, digits, hyphens or
// underscores on every supported platform
var betslipCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// ValidBetslipCode reports whether a submitted code is structurally plausible.
// Surrounding whitespace is ignored.
func ValidBetslipCode(code string) bool {
	return betslipCodePattern.MatchString(strings.TrimSpace(code))
}

// ValidateRequest performs structural checks only. A request failing here
// never reaches the automation collaborator and never triggers a retry.
func ValidateRequest(req *ConversionRequest, registry *BookmakerRegistry) error {
	if req == nil {
		return NewValidationError("request is empty")
	}
	if strings.TrimSpace(req.BetslipCode) == "" {
		return NewValidationError("betslip code is required")
	}
	if !ValidBetslipCode(req.BetslipCode) {
		return NewValidationError("betslip code must be 6-20 letters, digits, hyphens or underscores")
	}
	if strings.TrimSpace(req.SourceBookmaker) == "" || strings.TrimSpace(req.DestinationBookmaker) == "" {
		return NewValidationError("source and destination bookmakers are required")
	}
	if strings.EqualFold(req.SourceBookmaker, req.DestinationBookmaker) {
		return NewValidationError("source and destination bookmakers must differ")
	}
	if !registry.IsSupported(req.SourceBookmaker) {
		return NewValidationError("unsupported source bookmaker")
	}
	if !registry.IsSupported(req.DestinationBookmaker) {
		return NewValidationError("unsupported destination bookmaker")
	}
	return nil
}
