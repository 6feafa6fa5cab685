package cache

import (
	"fmt"
	"strings"
	"time"
)

// Data kinds stored by the manager. Kind names double as key prefixes and as
// the kind column in the persistent store.
const (
	KindGameMapping     = "mapping"
	KindOdds            = "odds"
	KindBookmakerConfig = "bkcfg"
	KindConversion      = "conv"
)

// Base TTLs per kind. Freshness matters more as an event approaches, so the
// event-proximity adjustments below only ever shrink these.
const (
	gameMappingBaseTTL    = 24 * time.Hour
	gameMappingPopularTTL = 48 * time.Hour
	oddsBaseTTL           = 5 * time.Minute
	oddsVolatileTTL       = 3 * time.Minute
	bookmakerConfigTTL    = 12 * time.Hour
	conversionTTL         = 30 * time.Minute
)

// Compliance retention maximums. The retention sweep deletes persistent
// records older than these regardless of their expiry column.
var retentionMaxAges = map[string]time.Duration{
	KindGameMapping:     7 * 24 * time.Hour,
	KindOdds:            time.Hour,
	KindBookmakerConfig: 30 * 24 * time.Hour,
	KindConversion:      24 * time.Hour,
}

// Historically popular conversion routes. Staleness risk is tolerable on
// these and traffic is high, so mappings live longer.
var popularPairs = map[string]bool{
	"bet9ja:sportybet": true,
	"sportybet:bet9ja": true,
	"bet9ja:betway":    true,
	"sportybet:betway": true,
}

// IsPopularPair reports whether a route is in the fixed popular set
func IsPopularPair(source, destination string) bool {
	return popularPairs[strings.ToLower(source)+":"+strings.ToLower(destination)]
}

// PopularPairs returns the fixed popular routes as source:destination strings
func PopularPairs() []string {
	pairs := make([]string, 0, len(popularPairs))
	for pair := range popularPairs {
		pairs = append(pairs, pair)
	}
	return pairs
}

// GameMappingTTL computes the TTL for a game mapping. Popular routes keep
// mappings longer; mappings for events about to start are held briefly.
func GameMappingTTL(source, destination string, eventStart, now time.Time) time.Duration {
	if !eventStart.IsZero() {
		untilStart := eventStart.Sub(now)
		if untilStart <= 2*time.Hour {
			return 30 * time.Minute
		}
		if untilStart <= 6*time.Hour {
			return 2 * time.Hour
		}
	}
	if IsPopularPair(source, destination) {
		return gameMappingPopularTTL
	}
	return gameMappingBaseTTL
}

// VolatileMarket reports whether a market's odds move fast enough to warrant
// a shorter TTL
func VolatileMarket(market string) bool {
	lower := strings.ToLower(market)
	return strings.Contains(lower, "over/under") ||
		strings.Contains(lower, "match result") ||
		strings.Contains(lower, "1x2") ||
		strings.Contains(lower, "totals")
}

// OddsTTL computes the TTL for an odds quote
func OddsTTL(market string, eventStart, now time.Time) time.Duration {
	if !eventStart.IsZero() {
		untilStart := eventStart.Sub(now)
		if untilStart <= time.Hour {
			return time.Minute
		}
		if untilStart <= 3*time.Hour {
			return 2 * time.Minute
		}
	}
	if VolatileMarket(market) {
		return oddsVolatileTTL
	}
	return oddsBaseTTL
}

// BookmakerConfigTTL returns the fixed hours-long TTL for configuration blobs
func BookmakerConfigTTL() time.Duration {
	return bookmakerConfigTTL
}

// ConversionTTL returns the fixed compliance-bounded TTL for conversion
// records. Popularity never extends it.
func ConversionTTL() time.Duration {
	return conversionTTL
}

// RetentionMaxAge returns the compliance maximum age for a kind
func RetentionMaxAge(kind string) (time.Duration, bool) {
	age, ok := retentionMaxAges[kind]
	return age, ok
}

// RetentionKinds returns every kind subject to the retention sweep
func RetentionKinds() []string {
	kinds := make([]string, 0, len(retentionMaxAges))
	for kind := range retentionMaxAges {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Key builders. The conversion key is pair-only: the submitted betslip code
// must never appear in it.

func gameMappingKey(source, destination, gameID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", KindGameMapping, strings.ToLower(source), strings.ToLower(destination), gameID)
}

func oddsKey(bookmaker, gameID, market string) string {
	return fmt.Sprintf("%s:%s:%s:%s", KindOdds, strings.ToLower(bookmaker), gameID, strings.ToLower(market))
}

func bookmakerConfigKey(bookmaker string) string {
	return fmt.Sprintf("%s:%s", KindBookmakerConfig, strings.ToLower(bookmaker))
}

func conversionKey(source, destination string) string {
	return fmt.Sprintf("%s:%s:%s", KindConversion, strings.ToLower(source), strings.ToLower(destination))
}
