package core

import (
	"time"
)

// ConversionRequest represents an inbound betslip conversion request. The
// betslip code lives only in the memory of the request being handled; it is
// never written to the cache or the persistent store.
type ConversionRequest struct {
	BetslipCode          string
	SourceBookmaker      string
	DestinationBookmaker string
	ClientID             string
}

// ConvertedSelection represents one selection carried over to the destination
// bookmaker
type ConvertedSelection struct {
	Game         string  `json:"game"`
	Market       string  `json:"market"`
	Odds         float64 `json:"odds"`
	OriginalOdds float64 `json:"originalOdds"`
	Status       string  `json:"status"`
}

// ConversionResult is the response envelope returned to the caller. Failure
// paths use the same shape as success.
type ConversionResult struct {
	Success           bool                 `json:"success"`
	BetslipCode       string               `json:"betslipCode,omitempty"`
	Selections        []ConvertedSelection `json:"selections"`
	Warnings          []string             `json:"warnings"`
	PartialConversion bool                 `json:"partialConversion"`
	ProcessingTime    float64              `json:"processingTime"`
	FromCache         bool                 `json:"fromCache"`
	RequestID         string               `json:"requestId"`
	ErrorCode         string               `json:"errorCode,omitempty"`
	Message           string               `json:"message,omitempty"`
}

// GameMapping resolves a game on the source bookmaker to its counterpart on
// the destination bookmaker
type GameMapping struct {
	SourceBookmaker      string    `json:"sourceBookmaker"`
	DestinationBookmaker string    `json:"destinationBookmaker"`
	SourceGameID         string    `json:"sourceGameId"`
	DestinationGameID    string    `json:"destinationGameId"`
	HomeTeam             string    `json:"homeTeam"`
	AwayTeam             string    `json:"awayTeam"`
	League               string    `json:"league"`
	EventStart           time.Time `json:"eventStart"`
}

// OddsQuote is a short-lived snapshot of the odds for one market of one game
type OddsQuote struct {
	Bookmaker  string    `json:"bookmaker"`
	GameID     string    `json:"gameId"`
	Market     string    `json:"market"`
	Value      float64   `json:"value"`
	UpdatedAt  time.Time `json:"updatedAt"`
	EventStart time.Time `json:"eventStart"`
}

// ConversionRecord is the cached outcome of a conversion, keyed by bookmaker
// pair only. The submitted betslip code never becomes part of the key, so
// distinct codes for the same pair share a cached answer within the TTL
// window.
type ConversionRecord struct {
	SourceBookmaker      string               `json:"sourceBookmaker"`
	DestinationBookmaker string               `json:"destinationBookmaker"`
	BetslipCode          string               `json:"betslipCode"`
	Selections           []ConvertedSelection `json:"selections"`
	Warnings             []string             `json:"warnings"`
	PartialConversion    bool                 `json:"partialConversion"`
	ProcessingTime       float64              `json:"processingTime"`
	CreatedAt            time.Time            `json:"createdAt"`
}

// CacheStats is a read-only snapshot of cache activity
type CacheStats struct {
	HitCount        int64 `json:"hitCount"`
	MissCount       int64 `json:"missCount"`
	EntryCount      int   `json:"entryCount"`
	PrecachedRoutes int   `json:"precachedRoutes"`
}

// AutomationResponse is what the browser-automation collaborator returns for
// one conversion attempt
type AutomationResponse struct {
	Success           bool
	BetslipCode       string
	Selections        []ConvertedSelection
	Warnings          []string
	PartialConversion bool
	Error             string
}
