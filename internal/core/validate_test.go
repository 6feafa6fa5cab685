package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *BookmakerRegistry {
	t.Helper()
	registry, err := NewBookmakerRegistry(DefaultBookmakers(), zap.NewNop())
	require.NoError(t, err)
	return registry
}

func TestValidBetslipCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"ABC123", true},
		{"ABC-123", true},
		{"ABC_123", true},
		{"  ABC123  ", true},
		{"A1B2C3D4E5F6G7H8I9J0", true},
		{"", false},
		{"abcd", false},
		{"AB12", false},
		{"has space", false},
		{"bad.code!", false},
		{"A1B2C3D4E5F6G7H8I9J0X", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidBetslipCode(tt.code))
		})
	}
}

func TestValidateRequest(t *testing.T) {
	registry := testRegistry(t)

	tests := []struct {
		name    string
		req     *ConversionRequest
		wantErr string
	}{
		{
			name: "valid request",
			req:  &ConversionRequest{BetslipCode: "ABC123", SourceBookmaker: "bet9ja", DestinationBookmaker: "sportybet"},
		},
		{
			name:    "nil request",
			wantErr: "request is empty",
		},
		{
			name:    "missing code",
			req:     &ConversionRequest{SourceBookmaker: "bet9ja", DestinationBookmaker: "sportybet"},
			wantErr: "betslip code is required",
		},
		{
			name:    "malformed code",
			req:     &ConversionRequest{BetslipCode: "a!", SourceBookmaker: "bet9ja", DestinationBookmaker: "sportybet"},
			wantErr: "betslip code must be",
		},
		{
			name:    "same bookmaker both sides",
			req:     &ConversionRequest{BetslipCode: "ABC123", SourceBookmaker: "bet9ja", DestinationBookmaker: "Bet9ja"},
			wantErr: "must differ",
		},
		{
			name:    "unknown source",
			req:     &ConversionRequest{BetslipCode: "ABC123", SourceBookmaker: "nairabet", DestinationBookmaker: "sportybet"},
			wantErr: "unsupported source",
		},
		{
			name:    "unknown destination",
			req:     &ConversionRequest{BetslipCode: "ABC123", SourceBookmaker: "bet9ja", DestinationBookmaker: "nairabet"},
			wantErr: "unsupported destination",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req, registry)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			cerr, ok := err.(*ConversionError)
			require.True(t, ok)
			assert.Equal(t, CodeValidation, cerr.Code)
			assert.Contains(t, cerr.Message, tt.wantErr)
		})
	}
}

func TestBookmakerConfigValidate(t *testing.T) {
	valid := &BookmakerConfig{
		ID:                "bet9ja",
		Name:              "Bet9ja",
		BaseURL:           "https://www.bet9ja.com",
		BetslipURLPattern: "https://www.bet9ja.com/betslip/{code}",
	}
	assert.NoError(t, valid.Validate())

	malformed := &BookmakerConfig{
		ID:                "bad",
		Name:              "Bad",
		BaseURL:           "https://bad.example",
		BetslipURLPattern: "https://bad.example/betslip",
	}
	assert.Error(t, malformed.Validate(), "pattern without {code} must be rejected at the boundary")
}

func TestNewBookmakerRegistry_RejectsMalformedEntries(t *testing.T) {
	_, err := NewBookmakerRegistry([]*BookmakerConfig{{ID: ""}}, zap.NewNop())
	assert.Error(t, err)
}
