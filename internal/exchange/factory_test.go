package exchange

import (
	"testing"

	"trade-exec/internal/config"
)

func TestNewAdapterSelectsVariant(t *testing.T) {
	cases := []struct {
		venue      string
		marketType string
		wantVenue  string
	}{
		{"binance", "spot", "binance"},
		{"binance", "swap", "binanceusdm"},
		{"binance", "delivery", "binancecoinm"},
		{"bithumb", "spot", "bithumb"},
	}

	for _, tc := range cases {
		adapter, err := NewAdapter(config.ExchangeConfig{Venue: tc.venue, MarketType: tc.marketType}, nil)
		if err != nil {
			t.Errorf("NewAdapter(%s, %s) returned error: %v", tc.venue, tc.marketType, err)
			continue
		}
		if adapter.Venue() != tc.wantVenue {
			t.Errorf("NewAdapter(%s, %s).Venue() = %s, want %s", tc.venue, tc.marketType, adapter.Venue(), tc.wantVenue)
		}
	}
}

func TestNewAdapterRejectsInvalidCombos(t *testing.T) {
	if _, err := NewAdapter(config.ExchangeConfig{Venue: "bithumb", MarketType: "swap"}, nil); err == nil {
		t.Errorf("bithumb futures must be rejected")
	}
	if _, err := NewAdapter(config.ExchangeConfig{Venue: "kraken", MarketType: "spot"}, nil); err == nil {
		t.Errorf("unknown venue must be rejected")
	}
	if _, err := NewAdapter(config.ExchangeConfig{Venue: "binance", MarketType: "margin"}, nil); err == nil {
		t.Errorf("unknown market type must be rejected")
	}
}
