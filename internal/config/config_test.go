package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
exchange:
  venue: binance
  market_type: spot
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Trading.Retry.Plain.MaxAttempts != DefaultPlainMaxAttempts {
		t.Errorf("plain max_attempts = %d, want %d", cfg.Trading.Retry.Plain.MaxAttempts, DefaultPlainMaxAttempts)
	}
	if cfg.Trading.Retry.EntryClose.MaxAttempts != DefaultEntryCloseMaxAttempts {
		t.Errorf("entry_close max_attempts = %d, want %d", cfg.Trading.Retry.EntryClose.MaxAttempts, DefaultEntryCloseMaxAttempts)
	}
	if cfg.Trading.Retry.Plain.Delay != DefaultRetryDelay {
		t.Errorf("retry delay = %v, want %v", cfg.Trading.Retry.Plain.Delay, DefaultRetryDelay)
	}
	if cfg.Trading.Split.Buy.Threshold != DefaultBuySplitThreshold {
		t.Errorf("buy threshold = %v, want %v", cfg.Trading.Split.Buy.Threshold, DefaultBuySplitThreshold)
	}
	if cfg.Trading.Split.Sell.Bias != DefaultSellSplitBias {
		t.Errorf("sell bias = %d, want %d", cfg.Trading.Split.Sell.Bias, DefaultSellSplitBias)
	}
	if cfg.Trading.SpotBuyMarginPercent != DefaultSpotBuyMarginPercent {
		t.Errorf("spot buy margin = %v, want %v", cfg.Trading.SpotBuyMarginPercent, DefaultSpotBuyMarginPercent)
	}
	if cfg.Trading.PositionMode != "one-way" {
		t.Errorf("position mode = %q, want one-way", cfg.Trading.PositionMode)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
exchange:
  venue: bithumb
  market_type: spot
trading:
  split:
    buy:
      threshold: 100000
      bias: 1
      pacing: 20s
    sell:
      threshold: 150000
      bias: 2
      pacing: 10s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Trading.Split.Buy.Pacing != 20*time.Second {
		t.Errorf("buy pacing = %v, want 20s", cfg.Trading.Split.Buy.Pacing)
	}
	if cfg.Trading.Split.Sell.Pacing != 10*time.Second {
		t.Errorf("sell pacing = %v, want 10s", cfg.Trading.Split.Sell.Pacing)
	}
}

func TestLoadRejectsUnknownVenue(t *testing.T) {
	path := writeConfig(t, `
exchange:
  venue: kraken
  market_type: spot
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "exchange.venue") {
		t.Fatalf("expected venue validation error, got %v", err)
	}
}

func TestLoadRejectsBithumbFutures(t *testing.T) {
	path := writeConfig(t, `
exchange:
  venue: bithumb
  market_type: swap
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "bithumb") {
		t.Fatalf("expected bithumb market type error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation failure for zero config")
	}
	msg := err.Error()
	for _, want := range []string{"app.environment", "exchange.venue", "trading.position_mode", "database.path", "logging.level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation message missing %q: %s", want, msg)
		}
	}
}

func TestValidateRejectsBadMargin(t *testing.T) {
	path := writeConfig(t, `
exchange:
  venue: binance
  market_type: spot
trading:
  spot_buy_margin_percent: 120
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "spot_buy_margin_percent") {
		t.Fatalf("expected margin validation error, got %v", err)
	}
}
