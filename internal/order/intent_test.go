package order

import (
	"errors"
	"testing"
)

func TestIntentMarketType(t *testing.T) {
	cases := []struct {
		name   string
		intent Intent
		want   MarketType
	}{
		{"spot", Intent{}, MarketSpot},
		{"linear futures", Intent{IsFutures: true}, MarketSwap},
		{"inverse futures", Intent{IsFutures: true, IsCoinM: true}, MarketDelivery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.intent.MarketType(); got != tc.want {
				t.Errorf("MarketType() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestIntentValidate(t *testing.T) {
	base := Intent{Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Side: SideBuy}

	if err := base.Validate(); err != nil {
		t.Errorf("valid intent rejected: %v", err)
	}

	noSymbol := base
	noSymbol.Symbol = ""
	if err := noSymbol.Validate(); err == nil {
		t.Errorf("empty symbol must be rejected")
	}

	badSide := base
	badSide.Side = "hold"
	if err := badSide.Validate(); err == nil {
		t.Errorf("unknown side must be rejected")
	}

	entryAndClose := base
	entryAndClose.IsFutures = true
	entryAndClose.IsEntry = true
	entryAndClose.IsClose = true
	if err := entryAndClose.Validate(); err == nil {
		t.Errorf("entry+close must be rejected")
	}

	spotEntry := base
	spotEntry.IsEntry = true
	if err := spotEntry.Validate(); err == nil {
		t.Errorf("spot intent with entry flag must be rejected")
	}

	badPercent := base
	p := 150.0
	badPercent.Percent = &p
	if err := badPercent.Validate(); err == nil {
		t.Errorf("percent above 100 must be rejected")
	}

	badLeverage := base
	badLeverage.IsFutures = true
	lev := int64(0)
	badLeverage.Leverage = &lev
	if err := badLeverage.Validate(); err == nil {
		t.Errorf("non-positive leverage must be rejected")
	}
}

func TestOrderErrorWrapsCause(t *testing.T) {
	intent := Intent{Symbol: "BTC/USDT", Side: SideBuy}
	err := NewOrderError(ErrFreeAmountNone, intent)

	if !errors.Is(err, ErrFreeAmountNone) {
		t.Errorf("OrderError must unwrap to its cause")
	}
	if err.Intent.Symbol != "BTC/USDT" {
		t.Errorf("OrderError must carry the intent snapshot")
	}
}
