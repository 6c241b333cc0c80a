package exchange

import (
	"math"
	"testing"
)

func TestParseMarketInfoStepPrecision(t *testing.T) {
	raw := map[string]interface{}{
		"id":           "BTCUSD_PERP",
		"contract":     true,
		"contractSize": 100.0,
		"precision": map[string]interface{}{
			"amount": 1.0,
		},
		"limits": map[string]interface{}{
			"amount": map[string]interface{}{
				"min": 1.0,
			},
		},
	}

	info := parseMarketInfo("BTC/USD:BTC", raw, false)
	if info.ID != "BTCUSD_PERP" {
		t.Errorf("unexpected id: %s", info.ID)
	}
	if !info.Contract {
		t.Errorf("expected contract market")
	}
	if info.ContractSize == nil || *info.ContractSize != 100 {
		t.Errorf("unexpected contract size: %v", info.ContractSize)
	}
	if info.AmountStep != 1.0 {
		t.Errorf("expected step precision kept as-is, got %v", info.AmountStep)
	}
	if info.MinAmount != 1.0 {
		t.Errorf("unexpected min amount: %v", info.MinAmount)
	}
}

func TestParseMarketInfoDigitsPrecision(t *testing.T) {
	raw := map[string]interface{}{
		"id": "BTC_KRW",
		"precision": map[string]interface{}{
			"amount": 4.0,
		},
	}

	info := parseMarketInfo("BTC/KRW", raw, true)
	if math.Abs(info.AmountStep-0.0001) > 1e-12 {
		t.Errorf("expected digits converted to step 0.0001, got %v", info.AmountStep)
	}
	if info.Contract {
		t.Errorf("spot market must not be flagged as contract")
	}
	if info.ContractSize != nil {
		t.Errorf("spot market must not carry contract size")
	}
}

func TestParseMarketInfoMalformed(t *testing.T) {
	info := parseMarketInfo("BTC/USDT", nil, false)
	if info.Symbol != "BTC/USDT" || info.AmountStep != 0 {
		t.Errorf("malformed metadata should yield zero-valued info, got %+v", info)
	}
}

func TestBalanceValue(t *testing.T) {
	v := 1.25
	balances := map[string]*float64{"BTC": &v, "ETH": nil}

	if got := balanceValue(balances, "BTC"); got != 1.25 {
		t.Errorf("got %v, want 1.25", got)
	}
	if got := balanceValue(balances, "ETH"); got != 0 {
		t.Errorf("nil entry should yield 0, got %v", got)
	}
	if got := balanceValue(balances, "XRP"); got != 0 {
		t.Errorf("missing asset should yield 0, got %v", got)
	}
	if got := balanceValue(nil, "BTC"); got != 0 {
		t.Errorf("nil map should yield 0, got %v", got)
	}
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{nil, 0},
		{3.5, 3.5},
		{int(7), 7},
		{int64(9), 9},
		{"12.5", 12.5},
		{" 0.001 ", 0.001},
		{"not-a-number", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseNumeric(tc.in); got != tc.want {
			t.Errorf("parseNumeric(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
