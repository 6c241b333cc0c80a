package sizing

import (
	"context"
	"errors"
	"math"
	"testing"

	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
	"trade-exec/internal/position"
)

func TestResolveAmountPercentBoth(t *testing.T) {
	sizer := NewSizer(&fakeSizingAdapter{}, nil, 0.5, nil)
	amount, percent := 1.0, 50.0
	intent := spotIntent(order.SideBuy)
	intent.Amount = &amount
	intent.Percent = &percent

	if _, err := sizer.Resolve(context.Background(), intent, exchange.MarketInfo{}); !errors.Is(err, order.ErrAmountPercentBoth) {
		t.Fatalf("expected ErrAmountPercentBoth, got %v", err)
	}
}

func TestResolveAmountPercentNone(t *testing.T) {
	sizer := NewSizer(&fakeSizingAdapter{}, nil, 0.5, nil)

	if _, err := sizer.Resolve(context.Background(), spotIntent(order.SideBuy), exchange.MarketInfo{}); !errors.Is(err, order.ErrAmountPercentNone) {
		t.Fatalf("expected ErrAmountPercentNone, got %v", err)
	}
}

func TestResolveAmountSpotPassthrough(t *testing.T) {
	sizer := NewSizer(&fakeSizingAdapter{}, nil, 0.5, nil)
	amount := 0.75
	intent := spotIntent(order.SideBuy)
	intent.Amount = &amount

	res, err := sizer.Resolve(context.Background(), intent, exchange.MarketInfo{Symbol: intent.Symbol})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Quantity != 0.75 {
		t.Errorf("got %v, want 0.75", res.Quantity)
	}
	if res.AmountByPercent != nil {
		t.Errorf("absolute sizing must not record amount_by_percent")
	}
}

func TestResolveAmountContractConversion(t *testing.T) {
	adapter := &fakeSizingAdapter{price: 20000}
	sizer := NewSizer(adapter, nil, 0.5, nil)
	amount := 0.5
	intent := futuresIntent(order.SideBuy, true, false)
	intent.Amount = &amount

	res, err := sizer.Resolve(context.Background(), intent, contractMarket(intent.Symbol, 100))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	// floor(0.5 × 20000 / 100) = 100 张
	if res.Quantity != 100 {
		t.Errorf("got %v contracts, want 100", res.Quantity)
	}
	if res.ReferencePrice != 20000 {
		t.Errorf("expected reference price recorded, got %v", res.ReferencePrice)
	}
}

func TestResolveSpotBuyPercentWithMargin(t *testing.T) {
	adapter := &fakeSizingAdapter{price: 20000, free: map[string]float64{"USDT": 10000}}
	sizer := NewSizer(adapter, nil, 0.5, nil)
	percent := 100.0
	intent := spotIntent(order.SideBuy)
	intent.Percent = &percent

	res, err := sizer.Resolve(context.Background(), intent, exchange.MarketInfo{Symbol: intent.Symbol})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	// 10000 × (100−0.5)/100 / 20000 = 0.04975
	if math.Abs(res.Quantity-0.04975) > 1e-12 {
		t.Errorf("got %v, want 0.04975", res.Quantity)
	}
	if res.AmountByPercent == nil || *res.AmountByPercent != res.Quantity {
		t.Errorf("percent sizing must record amount_by_percent")
	}
}

func TestResolveSpotBuyPercentWithoutMargin(t *testing.T) {
	// Bithumb 档位：不预留安全边际。
	adapter := &fakeSizingAdapter{price: 50000000, free: map[string]float64{"KRW": 1000000}}
	sizer := NewSizer(adapter, nil, 0, nil)
	percent := 50.0
	intent := order.Intent{Symbol: "BTC/KRW", Base: "BTC", Quote: "KRW", Side: order.SideBuy}
	intent.Percent = &percent

	res, err := sizer.Resolve(context.Background(), intent, exchange.MarketInfo{Symbol: intent.Symbol})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := 1000000 * 0.5 / 50000000
	if math.Abs(res.Quantity-want) > 1e-12 {
		t.Errorf("got %v, want %v", res.Quantity, want)
	}
}

func TestResolveLinearEntryAppliesLeverage(t *testing.T) {
	adapter := &fakeSizingAdapter{price: 2, free: map[string]float64{"USDT": 1000}}
	sizer := NewSizer(adapter, nil, 0.5, nil)
	percent := 50.0
	leverage := int64(10)
	intent := futuresIntent(order.SideBuy, true, false)
	intent.Percent = &percent
	intent.Leverage = &leverage

	res, err := sizer.Resolve(context.Background(), intent, contractMarket(intent.Symbol, 1))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	// floor(1000 × 0.5 × 2 × 10 / 1) = 10000 张
	if res.Quantity != 10000 {
		t.Errorf("got %v contracts, want 10000", res.Quantity)
	}
}

func TestResolveCoinMEntryUsesBaseBalance(t *testing.T) {
	adapter := &fakeSizingAdapter{price: 20000, free: map[string]float64{"BTC": 2}}
	sizer := NewSizer(adapter, nil, 0.5, nil)
	percent := 50.0
	intent := futuresIntent(order.SideBuy, true, true)
	intent.Percent = &percent

	res, err := sizer.Resolve(context.Background(), intent, contractMarket(intent.Symbol, 100))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	// floor(2 × 0.5 × 20000 / 100) = 200 张，币本位不乘杠杆。
	if res.Quantity != 200 {
		t.Errorf("got %v contracts, want 200", res.Quantity)
	}
	if adapter.lastBalanceAsset != "BTC" {
		t.Errorf("coin-margined sizing must read base balance, read %q", adapter.lastBalanceAsset)
	}
}

func TestResolveClosePercent(t *testing.T) {
	adapter := &fakeSizingAdapter{positions: []exchange.PositionEntry{{SideTag: "long", Contracts: 4}}}
	resolver := position.NewResolver(adapter, position.SchemeLinear, nil)
	sizer := NewSizer(adapter, resolver, 0.5, nil)
	percent := 50.0
	intent := futuresIntent(order.SideSell, false, false)
	intent.IsClose = true
	intent.Percent = &percent

	res, err := sizer.Resolve(context.Background(), intent, contractMarket(intent.Symbol, 1))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Quantity != 2 {
		t.Errorf("got %v, want 2", res.Quantity)
	}
}

func TestResolveCloseWithoutOpposingPosition(t *testing.T) {
	adapter := &fakeSizingAdapter{positions: []exchange.PositionEntry{{SideTag: "long", Contracts: 3}}}
	resolver := position.NewResolver(adapter, position.SchemeLinear, nil)
	sizer := NewSizer(adapter, resolver, 0.5, nil)
	percent := 100.0
	intent := futuresIntent(order.SideBuy, false, false)
	intent.IsClose = true
	intent.Percent = &percent

	if _, err := sizer.Resolve(context.Background(), intent, contractMarket(intent.Symbol, 1)); !errors.Is(err, order.ErrShortPositionNone) {
		t.Fatalf("expected ErrShortPositionNone, got %v", err)
	}
}

func TestResolveSpotSellPercent(t *testing.T) {
	adapter := &fakeSizingAdapter{free: map[string]float64{"BTC": 3}}
	sizer := NewSizer(adapter, nil, 0.5, nil)
	percent := 50.0
	intent := spotIntent(order.SideSell)
	intent.Percent = &percent

	res, err := sizer.Resolve(context.Background(), intent, exchange.MarketInfo{Symbol: intent.Symbol})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Quantity != 1.5 {
		t.Errorf("got %v, want 1.5", res.Quantity)
	}
}

func TestResolveZeroBalance(t *testing.T) {
	adapter := &fakeSizingAdapter{price: 20000, free: map[string]float64{}}
	sizer := NewSizer(adapter, nil, 0.5, nil)
	percent := 50.0
	intent := spotIntent(order.SideBuy)
	intent.Percent = &percent

	if _, err := sizer.Resolve(context.Background(), intent, exchange.MarketInfo{Symbol: intent.Symbol}); !errors.Is(err, order.ErrFreeAmountNone) {
		t.Fatalf("expected ErrFreeAmountNone, got %v", err)
	}
}

func TestResolveIsTotalReadsTotalBalance(t *testing.T) {
	adapter := &fakeSizingAdapter{
		price: 10,
		free:  map[string]float64{"USDT": 100},
		total: map[string]float64{"USDT": 400},
	}
	sizer := NewSizer(adapter, nil, 0, nil)
	percent := 100.0
	intent := spotIntent(order.SideBuy)
	intent.Percent = &percent
	intent.IsTotal = true

	res, err := sizer.Resolve(context.Background(), intent, exchange.MarketInfo{Symbol: intent.Symbol})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Quantity != 40 {
		t.Errorf("got %v, want 40 (total balance path)", res.Quantity)
	}
}

func spotIntent(side order.Side) order.Intent {
	return order.Intent{Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Side: side}
}

func futuresIntent(side order.Side, isEntry, isCoinM bool) order.Intent {
	symbol := "BTC/USDT:USDT"
	base, quote := "BTC", "USDT"
	if isCoinM {
		symbol = "BTC/USD:BTC"
		quote = "USD"
	}
	return order.Intent{
		Symbol:    symbol,
		Base:      base,
		Quote:     quote,
		Side:      side,
		IsFutures: true,
		IsCoinM:   isCoinM,
		IsEntry:   isEntry,
	}
}

func contractMarket(symbol string, contractSize float64) exchange.MarketInfo {
	return exchange.MarketInfo{
		Symbol:       symbol,
		Contract:     true,
		ContractSize: &contractSize,
	}
}

type fakeSizingAdapter struct {
	price            float64
	free             map[string]float64
	total            map[string]float64
	positions        []exchange.PositionEntry
	lastBalanceAsset string
}

func (f *fakeSizingAdapter) Venue() string { return "fake" }

func (f *fakeSizingAdapter) LoadMarket(ctx context.Context, symbol string) (exchange.MarketInfo, error) {
	return exchange.MarketInfo{Symbol: symbol}, nil
}

func (f *fakeSizingAdapter) Price(ctx context.Context, symbol string) (float64, error) {
	if f.price <= 0 {
		return 0, errors.New("no price configured")
	}
	return f.price, nil
}

func (f *fakeSizingAdapter) FreeBalance(ctx context.Context, asset string) (float64, error) {
	f.lastBalanceAsset = asset
	return f.free[asset], nil
}

func (f *fakeSizingAdapter) TotalBalance(ctx context.Context, asset string) (float64, error) {
	f.lastBalanceAsset = asset
	return f.total[asset], nil
}

func (f *fakeSizingAdapter) Positions(ctx context.Context, symbol string) ([]exchange.PositionEntry, error) {
	return f.positions, nil
}

func (f *fakeSizingAdapter) SetLeverage(ctx context.Context, leverage int64, symbol string) error {
	return nil
}

func (f *fakeSizingAdapter) RoundAmount(symbol string, value float64) float64 {
	return value
}

func (f *fakeSizingAdapter) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.Receipt, error) {
	return exchange.Receipt{}, errors.New("not implemented")
}

func (f *fakeSizingAdapter) FetchOrder(ctx context.Context, id string, symbol string) (exchange.Receipt, error) {
	return exchange.Receipt{}, errors.New("not implemented")
}

func (f *fakeSizingAdapter) Trades(ctx context.Context, symbol string) ([]exchange.Trade, error) {
	return nil, errors.New("not implemented")
}
