package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"trade-exec/internal/config"
)

// BinanceSpot 为 Binance 现货适配器。
type BinanceSpot struct {
	cfg    config.ExchangeConfig
	logger *zap.Logger
	ex     *ccxt.Binance

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewBinanceSpot 构造 Binance 现货适配器。
func NewBinanceSpot(cfg config.ExchangeConfig, logger *zap.Logger) *BinanceSpot {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "spot",
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinance(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return &BinanceSpot{cfg: cfg, logger: logger, ex: ex}
}

// Venue 返回交易所标识。
func (a *BinanceSpot) Venue() string { return "binance" }

func (a *BinanceSpot) ensureMarketsLoaded(ctx context.Context) error {
	if a.marketsLoaded {
		return nil
	}

	a.marketsMu.Lock()
	defer a.marketsMu.Unlock()

	if a.marketsLoaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := a.ex.LoadMarkets(); err != nil {
		return fmt.Errorf("binance: 加载市场元数据失败: %w", err)
	}

	a.marketsLoaded = true
	a.logger.Debug("已完成市场元数据加载", zap.String("venue", a.Venue()))
	return nil
}

// LoadMarket 加载指定符号的市场元数据。
func (a *BinanceSpot) LoadMarket(ctx context.Context, symbol string) (MarketInfo, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return MarketInfo{}, err
	}
	return parseMarketInfo(symbol, a.ex.Market(symbol), false), nil
}

// Price 返回最新成交价。
func (a *BinanceSpot) Price(ctx context.Context, symbol string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	ticker, err := a.ex.FetchTicker(symbol)
	if err != nil {
		return 0, fmt.Errorf("binance: 获取行情失败: %w", err)
	}

	last := derefFloat(ticker.Last)
	if last <= 0 {
		return 0, fmt.Errorf("binance: %s 无有效最新价", symbol)
	}
	return last, nil
}

// FreeBalance 返回某资产的可用余额。
func (a *BinanceSpot) FreeBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("binance: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Free, asset), nil
}

// TotalBalance 返回某资产的总余额。
func (a *BinanceSpot) TotalBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("binance: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Total, asset), nil
}

// Positions 在现货市场没有意义。
func (a *BinanceSpot) Positions(ctx context.Context, symbol string) ([]PositionEntry, error) {
	return nil, errors.New("binance: 现货市场无持仓概念")
}

// SetLeverage 在现货市场为空操作。
func (a *BinanceSpot) SetLeverage(ctx context.Context, leverage int64, symbol string) error {
	return nil
}

// RoundAmount 将数量量化到市场步长。
func (a *BinanceSpot) RoundAmount(symbol string, value float64) float64 {
	info := parseMarketInfo(symbol, a.ex.Market(symbol), false)
	return RoundDownToStep(value, info.AmountStep)
}

// CreateOrder 提交委托。
func (a *BinanceSpot) CreateOrder(ctx context.Context, req OrderRequest) (Receipt, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return Receipt{}, err
	}

	opts := make([]ccxt.CreateOrderOptions, 0, 2)
	if req.Price != nil {
		opts = append(opts, ccxt.WithCreateOrderPrice(*req.Price))
	}
	if len(req.Params) > 0 {
		opts = append(opts, ccxt.WithCreateOrderParams(req.Params))
	}

	raw, err := a.ex.CreateOrder(req.Symbol, req.Type, string(req.Side), req.Amount, opts...)
	if err != nil {
		return Receipt{}, err
	}
	return convertReceipt(raw), nil
}

// FetchOrder 查询单笔委托状态。
func (a *BinanceSpot) FetchOrder(ctx context.Context, id string, symbol string) (Receipt, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return Receipt{}, err
	}

	raw, err := a.ex.FetchOrder(id, ccxt.WithFetchOrderSymbol(symbol))
	if err != nil {
		return Receipt{}, fmt.Errorf("binance: 查询委托失败: %w", err)
	}
	return convertReceipt(raw), nil
}

// Trades 返回该符号下的最近账户成交。
func (a *BinanceSpot) Trades(ctx context.Context, symbol string) ([]Trade, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}

	raw, err := a.ex.FetchMyTrades(ccxt.WithFetchMyTradesSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("binance: 获取成交记录失败: %w", err)
	}
	return convertTrades(raw), nil
}

var _ Adapter = (*BinanceSpot)(nil)
