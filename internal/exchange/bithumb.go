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

// Bithumb 为 Bithumb 现货（KRW 市场）适配器。该场所的市价单
// 需要随单提供参考价，且数量精度以小数位数表达。
type Bithumb struct {
	cfg    config.ExchangeConfig
	logger *zap.Logger
	ex     *ccxt.Bithumb

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewBithumb 构造 Bithumb 现货适配器。
func NewBithumb(cfg config.ExchangeConfig, logger *zap.Logger) *Bithumb {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBithumb(userConfig)

	return &Bithumb{cfg: cfg, logger: logger, ex: ex}
}

// Venue 返回交易所标识。
func (a *Bithumb) Venue() string { return "bithumb" }

func (a *Bithumb) ensureMarketsLoaded(ctx context.Context) error {
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
		return fmt.Errorf("bithumb: 加载市场元数据失败: %w", err)
	}

	a.marketsLoaded = true
	a.logger.Debug("已完成市场元数据加载", zap.String("venue", a.Venue()))
	return nil
}

// LoadMarket 加载指定符号的市场元数据。
func (a *Bithumb) LoadMarket(ctx context.Context, symbol string) (MarketInfo, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return MarketInfo{}, err
	}
	return parseMarketInfo(symbol, a.ex.Market(symbol), true), nil
}

// Price 返回最新成交价。
func (a *Bithumb) Price(ctx context.Context, symbol string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	ticker, err := a.ex.FetchTicker(symbol)
	if err != nil {
		return 0, fmt.Errorf("bithumb: 获取行情失败: %w", err)
	}

	last := derefFloat(ticker.Last)
	if last <= 0 {
		return 0, fmt.Errorf("bithumb: %s 无有效最新价", symbol)
	}
	return last, nil
}

// FreeBalance 返回某资产的可用余额。
func (a *Bithumb) FreeBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("bithumb: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Free, asset), nil
}

// TotalBalance 返回某资产的总余额。
func (a *Bithumb) TotalBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("bithumb: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Total, asset), nil
}

// Positions 在现货市场没有意义。
func (a *Bithumb) Positions(ctx context.Context, symbol string) ([]PositionEntry, error) {
	return nil, errors.New("bithumb: 现货市场无持仓概念")
}

// SetLeverage 在现货市场为空操作。
func (a *Bithumb) SetLeverage(ctx context.Context, leverage int64, symbol string) error {
	return nil
}

// RoundAmount 将数量量化到市场精度。
func (a *Bithumb) RoundAmount(symbol string, value float64) float64 {
	info := parseMarketInfo(symbol, a.ex.Market(symbol), true)
	return RoundDownToStep(value, info.AmountStep)
}

// CreateOrder 提交委托。
func (a *Bithumb) CreateOrder(ctx context.Context, req OrderRequest) (Receipt, error) {
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
func (a *Bithumb) FetchOrder(ctx context.Context, id string, symbol string) (Receipt, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return Receipt{}, err
	}

	raw, err := a.ex.FetchOrder(id, ccxt.WithFetchOrderSymbol(symbol))
	if err != nil {
		return Receipt{}, fmt.Errorf("bithumb: 查询委托失败: %w", err)
	}
	return convertReceipt(raw), nil
}

// Trades 返回该符号下的最近账户成交。
func (a *Bithumb) Trades(ctx context.Context, symbol string) ([]Trade, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}

	raw, err := a.ex.FetchMyTrades(ccxt.WithFetchMyTradesSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("bithumb: 获取成交记录失败: %w", err)
	}
	return convertTrades(raw), nil
}

var _ Adapter = (*Bithumb)(nil)
