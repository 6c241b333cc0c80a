package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"trade-exec/internal/config"
)

// BinanceInverse 为 Binance COIN-M 币本位交割合约适配器。
type BinanceInverse struct {
	cfg    config.ExchangeConfig
	logger *zap.Logger
	ex     *ccxt.Binancecoinm

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewBinanceInverse 构造 Binance COIN-M 合约适配器。
func NewBinanceInverse(cfg config.ExchangeConfig, logger *zap.Logger) *BinanceInverse {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "delivery",
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinancecoinm(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return &BinanceInverse{cfg: cfg, logger: logger, ex: ex}
}

// Venue 返回交易所标识。
func (a *BinanceInverse) Venue() string { return "binancecoinm" }

func (a *BinanceInverse) ensureMarketsLoaded(ctx context.Context) error {
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
		return fmt.Errorf("binancecoinm: 加载市场元数据失败: %w", err)
	}

	a.marketsLoaded = true
	a.logger.Debug("已完成市场元数据加载", zap.String("venue", a.Venue()))
	return nil
}

// LoadMarket 加载指定符号的市场元数据。
func (a *BinanceInverse) LoadMarket(ctx context.Context, symbol string) (MarketInfo, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return MarketInfo{}, err
	}
	return parseMarketInfo(symbol, a.ex.Market(symbol), false), nil
}

// Price 返回最新成交价。
func (a *BinanceInverse) Price(ctx context.Context, symbol string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	ticker, err := a.ex.FetchTicker(symbol)
	if err != nil {
		return 0, fmt.Errorf("binancecoinm: 获取行情失败: %w", err)
	}

	last := derefFloat(ticker.Last)
	if last <= 0 {
		return 0, fmt.Errorf("binancecoinm: %s 无有效最新价", symbol)
	}
	return last, nil
}

// FreeBalance 返回某资产的可用余额。
func (a *BinanceInverse) FreeBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("binancecoinm: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Free, asset), nil
}

// TotalBalance 返回某资产的总余额。
func (a *BinanceInverse) TotalBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("binancecoinm: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Total, asset), nil
}

// Positions 从账户余额响应的原始持仓数组中筛出该符号的非零条目。
// 币本位接口没有统一持仓列表，条目按交易所原生符号匹配，
// 方向由 positionSide（LONG/SHORT/BOTH）与带符号数量共同表达。
func (a *BinanceInverse) Positions(ctx context.Context, symbol string) ([]PositionEntry, error) {
	market, err := a.LoadMarket(ctx, symbol)
	if err != nil {
		return nil, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return nil, fmt.Errorf("binancecoinm: 获取持仓失败: %w", err)
	}

	rawPositions, ok := balances.Info["positions"].([]interface{})
	if !ok {
		return nil, nil
	}

	entries := make([]PositionEntry, 0, 2)
	for _, item := range rawPositions {
		pos, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if stringValue(pos["symbol"]) != market.ID {
			continue
		}
		amount := parseNumeric(pos["positionAmt"])
		if amount == 0 {
			continue
		}
		entries = append(entries, PositionEntry{
			SideTag:   strings.ToUpper(stringValue(pos["positionSide"])),
			Contracts: amount,
		})
	}
	return entries, nil
}

// SetLeverage 设置杠杆。
func (a *BinanceInverse) SetLeverage(ctx context.Context, leverage int64, symbol string) error {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return err
	}

	if _, err := a.ex.SetLeverage(leverage, ccxt.WithSetLeverageSymbol(symbol)); err != nil {
		return fmt.Errorf("binancecoinm: 设置杠杆失败: %w", err)
	}

	a.logger.Info("已设置杠杆",
		zap.String("symbol", symbol),
		zap.Int64("leverage", leverage),
	)
	return nil
}

// RoundAmount 将数量量化到市场步长。
func (a *BinanceInverse) RoundAmount(symbol string, value float64) float64 {
	info := parseMarketInfo(symbol, a.ex.Market(symbol), false)
	return RoundDownToStep(value, info.AmountStep)
}

// CreateOrder 提交委托。
func (a *BinanceInverse) CreateOrder(ctx context.Context, req OrderRequest) (Receipt, error) {
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
func (a *BinanceInverse) FetchOrder(ctx context.Context, id string, symbol string) (Receipt, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return Receipt{}, err
	}

	raw, err := a.ex.FetchOrder(id, ccxt.WithFetchOrderSymbol(symbol))
	if err != nil {
		return Receipt{}, fmt.Errorf("binancecoinm: 查询委托失败: %w", err)
	}
	return convertReceipt(raw), nil
}

// Trades 返回该符号下的最近账户成交。
func (a *BinanceInverse) Trades(ctx context.Context, symbol string) ([]Trade, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}

	raw, err := a.ex.FetchMyTrades(ccxt.WithFetchMyTradesSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("binancecoinm: 获取成交记录失败: %w", err)
	}
	return convertTrades(raw), nil
}

var _ Adapter = (*BinanceInverse)(nil)
