package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"trade-exec/internal/config"
)

// BinanceLinear 为 Binance USDⓈ-M 线性合约适配器。
type BinanceLinear struct {
	cfg    config.ExchangeConfig
	logger *zap.Logger
	ex     *ccxt.Binanceusdm
	rest   *resty.Client

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewBinanceLinear 构造 Binance USDⓈ-M 合约适配器。
func NewBinanceLinear(cfg config.ExchangeConfig, logger *zap.Logger) *BinanceLinear {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	apiBase := cfg.FuturesAPIBase
	if apiBase == "" {
		apiBase = "https://fapi.binance.com"
	}
	rest := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(10 * time.Second)

	return &BinanceLinear{cfg: cfg, logger: logger, ex: ex, rest: rest}
}

// Venue 返回交易所标识。
func (a *BinanceLinear) Venue() string { return "binanceusdm" }

func (a *BinanceLinear) ensureMarketsLoaded(ctx context.Context) error {
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
		return fmt.Errorf("binanceusdm: 加载市场元数据失败: %w", err)
	}

	a.marketsLoaded = true
	a.logger.Debug("已完成市场元数据加载", zap.String("venue", a.Venue()))
	return nil
}

// LoadMarket 加载指定符号的市场元数据。
func (a *BinanceLinear) LoadMarket(ctx context.Context, symbol string) (MarketInfo, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return MarketInfo{}, err
	}
	return parseMarketInfo(symbol, a.ex.Market(symbol), false), nil
}

// Price 返回最新成交价。
func (a *BinanceLinear) Price(ctx context.Context, symbol string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	ticker, err := a.ex.FetchTicker(symbol)
	if err != nil {
		return 0, fmt.Errorf("binanceusdm: 获取行情失败: %w", err)
	}

	last := derefFloat(ticker.Last)
	if last <= 0 {
		return 0, fmt.Errorf("binanceusdm: %s 无有效最新价", symbol)
	}
	return last, nil
}

// FreeBalance 返回某资产的可用余额。
func (a *BinanceLinear) FreeBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("binanceusdm: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Free, asset), nil
}

// TotalBalance 返回某资产的总余额。
func (a *BinanceLinear) TotalBalance(ctx context.Context, asset string) (float64, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}

	balances, err := a.ex.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("binanceusdm: 获取余额失败: %w", err)
	}
	return balanceValue(balances.Total, asset), nil
}

// Positions 返回统一持仓列表中该符号的条目，方向由 side 字段给出。
func (a *BinanceLinear) Positions(ctx context.Context, symbol string) ([]PositionEntry, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}

	raw, err := a.ex.FetchPositions()
	if err != nil {
		return nil, fmt.Errorf("binanceusdm: 获取持仓失败: %w", err)
	}

	entries := make([]PositionEntry, 0, len(raw))
	for _, pos := range raw {
		if !strings.EqualFold(derefString(pos.Symbol), symbol) {
			continue
		}
		entries = append(entries, PositionEntry{
			SideTag:   strings.ToLower(derefString(pos.Side)),
			Contracts: derefFloat(pos.Contracts),
		})
	}
	return entries, nil
}

// SetLeverage 设置杠杆。
func (a *BinanceLinear) SetLeverage(ctx context.Context, leverage int64, symbol string) error {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return err
	}

	if _, err := a.ex.SetLeverage(leverage, ccxt.WithSetLeverageSymbol(symbol)); err != nil {
		return fmt.Errorf("binanceusdm: 设置杠杆失败: %w", err)
	}

	a.logger.Info("已设置杠杆",
		zap.String("symbol", symbol),
		zap.Int64("leverage", leverage),
	)
	return nil
}

// RoundAmount 将数量量化到市场步长。
func (a *BinanceLinear) RoundAmount(symbol string, value float64) float64 {
	info := parseMarketInfo(symbol, a.ex.Market(symbol), false)
	return RoundDownToStep(value, info.AmountStep)
}

// CreateOrder 提交委托。
func (a *BinanceLinear) CreateOrder(ctx context.Context, req OrderRequest) (Receipt, error) {
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
func (a *BinanceLinear) FetchOrder(ctx context.Context, id string, symbol string) (Receipt, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return Receipt{}, err
	}

	raw, err := a.ex.FetchOrder(id, ccxt.WithFetchOrderSymbol(symbol))
	if err != nil {
		return Receipt{}, fmt.Errorf("binanceusdm: 查询委托失败: %w", err)
	}
	return convertReceipt(raw), nil
}

// Trades 返回该符号下的最近账户成交。
func (a *BinanceLinear) Trades(ctx context.Context, symbol string) ([]Trade, error) {
	if err := a.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}

	raw, err := a.ex.FetchMyTrades(ccxt.WithFetchMyTradesSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("binanceusdm: 获取成交记录失败: %w", err)
	}
	return convertTrades(raw), nil
}

var _ Adapter = (*BinanceLinear)(nil)
