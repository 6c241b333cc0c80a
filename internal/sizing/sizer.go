package sizing

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
	"trade-exec/internal/position"
)

// Sizer 将下单意图解析为可交易数量。所有余额与持仓读取均为实时
// 拉取，不做缓存。
type Sizer struct {
	adapter exchange.Adapter
	// resolver 仅在合约平仓路径使用，现货会话可为 nil。
	resolver *position.Resolver
	// spotBuyMarginPct 为现货按比例买入时从 percent 扣除的安全边际
	// 百分点，防止余额取整导致资金不足被拒单。Bithumb 档位为0。
	spotBuyMarginPct float64
	logger           *zap.Logger
}

// NewSizer 构造定量器。
func NewSizer(adapter exchange.Adapter, resolver *position.Resolver, spotBuyMarginPct float64, logger *zap.Logger) *Sizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sizer{
		adapter:          adapter,
		resolver:         resolver,
		spotBuyMarginPct: spotBuyMarginPct,
		logger:           logger,
	}
}

// Resolve 按 amount/percent 二选一的规则计算下单数量。
// 合约市场下返回合约张数，现货市场下返回基础资产数量。
func (s *Sizer) Resolve(ctx context.Context, intent order.Intent, market exchange.MarketInfo) (order.Resolution, error) {
	if intent.Amount != nil && intent.Percent != nil {
		return order.Resolution{}, order.ErrAmountPercentBoth
	}

	if intent.Amount != nil {
		return s.resolveByAmount(ctx, intent, market)
	}
	if intent.Percent != nil {
		return s.resolveByPercent(ctx, intent, market)
	}
	return order.Resolution{}, order.ErrAmountPercentNone
}

func (s *Sizer) resolveByAmount(ctx context.Context, intent order.Intent, market exchange.MarketInfo) (order.Resolution, error) {
	if !market.Contract {
		return order.Resolution{Quantity: *intent.Amount}, nil
	}

	contractSize, err := requireContractSize(market)
	if err != nil {
		return order.Resolution{}, err
	}

	price, err := s.adapter.Price(ctx, intent.Symbol)
	if err != nil {
		return order.Resolution{}, err
	}

	contracts := math.Floor(*intent.Amount * price / contractSize)
	s.logger.Debug("按绝对数量换算合约张数",
		zap.String("symbol", intent.Symbol),
		zap.Float64("amount", *intent.Amount),
		zap.Float64("price", price),
		zap.Float64("contracts", contracts),
	)
	return order.Resolution{Quantity: contracts, ReferencePrice: price}, nil
}

func (s *Sizer) resolveByPercent(ctx context.Context, intent order.Intent, market exchange.MarketInfo) (order.Resolution, error) {
	percent := *intent.Percent

	switch {
	case intent.IsEntry || (intent.IsSpot() && intent.Side == order.SideBuy):
		return s.resolveEntryOrSpotBuy(ctx, intent, market, percent)

	case intent.IsClose:
		closeable, err := s.resolver.CloseableAmount(ctx, intent.Symbol, intent.Side)
		if err != nil {
			return order.Resolution{}, err
		}
		return s.finishPercent(intent, closeable*percent/100, 0)

	case intent.IsSpot() && intent.Side == order.SideSell:
		freeBase, err := s.balance(ctx, intent, intent.Base)
		if err != nil {
			return order.Resolution{}, err
		}
		return s.finishPercent(intent, freeBase*percent/100, 0)

	default:
		return order.Resolution{}, order.ErrAmountPercentNone
	}
}

// resolveEntryOrSpotBuy 处理开仓与现货买入的比例定量。逆向合约
// 以基础币种余额为基数，线性合约与现货以计价币种余额为基数。
func (s *Sizer) resolveEntryOrSpotBuy(ctx context.Context, intent order.Intent, market exchange.MarketInfo, percent float64) (order.Resolution, error) {
	asset := intent.Quote
	if intent.IsCoinM {
		asset = intent.Base
	}

	var (
		freeBalance float64
		price       float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		freeBalance, err = s.balance(gctx, intent, asset)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = s.adapter.Price(gctx, intent.Symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return order.Resolution{}, err
	}

	if !market.Contract {
		if intent.IsSpot() && intent.Side == order.SideBuy {
			// 现货买入扣除安全边际后再按价格换算为基础数量。
			return s.finishPercent(intent, freeBalance*(percent-s.spotBuyMarginPct)/100/price, price)
		}
		return s.finishPercent(intent, freeBalance*percent/100, price)
	}

	contractSize, err := requireContractSize(market)
	if err != nil {
		return order.Resolution{}, err
	}

	notional := freeBalance * percent / 100 * price
	if !intent.IsCoinM {
		// 线性合约的比例基数按杠杆放大。
		notional *= float64(leverageOrOne(intent))
	}
	return s.finishPercent(intent, math.Floor(notional/contractSize), price)
}

// finishPercent 将比例定量结果量化到市场精度并记入 Resolution。
func (s *Sizer) finishPercent(intent order.Intent, raw float64, price float64) (order.Resolution, error) {
	rounded := s.adapter.RoundAmount(intent.Symbol, raw)
	s.logger.Debug("按比例完成定量",
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("raw", raw),
		zap.Float64("rounded", rounded),
	)
	return order.Resolution{
		Quantity:        rounded,
		AmountByPercent: &rounded,
		ReferencePrice:  price,
	}, nil
}

// balance 按 is_total 标记读取可用或总余额，空值与零值均视为异常。
func (s *Sizer) balance(ctx context.Context, intent order.Intent, asset string) (float64, error) {
	var (
		value float64
		err   error
	)
	if intent.IsTotal {
		value, err = s.adapter.TotalBalance(ctx, asset)
	} else {
		value, err = s.adapter.FreeBalance(ctx, asset)
	}
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, order.ErrFreeAmountNone
	}
	return value, nil
}

func requireContractSize(market exchange.MarketInfo) (float64, error) {
	if market.ContractSize == nil || *market.ContractSize <= 0 {
		return 0, fmt.Errorf("sizing: %s 缺少合约面值", market.Symbol)
	}
	return *market.ContractSize, nil
}

func leverageOrOne(intent order.Intent) int64 {
	if intent.Leverage == nil || *intent.Leverage <= 0 {
		return 1
	}
	return *intent.Leverage
}
