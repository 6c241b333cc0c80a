package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-exec/internal/exchange"
	"trade-exec/internal/execution"
	"trade-exec/internal/order"
	"trade-exec/internal/position"
	"trade-exec/internal/sizing"
	"trade-exec/internal/store"
)

// Session 是一次交易会话：独占一个交易所适配器，对外暴露现货
// 买卖与合约开平仓操作。同一会话同一时刻只允许一个活动操作。
type Session struct {
	adapter   exchange.Adapter
	sizer     *sizing.Sizer
	resolver  *position.Resolver
	splitter  *execution.Splitter
	submitter *execution.Submitter
	journal   *store.Journal
	logger    *zap.Logger

	mode       order.PositionMode
	plainRetry execution.RetryPolicy
	entryRetry execution.RetryPolicy
	buySplit   execution.SplitProfile
	sellSplit  execution.SplitProfile

	opMu sync.Mutex
}

// initInfo 校验意图、加载市场元数据，并将显式 amount 量化到市场
// 精度。意图本身只读，量化结果写入返回的副本。
func (s *Session) initInfo(ctx context.Context, intent order.Intent) (order.Intent, exchange.MarketInfo, error) {
	if err := intent.Validate(); err != nil {
		return intent, exchange.MarketInfo{}, err
	}

	market, err := s.adapter.LoadMarket(ctx, intent.Symbol)
	if err != nil {
		return intent, exchange.MarketInfo{}, err
	}

	if intent.Amount != nil {
		rounded := s.adapter.RoundAmount(intent.Symbol, *intent.Amount)
		intent.Amount = &rounded
	}
	return intent, market, nil
}

// MarketBuy 执行现货市价买入，按名义金额拆单后顺序提交。
func (s *Session) MarketBuy(ctx context.Context, intent order.Intent) ([]exchange.Receipt, error) {
	intent.Side = order.SideBuy
	return s.spotOperation(ctx, intent, s.buySplit)
}

// MarketSell 执行现货市价卖出。最后一笔子单清扫实时余额残留。
func (s *Session) MarketSell(ctx context.Context, intent order.Intent) ([]exchange.Receipt, error) {
	intent.Side = order.SideSell
	return s.spotOperation(ctx, intent, s.sellSplit)
}

func (s *Session) spotOperation(ctx context.Context, intent order.Intent, profile execution.SplitProfile) ([]exchange.Receipt, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if intent.IsFutures {
		return nil, errors.New("session: 现货操作不接受合约意图")
	}

	opID := uuid.NewString()
	s.journal.BeginOperation(opID, intent)

	intent, market, err := s.initInfo(ctx, intent)
	if err != nil {
		s.journal.Fail(opID, err)
		return nil, err
	}

	resolution, err := s.sizer.Resolve(ctx, intent, market)
	if err != nil {
		s.journal.Fail(opID, err)
		return nil, err
	}
	s.journal.RecordState(opID, order.StateSized, resolution)

	s.journal.RecordState(opID, order.StateSubmitting, nil)
	receipts, err := s.splitter.Execute(ctx, intent, resolution.Quantity, profile, s.plainRetry)
	for _, receipt := range receipts {
		s.journal.RecordReceipt(opID, receipt)
	}
	if err != nil {
		s.journal.Fail(opID, err)
		return receipts, err
	}

	s.journal.RecordState(opID, order.StateCompleted, nil)
	s.logger.Info("现货市价单完成",
		zap.String("operation_id", opID),
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Int("orders", len(receipts)),
	)
	return receipts, nil
}

// MarketEntry 执行合约开仓。数量量化后为0时拒单，杠杆仅在显式
// 给出时设置。
func (s *Session) MarketEntry(ctx context.Context, intent order.Intent) (exchange.Receipt, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	intent.IsEntry = true
	intent.IsClose = false

	opID := uuid.NewString()
	s.journal.BeginOperation(opID, intent)

	receipt, err := s.futuresEntry(ctx, opID, intent)
	if err != nil {
		s.journal.Fail(opID, err)
		return exchange.Receipt{}, err
	}

	s.journal.RecordReceipt(opID, receipt)
	s.journal.RecordState(opID, order.StateCompleted, nil)
	return receipt, nil
}

func (s *Session) futuresEntry(ctx context.Context, opID string, intent order.Intent) (exchange.Receipt, error) {
	if !intent.IsFutures {
		return exchange.Receipt{}, errors.New("session: 开仓操作要求合约意图")
	}

	intent, market, err := s.initInfo(ctx, intent)
	if err != nil {
		return exchange.Receipt{}, err
	}

	resolution, err := s.sizer.Resolve(ctx, intent, market)
	if err != nil {
		return exchange.Receipt{}, err
	}
	if resolution.Quantity == 0 {
		return exchange.Receipt{}, order.ErrMinAmount
	}
	s.journal.RecordState(opID, order.StateSized, resolution)

	if intent.Leverage != nil {
		if err := s.adapter.SetLeverage(ctx, *intent.Leverage, intent.Symbol); err != nil {
			return exchange.Receipt{}, err
		}
	}

	params := map[string]interface{}{}
	if s.mode == order.PositionModeHedge {
		params["positionSide"] = hedgePositionSide(intent.Side, true)
	}

	s.journal.RecordState(opID, order.StateSubmitting, nil)
	receipt, err := s.submitter.Submit(ctx, exchange.OrderRequest{
		Symbol: intent.Symbol,
		Type:   "market",
		Side:   intent.Side,
		Amount: math.Abs(resolution.Quantity),
		Params: params,
	}, intent, s.entryRetry)
	if err != nil {
		return exchange.Receipt{}, err
	}

	s.logger.Info("合约开仓完成",
		zap.String("operation_id", opID),
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("contracts", resolution.Quantity),
		zap.String("order_id", receipt.OrderID),
	)
	return receipt, nil
}

// MarketClose 执行合约平仓：买入平空头，卖出平多头。单向模式
// 使用 reduceOnly，对冲模式通过 positionSide 指定被平方向。
func (s *Session) MarketClose(ctx context.Context, intent order.Intent) (exchange.Receipt, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	intent.IsClose = true
	intent.IsEntry = false

	opID := uuid.NewString()
	s.journal.BeginOperation(opID, intent)

	receipt, err := s.futuresClose(ctx, opID, intent)
	if err != nil {
		s.journal.Fail(opID, err)
		return exchange.Receipt{}, err
	}

	s.journal.RecordReceipt(opID, receipt)
	s.journal.RecordState(opID, order.StateCompleted, nil)
	return receipt, nil
}

func (s *Session) futuresClose(ctx context.Context, opID string, intent order.Intent) (exchange.Receipt, error) {
	if !intent.IsFutures {
		return exchange.Receipt{}, errors.New("session: 平仓操作要求合约意图")
	}
	if s.resolver == nil {
		return exchange.Receipt{}, errors.New("session: 现货会话不支持平仓操作")
	}

	intent, market, err := s.initInfo(ctx, intent)
	if err != nil {
		return exchange.Receipt{}, err
	}

	resolution, err := s.sizer.Resolve(ctx, intent, market)
	if err != nil {
		return exchange.Receipt{}, err
	}
	if resolution.Quantity == 0 {
		return exchange.Receipt{}, order.ErrMinAmount
	}
	s.journal.RecordState(opID, order.StateSized, resolution)
	s.journal.RecordState(opID, order.StatePositionResolved, nil)

	params := map[string]interface{}{}
	if s.mode == order.PositionModeHedge {
		params["positionSide"] = hedgePositionSide(intent.Side, false)
	} else {
		params["reduceOnly"] = true
	}

	s.journal.RecordState(opID, order.StateSubmitting, nil)
	receipt, err := s.submitter.Submit(ctx, exchange.OrderRequest{
		Symbol: intent.Symbol,
		Type:   "market",
		Side:   intent.Side,
		Amount: math.Abs(resolution.Quantity),
		Params: params,
	}, intent, s.entryRetry)
	if err != nil {
		return exchange.Receipt{}, err
	}

	s.logger.Info("合约平仓完成",
		zap.String("operation_id", opID),
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("contracts", math.Abs(resolution.Quantity)),
		zap.String("order_id", receipt.OrderID),
	)
	return receipt, nil
}

// hedgePositionSide 推导对冲模式下的持仓方向参数：
// 开仓时买入建多卖出建空，平仓时买入平空卖出平多。
func hedgePositionSide(side order.Side, isEntry bool) string {
	if side == order.SideBuy {
		if isEntry {
			return "LONG"
		}
		return "SHORT"
	}
	if isEntry {
		return "SHORT"
	}
	return "LONG"
}

// Order 查询单笔委托。
func (s *Session) Order(ctx context.Context, id string, symbol string) (exchange.Receipt, error) {
	return s.adapter.FetchOrder(ctx, id, symbol)
}

// OrderFilled 返回单笔委托的已成交数量。
func (s *Session) OrderFilled(ctx context.Context, id string, symbol string) (float64, error) {
	receipt, err := s.adapter.FetchOrder(ctx, id, symbol)
	if err != nil {
		return 0, err
	}
	return receipt.Filled, nil
}

// RecentTrades 返回该符号下的最近账户成交。
func (s *Session) RecentTrades(ctx context.Context, symbol string) ([]exchange.Trade, error) {
	return s.adapter.Trades(ctx, symbol)
}

// Positions 返回归一化后的持仓快照，现货会话返回错误。
func (s *Session) Positions(ctx context.Context, symbol string) (position.Position, error) {
	if s.resolver == nil {
		return position.Position{}, fmt.Errorf("session: 现货会话无持仓概念")
	}
	return s.resolver.Snapshot(ctx, symbol)
}
