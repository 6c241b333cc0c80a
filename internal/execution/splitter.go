package execution

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
)

// Splitter 将一笔现货市价单按名义金额拆成若干子单顺序执行，
// 以限制冲击成本与频率限制暴露。子单之间严格串行：后续子单
// （尤其是卖出的最后一块）依赖前序子单留下的余额状态。
type Splitter struct {
	adapter   exchange.Adapter
	submitter *Submitter
	logger    *zap.Logger

	// attachPrice 为真时每笔子单随单携带参考价（KRW 市场要求）。
	attachPrice bool
}

// NewSplitter 构造拆单执行器。
func NewSplitter(adapter exchange.Adapter, submitter *Submitter, attachPrice bool, logger *zap.Logger) *Splitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Splitter{
		adapter:     adapter,
		submitter:   submitter,
		attachPrice: attachPrice,
		logger:      logger,
	}
}

// SplitCount 按名义金额计算子单数量。Bias 补偿每块向下取整的损耗，
// 使累计成交不至于低于目标。
func SplitCount(notional float64, profile SplitProfile) int {
	count := int(math.Round(notional/profile.Threshold))
	if count < 1 {
		count = 1
	}
	return count + profile.Bias
}

// Execute 拆单并顺序提交。任一子单失败立即中止剩余子单，
// 返回已成子单的回执与该错误；已执行的子单不会被回退。
func (s *Splitter) Execute(ctx context.Context, intent order.Intent, quantity float64, profile SplitProfile, policy RetryPolicy) ([]exchange.Receipt, error) {
	price, err := s.adapter.Price(ctx, intent.Symbol)
	if err != nil {
		return nil, err
	}

	count := SplitCount(price*quantity, profile)
	chunk := quantity / float64(count)

	s.logger.Info("开始拆单执行",
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.Int("split_count", count),
	)

	receipts := make([]exchange.Receipt, 0, count)
	for i := 0; i < count; i++ {
		amount := chunk
		if intent.Side == order.SideSell && i == count-1 {
			// 最后一块卖出改用实时余额，清扫前序取整残留。
			amount, err = s.adapter.FreeBalance(ctx, intent.Base)
			if err != nil {
				return receipts, err
			}
		}
		amount = s.adapter.RoundAmount(intent.Symbol, amount)

		req := exchange.OrderRequest{
			Symbol: intent.Symbol,
			Type:   "market",
			Side:   intent.Side,
			Amount: amount,
		}
		if s.attachPrice {
			p := price
			req.Price = &p
		}

		receipt, err := s.submitter.Submit(ctx, req, intent, policy)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)

		s.logger.Info("子单已成交",
			zap.String("symbol", intent.Symbol),
			zap.Int("chunk", i+1),
			zap.Int("split_count", count),
			zap.Float64("amount", amount),
			zap.String("order_id", receipt.OrderID),
		)

		if i < count-1 && profile.Pacing > 0 {
			select {
			case <-ctx.Done():
				return receipts, ctx.Err()
			case <-time.After(profile.Pacing):
			}
		}
	}

	return receipts, nil
}
