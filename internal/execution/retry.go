package execution

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
)

// Submitter 在固定间隔重试预算内提交委托。预算内对所有失败
// 一视同仁地重试，耗尽后包装为 OrderError 返回。
type Submitter struct {
	adapter exchange.Adapter
	logger  *zap.Logger
}

// NewSubmitter 构造重试提交器。
func NewSubmitter(adapter exchange.Adapter, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{adapter: adapter, logger: logger}
}

// Submit 提交委托，失败后按策略重试。上下文取消原样返回 ctx.Err()，
// 重试耗尽返回携带 Intent 快照的 OrderError。
func (s *Submitter) Submit(ctx context.Context, req exchange.OrderRequest, intent order.Intent, policy RetryPolicy) (exchange.Receipt, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return exchange.Receipt{}, err
		}

		receipt, err := s.adapter.CreateOrder(ctx, req)
		if err == nil {
			if attempt > 1 {
				s.logger.Info("重试后下单成功",
					zap.String("symbol", req.Symbol),
					zap.Int("attempt", attempt),
				)
			}
			return receipt, nil
		}

		lastErr = err
		s.logger.Warn("下单失败",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Bool("transient", exchange.IsRetryable(err)),
			zap.Error(err),
		)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return exchange.Receipt{}, ctx.Err()
		case <-time.After(policy.Delay):
		}
	}

	return exchange.Receipt{}, order.NewOrderError(lastErr, intent)
}
