package session

import (
	"strings"

	"go.uber.org/zap"

	"trade-exec/internal/config"
	"trade-exec/internal/exchange"
	"trade-exec/internal/execution"
	"trade-exec/internal/order"
	"trade-exec/internal/position"
	"trade-exec/internal/sizing"
	"trade-exec/internal/store"
)

// New 按配置装配一个交易会话。适配器变体、持仓方案与拆单参数
// 均在装配期确定。
func New(cfg *config.Config, journal *store.Journal, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	adapter, err := exchange.NewAdapter(cfg.Exchange, logger)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, adapter, journal, logger), nil
}

// NewWithAdapter 以既有适配器装配会话，测试与多场所场景使用。
func NewWithAdapter(cfg *config.Config, adapter exchange.Adapter, journal *store.Journal, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return assemble(cfg, adapter, journal, logger)
}

func assemble(cfg *config.Config, adapter exchange.Adapter, journal *store.Journal, logger *zap.Logger) *Session {
	marketType := strings.ToLower(cfg.Exchange.MarketType)

	var resolver *position.Resolver
	if marketType != "spot" {
		scheme := position.SchemeLinear
		if marketType == "delivery" {
			scheme = position.SchemeInverse
		}
		resolver = position.NewResolver(adapter, scheme, logger)
	}

	// 仅 KRW 现货市价单要求随单携带参考价。
	attachPrice := strings.ToLower(cfg.Exchange.Venue) == "bithumb"

	submitter := execution.NewSubmitter(adapter, logger)
	sizer := sizing.NewSizer(adapter, resolver, cfg.Trading.SpotBuyMarginPercent, logger)
	splitter := execution.NewSplitter(adapter, submitter, attachPrice, logger)

	mode := order.PositionModeOneWay
	if strings.ToLower(cfg.Trading.PositionMode) == string(order.PositionModeHedge) {
		mode = order.PositionModeHedge
	}

	return &Session{
		adapter:   adapter,
		sizer:     sizer,
		resolver:  resolver,
		splitter:  splitter,
		submitter: submitter,
		journal:   journal,
		logger:    logger,
		mode:      mode,
		plainRetry: execution.RetryPolicy{
			MaxAttempts: cfg.Trading.Retry.Plain.MaxAttempts,
			Delay:       cfg.Trading.Retry.Plain.Delay,
		},
		entryRetry: execution.RetryPolicy{
			MaxAttempts: cfg.Trading.Retry.EntryClose.MaxAttempts,
			Delay:       cfg.Trading.Retry.EntryClose.Delay,
		},
		buySplit: execution.SplitProfile{
			Threshold: cfg.Trading.Split.Buy.Threshold,
			Bias:      cfg.Trading.Split.Buy.Bias,
			Pacing:    cfg.Trading.Split.Buy.Pacing,
		},
		sellSplit: execution.SplitProfile{
			Threshold: cfg.Trading.Split.Sell.Threshold,
			Bias:      cfg.Trading.Split.Sell.Bias,
			Pacing:    cfg.Trading.Split.Sell.Pacing,
		},
	}
}
