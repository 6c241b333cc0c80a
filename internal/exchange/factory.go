package exchange

import (
	"fmt"

	"go.uber.org/zap"

	"trade-exec/internal/config"
)

// NewAdapter 按配置选择场所与市场类型的适配器变体。变体在构造期
// 确定一次，运行中不再做分支判断。
func NewAdapter(cfg config.ExchangeConfig, logger *zap.Logger) (Adapter, error) {
	switch cfg.Venue {
	case "binance":
		switch cfg.MarketType {
		case "spot":
			return NewBinanceSpot(cfg, logger), nil
		case "swap":
			return NewBinanceLinear(cfg, logger), nil
		case "delivery":
			return NewBinanceInverse(cfg, logger), nil
		default:
			return nil, fmt.Errorf("exchange: binance 不支持的市场类型: %s", cfg.MarketType)
		}
	case "bithumb":
		if cfg.MarketType != "spot" {
			return nil, fmt.Errorf("exchange: bithumb 仅支持现货市场, 当前配置: %s", cfg.MarketType)
		}
		return NewBithumb(cfg, logger), nil
	default:
		return nil, fmt.Errorf("exchange: 不支持的交易所: %s", cfg.Venue)
	}
}
