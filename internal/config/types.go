package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// 以下为各交易所实测得到的经验常数（拆单阈值、偏置、节奏与重试预算），
// 并非由公式推导，调整前需回看实盘表现。
const (
	// DefaultPlainMaxAttempts 为现货 buy/sell 的下单重试预算。
	DefaultPlainMaxAttempts = 5
	// DefaultEntryCloseMaxAttempts 为合约 entry/close 的下单重试预算。
	DefaultEntryCloseMaxAttempts = 10
	// DefaultRetryDelay 为两次重试之间的固定等待。
	DefaultRetryDelay = 100 * time.Millisecond

	// DefaultBuySplitThreshold 为买单拆分的名义金额阈值（KRW 市场实测值）。
	DefaultBuySplitThreshold = 100000.0
	// DefaultBuySplitBias 补偿子单向下取整造成的累计欠量。
	DefaultBuySplitBias = 1
	// DefaultBuySplitPacing 为买单子单之间的间隔。
	DefaultBuySplitPacing = 20 * time.Second

	// DefaultSellSplitThreshold 为卖单拆分的名义金额阈值。
	DefaultSellSplitThreshold = 150000.0
	// DefaultSellSplitBias 为卖单拆分偏置。
	DefaultSellSplitBias = 2
	// DefaultSellSplitPacing 为卖单子单之间的间隔。
	DefaultSellSplitPacing = 10 * time.Second

	// DefaultSpotBuyMarginPercent 为现货按比例买入时预留的安全边际
	// （百分点），避免余额取整导致资金不足被拒单。
	// Bithumb 档位将其设为0，即不预留边际。
	DefaultSpotBuyMarginPercent = 0.5
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ExchangeConfig 描述交易所连接信息与市场类型。
type ExchangeConfig struct {
	Venue          string `mapstructure:"venue"`       // binance | bithumb
	MarketType     string `mapstructure:"market_type"` // spot | swap | delivery
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	UseSandbox     bool   `mapstructure:"use_sandbox"`
	FuturesAPIBase string `mapstructure:"futures_api_base"`
}

// RetryConfig 控制单笔下单的重试预算与固定间隔。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
}

// RetryGroup 区分普通现货下单与合约开平仓的重试档位。
type RetryGroup struct {
	Plain      RetryConfig `mapstructure:"plain"`
	EntryClose RetryConfig `mapstructure:"entry_close"`
}

// SplitConfig 描述一侧的拆单参数。
type SplitConfig struct {
	Threshold float64       `mapstructure:"threshold"`
	Bias      int           `mapstructure:"bias"`
	Pacing    time.Duration `mapstructure:"pacing"`
}

// SplitGroup 按买卖方向区分拆单参数。
type SplitGroup struct {
	Buy  SplitConfig `mapstructure:"buy"`
	Sell SplitConfig `mapstructure:"sell"`
}

// TradingConfig 控制执行核心的行为。
type TradingConfig struct {
	PositionMode         string     `mapstructure:"position_mode"` // one-way | hedge
	SpotBuyMarginPercent float64    `mapstructure:"spot_buy_margin_percent"`
	Retry                RetryGroup `mapstructure:"retry"`
	Split                SplitGroup `mapstructure:"split"`
}

// DatabaseConfig 管理执行流水数据库。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

var (
	validVenues        = map[string]bool{"binance": true, "bithumb": true}
	validMarketTypes   = map[string]bool{"spot": true, "swap": true, "delivery": true}
	validPositionModes = map[string]bool{"one-way": true, "hedge": true}
)

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	venue := strings.ToLower(c.Exchange.Venue)
	if !validVenues[venue] {
		err = multierr.Append(err, fmt.Errorf("exchange.venue %q 不受支持", c.Exchange.Venue))
	}
	marketType := strings.ToLower(c.Exchange.MarketType)
	if !validMarketTypes[marketType] {
		err = multierr.Append(err, fmt.Errorf("exchange.market_type %q 不受支持", c.Exchange.MarketType))
	}
	if venue == "bithumb" && marketType != "spot" {
		err = multierr.Append(err, errors.New("bithumb 仅支持现货市场"))
	}
	if !validPositionModes[strings.ToLower(c.Trading.PositionMode)] {
		err = multierr.Append(err, fmt.Errorf("trading.position_mode %q 不受支持", c.Trading.PositionMode))
	}
	if c.Trading.SpotBuyMarginPercent < 0 || c.Trading.SpotBuyMarginPercent >= 100 {
		err = multierr.Append(err, errors.New("trading.spot_buy_margin_percent 必须位于[0,100)"))
	}
	if c.Trading.Retry.Plain.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("trading.retry.plain.max_attempts 必须大于0"))
	}
	if c.Trading.Retry.EntryClose.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("trading.retry.entry_close.max_attempts 必须大于0"))
	}
	if c.Trading.Retry.Plain.Delay <= 0 || c.Trading.Retry.EntryClose.Delay <= 0 {
		err = multierr.Append(err, errors.New("trading.retry.delay 必须为正"))
	}
	if c.Trading.Split.Buy.Threshold <= 0 || c.Trading.Split.Sell.Threshold <= 0 {
		err = multierr.Append(err, errors.New("trading.split.threshold 必须大于0"))
	}
	if c.Trading.Split.Buy.Bias < 0 || c.Trading.Split.Sell.Bias < 0 {
		err = multierr.Append(err, errors.New("trading.split.bias 不能为负"))
	}
	if c.Trading.Split.Buy.Pacing < 0 || c.Trading.Split.Sell.Pacing < 0 {
		err = multierr.Append(err, errors.New("trading.split.pacing 不能为负"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
