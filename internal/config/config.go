package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "trade"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("exchange.venue", "binance")
	v.SetDefault("exchange.market_type", "spot")
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.futures_api_base", "https://fapi.binance.com")

	v.SetDefault("trading.position_mode", "one-way")
	v.SetDefault("trading.spot_buy_margin_percent", DefaultSpotBuyMarginPercent)
	v.SetDefault("trading.retry.plain.max_attempts", DefaultPlainMaxAttempts)
	v.SetDefault("trading.retry.plain.delay", DefaultRetryDelay)
	v.SetDefault("trading.retry.entry_close.max_attempts", DefaultEntryCloseMaxAttempts)
	v.SetDefault("trading.retry.entry_close.delay", DefaultRetryDelay)
	v.SetDefault("trading.split.buy.threshold", DefaultBuySplitThreshold)
	v.SetDefault("trading.split.buy.bias", DefaultBuySplitBias)
	v.SetDefault("trading.split.buy.pacing", DefaultBuySplitPacing)
	v.SetDefault("trading.split.sell.threshold", DefaultSellSplitThreshold)
	v.SetDefault("trading.split.sell.bias", DefaultSellSplitBias)
	v.SetDefault("trading.split.sell.pacing", DefaultSellSplitPacing)

	v.SetDefault("database.path", "data/trade_exec.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
