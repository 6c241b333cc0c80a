package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"trade-exec/internal/config"
	"trade-exec/internal/exchange"
	"trade-exec/internal/log"
	"trade-exec/internal/order"
	"trade-exec/internal/session"
	"trade-exec/internal/store"
)

func main() {
	var (
		configPath string
		symbol     string
		side       string
		amount     float64
		percent    float64
		isEntry    bool
		isClose    bool
		isTotal    bool
		leverage   int64
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&symbol, "symbol", "", "交易所统一符号，如 BTC/USDT")
	flag.StringVar(&side, "side", "", "下单方向: buy | sell")
	flag.Float64Var(&amount, "amount", 0, "绝对下单数量，与 -percent 二选一")
	flag.Float64Var(&percent, "percent", 0, "按余额/持仓比例下单(0,100]，与 -amount 二选一")
	flag.BoolVar(&isEntry, "entry", false, "合约开仓")
	flag.BoolVar(&isClose, "close", false, "合约平仓")
	flag.BoolVar(&isTotal, "total", false, "按总余额而非可用余额计算比例")
	flag.Int64Var(&leverage, "leverage", 0, "合约杠杆，0 表示不设置")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	journal, err := store.NewJournal(sqliteStore, logger)
	if err != nil {
		logger.Error("初始化操作日志失败", zap.Error(err))
		os.Exit(1)
	}

	sess, err := session.New(cfg, journal, logger)
	if err != nil {
		logger.Error("装配交易会话失败", zap.Error(err))
		os.Exit(1)
	}

	intent, err := buildIntent(cfg, symbol, side, amount, percent, isEntry, isClose, isTotal, leverage)
	if err != nil {
		logger.Error("构造下单意图失败", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	receipts, err := dispatch(ctx, sess, intent)
	if err != nil {
		logger.Error("交易执行失败", zap.Error(err))
		if len(receipts) > 0 {
			printReceipts(receipts)
		}
		os.Exit(1)
	}

	printReceipts(receipts)
	logger.Info("交易执行完成", zap.Int("orders", len(receipts)))
}

func buildIntent(cfg *config.Config, symbol, side string, amount, percent float64, isEntry, isClose, isTotal bool, leverage int64) (order.Intent, error) {
	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return order.Intent{}, err
	}

	marketType := strings.ToLower(cfg.Exchange.MarketType)
	intent := order.Intent{
		Symbol:    symbol,
		Base:      base,
		Quote:     quote,
		Side:      order.Side(strings.ToLower(side)),
		IsFutures: marketType != "spot",
		IsCoinM:   marketType == "delivery",
		IsEntry:   isEntry,
		IsClose:   isClose,
		IsTotal:   isTotal,
	}
	if amount > 0 {
		intent.Amount = &amount
	}
	if percent > 0 {
		intent.Percent = &percent
	}
	if leverage > 0 {
		intent.Leverage = &leverage
	}
	return intent, nil
}

func splitSymbol(symbol string) (base, quote string, err error) {
	// 统一符号形如 BTC/USDT 或 BTC/USD:BTC，基础与计价币种取斜杠两侧。
	pair := symbol
	if idx := strings.IndexByte(pair, ':'); idx >= 0 {
		pair = pair[:idx]
	}
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("非法的交易符号: %q", symbol)
	}
	return parts[0], parts[1], nil
}

func dispatch(ctx context.Context, sess *session.Session, intent order.Intent) ([]exchange.Receipt, error) {
	switch {
	case intent.IsEntry:
		receipt, err := sess.MarketEntry(ctx, intent)
		if err != nil {
			return nil, err
		}
		return []exchange.Receipt{receipt}, nil
	case intent.IsClose:
		receipt, err := sess.MarketClose(ctx, intent)
		if err != nil {
			return nil, err
		}
		return []exchange.Receipt{receipt}, nil
	case intent.Side == order.SideBuy:
		return sess.MarketBuy(ctx, intent)
	case intent.Side == order.SideSell:
		return sess.MarketSell(ctx, intent)
	default:
		return nil, fmt.Errorf("非法的下单方向: %q", intent.Side)
	}
}

func printReceipts(receipts []exchange.Receipt) {
	for i, r := range receipts {
		fmt.Printf("[%d] order_id=%s symbol=%s side=%s amount=%.8f filled=%.8f status=%s\n",
			i+1, r.OrderID, r.Symbol, r.Side, r.Amount, r.Filled, r.Status)
	}
}
