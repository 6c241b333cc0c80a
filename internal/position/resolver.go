package position

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
)

// Scheme 表示保证金方案，决定持仓条目的方向解释方式。
type Scheme string

const (
	// SchemeLinear 线性合约：side 为 long/short，数量恒为正。
	SchemeLinear Scheme = "linear"
	// SchemeInverse 逆向合约：positionSide 为 LONG/SHORT/BOTH，
	// BOTH（单向模式）下数量带符号。
	SchemeInverse Scheme = "inverse"
)

// Position 为归一化后的持仓快照。指针为 nil 表示该方向无持仓，
// 有值时数量恒为正。
type Position struct {
	Long  *float64
	Short *float64
}

// Resolver 将交易所原始持仓条目归一化为方向明确的快照。
type Resolver struct {
	adapter exchange.Adapter
	scheme  Scheme
	logger  *zap.Logger
}

// NewResolver 构造持仓归一化器。
func NewResolver(adapter exchange.Adapter, scheme Scheme, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{adapter: adapter, scheme: scheme, logger: logger}
}

// Snapshot 拉取并归一化当前持仓。符号下无任何非零持仓时
// 返回 ErrPositionNone。
func (r *Resolver) Snapshot(ctx context.Context, symbol string) (Position, error) {
	entries, err := r.adapter.Positions(ctx, symbol)
	if err != nil {
		return Position{}, err
	}

	var snap Position
	for _, entry := range entries {
		if entry.Contracts == 0 {
			continue
		}
		r.classify(&snap, entry)
	}

	if snap.Long == nil && snap.Short == nil {
		return Position{}, order.ErrPositionNone
	}

	r.logger.Debug("已归一化持仓快照",
		zap.String("symbol", symbol),
		zap.Any("long", snap.Long),
		zap.Any("short", snap.Short),
	)
	return snap, nil
}

func (r *Resolver) classify(snap *Position, entry exchange.PositionEntry) {
	switch r.scheme {
	case SchemeInverse:
		switch strings.ToUpper(entry.SideTag) {
		case "LONG":
			snap.Long = addAbs(snap.Long, entry.Contracts)
		case "SHORT":
			snap.Short = addAbs(snap.Short, entry.Contracts)
		case "BOTH":
			// 单向模式下方向由符号表达。
			if entry.Contracts > 0 {
				snap.Long = addAbs(snap.Long, entry.Contracts)
			} else {
				snap.Short = addAbs(snap.Short, entry.Contracts)
			}
		}
	default:
		switch strings.ToLower(entry.SideTag) {
		case "long":
			snap.Long = addAbs(snap.Long, entry.Contracts)
		case "short":
			snap.Short = addAbs(snap.Short, entry.Contracts)
		}
	}
}

// CloseableAmount 返回平仓方向对应的可平数量。买入平空头，
// 卖出平多头；对应方向无持仓时返回方向化错误。
func (r *Resolver) CloseableAmount(ctx context.Context, symbol string, side order.Side) (float64, error) {
	snap, err := r.Snapshot(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if side == order.SideBuy {
		if snap.Short == nil || *snap.Short == 0 {
			return 0, order.ErrShortPositionNone
		}
		return *snap.Short, nil
	}

	if snap.Long == nil || *snap.Long == 0 {
		return 0, order.ErrLongPositionNone
	}
	return *snap.Long, nil
}

func addAbs(dst *float64, v float64) *float64 {
	abs := math.Abs(v)
	if dst == nil {
		return &abs
	}
	sum := *dst + abs
	return &sum
}
