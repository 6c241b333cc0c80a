package order

import (
	"errors"
	"fmt"
)

var (
	// ErrAmountPercentBoth 表示 amount 与 percent 同时设置。
	ErrAmountPercentBoth = errors.New("order: amount 与 percent 不能同时设置")
	// ErrAmountPercentNone 表示两者均未设置，或比例定量遇到不支持的方向组合。
	ErrAmountPercentNone = errors.New("order: amount 与 percent 必须二选一")
	// ErrFreeAmountNone 表示余额查询返回空或0。
	ErrFreeAmountNone = errors.New("order: 可用余额为空")
	// ErrPositionNone 表示平仓时该符号下不存在任何持仓。
	ErrPositionNone = errors.New("order: 当前无持仓")
	// ErrShortPositionNone 表示平空买入时没有空头持仓。
	ErrShortPositionNone = errors.New("order: 当前无空头持仓")
	// ErrLongPositionNone 表示平多卖出时没有多头持仓。
	ErrLongPositionNone = errors.New("order: 当前无多头持仓")
	// ErrMinAmount 表示开仓数量取整后为0。
	ErrMinAmount = errors.New("order: 下单数量小于最小单位")
)

// OrderError 包装交易所下单在重试耗尽后的最终失败，
// 携带失败时刻的 Intent 快照。
type OrderError struct {
	Cause  error
	Intent Intent
}

// NewOrderError 构造 OrderError。
func NewOrderError(cause error, intent Intent) *OrderError {
	return &OrderError{Cause: cause, Intent: intent}
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order: 下单失败 symbol=%s side=%s: %v", e.Intent.Symbol, e.Intent.Side, e.Cause)
}

// Unwrap 返回底层失败原因。
func (e *OrderError) Unwrap() error {
	return e.Cause
}
