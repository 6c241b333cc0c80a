package order

import (
	"errors"
	"fmt"
)

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// MarketType 表示市场类型，与交易所 defaultType 语义一致。
type MarketType string

const (
	MarketSpot     MarketType = "spot"
	MarketSwap     MarketType = "swap"     // 线性合约（USDT本位永续）
	MarketDelivery MarketType = "delivery" // 逆向合约（币本位交割）
)

// PositionMode 表示持仓模式。
type PositionMode string

const (
	PositionModeOneWay PositionMode = "one-way"
	PositionModeHedge  PositionMode = "hedge"
)

// Intent 描述一次市价单请求，是前端与执行核心之间的接口契约。
// Intent 在整个流水线中只读，派生结果写入 Resolution。
type Intent struct {
	Symbol string // 交易所统一符号，如 BTC/USDT:USDT
	Base   string
	Quote  string

	Side Side

	// Amount 与 Percent 必须二选一：两者同时存在或同时缺失均为非法。
	Amount  *float64
	Percent *float64

	// Price 为可选的参考价格，纯市价单为 nil，仅用于日志与拆单记账。
	Price *float64

	Leverage *int64

	IsFutures bool
	IsCoinM   bool
	IsEntry   bool
	IsClose   bool
	IsTotal   bool // 按总余额而非可用余额计算比例
}

// MarketType 根据期货/币本位标记推导有效市场类型。
func (i Intent) MarketType() MarketType {
	if !i.IsFutures {
		return MarketSpot
	}
	if i.IsCoinM {
		return MarketDelivery
	}
	return MarketSwap
}

// IsSpot 判断是否为现货请求。
func (i Intent) IsSpot() bool {
	return !i.IsFutures
}

// Validate 校验 Intent 的结构性约束。amount/percent 的互斥性
// 由 Sizer 在定量阶段校验并返回对应的领域错误。
func (i Intent) Validate() error {
	if i.Symbol == "" {
		return errors.New("order: symbol 不能为空")
	}
	if i.Side != SideBuy && i.Side != SideSell {
		return fmt.Errorf("order: 非法的下单方向 %q", i.Side)
	}
	if i.IsFutures && i.IsEntry && i.IsClose {
		return errors.New("order: is_entry 与 is_close 不能同时设置")
	}
	if !i.IsFutures && (i.IsEntry || i.IsClose) {
		return errors.New("order: 现货请求不能携带 entry/close 标记")
	}
	if i.Percent != nil && (*i.Percent <= 0 || *i.Percent > 100) {
		return fmt.Errorf("order: percent 必须位于(0,100]，当前为 %v", *i.Percent)
	}
	if i.Leverage != nil && *i.Leverage <= 0 {
		return fmt.Errorf("order: leverage 必须大于0，当前为 %v", *i.Leverage)
	}
	return nil
}

// Resolution 为定量阶段的累积输出：Intent 保持只读，
// 各阶段的派生值沿流水线显式传递。
type Resolution struct {
	// Quantity 为最终可交易数量（合约市场下为合约张数）。
	Quantity float64
	// AmountByPercent 仅在按比例定量时填充，为精度取整后的结果。
	AmountByPercent *float64
	// ReferencePrice 为定量过程中读取的行情价，未读取时为0。
	ReferencePrice float64
}

// State 表示一次交易操作在流水线中的阶段。
// 状态只向前推进，出错或最后一笔子单成功后终止。
type State string

const (
	StateCreated          State = "created"
	StateSized            State = "sized"
	StatePositionResolved State = "position_resolved"
	StateSubmitting       State = "submitting"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)
