package exchange

import (
	"context"
	"time"

	"trade-exec/internal/order"
)

// MarketInfo 为一次性加载的市场元数据。
type MarketInfo struct {
	Symbol string
	// ID 为交易所原生符号，逆向持仓条目按该值匹配。
	ID       string
	Contract bool
	// ContractSize 仅在合约市场存在。
	ContractSize *float64
	// AmountStep 为数量最小步长，0 表示无约束。
	AmountStep float64
	MinAmount  float64
}

// PositionEntry 为交易所返回的原始持仓条目，方向语义由
// position.Resolver 按保证金方案解释：逆向市场 SideTag 为
// LONG/SHORT/BOTH 且数量带符号，线性市场为 long/short 且数量为正。
type PositionEntry struct {
	SideTag   string
	Contracts float64
}

// OrderRequest 描述一笔待提交的委托。
type OrderRequest struct {
	Symbol string
	Type   string // 当前仅 market
	Side   order.Side
	Amount float64
	// Price 为参考价，多数市价路径为 nil；KRW 现货市价单需要随单提供。
	Price  *float64
	Params map[string]interface{}
}

// Receipt 为交易所对一笔委托的回执。
type Receipt struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          string
	Amount        float64
	Price         float64
	Filled        float64
	Status        string
	Timestamp     time.Time
}

// Trade 为账户成交记录。
type Trade struct {
	ID        string
	OrderID   string
	Symbol    string
	Side      string
	Amount    float64
	Price     float64
	Cost      float64
	Timestamp time.Time
}

// Adapter 是执行核心对交易所连接的唯一边界：核心本身不做任何
// 网络协议解析，场所间响应结构差异全部隔离在各实现内部。
type Adapter interface {
	// Venue 返回交易所标识。
	Venue() string
	// LoadMarket 加载指定符号的市场元数据（惰性加载全市场列表）。
	LoadMarket(ctx context.Context, symbol string) (MarketInfo, error)
	// Price 返回最新成交价。
	Price(ctx context.Context, symbol string) (float64, error)
	// FreeBalance 返回某资产的可用余额，资产不存在时返回0。
	FreeBalance(ctx context.Context, asset string) (float64, error)
	// TotalBalance 返回某资产的总余额。
	TotalBalance(ctx context.Context, asset string) (float64, error)
	// Positions 返回该符号下的原始持仓条目。现货实现返回错误。
	Positions(ctx context.Context, symbol string) ([]PositionEntry, error)
	// SetLeverage 设置杠杆。现货实现为空操作。
	SetLeverage(ctx context.Context, leverage int64, symbol string) error
	// RoundAmount 将数量量化到交易所允许的步长。
	RoundAmount(symbol string, value float64) float64
	// CreateOrder 提交委托并返回回执。
	CreateOrder(ctx context.Context, req OrderRequest) (Receipt, error)
	// FetchOrder 查询单笔委托状态。
	FetchOrder(ctx context.Context, id string, symbol string) (Receipt, error)
	// Trades 返回该符号下的最近账户成交。
	Trades(ctx context.Context, symbol string) ([]Trade, error)
}
