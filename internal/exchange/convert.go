package exchange

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

// parseMarketInfo 从 ccxt 的市场元数据映射提取核心字段。
// digitsPrecision 为真时 precision.amount 表示小数位数（如 Bithumb），
// 否则表示数量步长（如 Binance）。
func parseMarketInfo(symbol string, raw interface{}, digitsPrecision bool) MarketInfo {
	info := MarketInfo{Symbol: symbol}

	m, ok := raw.(map[string]interface{})
	if !ok {
		return info
	}

	info.ID = stringValue(m["id"])
	if contract, ok := m["contract"].(bool); ok {
		info.Contract = contract
	}
	if size := parseNumeric(m["contractSize"]); size > 0 {
		info.ContractSize = &size
	}

	if precision, ok := m["precision"].(map[string]interface{}); ok {
		amountPrecision := parseNumeric(precision["amount"])
		if amountPrecision > 0 {
			if digitsPrecision {
				info.AmountStep = math.Pow(10, -amountPrecision)
			} else {
				info.AmountStep = amountPrecision
			}
		}
	}

	if limits, ok := m["limits"].(map[string]interface{}); ok {
		if amount, ok := limits["amount"].(map[string]interface{}); ok {
			info.MinAmount = parseNumeric(amount["min"])
		}
	}

	return info
}

func convertReceipt(raw ccxt.Order) Receipt {
	receipt := Receipt{
		OrderID:       derefString(raw.Id),
		ClientOrderID: derefString(raw.ClientOrderId),
		Symbol:        derefString(raw.Symbol),
		Side:          derefString(raw.Side),
		Amount:        derefFloat(raw.Amount),
		Price:         derefFloat(raw.Price),
		Filled:        derefFloat(raw.Filled),
		Status:        derefString(raw.Status),
	}
	if raw.Timestamp != nil {
		receipt.Timestamp = time.UnixMilli(int64(*raw.Timestamp)).UTC()
	} else {
		receipt.Timestamp = time.Now().UTC()
	}
	return receipt
}

func convertTrades(raw []ccxt.Trade) []Trade {
	trades := make([]Trade, 0, len(raw))
	for _, item := range raw {
		trade := Trade{
			ID:      derefString(item.Id),
			OrderID: derefString(item.Order),
			Symbol:  derefString(item.Symbol),
			Side:    derefString(item.Side),
			Amount:  derefFloat(item.Amount),
			Price:   derefFloat(item.Price),
			Cost:    derefFloat(item.Cost),
		}
		if item.Timestamp != nil {
			trade.Timestamp = time.UnixMilli(int64(*item.Timestamp)).UTC()
		}
		trades = append(trades, trade)
	}
	return trades
}

// balanceValue 从余额映射取出某资产的数值，缺失时返回0。
func balanceValue(balances map[string]*float64, asset string) float64 {
	if balances == nil {
		return 0
	}
	if v, ok := balances[asset]; ok && v != nil {
		return *v
	}
	return 0
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func stringValue(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func parseNumeric(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case *float64:
		if v != nil {
			return *v
		}
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case fmt.Stringer:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
