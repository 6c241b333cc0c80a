package exchange

import (
	"errors"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

// IsRetryable 判断交易所错误是否属于瞬态类别。重试执行器在预算内
// 对所有失败一视同仁地重试，该分类仅用于日志诊断。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType:
			return true
		default:
			return false
		}
	}

	return false
}
