package exchange

import (
	"github.com/shopspring/decimal"
)

// RoundDownToStep 将数量向下量化到交易所允许的最小步长。
// 浮点除法在长小数步长上会产生 1e-16 级别的误差，改用十进制运算
// 保证不会把合法数量量化出界。
func RoundDownToStep(value, step float64) float64 {
	if step <= 0 || value <= 0 {
		if value < 0 {
			return 0
		}
		return value
	}

	v := decimal.NewFromFloat(value)
	s := decimal.NewFromFloat(step)
	quantized := v.Div(s).Floor().Mul(s)
	result, _ := quantized.Float64()
	return result
}
