package execution

import "time"

// RetryPolicy 描述一类下单的重试预算。延迟为固定间隔，不做指数退避。
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// SplitProfile 描述一个方向的拆单参数。Threshold 为名义金额阈值，
// Bias 为补偿向下取整损耗的追加块数，Pacing 为块间节流间隔。
type SplitProfile struct {
	Threshold float64
	Bias      int
	Pacing    time.Duration
}
