package exchange

import (
	"context"
	"fmt"
)

type listenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

// ListenKey 申请一个用户数据流监听键。键有效期 60 分钟，
// 每次 KeepAliveListenKey 调用会重置有效期。
func (a *BinanceLinear) ListenKey(ctx context.Context) (string, error) {
	var out listenKeyResponse
	resp, err := a.rest.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", a.cfg.APIKey).
		SetResult(&out).
		Post("/fapi/v1/listenKey")
	if err != nil {
		return "", fmt.Errorf("binanceusdm: 申请 listenKey 失败: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("binanceusdm: 申请 listenKey 失败: http %d: %s", resp.StatusCode(), resp.String())
	}
	if out.ListenKey == "" {
		return "", fmt.Errorf("binanceusdm: listenKey 响应为空")
	}
	return out.ListenKey, nil
}

// KeepAliveListenKey 为已申请的监听键续期。
func (a *BinanceLinear) KeepAliveListenKey(ctx context.Context, key string) error {
	resp, err := a.rest.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", a.cfg.APIKey).
		SetQueryParam("listenKey", key).
		Put("/fapi/v1/listenKey")
	if err != nil {
		return fmt.Errorf("binanceusdm: listenKey 续期失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("binanceusdm: listenKey 续期失败: http %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
