// Package rest 实现 CoinEx 合约 REST 接口的只读客户端。
// 用于启动时拉取历史 K 线预热指标。
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"coinex-futures-trader/internal/core/model"
	"coinex-futures-trader/internal/util/fastparse"
)

// Client CoinEx REST 客户端
type Client struct {
	// baseURL REST API 基础地址
	baseURL string
	// client HTTP 客户端
	client *http.Client
}

// NewClient 创建 REST 客户端
// 参数 baseURL: API 基础地址，如 https://api.coinex.com/v2
// 参数 timeoutMs: HTTP 请求超时时间（毫秒）
func NewClient(baseURL string, timeoutMs int) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: time.Duration(timeoutMs) * time.Millisecond,
		},
	}
}

// klineResponse K 线接口响应
type klineResponse struct {
	Code    int64        `json:"code"`
	Message string       `json:"message"`
	Data    []klineEntry `json:"data"`
}

// klineEntry 响应中的单根 K 线
// 数值字段为字符串编码
type klineEntry struct {
	Market    string `json:"market"`
	CreatedAt int64  `json:"created_at"`
	Open      string `json:"open"`
	Close     string `json:"close"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Volume    string `json:"volume"`
	Value     string `json:"value"`
}

// Klines 拉取历史 K 线
// 参数 ctx: 上下文，用于取消请求
// 参数 market: 市场标识
// 参数 period: K 线周期，如 1min
// 参数 limit: 拉取根数
// 返回: 按时间升序排列的 K 线列表
func (c *Client) Klines(ctx context.Context, market, period string, limit int) ([]*model.Kline, error) {
	endpoint := fmt.Sprintf("%s/futures/kline?market=%s&period=%s&limit=%d",
		c.baseURL, url.QueryEscape(market), url.QueryEscape(period), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 K 线请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "coinex-futures-trader/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求历史 K 线失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var kr klineResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		return nil, fmt.Errorf("解析 K 线响应失败: %w", err)
	}
	if kr.Code != 0 {
		return nil, fmt.Errorf("CoinEx API 返回错误: code=%d, msg=%s", kr.Code, kr.Message)
	}

	klines := make([]*model.Kline, 0, len(kr.Data))
	for i := range kr.Data {
		e := &kr.Data[i]
		klines = append(klines, &model.Kline{
			Market:      market,
			TimestampMs: e.CreatedAt,
			Open:        fastparse.ParseFloat(e.Open),
			Close:       fastparse.ParseFloat(e.Close),
			High:        fastparse.ParseFloat(e.High),
			Low:         fastparse.ParseFloat(e.Low),
			Volume:      fastparse.ParseFloat(e.Volume),
			ValueUSD:    fastparse.ParseFloat(e.Value),
			Closed:      true,
		})
	}
	return klines, nil
}
