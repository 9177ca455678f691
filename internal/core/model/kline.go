package model

// Kline K 线数据
// 来自 kline.update 推送或 REST 历史接口
type Kline struct {
	// Market 市场标识
	Market string `json:"market"`
	// TimestampMs K 线起始时间（毫秒）
	TimestampMs int64 `json:"timestamp_ms"`
	// Open 开盘价
	Open float64 `json:"open"`
	// Close 收盘价
	Close float64 `json:"close"`
	// High 最高价
	High float64 `json:"high"`
	// Low 最低价
	Low float64 `json:"low"`
	// Volume 成交量
	Volume float64 `json:"volume"`
	// ValueUSD 成交额（USD）
	ValueUSD float64 `json:"value_usd"`
	// Closed 该根 K 线是否已收盘
	// 推送中同一根 K 线会多次更新，仅收盘时参与策略计算
	Closed bool `json:"closed"`
}
