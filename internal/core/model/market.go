// Package model 定义核心领域数据结构。
// 包含市场状态、K 线、交易所持仓、策略信号和模拟成交记录。
package model

// MarketState 市场状态快照
// 来自 state.update 推送，数值字段在线路上为字符串编码，解析后存储为 float64
type MarketState struct {
	// Market 市场标识，如 BTCUSDT
	Market string `json:"market"`
	// LastPrice 最新成交价
	LastPrice float64 `json:"last_price"`
	// IndexPrice 指数价格
	IndexPrice float64 `json:"index_price"`
	// MarkPrice 标记价格
	MarkPrice float64 `json:"mark_price"`
	// OpenPrice 24 小时开盘价
	OpenPrice float64 `json:"open_price"`
	// High 24 小时最高价
	High float64 `json:"high"`
	// Low 24 小时最低价
	Low float64 `json:"low"`
	// Volume 24 小时成交量
	Volume float64 `json:"volume"`
	// ValueUSD 24 小时成交额（USD）
	ValueUSD float64 `json:"value_usd"`
	// OpenInterest 未平仓合约量
	OpenInterest float64 `json:"open_interest"`
	// FundingRate 当前资金费率
	FundingRate float64 `json:"funding_rate"`
	// NextFundingTimeMs 下次资金费结算时间（毫秒）
	NextFundingTimeMs int64 `json:"next_funding_time_ms"`
	// RecvTimeNs 本地接收时间（纳秒）
	RecvTimeNs int64 `json:"recv_time_ns"`
}

// MarketInfo 合约市场元数据
// 来自 REST 市场列表接口，验证配置的市场是否有效
type MarketInfo struct {
	// Market 市场标识
	Market string `json:"market"`
	// BaseCcy 基础币种，如 BTC
	BaseCcy string `json:"base_ccy"`
	// QuoteCcy 计价币种，如 USDT
	QuoteCcy string `json:"quote_ccy"`
	// TickSize 最小价格变动单位
	TickSize float64 `json:"tick_size"`
	// MinAmount 最小下单数量
	MinAmount float64 `json:"min_amount"`
	// MaxLeverage 最大杠杆倍数
	MaxLeverage int `json:"max_leverage"`
	// IsTradingAvailable 是否可交易
	IsTradingAvailable bool `json:"is_trading_available"`
}
