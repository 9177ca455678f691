// Package metadata 负责获取 CoinEx 合约市场元数据并验证配置的市场。
package metadata

// marketResponse CoinEx 合约市场列表响应
type marketResponse struct {
	// Code 响应码，0 表示成功
	Code int64 `json:"code"`
	// Message 响应描述
	Message string `json:"message"`
	// Data 市场条目列表
	Data []MarketEntry `json:"data"`
}

// MarketEntry 市场列表中的单个合约
// 数值字段为字符串编码
type MarketEntry struct {
	// Market 市场标识，如 BTCUSDT
	Market string `json:"market"`
	// ContractType 合约类型: linear 或 inverse
	ContractType string `json:"contract_type"`
	// BaseCcy 基础币种
	BaseCcy string `json:"base_ccy"`
	// QuoteCcy 计价币种
	QuoteCcy string `json:"quote_ccy"`
	// TickSize 最小价格变动单位
	TickSize string `json:"tick_size"`
	// MinAmount 最小下单数量
	MinAmount string `json:"min_amount"`
	// Leverage 可用杠杆档位
	Leverage []int `json:"leverage"`
	// IsMarketAvailable 是否可交易
	IsMarketAvailable bool `json:"is_market_available"`
}
