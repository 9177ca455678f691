package model

// Position 交易所持仓
// 来自 position.update 推送或认证后的持仓快照
type Position struct {
	// PositionID 持仓 ID
	PositionID int64 `json:"position_id"`
	// Market 市场标识
	Market string `json:"market"`
	// Side 持仓方向: long 或 short
	Side string `json:"side"`
	// OpenInterest 持仓数量
	OpenInterest float64 `json:"open_interest"`
	// AvgEntryPrice 平均开仓价
	AvgEntryPrice float64 `json:"avg_entry_price"`
	// UnrealizedPnl 未实现盈亏
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	// RealizedPnl 已实现盈亏
	RealizedPnl float64 `json:"realized_pnl"`
	// LiqPrice 强平价格
	LiqPrice float64 `json:"liq_price"`
	// Leverage 杠杆倍数
	Leverage float64 `json:"leverage"`
	// MarginMode 保证金模式: isolated 或 cross
	MarginMode string `json:"margin_mode"`
	// UpdatedAtMs 持仓更新时间（毫秒）
	UpdatedAtMs int64 `json:"updated_at_ms"`
	// RecvTimeNs 本地接收时间（纳秒）
	RecvTimeNs int64 `json:"recv_time_ns"`
}
