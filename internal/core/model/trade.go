package model

// ExitReason 模拟平仓原因
type ExitReason string

const (
	// ExitTakeProfit 止盈
	ExitTakeProfit ExitReason = "take_profit"
	// ExitStopLoss 止损
	ExitStopLoss ExitReason = "stop_loss"
	// ExitTimeout 持仓超时
	ExitTimeout ExitReason = "timeout"
	// ExitFlip 反向信号平仓
	ExitFlip ExitReason = "flip"
	// ExitShutdown 程序退出强制平仓
	ExitShutdown ExitReason = "shutdown"
)

// PaperPosition 模拟持仓
// 由信号开仓，跟踪止盈止损价位
type PaperPosition struct {
	// Market 市场标识
	Market string `json:"market"`
	// Side 持仓方向
	Side Side `json:"side"`
	// EntryPrice 开仓价（含滑点）
	EntryPrice float64 `json:"entry_price"`
	// TPPrice 止盈触发价
	TPPrice float64 `json:"tp_price"`
	// SLPrice 止损触发价
	SLPrice float64 `json:"sl_price"`
	// OpenTimeNs 开仓时间（纳秒）
	OpenTimeNs int64 `json:"open_time_ns"`
	// SignalTimeMs 触发信号的 K 线时间（毫秒）
	SignalTimeMs int64 `json:"signal_time_ms"`
}

// TradeRecord 模拟成交记录
// 一次完整的开仓到平仓
type TradeRecord struct {
	// Market 市场标识
	Market string `json:"market"`
	// Side 持仓方向
	Side Side `json:"side"`
	// EntryPrice 开仓价（含滑点）
	EntryPrice float64 `json:"entry_price"`
	// ExitPrice 平仓价（含滑点）
	ExitPrice float64 `json:"exit_price"`
	// GrossPnlBps 毛收益（基点）
	GrossPnlBps float64 `json:"gross_pnl_bps"`
	// FeeBps 往返手续费（基点）
	FeeBps float64 `json:"fee_bps"`
	// NetPnlBps 净收益（基点），等于毛收益减手续费
	NetPnlBps float64 `json:"net_pnl_bps"`
	// ExitReason 平仓原因
	ExitReason ExitReason `json:"exit_reason"`
	// OpenTimeNs 开仓时间（纳秒）
	OpenTimeNs int64 `json:"open_time_ns"`
	// CloseTimeNs 平仓时间（纳秒）
	CloseTimeNs int64 `json:"close_time_ns"`
	// HoldMs 持仓时长（毫秒）
	HoldMs int64 `json:"hold_ms"`
}

// PnLSnapshot 模拟账户盈亏快照
// 按固定间隔写入指标文件
type PnLSnapshot struct {
	// TimestampMs 快照时间（毫秒）
	TimestampMs int64 `json:"timestamp_ms"`
	// TotalTrades 累计成交笔数
	TotalTrades int `json:"total_trades"`
	// WinTrades 盈利笔数
	WinTrades int `json:"win_trades"`
	// LossTrades 亏损笔数
	LossTrades int `json:"loss_trades"`
	// WinRate 胜率
	WinRate float64 `json:"win_rate"`
	// CumNetPnlBps 累计净收益（基点）
	CumNetPnlBps float64 `json:"cum_net_pnl_bps"`
	// AvgNetPnlBps 平均每笔净收益（基点）
	AvgNetPnlBps float64 `json:"avg_net_pnl_bps"`
	// OpenPositions 当前未平仓模拟持仓数
	OpenPositions int `json:"open_positions"`
}
