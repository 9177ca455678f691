package model

// Side 交易方向
type Side string

const (
	// SideLong 做多
	SideLong Side = "long"
	// SideShort 做空
	SideShort Side = "short"
)

// Opposite 返回相反方向
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Signal 策略信号
// Range Filter 过滤线方向翻转时产生
type Signal struct {
	// Market 市场标识
	Market string `json:"market"`
	// Side 信号方向
	Side Side `json:"side"`
	// Price 信号触发时的收盘价
	Price float64 `json:"price"`
	// Filter 触发时的过滤线值
	Filter float64 `json:"filter"`
	// Band 触发时的波动带宽度
	Band float64 `json:"band"`
	// KlineTimeMs 触发 K 线的起始时间（毫秒）
	KlineTimeMs int64 `json:"kline_time_ms"`
	// SignalTimeNs 信号产生的本地时间（纳秒）
	SignalTimeNs int64 `json:"signal_time_ns"`
	// RejectedByEV 是否被 EV 统计拒绝（只记录不执行）
	RejectedByEV bool `json:"rejected_by_ev"`
	// EV 信号方向的当前期望值估计（拒绝判断依据）
	EV float64 `json:"ev"`
}
