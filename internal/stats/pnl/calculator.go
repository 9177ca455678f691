// Package pnl 实现模拟成交的期望值（EV）统计。
// EV = p × (R - f) + (1 - p) × (-L - f)
// p_required = (L + f) / (R + L)
package pnl

import (
	"sync"

	"coinex-futures-trader/internal/core/model"
)

type tradeSample struct {
	win         bool
	grossPnlBps float64
	feeBps      float64
	netPnlBps   float64
}

// Stats EV 统计信息（滚动窗口）
type Stats struct {
	// Count 样本数
	Count int64
	// WinCount 盈利样本数（净利>0）
	WinCount int64
	// LossCount 亏损样本数（净利<=0）
	LossCount int64

	// WinRate 胜率 p
	WinRate float64
	// AvgProfit 平均盈利 R（毛利，基点）
	AvgProfit float64
	// AvgLoss 平均亏损 L（毛亏损绝对值，基点）
	AvgLoss float64
	// FeeBps 平均手续费 f（基点，开仓+平仓）
	FeeBps float64

	// EV 期望值（基点）
	EV float64
	// PRequired 盈亏平衡胜率 p_required
	PRequired float64

	// CumNetPnlBps 累计净收益（基点，窗口外样本也计入）
	CumNetPnlBps float64
}

// Calculator EV 计算器（滚动窗口）
// 输入来自模拟成交记录，仅用于研究验证
type Calculator struct {
	// mu 状态锁
	mu sync.Mutex
	// windowSize 滚动窗口大小
	windowSize int
	// buf 环形缓冲区
	buf []tradeSample
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool

	// 滚动统计（O(1) 更新）
	count     int64
	winCount  int64
	lossCount int64
	sumWinR   float64
	sumLossL  float64
	sumFee    float64

	// cumNetPnlBps 累计净收益，不随窗口滚出
	cumNetPnlBps float64
	// totalTrades 累计成交笔数
	totalTrades int64
	// totalWins 累计盈利笔数
	totalWins int64
}

// NewCalculator 创建 EV 计算器
// 参数 windowSize: 滚动窗口大小（建议 1000）
func NewCalculator(windowSize int) *Calculator {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Calculator{
		windowSize: windowSize,
		buf:        make([]tradeSample, windowSize),
	}
}

// Add 添加一笔模拟成交到滚动统计
func (c *Calculator) Add(trade *model.TradeRecord) {
	if trade == nil {
		return
	}

	s := tradeSample{
		win:         trade.NetPnlBps > 0,
		grossPnlBps: trade.GrossPnlBps,
		feeBps:      trade.FeeBps,
		netPnlBps:   trade.NetPnlBps,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 若环已满，移除旧样本对统计的贡献
	if c.full {
		old := c.buf[c.pos]
		c.count--
		if old.win {
			c.winCount--
			c.sumWinR -= old.grossPnlBps
		} else {
			c.lossCount--
			c.sumLossL -= abs(old.grossPnlBps)
		}
		c.sumFee -= old.feeBps
	}

	c.buf[c.pos] = s
	c.pos++
	if c.pos >= c.windowSize {
		c.pos = 0
		c.full = true
	}

	c.count++
	if s.win {
		c.winCount++
		c.sumWinR += s.grossPnlBps
	} else {
		c.lossCount++
		c.sumLossL += abs(s.grossPnlBps)
	}
	c.sumFee += s.feeBps

	c.cumNetPnlBps += s.netPnlBps
	c.totalTrades++
	if s.win {
		c.totalWins++
	}
}

// Stats 返回滚动窗口统计
func (c *Calculator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Stats{
		Count:        c.count,
		WinCount:     c.winCount,
		LossCount:    c.lossCount,
		CumNetPnlBps: c.cumNetPnlBps,
	}
	if c.count <= 0 {
		return out
	}

	out.WinRate = float64(c.winCount) / float64(c.count)
	out.FeeBps = c.sumFee / float64(c.count)

	if c.winCount > 0 {
		out.AvgProfit = c.sumWinR / float64(c.winCount)
	}
	if c.lossCount > 0 {
		out.AvgLoss = c.sumLossL / float64(c.lossCount)
	}

	// EV = p × (R - f) + (1 - p) × (-L - f)
	p := out.WinRate
	R := out.AvgProfit
	L := out.AvgLoss
	f := out.FeeBps
	out.EV = p*(R-f) + (1-p)*(-L-f)

	// p_required = (L + f) / (R + L)
	den := R + L
	if den > 0 {
		out.PRequired = (L + f) / den
	} else {
		out.PRequired = 1
	}

	return out
}

// Snapshot 生成盈亏快照
// 参数 timestampMs: 快照时间（毫秒）
// 参数 openPositions: 当前未平仓模拟持仓数
func (c *Calculator) Snapshot(timestampMs int64, openPositions int) *model.PnLSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &model.PnLSnapshot{
		TimestampMs:   timestampMs,
		TotalTrades:   int(c.totalTrades),
		WinTrades:     int(c.totalWins),
		LossTrades:    int(c.totalTrades - c.totalWins),
		CumNetPnlBps:  c.cumNetPnlBps,
		OpenPositions: openPositions,
	}
	if c.totalTrades > 0 {
		snap.WinRate = float64(c.totalWins) / float64(c.totalTrades)
		snap.AvgNetPnlBps = c.cumNetPnlBps / float64(c.totalTrades)
	}
	return snap
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
