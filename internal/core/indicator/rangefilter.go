// Package indicator 实现 Range Filter 指标。
// 对价格变动幅度做两级 EMA 平滑得到波动带，过滤线只在价格
// 突破波动带时跟随移动，过滤线方向翻转产生多空信号。
package indicator

import (
	"math"
)

// Result 单根 K 线更新后的指标输出
type Result struct {
	// Filter 过滤线值
	Filter float64
	// Band 波动带宽度（平滑后的变动幅度乘以倍率）
	Band float64
	// Long 本根产生做多信号
	Long bool
	// Short 本根产生做空信号
	Short bool
	// Ready 指标是否已完成预热
	Ready bool
}

// RangeFilter Range Filter 指标状态
// 增量更新，每根收盘 K 线调用一次 Update
type RangeFilter struct {
	// period 采样周期
	period int
	// multiplier 波动带倍率
	multiplier float64

	// alphaRng 变动幅度 EMA 的平滑系数: 2/(period+1)
	alphaRng float64
	// alphaSmooth 二级平滑系数: 2/(period*2)，对应周期 period*2-1
	alphaSmooth float64

	// prevSrc 上一根收盘价
	prevSrc float64
	// avrng 变动幅度的一级 EMA
	avrng float64
	// smooth 变动幅度的二级 EMA（未乘倍率）
	smooth float64
	// filt 过滤线当前值
	filt float64
	// upward 连续上行计数
	upward int
	// downward 连续下行计数
	downward int
	// condIni 信号方向锚: 1 多头区间, -1 空头区间, 0 未定
	// 翻转去重: 仅方向切换的那一根产生信号
	condIni int
	// samples 已喂入的样本数
	samples int
}

// NewRangeFilter 创建 Range Filter 指标
// 参数 period: 采样周期，必须大于 1
// 参数 multiplier: 波动带倍率
func NewRangeFilter(period int, multiplier float64) *RangeFilter {
	return &RangeFilter{
		period:      period,
		multiplier:  multiplier,
		alphaRng:    2.0 / float64(period+1),
		alphaSmooth: 2.0 / float64(period*2),
	}
}

// warmupSamples 预热所需样本数
// 两级 EMA 串联，按两倍周期算稳定
func (rf *RangeFilter) warmupSamples() int {
	return rf.period * 2
}

// Ready 指标是否已完成预热
func (rf *RangeFilter) Ready() bool {
	return rf.samples >= rf.warmupSamples()
}

// Filter 当前过滤线值
func (rf *RangeFilter) Filter() float64 {
	return rf.filt
}

// Band 当前波动带宽度
func (rf *RangeFilter) Band() float64 {
	return rf.smooth * rf.multiplier
}

// Update 喂入一根收盘价并推进指标
// 返回本根的指标输出，预热未完成时不产生信号
func (rf *RangeFilter) Update(src float64) Result {
	rf.samples++

	// 首样本只做初始化
	if rf.samples == 1 {
		rf.prevSrc = src
		rf.filt = src
		return Result{Filter: rf.filt, Band: 0, Ready: false}
	}

	// 两级 EMA 平滑变动幅度
	delta := math.Abs(src - rf.prevSrc)
	rf.avrng = rf.avrng + rf.alphaRng*(delta-rf.avrng)
	rf.smooth = rf.smooth + rf.alphaSmooth*(rf.avrng-rf.smooth)
	rf.prevSrc = src

	band := rf.smooth * rf.multiplier

	// 过滤线只在价格突破波动带时跟随移动
	prevFilt := rf.filt
	switch {
	case src > prevFilt:
		if src-band > prevFilt {
			rf.filt = src - band
		}
	case src < prevFilt:
		if src+band < prevFilt {
			rf.filt = src + band
		}
	}

	// 方向计数
	switch {
	case rf.filt > prevFilt:
		rf.upward++
		rf.downward = 0
	case rf.filt < prevFilt:
		rf.downward++
		rf.upward = 0
	}

	ready := rf.Ready()

	// 多空条件与翻转去重
	longCond := src > rf.filt && rf.upward > 0
	shortCond := src < rf.filt && rf.downward > 0

	prevCondIni := rf.condIni
	if longCond {
		rf.condIni = 1
	} else if shortCond {
		rf.condIni = -1
	}

	result := Result{
		Filter: rf.filt,
		Band:   band,
		Ready:  ready,
	}
	if ready {
		result.Long = longCond && prevCondIni == -1
		result.Short = shortCond && prevCondIni == 1
	}
	return result
}

// Reset 清空指标状态
func (rf *RangeFilter) Reset() {
	rf.prevSrc = 0
	rf.avrng = 0
	rf.smooth = 0
	rf.filt = 0
	rf.upward = 0
	rf.downward = 0
	rf.condIni = 0
	rf.samples = 0
}
