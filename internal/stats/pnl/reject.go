package pnl

import "coinex-futures-trader/internal/core/model"

// ApplyRejection 将 EV 统计应用到交易信号上
// 规则: 启用 EV 拒绝且样本数达到下限时，EV<0 的信号标记为 RejectedByEV。
// 被拒绝的信号只记录不执行。
func ApplyRejection(sig *model.Signal, stats Stats, enabled bool, minSamples int) {
	if sig == nil {
		return
	}
	sig.EV = stats.EV
	if !enabled {
		return
	}
	if stats.Count >= int64(minSamples) && stats.EV < 0 {
		sig.RejectedByEV = true
	}
}
