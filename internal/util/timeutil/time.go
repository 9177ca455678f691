// Package timeutil 提供统一的时间戳读取。
// 认证签名使用毫秒时间戳，推送间隔统计使用纳秒时间戳。
package timeutil

import (
	"time"
)

var (
	// baseTime 进程启动基准时间（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 当前 Unix 纳秒时间戳
// 由启动时刻加单调时钟差值组成，系统时间跳变（NTP/手动调整）
// 不影响差值的单调性，推送间隔统计依赖这一点。
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// NowMs 当前 Unix 毫秒时间戳
// CoinEx 认证签名与 K 线时间戳均为毫秒精度
func NowMs() int64 {
	return NowNano() / 1_000_000
}

// SinceNano 指定纳秒时间戳到当前的时长
func SinceNano(startNs int64) time.Duration {
	return time.Duration(NowNano() - startNs)
}
