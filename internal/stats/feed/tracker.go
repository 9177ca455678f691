// Package feed 实现行情推送的健康度统计。
// 为每个市场维护状态推送间隔的滚动窗口分位数，
// 用于观察推送是否按预期节奏到达。
package feed

import (
	"sort"
	"sync"
)

// Stats 推送统计快照（滚动窗口）
// 单位: 毫秒
type Stats struct {
	// Market 市场标识
	Market string
	// Count 样本总数（累计）
	Count int64
	// GapP50Ms 推送间隔 P50（毫秒）
	GapP50Ms float64
	// GapP90Ms 推送间隔 P90（毫秒）
	GapP90Ms float64
	// GapP99Ms 推送间隔 P99（毫秒）
	GapP99Ms float64
}

type rollingWindow struct {
	size  int
	buf   []int64
	pos   int
	count int64
	full  bool

	mu sync.Mutex
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size, buf: make([]int64, 0, size)}
}

func (w *rollingWindow) add(v int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	if w.size <= 0 {
		return
	}

	if !w.full {
		w.buf = append(w.buf, v)
		if len(w.buf) == w.size {
			w.full = true
			w.pos = 0
		}
		return
	}

	w.buf[w.pos] = v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
	}
}

func (w *rollingWindow) snapshotQuantiles(qs ...float64) (count int64, values []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count = w.count
	if len(w.buf) == 0 {
		return count, make([]int64, len(qs))
	}

	tmp := make([]int64, len(w.buf))
	copy(tmp, w.buf)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	values = make([]int64, len(qs))
	n := len(tmp)
	for i, q := range qs {
		if q <= 0 {
			values[i] = tmp[0]
			continue
		}
		if q >= 1 {
			values[i] = tmp[n-1]
			continue
		}
		idx := int(float64(n-1) * q)
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		values[i] = tmp[idx]
	}
	return count, values
}

// marketTracker 单个市场的推送统计
type marketTracker struct {
	// gap 推送间隔滚动窗口（纳秒）
	gap *rollingWindow
	// lastRecvNs 上次推送到达时间（纳秒）
	lastRecvNs int64
}

// Tracker 推送健康度追踪器
// 每个市场维护独立的滚动窗口统计
type Tracker struct {
	// windowSize 滚动窗口大小
	windowSize int
	// mu 市场表锁
	mu sync.Mutex
	// markets 市场到统计的映射
	markets map[string]*marketTracker
}

// NewTracker 创建推送追踪器
// 参数 windowSize: 滚动窗口大小（建议 10000），用于 P50/P90/P99
func NewTracker(windowSize int) *Tracker {
	return &Tracker{
		windowSize: windowSize,
		markets:    make(map[string]*marketTracker),
	}
}

// Add 记录一次市场状态推送的到达
// 参数 recvNs: 本地接收时间（纳秒）
func (t *Tracker) Add(market string, recvNs int64) {
	if market == "" || recvNs <= 0 {
		return
	}

	t.mu.Lock()
	mt, ok := t.markets[market]
	if !ok {
		mt = &marketTracker{gap: newRollingWindow(t.windowSize)}
		t.markets[market] = mt
	}
	last := mt.lastRecvNs
	mt.lastRecvNs = recvNs
	t.mu.Unlock()

	// 首次推送无间隔可计
	if last <= 0 || recvNs <= last {
		return
	}
	mt.gap.add(recvNs - last)
}

// Stats 获取指定市场的统计快照
func (t *Tracker) Stats(market string) Stats {
	t.mu.Lock()
	mt, ok := t.markets[market]
	t.mu.Unlock()

	if !ok {
		return Stats{Market: market}
	}

	count, qs := mt.gap.snapshotQuantiles(0.50, 0.90, 0.99)
	return Stats{
		Market:   market,
		Count:    count,
		GapP50Ms: float64(qs[0]) / 1_000_000.0,
		GapP90Ms: float64(qs[1]) / 1_000_000.0,
		GapP99Ms: float64(qs[2]) / 1_000_000.0,
	}
}

// Markets 返回已有统计的市场列表
func (t *Tracker) Markets() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.markets))
	for market := range t.markets {
		out = append(out, market)
	}
	sort.Strings(out)
	return out
}
