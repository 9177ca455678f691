// Package signal 实现按市场维护的信号引擎。
// 将收盘 K 线喂入 Range Filter，应用止损冷却，
// 在过滤线方向翻转时产生交易信号。
package signal

import (
	"sync"

	"go.uber.org/zap"

	"coinex-futures-trader/internal/config"
	"coinex-futures-trader/internal/core/indicator"
	"coinex-futures-trader/internal/core/model"
	"coinex-futures-trader/internal/util/timeutil"
)

// marketState 单个市场的引擎状态
type marketState struct {
	// rf Range Filter 指标
	rf *indicator.RangeFilter
	// pending 推送中尚未收盘的 K 线
	// 同一根 K 线会被多次推送，时间戳前进时前一根视为收盘
	pending *model.Kline
	// cooldownUntilNs 止损冷却截止时间（纳秒），冷却期内不产生新信号
	cooldownUntilNs int64
}

// Engine 信号引擎
// 每个配置的市场持有独立的指标和冷却状态
type Engine struct {
	// cfg 策略配置
	cfg *config.StrategyConfig
	// logger 日志记录器
	logger *zap.Logger
	// mu 状态锁
	mu sync.Mutex
	// markets 市场状态表
	markets map[string]*marketState
}

// NewEngine 创建信号引擎
func NewEngine(cfg *config.StrategyConfig, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		logger:  logger.Named("signal"),
		markets: make(map[string]*marketState),
	}
}

// stateFor 获取或创建市场状态
// 调用方必须持有 e.mu
func (e *Engine) stateFor(market string) *marketState {
	st, ok := e.markets[market]
	if !ok {
		st = &marketState{
			rf: indicator.NewRangeFilter(e.cfg.RFPeriod, e.cfg.RFMultiplier),
		}
		e.markets[market] = st
	}
	return st
}

// Warmup 用历史 K 线预热指标
// 最后一根可能未收盘，不喂入
func (e *Engine) Warmup(market string, klines []*model.Kline) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(market)
	n := len(klines)
	if n == 0 {
		return
	}

	for i := 0; i < n-1; i++ {
		st.rf.Update(klines[i].Close)
	}
	// 最后一根留作待收盘 K 线，时间戳前进时再喂入
	st.pending = klines[n-1]

	e.logger.Info("指标预热完成",
		zap.String("market", market),
		zap.Int("klines", n-1),
		zap.Bool("ready", st.rf.Ready()))
}

// OnKline 处理一根推送的 K 线
// 同一时间戳反复推送只更新待收盘 K 线；时间戳前进时前一根收盘并推进指标。
// 返回: 产生的信号，无信号时为 nil
func (e *Engine) OnKline(k *model.Kline) *model.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(k.Market)

	if st.pending == nil {
		st.pending = k
		return nil
	}
	if k.TimestampMs <= st.pending.TimestampMs {
		// 同一根 K 线的更新推送
		st.pending = k
		return nil
	}

	// 前一根收盘，推进指标
	closed := st.pending
	st.pending = k
	result := st.rf.Update(closed.Close)

	if !result.Ready {
		return nil
	}
	if !result.Long && !result.Short {
		return nil
	}

	nowNs := timeutil.NowNano()
	if nowNs < st.cooldownUntilNs {
		e.logger.Debug("冷却期内忽略信号",
			zap.String("market", k.Market))
		return nil
	}

	side := model.SideLong
	if result.Short {
		side = model.SideShort
	}

	sig := &model.Signal{
		Market:       k.Market,
		Side:         side,
		Price:        closed.Close,
		Filter:       result.Filter,
		Band:         result.Band,
		KlineTimeMs:  closed.TimestampMs,
		SignalTimeNs: nowNs,
	}

	e.logger.Info("产生交易信号",
		zap.String("market", sig.Market),
		zap.String("side", string(sig.Side)),
		zap.Float64("price", sig.Price),
		zap.Float64("filter", sig.Filter))
	return sig
}

// NotifyStopLoss 止损回报
// 启动冷却期，冷却期内该市场不产生新信号
func (e *Engine) NotifyStopLoss(market string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(market)
	st.cooldownUntilNs = timeutil.NowNano() + int64(e.cfg.CooldownMs)*1_000_000

	e.logger.Info("止损冷却启动",
		zap.String("market", market),
		zap.Int("cooldown_ms", e.cfg.CooldownMs))
}

// Ready 市场指标是否已完成预热
func (e *Engine) Ready(market string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.markets[market]
	return ok && st.rf.Ready()
}
