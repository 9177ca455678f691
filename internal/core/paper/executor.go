// Package paper 实现模拟成交执行器。
// 仅做研究验证，不下真实订单: 按信号模拟开仓，
// 按滑点和 Taker 手续费折算成本，跟踪止盈止损和超时平仓。
package paper

import (
	"sync"

	"go.uber.org/zap"

	"coinex-futures-trader/internal/config"
	"coinex-futures-trader/internal/core/model"
	"coinex-futures-trader/internal/util/timeutil"
)

// CloseCallback 平仓回调
// 每笔模拟成交闭合时调用一次
type CloseCallback func(trade *model.TradeRecord)

// Executor 模拟成交执行器
// 每个市场最多持有一个模拟仓位
type Executor struct {
	// cfg 模拟成交配置
	cfg *config.TradeConfig
	// logger 日志记录器
	logger *zap.Logger
	// mu 仓位表锁
	mu sync.Mutex
	// positions 市场到模拟仓位的映射
	positions map[string]*model.PaperPosition
	// onClose 平仓回调
	onClose CloseCallback
}

// NewExecutor 创建模拟成交执行器
func NewExecutor(cfg *config.TradeConfig, logger *zap.Logger) *Executor {
	return &Executor{
		cfg:       cfg,
		logger:    logger.Named("paper"),
		positions: make(map[string]*model.PaperPosition),
	}
}

// OnClose 设置平仓回调
func (e *Executor) OnClose(fn CloseCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClose = fn
}

// applySlippage 按方向施加滑点
// 开多/平空按不利方向上浮，开空/平多按不利方向下调
func (e *Executor) applySlippage(price float64, adverse bool) float64 {
	slip := price * e.cfg.SlippageBps / 10000
	if adverse {
		return price + slip
	}
	return price - slip
}

// Open 按信号模拟开仓
// 已持有同向仓位时幂等返回；持有反向仓位时先以反向信号平仓再开新仓。
// 返回: 开出的仓位；信号被拒绝或同向已持仓时为 nil
func (e *Executor) Open(sig *model.Signal) *model.PaperPosition {
	if sig.RejectedByEV {
		e.logger.Info("信号被 EV 统计拒绝，仅记录不执行",
			zap.String("market", sig.Market),
			zap.String("side", string(sig.Side)),
			zap.Float64("ev", sig.EV))
		return nil
	}

	e.mu.Lock()
	existing := e.positions[sig.Market]
	e.mu.Unlock()

	if existing != nil {
		if existing.Side == sig.Side {
			// 同向信号幂等
			return nil
		}
		// 反向信号先平旧仓
		e.close(sig.Market, sig.Price, model.ExitFlip)
	}

	var entry float64
	var tp, sl float64
	if sig.Side == model.SideLong {
		entry = e.applySlippage(sig.Price, true)
		tp = entry * (1 + e.cfg.TPRatio)
		sl = entry * (1 - e.cfg.SLRatio)
	} else {
		entry = e.applySlippage(sig.Price, false)
		tp = entry * (1 - e.cfg.TPRatio)
		sl = entry * (1 + e.cfg.SLRatio)
	}

	pos := &model.PaperPosition{
		Market:       sig.Market,
		Side:         sig.Side,
		EntryPrice:   entry,
		TPPrice:      tp,
		SLPrice:      sl,
		OpenTimeNs:   timeutil.NowNano(),
		SignalTimeMs: sig.KlineTimeMs,
	}

	e.mu.Lock()
	e.positions[sig.Market] = pos
	e.mu.Unlock()

	e.logger.Info("模拟开仓",
		zap.String("market", pos.Market),
		zap.String("side", string(pos.Side)),
		zap.Float64("entry", pos.EntryPrice),
		zap.Float64("tp", pos.TPPrice),
		zap.Float64("sl", pos.SLPrice))
	return pos
}

// Evaluate 用最新价评估持仓
// 触发止盈、止损或超时时平仓。
// 返回: 平仓原因；未触发时为空串
func (e *Executor) Evaluate(market string, price float64) model.ExitReason {
	e.mu.Lock()
	pos := e.positions[market]
	e.mu.Unlock()

	if pos == nil || price <= 0 {
		return ""
	}

	reason := e.exitReason(pos, price)
	if reason == "" {
		return ""
	}

	e.close(market, price, reason)
	return reason
}

// exitReason 判断是否触发平仓条件
func (e *Executor) exitReason(pos *model.PaperPosition, price float64) model.ExitReason {
	if pos.Side == model.SideLong {
		if price >= pos.TPPrice {
			return model.ExitTakeProfit
		}
		if price <= pos.SLPrice {
			return model.ExitStopLoss
		}
	} else {
		if price <= pos.TPPrice {
			return model.ExitTakeProfit
		}
		if price >= pos.SLPrice {
			return model.ExitStopLoss
		}
	}

	if e.cfg.MaxHoldMs > 0 {
		holdMs := timeutil.SinceNano(pos.OpenTimeNs) / 1_000_000
		if int64(holdMs) >= int64(e.cfg.MaxHoldMs) {
			return model.ExitTimeout
		}
	}
	return ""
}

// CloseAll 强制平掉全部模拟仓位
// 退出时调用，按最新已知价平仓
func (e *Executor) CloseAll(lastPrices map[string]float64) {
	e.mu.Lock()
	markets := make([]string, 0, len(e.positions))
	for market := range e.positions {
		markets = append(markets, market)
	}
	e.mu.Unlock()

	for _, market := range markets {
		price := lastPrices[market]
		if price <= 0 {
			e.mu.Lock()
			if pos := e.positions[market]; pos != nil {
				price = pos.EntryPrice
			}
			e.mu.Unlock()
		}
		e.close(market, price, model.ExitShutdown)
	}
}

// close 闭合一笔模拟成交
// 净收益 = 毛收益 - 往返手续费
func (e *Executor) close(market string, price float64, reason model.ExitReason) {
	e.mu.Lock()
	pos := e.positions[market]
	if pos == nil {
		e.mu.Unlock()
		return
	}
	delete(e.positions, market)
	onClose := e.onClose
	e.mu.Unlock()

	var exit float64
	var grossBps float64
	if pos.Side == model.SideLong {
		exit = e.applySlippage(price, false)
		grossBps = (exit - pos.EntryPrice) / pos.EntryPrice * 10000
	} else {
		exit = e.applySlippage(price, true)
		grossBps = (pos.EntryPrice - exit) / pos.EntryPrice * 10000
	}

	feeBps := e.cfg.EffectiveTakerFeeBps()
	closeNs := timeutil.NowNano()

	trade := &model.TradeRecord{
		Market:      market,
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exit,
		GrossPnlBps: grossBps,
		FeeBps:      feeBps,
		NetPnlBps:   grossBps - feeBps,
		ExitReason:  reason,
		OpenTimeNs:  pos.OpenTimeNs,
		CloseTimeNs: closeNs,
		HoldMs:      (closeNs - pos.OpenTimeNs) / 1_000_000,
	}

	e.logger.Info("模拟平仓",
		zap.String("market", trade.Market),
		zap.String("side", string(trade.Side)),
		zap.String("reason", string(trade.ExitReason)),
		zap.Float64("net_pnl_bps", trade.NetPnlBps))

	if onClose != nil {
		onClose(trade)
	}
}

// Position 查询市场的当前模拟仓位
func (e *Executor) Position(market string) *model.PaperPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positions[market]
}

// OpenCount 当前未平仓仓位数
func (e *Executor) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.positions)
}
