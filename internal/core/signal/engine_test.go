package signal

import (
	"testing"

	"go.uber.org/zap"

	"coinex-futures-trader/internal/config"
	"coinex-futures-trader/internal/core/model"
)

// testStrategyConfig 测试用策略配置
func testStrategyConfig() *config.StrategyConfig {
	return &config.StrategyConfig{
		KlinePeriod:  "1min",
		RFPeriod:     5,
		RFMultiplier: 1.0,
		CooldownMs:   100,
	}
}

// makeKlines 构造一组收盘价序列对应的 K 线
func makeKlines(market string, startMs int64, closes []float64) []*model.Kline {
	klines := make([]*model.Kline, len(closes))
	for i, c := range closes {
		klines[i] = &model.Kline{
			Market:      market,
			TimestampMs: startMs + int64(i)*60000,
			Open:        c,
			Close:       c,
			High:        c,
			Low:         c,
		}
	}
	return klines
}

// trendCloses 构造先下行后上行的收盘价序列
func trendCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	price := start
	for i := range closes {
		price += step
		closes[i] = price
	}
	return closes
}

// TestEngine_WarmupThenSignal 测试预热后趋势翻转产生信号
func TestEngine_WarmupThenSignal(t *testing.T) {
	e := NewEngine(testStrategyConfig(), zap.NewNop())

	// 下行历史预热建立空头区间
	warmup := makeKlines("BTCUSDT", 1700000000000, trendCloses(30, 1000, -1))
	e.Warmup("BTCUSDT", warmup)

	if !e.Ready("BTCUSDT") {
		t.Fatal("预热后指标应已就绪")
	}

	// 急速上行推送，应恰好产生一次做多信号
	lastTs := warmup[len(warmup)-1].TimestampMs
	price := 970.0
	longCount := 0
	for i := 1; i <= 30; i++ {
		price += 5
		sig := e.OnKline(&model.Kline{
			Market:      "BTCUSDT",
			TimestampMs: lastTs + int64(i)*60000,
			Close:       price,
		})
		if sig != nil {
			if sig.Side != model.SideLong {
				t.Errorf("信号方向 = %s, want long", sig.Side)
			}
			if sig.Market != "BTCUSDT" {
				t.Errorf("信号市场 = %s, want BTCUSDT", sig.Market)
			}
			longCount++
		}
	}
	if longCount != 1 {
		t.Errorf("longCount = %d, want 1", longCount)
	}
}

// TestEngine_SameTimestampNoAdvance 测试同一根 K 线的重复推送
// 时间戳不前进时指标不推进，不产生信号
func TestEngine_SameTimestampNoAdvance(t *testing.T) {
	e := NewEngine(testStrategyConfig(), zap.NewNop())

	warmup := makeKlines("BTCUSDT", 1700000000000, trendCloses(30, 1000, -1))
	e.Warmup("BTCUSDT", warmup)

	// 同一时间戳反复推送，价格怎么跳都不应产生信号
	ts := warmup[len(warmup)-1].TimestampMs
	for i := 0; i < 20; i++ {
		sig := e.OnKline(&model.Kline{
			Market:      "BTCUSDT",
			TimestampMs: ts,
			Close:       1000 + float64(i*100),
		})
		if sig != nil {
			t.Fatalf("同一时间戳推送不应产生信号: %+v", sig)
		}
	}
}

// TestEngine_CooldownSuppressesSignals 测试止损冷却抑制信号
func TestEngine_CooldownSuppressesSignals(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.CooldownMs = 60000 // 冷却期远长于测试时长
	e := NewEngine(cfg, zap.NewNop())

	warmup := makeKlines("BTCUSDT", 1700000000000, trendCloses(30, 1000, -1))
	e.Warmup("BTCUSDT", warmup)

	// 止损回报后启动冷却
	e.NotifyStopLoss("BTCUSDT")

	// 冷却期内即使趋势翻转也不产生信号
	lastTs := warmup[len(warmup)-1].TimestampMs
	price := 970.0
	for i := 1; i <= 30; i++ {
		price += 5
		sig := e.OnKline(&model.Kline{
			Market:      "BTCUSDT",
			TimestampMs: lastTs + int64(i)*60000,
			Close:       price,
		})
		if sig != nil {
			t.Fatalf("冷却期内不应产生信号: %+v", sig)
		}
	}
}

// TestEngine_MarketsIsolated 测试市场间状态隔离
func TestEngine_MarketsIsolated(t *testing.T) {
	e := NewEngine(testStrategyConfig(), zap.NewNop())

	e.Warmup("BTCUSDT", makeKlines("BTCUSDT", 1700000000000, trendCloses(30, 1000, -1)))

	if !e.Ready("BTCUSDT") {
		t.Error("BTCUSDT 应已预热")
	}
	if e.Ready("ETHUSDT") {
		t.Error("ETHUSDT 未预热不应就绪")
	}
}

// TestEngine_EmptyWarmup 测试空历史预热
func TestEngine_EmptyWarmup(t *testing.T) {
	e := NewEngine(testStrategyConfig(), zap.NewNop())
	e.Warmup("BTCUSDT", nil)

	if e.Ready("BTCUSDT") {
		t.Error("空历史预热后不应就绪")
	}
}
