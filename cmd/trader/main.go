// Package main 是 CoinEx 永续合约信号交易器的入口点。
// 本程序通过 WebSocket 订阅行情与持仓推送，基于 Range Filter 指标
// 在 K 线收盘时生成方向信号，并以纸面成交方式验证策略表现。
//
// 重要：本系统仅做模拟撮合，严禁真实下单。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coinex-futures-trader/internal/config"
	"coinex-futures-trader/internal/core/model"
	"coinex-futures-trader/internal/core/paper"
	sigengine "coinex-futures-trader/internal/core/signal"
	"coinex-futures-trader/internal/core/store"
	"coinex-futures-trader/internal/exchange/coinex"
	"coinex-futures-trader/internal/metadata"
	"coinex-futures-trader/internal/output/jsonl"
	"coinex-futures-trader/internal/rest"
	"coinex-futures-trader/internal/stats/feed"
	"coinex-futures-trader/internal/stats/pnl"
	"coinex-futures-trader/internal/util/timeutil"
)

type metricsSnapshot struct {
	// TimestampMs 指标采集时间（毫秒）
	TimestampMs int64 `json:"timestamp_ms"`

	// PnL 纸面盈亏快照
	PnL *model.PnLSnapshot `json:"pnl"`
	// EVBps 滚动窗口期望值（基点）
	EVBps float64 `json:"ev_bps"`
	// PRequired 盈亏平衡胜率
	PRequired float64 `json:"p_required"`

	// Feed 按市场的推送间隔统计
	Feed []feedGap `json:"feed,omitempty"`
}

type feedGap struct {
	// Market 市场标识
	Market string `json:"market"`
	// Count 推送间隔样本数
	Count int64 `json:"count"`
	// GapP50Ms 推送间隔 P50（毫秒）
	GapP50Ms float64 `json:"gap_p50_ms"`
	// GapP90Ms 推送间隔 P90（毫秒）
	GapP90Ms float64 `json:"gap_p90_ms"`
	// GapP99Ms 推送间隔 P99（毫秒）
	GapP99Ms float64 `json:"gap_p99_ms"`
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	// 启动时拉取合约元数据，校验配置市场可交易（禁止硬编码合约参数）
	fetcher := metadata.NewHTTPFetcher(cfg.Metadata.TimeoutMs)
	infos, err := metadata.BuildMarketInfos(ctx, cfg, fetcher)
	if err != nil {
		logger.Error("构建市场元数据失败", zap.Error(err))
		os.Exit(1)
	}
	for name, info := range infos {
		logger.Info("市场校验通过",
			zap.String("market", name),
			zap.Float64("tick_size", info.TickSize),
			zap.Int("max_leverage", info.MaxLeverage))
	}

	sink, err := jsonl.NewSink(&cfg.Output)
	if err != nil {
		logger.Error("创建输出流失败", zap.Error(err))
		os.Exit(1)
	}

	// 初始化核心组件
	marketStore := store.New()
	feedTracker := feed.NewTracker(10000)
	engine := sigengine.NewEngine(&cfg.Strategy, logger)
	executor := paper.NewExecutor(&cfg.Trade, logger)
	calc := pnl.NewCalculator(1000)

	executor.OnClose(func(trade *model.TradeRecord) {
		calc.Add(trade)
		_ = sink.Trades.Write(trade)
	})

	// 用 REST 历史 K 线预热指标，避免启动后长时间无信号
	restClient := rest.NewClient(cfg.REST.BaseURL, cfg.REST.TimeoutMs)
	for _, name := range cfg.MarketNames() {
		klines, err := restClient.Klines(ctx, name, cfg.Strategy.KlinePeriod, cfg.REST.KlineLimit)
		if err != nil {
			logger.Error("拉取历史 K 线失败", zap.String("market", name), zap.Error(err))
			os.Exit(1)
		}
		engine.Warmup(name, klines)
		if !engine.Ready(name) {
			logger.Warn("历史 K 线不足，指标未就绪，等待实时推送补足",
				zap.String("market", name),
				zap.Int("klines", len(klines)))
		}
	}

	session := coinex.NewSession(&cfg.Session, &cfg.Credentials, logger)
	registerHandlers(session, cfg, logger, marketStore, feedTracker, engine, executor, calc, sink, cancel)

	if err := session.Connect(); err != nil {
		logger.Error("连接交易所失败", zap.Error(err))
		os.Exit(1)
	}

	// 有凭证时先认证再订阅私有主题；无凭证时仅跑公有行情
	authed := false
	if !cfg.Credentials.Empty() {
		if err := session.Authenticate(); err != nil {
			logger.Error("发送认证请求失败", zap.Error(err))
			os.Exit(1)
		}
		authed = session.WaitAuthenticated(time.Duration(cfg.Session.AuthWaitTimeoutMs) * time.Millisecond)
		if !authed {
			logger.Warn("认证未通过，持仓推送不可用，仅订阅公有主题")
		}
	}

	if err := session.SubscribeMarketOverview(); err != nil {
		logger.Warn("订阅全市场概览失败", zap.Error(err))
	}
	for _, name := range cfg.MarketNames() {
		if err := session.SubscribeState(name); err != nil {
			logger.Error("订阅行情失败", zap.String("market", name), zap.Error(err))
			os.Exit(1)
		}
		if err := session.SubscribeKline(name, cfg.Strategy.KlinePeriod); err != nil {
			logger.Error("订阅 K 线失败", zap.String("market", name), zap.Error(err))
			os.Exit(1)
		}
		if authed {
			if err := session.SubscribePositions(name); err != nil {
				logger.Warn("订阅持仓失败", zap.String("market", name), zap.Error(err))
			}
		}
	}

	logger.Info("启动完成",
		zap.Strings("markets", cfg.MarketNames()),
		zap.String("kline_period", cfg.Strategy.KlinePeriod),
		zap.Bool("authenticated", authed))

	runMetricsLoop(ctx, calc, executor, feedTracker, sink, cfg.Output.MetricsIntervalMs)

	// 输出最后一条 metrics 快照（便于离线复盘）
	writeMetrics(calc, executor, feedTracker, sink)

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		executor.CloseAll(marketStore.LastPrices())
		session.Disconnect()
		sink.Close()
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// registerHandlers 把会话事件接到核心组件上。
// 回调在读循环 goroutine 内依次执行，各组件自带锁，不需要额外同步。
func registerHandlers(
	session *coinex.Session,
	cfg *config.Config,
	logger *zap.Logger,
	marketStore *store.Store,
	feedTracker *feed.Tracker,
	engine *sigengine.Engine,
	executor *paper.Executor,
	calc *pnl.Calculator,
	sink *jsonl.Sink,
	cancel context.CancelFunc,
) {
	session.On(coinex.EventStateUpdate, func(payload interface{}) {
		states, ok := payload.([]*model.MarketState)
		if !ok {
			return
		}
		for _, st := range states {
			marketStore.SetState(st)
			feedTracker.Add(st.Market, st.RecvTimeNs)
			if reason := executor.Evaluate(st.Market, st.LastPrice); reason == model.ExitStopLoss {
				engine.NotifyStopLoss(st.Market)
			}
		}
	})

	session.On(coinex.EventPositionUpdate, func(payload interface{}) {
		if pos, ok := payload.(*model.Position); ok {
			marketStore.SetPosition(pos)
		}
	})

	session.On(coinex.EventPositionSnapshot, func(payload interface{}) {
		if positions, ok := payload.([]*model.Position); ok {
			marketStore.SetPositions(positions)
		}
	})

	session.On("kline.update", func(payload interface{}) {
		msg, ok := payload.(*coinex.InboundMessage)
		if !ok {
			return
		}
		klines, err := coinex.ParseKlineUpdate(msg.Data)
		if err != nil {
			logger.Warn("解析 K 线推送失败", zap.Error(err))
			return
		}
		for _, k := range klines {
			sig := engine.OnKline(k)
			if sig == nil {
				continue
			}
			handleSignal(sig, &cfg.Strategy, calc, executor, sink, logger)
		}
	})

	session.On(coinex.EventOpen, func(interface{}) {
		logger.Info("会话已建立")
	})
	session.On(coinex.EventClose, func(interface{}) {
		logger.Warn("会话已断开")
	})
	session.On(coinex.EventAuthenticated, func(interface{}) {
		logger.Info("认证成功")
	})
	session.On(coinex.EventAuthFailed, func(payload interface{}) {
		if msg, ok := payload.(*coinex.InboundMessage); ok {
			logger.Error("认证失败", zap.String("message", msg.Message))
		}
	})
	session.On(coinex.EventError, func(payload interface{}) {
		// 终态错误（重连次数耗尽），触发整体退出
		if err, ok := payload.(error); ok {
			logger.Error("会话终态错误", zap.Error(err))
		}
		cancel()
	})
}

// handleSignal 对新信号做 EV 拒绝判定、落盘并开仓。
func handleSignal(
	sig *model.Signal,
	strategy *config.StrategyConfig,
	calc *pnl.Calculator,
	executor *paper.Executor,
	sink *jsonl.Sink,
	logger *zap.Logger,
) {
	pnl.ApplyRejection(sig, calc.Stats(), strategy.EVRejectEnabled, strategy.EVMinSamples)

	_ = sink.Signals.Write(sig)

	if sig.RejectedByEV {
		logger.Info("信号被 EV 拒绝",
			zap.String("market", sig.Market),
			zap.String("side", string(sig.Side)),
			zap.Float64("ev", sig.EV))
		return
	}

	if pos := executor.Open(sig); pos != nil {
		logger.Info("纸面开仓",
			zap.String("market", sig.Market),
			zap.String("side", string(sig.Side)),
			zap.Float64("entry", pos.EntryPrice))
	}
}

// runMetricsLoop 周期性输出指标快照，直到收到退出信号。
func runMetricsLoop(
	ctx context.Context,
	calc *pnl.Calculator,
	executor *paper.Executor,
	feedTracker *feed.Tracker,
	sink *jsonl.Sink,
	intervalMs int,
) {
	if intervalMs <= 0 {
		intervalMs = 10000
	}
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeMetrics(calc, executor, feedTracker, sink)
		}
	}
}

func writeMetrics(
	calc *pnl.Calculator,
	executor *paper.Executor,
	feedTracker *feed.Tracker,
	sink *jsonl.Sink,
) {
	if sink.Metrics == nil {
		return
	}

	stats := calc.Stats()
	snap := metricsSnapshot{
		TimestampMs: timeutil.NowMs(),
		PnL:         calc.Snapshot(timeutil.NowMs(), executor.OpenCount()),
		EVBps:       stats.EV,
		PRequired:   stats.PRequired,
	}
	for _, market := range feedTracker.Markets() {
		fs := feedTracker.Stats(market)
		snap.Feed = append(snap.Feed, feedGap{
			Market:   fs.Market,
			Count:    fs.Count,
			GapP50Ms: fs.GapP50Ms,
			GapP90Ms: fs.GapP90Ms,
			GapP99Ms: fs.GapP99Ms,
		})
	}

	_ = sink.Metrics.Write(snap)
	_ = sink.Metrics.Flush()
}
