// Package config 负责加载和验证 YAML 配置文件。
// 提供应用程序所需的所有配置项，包括 WebSocket 会话、API 凭证、策略参数、模拟成交设置等。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Markets 用户配置的合约市场列表
	Markets []MarketConfig `yaml:"markets"`
	// Metadata 市场元数据 API 配置
	Metadata MetadataConfig `yaml:"metadata"`
	// REST 历史 K 线 REST API 配置
	REST RESTConfig `yaml:"rest"`
	// Session WebSocket 会话配置
	Session SessionConfig `yaml:"session"`
	// Credentials API 凭证配置（可为空，空凭证无法认证）
	Credentials CredentialsConfig `yaml:"credentials"`
	// Strategy 策略参数配置（Range Filter）
	Strategy StrategyConfig `yaml:"strategy"`
	// Trade 模拟成交配置
	Trade TradeConfig `yaml:"trade"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// MarketConfig 合约市场配置
type MarketConfig struct {
	// Name 市场标识，如 BTCUSDT
	Name string `yaml:"name"`
}

// MetadataConfig 市场元数据 API 配置
type MetadataConfig struct {
	// URL 合约市场列表 API 地址
	URL string `yaml:"url"`
	// TimeoutMs HTTP 请求超时时间（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
}

// RESTConfig 历史 K 线 REST API 配置
type RESTConfig struct {
	// BaseURL REST API 基础地址
	BaseURL string `yaml:"base_url"`
	// TimeoutMs HTTP 请求超时时间（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
	// KlineLimit 预热拉取的 K 线数量
	KlineLimit int `yaml:"kline_limit"`
}

// SessionConfig WebSocket 会话配置
type SessionConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// ConnectTimeoutMs 连接握手超时（毫秒）
	ConnectTimeoutMs int `yaml:"connect_timeout_ms"`
	// Reconnect 重连策略配置
	Reconnect ReconnectConfig `yaml:"reconnect"`
	// AuthWaitTimeoutMs 等待认证完成的超时（毫秒）
	AuthWaitTimeoutMs int `yaml:"auth_wait_timeout_ms"`
	// WriteTimeoutMs 单帧写入超时（毫秒）
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
}

// ReconnectConfig 重连策略配置
type ReconnectConfig struct {
	// BaseMs 重连基础间隔（毫秒）
	BaseMs int `yaml:"base_ms"`
	// MaxMs 重连最大间隔（毫秒）
	MaxMs int `yaml:"max_ms"`
	// Multiplier 退避倍率（>= 1）
	Multiplier float64 `yaml:"multiplier"`
	// Jitter 抖动比例（0-1）
	Jitter float64 `yaml:"jitter"`
	// MaxAttempts 最大重连次数，超过后停止重连
	MaxAttempts int `yaml:"max_attempts"`
}

// CredentialsConfig API 凭证配置
// 凭证可为空或占位值，此时会话无法认证但仍可订阅公共频道。
type CredentialsConfig struct {
	// AccessID API Key（access_id）
	AccessID string `yaml:"access_id"`
	// SecretKey API Secret，用于 HMAC-SHA256 签名
	SecretKey string `yaml:"secret_key"`
}

// Credentials 返回当前凭证
// 实现 coinex.CredentialProvider 接口
func (c *CredentialsConfig) Credentials() (accessID, secretKey string) {
	return c.AccessID, c.SecretKey
}

// Empty 判断凭证是否为空
func (c *CredentialsConfig) Empty() bool {
	return c.AccessID == "" || c.SecretKey == ""
}

// StrategyConfig 策略参数配置（Range Filter）
type StrategyConfig struct {
	// KlinePeriod K 线周期，如 1min, 5min, 15min
	KlinePeriod string `yaml:"kline_period"`
	// RFPeriod Range Filter 采样周期（EMA 长度）
	RFPeriod int `yaml:"rf_period"`
	// RFMultiplier Range Filter 波动带倍率
	RFMultiplier float64 `yaml:"rf_multiplier"`
	// CooldownMs 止损冷却时间（毫秒），冷却期内不产生新信号
	CooldownMs int `yaml:"cooldown_ms"`
	// EVRejectEnabled 是否启用 EV 拒绝（EV<0 时只记录不执行）
	EVRejectEnabled bool `yaml:"ev_reject_enabled"`
	// EVMinSamples EV 拒绝生效所需的最小样本数
	EVMinSamples int `yaml:"ev_min_samples"`
}

// TradeConfig 模拟成交配置
type TradeConfig struct {
	// TPRatio 止盈比例，价格向有利方向移动该比例时止盈
	TPRatio float64 `yaml:"tp_ratio"`
	// SLRatio 止损比例，价格向不利方向移动该比例时止损
	SLRatio float64 `yaml:"sl_ratio"`
	// MaxHoldMs 最大持仓时间（毫秒），超时强制平仓；0 表示不限制
	MaxHoldMs int `yaml:"max_hold_ms"`
	// SlippageBps 滑点（基点），模拟成交时额外扣除
	SlippageBps float64 `yaml:"slippage_bps"`
	// TakerRate Taker 手续费率（0-1）
	TakerRate float64 `yaml:"taker_rate"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// SignalsEnabled 是否输出信号文件
	SignalsEnabled bool `yaml:"signals_enabled"`
	// TradesEnabled 是否输出模拟成交文件
	TradesEnabled bool `yaml:"trades_enabled"`
	// MetricsEnabled 是否输出指标文件
	MetricsEnabled bool `yaml:"metrics_enabled"`
	// MetricsIntervalMs 指标输出间隔（毫秒）
	MetricsIntervalMs int `yaml:"metrics_interval_ms"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析 YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	cfg.setDefaults()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	// 应用默认值
	if c.App.Name == "" {
		c.App.Name = "coinex-futures-trader"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	// 元数据 API 默认超时
	if c.Metadata.TimeoutMs == 0 {
		c.Metadata.TimeoutMs = 10000 // 10 秒
	}

	// REST 默认值
	if c.REST.TimeoutMs == 0 {
		c.REST.TimeoutMs = 10000 // 10 秒
	}
	if c.REST.KlineLimit == 0 {
		c.REST.KlineLimit = 200
	}

	// 会话默认值
	if c.Session.ConnectTimeoutMs == 0 {
		c.Session.ConnectTimeoutMs = 30000 // 30 秒
	}
	if c.Session.AuthWaitTimeoutMs == 0 {
		c.Session.AuthWaitTimeoutMs = 10000 // 10 秒
	}
	if c.Session.WriteTimeoutMs == 0 {
		c.Session.WriteTimeoutMs = 5000 // 5 秒
	}
	if c.Session.Reconnect.BaseMs == 0 {
		c.Session.Reconnect.BaseMs = 1000 // 1 秒
	}
	if c.Session.Reconnect.MaxMs == 0 {
		c.Session.Reconnect.MaxMs = 30000 // 30 秒
	}
	if c.Session.Reconnect.Multiplier == 0 {
		c.Session.Reconnect.Multiplier = 2.0
	}
	if c.Session.Reconnect.MaxAttempts == 0 {
		c.Session.Reconnect.MaxAttempts = 10
	}

	// 策略默认值
	if c.Strategy.KlinePeriod == "" {
		c.Strategy.KlinePeriod = "1min"
	}
	if c.Strategy.RFPeriod == 0 {
		c.Strategy.RFPeriod = 100
	}
	if c.Strategy.RFMultiplier == 0 {
		c.Strategy.RFMultiplier = 3.0
	}
	if c.Strategy.CooldownMs == 0 {
		c.Strategy.CooldownMs = 3000 // 3 秒
	}
	if c.Strategy.EVMinSamples == 0 {
		c.Strategy.EVMinSamples = 30
	}

	// 模拟成交默认值
	if c.Trade.MaxHoldMs == 0 {
		c.Trade.MaxHoldMs = 0 // 默认不限制持仓时间，由反向信号平仓
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.MetricsIntervalMs == 0 {
		c.Output.MetricsIntervalMs = 10000 // 10 秒
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证市场配置
	if len(c.Markets) == 0 {
		errs = append(errs, "markets: 至少需要配置一个市场")
	}
	for i, m := range c.Markets {
		if m.Name == "" {
			errs = append(errs, fmt.Sprintf("markets[%d].name: 市场标识不能为空", i))
		}
	}

	// 验证元数据与 REST API 配置
	if c.Metadata.URL == "" {
		errs = append(errs, "metadata.url: 市场元数据 API 地址不能为空")
	}
	if c.REST.BaseURL == "" {
		errs = append(errs, "rest.base_url: REST API 基础地址不能为空")
	}

	// 验证会话配置
	if c.Session.URL == "" {
		errs = append(errs, "session.url: WebSocket 地址不能为空")
	}
	if c.Session.Reconnect.Multiplier < 1 {
		errs = append(errs, "session.reconnect.multiplier: 退避倍率必须 >= 1")
	}
	if c.Session.Reconnect.Jitter < 0 || c.Session.Reconnect.Jitter > 1 {
		errs = append(errs, "session.reconnect.jitter: 抖动比例必须在 0-1 之间")
	}
	if c.Session.Reconnect.MaxAttempts < 0 {
		errs = append(errs, "session.reconnect.max_attempts: 最大重连次数不能为负数")
	}
	if c.Session.Reconnect.MaxMs < c.Session.Reconnect.BaseMs {
		errs = append(errs, "session.reconnect.max_ms: 最大间隔不能小于基础间隔")
	}

	// 验证策略参数
	if c.Strategy.RFPeriod <= 1 {
		errs = append(errs, "strategy.rf_period: Range Filter 周期必须大于 1")
	}
	if c.Strategy.RFMultiplier <= 0 {
		errs = append(errs, "strategy.rf_multiplier: 波动带倍率必须为正数")
	}
	if c.Strategy.CooldownMs < 0 {
		errs = append(errs, "strategy.cooldown_ms: 冷却时间不能为负数")
	}

	// 验证模拟成交参数
	if c.Trade.TPRatio < 0 || c.Trade.TPRatio > 1 {
		errs = append(errs, "trade.tp_ratio: 止盈比例必须在 0-1 之间")
	}
	if c.Trade.SLRatio < 0 {
		errs = append(errs, "trade.sl_ratio: 止损比例不能为负数")
	}
	if c.Trade.MaxHoldMs < 0 {
		errs = append(errs, "trade.max_hold_ms: 最大持仓时间不能为负数")
	}
	if c.Trade.SlippageBps < 0 {
		errs = append(errs, "trade.slippage_bps: 滑点不能为负数")
	}
	if c.Trade.TakerRate < 0 || c.Trade.TakerRate > 1 {
		errs = append(errs, "trade.taker_rate: 手续费率必须在 0-1 之间")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// MarketNames 获取所有配置的市场标识
// 返回: 市场标识字符串列表
func (c *Config) MarketNames() []string {
	names := make([]string, len(c.Markets))
	for i, m := range c.Markets {
		names[i] = m.Name
	}
	return names
}

// EffectiveTakerFeeBps 计算往返 Taker 手续费（基点）
// 开仓 + 平仓各收取一次
func (t *TradeConfig) EffectiveTakerFeeBps() float64 {
	return 2 * t.TakerRate * 10000
}
