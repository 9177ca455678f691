package metadata

import (
	"context"
	"errors"
	"testing"

	"coinex-futures-trader/internal/config"
)

// fakeFetcher 测试用元数据获取器
type fakeFetcher struct {
	entries []MarketEntry
	err     error
}

func (f *fakeFetcher) FetchMarkets(ctx context.Context, url string) ([]MarketEntry, error) {
	return f.entries, f.err
}

// testEntries 测试用市场列表
func testEntries() []MarketEntry {
	return []MarketEntry{
		{
			Market:            "BTCUSDT",
			ContractType:      "linear",
			BaseCcy:           "BTC",
			QuoteCcy:          "USDT",
			TickSize:          "0.1",
			MinAmount:         "0.0001",
			Leverage:          []int{1, 3, 5, 10, 20, 50, 100},
			IsMarketAvailable: true,
		},
		{
			Market:            "XRPUSDT",
			ContractType:      "linear",
			BaseCcy:           "XRP",
			QuoteCcy:          "USDT",
			TickSize:          "0.0001",
			MinAmount:         "1",
			Leverage:          []int{1, 3, 5, 10, 20},
			IsMarketAvailable: true,
		},
		{
			// 反向合约不索引
			Market:       "BTCUSD",
			ContractType: "inverse",
			QuoteCcy:     "USD",
		},
		{
			// 暂停交易的市场
			Market:            "HALTUSDT",
			ContractType:      "linear",
			QuoteCcy:          "USDT",
			IsMarketAvailable: false,
		},
	}
}

// marketsConfig 构造含指定市场的配置
func marketsConfig(names ...string) *config.Config {
	cfg := &config.Config{
		Metadata: config.MetadataConfig{URL: "https://example/futures/market"},
	}
	for _, n := range names {
		cfg.Markets = append(cfg.Markets, config.MarketConfig{Name: n})
	}
	return cfg
}

// TestBuildMarketInfos_Success 测试市场验证成功
func TestBuildMarketInfos_Success(t *testing.T) {
	f := &fakeFetcher{entries: testEntries()}

	infos, err := BuildMarketInfos(context.Background(), marketsConfig("BTCUSDT", "XRPUSDT"), f)
	if err != nil {
		t.Fatalf("BuildMarketInfos() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}

	btc := infos["BTCUSDT"]
	if btc == nil {
		t.Fatal("缺少 BTCUSDT 信息")
	}
	if btc.TickSize != 0.1 {
		t.Errorf("TickSize = %f, want 0.1", btc.TickSize)
	}
	if btc.MinAmount != 0.0001 {
		t.Errorf("MinAmount = %f, want 0.0001", btc.MinAmount)
	}
	if btc.MaxLeverage != 100 {
		t.Errorf("MaxLeverage = %d, want 100", btc.MaxLeverage)
	}
}

// TestBuildMarketInfos_NormalizesInput 测试市场标识标准化
func TestBuildMarketInfos_NormalizesInput(t *testing.T) {
	f := &fakeFetcher{entries: testEntries()}

	infos, err := BuildMarketInfos(context.Background(), marketsConfig("btc-usdt"), f)
	if err != nil {
		t.Fatalf("BuildMarketInfos() error = %v", err)
	}
	if infos["BTCUSDT"] == nil {
		t.Error("标准化后应命中 BTCUSDT")
	}
}

// TestBuildMarketInfos_UnknownMarket 测试未知市场报错
func TestBuildMarketInfos_UnknownMarket(t *testing.T) {
	f := &fakeFetcher{entries: testEntries()}

	_, err := BuildMarketInfos(context.Background(), marketsConfig("NOPEUSDT"), f)
	if err == nil {
		t.Error("未知市场应返回错误")
	}
}

// TestBuildMarketInfos_HaltedMarket 测试暂停交易的市场报错
func TestBuildMarketInfos_HaltedMarket(t *testing.T) {
	f := &fakeFetcher{entries: testEntries()}

	_, err := BuildMarketInfos(context.Background(), marketsConfig("HALTUSDT"), f)
	if err == nil {
		t.Error("暂停交易的市场应返回错误")
	}
}

// TestBuildMarketInfos_FetchError 测试获取失败透传
func TestBuildMarketInfos_FetchError(t *testing.T) {
	f := &fakeFetcher{err: errors.New("网络错误")}

	_, err := BuildMarketInfos(context.Background(), marketsConfig("BTCUSDT"), f)
	if err == nil {
		t.Error("获取失败应返回错误")
	}
}

// TestNormalizeMarket 测试市场标识标准化
func TestNormalizeMarket(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"BTC-USDT", "BTCUSDT"},
		{"btc_usdt", "BTCUSDT"},
		{"ETH/USDT", "ETHUSDT"},
		{"XRPUSDT", "XRPUSDT"},
	}

	for _, tt := range tests {
		if got := NormalizeMarket(tt.input); got != tt.want {
			t.Errorf("NormalizeMarket(%s) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
