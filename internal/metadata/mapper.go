package metadata

import (
	"context"
	"fmt"
	"strings"

	"coinex-futures-trader/internal/config"
	"coinex-futures-trader/internal/core/model"
	"coinex-futures-trader/internal/util/fastparse"
)

// BuildMarketInfos 验证配置的市场并构建市场信息表
// 从交易所获取合约列表，确认每个配置的市场存在且可交易
// 参数 ctx: 上下文
// 参数 cfg: 配置
// 参数 f: 元数据获取器
// 返回: 市场信息表（key 为市场标识）
func BuildMarketInfos(ctx context.Context, cfg *config.Config, f Fetcher) (map[string]*model.MarketInfo, error) {
	entries, err := f.FetchMarkets(ctx, cfg.Metadata.URL)
	if err != nil {
		return nil, fmt.Errorf("获取市场元数据失败: %w", err)
	}

	index := buildMarketIndex(entries)

	result := make(map[string]*model.MarketInfo)
	for _, m := range cfg.Markets {
		canon := NormalizeMarket(m.Name)
		entry, ok := index[canon]
		if !ok {
			return nil, fmt.Errorf("交易所未找到市场: %s", m.Name)
		}
		if !entry.IsMarketAvailable {
			return nil, fmt.Errorf("市场当前不可交易: %s", canon)
		}
		result[canon] = entryToInfo(entry)
	}

	return result, nil
}

// buildMarketIndex 构建市场索引
// 只索引 USDT 正向永续合约
// key: 标准化的市场标识（如 BTCUSDT）
func buildMarketIndex(entries []MarketEntry) map[string]*MarketEntry {
	index := make(map[string]*MarketEntry)
	for i := range entries {
		entry := &entries[i]
		if entry.ContractType != "" && entry.ContractType != "linear" {
			continue
		}
		if entry.QuoteCcy != "" && entry.QuoteCcy != "USDT" {
			continue
		}
		index[NormalizeMarket(entry.Market)] = entry
	}
	return index
}

// entryToInfo 将线路格式的市场条目转换为领域模型
func entryToInfo(entry *MarketEntry) *model.MarketInfo {
	maxLeverage := 0
	for _, l := range entry.Leverage {
		if l > maxLeverage {
			maxLeverage = l
		}
	}

	return &model.MarketInfo{
		Market:             NormalizeMarket(entry.Market),
		BaseCcy:            entry.BaseCcy,
		QuoteCcy:           entry.QuoteCcy,
		TickSize:           fastparse.ParseFloat(entry.TickSize),
		MinAmount:          fastparse.ParseFloat(entry.MinAmount),
		MaxLeverage:        maxLeverage,
		IsTradingAvailable: entry.IsMarketAvailable,
	}
}

// NormalizeMarket 标准化市场标识
// 移除分隔符，转为大写
// 例如: BTC-USDT -> BTCUSDT, btc_usdt -> BTCUSDT
func NormalizeMarket(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "/", "")
	return strings.ToUpper(s)
}
