package coinex

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// subKey 订阅登记表键
// market 为空串表示全市场概览
type subKey struct {
	topic  string
	market string
}

// subEntry 订阅登记表值
type subEntry struct {
	// period K 线周期，仅 kline 主题使用
	period string
}

// 主题名常量
const (
	topicState    = "state"
	topicPosition = "position"
	topicKline    = "kline"
	topicDeals    = "deals"
	topicDepth    = "depth"
)

// SubscribeState 订阅单个市场的状态推送
func (s *Session) SubscribeState(market string) error {
	if market == "" {
		return fmt.Errorf("市场标识不能为空")
	}
	return s.subscribe(topicState, market, "", IDStateSub)
}

// UnsubscribeState 退订市场状态推送
func (s *Session) UnsubscribeState(market string) error {
	return s.unsubscribe(topicState, market, IDStateUnsub)
}

// SubscribeMarketOverview 订阅全市场概览
// 线路上为空市场列表的 state.subscribe
func (s *Session) SubscribeMarketOverview() error {
	return s.subscribe(topicState, "", "", IDOverviewSub)
}

// UnsubscribeMarketOverview 退订全市场概览
func (s *Session) UnsubscribeMarketOverview() error {
	return s.unsubscribe(topicState, "", IDOverviewUnsub)
}

// SubscribePositions 订阅持仓推送
// 该主题需要认证，未认证时等待认证完成，超时则失败
func (s *Session) SubscribePositions(market string) error {
	if !s.Connected() {
		return fmt.Errorf("连接未建立，无法订阅持仓")
	}

	timeout := time.Duration(s.cfg.AuthWaitTimeoutMs) * time.Millisecond
	if !s.WaitAuthenticated(timeout) {
		return fmt.Errorf("等待认证超时或认证失败，无法订阅持仓")
	}

	return s.subscribe(topicPosition, market, "", IDPositionSub)
}

// UnsubscribePositions 退订持仓推送
func (s *Session) UnsubscribePositions(market string) error {
	return s.unsubscribe(topicPosition, market, IDPositionUnsub)
}

// SubscribeKline 订阅 K 线推送
// 参数 period: K 线周期，如 1min
func (s *Session) SubscribeKline(market, period string) error {
	if market == "" {
		return fmt.Errorf("市场标识不能为空")
	}
	return s.subscribe(topicKline, market, period, IDKlineSub)
}

// UnsubscribeKline 退订 K 线推送
func (s *Session) UnsubscribeKline(market string) error {
	return s.unsubscribe(topicKline, market, IDKlineUnsub)
}

// SubscribeDeals 订阅成交推送
func (s *Session) SubscribeDeals(market string) error {
	if market == "" {
		return fmt.Errorf("市场标识不能为空")
	}
	return s.subscribe(topicDeals, market, "", IDDealsSub)
}

// UnsubscribeDeals 退订成交推送
func (s *Session) UnsubscribeDeals(market string) error {
	return s.unsubscribe(topicDeals, market, IDDealsUnsub)
}

// SubscribeDepth 订阅深度推送
func (s *Session) SubscribeDepth(market string) error {
	if market == "" {
		return fmt.Errorf("市场标识不能为空")
	}
	return s.subscribe(topicDepth, market, "", IDDepthSub)
}

// UnsubscribeDepth 退订深度推送
func (s *Session) UnsubscribeDepth(market string) error {
	return s.unsubscribe(topicDepth, market, IDDepthUnsub)
}

// subscribe 登记并发送订阅请求
// 重复订阅对消费方幂等：登记表去重，帧仍会发送（服务端自行去重）。
// 返回值仅反映帧是否发出，确认异步到达。
func (s *Session) subscribe(topic, market, period string, id int64) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return fmt.Errorf("连接未建立，无法订阅 %s", topic)
	}
	s.subs[subKey{topic: topic, market: market}] = subEntry{period: period}
	s.mu.Unlock()

	if err := s.sendSubscribeFrame(topic, market, period, id); err != nil {
		return err
	}

	s.logger.Info("订阅请求已发送",
		zap.String("topic", topic),
		zap.String("market", market))
	return nil
}

// unsubscribe 移除登记并发送退订请求
func (s *Session) unsubscribe(topic, market string, id int64) error {
	s.mu.Lock()
	delete(s.subs, subKey{topic: topic, market: market})
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected {
		// 登记已移除，断线状态下无需发帧
		return nil
	}

	params := subscribeParams{MarketList: marketList(market)}
	if err := s.sendRequest(topic+".unsubscribe", params, id); err != nil {
		return err
	}

	s.logger.Info("退订请求已发送",
		zap.String("topic", topic),
		zap.String("market", market))
	return nil
}

// sendSubscribeFrame 发送订阅帧
func (s *Session) sendSubscribeFrame(topic, market, period string, id int64) error {
	params := subscribeParams{MarketList: marketList(market), Period: period}
	return s.sendRequest(topic+".subscribe", params, id)
}

// replaySubscriptions 重连后重放订阅
// 先重新认证（此前认证过且凭证可用时），再逐条重发登记的订阅
func (s *Session) replaySubscriptions() {
	s.mu.Lock()
	needAuth := s.wantAuth
	entries := make(map[subKey]subEntry, len(s.subs))
	for k, v := range s.subs {
		entries[k] = v
	}
	s.mu.Unlock()

	if needAuth {
		if err := s.Authenticate(); err != nil {
			s.logger.Warn("重连后重新认证失败", zap.Error(err))
		} else {
			timeout := time.Duration(s.cfg.AuthWaitTimeoutMs) * time.Millisecond
			if !s.WaitAuthenticated(timeout) {
				s.logger.Warn("重连后等待认证超时")
			}
		}
	}

	for key, entry := range entries {
		id := subscribeIDByTopic(key.topic, key.market)
		if err := s.sendSubscribeFrame(key.topic, key.market, entry.period, id); err != nil {
			s.logger.Warn("重放订阅失败",
				zap.String("topic", key.topic),
				zap.String("market", key.market),
				zap.Error(err))
			continue
		}
		s.logger.Info("重放订阅",
			zap.String("topic", key.topic),
			zap.String("market", key.market))
	}
}

// subscribeIDByTopic 主题到订阅请求 ID 的映射
func subscribeIDByTopic(topic, market string) int64 {
	switch topic {
	case topicState:
		if market == "" {
			return IDOverviewSub
		}
		return IDStateSub
	case topicPosition:
		return IDPositionSub
	case topicKline:
		return IDKlineSub
	case topicDeals:
		return IDDealsSub
	case topicDepth:
		return IDDepthSub
	default:
		return 0
	}
}

// marketList 构建市场列表参数
// 空市场标识映射为空列表（全市场概览哨兵值）
func marketList(market string) []string {
	if market == "" {
		return []string{}
	}
	return []string{market}
}
