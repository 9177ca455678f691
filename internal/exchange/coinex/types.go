// Package coinex 实现 CoinEx 合约 WebSocket 会话管理器。
// 连接地址: wss://socket.coinex.com/v2/futures
// 负责连接生命周期（指数退避重连）、server.sign 认证握手、
// 订阅登记与断线重放、二进制帧解压、入站消息分类分发。
package coinex

import (
	"encoding/json"
	"fmt"

	"coinex-futures-trader/internal/core/model"
	"coinex-futures-trader/internal/util/fastparse"
)

// State 连接状态
type State int32

const (
	// StateDisconnected 未连接
	StateDisconnected State = iota
	// StateConnecting 连接中
	StateConnecting
	// StateConnected 已连接
	StateConnected
)

// String 返回连接状态的字符串表示
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// AuthState 认证状态
type AuthState int32

const (
	// AuthNone 未认证
	AuthNone AuthState = iota
	// AuthPending 认证请求已发送，等待响应
	AuthPending
	// AuthOK 认证成功
	AuthOK
	// AuthFailed 认证失败
	AuthFailed
)

// String 返回认证状态的字符串表示
func (s AuthState) String() string {
	switch s {
	case AuthNone:
		return "unauthenticated"
	case AuthPending:
		return "pending"
	case AuthOK:
		return "authenticated"
	case AuthFailed:
		return "failed"
	default:
		return fmt.Sprintf("auth(%d)", int32(s))
	}
}

// 请求 ID 常量
// 每个主题的订阅/退订使用固定 ID 关联服务端确认，无需逐请求登记。
// 同一主题的并发请求无法逐个关联，可接受：主题订阅状态按市场是布尔量。
const (
	// IDAuth server.sign 认证请求
	IDAuth int64 = 101
	// IDStateSub state.subscribe
	IDStateSub int64 = 201
	// IDStateUnsub state.unsubscribe
	IDStateUnsub int64 = 202
	// IDOverviewSub 全市场概览订阅（state.subscribe 空市场列表）
	IDOverviewSub int64 = 203
	// IDOverviewUnsub 全市场概览退订
	IDOverviewUnsub int64 = 204
	// IDPositionSub position.subscribe（需认证）
	IDPositionSub int64 = 301
	// IDPositionUnsub position.unsubscribe
	IDPositionUnsub int64 = 302
	// IDKlineSub kline.subscribe
	IDKlineSub int64 = 401
	// IDKlineUnsub kline.unsubscribe
	IDKlineUnsub int64 = 402
	// IDDealsSub deals.subscribe
	IDDealsSub int64 = 501
	// IDDealsUnsub deals.unsubscribe
	IDDealsUnsub int64 = 502
	// IDDepthSub depth.subscribe
	IDDepthSub int64 = 601
	// IDDepthUnsub depth.unsubscribe
	IDDepthUnsub int64 = 602
)

// 事件名常量
// 消费方通过 On 注册这些事件的处理函数
const (
	// EventOpen 连接建立
	EventOpen = "open"
	// EventClose 连接关闭，非预期断开时负载携带传输层错误
	EventClose = "close"
	// EventError 终态错误，重连次数耗尽后触发一次
	// 可恢复的传输层错误不走本事件，随 close 事件负载送达
	EventError = "error"
	// EventAuthenticated 认证成功
	EventAuthenticated = "authenticated"
	// EventAuthFailed 认证失败，携带服务端错误负载
	EventAuthFailed = "authentication_failed"
	// EventMessage 通用消息事件，每个解码成功的帧都会触发
	EventMessage = "message"
	// EventStateUpdate 市场状态推送
	EventStateUpdate = "stateUpdate"
	// EventPositionUpdate 持仓推送
	EventPositionUpdate = "positionUpdate"
	// EventPositionSnapshot 持仓快照推送
	EventPositionSnapshot = "positionSnapshot"
)

// 服务端推送方法名
const (
	methodStateUpdate      = "state.update"
	methodPositionUpdate   = "position.update"
	methodPositionSnapshot = "position.snapshot"
)

// CredentialProvider 凭证提供方接口
// 返回值可为空或占位值，此时会话视为无法认证而非崩溃
type CredentialProvider interface {
	// Credentials 返回 API 凭证
	Credentials() (accessID, secretKey string)
}

// InboundMessage 解码后的服务端帧
// 按 method/id/code 字段组合分类为认证响应、订阅确认、主题推送或未识别消息
type InboundMessage struct {
	// Method 推送方法名，确认帧无此字段
	Method string `json:"method"`
	// ID 请求关联 ID，推送帧无此字段
	ID *int64 `json:"id"`
	// Code 响应码，0 表示成功
	Code *int64 `json:"code"`
	// Message 服务端附带的描述信息
	Message string `json:"message"`
	// Data 方法相关负载，按需二次解析
	Data json.RawMessage `json:"data"`
}

// outboundRequest 发往服务端的请求帧
type outboundRequest struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
	ID     int64       `json:"id"`
}

// signParams server.sign 认证参数
type signParams struct {
	AccessID  string `json:"access_id"`
	SignedStr string `json:"signed_str"`
	Timestamp int64  `json:"timestamp"`
}

// subscribeParams 订阅/退订参数
// 空 MarketList 表示全市场概览
type subscribeParams struct {
	MarketList []string `json:"market_list"`
	// Period K 线周期，仅 kline 主题携带
	Period string `json:"period,omitempty"`
}

// stateEntry state.update 推送中的单个市场状态
// 数值字段为字符串编码
type stateEntry struct {
	Market         string `json:"market"`
	Last           string `json:"last"`
	Open           string `json:"open"`
	High           string `json:"high"`
	Low            string `json:"low"`
	Close          string `json:"close"`
	Volume         string `json:"volume"`
	ValueUSD       string `json:"value"`
	MarkPrice      string `json:"mark_price"`
	IndexPrice     string `json:"index_price"`
	OpenInterest   string `json:"open_interest_volume"`
	FundingRate    string `json:"latest_funding_rate"`
	NextFundingMs  int64  `json:"next_funding_time"`
}

// stateUpdateData state.update 的 data 负载
type stateUpdateData struct {
	StateList []stateEntry `json:"state_list"`
}

// positionEntry position.update / position.snapshot 中的持仓
type positionEntry struct {
	PositionID    int64  `json:"position_id"`
	Market        string `json:"market"`
	Side          string `json:"side"`
	MarginMode    string `json:"margin_mode"`
	OpenInterest  string `json:"open_interest"`
	UnrealizedPnl string `json:"unrealized_pnl"`
	RealizedPnl   string `json:"realized_pnl"`
	AvgEntryPrice string `json:"avg_entry_price"`
	Leverage      string `json:"leverage"`
	LiqPrice      string `json:"liq_price"`
	UpdatedAt     int64  `json:"updated_at"`
}

// positionUpdateData position.update 的 data 负载
type positionUpdateData struct {
	Event    string        `json:"event"`
	Position positionEntry `json:"position"`
}

// positionSnapshotData position.snapshot 的 data 负载
type positionSnapshotData struct {
	PositionList []positionEntry `json:"position_list"`
}

// klineUpdateData kline.update 的 data 负载
// 每根 K 线为数组: [timestamp, open, close, high, low, volume, value]
type klineUpdateData struct {
	Market    string            `json:"market"`
	KlineList []json.RawMessage `json:"kline_list"`
}

// toModel 将线路格式的市场状态转换为领域模型
// 参数 recvNs: 本地接收时间（纳秒）
func (e *stateEntry) toModel(recvNs int64) *model.MarketState {
	return &model.MarketState{
		Market:            e.Market,
		LastPrice:         fastparse.ParseFloat(e.Last),
		IndexPrice:        fastparse.ParseFloat(e.IndexPrice),
		MarkPrice:         fastparse.ParseFloat(e.MarkPrice),
		OpenPrice:         fastparse.ParseFloat(e.Open),
		High:              fastparse.ParseFloat(e.High),
		Low:               fastparse.ParseFloat(e.Low),
		Volume:            fastparse.ParseFloat(e.Volume),
		ValueUSD:          fastparse.ParseFloat(e.ValueUSD),
		OpenInterest:      fastparse.ParseFloat(e.OpenInterest),
		FundingRate:       fastparse.ParseFloat(e.FundingRate),
		NextFundingTimeMs: e.NextFundingMs,
		RecvTimeNs:        recvNs,
	}
}

// toModel 将线路格式的持仓转换为领域模型
func (e *positionEntry) toModel(recvNs int64) *model.Position {
	return &model.Position{
		PositionID:    e.PositionID,
		Market:        e.Market,
		Side:          e.Side,
		MarginMode:    e.MarginMode,
		OpenInterest:  fastparse.ParseFloat(e.OpenInterest),
		UnrealizedPnl: fastparse.ParseFloat(e.UnrealizedPnl),
		RealizedPnl:   fastparse.ParseFloat(e.RealizedPnl),
		AvgEntryPrice: fastparse.ParseFloat(e.AvgEntryPrice),
		Leverage:      fastparse.ParseFloat(e.Leverage),
		LiqPrice:      fastparse.ParseFloat(e.LiqPrice),
		UpdatedAtMs:   e.UpdatedAt,
		RecvTimeNs:    recvNs,
	}
}

// ParseStateUpdate 解析 state.update 的 data 负载
// 参数 data: 帧的 data 字段
// 参数 recvNs: 本地接收时间（纳秒）
// 返回: 市场状态列表
func ParseStateUpdate(data json.RawMessage, recvNs int64) ([]*model.MarketState, error) {
	var payload stateUpdateData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("解析 state.update 负载失败: %w", err)
	}

	states := make([]*model.MarketState, 0, len(payload.StateList))
	for i := range payload.StateList {
		states = append(states, payload.StateList[i].toModel(recvNs))
	}
	return states, nil
}

// ParsePositionUpdate 解析 position.update 的 data 负载
func ParsePositionUpdate(data json.RawMessage, recvNs int64) (*model.Position, error) {
	var payload positionUpdateData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("解析 position.update 负载失败: %w", err)
	}
	return payload.Position.toModel(recvNs), nil
}

// ParsePositionSnapshot 解析 position.snapshot 的 data 负载
func ParsePositionSnapshot(data json.RawMessage, recvNs int64) ([]*model.Position, error) {
	var payload positionSnapshotData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("解析 position.snapshot 负载失败: %w", err)
	}

	positions := make([]*model.Position, 0, len(payload.PositionList))
	for i := range payload.PositionList {
		positions = append(positions, payload.PositionList[i].toModel(recvNs))
	}
	return positions, nil
}

// ParseKlineUpdate 解析 kline.update 的 data 负载
// K 线以数组形式推送: [timestamp, open, close, high, low, volume, value]
func ParseKlineUpdate(data json.RawMessage) ([]*model.Kline, error) {
	var payload klineUpdateData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("解析 kline.update 负载失败: %w", err)
	}

	klines := make([]*model.Kline, 0, len(payload.KlineList))
	for _, raw := range payload.KlineList {
		var fields []json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("解析 K 线数组失败: %w", err)
		}
		if len(fields) < 7 {
			return nil, fmt.Errorf("K 线数组字段不足: %d", len(fields))
		}

		var ts int64
		if err := json.Unmarshal(fields[0], &ts); err != nil {
			return nil, fmt.Errorf("解析 K 线时间戳失败: %w", err)
		}

		// 价格字段为字符串编码
		values := make([]float64, 6)
		for i := 1; i < 7; i++ {
			var s string
			if err := json.Unmarshal(fields[i], &s); err != nil {
				return nil, fmt.Errorf("解析 K 线价格字段失败: %w", err)
			}
			values[i-1] = fastparse.ParseFloat(s)
		}

		klines = append(klines, &model.Kline{
			Market:      payload.Market,
			TimestampMs: ts * 1000,
			Open:        values[0],
			Close:       values[1],
			High:        values[2],
			Low:         values[3],
			Volume:      values[4],
			ValueUSD:    values[5],
		})
	}
	return klines, nil
}

// TopicNameByID 请求 ID 到主题名的映射，用于确认日志
func TopicNameByID(id int64) string {
	switch id {
	case IDAuth:
		return "server.sign"
	case IDStateSub:
		return "state.subscribe"
	case IDStateUnsub:
		return "state.unsubscribe"
	case IDOverviewSub:
		return "state.subscribe(all)"
	case IDOverviewUnsub:
		return "state.unsubscribe(all)"
	case IDPositionSub:
		return "position.subscribe"
	case IDPositionUnsub:
		return "position.unsubscribe"
	case IDKlineSub:
		return "kline.subscribe"
	case IDKlineUnsub:
		return "kline.unsubscribe"
	case IDDealsSub:
		return "deals.subscribe"
	case IDDealsUnsub:
		return "deals.unsubscribe"
	case IDDepthSub:
		return "depth.subscribe"
	case IDDepthUnsub:
		return "depth.unsubscribe"
	default:
		return fmt.Sprintf("unknown(%d)", id)
	}
}
