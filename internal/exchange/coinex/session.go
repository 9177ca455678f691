package coinex

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coinex-futures-trader/internal/config"
	"coinex-futures-trader/internal/util/backoff"
	"coinex-futures-trader/internal/util/timeutil"
)

// Session CoinEx WebSocket 会话管理器
// 一个实例独占一条逻辑连接及其订阅登记表。
// 所有状态变更由 mu 串行化：重连定时器回调和读循环运行在不同 goroutine 上。
type Session struct {
	// cfg 会话配置
	cfg *config.SessionConfig
	// creds 凭证提供方
	creds CredentialProvider
	// logger 日志记录器
	logger *zap.Logger
	// emitter 事件分发器
	emitter *Emitter

	// mu 会话状态锁
	mu sync.Mutex
	// conn WebSocket 连接，仅由会话自身读写
	conn *websocket.Conn
	// state 连接状态
	state State
	// authState 认证状态
	authState AuthState
	// generation 连接代数，用于屏蔽旧读循环的关闭回调
	generation uint64
	// reconnectEnabled 自动重连开关，显式断开后关闭
	reconnectEnabled bool
	// attempts 当前重连尝试次数
	attempts int
	// backoff 重连退避
	backoff *backoff.Backoff
	// reconnectTimer 待触发的重连定时器
	reconnectTimer *time.Timer
	// subs 订阅登记表，重连后按此重放
	subs map[subKey]subEntry
	// wantAuth 是否需要在重连后重新认证
	wantAuth bool
	// authWaiters 等待认证结果的一次性通道
	authWaiters []chan bool

	// decodeErrCount 解码错误计数（用于采样日志）
	decodeErrCount uint64
	// lastDecodeErrLogNs 上次解码错误日志时间（纳秒）
	lastDecodeErrLogNs int64
}

// NewSession 创建会话管理器
// 参数 cfg: 会话配置
// 参数 creds: 凭证提供方，可提供空凭证
// 参数 logger: 日志记录器
func NewSession(cfg *config.SessionConfig, creds CredentialProvider, logger *zap.Logger) *Session {
	return &Session{
		cfg:     cfg,
		creds:   creds,
		logger:  logger.Named("coinex"),
		emitter: NewEmitter(),
		state:   StateDisconnected,
		backoff: backoff.New(
			time.Duration(cfg.Reconnect.BaseMs)*time.Millisecond,
			time.Duration(cfg.Reconnect.MaxMs)*time.Millisecond,
			cfg.Reconnect.Multiplier,
			cfg.Reconnect.Jitter,
		),
		reconnectEnabled: true,
		subs:             make(map[subKey]subEntry),
	}
}

// On 注册事件处理函数
func (s *Session) On(event string, fn Handler) HandlerToken {
	return s.emitter.On(event, fn)
}

// Off 注销事件处理函数
func (s *Session) Off(token HandlerToken) {
	s.emitter.Off(token)
}

// Connect 建立连接
// 已处于连接中或已连接状态时为空操作。
// 拨号失败计入重连策略并返回错误。
func (s *Session) Connect() error {
	return s.connect(true)
}

// connect 建立连接的具体实现
// userInitiated 为 true 时重新打开自动重连；为 false（重连定时器路径）时
// 在锁内复核重连开关，显式断开与重连回调竞争时以断开为准。
func (s *Session) connect(userInitiated bool) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	if userInitiated {
		s.reconnectEnabled = true
	} else if !s.reconnectEnabled {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	url := s.cfg.URL
	timeout := time.Duration(s.cfg.ConnectTimeoutMs) * time.Millisecond
	// 拨号期间不持锁，记录代数用于识别拨号中发生的显式断开
	dialGen := s.generation
	s.mu.Unlock()

	// 握手超时即连接超时：超时后拨号失败，走统一的失败处理
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		s.mu.Lock()
		if s.generation != dialGen {
			// 拨号期间会话已被显式断开或被新连接接管，不再改动状态
			s.mu.Unlock()
			return fmt.Errorf("连接 CoinEx WebSocket 失败: %w", err)
		}
		s.state = StateDisconnected
		s.mu.Unlock()
		s.logger.Warn("CoinEx WebSocket 连接失败", zap.String("url", url), zap.Error(err))
		s.scheduleReconnect()
		return fmt.Errorf("连接 CoinEx WebSocket 失败: %w", err)
	}

	s.mu.Lock()
	if s.generation != dialGen {
		// 拨号期间发生显式断开：丢弃刚建立的连接，保持断开状态
		s.mu.Unlock()
		conn.Close()
		s.logger.Info("拨号期间会话已显式断开，丢弃新连接", zap.String("url", url))
		return nil
	}
	s.generation++
	gen := s.generation
	s.conn = conn
	s.state = StateConnected
	s.attempts = 0
	s.backoff.Reset()
	needReplay := len(s.subs) > 0 || s.wantAuth
	s.mu.Unlock()

	s.logger.Info("CoinEx WebSocket 连接成功", zap.String("url", url))
	s.emitter.Emit(EventOpen, nil)

	go s.readLoop(conn, gen)
	if needReplay {
		go s.replaySubscriptions()
	}

	return nil
}

// Disconnect 显式断开连接
// 关闭自动重连，取消待触发的重连定时器，以正常关闭码关闭连接。
// 重复调用为空操作。
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.reconnectEnabled = false
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}

	alreadyDown := s.state == StateDisconnected && s.conn == nil
	// 提升代数，旧读循环的关闭回调不再触发重连
	s.generation++
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.authState = AuthNone
	s.resolveAuthWaitersLocked(false)
	s.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Duration(s.cfg.WriteTimeoutMs) * time.Millisecond)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}

	if !alreadyDown {
		s.logger.Info("CoinEx WebSocket 已断开")
		s.emitter.Emit(EventClose, nil)
	}
}

// Send 发送原始帧
// 连接由会话独占，这里用 mu 串行化写入
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.state != StateConnected {
		return fmt.Errorf("WebSocket 未连接")
	}

	deadline := time.Now().Add(time.Duration(s.cfg.WriteTimeoutMs) * time.Millisecond)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("设置写超时失败: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送帧失败: %w", err)
	}
	return nil
}

// sendRequest 构建并发送请求帧
func (s *Session) sendRequest(method string, params interface{}, id int64) error {
	req := outboundRequest{Method: method, Params: params, ID: id}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("序列化 %s 请求失败: %w", method, err)
	}
	return s.Send(data)
}

// Connected 连接状态访问器
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected
}

// Authenticated 认证状态访问器
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState == AuthOK
}

// State 当前连接状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// readLoop 读循环
// 每条连接一个实例，连接代数不匹配时静默退出
func (s *Session) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.onConnLost(gen, err)
			return
		}
		s.handleFrame(msgType, data)
	}
}

// onConnLost 非预期断开处理
// 认证状态回退为未认证，等待方全部以失败唤醒，随后按策略调度重连
func (s *Session) onConnLost(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		// 显式断开或更新的连接已接管
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.state = StateDisconnected
	s.authState = AuthNone
	s.resolveAuthWaitersLocked(false)
	s.mu.Unlock()

	s.logger.Warn("CoinEx WebSocket 连接断开", zap.Error(err))
	s.emitter.Emit(EventClose, err)
	s.scheduleReconnect()
}

// scheduleReconnect 调度一次重连
// 尝试次数超过上限后停止并发布终态错误事件
func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	if !s.reconnectEnabled {
		s.mu.Unlock()
		return
	}
	if s.attempts >= s.cfg.Reconnect.MaxAttempts {
		s.mu.Unlock()
		err := fmt.Errorf("重连次数已达上限 %d，停止重连", s.cfg.Reconnect.MaxAttempts)
		s.logger.Error("CoinEx WebSocket 放弃重连", zap.Int("max_attempts", s.cfg.Reconnect.MaxAttempts))
		s.emitter.Emit(EventError, err)
		return
	}

	s.attempts++
	attempt := s.attempts
	delay := s.backoff.Next()

	s.reconnectTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.reconnectTimer = nil
		s.mu.Unlock()
		if err := s.connect(false); err != nil {
			s.logger.Warn("CoinEx 重连失败", zap.Int("attempt", attempt), zap.Error(err))
		}
	})
	s.mu.Unlock()

	s.logger.Info("CoinEx 准备重连",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", s.cfg.Reconnect.MaxAttempts),
		zap.Duration("delay", delay))
}

// handleFrame 处理一个入站帧
// 解码或解析失败只记录日志并丢弃，绝不中断会话
func (s *Session) handleFrame(msgType int, data []byte) {
	text := data
	if msgType == websocket.BinaryMessage {
		decoded, codec, err := DecodeBinaryFrame(data)
		if err != nil {
			s.maybeLogDecodeError(err, data)
			return
		}
		if codec != "raw" {
			s.logger.Debug("二进制帧解压成功", zap.String("codec", codec))
		}
		text = decoded
	}

	var msg InboundMessage
	if err := json.Unmarshal(text, &msg); err != nil {
		s.maybeLogDecodeError(err, text)
		return
	}

	// 通用消息事件先于分类分发
	s.emitter.Emit(EventMessage, &msg)

	// 认证响应
	if msg.ID != nil && *msg.ID == IDAuth {
		s.handleAuthResponse(&msg)
		return
	}

	// 通用订阅确认: 有 id 有 code 且无方法名
	if msg.ID != nil && msg.Code != nil && msg.Method == "" {
		topic := TopicNameByID(*msg.ID)
		if *msg.Code == 0 {
			s.logger.Debug("订阅确认成功", zap.String("topic", topic))
		} else {
			s.logger.Warn("订阅确认失败",
				zap.String("topic", topic),
				zap.Int64("code", *msg.Code),
				zap.String("message", msg.Message))
		}
		return
	}

	recvNs := timeutil.NowNano()
	switch msg.Method {
	case methodStateUpdate:
		states, err := ParseStateUpdate(msg.Data, recvNs)
		if err != nil {
			s.maybeLogDecodeError(err, text)
			return
		}
		s.emitter.Emit(EventStateUpdate, states)
	case methodPositionUpdate:
		position, err := ParsePositionUpdate(msg.Data, recvNs)
		if err != nil {
			s.maybeLogDecodeError(err, text)
			return
		}
		s.emitter.Emit(EventPositionUpdate, position)
	case methodPositionSnapshot:
		positions, err := ParsePositionSnapshot(msg.Data, recvNs)
		if err != nil {
			s.maybeLogDecodeError(err, text)
			return
		}
		s.emitter.Emit(EventPositionSnapshot, positions)
	case "":
		// 无方法名且未被前面的分支识别，仅保留通用消息事件
	default:
		// 其余推送按方法名原样分发
		s.emitter.Emit(msg.Method, &msg)
	}
}

// maybeLogDecodeError 采样记录解码错误，避免异常流量刷盘
// 采样策略：每 100 次错误记录 1 条，且同一类日志至少间隔 1 分钟。
func (s *Session) maybeLogDecodeError(err error, data []byte) {
	count := atomic.AddUint64(&s.decodeErrCount, 1)
	if count > 1 && count%100 != 0 {
		return
	}

	nowNs := timeutil.NowNano()
	last := atomic.LoadInt64(&s.lastDecodeErrLogNs)
	if last > 0 && nowNs-last < int64(time.Minute) {
		return
	}
	atomic.StoreInt64(&s.lastDecodeErrLogNs, nowNs)

	sample := data
	if len(sample) > 200 {
		sample = sample[:200]
	}
	s.logger.Warn("解码 CoinEx 帧失败（采样）", zap.Error(err), zap.ByteString("data", sample))
}
