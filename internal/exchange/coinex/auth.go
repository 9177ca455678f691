package coinex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coinex-futures-trader/internal/util/fastparse"
	"coinex-futures-trader/internal/util/timeutil"
)

// Sign 计算认证签名
// HMAC-SHA256(key = secret, message = 毫秒时间戳字符串)，小写十六进制编码
func Sign(secret string, timestampMs int64) string {
	return signPayload(secret, []byte(fastparse.FormatInt(timestampMs)))
}

// signPayload HMAC-SHA256 签名，小写十六进制编码
func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate 发起认证握手
// 前置条件: 连接已建立且凭证非空，否则不发送任何帧直接返回错误。
// 认证结果通过 authenticated / authentication_failed 事件异步送达，
// 也可用 WaitAuthenticated 同步等待。
func (s *Session) Authenticate() error {
	accessID, secretKey := s.creds.Credentials()
	if accessID == "" || secretKey == "" {
		return fmt.Errorf("凭证为空，无法认证")
	}

	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return fmt.Errorf("连接未建立，无法认证")
	}
	s.authState = AuthPending
	s.wantAuth = true
	s.mu.Unlock()

	timestampMs := timeutil.NowMs()
	params := signParams{
		AccessID:  accessID,
		SignedStr: Sign(secretKey, timestampMs),
		Timestamp: timestampMs,
	}

	if err := s.sendRequest("server.sign", params, IDAuth); err != nil {
		s.mu.Lock()
		if s.authState == AuthPending {
			s.authState = AuthNone
		}
		s.mu.Unlock()
		return fmt.Errorf("发送认证请求失败: %w", err)
	}

	s.logger.Info("认证请求已发送", zap.String("access_id", accessID))
	return nil
}

// WaitAuthenticated 有界等待认证完成
// 一次性等待通道与定时器竞争，不做忙轮询。
// 返回: 认证成功为 true，超时或认证失败为 false
func (s *Session) WaitAuthenticated(timeout time.Duration) bool {
	s.mu.Lock()
	switch s.authState {
	case AuthOK:
		s.mu.Unlock()
		return true
	case AuthFailed:
		s.mu.Unlock()
		return false
	}

	ch := make(chan bool, 1)
	s.authWaiters = append(s.authWaiters, ch)
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ok := <-ch:
		return ok
	case <-timer.C:
		return false
	}
}

// handleAuthResponse 处理认证响应帧
// code == 0 认证成功，否则认证失败；失败不触发重连，连接保持可用
func (s *Session) handleAuthResponse(msg *InboundMessage) {
	var code int64 = -1
	if msg.Code != nil {
		code = *msg.Code
	}

	if code == 0 {
		s.mu.Lock()
		s.authState = AuthOK
		s.resolveAuthWaitersLocked(true)
		s.mu.Unlock()

		s.logger.Info("CoinEx 认证成功")
		s.emitter.Emit(EventAuthenticated, nil)
		return
	}

	s.mu.Lock()
	s.authState = AuthFailed
	s.resolveAuthWaitersLocked(false)
	s.mu.Unlock()

	s.logger.Warn("CoinEx 认证失败",
		zap.Int64("code", code),
		zap.String("message", msg.Message))
	s.emitter.Emit(EventAuthFailed, msg)
}

// resolveAuthWaitersLocked 唤醒全部认证等待方
// 调用方必须持有 s.mu
func (s *Session) resolveAuthWaitersLocked(ok bool) {
	for _, ch := range s.authWaiters {
		ch <- ok
	}
	s.authWaiters = nil
}
