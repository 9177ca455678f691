// Package store 维护各市场的最新状态快照。
// 单写多读: 事件回调写入，策略与指标输出读取。
package store

import (
	"sync"

	"coinex-futures-trader/internal/core/model"
)

// Store 市场快照存储
type Store struct {
	// mu 读写锁
	mu sync.RWMutex
	// states 市场到最新状态的映射
	states map[string]*model.MarketState
	// positions 市场到最新交易所持仓的映射
	positions map[string]*model.Position
}

// New 创建快照存储
func New() *Store {
	return &Store{
		states:    make(map[string]*model.MarketState),
		positions: make(map[string]*model.Position),
	}
}

// SetState 写入市场状态
func (s *Store) SetState(state *model.MarketState) {
	if state == nil || state.Market == "" {
		return
	}
	s.mu.Lock()
	s.states[state.Market] = state
	s.mu.Unlock()
}

// State 读取市场最新状态
// 返回: 状态快照，未知市场为 nil
func (s *Store) State(market string) *model.MarketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[market]
}

// LastPrice 读取市场最新成交价
// 返回: 最新价，未知市场为 0
func (s *Store) LastPrice(market string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[market]; ok {
		return state.LastPrice
	}
	return 0
}

// LastPrices 读取全部市场的最新成交价
func (s *Store) LastPrices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]float64, len(s.states))
	for market, state := range s.states {
		prices[market] = state.LastPrice
	}
	return prices
}

// SetPosition 写入交易所持仓
// 持仓数量为零时视为已平仓，移除记录
func (s *Store) SetPosition(position *model.Position) {
	if position == nil || position.Market == "" {
		return
	}
	s.mu.Lock()
	if position.OpenInterest == 0 {
		delete(s.positions, position.Market)
	} else {
		s.positions[position.Market] = position
	}
	s.mu.Unlock()
}

// SetPositions 批量写入持仓快照
// 快照全量覆盖已有持仓
func (s *Store) SetPositions(positions []*model.Position) {
	s.mu.Lock()
	s.positions = make(map[string]*model.Position, len(positions))
	for _, p := range positions {
		if p != nil && p.Market != "" && p.OpenInterest != 0 {
			s.positions[p.Market] = p
		}
	}
	s.mu.Unlock()
}

// Position 读取市场最新持仓
func (s *Store) Position(market string) *model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions[market]
}

// Positions 读取全部持仓
func (s *Store) Positions() []*model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}
