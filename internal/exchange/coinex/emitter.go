package coinex

import (
	"sync"
)

// Handler 事件处理函数
// 参数为事件负载，具体类型由事件约定决定
type Handler func(data interface{})

// HandlerToken 事件处理函数的注册凭据
// Go 的函数值不可比较，注销时凭此凭据定位处理函数
type HandlerToken struct {
	event string
	id    uint64
}

// handlerEntry 注册表中的一条处理函数记录
type handlerEntry struct {
	id uint64
	fn Handler
}

// Emitter 事件分发器
// 同一事件支持多个处理函数，按注册顺序调用；
// 同一函数重复注册会被重复调用，不做去重。
type Emitter struct {
	// mu 注册表锁
	mu sync.Mutex
	// handlers 事件名到处理函数列表的映射
	handlers map[string][]handlerEntry
	// nextID 凭据 ID 分配器
	nextID uint64
}

// NewEmitter 创建事件分发器
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[string][]handlerEntry),
	}
}

// On 注册事件处理函数
// 参数 event: 事件名
// 参数 fn: 处理函数
// 返回: 注销凭据
func (e *Emitter) On(event string, fn Handler) HandlerToken {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	token := HandlerToken{event: event, id: e.nextID}
	e.handlers[event] = append(e.handlers[event], handlerEntry{id: token.id, fn: fn})
	return token
}

// Off 注销事件处理函数
// 仅移除凭据对应的那一次注册，重复注册的其余实例不受影响
func (e *Emitter) Off(token HandlerToken) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.handlers[token.event]
	for i, entry := range entries {
		if entry.id == token.id {
			e.handlers[token.event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Emit 触发事件
// 在锁外按注册顺序调用处理函数，处理函数中可安全调用 On/Off
func (e *Emitter) Emit(event string, data interface{}) {
	e.mu.Lock()
	entries := e.handlers[event]
	// 复制快照，避免处理函数注册/注销时修改遍历中的切片
	snapshot := make([]handlerEntry, len(entries))
	copy(snapshot, entries)
	e.mu.Unlock()

	for _, entry := range snapshot {
		entry.fn(data)
	}
}

// HandlerCount 返回某事件当前注册的处理函数数量
func (e *Emitter) HandlerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}
