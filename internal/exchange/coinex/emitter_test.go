package coinex

import (
	"testing"
)

// TestEmitter_InvocationOrder 测试处理函数按注册顺序调用
func TestEmitter_InvocationOrder(t *testing.T) {
	e := NewEmitter()

	var order []int
	e.On("test", func(data interface{}) { order = append(order, 1) })
	e.On("test", func(data interface{}) { order = append(order, 2) })
	e.On("test", func(data interface{}) { order = append(order, 3) })

	e.Emit("test", nil)

	if len(order) != 3 {
		t.Fatalf("len(order) = %d, want 3", len(order))
	}
	for i, v := range order {
		if v != i+1 {
			t.Errorf("order[%d] = %d, want %d", i, v, i+1)
		}
	}
}

// TestEmitter_DuplicateRegistration 测试同一函数重复注册
// 重复注册不去重，触发时重复调用
func TestEmitter_DuplicateRegistration(t *testing.T) {
	e := NewEmitter()

	count := 0
	fn := func(data interface{}) { count++ }

	e.On("test", fn)
	e.On("test", fn)
	e.Emit("test", nil)

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

// TestEmitter_Off 测试按凭据注销
// 仅移除凭据对应的一次注册
func TestEmitter_Off(t *testing.T) {
	e := NewEmitter()

	count := 0
	fn := func(data interface{}) { count++ }

	token1 := e.On("test", fn)
	e.On("test", fn)

	e.Off(token1)
	e.Emit("test", nil)

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if e.HandlerCount("test") != 1 {
		t.Errorf("HandlerCount = %d, want 1", e.HandlerCount("test"))
	}
}

// TestEmitter_OffUnknownToken 测试注销不存在的凭据
func TestEmitter_OffUnknownToken(t *testing.T) {
	e := NewEmitter()

	e.On("test", func(data interface{}) {})
	// 其他事件的凭据不影响本事件
	e.Off(HandlerToken{event: "other", id: 999})
	e.Off(HandlerToken{event: "test", id: 999})

	if e.HandlerCount("test") != 1 {
		t.Errorf("HandlerCount = %d, want 1", e.HandlerCount("test"))
	}
}

// TestEmitter_Payload 测试事件负载传递
func TestEmitter_Payload(t *testing.T) {
	e := NewEmitter()

	var got interface{}
	e.On("test", func(data interface{}) { got = data })

	e.Emit("test", "payload-value")

	if got != "payload-value" {
		t.Errorf("got = %v, want payload-value", got)
	}
}

// TestEmitter_OffDuringEmit 测试处理函数内注销自身
// 触发过程使用快照，处理函数内调用 Off 不影响本轮分发
func TestEmitter_OffDuringEmit(t *testing.T) {
	e := NewEmitter()

	count := 0
	var token HandlerToken
	token = e.On("test", func(data interface{}) {
		count++
		e.Off(token)
	})

	e.Emit("test", nil)
	e.Emit("test", nil)

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

// TestEmitter_NoHandlers 测试无处理函数的事件
func TestEmitter_NoHandlers(t *testing.T) {
	e := NewEmitter()
	// 不应引发 panic
	e.Emit("nobody-listens", nil)
}
