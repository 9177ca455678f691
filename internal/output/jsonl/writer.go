// Package jsonl 实现异步 JSONL 文件输出。
// 热路径只投递记录，JSON 编码与文件 I/O 在后台 goroutine 完成。
// Sink 按配置管理信号、模拟成交、指标三条输出流。
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"coinex-futures-trader/internal/config"
)

type opType int

const (
	opWrite opType = iota
	opFlush
	opClose
)

type op struct {
	typ  opType
	val  any
	done chan error
}

// Writer 异步 JSONL 写入器
type Writer struct {
	// path 输出文件路径
	path string
	// ch 操作通道
	ch chan op

	closeOnce sync.Once
	closeErr  error
	closed    int32

	sendMu sync.Mutex

	wg sync.WaitGroup
}

// NewWriter 创建 JSONL 写入器
// 参数 path: 输出文件路径
// 参数 bufferSize: 写入缓冲区大小（channel 容量）
func NewWriter(path string, bufferSize int) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	w := &Writer{
		path: path,
		ch:   make(chan op, bufferSize),
	}

	w.wg.Add(1)
	go w.loop(f)

	return w, nil
}

// Write 异步写入一条 JSONL 记录
// 通道满时阻塞投递方，保证不丢记录
func (w *Writer) Write(v any) error {
	if w == nil {
		return fmt.Errorf("writer 为空")
	}
	if atomic.LoadInt32(&w.closed) == 1 {
		return fmt.Errorf("writer 已关闭")
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return fmt.Errorf("writer 已关闭")
	}
	w.ch <- op{typ: opWrite, val: v}
	return nil
}

// Flush 强制刷新文件缓冲区
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}
	if atomic.LoadInt32(&w.closed) == 1 {
		return nil
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return nil
	}
	done := make(chan error, 1)
	w.ch <- op{typ: opFlush, done: done}
	return <-done
}

// Close 关闭写入器，关闭前刷新缓冲
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		atomic.StoreInt32(&w.closed, 1)
		w.sendMu.Lock()
		defer w.sendMu.Unlock()
		done := make(chan error, 1)
		w.ch <- op{typ: opClose, done: done}
		w.closeErr = <-done
		close(w.ch)
	})
	w.wg.Wait()
	return w.closeErr
}

func (w *Writer) loop(f *os.File) {
	defer w.wg.Done()
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20)
	reply := func(err error, done chan error) {
		if done != nil {
			done <- err
		}
	}

	for req := range w.ch {
		switch req.typ {
		case opWrite:
			b, err := json.Marshal(req.val)
			if err != nil {
				continue
			}
			if _, err := bw.Write(b); err != nil {
				continue
			}
			if err := bw.WriteByte('\n'); err != nil {
				continue
			}
		case opFlush:
			reply(bw.Flush(), req.done)
		case opClose:
			reply(bw.Flush(), req.done)
			return
		}
	}
}

// Sink 输出流集合
// 按配置开关管理信号、模拟成交、指标三条 JSONL 流，
// 未启用的流写入为空操作。
type Sink struct {
	// Signals 信号输出流
	Signals *Writer
	// Trades 模拟成交输出流
	Trades *Writer
	// Metrics 指标输出流
	Metrics *Writer
}

// NewSink 按输出配置创建输出流集合
// 文件名带启动日期，多次运行不混写同一文件
func NewSink(cfg *config.OutputConfig) (*Sink, error) {
	s := &Sink{}
	date := time.Now().Format("20060102_150405")

	var err error
	if cfg.SignalsEnabled {
		s.Signals, err = NewWriter(
			filepath.Join(cfg.Dir, fmt.Sprintf("signals_%s.jsonl", date)), cfg.BufferSize)
		if err != nil {
			return nil, err
		}
	}
	if cfg.TradesEnabled {
		s.Trades, err = NewWriter(
			filepath.Join(cfg.Dir, fmt.Sprintf("trades_%s.jsonl", date)), cfg.BufferSize)
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	if cfg.MetricsEnabled {
		s.Metrics, err = NewWriter(
			filepath.Join(cfg.Dir, fmt.Sprintf("metrics_%s.jsonl", date)), cfg.BufferSize)
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close 关闭全部输出流
func (s *Sink) Close() {
	if s == nil {
		return
	}
	_ = s.Signals.Close()
	_ = s.Trades.Close()
	_ = s.Metrics.Close()
}
