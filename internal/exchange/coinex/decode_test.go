package coinex

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// gzipCompress 用 gzip 压缩数据
func gzipCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip 压缩失败: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip 关闭失败: %v", err)
	}
	return buf.Bytes()
}

// zlibCompress 用 zlib 压缩数据
func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zlib 压缩失败: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib 关闭失败: %v", err)
	}
	return buf.Bytes()
}

// flateCompress 用裸 deflate 压缩数据
func flateCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("创建 deflate 写入器失败: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("deflate 压缩失败: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("deflate 关闭失败: %v", err)
	}
	return buf.Bytes()
}

// TestDecodeBinaryFrame_Codecs 测试各压缩格式的解码
func TestDecodeBinaryFrame_Codecs(t *testing.T) {
	payload := []byte(`{"method":"state.update","data":{"state_list":[]}}`)

	tests := []struct {
		name      string
		compress  func(*testing.T, []byte) []byte
		wantCodec string
	}{
		{"gzip", gzipCompress, "gzip"},
		{"zlib", zlibCompress, "zlib"},
		{"deflate", flateCompress, "deflate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed := tt.compress(t, payload)
			decoded, codec, err := DecodeBinaryFrame(compressed)
			if err != nil {
				t.Fatalf("DecodeBinaryFrame() error = %v", err)
			}
			if codec != tt.wantCodec {
				t.Errorf("codec = %s, want %s", codec, tt.wantCodec)
			}
			if !bytes.Equal(decoded, payload) {
				t.Errorf("decoded = %s, want %s", decoded, payload)
			}
		})
	}
}

// TestDecodeBinaryFrame_RawFallback 测试原始 UTF-8 文本兜底
func TestDecodeBinaryFrame_RawFallback(t *testing.T) {
	payload := []byte(`{"id":101,"code":0}`)

	decoded, codec, err := DecodeBinaryFrame(payload)
	if err != nil {
		t.Fatalf("DecodeBinaryFrame() error = %v", err)
	}
	if codec != "raw" {
		t.Errorf("codec = %s, want raw", codec)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("decoded = %s, want %s", decoded, payload)
	}
}

// TestDecodeBinaryFrame_InvalidInput 测试非法输入
func TestDecodeBinaryFrame_InvalidInput(t *testing.T) {
	// 非合法 UTF-8 且无法解压的字节串
	garbage := []byte{0xff, 0xfe, 0xfd, 0x00, 0x80, 0x81}

	_, _, err := DecodeBinaryFrame(garbage)
	if err == nil {
		t.Error("非法输入应返回错误")
	}
}

// TestDecodeBinaryFrame_Robustness 测试解码健壮性
// 属性: 任意字节输入绝不崩溃
func TestDecodeBinaryFrame_Robustness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	// 属性: 任意字节输入只返回结果或错误，不引发 panic
	properties.Property("任意字节输入不崩溃", prop.ForAll(
		func(data []byte) bool {
			decoded, codec, err := DecodeBinaryFrame(data)
			if err != nil {
				return decoded == nil && codec == ""
			}
			return codec != ""
		},
		gen.SliceOf(gen.UInt8()),
	))

	// 属性: gzip 压缩往返保持原文
	properties.Property("gzip压缩往返保持原文", prop.ForAll(
		func(text string) bool {
			payload := []byte(text)
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			if _, err := w.Write(payload); err != nil {
				return false
			}
			if err := w.Close(); err != nil {
				return false
			}

			decoded, codec, err := DecodeBinaryFrame(buf.Bytes())
			if err != nil {
				return false
			}
			return codec == "gzip" && bytes.Equal(decoded, payload)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestHandleFrame_MalformedInput 测试会话对畸形帧的容错
// 畸形帧只丢弃不崩溃，会话保持可用
func TestHandleFrame_MalformedInput(t *testing.T) {
	s := newTestSession(t, "ws://127.0.0.1:1")

	inputs := [][]byte{
		[]byte("not json at all"),
		[]byte(`{"method":`),
		[]byte(`{"method":"state.update","data":"not an object"}`),
		[]byte(`{"method":"position.update","data":[1,2,3]}`),
		{0xff, 0xfe, 0x00},
		{},
	}

	for _, input := range inputs {
		// 文本帧和二进制帧都不应引发 panic
		s.handleFrame(websocket.TextMessage, input)
		s.handleFrame(websocket.BinaryMessage, input)
	}
}
