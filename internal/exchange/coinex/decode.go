package coinex

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"unicode/utf8"
)

// decoder 单个解压候选
type decoder struct {
	// name 解压器名称，用于日志
	name string
	// sniff 魔数探测，命中时该解压器优先尝试
	sniff func(data []byte) bool
	// decode 执行解压
	decode func(data []byte) ([]byte, error)
}

// maxDecodedSize 单帧解压后的大小上限，防止恶意压缩炸弹
const maxDecodedSize = 16 << 20 // 16 MiB

// decoders 按优先级排列的解压候选: gzip → zlib → 裸 deflate
// 依次尝试，失败则落入下一个；全部失败后按原始 UTF-8 文本兜底。
var decoders = []decoder{
	{
		name: "gzip",
		// gzip 魔数: 0x1f 0x8b
		sniff: func(data []byte) bool {
			return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
		},
		decode: func(data []byte) ([]byte, error) {
			r, err := gzip.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return readAllBounded(r)
		},
	},
	{
		name: "zlib",
		// zlib 头: 首字节 0x78 且头两字节按 31 取模为 0
		sniff: func(data []byte) bool {
			if len(data) < 2 || data[0] != 0x78 {
				return false
			}
			return (uint16(data[0])<<8|uint16(data[1]))%31 == 0
		},
		decode: func(data []byte) ([]byte, error) {
			r, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return readAllBounded(r)
		},
	},
	{
		name:  "deflate",
		sniff: func(data []byte) bool { return false },
		decode: func(data []byte) ([]byte, error) {
			r := flate.NewReader(bytes.NewReader(data))
			defer r.Close()
			return readAllBounded(r)
		},
	},
}

// readAllBounded 读取解压流，超出大小上限时报错
func readAllBounded(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDecodedSize {
		return nil, fmt.Errorf("解压后数据超过 %d 字节上限", maxDecodedSize)
	}
	return data, nil
}

// DecodeBinaryFrame 解码二进制帧
// 按魔数探测调整尝试顺序后依次解压，单个候选失败不致命；
// 全部失败且原始字节为合法 UTF-8 时按文本兜底返回。
// 返回: 解码后的文本字节和使用的解码器名称
func DecodeBinaryFrame(data []byte) ([]byte, string, error) {
	// 探测命中的候选排到最前，减少无谓尝试
	order := make([]int, 0, len(decoders))
	for i, d := range decoders {
		if d.sniff(data) {
			order = append(order, i)
		}
	}
	for i := range decoders {
		matched := false
		for _, j := range order {
			if i == j {
				matched = true
				break
			}
		}
		if !matched {
			order = append(order, i)
		}
	}

	var lastErr error
	for _, i := range order {
		decoded, err := decoders[i].decode(data)
		if err != nil {
			lastErr = err
			continue
		}
		return decoded, decoders[i].name, nil
	}

	// 兜底: 原始字节按 UTF-8 文本处理
	if utf8.Valid(data) {
		return data, "raw", nil
	}

	return nil, "", fmt.Errorf("所有解压器均失败且非合法 UTF-8: %w", lastErr)
}
