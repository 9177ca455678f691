// Package fastparse 提供热路径上的字符串数值转换。
// CoinEx 推送中的价格、数量、资金费率均为字符串编码，
// 解析失败统一返回零值：字段格式由交易所保证，缺失或异常按零处理，
// 不在每个字段上散布错误分支。
package fastparse

import (
	"strconv"
)

// ParseFloat 解析字符串编码的浮点数
// 参数 s: 待解析的字符串，如 "65000.5"
// 返回: 解析后的浮点数，格式异常返回 0
func ParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseInt 解析字符串编码的整数
// 参数 s: 待解析的字符串，如 "1693526400"
// 返回: 解析后的整数，格式异常返回 0
func ParseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatInt 格式化整数为十进制字符串
// 签名时间戳等场景使用，避免 fmt.Sprintf 开销
// 参数 i: 待格式化的整数
// 返回: 格式化后的字符串
func FormatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
