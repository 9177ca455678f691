package indicator

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRangeFilter_Warmup 测试预热期不产生信号
func TestRangeFilter_Warmup(t *testing.T) {
	rf := NewRangeFilter(10, 3.0)

	// 大幅震荡的前 2*period 根不应产生任何信号
	prices := []float64{100, 110, 90, 120, 80, 130, 70, 140, 60, 150,
		50, 160, 40, 170, 30, 180, 20, 190, 10, 200}
	for i, p := range prices {
		r := rf.Update(p)
		if i < rf.warmupSamples() && (r.Long || r.Short) {
			t.Errorf("预热期第 %d 根不应产生信号", i)
		}
	}
}

// TestRangeFilter_TrendFlip 测试趋势翻转产生信号
func TestRangeFilter_TrendFlip(t *testing.T) {
	rf := NewRangeFilter(5, 1.0)

	// 先喂入足够样本完成预热: 缓慢下行建立空头区间
	price := 1000.0
	for i := 0; i < 30; i++ {
		price -= 1.0
		rf.Update(price)
	}

	// 急速上行应产生一次做多信号，且只产生一次
	longCount := 0
	for i := 0; i < 30; i++ {
		price += 5.0
		r := rf.Update(price)
		if r.Long {
			longCount++
		}
		if r.Short {
			t.Errorf("持续上行第 %d 根不应产生做空信号", i)
		}
	}
	if longCount != 1 {
		t.Errorf("longCount = %d, want 1（翻转去重）", longCount)
	}

	// 再急速下行应产生一次做空信号
	shortCount := 0
	for i := 0; i < 30; i++ {
		price -= 5.0
		r := rf.Update(price)
		if r.Short {
			shortCount++
		}
	}
	if shortCount != 1 {
		t.Errorf("shortCount = %d, want 1（翻转去重）", shortCount)
	}
}

// TestRangeFilter_Properties 测试过滤线性质
func TestRangeFilter_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// 属性: 每次更新后价格与过滤线的距离不超过波动带
	properties.Property("过滤线始终在波动带内跟随价格", prop.ForAll(
		func(prices []float64) bool {
			rf := NewRangeFilter(10, 2.0)
			for i, p := range prices {
				r := rf.Update(p)
				if i == 0 {
					continue
				}
				if math.Abs(p-r.Filter) > r.Band+1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(50, gen.Float64Range(1, 100000)),
	))

	// 属性: 过滤线只朝价格方向移动，不反向
	properties.Property("过滤线不逆价格方向移动", prop.ForAll(
		func(prices []float64) bool {
			rf := NewRangeFilter(10, 2.0)
			prevFilt := math.NaN()
			for _, p := range prices {
				r := rf.Update(p)
				if !math.IsNaN(prevFilt) && r.Filter != prevFilt {
					moved := r.Filter - prevFilt
					toward := p - prevFilt
					if moved*toward <= 0 {
						return false
					}
				}
				prevFilt = r.Filter
			}
			return true
		},
		gen.SliceOfN(50, gen.Float64Range(1, 100000)),
	))

	// 属性: 同一根不会同时产生多空信号
	properties.Property("多空信号互斥", prop.ForAll(
		func(prices []float64) bool {
			rf := NewRangeFilter(5, 1.5)
			for _, p := range prices {
				r := rf.Update(p)
				if r.Long && r.Short {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(100, gen.Float64Range(1, 1000)),
	))

	// 属性: 恒定价格不产生信号
	properties.Property("恒定价格不产生信号", prop.ForAll(
		func(price float64, n int) bool {
			rf := NewRangeFilter(5, 2.0)
			for i := 0; i < n; i++ {
				r := rf.Update(price)
				if r.Long || r.Short {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1, 100000),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}

// TestRangeFilter_Reset 测试状态重置
func TestRangeFilter_Reset(t *testing.T) {
	rf := NewRangeFilter(5, 2.0)
	for i := 0; i < 20; i++ {
		rf.Update(float64(100 + i))
	}
	if !rf.Ready() {
		t.Fatal("20 根样本后应已预热")
	}

	rf.Reset()
	if rf.Ready() {
		t.Error("重置后不应处于预热完成状态")
	}
	if rf.Filter() != 0 {
		t.Errorf("重置后 Filter = %f, want 0", rf.Filter())
	}
}
