package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestKlines_Success 测试历史 K 线拉取
func TestKlines_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/futures/kline" {
			t.Errorf("请求路径 = %s, want /futures/kline", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("market") != "BTCUSDT" || q.Get("period") != "1min" || q.Get("limit") != "2" {
			t.Errorf("请求参数错误: %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": 0,
			"message": "OK",
			"data": [
				{"market":"BTCUSDT","created_at":1700000000000,"open":"64000","close":"65000",
				 "high":"65200","low":"63900","volume":"120.5","value":"7800000"},
				{"market":"BTCUSDT","created_at":1700000060000,"open":"65000","close":"64800",
				 "high":"65100","low":"64700","volume":"80.2","value":"5200000"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 1000)
	klines, err := c.Klines(context.Background(), "BTCUSDT", "1min", 2)
	if err != nil {
		t.Fatalf("Klines() error = %v", err)
	}
	if len(klines) != 2 {
		t.Fatalf("len(klines) = %d, want 2", len(klines))
	}

	k := klines[0]
	if k.TimestampMs != 1700000000000 {
		t.Errorf("TimestampMs = %d", k.TimestampMs)
	}
	if k.Open != 64000 || k.Close != 65000 {
		t.Errorf("Open/Close = %f/%f", k.Open, k.Close)
	}
	if !k.Closed {
		t.Error("历史 K 线应标记为已收盘")
	}
}

// TestKlines_APIError 测试接口返回错误码
func TestKlines_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 3008, "message": "service busy", "data": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 1000)
	if _, err := c.Klines(context.Background(), "BTCUSDT", "1min", 10); err == nil {
		t.Error("非零 code 应返回错误")
	}
}

// TestKlines_HTTPError 测试 HTTP 错误状态码
func TestKlines_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 1000)
	if _, err := c.Klines(context.Background(), "BTCUSDT", "1min", 10); err == nil {
		t.Error("HTTP 500 应返回错误")
	}
}
