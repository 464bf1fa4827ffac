package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := New(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil || !tr.Base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("代理模式应启用代理并禁用 keep-alive：%+v", tr)
	}
	if c.Timeout != DefaultTimeout {
		t.Fatalf("零值 Timeout 应取默认值，实际 %v", c.Timeout)
	}
}

func TestNew_NoProxyKeepsDefault(t *testing.T) {
	c, err := New(Options{Timeout: 3 * time.Second, RetryMax: 1})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.Proxy != nil || tr.Base.DisableKeepAlives {
		t.Fatalf("无代理时不应改动连接策略")
	}
	if c.Timeout != 3*time.Second || tr.RetryMax != 1 {
		t.Fatalf("选项未生效：timeout=%v retry=%d", c.Timeout, tr.RetryMax)
	}
}

func TestNew_InvalidProxy(t *testing.T) {
	if _, err := New(Options{ProxyURL: "://bad"}); err == nil {
		t.Fatalf("期望错误")
	}
}

func TestTransport_SetsUserAgent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.UserAgent())
	}))
	defer srv.Close()

	c, err := New(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if ua, _ := got.Load().(string); ua == "" || ua == "Go-http-client/1.1" {
		t.Fatalf("应使用 UA 池中的 UA，实际 %q", ua)
	}
}

func TestTransport_RetriesOnlyReplayableRequests(t *testing.T) {
	var dials int32
	base := &http.Transport{
		DialContext: func(context.Context, string, string) (net.Conn, error) {
			atomic.AddInt32(&dials, 1)
			return nil, errors.New("dial refused")
		},
	}
	tr := &Transport{Base: base, ua: globalUA, RetryMax: 2}

	req, _ := http.NewRequest(http.MethodGet, "http://scenemeta.invalid/", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望连接错误")
	}
	if got := atomic.LoadInt32(&dials); got != 3 {
		t.Fatalf("GET 应尝试 1+2 次，实际 %d", got)
	}

	atomic.StoreInt32(&dials, 0)
	post, _ := http.NewRequest(http.MethodPost, "http://scenemeta.invalid/", strings.NewReader("x"))
	if _, err := tr.RoundTrip(post); err == nil {
		t.Fatalf("期望连接错误")
	}
	if got := atomic.LoadInt32(&dials); got != 1 {
		t.Fatalf("带 body 的 POST 不应重试，实际 %d 次", got)
	}

	if _, err := (&Transport{}).RoundTrip(req); err == nil {
		t.Fatalf("nil base 应返回错误")
	}
}

func TestTransport_RateLimitPerHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c, err := New(Options{RatePerSecond: 20})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := c.Get(srv.URL)
		if err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
		resp.Body.Close()
	}
	// 突发 1：第一个立即放行，之后每 50ms 一个。
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("限速未生效：%v", elapsed)
	}
}

func TestTransport_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c, err := New(Options{RatePerSecond: 0.01})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL) // 消耗唯一的令牌
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if _, err := c.Do(req); err == nil {
		t.Fatalf("等待令牌超过 ctx 期限时应返回错误")
	}
}
