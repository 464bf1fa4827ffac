package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 20 * time.Second
	DefaultRetryMax = 2
)

// Options 是站点抓取 client 的网络策略。零值可用。
type Options struct {
	ProxyURL string
	Timeout  time.Duration
	// RetryMax 是最大重试次数（不含首次尝试），只对传输层错误生效。
	RetryMax int
	// RatePerSecond > 0 时按 host 限速（每个站点各自一个令牌桶，突发 1）。
	RatePerSecond float64
}

// Transport 把“UA 池 + 代理 + 有界重试”固化为统一策略。
// provider 只负责“拼搜索地址 + 解析 HTML”，不关心网络细节。
type Transport struct {
	Base *http.Transport

	ua *uaPool

	RetryMax int

	// DisableKeepAlives 为 true 时对每个请求设置 Close=true。
	DisableKeepAlives bool

	limits *hostLimits
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对可重放的请求重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if err := t.limits.wait(req.Context(), req.URL.Host); err != nil {
			return nil, err
		}
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.ua != nil {
			r.Header.Set("User-Agent", t.ua.random())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// New 构造 provider 使用的 HTTP client。
//
// 规则：
// - ProxyURL 非空：所有请求走代理，且每请求新连接（代理池轮换依赖该行为）
// - 每个请求随机 UA（调用方显式设置的除外）
// - 有界重试 + 总超时
// - 可选按 host 限速（重试同样消耗令牌）
func New(opts Options) (*http.Client, error) {
	base := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	disableKeepAlives := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: &Transport{
			Base:              base,
			ua:                globalUA,
			RetryMax:          opts.RetryMax,
			DisableKeepAlives: disableKeepAlives,
			limits:            newHostLimits(opts.RatePerSecond),
		},
		Timeout: timeout,
	}, nil
}

// hostLimits 为每个 host 懒创建一个 rate.Limiter。nil 表示不限速。
type hostLimits struct {
	mu    sync.Mutex
	every rate.Limit
	by    map[string]*rate.Limiter
}

func newHostLimits(perSecond float64) *hostLimits {
	if perSecond <= 0 {
		return nil
	}
	return &hostLimits{every: rate.Limit(perSecond), by: make(map[string]*rate.Limiter)}
}

func (h *hostLimits) wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	l, ok := h.by[host]
	if !ok {
		l = rate.NewLimiter(h.every, 1)
		h.by[host] = l
	}
	h.mu.Unlock()
	return l.Wait(ctx)
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
