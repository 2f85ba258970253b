// Package httpx 把“UA + 超时”固化为统一的 client 构造策略。
//
// 设计目标：scrape 层只负责“定位页面 + 解析 HTML”，不关心网络策略细节。
// 注意：这一层不做重试——重试（指数退避、次数上限）统一由 pool 层按 job 执行，
// 避免两层重试叠加导致总尝试次数失控。
package httpx

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout        = 30 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 15 * time.Second
)

// Transport 给每个请求补上 User-Agent（调用方显式设置时不覆盖）。
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" && strings.TrimSpace(t.UserAgent) != "" {
		r.Header.Set("User-Agent", t.UserAgent)
	}
	return t.Base.RoundTrip(r)
}

// New 构造抓取用的 HTTP client（文档与图片共用一套策略）。
func New(userAgent string) *http.Client {
	base := &http.Transport{
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}
	return &http.Client{
		Transport: &Transport{Base: base, UserAgent: userAgent},
		Timeout:   defaultTimeout,
	}
}
