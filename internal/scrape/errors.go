package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError 表示值得重试的网络层失败（5xx、超时、连接被重置等）。
// 是否重试、退避多久由 pool 层决定，这里只负责分类。
type TransientError struct {
	URL string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("临时网络错误：%s：%v", e.URL, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NotFoundError 表示单个目标不存在（HTTP 404）。
// 对该目标终止，不重试；但绝不因此中止整个 run。
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("目标不存在（HTTP 404）：%s", e.URL)
}

// HTTPStatusError 表示站点返回了既非 2xx、也不属于 404/5xx 分类的状态码。
// 归类为致命失败：重试大概率无意义（403/401/400 多为请求本身的问题）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d：%s", e.StatusCode, e.URL)
}

// ParseError 表示单条记录缺失必填字段而解析失败。
// 只影响该条记录：同文档的其他记录照常解析。
type ParseError struct {
	Record string // 记录标识（card id；id 本身缺失时用占位描述）
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("记录 %q 解析失败：字段 %s：%v", e.Record, e.Field, e.Err)
	}
	return fmt.Sprintf("记录 %q 解析失败：缺少必填字段 %s", e.Record, e.Field)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTransient 判断 err 是否为可重试的临时失败。
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsNotFound 判断 err 是否为单目标 404。
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// classifyStatus 把非 2xx 状态码映射到错误分类。
func classifyStatus(url string, status int) error {
	switch {
	case status == 404:
		return &NotFoundError{URL: url}
	case status >= 500:
		return &TransientError{URL: url, Err: &HTTPStatusError{URL: url, StatusCode: status}}
	default:
		return &HTTPStatusError{URL: url, StatusCode: status}
	}
}

// classifyTransport 把传输层错误映射到错误分类。
// 超时、连接被重置、DNS 抖动等都归为 transient；
// ctx 主动取消不算网络问题，原样透传让上层识别。
func classifyTransport(url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{URL: url, Err: err}
	}
	// 其余传输错误（连接拒绝、EOF 等）站点侧通常可自愈，同样按临时失败处理。
	return &TransientError{URL: url, Err: err}
}
