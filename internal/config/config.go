// Package config 定义一次 run 的全量设置。
//
// 设置由 CLI 层组装后以不可变值的形式贯穿整条调用链；
// 核心层不读环境变量、不持有进程级可变状态。
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/coko7/vegapull/internal/locale"
)

const (
	// DefaultConcurrency 是 worker pool 的默认宽度。
	DefaultConcurrency = 4
	// DefaultMaxAttempts 是单个 job 的最大尝试次数（含首次）。
	DefaultMaxAttempts = 3
	// DefaultUserAgent 在未指定 --user-agent 时使用。
	DefaultUserAgent = "vegapull/0.3.0"
)

const (
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 8 * time.Second
)

// Settings 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认值判断）。
type Settings struct {
	// Locale 是规范化后的 locale 名（例如 "english"）。
	Locale string
	// OutputDir 是数据集根目录；实际写入发生在 <OutputDir>/<Locale>/ 下。
	OutputDir string

	Concurrency    int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	UserAgent string

	// BaseURL 覆盖 locale 表中的 hostname（站点换域名时的逃生通道，可选）。
	BaseURL string
	// LocaleDir 指向外部 locale 表目录（覆盖内置表，可选）。
	LocaleDir string
}

// Error 是配置阶段的结构化错误。配置错误立即终止整个 run，不做降级。
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config_invalid：%s：%s", e.Field, e.Msg)
}

// Finalize 校验并填充默认值，返回可直接消费的 Settings。
// 原值不被修改；任何非法字段都返回 *Error。
func (s Settings) Finalize() (Settings, error) {
	canonical, ok := locale.Canonical(s.Locale)
	if !ok {
		return Settings{}, &Error{Field: "locale", Msg: fmt.Sprintf("不支持的 locale：%q", s.Locale)}
	}
	s.Locale = canonical

	s.OutputDir = strings.TrimSpace(s.OutputDir)
	if s.OutputDir == "" {
		s.OutputDir = "vegapull-data"
	}
	abs, err := filepath.Abs(s.OutputDir)
	if err != nil {
		return Settings{}, &Error{Field: "output_dir", Msg: err.Error()}
	}
	s.OutputDir = abs

	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.Concurrency < 1 {
		return Settings{}, &Error{Field: "concurrency", Msg: "必须 >= 1"}
	}

	if s.MaxAttempts == 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.MaxAttempts < 1 {
		return Settings{}, &Error{Field: "max_attempts", Msg: "必须 >= 1"}
	}

	if s.RetryBaseDelay == 0 {
		s.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if s.RetryMaxDelay == 0 {
		s.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if s.RetryBaseDelay < 0 || s.RetryMaxDelay < s.RetryBaseDelay {
		return Settings{}, &Error{Field: "retry", Msg: "要求 0 <= base_delay <= max_delay"}
	}

	if strings.TrimSpace(s.UserAgent) == "" {
		s.UserAgent = DefaultUserAgent
	}
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")

	return s, nil
}

// Localizer 按设置装载翻译表：LocaleDir 优先，否则用内置表；
// BaseURL 非空时覆盖表内 hostname。
func (s Settings) Localizer() (locale.Localizer, error) {
	var (
		l   locale.Localizer
		err error
	)
	if s.LocaleDir != "" {
		l, err = locale.LoadFromDir(s.LocaleDir, s.Locale)
	} else {
		l, err = locale.Load(s.Locale)
	}
	if err != nil {
		return locale.Localizer{}, &Error{Field: "locale", Msg: err.Error()}
	}
	if s.BaseURL != "" {
		l.Hostname = s.BaseURL
	}
	return l, nil
}
