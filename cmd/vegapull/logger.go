package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger 按 -v 计数构造 zap logger，所有日志走 stderr。
//
//	0（默认）：warn 以上，console 编码（安静模式，只看得到问题）
//	1（-v）  ：info 以上，console 编码
//	2（-vv） ：debug 以上，development 配置（含 caller）
//
// 返回的 flush 在进程退出前调用，把缓冲日志刷出去。
func newLogger(verbose int) (log *zap.Logger, flush func()) {
	var config zap.Config
	if verbose >= 2 {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.DisableStacktrace = true
		if verbose == 1 {
			config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		} else {
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	l, err := config.Build()
	if err != nil {
		// Build 只在配置非法时失败；上面的配置是常量，失败即 bug。
		panic(err)
	}
	return l, func() { _ = l.Sync() }
}
