package client

import (
	"go.uber.org/zap"
)

// zapLogger 基于 zap 的 Logger 实现
type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger 用 zap 实现 Logger 接口
// args 为交替出现的键值对，例如 Info("submitted", "txId", id)
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l.Sugar()}
}

func (z *zapLogger) Debug(msg string, args ...interface{}) { z.l.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...interface{})  { z.l.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...interface{})  { z.l.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...interface{}) { z.l.Errorw(msg, args...) }

// NopLogger 丢弃所有日志
func NopLogger() Logger {
	return NewZapLogger(zap.NewNop())
}
