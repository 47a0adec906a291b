// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 初始化全局日志器，服务启动时调用一次。
// 默认输出 JSON，设置 LOG_PRETTY=true 时输出适合本地开发的控制台格式。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	l := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()
	if os.Getenv("LOG_PRETTY") == "true" {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = l
}

// WithContext 将全局日志器注入 ctx，后续通过 Ctx 取回。
func WithContext(ctx context.Context) context.Context {
	return log.Logger.WithContext(ctx)
}

// Ctx 从 ctx 中取出日志器；ctx 中没有时退回全局日志器。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}

// Info 等价于全局日志器的 Info，方便不带 ctx 的调用点。
func Info() *zerolog.Event { return log.Logger.Info() }

// Warn 等价于全局日志器的 Warn。
func Warn() *zerolog.Event { return log.Logger.Warn() }

// Error 等价于全局日志器的 Error。
func Error() *zerolog.Event { return log.Logger.Error() }

// Fatal 等价于全局日志器的 Fatal。
func Fatal() *zerolog.Event { return log.Logger.Fatal() }
