// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Config 日志配置
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"` // json/console
	Output     string `json:"output"` // stdout/stderr
	TimeFormat string `json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		if cfg.Output == "stderr" {
			output = os.Stderr
		} else {
			output = os.Stdout
		}

		if cfg.Format == "console" {
			tf := cfg.TimeFormat
			if tf == "" {
				tf = time.RFC3339
			}
			output = zerolog.ConsoleWriter{Out: output, TimeFormat: tf}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// With 返回带组件名的子日志器
func With(component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// Debug 记录调试日志
func Debug() *zerolog.Event { return logger.Debug() }

// Info 记录信息日志
func Info() *zerolog.Event { return logger.Info() }

// Warn 记录警告日志
func Warn() *zerolog.Event { return logger.Warn() }

// Error 记录错误日志
func Error() *zerolog.Event { return logger.Error() }

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event { return logger.Fatal() }
