// Package applog はアプリケーション全体で共有するログ出力先を提供します。
package applog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New は標準エラー出力に書き出すコンソールロガーを作成します。
func New(app string, level string) zerolog.Logger {
	return NewWithWriter(os.Stderr, app, level)
}

// NewWithWriter は出力先を指定してロガーを作成します。
func NewWithWriter(w io.Writer, app string, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	lvl, _ := ParseLevel(level)
	logger := zerolog.New(output).Level(lvl).With().Timestamp().Str("app", app).Logger()
	return logger
}

// ParseLevel は環境変数の文字列を zerolog のレベルに変換します。
// 解釈できない値の場合は InfoLevel と false を返します。
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
