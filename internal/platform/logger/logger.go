package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config はロガーの設定
type Config struct {
	Level  slog.Level
	Format string    // "json" or "text"
	Output io.Writer // nil の場合は標準エラー出力
}

// DefaultConfig はデフォルトのロガー設定
// 標準出力は検索結果の表示に使うため、ログは標準エラー出力に出す
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
		Output: os.Stderr,
	}
}

// FromStrings は LOG_LEVEL / LOG_FORMAT 相当の文字列から設定を作成します
// 解釈できないレベルは info として扱う
func FromStrings(level, format string) Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	if strings.EqualFold(format, "text") {
		cfg.Format = "text"
	}
	return cfg
}

// ParseLevel はレベル名を slog.Level に変換します
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New は新しいロガーを作成し、デフォルトロガーとして設定します
func New(cfg Config) *slog.Logger {
	var handler slog.Handler

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default: // "json"
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
