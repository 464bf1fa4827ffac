// Package logging 构造宿主程序使用的 *slog.Logger。
//
// reconcile 包只依赖 Log(ctx, level, msg, args...) 这一最小端口，*slog.Logger 直接满足。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/scenemeta/internal/config"
)

// Options 描述 logger 的构造参数。
type Options struct {
	Level  string
	Format string // console / json
	Output io.Writer
	// RunID 为空时自动生成；每次进程运行一个，用于串联同一批次的日志。
	RunID string
}

// New 按 Options 构造 logger。所有记录都带 run_id 属性。
func New(opts Options) (*slog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", config.DefaultLogFormat:
		ho.ReplaceAttr = consoleTime
		h = slog.NewTextHandler(out, ho)
	case "json":
		h = slog.NewJSONHandler(out, ho)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	return slog.New(h).With("run_id", runID), nil
}

// NewFromConfig 用有效配置中的 log 段构造 logger。
func NewFromConfig(eff config.EffectiveConfig, out io.Writer) (*slog.Logger, error) {
	return New(Options{Level: eff.LogLevel, Format: eff.LogFormat, Output: out})
}

// ParseLevel 把配置字符串映射为 slog.Level；未知值按 info 处理。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// console 格式只保留时分秒，便于终端阅读。
func consoleTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(time.TimeOnly))
	}
	return a
}
