package log

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SLogOptions 日志初始化选项
type SLogOptions struct {
	// 日志级别：debug, info, warn, error
	Level string `cfg:"level" def:"info" validate:"omitempty,oneof=debug info warn error"`

	// 输出格式：text, json
	Format string `cfg:"format" def:"text" validate:"omitempty,oneof=text json"`

	// 输出目标配置
	Output OutputOptions `cfg:"output"`

	// 时间格式
	TimeFormat string `cfg:"timeFormat"`

	// 是否显示调用者信息
	AddSource bool `cfg:"addSource"`

	// 自定义字段
	Fields map[string]any `cfg:"fields"`
}

// SLog 基于标准库 slog 的日志实现
type SLog struct {
	slogger *slog.Logger
	writer  Writer
}

func NewSLogWithOptions(options *SLogOptions) (*SLog, error) {
	if options == nil {
		options = &SLogOptions{}
	}
	if options.Level == "" {
		options.Level = "info"
	}
	if options.Format == "" {
		options.Format = "text"
	}
	if options.TimeFormat == "" {
		options.TimeFormat = time.RFC3339
	}

	level, err := parseLevel(options.Level)
	if err != nil {
		return nil, err
	}

	w, err := NewWriterWithOptions(&options.Output)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewWriterWithOptions failed")
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: options.AddSource,
	}
	if options.TimeFormat != time.RFC3339 {
		timeFormat := options.TimeFormat
		handlerOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().Format(timeFormat)),
				}
			}
			return a
		}
	}

	var handler slog.Handler
	switch strings.ToLower(options.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, errors.Errorf("unsupported format [%s]", options.Format)
	}

	slogger := slog.New(handler)
	if len(options.Fields) > 0 {
		args := make([]any, 0, len(options.Fields)*2)
		for k, v := range options.Fields {
			args = append(args, k, v)
		}
		slogger = slogger.With(args...)
	}

	return &SLog{slogger: slogger, writer: w}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown level [%s]", level)
	}
}

func (l *SLog) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *SLog) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *SLog) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *SLog) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

func (l *SLog) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, args...)
}

func (l *SLog) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, args...)
}

func (l *SLog) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, args...)
}

func (l *SLog) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, args...)
}

func (l *SLog) With(args ...any) Logger {
	return &SLog{slogger: l.slogger.With(args...), writer: l.writer}
}

func (l *SLog) WithGroup(name string) Logger {
	return &SLog{slogger: l.slogger.WithGroup(name), writer: l.writer}
}

// Close 关闭底层输出器
func (l *SLog) Close() error {
	return l.writer.Close()
}
