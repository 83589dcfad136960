// Package wplog provides the leveled, topic-tagged logger used across
// the engine, backed by log/slog with an optional rotating file sink.
// Each package that logs defines its own topic constant, mirroring the
// original per-file WP_DEFINE_LOCAL_LOG_TOPIC convention.
package wplog

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors the original engine's trace/debug/info/notice/warning/
// critical topic levels. Notice sits between Info and Warning: routine
// but noteworthy (a rule matched, a hook rolled back), not a problem by
// itself.
type Level int

const (
	Trace Level = iota
	Debug
	Info
	Notice
	Warning
	Critical
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case Trace:
		return slog.Level(-8)
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Notice:
		return slog.Level(2)
	case Warning:
		return slog.LevelWarn
	case Critical:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// Logger is a thin wrapper around *slog.Logger bound to a topic. It
// re-reads the package-level sink on every call rather than caching a
// derived logger, so a Logger created before UseRotatingFile still
// redirects once UseRotatingFile runs.
type Logger struct {
	topic string
}

var root atomic.Pointer[slog.Logger]

func init() {
	root.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// UseRotatingFile redirects every Logger, including ones already
// constructed by New(), to a lumberjack-backed rotating file sink. Call
// once during host startup.
func UseRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	root.Store(slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// New returns a Logger tagged with topic, included as a "topic" attribute
// on every record.
func New(topic string) *Logger {
	return &Logger{topic: topic}
}

func (l *Logger) log(ctx context.Context, level Level, msg string, args ...any) {
	root.Load().With("topic", l.topic).Log(ctx, level.slogLevel(), msg, args...)
}

func (l *Logger) Trace(msg string, args ...any)    { l.log(context.Background(), Trace, msg, args...) }
func (l *Logger) Debug(msg string, args ...any)    { l.log(context.Background(), Debug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)     { l.log(context.Background(), Info, msg, args...) }
func (l *Logger) Notice(msg string, args ...any)   { l.log(context.Background(), Notice, msg, args...) }
func (l *Logger) Warning(msg string, args ...any)  { l.log(context.Background(), Warning, msg, args...) }
func (l *Logger) Critical(msg string, args ...any) { l.log(context.Background(), Critical, msg, args...) }
