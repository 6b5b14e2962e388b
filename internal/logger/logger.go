package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	level  = new(slog.LevelVar)
	format = "text"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stdout
	closer   io.Closer
	useColor bool
)

func init() {
	useColor = isTerminal(os.Stdout.Fd())
	rebuild()
}

// rebuild swaps the process logger for one matching the current output
// and format. Callers must not hold mu.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init configures the process logger. Output can be "stdout", "stderr", or a
// file path opened in append mode.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, c, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}

		mu.Lock()
		if closer != nil {
			_ = closer.Close()
		}
		output, closer, useColor = w, c, color
		mu.Unlock()
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}

	rebuild()
	return nil
}

func openOutput(dst string) (io.Writer, io.Closer, bool, error) {
	switch strings.ToLower(dst) {
	case "stdout":
		return os.Stdout, nil, isTerminal(os.Stdout.Fd()), nil
	case "stderr":
		return os.Stderr, nil, isTerminal(os.Stderr.Fd()), nil
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open log file %q: %w", dst, err)
	}
	return f, f, false, nil
}

// InitWithWriter points the logger at w. Used by tests.
func InitWithWriter(w io.Writer, lvl, fmtName string, enableColor bool) {
	mu.Lock()
	output = w
	useColor = enableColor
	mu.Unlock()

	if lvl != "" {
		SetLevel(lvl)
	}
	if fmtName != "" {
		SetFormat(fmtName)
	}
	rebuild()
}

// SetLevel sets the minimum log level. Unknown names are ignored.
func SetLevel(name string) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "INFO":
		level.Set(slog.LevelInfo)
	case "WARN", "WARNING":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	}
}

// SetFormat selects text or json output. Unknown formats are ignored.
func SetFormat(name string) {
	name = strings.ToLower(name)
	if name != "text" && name != "json" {
		return
	}

	mu.Lock()
	changed := format != name
	format = name
	mu.Unlock()

	if changed {
		rebuild()
	}
}

// Enabled reports whether records at lvl would be emitted.
func Enabled(lvl slog.Level) bool {
	return lvl >= level.Level()
}

func get() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

// Debug logs at debug level.
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// DebugCtx logs at debug level, prefixing the request fields carried by ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if !Enabled(slog.LevelDebug) {
		return
	}
	get().Debug(msg, withRequestFields(ctx, args)...)
}

// InfoCtx logs at info level with request fields.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	if !Enabled(slog.LevelInfo) {
		return
	}
	get().Info(msg, withRequestFields(ctx, args)...)
}

// WarnCtx logs at warn level with request fields.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if !Enabled(slog.LevelWarn) {
		return
	}
	get().Warn(msg, withRequestFields(ctx, args)...)
}

// ErrorCtx logs at error level with request fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().Error(msg, withRequestFields(ctx, args)...)
}

func withRequestFields(ctx context.Context, args []any) []any {
	rc := FromContext(ctx)
	if rc == nil {
		return args
	}

	out := make([]any, 0, 16+len(args))
	add := func(key, val string) {
		if val != "" {
			out = append(out, key, val)
		}
	}
	add(KeyTraceID, rc.TraceID)
	add(KeySpanID, rc.SpanID)
	add(KeyRequestID, rc.RequestID)
	add(KeyClientIP, rc.ClientIP)
	add(KeyMethod, rc.Method)
	add(KeyPath, rc.Path)
	add(KeyPrincipal, rc.Principal)
	add(KeySessionID, rc.SessionID)

	return append(out, args...)
}

// With returns a logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the time elapsed since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
