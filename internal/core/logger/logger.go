// Package logger provides the structured logging engine for eportal.
// Uses log/slog with support for multiple sinks: console, file, audit file.
// The logger doubles as a portal observer: program lines are logged at info,
// request/response dumps at debug and, with packet capture on, appended
// verbatim to a per-run capture file.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	v1 "github.com/f9-o/eportal/api/v1"
)

// ─────────────────────────────────────────────────────────────────────────────
// Logger
// ─────────────────────────────────────────────────────────────────────────────

// Logger wraps slog.Logger with eportal-specific utilities.
type Logger struct {
	*slog.Logger

	mu       sync.Mutex
	auditW   io.Writer // append-only audit log writer (nil = disabled)
	captureW io.Writer // packet capture writer (nil = disabled)
	closers  []io.Closer
	now      func() time.Time
}

var console io.Writer = os.Stderr

// SetConsole sets where Init sends human-facing log output. A nil w keeps
// logs in the file only, which the TUI needs since it owns the terminal.
func SetConsole(w io.Writer) {
	console = w
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Init initialises the global logger.
func Init(level, format, logFile, home string, debug bool) (*Logger, error) {
	lvl := ParseLevel(level)
	if debug {
		lvl = slog.LevelDebug
	}

	l := &Logger{now: time.Now}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	if logFile != "" {
		f, err := openAppend(logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.closers = append(l.closers, f)
		writers = append(writers, f)
	}

	out := io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl, AddSource: debug}
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	l.Logger = slog.New(handler)
	slog.SetDefault(l.Logger)

	if home != "" {
		if af, err := openAppend(filepath.Join(home, "audit.log")); err == nil {
			l.auditW = af
			l.closers = append(l.closers, af)
		}
	}
	return l, nil
}

// New returns a [*Logger] on top of handler with audit and capture disabled.
func New(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(handler), now: time.Now}
}

// Close releases any files opened by [Init] or [Logger.EnableCapture].
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	l.auditW = nil
	l.captureW = nil
	return first
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
}

// ─────────────────────────────────────────────────────────────────────────────
// Portal observer
// ─────────────────────────────────────────────────────────────────────────────

// CaptureFileName returns the capture file name for a run started at t.
func CaptureFileName(t time.Time) string {
	return "network_logs_" + t.Format("20060102_150405") + ".log"
}

// EnableCapture opens a new capture file under dir and returns its path.
// Request and response dumps are appended to it until [Logger.Close].
func (l *Logger) EnableCapture(dir string) (string, error) {
	path := filepath.Join(dir, CaptureFileName(l.now()))
	f, err := openAppend(path)
	if err != nil {
		return "", fmt.Errorf("open capture file: %w", err)
	}
	l.SetCaptureWriter(f)
	l.mu.Lock()
	l.closers = append(l.closers, f)
	l.mu.Unlock()
	return path, nil
}

// SetCaptureWriter routes capture output to w. A nil w disables capture.
func (l *Logger) SetCaptureWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.captureW = w
}

// Notify implements portal.Observer.
func (l *Logger) Notify(category, message string) {
	switch category {
	case v1.CategoryRequest, v1.CategoryResponse:
		l.Debug("portal "+category, "dump", message)
		l.capture(category, message)
	default:
		l.Info(message)
	}
}

func (l *Logger) capture(category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.captureW == nil {
		return
	}
	ts := l.now().Format("2006-01-02 15:04:05.000")
	_, _ = fmt.Fprintf(l.captureW, "%s - DEBUG - [%s] %s\n", ts, category, message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Audit logging
// ─────────────────────────────────────────────────────────────────────────────

// AuditEntry represents a single audit log event.
type AuditEntry struct {
	Timestamp time.Time `json:"ts"`
	Op        string    `json:"op"`
	User      string    `json:"user"`
	IP        string    `json:"ip,omitempty"`
	MAC       string    `json:"mac,omitempty"`
	Result    string    `json:"result"` // success | failure | already_online
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
}

// AuditFromRecord builds the audit entry for a finished login record.
func AuditFromRecord(rec v1.LoginRecord, attempts int) AuditEntry {
	return AuditEntry{
		Timestamp: rec.CompletedAt,
		Op:        rec.Op,
		User:      rec.UserID,
		IP:        rec.IP,
		MAC:       rec.MAC,
		Result:    rec.Result,
		Attempts:  attempts,
		Error:     rec.Error,
	}
}

// Audit writes an append-only audit log entry.
func (l *Logger) Audit(entry AuditEntry) {
	l.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.String("op", entry.Op),
		slog.String("user", entry.User),
		slog.String("ip", entry.IP),
		slog.String("result", entry.Result),
		slog.Int("attempts", entry.Attempts),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.auditW == nil {
		return
	}
	entry.Timestamp = entry.Timestamp.UTC()
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = l.auditW.Write(append(line, '\n'))
}

// SetAuditWriter routes audit lines to w. A nil w disables the audit file.
func (l *Logger) SetAuditWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auditW = w
}
