package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassosimone/slogstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/f9-o/eportal/api/v1"
)

// newCapturingLogger returns a Logger whose records land in the returned slice.
func newCapturingLogger() (*Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	l := New(handler)
	l.now = func() time.Time { return time.Date(2026, 10, 16, 8, 30, 5, 0, time.UTC) }
	return l, &records
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNotifyLevels(t *testing.T) {
	l, records := newCapturingLogger()

	l.Notify(v1.CategoryProgram, "login succeeded")
	l.Notify(v1.CategoryRequest, "POST dump")
	l.Notify(v1.CategoryResponse, "200 dump")

	require.Len(t, *records, 3)
	assert.Equal(t, slog.LevelInfo, (*records)[0].Level)
	assert.Equal(t, "login succeeded", (*records)[0].Message)
	assert.Equal(t, slog.LevelDebug, (*records)[1].Level)
	assert.Equal(t, "portal request", (*records)[1].Message)
	assert.Equal(t, "portal response", (*records)[2].Message)
}

func TestCaptureWriter(t *testing.T) {
	l, _ := newCapturingLogger()
	var buf bytes.Buffer

	l.Notify(v1.CategoryRequest, "before capture")
	l.SetCaptureWriter(&buf)
	l.Notify(v1.CategoryRequest, "req")
	l.Notify(v1.CategoryProgram, "not captured")
	l.Notify(v1.CategoryResponse, "resp")

	assert.Equal(t,
		"2026-10-16 08:30:05.000 - DEBUG - [request] req\n"+
			"2026-10-16 08:30:05.000 - DEBUG - [response] resp\n",
		buf.String())
}

func TestEnableCapture(t *testing.T) {
	l, _ := newCapturingLogger()
	dir := filepath.Join(t.TempDir(), "logs")

	path, err := l.EnableCapture(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "network_logs_20261016_083005.log"), path)

	l.Notify(v1.CategoryResponse, "body")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[response] body")
}

func TestAudit(t *testing.T) {
	l, records := newCapturingLogger()
	var buf bytes.Buffer
	l.SetAuditWriter(&buf)

	rec := v1.LoginRecord{
		Op:          "login",
		UserID:      "20231234567",
		IP:          "10.0.0.5",
		MAC:         "AABBCCDDEEFF",
		CompletedAt: time.Date(2026, 10, 16, 16, 30, 0, 0, time.FixedZone("CST", 8*3600)),
		Result:      v1.ResultSuccess,
	}
	l.Audit(AuditFromRecord(rec, 2))

	require.Len(t, *records, 1)
	assert.Equal(t, "audit", (*records)[0].Message)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2026-10-16T08:30:00Z", got["ts"])
	assert.Equal(t, "login", got["op"])
	assert.Equal(t, "success", got["result"])
	assert.EqualValues(t, 2, got["attempts"])
	assert.NotContains(t, got, "error")
}

func TestInitWritesFileAndAudit(t *testing.T) {
	home := t.TempDir()
	logFile := filepath.Join(home, "logs", "eportal.log")
	SetConsole(nil)
	defer SetConsole(os.Stderr)

	l, err := Init("info", "json", logFile, home, false)
	require.NoError(t, err)
	l.Info("hello", "k", "v")
	l.Audit(AuditEntry{Op: "connect", Result: v1.ResultOnline})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	audit, err := os.ReadFile(filepath.Join(home, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"result":"already_online"`)
}
