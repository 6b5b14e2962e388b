package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput points the logger at a buffer at the given level and
// restores the previous state on cleanup.
func captureOutput(t *testing.T, lvl string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	redirect(t, buf, lvl)
	return buf
}

func redirect(t *testing.T, w io.Writer, lvl string) {
	t.Helper()

	mu.RLock()
	prevOutput, prevColor, prevFormat := output, useColor, format
	mu.RUnlock()
	prevLevel := level.Level()

	InitWithWriter(w, lvl, "text", false)

	t.Cleanup(func() {
		level.Set(prevLevel)
		InitWithWriter(prevOutput, "", prevFormat, prevColor)
	})
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t, tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestInvalidLevelIgnored(t *testing.T) {
	buf := captureOutput(t, "WARN")

	SetLevel("verbose")
	Info("still filtered")

	assert.Empty(t, buf.String())
}

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t, "INFO")

	Info("login rejected", KeyUsername, "alice", KeyPath, "/app/jobs", "attempts", 3)

	out := buf.String()
	assert.Contains(t, out, "[INFO] login rejected")
	assert.Contains(t, out, "username=alice")
	assert.Contains(t, out, "path=/app/jobs")
	assert.Contains(t, out, "attempts=3")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTextFormatQuotesSpaces(t *testing.T) {
	buf := captureOutput(t, "INFO")

	Info("msg", KeyError, "connection refused by peer")

	assert.Contains(t, buf.String(), `error="connection refused by peer"`)
}

func TestTextFormatGroupsAndWith(t *testing.T) {
	buf := captureOutput(t, "INFO")

	With(KeyBackend, "ldap").WithGroup("dir").Info("bind", "host", "ldap.example.org")

	out := buf.String()
	assert.Contains(t, out, "backend=ldap")
	assert.Contains(t, out, "dir.host=ldap.example.org")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t, "INFO")
	SetFormat("json")

	Info("session bound", KeyPrincipal, "alice", KeySessionID, "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "session bound", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "alice", rec[KeyPrincipal])
	assert.Equal(t, "abc", rec[KeySessionID])
}

func TestContextFields(t *testing.T) {
	buf := captureOutput(t, "DEBUG")

	rc := NewRequestContext("req-1", "10.0.0.7", "GET", "/app/")
	rc.SetPrincipal("alice", "sess-9")
	ctx := WithContext(context.Background(), rc)

	InfoCtx(ctx, "request served", KeyStatus, 200)

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "client_ip=10.0.0.7")
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "principal=alice")
	assert.Contains(t, out, "session_id=sess-9")
	assert.Contains(t, out, "status=200")
	assert.Less(t, strings.Index(out, "request_id"), strings.Index(out, "status"))
}

func TestContextWithoutRequestContext(t *testing.T) {
	buf := captureOutput(t, "DEBUG")

	WarnCtx(context.Background(), "plain", "k", "v")
	ErrorCtx(context.TODO(), "nil ctx")

	out := buf.String()
	assert.Contains(t, out, "plain k=v")
	assert.Contains(t, out, "nil ctx")
}

func TestRequestContextCopies(t *testing.T) {
	rc := NewRequestContext("r", "1.2.3.4", "POST", "/login")
	withT := rc.WithTrace("t1", "sp1")
	assert.Empty(t, rc.TraceID)
	assert.Equal(t, "t1", withT.TraceID)
	assert.Equal(t, "sp1", withT.SpanID)

	withT.SetPrincipal("bob", "s1")
	assert.Equal(t, "bob", withT.Principal)
	assert.Equal(t, "s1", withT.SessionID)
	assert.Empty(t, rc.Principal)

	var nilRC *RequestContext
	nilRC.SetPrincipal("x", "y")
	assert.Nil(t, nilRC.Clone())
	assert.Zero(t, nilRC.DurationMs())
}

func TestErrAttr(t *testing.T) {
	buf := captureOutput(t, "INFO")

	Info("with error", Err(errors.New("boom")))
	Info("without error", Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "error=boom")
	assert.NotContains(t, lines[1], "error=")
}

func TestInitFileOutput(t *testing.T) {
	mu.RLock()
	prevOutput, prevColor, prevFormat := output, useColor, format
	mu.RUnlock()
	t.Cleanup(func() {
		mu.Lock()
		if closer != nil {
			_ = closer.Close()
			closer = nil
		}
		mu.Unlock()
		InitWithWriter(prevOutput, "INFO", prevFormat, prevColor)
	})

	path := filepath.Join(t.TempDir(), "gate.log")
	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))

	Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestInitBadFile(t *testing.T) {
	err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestConcurrentLogging(t *testing.T) {
	var safe syncBuffer
	redirect(t, &safe, "INFO")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Info("concurrent", "n", n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(safe.String(), "concurrent"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
