package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	return entry
}

// ── constructors ─────────────────────────────────────────────────────────────

func TestNewLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("server")
	l.Logger = l.Output(&buf)

	l.Info().Msg("push applied")

	entry := decodeEntry(t, buf.Bytes())
	assert.Equal(t, "server", entry["role"])
	assert.Equal(t, "push applied", entry["message"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "func")

	assert.Equal(t, "func", zerolog.CallerFieldName)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestNewClientLogger(t *testing.T) {
	t.Run("rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "client.log")
		l := NewClientLogger("client", FileOptions{Path: path, MaxSizeMB: 1})

		l.Info().Str("trigger", "manual").Msg("cycle started")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		entry := decodeEntry(t, data)
		assert.Equal(t, "client", entry["role"])
		assert.Equal(t, "manual", entry["trigger"])
	})

	t.Run("stderr fallback", func(t *testing.T) {
		require.NotNil(t, NewClientLogger("client", FileOptions{}))
	})
}

func TestNop(t *testing.T) {
	var buf bytes.Buffer
	l := Nop()
	l.Logger = l.Output(&buf)

	l.Error().Msg("dropped")
	assert.Empty(t, buf.String())
}

// ── children and context ─────────────────────────────────────────────────────

func TestGetChildLogger(t *testing.T) {
	var buf bytes.Buffer
	parent := &Logger{zerolog.New(&buf).With().Str("role", "client").Logger()}

	child := parent.GetChildLogger()
	assert.NotSame(t, parent, child)

	child.Logger = child.With().Str("record_id", "42").Logger()
	child.Info().Msg("marked clean")

	entry := decodeEntry(t, buf.Bytes())
	assert.Equal(t, "client", entry["role"])
	assert.Equal(t, "42", entry["record_id"])

	buf.Reset()
	parent.Info().Msg("parent untouched")
	assert.NotContains(t, decodeEntry(t, buf.Bytes()), "record_id")
}

func TestFromContext(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))

	var buf bytes.Buffer
	l := &Logger{zerolog.New(&buf).With().Str("trace_id", "abc").Logger()}

	FromContext(l.WithContext(context.Background())).Info().Msg("x")
	assert.Equal(t, "abc", decodeEntry(t, buf.Bytes())["trace_id"])
}

func TestFromRequest(t *testing.T) {
	require.NotNil(t, FromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))

	var buf bytes.Buffer
	l := &Logger{zerolog.New(&buf).With().Str("trace_id", "req-1").Logger()}
	req := httptest.NewRequest(http.MethodPost, "/api/sync/push", nil)
	req = req.WithContext(l.WithContext(req.Context()))

	FromRequest(req).Info().Msg("from request")
	assert.Equal(t, "req-1", decodeEntry(t, buf.Bytes())["trace_id"])
}
