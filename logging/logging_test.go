package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angas/solarquote-go/database"
)

type memoryLog struct {
	rows []database.LogEntryRow
	err  error
}

func (m *memoryLog) SaveLogEntry(_ context.Context, r database.LogEntryRow) error {
	m.rows = append(m.rows, r)
	return m.err
}

func TestLevelFromString(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		in   *string
		want slog.Level
	}{
		{nil, slog.LevelInfo},
		{str("debug"), slog.LevelDebug},
		{str("WARN"), slog.LevelWarn},
		{str("Error"), slog.LevelError},
		{str("verbose"), slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("got %v, wanted %v", got, tt.want)
		}
	}
}

func TestSQLiteHandlerStoresModule(t *testing.T) {
	store := &memoryLog{}
	logger := slog.New(NewSQLiteHandler(store, slog.LevelInfo, LogAttrFormatJSON)).
		With(ModuleKey, "quote", "requestId", "abc")

	logger.Debug("not stored")
	logger.Warn("quote rejected", slog.String("outcome", "insufficient_input"))

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "quote", row.Module)
	assert.Equal(t, int(slog.LevelWarn), row.Level)
	assert.Equal(t, `[{"requestId":"abc"},{"outcome":"insufficient_input"}]`, row.Attrs)
	assert.WithinDuration(t, time.Now(), row.Timestamp, time.Minute)
}

func TestSQLiteHandlerTextAttrs(t *testing.T) {
	store := &memoryLog{}
	logger := slog.New(NewSQLiteHandler(store, slog.LevelDebug, LogAttrFormatText))

	logger.Info("reloaded", "pricing", "split", "expr", "a=b;c")

	require.Len(t, store.rows, 1)
	assert.Equal(t, `pricing=split; expr=a\=b\;c`, store.rows[0].Attrs)
	assert.Equal(t, "", store.rows[0].Module)
}

func TestMultiHandler(t *testing.T) {
	var buf bytes.Buffer
	console := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	store := &memoryLog{err: errors.New("disk full")}

	multi := NewMultiHandler(console, NewSQLiteHandler(store, slog.LevelWarn, LogAttrFormatJSON))
	assert.True(t, multi.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(multi).With(ModuleKey, "www")
	logger.Debug("console only")
	assert.Contains(t, buf.String(), "console only")
	assert.Empty(t, store.rows)

	err := multi.WithAttrs([]slog.Attr{slog.String(ModuleKey, "www")}).
		Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "both", 0))
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "both", "a failing handler doesn't stop the others")
	require.Len(t, store.rows, 1)
	assert.Equal(t, "www", store.rows[0].Module)

	quiet := NewMultiHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))
	assert.False(t, quiet.Enabled(context.Background(), slog.LevelInfo))
}
