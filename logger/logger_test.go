package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New("json", &buf)

	ctx := Ctx(context.Background(), slog.String("run_id", "abc"))
	ctx = Ctx(ctx, slog.String("channel", "https://ex.com"))
	l.With("component", "sync").InfoContext(ctx, "synced")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "synced", rec["msg"])
	assert.Equal(t, "abc", rec["run_id"])
	assert.Equal(t, "https://ex.com", rec["channel"])
	assert.Equal(t, "sync", rec["component"])
}

func TestCtxSiblingsDoNotShare(t *testing.T) {
	base := Ctx(context.Background(), slog.String("a", "1"))
	left := Ctx(base, slog.String("b", "left"))
	right := Ctx(base, slog.String("b", "right"))

	leftAttrs := left.Value(attrKey).([]slog.Attr)
	rightAttrs := right.Value(attrKey).([]slog.Attr)
	assert.Equal(t, "left", leftAttrs[1].Value.String())
	assert.Equal(t, "right", rightAttrs[1].Value.String())
}

func TestNewTextFallback(t *testing.T) {
	var buf bytes.Buffer
	New("whatever", &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
