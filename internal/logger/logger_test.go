package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "anything"} {
		l, err := New(mode, "debug")
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := New("dev", "loud")
	require.NoError(t, err)
	assert.False(t, l.SugaredLogger.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.SugaredLogger.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("session", "abc").Info("transition", "to", "END")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["session"])
	assert.Equal(t, "END", fields["to"])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil).SugaredLogger)
	l := Nop()
	assert.Same(t, l, OrNop(l))
}

func TestContext(t *testing.T) {
	fallback := Nop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	l := Nop().With("request_id", "r1")
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx, fallback))
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tierloop.log")
	l, err := NewFile("prod", "info", path)
	require.NoError(t, err)
	l.Info("session transition", "session", "s1")
	l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session transition")
	assert.Contains(t, string(data), `"session":"s1"`)
}
