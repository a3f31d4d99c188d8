package debug

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/weapon-watch/domain/detection"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestLogOnce_IncludesSession(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	_ = logOnce(logger, func() (detection.Stats, bool) {
		return detection.Stats{SessionID: "s-1", Ticks: 9, Outstanding: true}, true
	})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "runtime-stats", rec["msg"])
	assert.Greater(t, rec["goroutines"], float64(0))
	sess, ok := rec["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s-1", sess["id"])
	assert.Equal(t, float64(9), sess["ticks"])
	assert.Equal(t, true, sess["outstanding"])
}

func TestStartStatsLogger_StopsWithContext(t *testing.T) {
	buf := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	ctx, cancel := context.WithCancel(context.Background())
	StartStatsLogger(ctx, 5*time.Millisecond, logger, nil)
	require.Eventually(t, func() bool { return bytes.Contains([]byte(buf.String()), []byte("runtime-stats")) }, time.Second, 5*time.Millisecond)
	cancel()
}
