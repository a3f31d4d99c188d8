package debug

// Periodic runtime logger, started only when config.Debug is true. Emits
// goroutine count, heap and stack usage and process RSS next to the active
// session's counters, to tell a leaking analysis goroutine from native
// memory growth in the video backend.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/soocke/weapon-watch/domain/detection"
)

// StatusFunc reports the active session's stats, if any.
type StatusFunc func() (detection.Stats, bool)

// StartStatsLogger logs every interval until ctx is done.
func StartStatsLogger(ctx context.Context, interval time.Duration, logger *slog.Logger, status StatusFunc) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := logOnce(logger, status); err != nil && !rssErrLogged {
					logger.Warn("debug: process memory query failed", "error", err)
					rssErrLogged = true
				}
			}
		}
	}()
}

func logOnce(logger *slog.Logger, status StatusFunc) error {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	rss, err := processRSS()

	attrs := []any{
		slog.Uint64("goroutines", samples[0].Value.Uint64()),
		slog.Uint64("heap_alloc", ms.HeapAlloc),
		slog.Uint64("heap_inuse", ms.HeapInuse),
		slog.Uint64("stack_inuse", ms.StackInuse),
		slog.Uint64("num_gc", uint64(ms.NumGC)),
		slog.Uint64("rss", rss),
	}
	if status != nil {
		if st, ok := status(); ok {
			attrs = append(attrs, slog.Group("session",
				slog.String("id", st.SessionID),
				slog.Uint64("ticks", st.Ticks),
				slog.Uint64("dispatched", st.Dispatched),
				slog.Uint64("busy", st.Busy),
				slog.Uint64("failures", st.Failures),
				slog.Bool("outstanding", st.Outstanding),
				slog.Bool("detected", st.Detected),
			))
		}
	}
	logger.Info("runtime-stats", attrs...)
	return err
}
