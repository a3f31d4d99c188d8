package source

import (
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vova616/screenshot"

	"github.com/soocke/weapon-watch/domain/detection"
)

const (
	defaultScreenFPS        = 10.0
	screenStatsLogInterval  = 5 * time.Second
	screenRetryDelay        = 5 * time.Millisecond
	screenMinCaptureSpacing = 200 * time.Microsecond
)

// grabFunc captures the full screen or the given rectangle.
type grabFunc func(sel *image.Rectangle) (*image.RGBA, error)

func grabScreen(sel *image.Rectangle) (*image.RGBA, error) {
	if sel != nil && !sel.Empty() {
		return screenshot.CaptureRect(*sel)
	}
	return screenshot.CaptureScreen()
}

// ScreenStats summarises the capture loop for instrumentation.
type ScreenStats struct {
	Captures   uint64
	Failures   uint64
	AvgCapture time.Duration
	Sequence   uint64
}

// ScreenSource captures the desktop on a background goroutine and exposes
// the freshest frame to Read. Frames already returned once are not
// returned again.
type ScreenSource struct {
	logger  *slog.Logger
	fps     float64
	selFn   func() *image.Rectangle
	grab    grabFunc
	running atomic.Bool
	done    chan struct{}

	latest       atomic.Pointer[detection.Frame]
	lastRead     atomic.Uint64
	sequence     atomic.Uint64
	captures     atomic.Uint64
	failures     atomic.Uint64
	captureNanos atomic.Uint64
}

// NewScreenSource returns a stopped screen source. selFn may return nil for full screen.
func NewScreenSource(logger *slog.Logger, fps float64, selFn func() *image.Rectangle) *ScreenSource {
	if fps <= 0 {
		fps = defaultScreenFPS
	}
	if selFn == nil {
		selFn = func() *image.Rectangle { return nil }
	}
	return &ScreenSource{logger: logger, fps: fps, selFn: selFn, grab: grabScreen}
}

// Start launches the capture loop. Idempotent.
func (s *ScreenSource) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.done = make(chan struct{})
	go s.loop(s.done)
}

// Read returns the newest captured frame not yet read.
func (s *ScreenSource) Read() (detection.Frame, bool) {
	snap := s.latest.Load()
	if snap == nil || snap.Sequence == s.lastRead.Load() {
		return detection.Frame{}, false
	}
	s.lastRead.Store(snap.Sequence)
	return *snap, true
}

func (s *ScreenSource) FPS() float64 { return s.fps }

// Close stops the capture loop and waits for it to exit.
func (s *ScreenSource) Close() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	<-s.done
	return nil
}

// Stats returns capture counters.
func (s *ScreenSource) Stats() ScreenStats {
	captures := s.captures.Load()
	var avg time.Duration
	if captures > 0 {
		avg = time.Duration(s.captureNanos.Load() / captures)
	}
	return ScreenStats{Captures: captures, Failures: s.failures.Load(), AvgCapture: avg, Sequence: s.sequence.Load()}
}

func (s *ScreenSource) loop(done chan struct{}) {
	defer close(done)
	logTicker := time.NewTicker(screenStatsLogInterval)
	defer logTicker.Stop()
	period := time.Duration(float64(time.Second) / s.fps)
	for s.running.Load() {
		start := time.Now()
		img, err := s.grab(s.selFn())
		if err != nil || img == nil {
			s.failures.Add(1)
			if err != nil && s.logger != nil {
				s.logger.Error("screen capture", "error", err)
			}
			time.Sleep(screenRetryDelay)
			continue
		}
		s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
		s.captures.Add(1)
		seq := s.sequence.Add(1)
		s.latest.Store(&detection.Frame{Image: img, CapturedAt: time.Now(), Sequence: seq})

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}
		// Capture at the advertised rate; faster frames would never be read.
		time.Sleep(max(screenMinCaptureSpacing, time.Until(start.Add(period))))
	}
}

func (s *ScreenSource) logStats() {
	if s.logger == nil {
		return
	}
	st := s.Stats()
	s.logger.Debug("screen.stats", "captures", st.Captures, "failures", st.Failures, "avg_capture", st.AvgCapture)
}
