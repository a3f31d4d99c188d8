package detection

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const alertLabel = "Weapon detected! Call the proper authorities!"

// events records side effects from several goroutines in order.
type events struct {
	mu  sync.Mutex
	seq []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.seq = append(e.seq, s)
	e.mu.Unlock()
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.seq...)
}

// fakeSource yields frames forever; gaps lists reads (1-based) that fail.
type fakeSource struct {
	mu     sync.Mutex
	reads  uint64
	gaps   map[uint64]bool
	fps    float64
	closed bool
	ev     *events
}

func (s *fakeSource) Read() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.gaps[s.reads] {
		return Frame{}, false
	}
	return Frame{Image: image.NewRGBA(image.Rect(0, 0, 4, 4)), CapturedAt: time.Now(), Sequence: s.reads}, true
}

func (s *fakeSource) FPS() float64 { return s.fps }

func (s *fakeSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.ev != nil {
		s.ev.add("source.close")
	}
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// scriptedClassifier answers the n-th call (1-based) with script(n).
type scriptedClassifier struct {
	script   func(n int) (Result, error)
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (c *scriptedClassifier) Classify(ctx context.Context, img image.Image) (Result, error) {
	cur := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		m := c.maxSeen.Load()
		if cur <= m || c.maxSeen.CompareAndSwap(m, cur) {
			break
		}
	}
	n := int(c.calls.Add(1))
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.script(n)
}

func confidences(vals ...float64) func(int) (Result, error) {
	return func(n int) (Result, error) {
		v := vals[len(vals)-1]
		if n <= len(vals) {
			v = vals[n-1]
		}
		return Result{Status: StatusSuccess, Confidence: v}, nil
	}
}

type countingNotifier struct {
	calls atomic.Int32
	last  atomic.Value
	alert atomic.Value
	ev    *events
	delay time.Duration
}

func (n *countingNotifier) Notify(ctx context.Context, destinations []string) error {
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	n.calls.Add(1)
	n.last.Store(destinations)
	if a, ok := AlertFromContext(ctx); ok {
		n.alert.Store(a)
	}
	if n.ev != nil {
		n.ev.add("notify")
	}
	return nil
}

type countingSink struct{ shown atomic.Int32 }

func (s *countingSink) Show(Frame) { s.shown.Add(1) }

func newTestScheduler(src *fakeSource, cls Classifier, n Notifier, sink DisplaySink, threshold float64) *Scheduler {
	return NewScheduler(src, cls, n, sink, nil, discardLogger, Options{
		Threshold:    threshold,
		Destinations: []string{"ops@example.com", "+15550001111"},
		AlertLabel:   alertLabel,
	})
}

// tickAndSettle ticks once and waits until the dispatched task (if any) completes.
func tickAndSettle(t *testing.T, s *Scheduler) error {
	t.Helper()
	err := s.Tick()
	require.Eventually(t, func() bool { return !s.Outstanding() }, time.Second, time.Millisecond)
	return err
}

func TestScheduler_DetectionOnFifthFrame(t *testing.T) {
	src := &fakeSource{fps: 30}
	cls := &scriptedClassifier{script: confidences(0.2, 0.2, 0.2, 0.2, 0.6)}
	n := &countingNotifier{}
	s := newTestScheduler(src, cls, n, nil, 0.5)
	defer s.Close()

	for i := 1; i <= 4; i++ {
		require.NoError(t, tickAndSettle(t, s))
		assert.False(t, s.Detected(), "frame %d", i)
		assert.Empty(t, s.Label(), "frame %d", i)
	}
	require.NoError(t, tickAndSettle(t, s))
	assert.True(t, s.Detected())
	assert.Equal(t, alertLabel, s.Label())
	assert.EqualValues(t, 1, n.calls.Load())
	assert.Equal(t, []string{"ops@example.com", "+15550001111"}, n.last.Load())
	alert, ok := n.alert.Load().(Alert)
	require.True(t, ok, "notifier context carries the alert")
	assert.Equal(t, s.SessionID(), alert.SessionID)
	assert.EqualValues(t, 5, alert.Sequence)
	assert.InDelta(t, 0.6, alert.Confidence, 1e-9)

	// Monotonic: later ticks keep the state and never re-notify or re-classify.
	for i := 0; i < 10; i++ {
		require.NoError(t, tickAndSettle(t, s))
		assert.True(t, s.Detected())
		assert.Equal(t, alertLabel, s.Label())
	}
	assert.EqualValues(t, 1, n.calls.Load())
	assert.EqualValues(t, 5, cls.calls.Load())
}

func TestScheduler_ThresholdIsInclusive(t *testing.T) {
	src := &fakeSource{}
	n := &countingNotifier{}
	s := newTestScheduler(src, &scriptedClassifier{script: confidences(0.5)}, n, nil, 0.5)
	defer s.Close()
	require.NoError(t, tickAndSettle(t, s))
	assert.True(t, s.Detected())
	assert.EqualValues(t, 1, n.calls.Load())
}

func TestScheduler_NeverNotifiesBelowThreshold(t *testing.T) {
	src := &fakeSource{}
	n := &countingNotifier{}
	cls := &scriptedClassifier{script: confidences(0.49)}
	s := newTestScheduler(src, cls, n, nil, 0.5)
	for i := 0; i < 20; i++ {
		require.NoError(t, tickAndSettle(t, s))
	}
	require.NoError(t, s.Close())
	assert.False(t, s.Detected())
	assert.Zero(t, n.calls.Load())
	assert.EqualValues(t, 20, cls.calls.Load())
}

func TestScheduler_ClassifierFailureResumes(t *testing.T) {
	src := &fakeSource{}
	cls := &scriptedClassifier{script: func(n int) (Result, error) {
		switch n {
		case 3:
			return Result{Status: StatusFailure, Reason: "quota exceeded"}, nil
		case 4:
			return Result{}, errors.New("connection reset")
		}
		return Result{Status: StatusSuccess, Confidence: 0.1}, nil
	}}
	n := &countingNotifier{}
	s := newTestScheduler(src, cls, n, nil, 0.5)
	defer s.Close()

	for i := 1; i <= 6; i++ {
		require.NoError(t, tickAndSettle(t, s))
		assert.False(t, s.Detected())
		assert.False(t, s.Outstanding(), "flag released after frame %d", i)
	}
	st := s.Stats()
	assert.EqualValues(t, 6, st.Dispatched)
	assert.EqualValues(t, 2, st.Failures)
	assert.Zero(t, n.calls.Load())
}

func TestScheduler_FrameUnavailableSkipsTick(t *testing.T) {
	src := &fakeSource{gaps: map[uint64]bool{2: true, 3: true}}
	cls := &scriptedClassifier{script: confidences(0.1)}
	sink := &countingSink{}
	s := newTestScheduler(src, cls, nil, sink, 0.5)
	defer s.Close()

	require.NoError(t, tickAndSettle(t, s))
	assert.ErrorIs(t, tickAndSettle(t, s), ErrFrameUnavailable)
	assert.ErrorIs(t, tickAndSettle(t, s), ErrFrameUnavailable)
	require.NoError(t, tickAndSettle(t, s))

	assert.EqualValues(t, 2, sink.shown.Load())
	assert.EqualValues(t, 2, cls.calls.Load())
	assert.EqualValues(t, 2, s.Stats().FramesUnavailable)
}

func TestScheduler_DisplaysEveryFrameWhileBusy(t *testing.T) {
	src := &fakeSource{}
	gate := make(chan struct{})
	cls := &scriptedClassifier{script: func(int) (Result, error) {
		<-gate
		return Result{Status: StatusSuccess, Confidence: 0}, nil
	}}
	sink := &countingSink{}
	s := newTestScheduler(src, cls, nil, sink, 0.5)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Tick())
	}
	assert.EqualValues(t, 10, sink.shown.Load())
	st := s.Stats()
	assert.EqualValues(t, 1, st.Dispatched)
	assert.EqualValues(t, 9, st.Busy)
	assert.True(t, st.Outstanding)

	close(gate)
	require.NoError(t, s.Close())
	assert.EqualValues(t, 1, cls.calls.Load())
}

func TestScheduler_AtMostOneTaskInFlight(t *testing.T) {
	src := &fakeSource{}
	cls := &scriptedClassifier{script: confidences(0), delay: 500 * time.Microsecond}
	s := newTestScheduler(src, cls, nil, nil, 0.5)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = s.Tick()
				if i%10 == 0 {
					time.Sleep(100 * time.Microsecond)
				}
			}
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close())

	assert.EqualValues(t, 1, cls.maxSeen.Load())
	st := s.Stats()
	assert.EqualValues(t, 800, st.Ticks)
	assert.Equal(t, st.Dispatched+st.Busy, st.Ticks)
	assert.EqualValues(t, st.Dispatched, cls.calls.Load())
}

func TestScheduler_TeardownWaitsForOutstandingTask(t *testing.T) {
	ev := &events{}
	src := &fakeSource{ev: ev}
	gate := make(chan struct{})
	cls := &scriptedClassifier{script: func(n int) (Result, error) {
		if n == 7 {
			<-gate
			return Result{Status: StatusSuccess, Confidence: 0.9}, nil
		}
		return Result{Status: StatusSuccess, Confidence: 0.1}, nil
	}}
	n := &countingNotifier{ev: ev, delay: 20 * time.Millisecond}
	s := newTestScheduler(src, cls, n, nil, 0.5)

	for i := 1; i <= 6; i++ {
		require.NoError(t, tickAndSettle(t, s))
	}
	require.NoError(t, s.Tick()) // frame 7, blocks in the classifier
	require.Eventually(t, func() bool { return cls.calls.Load() == 7 }, time.Second, time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while frame 7 analysis was outstanding")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, src.isClosed(), "source released before task completed")

	close(gate)
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after task completed")
	}
	assert.True(t, s.Detected())
	assert.EqualValues(t, 1, n.calls.Load())
	assert.Equal(t, []string{"notify", "source.close"}, ev.list())
	assert.ErrorIs(t, s.Tick(), ErrSessionClosed)
}

func TestScheduler_PanicReleasesSlot(t *testing.T) {
	src := &fakeSource{}
	cls := &scriptedClassifier{script: func(n int) (Result, error) {
		if n == 1 {
			panic("boom")
		}
		return Result{Status: StatusSuccess, Confidence: 0.8}, nil
	}}
	n := &countingNotifier{}
	s := newTestScheduler(src, cls, n, nil, 0.5)
	defer s.Close()

	require.NoError(t, tickAndSettle(t, s))
	assert.False(t, s.Detected())
	require.NoError(t, tickAndSettle(t, s))
	assert.True(t, s.Detected())
	assert.EqualValues(t, 1, n.calls.Load())
}

func TestScheduler_CloseIdempotent(t *testing.T) {
	src := &fakeSource{}
	s := newTestScheduler(src, &scriptedClassifier{script: confidences(0)}, nil, nil, 0.5)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, src.isClosed())
	assert.ErrorIs(t, s.Tick(), ErrSessionClosed)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{fps: 200}
	cls := &scriptedClassifier{script: confidences(0.1, 0.1, 0.9)}
	s := newTestScheduler(src, cls, nil, nil, 0.5)

	var labels atomic.Value
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, func(l string) { labels.Store(l) }) }()

	require.Eventually(t, func() bool {
		l, _ := labels.Load().(string)
		return l == alertLabel
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.True(t, src.isClosed())
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, 40*time.Millisecond, Period(25))
	assert.Equal(t, Period(30), Period(0))
	assert.Equal(t, Period(30), Period(-5))
}
