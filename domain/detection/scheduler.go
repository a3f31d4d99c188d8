package detection

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/soocke/weapon-watch/metrics"
)

const (
	defaultFPS             = 30.0
	defaultClassifyTimeout = 10 * time.Second
	defaultSideEffectLimit = 30 * time.Second
)

// Options configures a Scheduler.
type Options struct {
	Threshold       float64       // confidence at or above which a weapon is confirmed
	Destinations    []string      // passed to the Notifier on detection
	AlertLabel      string        // text returned by Label once detected
	ClassifyTimeout time.Duration // per classifier call
	FPS             float64       // overrides the source's reported rate when > 0
}

// Scheduler reads frames at the source's frame interval, shows each one and
// keeps at most one analysis task in flight per session.
type Scheduler struct {
	source     VideoSource
	classifier Classifier
	notifier   Notifier
	display    DisplaySink
	archiver   Archiver
	logger     *slog.Logger
	opts       Options
	session    *Session
	tracer     trace.Tracer

	ticks       atomic.Uint64
	unavailable atomic.Uint64
	dispatched  atomic.Uint64
	busy        atomic.Uint64
	failures    atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// NewScheduler starts a new session over source. A nil notifier or display
// is replaced by a no-op; archiver may be nil.
func NewScheduler(source VideoSource, classifier Classifier, notifier Notifier, display DisplaySink, archiver Archiver, logger *slog.Logger, opts Options) *Scheduler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if display == nil {
		display = noopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = defaultClassifyTimeout
	}
	s := &Scheduler{
		source:     source,
		classifier: classifier,
		notifier:   notifier,
		display:    display,
		archiver:   archiver,
		opts:       opts,
		session:    NewSession(),
		tracer:     otel.Tracer("detection"),
	}
	s.logger = logger.With("session_id", s.session.ID())
	s.logger.Info("session started", "threshold", opts.Threshold, "destinations", len(opts.Destinations))
	return s
}

// Period is the tick interval derived from a frame rate. Non-positive rates
// fall back to 30 fps.
func Period(fps float64) time.Duration {
	if fps <= 0 {
		fps = defaultFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

// Interval returns the tick period for this scheduler.
func (s *Scheduler) Interval() time.Duration {
	if s.opts.FPS > 0 {
		return Period(s.opts.FPS)
	}
	return Period(s.source.FPS())
}

// Tick reads one frame, shows it, and dispatches an analysis task if none
// is outstanding. It never blocks on the classifier.
func (s *Scheduler) Tick() error {
	if s.session.isClosed() {
		return ErrSessionClosed
	}
	s.ticks.Add(1)
	frame, ok := s.source.Read()
	if !ok || frame.Image == nil {
		s.unavailable.Add(1)
		metrics.FramesUnavailableTotal.Inc()
		return ErrFrameUnavailable
	}
	metrics.FramesReadTotal.Inc()

	s.display.Show(frame)

	prev, handle, outcome := s.session.claim()
	switch outcome {
	case claimBusy:
		s.busy.Add(1)
		metrics.DispatchTotal.WithLabelValues(metrics.OutcomeBusy).Inc()
		return nil
	case claimDetected:
		metrics.DispatchTotal.WithLabelValues(metrics.OutcomeDetected).Inc()
		return nil
	case claimClosed:
		metrics.DispatchTotal.WithLabelValues(metrics.OutcomeClosed).Inc()
		return ErrSessionClosed
	}

	// The previous task has already released the flag; wait until its
	// goroutine has fully returned before reusing the slot.
	if prev != nil {
		<-prev
	}
	s.dispatched.Add(1)
	metrics.DispatchTotal.WithLabelValues(metrics.OutcomeDispatched).Inc()
	metrics.AnalysisInFlight.Inc()
	go func() {
		defer close(handle)
		defer metrics.AnalysisInFlight.Dec()
		defer s.session.release()
		defer func() {
			if r := recover(); r != nil {
				s.failures.Add(1)
				metrics.AnalysisTotal.WithLabelValues(metrics.ResultFailure).Inc()
				s.logger.Error("analysis panic", "error", r, "stack", string(debug.Stack()))
			}
		}()
		s.runAnalysis(frame)
	}()
	return nil
}

// runAnalysis is the body of one analysis task.
func (s *Scheduler) runAnalysis(frame Frame) {
	log := s.logger.With("sequence", frame.Sequence)
	if s.session.Detected() {
		metrics.AnalysisTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		return
	}
	if s.classifier == nil {
		s.failures.Add(1)
		metrics.AnalysisTotal.WithLabelValues(metrics.ResultFailure).Inc()
		log.Warn("analysis failed", "error", fmt.Errorf("%w: no classifier configured", ErrClassifierFailure))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ClassifyTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "detection.analyze", trace.WithAttributes(
		attribute.String("session.id", s.session.ID()),
		attribute.String("frame.sequence", strconv.FormatUint(frame.Sequence, 10)),
	))
	defer span.End()

	start := time.Now()
	res, err := s.classifier.Classify(ctx, frame.Image)
	elapsed := time.Since(start)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())

	if err != nil {
		err = fmt.Errorf("%w: %v", ErrClassifierFailure, err)
	} else if res.Status != StatusSuccess {
		err = fmt.Errorf("%w: %s", ErrClassifierFailure, res.Reason)
	}
	if err != nil {
		s.failures.Add(1)
		metrics.AnalysisTotal.WithLabelValues(metrics.ResultFailure).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "classifier failure")
		log.Warn("analysis failed", "error", err, "elapsed", elapsed)
		return
	}

	span.SetAttributes(attribute.Float64("weapon.confidence", res.Confidence))
	if res.Confidence < s.opts.Threshold {
		metrics.AnalysisTotal.WithLabelValues(metrics.ResultBelow).Inc()
		log.Debug("analysis below threshold", "confidence", res.Confidence, "elapsed", elapsed)
		return
	}
	if !s.session.markDetected() {
		return
	}
	metrics.AnalysisTotal.WithLabelValues(metrics.ResultDetected).Inc()
	log.Warn("weapon detected", "confidence", res.Confidence, "threshold", s.opts.Threshold)

	// Side effects get their own deadline; the classifier budget may be spent.
	sctx, scancel := context.WithTimeout(trace.ContextWithSpan(context.Background(), span), defaultSideEffectLimit)
	defer scancel()
	sctx = WithAlert(sctx, Alert{
		SessionID:  s.session.ID(),
		Sequence:   frame.Sequence,
		Confidence: res.Confidence,
		At:         time.Now(),
	})
	if s.archiver != nil {
		if err := s.archiver.Archive(sctx, s.session.ID(), frame); err != nil {
			log.Error("archive evidence", "error", err)
		}
	}
	if err := s.notifier.Notify(sctx, s.opts.Destinations); err != nil {
		log.Error("notify", "error", err)
		return
	}
	log.Info("alert sent", "destinations", len(s.opts.Destinations))
}

// Label returns the alert text while detection state is true, else "".
func (s *Scheduler) Label() string {
	if s.session.Detected() {
		return s.opts.AlertLabel
	}
	return ""
}

// Detected reports the session's detection state.
func (s *Scheduler) Detected() bool { return s.session.Detected() }

// Outstanding reports whether an analysis task is in flight.
func (s *Scheduler) Outstanding() bool { return s.session.Outstanding() }

// SessionID identifies the current session.
func (s *Scheduler) SessionID() string { return s.session.ID() }

// Stats returns a snapshot of scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		SessionID:         s.session.ID(),
		StartedAt:         s.session.StartedAt(),
		Ticks:             s.ticks.Load(),
		FramesUnavailable: s.unavailable.Load(),
		Dispatched:        s.dispatched.Load(),
		Busy:              s.busy.Load(),
		Failures:          s.failures.Load(),
		Detected:          s.session.Detected(),
		Outstanding:       s.session.Outstanding(),
	}
}

// Run ticks at Interval until ctx is done, calling onLabel after every tick,
// then tears the session down.
func (s *Scheduler) Run(ctx context.Context, onLabel func(string)) error {
	t := time.NewTicker(s.Interval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.Close()
		case <-t.C:
			_ = s.Tick()
			if onLabel != nil {
				onLabel(s.Label())
			}
		}
	}
}

// Close ends the session: no further dispatches, wait for the outstanding
// task (including any alert it sends), then release the video source.
// Safe to call more than once.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		if last := s.session.close(); last != nil {
			if s.session.Outstanding() {
				s.logger.Info("waiting for outstanding analysis")
			}
			<-last
		}
		if s.source != nil {
			if err := s.source.Close(); err != nil {
				s.closeErr = fmt.Errorf("close source: %w", err)
			}
		}
		metrics.SessionsTotal.WithLabelValues(strconv.FormatBool(s.session.Detected())).Inc()
		s.logger.Info("session ended", "detected", s.session.Detected(), "ticks", s.ticks.Load(), "dispatched", s.dispatched.Load())
	})
	return s.closeErr
}
