package detection

import (
	"context"
	"image"
	"time"
)

// Frame is one decoded sample from a video source. It is owned by the
// scheduler for a single tick and is not retained afterwards.
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
	Sequence   uint64
}

// Status is the outcome reported by a classifier.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the classifier response for one frame. Confidence is only
// meaningful when Status is StatusSuccess.
type Result struct {
	Status     Status
	Confidence float64 // in [0,1]
	Reason     string
}

// VideoSource yields frames and a nominal frame rate. Read returns false
// when no frame is available this tick; a later call may succeed again.
type VideoSource interface {
	Read() (Frame, bool)
	FPS() float64
	Close() error
}

// Classifier scores an image for the presence of a weapon. It may block
// for the duration of a network round-trip.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (Result, error)
}

// Notifier sends the alert to every destination once.
type Notifier interface {
	Notify(ctx context.Context, destinations []string) error
}

// DisplaySink shows a frame to the operator.
type DisplaySink interface {
	Show(f Frame)
}

// Archiver stores the frame that confirmed a detection. Optional.
type Archiver interface {
	Archive(ctx context.Context, sessionID string, f Frame) error
}

// Stats summarises scheduler activity for instrumentation.
type Stats struct {
	SessionID         string
	StartedAt         time.Time
	Ticks             uint64
	FramesUnavailable uint64
	Dispatched        uint64
	Busy              uint64
	Failures          uint64
	Detected          bool
	Outstanding       bool
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, []string) error { return nil }

type noopSink struct{}

func (noopSink) Show(Frame) {}
