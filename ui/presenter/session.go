package presenter

import (
	"time"

	"github.com/soocke/weapon-watch/domain/detection"
)

// DetectionSession is the running scheduler as seen by presenters.
type DetectionSession interface {
	Tick() error
	Label() string
	Detected() bool
	Stats() detection.Stats
	Interval() time.Duration
	Close() error
}

// SessionFactory opens a new session (source, classifier and scheduler).
type SessionFactory func() (DetectionSession, error)

// ActiveSession returns the running session or nil.
type ActiveSession interface {
	Active() DetectionSession
}
