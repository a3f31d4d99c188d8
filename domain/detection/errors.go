package detection

import "errors"

var (
	// ErrFrameUnavailable means the source had no frame this tick.
	ErrFrameUnavailable = errors.New("frame unavailable")
	// ErrClassifierFailure wraps a failed status or a failed classifier call.
	ErrClassifierFailure = errors.New("classifier failure")
	// ErrSessionClosed is returned by Tick after teardown.
	ErrSessionClosed = errors.New("session closed")
)
