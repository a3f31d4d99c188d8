package detection

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// dispatchOutcome is the result of a claim attempt on the session's task slot.
type dispatchOutcome int

const (
	claimGranted dispatchOutcome = iota
	claimBusy
	claimDetected
	claimClosed
)

// Session is the lifetime of one detection run. Detection state, the
// outstanding flag and the single-slot task handle share one mutex; callers
// only see atomic read and compare-and-set style methods.
type Session struct {
	id        string
	startedAt time.Time

	mu          sync.Mutex
	detected    bool // one-way within the session
	outstanding bool
	closed      bool
	task        chan struct{} // closed when the last dispatched task has returned
}

// NewSession returns a fresh session with a random ID.
func NewSession() *Session {
	return &Session{id: uuid.NewString(), startedAt: time.Now()}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Detected reports whether a weapon has been confirmed during the session.
func (s *Session) Detected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detected
}

// Outstanding reports whether an analysis task is in flight.
func (s *Session) Outstanding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

// claim tries to take the task slot. On success it marks the slot
// outstanding, installs a new task handle and returns the previous handle,
// which the caller must join before starting the new task.
func (s *Session) claim() (prev, next chan struct{}, outcome dispatchOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, nil, claimClosed
	case s.outstanding:
		return nil, nil, claimBusy
	case s.detected:
		return nil, nil, claimDetected
	}
	s.outstanding = true
	prev = s.task
	next = make(chan struct{})
	s.task = next
	return prev, next, claimGranted
}

// release clears the outstanding flag. It is the task's last write to
// session state.
func (s *Session) release() {
	s.mu.Lock()
	s.outstanding = false
	s.mu.Unlock()
}

// markDetected sets detection state and reports whether this call made the
// false -> true transition.
func (s *Session) markDetected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detected {
		return false
	}
	s.detected = true
	return true
}

// close stops further claims and returns the handle of the last task, if
// any, so the caller can wait for it.
func (s *Session) close() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.task
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
