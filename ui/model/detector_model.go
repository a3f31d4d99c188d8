package model

import (
	"sync/atomic"
)

// DetectorModel tracks whether detection is enabled. The zero value is
// disabled and usable. UI callbacks and the ops server may read it
// concurrently.
type DetectorModel struct{ enabled atomic.Bool }

// Enabled reports whether a detection session is running.
func (m *DetectorModel) Enabled() bool {
	if m == nil {
		return false
	}
	return m.enabled.Load()
}

// SetEnabled stores the enabled flag.
func (m *DetectorModel) SetEnabled(b bool) {
	if m == nil {
		return
	}
	m.enabled.Store(b)
}
