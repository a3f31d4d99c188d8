package model

// StatusModel holds the last alert text pushed to the view. Only the UI
// thread touches it.
type StatusModel struct {
	label string
	shown bool
}

func NewStatusModel() *StatusModel { return &StatusModel{} }

// Set records label and reports whether the view needs refreshing. The
// first call always reports a change.
func (m *StatusModel) Set(label string) bool {
	if m == nil {
		return false
	}
	if m.shown && m.label == label {
		return false
	}
	m.label = label
	m.shown = true
	return true
}

// Label returns the last recorded text.
func (m *StatusModel) Label() string {
	if m == nil {
		return ""
	}
	return m.label
}

// Reset forgets the last text so the next Set always reports a change.
func (m *StatusModel) Reset() {
	if m == nil {
		return
	}
	m.label, m.shown = "", false
}
