package model

import (
	"testing"
	"time"
)

func TestSessionModel_BasicLifecycle(t *testing.T) {
	m := NewSessionModel()
	base := time.Unix(0, 0)

	// Start at t0 and watch for 5s.
	m.OnTick(true, false, base)
	m.OnTick(true, false, base.Add(5*time.Second))
	session, total := m.Values()
	if session != 5*time.Second || total != 5*time.Second {
		t.Fatalf("expected 5s session & total; got session=%v total=%v", session, total)
	}

	// Stop at 5s.
	m.OnTick(false, false, base.Add(5*time.Second))
	session, total = m.Values()
	if session != 5*time.Second || total != 5*time.Second {
		t.Fatalf("after stop expected persisted 5s; got session=%v total=%v", session, total)
	}

	// Idle 2s, nothing moves.
	m.OnTick(false, false, base.Add(7*time.Second))
	session2, total2 := m.Values()
	if session2 != session || total2 != total {
		t.Fatalf("idle tick changed durations: session %v->%v total %v->%v", session, session2, total, total2)
	}

	// Second session at 10s lasting 3s.
	m.OnTick(true, false, base.Add(10*time.Second))
	m.OnTick(true, false, base.Add(13*time.Second))
	s3, t3 := m.Values()
	if s3 != 3*time.Second || t3 != 8*time.Second {
		t.Fatalf("second session: expected 3s/8s, got %v/%v", s3, t3)
	}

	m.OnTick(false, false, base.Add(13*time.Second))
	sFinal, tFinal := m.Values()
	if sFinal != 3*time.Second || tFinal != 8*time.Second {
		t.Fatalf("final expected 3s/8s got %v/%v", sFinal, tFinal)
	}
	if n, d := m.Counts(); n != 2 || d != 0 {
		t.Fatalf("expected 2 sessions 0 detections, got %d/%d", n, d)
	}
}

func TestSessionModel_CountsDetectionOncePerSession(t *testing.T) {
	m := NewSessionModel()
	base := time.Unix(0, 0)
	m.OnTick(true, false, base)
	m.OnTick(true, true, base.Add(time.Second))
	m.OnTick(true, true, base.Add(2*time.Second))
	m.OnTick(false, true, base.Add(3*time.Second))
	m.OnTick(true, false, base.Add(4*time.Second))
	m.OnTick(true, true, base.Add(5*time.Second))
	if n, d := m.Counts(); n != 2 || d != 2 {
		t.Fatalf("expected 2 sessions 2 detections, got %d/%d", n, d)
	}
}

func TestStatusModel_DiffsLabel(t *testing.T) {
	m := NewStatusModel()
	if !m.Set("") {
		t.Fatalf("first set must report a change")
	}
	if m.Set("") {
		t.Fatalf("same label must not report a change")
	}
	if !m.Set("alert") || m.Label() != "alert" {
		t.Fatalf("new label must report a change")
	}
	m.Reset()
	if !m.Set("alert") {
		t.Fatalf("set after reset must report a change")
	}
}

func TestDetectorModel_ZeroValue(t *testing.T) {
	var m DetectorModel
	if m.Enabled() {
		t.Fatalf("zero value should be disabled")
	}
	m.SetEnabled(true)
	if !m.Enabled() {
		t.Fatalf("expected enabled")
	}
	var nilModel *DetectorModel
	if nilModel.Enabled() {
		t.Fatalf("nil model should report disabled")
	}
}
