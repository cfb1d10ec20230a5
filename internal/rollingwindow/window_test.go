package rollingwindow

import (
	"testing"
	"time"
)

func TestCountPrunesOldEvents(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := New(10 * time.Minute)
	w.Add(base)
	w.Add(base.Add(2 * time.Minute))
	w.Add(base.Add(9 * time.Minute))

	if got := w.Count(base.Add(9 * time.Minute)); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
	if got := w.Count(base.Add(15 * time.Minute)); got != 1 {
		t.Errorf("Count after prune = %d, want 1", got)
	}
}

func TestCountWindowNarrowerThanSpan(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := New(time.Hour)
	w.Add(base)
	w.Add(base.Add(30 * time.Second))
	w.Add(base.Add(50 * time.Minute))

	if got := w.CountWindow(base.Add(50*time.Minute), time.Minute); got != 1 {
		t.Errorf("CountWindow(1m) = %d, want 1", got)
	}
	if got := w.CountWindow(base.Add(50*time.Minute), time.Hour); got != 3 {
		t.Errorf("CountWindow(1h) = %d, want 3", got)
	}
}

func TestSecondsSinceLastEmpty(t *testing.T) {
	w := New(time.Hour)
	if got := w.SecondsSinceLast(time.Now()); got != -1 {
		t.Errorf("SecondsSinceLast on empty window = %v, want -1", got)
	}
}

func TestSecondsSinceLast(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := New(time.Hour)
	w.Add(base)
	if got := w.SecondsSinceLast(base.Add(30 * time.Second)); got != 30 {
		t.Errorf("SecondsSinceLast = %v, want 30", got)
	}
}

func TestLenDoesNotPrune(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := New(time.Minute)
	w.Add(base)
	if got := w.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}
