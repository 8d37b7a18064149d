package viewer_test

import (
	"testing"
	"time"

	"github.com/eak1mov/go-deepzoom/viewer"
)

const testDelay = 30 * time.Millisecond

func newSelector(level int) (*viewer.LevelSelector, chan int) {
	s := viewer.NewLevelSelector(level, testDelay)
	changes := make(chan int, 10)
	s.OnChange(func(level int) { changes <- level })
	return s, changes
}

func expectChange(t *testing.T, changes <-chan int, want int) {
	t.Helper()
	select {
	case got := <-changes:
		if got != want {
			t.Fatalf("level changed to %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for level %v", want)
	}
}

func expectNoChange(t *testing.T, changes <-chan int) {
	t.Helper()
	select {
	case got := <-changes:
		t.Fatalf("unexpected level change to %v", got)
	case <-time.After(4 * testDelay):
	}
}

func TestSelectorZoomOutImmediate(t *testing.T) {
	t.Parallel()
	s, changes := newSelector(5)
	defer s.Stop()

	s.Update(3)
	if got := s.Current(); got != 3 {
		t.Errorf("Current() = %v, want 3", got)
	}
	expectChange(t, changes, 3)
}

func TestSelectorZoomInDebounced(t *testing.T) {
	t.Parallel()
	s, changes := newSelector(5)
	defer s.Stop()

	s.Update(7)
	if got := s.Current(); got != 5 {
		t.Errorf("Current() = %v right after zoom in, want 5", got)
	}
	if got := s.Desired(); got != 7 {
		t.Errorf("Desired() = %v, want 7", got)
	}
	expectChange(t, changes, 7)
	if got := s.Current(); got != 7 {
		t.Errorf("Current() = %v, want 7", got)
	}
}

func TestSelectorZoomInRestartsTimer(t *testing.T) {
	t.Parallel()
	s, changes := newSelector(5)
	defer s.Stop()

	s.Update(6)
	s.Update(8)
	expectChange(t, changes, 8)
	expectNoChange(t, changes)
}

func TestSelectorCancel(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name   string
		cancel func(s *viewer.LevelSelector)
	}{
		{"back to current", func(s *viewer.LevelSelector) { s.Update(5) }},
		{"set current", func(s *viewer.LevelSelector) { s.Set(5) }},
		{"stop", func(s *viewer.LevelSelector) { s.Stop() }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, changes := newSelector(5)
			defer s.Stop()

			s.Update(7)
			tc.cancel(s)
			expectNoChange(t, changes)
			if got := s.Current(); got != 5 {
				t.Errorf("Current() = %v, want 5", got)
			}
		})
	}
}

func TestSelectorZoomOutCancelsZoomIn(t *testing.T) {
	t.Parallel()
	s, changes := newSelector(5)
	defer s.Stop()

	s.Update(7)
	s.Update(2)
	expectChange(t, changes, 2)
	expectNoChange(t, changes)
	if got := s.Current(); got != 2 {
		t.Errorf("Current() = %v, want 2", got)
	}
}

func TestSelectorSet(t *testing.T) {
	t.Parallel()
	s, changes := newSelector(0)
	defer s.Stop()

	s.Set(9)
	expectChange(t, changes, 9)
	s.Set(9)
	expectNoChange(t, changes)
}
