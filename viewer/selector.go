// Package viewer drives tile loading for an interactive deep zoom view:
// it selects the pyramid level for the current zoom and resolves the visible
// tiles through a tile cache.
package viewer

import (
	"sync"
	"time"
)

// DefaultDelay is the time a zoom-in target must stay stable before it is applied.
const DefaultDelay = 200 * time.Millisecond

// LevelSelector tracks the level tiles are loaded for.
// Zooming out is applied immediately, zooming in is debounced.
type LevelSelector struct {
	delay time.Duration

	mu        sync.Mutex
	current   int
	desired   int
	timer     *time.Timer
	gen       uint64
	observers []func(int)
}

// NewLevelSelector creates a selector starting at level. A non-positive delay means DefaultDelay.
func NewLevelSelector(level int, delay time.Duration) *LevelSelector {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &LevelSelector{delay: delay, current: level, desired: level}
}

// OnChange registers an observer called with the new level whenever the current level changes.
// Observers run on the goroutine that applied the change.
func (s *LevelSelector) OnChange(observer func(level int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

func (s *LevelSelector) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Desired returns the pending zoom-in target, or the current level if none is pending.
func (s *LevelSelector) Desired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desired
}

// Update feeds the level computed for the latest zoom.
func (s *LevelSelector) Update(target int) {
	s.mu.Lock()
	switch {
	case target > s.current:
		s.cancelLocked()
		s.desired = target
		gen := s.gen
		s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
		s.mu.Unlock()
	case target < s.current:
		s.applyLocked(target)
	default:
		s.cancelLocked()
		s.mu.Unlock()
	}
}

// Set applies level immediately, cancelling any pending zoom-in.
func (s *LevelSelector) Set(level int) {
	s.mu.Lock()
	if level == s.current {
		s.cancelLocked()
		s.mu.Unlock()
		return
	}
	s.applyLocked(level)
}

// Stop cancels a pending zoom-in.
func (s *LevelSelector) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// cancelLocked stops the timer. A timer that already fired is ignored by fire
// because the generation no longer matches.
func (s *LevelSelector) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.desired = s.current
}

func (s *LevelSelector) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.applyLocked(s.desired)
}

// applyLocked sets the current level, unlocks and notifies observers.
func (s *LevelSelector) applyLocked(level int) {
	s.cancelLocked()
	s.current = level
	s.desired = level
	observers := s.observers
	s.mu.Unlock()

	for _, observer := range observers {
		observer(level)
	}
}
