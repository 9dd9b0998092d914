package progress

import (
	"errors"
	"sync"

	"practice-service/internal/models"
)

// ErrNotInitialized is returned when a delta is applied before the store has
// been seeded with a backend snapshot.
var ErrNotInitialized = errors.New("progress store not initialized")

// Delta is a signed change to the hearts/points counters.
type Delta struct {
	Hearts int `json:"hearts"`
	Points int `json:"points"`
}

func (d Delta) IsZero() bool {
	return d.Hearts == 0 && d.Points == 0
}

// Inverse returns the delta that undoes d.
func (d Delta) Inverse() Delta {
	return Delta{Hearts: -d.Hearts, Points: -d.Points}
}

// Store is the single source of truth for the learner's hearts and points
// within a session. It performs no I/O; the sync gateway is its only writer.
// Hearts stay within [0, MaxHearts] and points never go below zero, no matter
// what deltas are applied.
type Store struct {
	mu          sync.Mutex
	initialized bool
	snap        models.UserProgress
}

func NewStore() *Store {
	return &Store{}
}

// Initialize replaces the current state wholesale with a backend snapshot.
// The stored numbers are clamped so display code can trust them even when
// unlimited hearts suspend the numeric checks.
func (s *Store) Initialize(snap models.UserProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Hearts = clamp(snap.Hearts, 0, models.MaxHearts)
	if snap.Points < 0 {
		snap.Points = 0
	}
	s.snap = snap
	s.initialized = true
}

// Apply adds the signed delta to the current counters, clamping hearts to
// [0, MaxHearts] and points to a floor of zero. It returns the resulting
// snapshot together with the effective delta that was actually applied, so a
// later Rollback of that effective delta restores the exact prior snapshot
// even when the requested delta clipped at a bound.
func (s *Store) Apply(d Delta) (models.UserProgress, Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return models.UserProgress{}, Delta{}, ErrNotInitialized
	}

	prev := s.snap
	s.snap.Hearts = clamp(prev.Hearts+d.Hearts, 0, models.MaxHearts)
	s.snap.Points = prev.Points + d.Points
	if s.snap.Points < 0 {
		s.snap.Points = 0
	}

	effective := Delta{
		Hearts: s.snap.Hearts - prev.Hearts,
		Points: s.snap.Points - prev.Points,
	}
	return s.snap, effective, nil
}

// Rollback undoes a previously applied effective delta.
func (s *Store) Rollback(effective Delta) models.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Hearts = clamp(s.snap.Hearts-effective.Hearts, 0, models.MaxHearts)
	s.snap.Points -= effective.Points
	if s.snap.Points < 0 {
		s.snap.Points = 0
	}
	return s.snap
}

// CanAffordMistake reports whether an incorrect answer may cost a heart
// without exhausting the learner.
func (s *Store) CanAffordMistake() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Hearts > 0 || s.snap.HasUnlimitedHearts
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() models.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
