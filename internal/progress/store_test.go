package progress

import (
	"testing"

	"practice-service/internal/models"
)

func TestApplyClampsHeartsAndPoints(t *testing.T) {
	testCases := []struct {
		name           string
		start          models.UserProgress
		delta          Delta
		expectedHearts int
		expectedPoints int
	}{
		{"heart lost", models.UserProgress{Hearts: 3, Points: 20}, Delta{Hearts: -1}, 2, 20},
		{"points awarded", models.UserProgress{Hearts: 5, Points: 0}, Delta{Points: 10}, 5, 10},
		{"hearts floor at zero", models.UserProgress{Hearts: 0, Points: 20}, Delta{Hearts: -1}, 0, 20},
		{"hearts ceiling at max", models.UserProgress{Hearts: 4, Points: 0}, Delta{Hearts: 3}, models.MaxHearts, 0},
		{"points floor at zero", models.UserProgress{Hearts: 2, Points: 5}, Delta{Points: -50}, 2, 0},
		{"combined delta", models.UserProgress{Hearts: 1, Points: 10}, Delta{Hearts: -1, Points: 10}, 0, 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore()
			store.Initialize(tc.start)

			snap, _, err := store.Apply(tc.delta)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if snap.Hearts != tc.expectedHearts {
				t.Errorf("Expected hearts %d, got %d", tc.expectedHearts, snap.Hearts)
			}
			if snap.Points != tc.expectedPoints {
				t.Errorf("Expected points %d, got %d", tc.expectedPoints, snap.Points)
			}
		})
	}
}

func TestApplyInvariantsHoldAcrossSequences(t *testing.T) {
	store := NewStore()
	store.Initialize(models.UserProgress{Hearts: 3, Points: 10})

	deltas := []Delta{
		{Hearts: -1}, {Hearts: -1}, {Hearts: -1}, {Hearts: -1},
		{Points: 10}, {Points: -100}, {Hearts: 10}, {Points: 10},
	}
	for i, d := range deltas {
		snap, _, err := store.Apply(d)
		if err != nil {
			t.Fatalf("Apply %d: unexpected error: %v", i, err)
		}
		if snap.Hearts < 0 || snap.Hearts > models.MaxHearts {
			t.Fatalf("Apply %d: hearts %d out of range", i, snap.Hearts)
		}
		if snap.Points < 0 {
			t.Fatalf("Apply %d: points %d negative", i, snap.Points)
		}
	}
}

func TestRollbackRestoresExactSnapshot(t *testing.T) {
	testCases := []struct {
		name  string
		start models.UserProgress
		delta Delta
	}{
		{"within bounds", models.UserProgress{Hearts: 3, Points: 20}, Delta{Hearts: -1, Points: 10}},
		{"clipped at hearts floor", models.UserProgress{Hearts: 0, Points: 20}, Delta{Hearts: -1}},
		{"clipped at hearts ceiling", models.UserProgress{Hearts: 5, Points: 20}, Delta{Hearts: 2}},
		{"clipped at points floor", models.UserProgress{Hearts: 2, Points: 3}, Delta{Points: -10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore()
			store.Initialize(tc.start)
			before := store.Snapshot()

			_, effective, err := store.Apply(tc.delta)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			after := store.Rollback(effective)

			if after != before {
				t.Errorf("Rollback did not restore snapshot: before %+v, after %+v", before, after)
			}
		})
	}
}

func TestCanAffordMistake(t *testing.T) {
	testCases := []struct {
		name      string
		snap      models.UserProgress
		expected  bool
	}{
		{"hearts remaining", models.UserProgress{Hearts: 1}, true},
		{"no hearts", models.UserProgress{Hearts: 0}, false},
		{"no hearts but unlimited", models.UserProgress{Hearts: 0, HasUnlimitedHearts: true}, true},
		{"full hearts", models.UserProgress{Hearts: 5}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore()
			store.Initialize(tc.snap)
			if got := store.CanAffordMistake(); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestInitializeIsIdempotentAndClamps(t *testing.T) {
	store := NewStore()
	snap := models.UserProgress{Hearts: 9, Points: -5}

	store.Initialize(snap)
	first := store.Snapshot()
	store.Initialize(snap)
	second := store.Snapshot()

	if first != second {
		t.Errorf("Repeated Initialize changed state: %+v vs %+v", first, second)
	}
	if first.Hearts != models.MaxHearts {
		t.Errorf("Expected hearts clamped to %d, got %d", models.MaxHearts, first.Hearts)
	}
	if first.Points != 0 {
		t.Errorf("Expected points clamped to 0, got %d", first.Points)
	}
}

func TestApplyBeforeInitializeFails(t *testing.T) {
	store := NewStore()
	_, _, err := store.Apply(Delta{Hearts: -1})
	if err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}
