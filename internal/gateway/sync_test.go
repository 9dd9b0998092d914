package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"practice-service/internal/models"
	"practice-service/internal/progress"
	"practice-service/internal/session"
)

func newGatewayWithBackend(t *testing.T, snap models.UserProgress, handler http.HandlerFunc) (*SyncGateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := progress.NewStore()
	store.Initialize(snap)
	return NewSyncGateway(NewClient(server.URL, time.Second), store), server
}

func TestCommitAwardReconcilesWithServerSnapshot(t *testing.T) {
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 5, Points: 0},
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/practice/challenge-progress/" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			// Server truth differs from the optimistic guess on purpose.
			w.Write([]byte(`{"correct": true, "user_progress": {"user_id": "u1", "hearts": 5, "points": 15}}`))
		})

	intent := session.Intent{
		Type:        session.IntentAward,
		ChallengeID: "ch1",
		OptionID:    "opt1",
		Delta:       progress.Delta{Points: 10},
	}
	snap, err := gw.CommitIntent(context.Background(), "tok", intent)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if snap.Points != 15 {
		t.Errorf("Expected server-reconciled points 15, got %d", snap.Points)
	}
}

func TestCommitPenalizeCallsReduceHearts(t *testing.T) {
	var path string
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 1, Points: 20},
		func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Write([]byte(`{"success": true, "data": {"user_id": "u1", "hearts": 0, "points": 20}}`))
		})

	intent := session.Intent{
		Type:        session.IntentPenalize,
		ChallengeID: "ch1",
		Delta:       progress.Delta{Hearts: -1},
	}
	snap, err := gw.CommitIntent(context.Background(), "tok", intent)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if path != "/practice/reduce-hearts/" {
		t.Errorf("Expected reduce-hearts call, got %s", path)
	}
	if snap.Hearts != 0 {
		t.Errorf("Expected hearts 0, got %d", snap.Hearts)
	}
}

func TestCommitRollsBackOnTransientFailure(t *testing.T) {
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 3, Points: 50},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

	intent := session.Intent{
		Type:        session.IntentAward,
		ChallengeID: "ch1",
		OptionID:    "opt1",
		Delta:       progress.Delta{Points: 10},
	}
	snap, err := gw.CommitIntent(context.Background(), "tok", intent)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("Expected retryable error, got %v", err)
	}
	if snap.Points != 50 {
		t.Errorf("Expected optimistic points rolled back to 50, got %d", snap.Points)
	}
	if snap.Hearts != 3 {
		t.Errorf("Expected hearts unchanged at 3, got %d", snap.Hearts)
	}
}

func TestCommitTimeoutRollsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	store := progress.NewStore()
	store.Initialize(models.UserProgress{UserID: "u1", Hearts: 3, Points: 50})
	gw := NewSyncGateway(NewClient(server.URL, 20*time.Millisecond), store)

	intent := session.Intent{
		Type:        session.IntentAward,
		ChallengeID: "ch1",
		OptionID:    "opt1",
		Delta:       progress.Delta{Points: 10},
	}
	snap, err := gw.CommitIntent(context.Background(), "tok", intent)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if snap.Points != 50 {
		t.Errorf("Expected rollback to 50 points, got %d", snap.Points)
	}
}

func TestCommitHeartsRejectionRollsBackAndPassesThrough(t *testing.T) {
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 1, Points: 20},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "hearts"}`))
		})

	intent := session.Intent{
		Type:        session.IntentPenalize,
		ChallengeID: "ch1",
		Delta:       progress.Delta{Hearts: -1},
	}
	snap, err := gw.CommitIntent(context.Background(), "tok", intent)
	if !errors.Is(err, ErrHearts) {
		t.Fatalf("Expected ErrHearts, got %v", err)
	}
	if snap.Hearts != 1 {
		t.Errorf("Expected hearts rolled back to 1, got %d", snap.Hearts)
	}
}

func TestCommitPracticeRejectionResolvesAsNoOp(t *testing.T) {
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 3, Points: 20},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "practice"}`))
		})

	intent := session.Intent{
		Type:        session.IntentPenalize,
		ChallengeID: "ch1",
		Delta:       progress.Delta{Hearts: -1},
	}
	snap, err := gw.CommitIntent(context.Background(), "tok", intent)
	if err != nil {
		t.Fatalf("Practice rejection must resolve as no-op, got %v", err)
	}
	if snap.Hearts != 3 {
		t.Errorf("Expected hearts restored to 3, got %d", snap.Hearts)
	}
}

func TestCommitNoneIntentSkipsBackend(t *testing.T) {
	var called int32
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 3, Points: 20},
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&called, 1)
		})

	snap, err := gw.CommitIntent(context.Background(), "tok", session.Intent{Type: session.IntentNone})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if atomic.LoadInt32(&called) != 0 {
		t.Error("No-op intents must not reach the backend")
	}
	if snap.Hearts != 3 || snap.Points != 20 {
		t.Errorf("Expected state unchanged, got %+v", snap)
	}
}

func TestCommitWithoutTokenLeavesStoreUntouched(t *testing.T) {
	var called int32
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 3, Points: 20},
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&called, 1)
		})

	intent := session.Intent{
		Type:        session.IntentAward,
		ChallengeID: "ch1",
		OptionID:    "opt1",
		Delta:       progress.Delta{Points: 10},
	}
	snap, err := gw.CommitIntent(context.Background(), "", intent)
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Expected ErrMissingToken, got %v", err)
	}
	if atomic.LoadInt32(&called) != 0 {
		t.Error("No request may be attempted without a token")
	}
	if snap.Points != 20 {
		t.Errorf("Expected no optimistic change, got points %d", snap.Points)
	}
}

func TestVerifySelectionReconciles(t *testing.T) {
	gw, _ := newGatewayWithBackend(t, models.UserProgress{UserID: "u1", Hearts: 5, Points: 0},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"correct": true, "user_progress": {"user_id": "u1", "hearts": 5, "points": 10}}`))
		})

	correct, err := gw.VerifySelection(context.Background(), "tok", "ch1", "opt1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !correct {
		t.Error("Expected correct verdict")
	}
	if snap := gw.Store().Snapshot(); snap.Points != 10 {
		t.Errorf("Expected reconciled points 10, got %d", snap.Points)
	}
}
