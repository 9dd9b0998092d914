package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"practice-service/internal/metrics"
	"practice-service/internal/models"
	"practice-service/internal/progress"
	"practice-service/internal/session"
)

// SyncGateway turns controller intents into backend calls and reconciles the
// progress store with authoritative responses. It is the store's only writer
// and the only component in the core that performs I/O.
type SyncGateway struct {
	client *Client
	store  *progress.Store
}

func NewSyncGateway(client *Client, store *progress.Store) *SyncGateway {
	return &SyncGateway{client: client, store: store}
}

// Store exposes the progress store for read-side collaborators.
func (g *SyncGateway) Store() *progress.Store {
	return g.store
}

// CommitIntent applies the intent's delta optimistically, issues the
// corresponding backend call, and either reconciles with the server's
// snapshot or rolls the optimistic change back.
//
// The returned snapshot is the store's state after resolution. ErrHearts
// passes through so the caller can force the controller into
// hearts-exhausted; ErrPractice resolves as a logged no-op.
func (g *SyncGateway) CommitIntent(ctx context.Context, token string, intent session.Intent) (models.UserProgress, error) {
	if intent.Type == session.IntentNone {
		return g.store.Snapshot(), nil
	}
	// Precondition: no optimistic change before the token check, so there
	// is nothing to roll back on this failure.
	if token == "" {
		return g.store.Snapshot(), ErrMissingToken
	}

	_, effective, err := g.store.Apply(intent.Delta)
	if err != nil {
		return g.store.Snapshot(), err
	}

	start := time.Now()
	serverSnap, callErr := g.call(ctx, token, intent)
	metrics.CommitDuration.WithLabelValues(string(intent.Type)).Observe(time.Since(start).Seconds())

	if callErr != nil {
		snap := g.store.Rollback(effective)
		switch {
		case errors.Is(callErr, ErrPractice):
			// Server says the lesson is penalty-free; the rejected
			// mutation is undone and the flow continues as a no-op.
			log.Printf("WARNING: backend rejected %s as practice-mode, continuing without penalty", intent.Type)
			metrics.CommitsTotal.WithLabelValues(string(intent.Type), "noop").Inc()
			return snap, nil
		case errors.Is(callErr, ErrHearts):
			metrics.CommitsTotal.WithLabelValues(string(intent.Type), "rolled_back").Inc()
			return snap, ErrHearts
		default:
			metrics.CommitsTotal.WithLabelValues(string(intent.Type), "rolled_back").Inc()
			return snap, fmt.Errorf("commit %s intent: %w", intent.Type, callErr)
		}
	}

	// Reconciliation by replacement: the server is the final authority.
	if serverSnap != nil {
		g.store.Initialize(*serverSnap)
	}
	metrics.CommitsTotal.WithLabelValues(string(intent.Type), "ok").Inc()
	return g.store.Snapshot(), nil
}

func (g *SyncGateway) call(ctx context.Context, token string, intent session.Intent) (*models.UserProgress, error) {
	switch intent.Type {
	case session.IntentAward:
		result, err := g.client.SubmitChallengeProgress(ctx, token, intent.ChallengeID, intent.OptionID)
		if err != nil {
			return nil, err
		}
		if !result.Correct {
			// The local correctness marker disagreed with the server;
			// the snapshot below still reconciles to server truth.
			log.Printf("WARNING: backend classified challenge %s as incorrect for an award intent", intent.ChallengeID)
		}
		return result.UserProgress, nil
	case session.IntentPenalize:
		result, err := g.client.ReduceHearts(ctx, token, intent.ChallengeID)
		if err != nil {
			return nil, err
		}
		return result.UserProgress, nil
	default:
		return nil, nil
	}
}

// VerifySelection resolves correctness for challenges whose marker is not
// known client-side. The challenge-progress call verifies and upserts in one
// request, so a correct verdict arrives already settled server-side and the
// store is reconciled here; the caller must not commit a second award.
func (g *SyncGateway) VerifySelection(ctx context.Context, token, challengeID, optionID string) (bool, error) {
	if token == "" {
		return false, ErrMissingToken
	}
	result, err := g.client.SubmitChallengeProgress(ctx, token, challengeID, optionID)
	if err != nil {
		return false, err
	}
	if result.UserProgress != nil {
		g.store.Initialize(*result.UserProgress)
	}
	return result.Correct, nil
}

// RefreshProgress replaces the store with a freshly fetched snapshot.
func (g *SyncGateway) RefreshProgress(ctx context.Context, token string) (models.UserProgress, error) {
	snap, err := g.client.FetchUserProgress(ctx, token)
	if err != nil {
		return g.store.Snapshot(), err
	}
	g.store.Initialize(*snap)
	return g.store.Snapshot(), nil
}

// SwitchActiveCourse forwards a course switch and reconciles the snapshot.
func (g *SyncGateway) SwitchActiveCourse(ctx context.Context, token string, course models.Course) (models.UserProgress, error) {
	if token == "" {
		return g.store.Snapshot(), ErrMissingToken
	}
	snap, err := g.client.UpdateActiveCourse(ctx, token, course)
	if err != nil {
		return g.store.Snapshot(), err
	}
	g.store.Initialize(*snap)
	return g.store.Snapshot(), nil
}

// RefillHearts forwards a refill and reconciles the snapshot.
func (g *SyncGateway) RefillHearts(ctx context.Context, token string) (models.UserProgress, error) {
	if token == "" {
		return g.store.Snapshot(), ErrMissingToken
	}
	result, err := g.client.RefillHearts(ctx, token)
	if err != nil {
		return g.store.Snapshot(), err
	}
	if result.UserProgress != nil {
		g.store.Initialize(*result.UserProgress)
	}
	return g.store.Snapshot(), nil
}
