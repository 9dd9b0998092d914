package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"practice-service/internal/event"
	"practice-service/internal/gateway"
	"practice-service/internal/metrics"
	"practice-service/internal/modal"
	"practice-service/internal/models"
	"practice-service/internal/progress"
	"practice-service/internal/repository"
	"practice-service/internal/session"
)

var (
	ErrAccessDenied   = errors.New("session belongs to another learner")
	ErrSessionClosed  = errors.New("session no longer accepts answers")
	ErrWrongChallenge = errors.New("submitted challenge is not the current one")
	// ErrAnswerInFlight guards the one-commit-at-a-time invariant: a second
	// submission for the same cursor position is rejected, not queued.
	ErrAnswerInFlight = errors.New("another answer is already being processed")
)

// SessionStore is the persistence surface PracticeService needs; satisfied
// by repository.SessionRepository and by in-memory fakes in tests.
type SessionStore interface {
	FindByID(ctx context.Context, id string) (*models.PracticeSession, error)
	Create(ctx context.Context, session *models.PracticeSession) error
	Update(ctx context.Context, id string, update bson.M) error
	UpdateAtCursor(ctx context.Context, id string, expectIndex int, update bson.M) error
	ClaimCursor(ctx context.Context, id string, expectIndex int, optionID string) error
	ReleaseCursor(ctx context.Context, id string) error
	FindActiveByUserAndLesson(ctx context.Context, userID, lessonID string) (*models.PracticeSession, error)
}

type AnswerStore interface {
	Create(ctx context.Context, record *models.AnswerRecord) error
}

type ResultStore interface {
	Create(ctx context.Context, result *models.LessonResult) error
}

type Publisher interface {
	Publish(eventType string, payload any) error
}

type SnapshotCache interface {
	Get(ctx context.Context, userID string) (*models.UserProgress, error)
	Set(ctx context.Context, snap models.UserProgress) error
	Invalidate(ctx context.Context, userID string) error
}

// PracticeService drives the practice-session flow: it rebuilds the
// controller from the persisted session document per request, resolves the
// verdict, commits the resulting intent through a sync gateway, and persists
// the outcome. Publisher and cache are optional collaborators.
type PracticeService struct {
	sessions  SessionStore
	answers   AnswerStore
	results   ResultStore
	backend   *gateway.Client
	publisher Publisher
	cache     SnapshotCache
}

func NewPracticeService(
	sessions SessionStore,
	answers AnswerStore,
	results ResultStore,
	backend *gateway.Client,
	publisher Publisher,
	cache SnapshotCache,
) *PracticeService {
	return &PracticeService{
		sessions:  sessions,
		answers:   answers,
		results:   results,
		backend:   backend,
		publisher: publisher,
		cache:     cache,
	}
}

// SessionView is what the UI needs to render a session screen.
type SessionView struct {
	Session          *models.PracticeSession `json:"session"`
	CurrentChallenge *models.Challenge       `json:"current_challenge,omitempty"`
	Progress         models.UserProgress     `json:"progress"`
	Modal            modal.ModalID           `json:"modal"`
}

// AnswerOutcome is the result of one answer submission.
type AnswerOutcome struct {
	Correct       bool                `json:"correct"`
	PointsEarned  int                 `json:"points_earned"`
	SessionStatus session.Status      `json:"session_status"`
	Completed     bool                `json:"completed"`
	Progress      models.UserProgress `json:"progress"`
	Modal         modal.ModalID       `json:"modal"`
	NextChallenge *models.Challenge   `json:"next_challenge,omitempty"`
}

// OpenSession resumes the learner's in-flight session for the lesson or
// creates a fresh one from the backend's challenge list.
func (s *PracticeService) OpenSession(ctx context.Context, token, userID, lessonID string) (*SessionView, error) {
	existing, err := s.sessions.FindActiveByUserAndLesson(ctx, userID, lessonID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("look up existing session: %w", err)
	}

	snap, err := s.loadProgress(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return s.viewFor(existing, snap), nil
	}

	lesson, err := s.backend.FetchLesson(ctx, token, lessonID)
	if err != nil {
		return nil, fmt.Errorf("fetch lesson: %w", err)
	}

	sess := &models.PracticeSession{
		LessonID:       lessonID,
		UserID:         userID,
		Challenges:     lesson.Challenges,
		Status:         models.SessionStatusActive,
		IsPracticeMode: lesson.IsPractice,
		StartTime:      time.Now().UTC(),
	}
	// A lesson without challenges completes on the spot, emitting nothing.
	if len(lesson.Challenges) == 0 {
		sess.Status = models.SessionStatusCompleted
		sess.EndTime = sess.StartTime
		sess.CompletionType = models.CompletionTypeFinished
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if sess.Status == models.SessionStatusActive {
		metrics.SessionsActive.Inc()
	}
	s.publish(event.SessionStarted, map[string]any{
		"session_id": sess.ID,
		"lesson_id":  lessonID,
		"user_id":    userID,
		"practice":   sess.IsPracticeMode,
	})

	return s.viewFor(sess, snap), nil
}

// SubmitAnswer runs the full select/verify/classify/commit cycle for one
// answer and persists the advanced session.
func (s *PracticeService) SubmitAnswer(ctx context.Context, token, userID, sessionID, challengeID, optionID string) (*AnswerOutcome, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != userID {
		return nil, ErrAccessDenied
	}
	if sess.IsTerminal() {
		return nil, ErrSessionClosed
	}

	snap, err := s.loadProgress(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	store := progress.NewStore()
	store.Initialize(snap)
	gw := gateway.NewSyncGateway(s.backend, store)

	ctrl := session.Restore(sess.Challenges, sess.CurrentIndex, sess.SelectedOptionID, sess.IsPracticeMode, store)

	// A hearts-exhausted session resumes once hearts are back (refill or
	// subscription); otherwise it stays blocked.
	if sess.Status == models.SessionStatusHeartsExhausted {
		if !store.CanAffordMistake() {
			ctrl.ForceHeartsExhausted()
			return s.outcomeFor(ctrl, store.Snapshot(), false, 0), nil
		}
		if err := s.sessions.Update(ctx, sess.ID, bson.M{"status": models.SessionStatusActive}); err != nil {
			return nil, fmt.Errorf("reactivate session: %w", err)
		}
		sess.Status = models.SessionStatusActive
	}

	current := ctrl.CurrentChallenge()
	if current == nil {
		return nil, ErrSessionClosed
	}
	if current.ID != challengeID {
		return nil, ErrWrongChallenge
	}

	startIndex := ctrl.CurrentIndex()

	if err := ctrl.Select(optionID); err != nil {
		switch {
		case errors.Is(err, session.ErrSelectionIgnored):
			return nil, ErrAnswerInFlight
		default:
			return nil, err
		}
	}

	// Claim the cursor before any backend I/O: of two concurrent
	// submissions for the same challenge, the loser is rejected here and
	// the backend sees exactly one mutation.
	if err := s.sessions.ClaimCursor(ctx, sess.ID, startIndex, optionID); err != nil {
		if errors.Is(err, repository.ErrStaleSession) {
			return nil, ErrAnswerInFlight
		}
		return nil, fmt.Errorf("claim answer: %w", err)
	}

	correct, settled, err := s.resolveVerdict(ctx, gw, token, current, optionID)
	if err != nil {
		return s.handleCommitFailure(ctx, sess, ctrl, store, err)
	}

	intent, err := ctrl.Classify(correct)
	if err != nil {
		return nil, err
	}
	metrics.AnswersTotal.WithLabelValues(verdictLabel(correct)).Inc()

	// Client-side precondition failed: no backend call is made at all.
	if ctrl.Status() == session.StatusHeartsExhausted {
		return s.finishHeartsExhausted(ctx, sess, ctrl, store)
	}

	if !(settled && correct) {
		if _, err := gw.CommitIntent(ctx, token, intent); err != nil {
			return s.handleCommitFailure(ctx, sess, ctrl, store, err)
		}
	}

	ctrl.CommitSucceeded()

	pointsEarned := 0
	correctAnswers := sess.CorrectAnswers
	if correct {
		pointsEarned = current.Points()
		correctAnswers++
	}

	update := bson.M{
		"current_index":      ctrl.CurrentIndex(),
		"selected_option_id": "",
		"status":             storedStatus(ctrl.Status()),
		"points_earned":      sess.PointsEarned + pointsEarned,
		"correct_answers":    correctAnswers,
		"answer_in_flight":   false,
	}
	completed := ctrl.Status() == session.StatusLessonComplete
	if completed {
		update["end_time"] = time.Now().UTC()
		update["completion_type"] = models.CompletionTypeFinished
	}
	if err := s.sessions.UpdateAtCursor(ctx, sess.ID, startIndex, update); err != nil {
		if errors.Is(err, repository.ErrStaleSession) {
			return nil, ErrAnswerInFlight
		}
		return nil, fmt.Errorf("persist session: %w", err)
	}
	sess.PointsEarned += pointsEarned
	sess.CorrectAnswers = correctAnswers

	// The per-answer audit trail is best-effort.
	if s.answers != nil {
		_ = s.answers.Create(ctx, &models.AnswerRecord{
			SessionID:         sess.ID,
			ChallengeID:       current.ID,
			SelectedOptionID:  optionID,
			IsCorrect:         correct,
			PointsEarned:      intent.Delta.Points,
			HeartsDelta:       intent.Delta.Hearts,
			ChallengeSequence: startIndex + 1,
			AnsweredAt:        time.Now().UTC(),
		})
	}

	s.saveProgress(ctx, store.Snapshot())
	s.publish(event.AnswerSubmitted, map[string]any{
		"session_id":   sess.ID,
		"challenge_id": current.ID,
		"user_id":      userID,
		"correct":      correct,
	})

	if completed {
		s.recordCompletion(ctx, sess, store.Snapshot(), models.CompletionTypeFinished)
	}

	return s.outcomeFor(ctrl, store.Snapshot(), correct, pointsEarned), nil
}

// GetSession returns the current view of a session.
func (s *PracticeService) GetSession(ctx context.Context, token, userID, sessionID string) (*SessionView, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != userID {
		return nil, ErrAccessDenied
	}
	snap, err := s.loadProgress(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	return s.viewFor(sess, snap), nil
}

// ExitSession abandons an unfinished session. Without confirm it only
// reports the exit-confirm modal and changes nothing.
func (s *PracticeService) ExitSession(ctx context.Context, userID, sessionID string, confirm bool) (modal.ModalID, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return modal.ModalNone, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != userID {
		return modal.ModalNone, ErrAccessDenied
	}
	if sess.IsTerminal() {
		return modal.ModalNone, nil
	}
	if !confirm {
		return modal.ModalExitConfirm, nil
	}

	now := time.Now().UTC()
	err = s.sessions.Update(ctx, sess.ID, bson.M{
		"status":          models.SessionStatusAbandoned,
		"end_time":        now,
		"completion_type": models.CompletionTypeAbandoned,
	})
	if err != nil {
		return modal.ModalNone, fmt.Errorf("persist exit: %w", err)
	}

	metrics.SessionsActive.Dec()
	if s.results != nil {
		_ = s.results.Create(ctx, &models.LessonResult{
			SessionID:       sess.ID,
			LessonID:        sess.LessonID,
			UserID:          sess.UserID,
			ChallengesTotal: len(sess.Challenges),
			CorrectAnswers:  sess.CorrectAnswers,
			PointsEarned:    sess.PointsEarned,
			CompletionType:  models.CompletionTypeAbandoned,
			CompletedAt:     now,
		})
	}
	s.publish(event.SessionAbandoned, map[string]any{
		"session_id": sess.ID,
		"user_id":    userID,
	})
	return modal.ModalNone, nil
}

// DismissModal acknowledges the session's current dialog. Dismissal never
// unblocks anything: a hearts-exhausted session stays blocked until hearts
// come back, so the only state change is the acknowledgment itself.
func (s *PracticeService) DismissModal(ctx context.Context, userID, sessionID string) (modal.ModalID, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return modal.ModalNone, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != userID {
		return modal.ModalNone, ErrAccessDenied
	}
	coord := modal.NewCoordinator()
	if sess.Status == models.SessionStatusHeartsExhausted {
		coord.Show(modal.ModalHeartsExhausted)
	}
	coord.Dismiss()
	return coord.Current(), nil
}

// GetProgress serves the learner's snapshot, cache first.
func (s *PracticeService) GetProgress(ctx context.Context, token, userID string) (models.UserProgress, error) {
	return s.loadProgress(ctx, token, userID)
}

// SwitchCourse forwards an active-course change to the backend.
func (s *PracticeService) SwitchCourse(ctx context.Context, token, userID string, course models.Course) (models.UserProgress, error) {
	store := progress.NewStore()
	store.Initialize(models.UserProgress{UserID: userID})
	gw := gateway.NewSyncGateway(s.backend, store)

	snap, err := gw.SwitchActiveCourse(ctx, token, course)
	if err != nil {
		return snap, err
	}
	s.saveProgress(ctx, snap)
	s.publish(event.CourseSwitched, map[string]any{
		"user_id":   userID,
		"course_id": course.ID,
	})
	return snap, nil
}

// RefillHearts forwards a hearts refill (shop / subscription flows).
func (s *PracticeService) RefillHearts(ctx context.Context, token, userID string) (models.UserProgress, error) {
	store := progress.NewStore()
	store.Initialize(models.UserProgress{UserID: userID})
	gw := gateway.NewSyncGateway(s.backend, store)

	snap, err := gw.RefillHearts(ctx, token)
	if err != nil {
		return snap, err
	}
	s.saveProgress(ctx, snap)
	return snap, nil
}

// resolveVerdict classifies from the local marker when present; otherwise
// the backend verifies, which also settles a correct answer server-side.
func (s *PracticeService) resolveVerdict(ctx context.Context, gw *gateway.SyncGateway, token string, ch *models.Challenge, optionID string) (correct, settled bool, err error) {
	if !ch.RequiresVerification() {
		return ch.IsCorrectOption(optionID), false, nil
	}
	correct, err = gw.VerifySelection(ctx, token, ch.ID, optionID)
	if err != nil {
		return false, false, err
	}
	return correct, true, nil
}

// handleCommitFailure distinguishes the server-authoritative hearts race
// from retryable failures; in the latter case the claim is released with the
// selection retained so the learner can retry the same answer. Either way
// the cached snapshot may no longer match the server, so it is dropped.
func (s *PracticeService) handleCommitFailure(ctx context.Context, sess *models.PracticeSession, ctrl *session.Controller, store *progress.Store, err error) (*AnswerOutcome, error) {
	s.invalidateProgress(ctx, sess.UserID)

	if errors.Is(err, gateway.ErrHearts) {
		ctrl.ForceHeartsExhausted()
		out, ferr := s.finishHeartsExhausted(ctx, sess, ctrl, store)
		if ferr != nil {
			return nil, ferr
		}
		return out, nil
	}

	ctrl.CommitFailed()
	if uerr := s.sessions.ReleaseCursor(ctx, sess.ID); uerr != nil {
		log.Printf("failed to release answer claim on session %s: %v", sess.ID, uerr)
	}
	return nil, fmt.Errorf("answer not committed: %w", err)
}

func (s *PracticeService) finishHeartsExhausted(ctx context.Context, sess *models.PracticeSession, ctrl *session.Controller, store *progress.Store) (*AnswerOutcome, error) {
	if sess.Status != models.SessionStatusHeartsExhausted {
		update := bson.M{
			"status":           models.SessionStatusHeartsExhausted,
			"answer_in_flight": false,
		}
		if err := s.sessions.Update(ctx, sess.ID, update); err != nil {
			return nil, fmt.Errorf("persist hearts-exhausted: %w", err)
		}
		metrics.HeartsExhaustedTotal.Inc()
		s.publish(event.HeartsExhausted, map[string]any{
			"session_id": sess.ID,
			"user_id":    sess.UserID,
		})
	}
	return s.outcomeFor(ctrl, store.Snapshot(), false, 0), nil
}

func (s *PracticeService) recordCompletion(ctx context.Context, sess *models.PracticeSession, snap models.UserProgress, completionType string) {
	metrics.SessionsActive.Dec()
	if s.results != nil {
		_ = s.results.Create(ctx, &models.LessonResult{
			SessionID:       sess.ID,
			LessonID:        sess.LessonID,
			UserID:          sess.UserID,
			ChallengesTotal: len(sess.Challenges),
			CorrectAnswers:  sess.CorrectAnswers,
			PointsEarned:    sess.PointsEarned,
			HeartsRemaining: snap.Hearts,
			CompletionType:  completionType,
			CompletedAt:     time.Now().UTC(),
		})
	}
	s.publish(event.SessionCompleted, map[string]any{
		"session_id":    sess.ID,
		"lesson_id":     sess.LessonID,
		"user_id":       sess.UserID,
		"points_earned": sess.PointsEarned,
	})
}

func (s *PracticeService) loadProgress(ctx context.Context, token, userID string) (models.UserProgress, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err != nil {
			log.Printf("progress cache read failed for %s: %v", userID, err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	snap, err := s.backend.FetchUserProgress(ctx, token)
	if err != nil {
		return models.UserProgress{}, fmt.Errorf("fetch user progress: %w", err)
	}
	s.saveProgress(ctx, *snap)
	return *snap, nil
}

func (s *PracticeService) invalidateProgress(ctx context.Context, userID string) {
	if s.cache == nil || userID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("progress cache invalidate failed for %s: %v", userID, err)
	}
}

func (s *PracticeService) saveProgress(ctx context.Context, snap models.UserProgress) {
	if s.cache == nil || snap.UserID == "" {
		return
	}
	if err := s.cache.Set(ctx, snap); err != nil {
		log.Printf("progress cache write failed for %s: %v", snap.UserID, err)
	}
}

func (s *PracticeService) publish(eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(eventType, payload)
}

func (s *PracticeService) viewFor(sess *models.PracticeSession, snap models.UserProgress) *SessionView {
	view := &SessionView{
		Session:          sess,
		CurrentChallenge: sess.CurrentChallenge(),
		Progress:         snap,
		Modal:            modal.ModalNone,
	}
	switch {
	case sess.Status == models.SessionStatusHeartsExhausted:
		view.Modal = modal.ModalHeartsExhausted
	case sess.IsPracticeMode && sess.CurrentIndex == 0 && sess.Status == models.SessionStatusActive:
		view.Modal = modal.ModalPracticeExplainer
	}
	return view
}

func (s *PracticeService) outcomeFor(ctrl *session.Controller, snap models.UserProgress, correct bool, pointsEarned int) *AnswerOutcome {
	return &AnswerOutcome{
		Correct:       correct,
		PointsEarned:  pointsEarned,
		SessionStatus: ctrl.Status(),
		Completed:     ctrl.Status() == session.StatusLessonComplete,
		Progress:      snap,
		Modal:         modal.ForStatus(ctrl.Status()),
		NextChallenge: ctrl.CurrentChallenge(),
	}
}

func storedStatus(status session.Status) string {
	switch status {
	case session.StatusLessonComplete:
		return models.SessionStatusCompleted
	case session.StatusHeartsExhausted:
		return models.SessionStatusHeartsExhausted
	default:
		return models.SessionStatusActive
	}
}

func verdictLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
