package session

import (
	"errors"

	"practice-service/internal/models"
	"practice-service/internal/progress"
)

// Status is the controller's position in the per-challenge answer lifecycle.
type Status string

const (
	StatusAwaitingAnswer  Status = "awaiting_answer"
	StatusCorrect         Status = "correct"
	StatusIncorrect       Status = "incorrect"
	StatusAdvancing       Status = "advancing"
	StatusError           Status = "error"
	StatusHeartsExhausted Status = "hearts_exhausted"
	StatusLessonComplete  Status = "lesson_complete"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusHeartsExhausted || s == StatusLessonComplete
}

type IntentType string

const (
	IntentAward    IntentType = "award"
	IntentPenalize IntentType = "penalize"
	IntentNone     IntentType = "none"
)

// Intent is the controller's proposal for a progress mutation. The controller
// never writes the progress store itself; the sync gateway commits intents.
type Intent struct {
	Type        IntentType
	ChallengeID string
	OptionID    string
	Delta       progress.Delta
}

var (
	// ErrSelectionIgnored marks a Select outside awaiting-answer; duplicate
	// selections are idempotent no-ops, not failures.
	ErrSelectionIgnored = errors.New("selection ignored: not awaiting an answer")
	ErrUnknownOption    = errors.New("option does not belong to the current challenge")
	ErrNoSelection      = errors.New("no option selected")
)

// Controller drives one lesson's challenge-by-challenge flow. It reads the
// progress store to decide whether a mistake is affordable but never mutates
// it. Transitions:
//
//	awaiting-answer --Select+Classify--> correct | incorrect | hearts-exhausted
//	correct/incorrect --CommitSucceeded--> advancing --> awaiting-answer | lesson-complete
//	correct/incorrect --CommitFailed--> error --Retry--> awaiting-answer
type Controller struct {
	challenges   []models.Challenge
	index        int
	selected     string
	status       Status
	practiceMode bool
	store        *progress.Store
}

// NewController starts a fresh session over an ordered challenge list. An
// empty list is immediately lesson-complete and emits no intents.
func NewController(challenges []models.Challenge, practiceMode bool, store *progress.Store) *Controller {
	c := &Controller{
		challenges:   challenges,
		status:       StatusAwaitingAnswer,
		practiceMode: practiceMode,
		store:        store,
	}
	if len(challenges) == 0 {
		c.status = StatusLessonComplete
	}
	return c
}

// Restore rebuilds a controller mid-lesson from persisted session state.
// A retained selection (from an earlier failed commit) stays selectable.
func Restore(challenges []models.Challenge, index int, selectedOptionID string, practiceMode bool, store *progress.Store) *Controller {
	c := NewController(challenges, practiceMode, store)
	if index >= len(challenges) {
		c.index = len(challenges)
		c.status = StatusLessonComplete
		return c
	}
	if index > 0 {
		c.index = index
	}
	c.selected = selectedOptionID
	return c
}

func (c *Controller) Status() Status           { return c.status }
func (c *Controller) CurrentIndex() int        { return c.index }
func (c *Controller) SelectedOptionID() string { return c.selected }
func (c *Controller) IsPracticeMode() bool     { return c.practiceMode }
func (c *Controller) TotalChallenges() int     { return len(c.challenges) }

// CurrentChallenge returns the challenge under the cursor, nil once complete.
func (c *Controller) CurrentChallenge() *models.Challenge {
	if c.index >= len(c.challenges) {
		return nil
	}
	return &c.challenges[c.index]
}

// Select records the tentative option for the current challenge. It is only
// accepted while awaiting an answer; any other status makes it a no-op
// signalled by ErrSelectionIgnored, which keeps double submissions from
// racing a commit already in flight.
func (c *Controller) Select(optionID string) error {
	if c.status != StatusAwaitingAnswer {
		return ErrSelectionIgnored
	}
	ch := c.CurrentChallenge()
	if ch == nil {
		return ErrSelectionIgnored
	}
	if !ch.HasOption(optionID) {
		return ErrUnknownOption
	}
	c.selected = optionID
	return nil
}

// Classify resolves the verdict for the selected option and returns the
// intent the gateway should commit. The verdict comes from the challenge's
// local correctness marker or from backend verification; either way the
// controller only consumes the boolean.
func (c *Controller) Classify(correct bool) (Intent, error) {
	if c.status != StatusAwaitingAnswer {
		return Intent{Type: IntentNone}, ErrSelectionIgnored
	}
	ch := c.CurrentChallenge()
	if ch == nil {
		return Intent{Type: IntentNone}, ErrSelectionIgnored
	}
	if c.selected == "" {
		return Intent{Type: IntentNone}, ErrNoSelection
	}

	intent := Intent{ChallengeID: ch.ID, OptionID: c.selected}

	if correct {
		c.status = StatusCorrect
		intent.Type = IntentAward
		intent.Delta = progress.Delta{Points: ch.Points()}
		return intent, nil
	}

	c.status = StatusIncorrect
	if c.practiceMode {
		intent.Type = IntentNone
		return intent, nil
	}
	if !c.store.CanAffordMistake() {
		// Affordability is checked before the decrement, so the
		// exhausting mistake itself still penalizes; only the next one
		// lands here.
		c.status = StatusHeartsExhausted
		intent.Type = IntentNone
		return intent, nil
	}
	intent.Type = IntentPenalize
	intent.Delta = progress.Delta{Hearts: -1}
	return intent, nil
}

// CommitSucceeded advances the cursor after the gateway confirmed the intent.
func (c *Controller) CommitSucceeded() {
	if c.status != StatusCorrect && c.status != StatusIncorrect {
		return
	}
	c.status = StatusAdvancing
	c.index++
	c.selected = ""
	if c.index >= len(c.challenges) {
		c.status = StatusLessonComplete
		return
	}
	c.status = StatusAwaitingAnswer
}

// CommitFailed parks the controller in the error status with the selection
// retained, so a retry does not force the learner to re-pick.
func (c *Controller) CommitFailed() {
	if c.status == StatusCorrect || c.status == StatusIncorrect {
		c.status = StatusError
	}
}

// Retry returns from the error status to awaiting-answer; the retained
// selection survives.
func (c *Controller) Retry() {
	if c.status == StatusError {
		c.status = StatusAwaitingAnswer
	}
}

// ForceHeartsExhausted is the server-authoritative override for the race
// where hearts hit zero upstream between client checks.
func (c *Controller) ForceHeartsExhausted() {
	if c.status != StatusLessonComplete {
		c.status = StatusHeartsExhausted
	}
}
