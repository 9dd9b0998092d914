package models

import "time"

// Stored session statuses. Only these survive between requests; the
// controller's transient statuses resolve within a single answer submission.
const (
	SessionStatusActive          = "active"
	SessionStatusHeartsExhausted = "hearts_exhausted"
	SessionStatusCompleted       = "completed"
	SessionStatusAbandoned       = "abandoned"
)

// PracticeSession is one learner's pass through a lesson's ordered challenge
// list. Challenges are embedded at session creation so the flow only reaches
// the backend for answer mutations.
type PracticeSession struct {
	ID               string      `bson:"_id,omitempty" json:"id"`
	LessonID         string      `bson:"lesson_id" json:"lesson_id"`
	UserID           string      `bson:"user_id" json:"user_id"`
	Challenges       []Challenge `bson:"challenges" json:"challenges"`
	CurrentIndex     int         `bson:"current_index" json:"current_index"`
	SelectedOptionID string      `bson:"selected_option_id,omitempty" json:"selected_option_id,omitempty"`
	Status           string      `bson:"status" json:"status"`
	IsPracticeMode   bool        `bson:"is_practice_mode" json:"is_practice_mode"`
	PointsEarned     int         `bson:"points_earned" json:"points_earned"`
	CorrectAnswers   int         `bson:"correct_answers" json:"correct_answers"`
	// AnswerInFlight is set while a submission for the current challenge is
	// being committed against the backend; it serializes concurrent
	// submissions across requests.
	AnswerInFlight bool `bson:"answer_in_flight,omitempty" json:"-"`
	StartTime        time.Time   `bson:"start_time" json:"start_time"`
	EndTime          time.Time   `bson:"end_time,omitempty" json:"end_time,omitempty"`
	CompletionType   string      `bson:"completion_type,omitempty" json:"completion_type,omitempty"`
}

// IsTerminal reports whether the session accepts no further answers.
func (s *PracticeSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusAbandoned
}

// CurrentChallenge returns the challenge under the cursor, or nil past the end.
func (s *PracticeSession) CurrentChallenge() *Challenge {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Challenges) {
		return nil
	}
	return &s.Challenges[s.CurrentIndex]
}
