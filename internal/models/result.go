package models

import "time"

// Completion types recorded on lesson results.
const (
	CompletionTypeFinished  = "finished"
	CompletionTypeAbandoned = "abandoned"
)

// LessonResult summarizes a finished (or abandoned) practice session.
type LessonResult struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	SessionID       string    `bson:"session_id" json:"session_id"`
	LessonID        string    `bson:"lesson_id" json:"lesson_id"`
	UserID          string    `bson:"user_id" json:"user_id"`
	ChallengesTotal int       `bson:"challenges_total" json:"challenges_total"`
	CorrectAnswers  int       `bson:"correct_answers" json:"correct_answers"`
	PointsEarned    int       `bson:"points_earned" json:"points_earned"`
	HeartsRemaining int       `bson:"hearts_remaining" json:"hearts_remaining"`
	CompletionType  string    `bson:"completion_type" json:"completion_type"`
	CompletedAt     time.Time `bson:"completed_at" json:"completed_at"`
}
