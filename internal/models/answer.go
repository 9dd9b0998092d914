package models

import "time"

// AnswerRecord is the per-answer audit trail for a practice session.
type AnswerRecord struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	SessionID         string    `bson:"session_id" json:"session_id"`
	ChallengeID       string    `bson:"challenge_id" json:"challenge_id"`
	SelectedOptionID  string    `bson:"selected_option_id" json:"selected_option_id"`
	IsCorrect         bool      `bson:"is_correct" json:"is_correct"`
	PointsEarned      int       `bson:"points_earned" json:"points_earned"`
	HeartsDelta       int       `bson:"hearts_delta" json:"hearts_delta"`
	ChallengeSequence int       `bson:"challenge_sequence" json:"challenge_sequence"`
	AnsweredAt        time.Time `bson:"answered_at" json:"answered_at"`
}
