package models

// Challenge types mirror the lesson content served by the learning backend.
const (
	ChallengeTypeSelect = "SELECT"
	ChallengeTypeAssist = "ASSIST"
)

// DefaultPointsReward is the backend's fallback when a challenge carries no
// explicit reward.
const DefaultPointsReward = 10

type ChallengeOption struct {
	ID       string `bson:"id" json:"id"`
	Text     string `bson:"text" json:"text"`
	ImageSrc string `bson:"image_src,omitempty" json:"image_src,omitempty"`
	AudioSrc string `bson:"audio_src,omitempty" json:"audio_src,omitempty"`
}

type Challenge struct {
	ID       string            `bson:"id" json:"id"`
	LessonID string            `bson:"lesson_id" json:"lesson_id"`
	Type     string            `bson:"type" json:"type"`
	Prompt   string            `bson:"prompt" json:"prompt"`
	Order    int               `bson:"order" json:"order"`
	Options  []ChallengeOption `bson:"options" json:"options"`
	// CorrectOptionID is empty for challenge types the backend verifies
	// server-side; the verdict then comes from the challenge-progress call.
	CorrectOptionID string `bson:"correct_option_id,omitempty" json:"correct_option_id,omitempty"`
	PointsReward    int    `bson:"points_reward" json:"points_reward"`
}

// RequiresVerification reports whether the correct option is unknown
// client-side and must be resolved by the backend.
func (c *Challenge) RequiresVerification() bool {
	return c.CorrectOptionID == ""
}

// IsCorrectOption checks a locally-known correctness marker.
func (c *Challenge) IsCorrectOption(optionID string) bool {
	return c.CorrectOptionID != "" && c.CorrectOptionID == optionID
}

// HasOption reports whether optionID belongs to this challenge.
func (c *Challenge) HasOption(optionID string) bool {
	for _, o := range c.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// Points returns the reward for answering this challenge correctly.
func (c *Challenge) Points() int {
	if c.PointsReward > 0 {
		return c.PointsReward
	}
	return DefaultPointsReward
}
