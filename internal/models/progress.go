package models

// MaxHearts is the refill ceiling for the hearts resource.
const MaxHearts = 5

// UserProgress is the learner's gamification snapshot as served by the
// learning backend and cached locally for the lifetime of a session.
type UserProgress struct {
	UserID             string `bson:"user_id" json:"user_id"`
	Hearts             int    `bson:"hearts" json:"hearts"`
	Points             int    `bson:"points" json:"points"`
	ActiveCourseID     string `bson:"active_course_id,omitempty" json:"active_course_id,omitempty"`
	ActiveCourseTitle  string `bson:"active_course_title,omitempty" json:"active_course_title,omitempty"`
	HasUnlimitedHearts bool   `bson:"has_unlimited_hearts" json:"has_unlimited_hearts"`
}

type Course struct {
	ID       string `bson:"id" json:"id"`
	Title    string `bson:"title" json:"title"`
	ImageSrc string `bson:"image_src,omitempty" json:"image_src,omitempty"`
}
