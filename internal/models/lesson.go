package models

// Lesson is the backend's lesson payload: metadata plus the ordered
// challenge list a practice session runs through.
type Lesson struct {
	ID         string      `json:"id"`
	UnitID     string      `json:"unit_id,omitempty"`
	Title      string      `json:"title"`
	Order      int         `json:"order"`
	IsPractice bool        `json:"is_practice"`
	Challenges []Challenge `json:"challenges"`
}
