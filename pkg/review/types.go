// Package review implements the best-review selection workflow: load
// reviews for a shop, filter them by rules and moderation, score the
// survivors from three perspectives with an LLM, fuse the scores, and
// persist the winners.
package review

import "time"

// Review is one customer review as loaded from the store.
type Review struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Rating      int       `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
	ImageExists bool      `json:"image_exists"`
}

// PerspectiveScore is one perspective's 0-100 judgment of a review.
type PerspectiveScore struct {
	Perspective string `json:"perspective"`
	Score       int    `json:"score"`
}

// Candidate pairs a review with the scores it collected across
// perspectives.
type Candidate struct {
	ReviewID int64              `json:"review_id"`
	Scores   []PerspectiveScore `json:"scores"`
}

// SelectedCandidate is a fused, ranked selection result.
type SelectedCandidate struct {
	ID     int64   `json:"id"`
	Text   string  `json:"text"`
	Rating int     `json:"rating"`
	Score  float64 `json:"score"`
}

// Recommended is a selection result ready for persistence, optionally
// carrying a generated title and summary.
type Recommended struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// The three scoring perspectives.
const (
	PerspectiveQuality      = "quality"
	PerspectiveAuthenticity = "authenticity"
	PerspectiveHelpfulness  = "helpfulness"
)

// builtinCriteria backs each perspective when the state carries no
// user-generated criteria for it.
var builtinCriteria = map[string][]string{
	PerspectiveQuality:      {"performance", "durability", "design"},
	PerspectiveAuthenticity: {"honesty", "grounded in real experience", "specificity"},
	PerspectiveHelpfulness:  {"helpful to others", "informative", "practical"},
}
