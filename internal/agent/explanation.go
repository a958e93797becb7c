package agent

import "time"

// Detail selects how much explanation the builder produces.
type Detail string

const (
	DetailCoarse     Detail = "coarse"
	DetailLineByLine Detail = "line-by-line"
)

// Valid reports whether d is a known detail level.
func (d Detail) Valid() bool {
	return d == DetailCoarse || d == DetailLineByLine
}

// Explanation is the cached explanation of a cell.
type Explanation struct {
	Summary string `json:"summary"`

	// Lines is empty for coarse explanations. Otherwise it holds exactly
	// one entry per physical source line, in source order.
	Lines []LineExplanation `json:"lines,omitempty"`
}

// LineExplanation explains a single source line.
type LineExplanation struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Text   string `json:"text"`

	// Placeholder is true when the model did not annotate this line and a
	// fallback text was substituted.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Simplification is a re-explanation produced for a struggling learner.
// It is kept next to, never instead of, the original explanation.
type Simplification struct {
	LearnerID string    `json:"learner_id"`
	PassRate  float64   `json:"pass_rate"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
