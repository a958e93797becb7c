package agent

import "time"

// Attempt is one recorded answer to a quiz question. Attempts are
// append-only and never modified after they are recorded.
type Attempt struct {
	LearnerID  string    `json:"learner_id"`
	CellID     string    `json:"cell_id"`
	QuestionID string    `json:"question_id"`
	Answer     string    `json:"answer"`
	Correct    bool      `json:"correct"`
	Tier       Tier      `json:"tier"`
	Timestamp  time.Time `json:"timestamp"`

	// Sequence is assigned by the registry and orders attempts globally.
	Sequence int64 `json:"sequence"`
}
