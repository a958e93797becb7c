package agent

// AnswerKind describes how a submitted answer is matched.
type AnswerKind string

const (
	// AnswerExact answers are matched after trimming and case folding.
	AnswerExact AnswerKind = "exact"

	// AnswerFreeText answers fall back to the judge strategy when the
	// normalized exact match fails.
	AnswerFreeText AnswerKind = "free_text"
)

// AnswerSpec describes the expected answer to a quiz question.
type AnswerSpec struct {
	Answer string     `json:"answer"`
	Kind   AnswerKind `json:"kind"`

	// Choices is set for multiple choice questions. Answer is then the
	// text of the correct choice.
	Choices []string `json:"choices,omitempty"`
}

// QuizQuestion is a single question in an agent's quiz bank.
type QuizQuestion struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"prompt"`
	Expected    AnswerSpec `json:"expected"`
	Tier        Tier       `json:"tier"`
	Explanation string     `json:"explanation,omitempty"`
}

// Evaluation is the outcome of checking one submitted answer.
type Evaluation struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	Feedback   string `json:"feedback"`

	// Judge names the strategy that decided correctness.
	Judge string `json:"judge"`
}
