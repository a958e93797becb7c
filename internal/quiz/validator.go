package quiz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/celltutor/internal/agent"
)

// Validator checks a generated question for correctness.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator, e.g. "structural".
	Name() string

	// Validate checks the question and returns nil if it passes.
	Validate(q *agent.QuizQuestion, input GenerateInput) *ValidationError
}

// ValidationError describes why a question failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructuralValidator checks that required fields are present, within
// length limits, and have valid enum values.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *agent.QuizQuestion, _ GenerateInput) *ValidationError {
	switch {
	case strings.TrimSpace(q.Prompt) == "":
		return &ValidationError{Validator: v.Name(), Message: "prompt is empty"}
	case len(q.Prompt) > 500:
		return &ValidationError{Validator: v.Name(), Message: "prompt exceeds 500 characters"}
	case strings.TrimSpace(q.Expected.Answer) == "":
		return &ValidationError{Validator: v.Name(), Message: "answer is empty"}
	case q.Expected.Kind != agent.AnswerExact && q.Expected.Kind != agent.AnswerFreeText:
		return &ValidationError{Validator: v.Name(), Message: "kind must be \"exact\" or \"free_text\""}
	case len(q.Explanation) > 1000:
		return &ValidationError{Validator: v.Name(), Message: "explanation exceeds 1000 characters"}
	}
	return nil
}

// ChoiceValidator checks multiple choice questions: 2-5 distinct options,
// exactly one of which is the answer.
type ChoiceValidator struct{}

func (v *ChoiceValidator) Name() string { return "choices" }

func (v *ChoiceValidator) Validate(q *agent.QuizQuestion, _ GenerateInput) *ValidationError {
	choices := q.Expected.Choices
	if len(choices) == 0 {
		return nil
	}
	if len(choices) < 2 || len(choices) > 5 {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("expected 2-5 choices, got %d", len(choices))}
	}

	matches := 0
	seen := make(map[string]bool, len(choices))
	for _, c := range choices {
		n := Normalize(c)
		if seen[n] {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("duplicate choice %q", c)}
		}
		seen[n] = true
		if n == Normalize(q.Expected.Answer) {
			matches++
		}
	}
	if matches != 1 {
		return &ValidationError{Validator: v.Name(), Message: "answer must match exactly one choice"}
	}
	return nil
}

// DedupValidator rejects questions whose prompt repeats a prior question.
type DedupValidator struct{}

func (v *DedupValidator) Name() string { return "dedup" }

func (v *DedupValidator) Validate(q *agent.QuizQuestion, input GenerateInput) *ValidationError {
	prompt := Normalize(q.Prompt)
	if slices.ContainsFunc(input.PriorQuestions, func(p string) bool { return Normalize(p) == prompt }) {
		return &ValidationError{Validator: v.Name(), Message: "question repeats a prior question"}
	}
	return nil
}

// GroundingValidator requires the question to mention something that
// appears in the cell: an identifier, or a fragment of a source line. It
// passes trivially when the cell has no identifiers.
type GroundingValidator struct{}

func (v *GroundingValidator) Name() string { return "grounding" }

func (v *GroundingValidator) Validate(q *agent.QuizQuestion, input GenerateInput) *ValidationError {
	names := input.Facts.IdentifierNames()
	if len(names) == 0 {
		return nil
	}
	text := q.Prompt + "\n" + q.Expected.Answer
	for _, name := range names {
		if containsWord(text, name) {
			return nil
		}
	}
	for _, line := range input.Cell.Lines() {
		if l := strings.TrimSpace(line); len(l) >= 4 && strings.Contains(text, l) {
			return nil
		}
	}
	return &ValidationError{Validator: v.Name(), Message: "question does not refer to anything in the cell"}
}

// containsWord reports whether word occurs in s delimited by non-identifier
// characters.
func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(word)
		if (start == 0 || !isIdentByte(s[start-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
