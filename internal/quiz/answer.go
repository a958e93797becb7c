package quiz

import (
	"strconv"
	"strings"

	"github.com/abhisek/celltutor/internal/agent"
)

// Normalize trims s, collapses internal whitespace, and folds case.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CheckAnswer compares the learner's input against the expected answer.
//
// Normalization rules:
//   - Whitespace is trimmed and internal runs collapse to one space
//   - Comparison is case-insensitive
//   - Surrounding quotes or backticks are ignored, so "`n`" matches "n"
//   - For multiple choice: matches against the choice text, then its 1-based index
func CheckAnswer(answer string, expected agent.AnswerSpec) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}

	want := unquote(Normalize(expected.Answer))
	if unquote(Normalize(answer)) == want {
		return true
	}

	if len(expected.Choices) > 0 {
		if idx, err := strconv.Atoi(answer); err == nil && idx >= 1 && idx <= len(expected.Choices) {
			return unquote(Normalize(expected.Choices[idx-1])) == want
		}
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
