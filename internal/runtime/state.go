package runtime

import "fmt"

// State is a session's position in the tutoring cycle.
type State int

const (
	StateIdle State = iota
	StateExplaining
	StateVisualizing
	StateQuizzing
	StateEvaluating
	StateAdapting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExplaining:
		return "explaining"
	case StateVisualizing:
		return "visualizing"
	case StateQuizzing:
		return "quizzing"
	case StateEvaluating:
		return "evaluating"
	case StateAdapting:
		return "adapting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
