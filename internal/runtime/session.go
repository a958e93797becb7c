package runtime

import (
	"time"

	"github.com/abhisek/celltutor/internal/agent"
)

// Session binds one learner to one agent. It is transient and must be
// driven by a single goroutine at a time.
type Session struct {
	ID        string
	LearnerID string
	Agent     *agent.CellAgent
	StartedAt time.Time

	state          State
	asked          map[string]bool
	explainEntries int
	current        *agent.QuizQuestion
	pending        *pendingAttempt
	closed         bool
}

// pendingAttempt is an evaluation whose attempt is not yet durable.
type pendingAttempt struct {
	attempt agent.Attempt
	key     string
	eval    agent.Evaluation
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// Current returns the question awaiting an answer, if any.
func (s *Session) Current() *agent.QuizQuestion { return s.current }

// AskedCount returns how many questions were answered in this session.
func (s *Session) AskedCount() int { return len(s.asked) }

// ExplainEntries returns how many times the session entered Explaining.
func (s *Session) ExplainEntries() int { return s.explainEntries }

// HasPending reports whether an evaluation is waiting to be recorded.
func (s *Session) HasPending() bool { return s.pending != nil }

// Closed reports whether the session was abandoned.
func (s *Session) Closed() bool { return s.closed }
