// Package runtime drives tutoring sessions: it sequences explanation,
// visualization, quizzing, evaluation, and adaptation for one learner on
// one cell agent.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/builder"
	"github.com/abhisek/celltutor/internal/explain"
	"github.com/abhisek/celltutor/internal/llm"
	"github.com/abhisek/celltutor/internal/metrics"
	"github.com/abhisek/celltutor/internal/quiz"
	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/visual"
)

// Config holds the adaptation settings.
type Config struct {
	// Window is the number of recent attempts the policy compares with the
	// window before them.
	Window int `yaml:"window"`

	// SimplifyThreshold is the pass rate below which a returning learner
	// gets a simplified re-explanation.
	SimplifyThreshold float64 `yaml:"simplify_threshold"`

	// QuizCount sizes the bank when an agent has none yet.
	QuizCount int `yaml:"quiz_count"`
}

// DefaultConfig returns the default adaptation settings.
func DefaultConfig() Config {
	return Config{
		Window:            3,
		SimplifyThreshold: 0.5,
		QuizCount:         3,
	}
}

// Result is what each operation hands back to the caller.
type Result struct {
	State       State                      `json:"state"`
	Explanation *agent.Explanation         `json:"explanation,omitempty"`
	Simplified  *agent.Simplification      `json:"simplified,omitempty"`
	Image       *visual.Image              `json:"-"`
	Question    *agent.QuizQuestion        `json:"question,omitempty"`
	Evaluation  *agent.Evaluation          `json:"evaluation,omitempty"`
	Learner     *registry.LearnerCellState `json:"learner,omitempty"`
	Answer      string                     `json:"answer,omitempty"`
}

// Runtime runs sessions against shared agents. It holds no per-session
// state and is safe for concurrent use across sessions.
type Runtime struct {
	builder   *builder.Builder
	explainer *explain.Service
	judge     quiz.AnswerJudge
	registry  registry.Registry
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Runtime.
func New(b *builder.Builder, explainer *explain.Service, judge quiz.AnswerJudge, reg registry.Registry, cfg Config, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	if judge == nil {
		judge = quiz.ExactJudge{}
	}
	return &Runtime{
		builder:   b,
		explainer: explainer,
		judge:     judge,
		registry:  reg,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a session and enters Explaining. On failure the returned
// session stays Idle and the caller may retry with Explain.
func (r *Runtime) Start(ctx context.Context, a *agent.CellAgent, learnerID string) (*Session, Result, error) {
	if strings.TrimSpace(learnerID) == "" {
		return nil, Result{}, errors.New("start session: learner ID is required")
	}
	s := &Session{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		Agent:     a,
		StartedAt: r.now(),
		state:     StateIdle,
		asked:     make(map[string]bool),
	}
	r.logger.Info("session started", "session_id", s.ID, "learner_id", learnerID, "cell_id", a.Cell().ID)

	res, err := r.enterExplaining(ctx, s)
	return s, res, err
}

// Explain re-enters Explaining from Idle.
func (r *Runtime) Explain(ctx context.Context, s *Session) (Result, error) {
	if err := r.require(s, "explain", StateIdle); err != nil {
		return r.result(s), err
	}
	return r.enterExplaining(ctx, s)
}

func (r *Runtime) enterExplaining(ctx context.Context, s *Session) (Result, error) {
	expl, err := r.builder.EnsureExplanation(ctx, s.Agent)
	if err != nil {
		return r.result(s), fmt.Errorf("explain: %w", err)
	}
	res := Result{Explanation: expl}

	if s.explainEntries >= 1 {
		simp, st, err := r.maybeSimplify(ctx, s, expl)
		if err != nil {
			return r.result(s), err
		}
		res.Simplified = simp
		res.Learner = st
	}

	s.explainEntries++
	r.transition(s, StateExplaining)
	res.State = s.state
	return res, nil
}

// maybeSimplify produces a re-explanation when the learner's pass rate on
// this cell is below the threshold.
func (r *Runtime) maybeSimplify(ctx context.Context, s *Session, expl *agent.Explanation) (*agent.Simplification, *registry.LearnerCellState, error) {
	ctx = llm.WithCell(ctx, s.Agent.Cell().ID)
	history, err := r.registry.History(ctx, s.LearnerID, s.Agent.Cell().ID)
	if err != nil {
		return nil, nil, fmt.Errorf("explain: %w", err)
	}
	st := registry.Derive(history, r.cfg.Window)
	if st.Attempts == 0 || st.PassRate >= r.cfg.SimplifyThreshold {
		return nil, &st, nil
	}

	text, err := r.explainer.Simplify(ctx, s.Agent.Cell(), expl, explain.SimplifyInput{
		PassRate: st.PassRate,
		Missed:   r.missedPrompts(s.Agent, history),
	})
	if err != nil {
		return nil, nil, err
	}

	simp := agent.Simplification{
		LearnerID: s.LearnerID,
		PassRate:  st.PassRate,
		Text:      text,
		CreatedAt: r.now(),
	}
	s.Agent.AppendSimplification(simp)
	metrics.Simplified()
	r.logger.Info("explanation simplified",
		"session_id", s.ID,
		"learner_id", s.LearnerID,
		"pass_rate", st.PassRate)
	return &simp, &st, nil
}

func (r *Runtime) missedPrompts(a *agent.CellAgent, history []agent.Attempt) []string {
	var out []string
	seen := make(map[string]bool)
	for _, at := range history {
		if at.Correct || seen[at.QuestionID] {
			continue
		}
		seen[at.QuestionID] = true
		if q, ok := a.Question(at.QuestionID); ok {
			out = append(out, q.Prompt)
		}
	}
	return out
}

// RequestVisual renders the agent's visual if it has none, passing through
// Visualizing and back to Explaining. On failure the state is unchanged.
func (r *Runtime) RequestVisual(ctx context.Context, s *Session) (Result, error) {
	if err := r.require(s, "request visual", StateExplaining); err != nil {
		return r.result(s), err
	}

	r.transition(s, StateVisualizing)
	img, err := r.builder.RenderVisual(ctx, s.Agent)
	if err != nil {
		s.state = StateExplaining
		r.logger.Warn("visual unavailable", "session_id", s.ID, "cell_id", s.Agent.Cell().ID, "error", err)
		return r.result(s), err
	}
	r.transition(s, StateExplaining)

	res := r.result(s)
	res.Image = img
	return res, nil
}

// StartQuiz moves from Explaining to Quizzing and emits the first question
// chosen by the adaptation policy. With nothing left to ask the session
// returns to Idle.
func (r *Runtime) StartQuiz(ctx context.Context, s *Session) (Result, error) {
	if err := r.require(s, "start quiz", StateExplaining); err != nil {
		return r.result(s), err
	}
	if _, err := r.builder.EnsureQuiz(ctx, s.Agent, r.cfg.QuizCount); err != nil {
		return r.result(s), fmt.Errorf("start quiz: %w", err)
	}
	history, err := r.registry.History(ctx, s.LearnerID, s.Agent.Cell().ID)
	if err != nil {
		return r.result(s), fmt.Errorf("start quiz: %w", err)
	}
	st := registry.Derive(history, r.cfg.Window)

	res := Result{Learner: &st}
	if q, ok := NextQuestion(s.Agent.Quiz(), s.asked, TargetTier(st)); ok {
		s.current = &q
		r.transition(s, StateQuizzing)
		res.Question = s.current
	} else {
		r.transition(s, StateIdle)
	}
	res.State = s.state
	return res, nil
}

// SubmitAnswer evaluates answer to the current question and records the
// attempt under idempotencyKey. When recording fails the session stays in
// Evaluating; retry with RetryPending or by resubmitting with the same key.
func (r *Runtime) SubmitAnswer(ctx context.Context, s *Session, answer, idempotencyKey string) (Result, error) {
	if s.state == StateEvaluating && s.pending != nil && !s.closed {
		if idempotencyKey == "" || idempotencyKey == s.pending.key {
			return r.RetryPending(ctx, s)
		}
		return r.result(s), fmt.Errorf("%w: submit answer: an earlier evaluation is still pending", agent.ErrInvalidTransition)
	}
	ctx = llm.WithCell(ctx, s.Agent.Cell().ID)
	if err := r.require(s, "submit answer", StateQuizzing); err != nil {
		return r.result(s), err
	}

	q, ok := s.Agent.Question(s.current.ID)
	if !ok {
		return r.result(s), fmt.Errorf("submit answer: %w: %s", agent.ErrUnknownQuestion, s.current.ID)
	}

	eval, err := r.judge.Judge(ctx, q, answer)
	if err != nil {
		return r.result(s), fmt.Errorf("submit answer: %w", err)
	}
	eval.QuestionID = q.ID

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	r.transition(s, StateEvaluating)
	s.pending = &pendingAttempt{
		attempt: agent.Attempt{
			LearnerID:  s.LearnerID,
			CellID:     s.Agent.Cell().ID,
			QuestionID: q.ID,
			Answer:     answer,
			Correct:    eval.Correct,
			Tier:       q.Tier,
			Timestamp:  r.now(),
		},
		key:  idempotencyKey,
		eval: eval,
	}
	return r.commit(ctx, s)
}

// RetryPending re-records a held-back evaluation under its original key.
func (r *Runtime) RetryPending(ctx context.Context, s *Session) (Result, error) {
	if s.closed || s.state != StateEvaluating || s.pending == nil {
		return r.result(s), fmt.Errorf("%w: retry: no pending evaluation", agent.ErrInvalidTransition)
	}
	return r.commit(ctx, s)
}

// commit makes the pending attempt durable, then adapts and emits the
// next question. Any registry failure leaves the session in Evaluating.
func (r *Runtime) commit(ctx context.Context, s *Session) (Result, error) {
	p := s.pending
	if err := r.registry.Record(ctx, p.attempt, p.key); err != nil {
		return r.persistFailed(s, err)
	}
	history, err := r.registry.History(ctx, s.LearnerID, s.Agent.Cell().ID)
	if err != nil {
		return r.persistFailed(s, err)
	}

	metrics.AttemptRecorded(p.attempt.Tier.String(), p.attempt.Correct)
	s.pending = nil
	s.asked[p.attempt.QuestionID] = true
	s.current = nil
	r.transition(s, StateAdapting)

	st := registry.Derive(history, r.cfg.Window)
	eval := p.eval
	res := Result{Evaluation: &eval, Learner: &st}

	target := TargetTier(st)
	if q, ok := NextQuestion(s.Agent.Quiz(), s.asked, target); ok {
		s.current = &q
		r.transition(s, StateQuizzing)
		res.Question = s.current
	} else {
		r.transition(s, StateIdle)
	}

	r.logger.Info("answer evaluated",
		"session_id", s.ID,
		"question_id", p.attempt.QuestionID,
		"correct", p.attempt.Correct,
		"judge", eval.Judge,
		"pass_rate", st.PassRate,
		"target_tier", target.String(),
		"next_state", s.state.String())
	res.State = s.state
	return res, nil
}

func (r *Runtime) persistFailed(s *Session, err error) (Result, error) {
	metrics.PersistenceFailed()
	r.logger.Warn("attempt not recorded; evaluation held",
		"session_id", s.ID,
		"idempotency_key", s.pending.key,
		"error", err)
	if !errors.Is(err, agent.ErrPersistenceFailed) {
		err = fmt.Errorf("%w: %w", agent.ErrPersistenceFailed, err)
	}
	return r.result(s), fmt.Errorf("record attempt: %w", err)
}

// Abandon ends the session. It is allowed only at Idle or Quizzing.
func (r *Runtime) Abandon(s *Session) (Result, error) {
	if err := r.require(s, "abandon", StateIdle, StateQuizzing); err != nil {
		return r.result(s), err
	}
	s.current = nil
	if s.state != StateIdle {
		r.transition(s, StateIdle)
	}
	s.closed = true
	r.logger.Info("session abandoned", "session_id", s.ID, "answered", len(s.asked))
	return r.result(s), nil
}

// Ask answers a free-form question about the cell. It is allowed in Idle
// or Explaining and does not change state.
func (r *Runtime) Ask(ctx context.Context, s *Session, question string) (Result, error) {
	if err := r.require(s, "ask", StateIdle, StateExplaining); err != nil {
		return r.result(s), err
	}
	ctx = llm.WithCell(ctx, s.Agent.Cell().ID)
	answer, err := r.explainer.Ask(ctx, s.Agent.Cell(), s.Agent.Explanation(), question)
	if err != nil {
		return r.result(s), err
	}
	res := r.result(s)
	res.Answer = answer
	return res, nil
}

func (r *Runtime) require(s *Session, op string, allowed ...State) error {
	if s.closed {
		return fmt.Errorf("%w: %s: session %s was abandoned", agent.ErrInvalidTransition, op, s.ID)
	}
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s while %s", agent.ErrInvalidTransition, op, s.state)
}

func (r *Runtime) transition(s *Session, to State) {
	from := s.state
	s.state = to
	metrics.Transition(from.String(), to.String())
	r.logger.Debug("session transition", "session_id", s.ID, "from", from.String(), "to", to.String())
}

func (r *Runtime) result(s *Session) Result {
	return Result{State: s.state, Question: s.current}
}
