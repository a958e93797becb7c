package server

import (
	"time"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/runtime"
)

// questionView is a quiz question as a learner may see it: the expected
// answer and its explanation stay on the server.
type questionView struct {
	ID      string           `json:"id"`
	Prompt  string           `json:"prompt"`
	Tier    agent.Tier       `json:"tier"`
	Kind    agent.AnswerKind `json:"kind"`
	Choices []string         `json:"choices,omitempty"`
}

func newQuestionView(q *agent.QuizQuestion) *questionView {
	if q == nil {
		return nil
	}
	return &questionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Tier:    q.Tier,
		Kind:    q.Expected.Kind,
		Choices: q.Expected.Choices,
	}
}

type agentView struct {
	CellID      string             `json:"cell_id"`
	Detail      agent.Detail       `json:"detail"`
	Lines       int                `json:"lines"`
	Tags        []agent.Tag        `json:"tags"`
	Degraded    bool               `json:"degraded,omitempty"`
	Explanation *agent.Explanation `json:"explanation,omitempty"`
	Questions   map[string]int     `json:"questions"`
	HasVisual   bool               `json:"has_visual"`
	CreatedAt   time.Time          `json:"created_at"`
}

func newAgentView(a *agent.CellAgent) agentView {
	tiers := make(map[string]int)
	for _, q := range a.Quiz() {
		tiers[q.Tier.String()]++
	}
	facts := a.Facts()
	return agentView{
		CellID:      a.Cell().ID,
		Detail:      a.Detail(),
		Lines:       a.Cell().LineCount(),
		Tags:        facts.Tags,
		Degraded:    facts.Degraded,
		Explanation: a.Explanation(),
		Questions:   tiers,
		HasVisual:   a.HasVisual(),
		CreatedAt:   a.CreatedAt(),
	}
}

type resultView struct {
	SessionID   string                     `json:"session_id"`
	CellID      string                     `json:"cell_id"`
	State       runtime.State              `json:"state"`
	Explanation *agent.Explanation         `json:"explanation,omitempty"`
	Simplified  *agent.Simplification      `json:"simplified,omitempty"`
	VisualURL   string                     `json:"visual_url,omitempty"`
	Question    *questionView              `json:"question,omitempty"`
	Evaluation  *agent.Evaluation          `json:"evaluation,omitempty"`
	Learner     *registry.LearnerCellState `json:"learner,omitempty"`
	Answer      string                     `json:"answer,omitempty"`
}

func newResultView(s *runtime.Session, res runtime.Result) resultView {
	v := resultView{
		SessionID:   s.ID,
		CellID:      s.Agent.Cell().ID,
		State:       res.State,
		Explanation: res.Explanation,
		Simplified:  res.Simplified,
		Question:    newQuestionView(res.Question),
		Evaluation:  res.Evaluation,
		Learner:     res.Learner,
		Answer:      res.Answer,
	}
	if res.Image != nil {
		v.VisualURL = "/agents/" + s.Agent.Cell().ID + "/visual"
	}
	return v
}

type historyView struct {
	LearnerID string                    `json:"learner_id"`
	CellID    string                    `json:"cell_id"`
	Attempts  []agent.Attempt           `json:"attempts"`
	State     registry.LearnerCellState `json:"state"`
}
