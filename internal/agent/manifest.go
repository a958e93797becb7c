package agent

import "time"

// Manifest is the persisted form of a built agent. It lets a later process
// restore the agent without calling the capabilities again.
type Manifest struct {
	CellID      string         `json:"cell_id"`
	Source      string         `json:"source"`
	Detail      Detail         `json:"detail"`
	Explanation *Explanation   `json:"explanation,omitempty"`
	Quiz        []QuizQuestion `json:"quiz"`
	VisualPath  string         `json:"visual_path,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Manifest snapshots the agent's cached content.
func (a *CellAgent) Manifest() Manifest {
	m := Manifest{
		CellID:      a.cell.ID,
		Source:      a.cell.Source,
		Detail:      a.detail,
		Explanation: a.Explanation(),
		Quiz:        a.Quiz(),
		CreatedAt:   a.createdAt,
	}
	if img := a.Visual(); img != nil {
		m.VisualPath = img.Path
	}
	return m
}

// FromManifest restores an agent from a manifest. Facts are supplied by the
// caller since they are cheap to recompute and are not persisted. The
// visual is restored only by reference.
func FromManifest(m Manifest, facts Facts) *CellAgent {
	a := New(CodeCell{ID: m.CellID, Source: m.Source}, facts, m.Detail)
	if !m.CreatedAt.IsZero() {
		a.createdAt = m.CreatedAt
	}
	if m.Explanation != nil {
		a.SetExplanation(m.Explanation)
	}
	if m.Quiz != nil {
		a.SetQuiz(m.Quiz)
	}
	return a
}
