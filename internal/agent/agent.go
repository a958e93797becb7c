package agent

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhisek/celltutor/internal/visual"
)

// CellAgent is the per-cell bundle of cached explanation, quiz bank, and
// visual. The cached fields are write-once: each is set at most once and
// read freely afterwards, so concurrent sessions can share an agent.
type CellAgent struct {
	cell      CodeCell
	facts     Facts
	detail    Detail
	createdAt time.Time

	explanation atomic.Pointer[Explanation]
	quiz        atomic.Pointer[[]QuizQuestion]
	visual      atomic.Pointer[visual.Image]

	mu         sync.Mutex
	simplified []Simplification
}

// New creates an agent with empty caches.
func New(cell CodeCell, facts Facts, detail Detail) *CellAgent {
	return &CellAgent{
		cell:      cell,
		facts:     facts,
		detail:    detail,
		createdAt: time.Now().UTC(),
	}
}

// Cell returns the agent's code cell.
func (a *CellAgent) Cell() CodeCell { return a.cell }

// Facts returns the inspector facts the agent was built from.
func (a *CellAgent) Facts() Facts { return a.facts }

// Detail returns the configured explanation detail.
func (a *CellAgent) Detail() Detail { return a.detail }

// CreatedAt returns when the agent was created.
func (a *CellAgent) CreatedAt() time.Time { return a.createdAt }

// Explanation returns the cached explanation, or nil if none is built yet.
func (a *CellAgent) Explanation() *Explanation {
	return a.explanation.Load()
}

// SetExplanation stores e if no explanation is cached yet. It returns
// false when an explanation was already present; the existing one wins.
func (a *CellAgent) SetExplanation(e *Explanation) bool {
	return a.explanation.CompareAndSwap(nil, e)
}

// Quiz returns a copy of the quiz bank, or nil if none is built yet.
func (a *CellAgent) Quiz() []QuizQuestion {
	q := a.quiz.Load()
	if q == nil {
		return nil
	}
	return slices.Clone(*q)
}

// HasQuiz reports whether the quiz bank has been generated, even if it is
// empty.
func (a *CellAgent) HasQuiz() bool {
	return a.quiz.Load() != nil
}

// SetQuiz stores the quiz bank if none is cached yet.
func (a *CellAgent) SetQuiz(questions []QuizQuestion) bool {
	bank := slices.Clone(questions)
	if bank == nil {
		bank = []QuizQuestion{}
	}
	return a.quiz.CompareAndSwap(nil, &bank)
}

// Question looks up a question in the bank by ID.
func (a *CellAgent) Question(id string) (QuizQuestion, bool) {
	q := a.quiz.Load()
	if q == nil {
		return QuizQuestion{}, false
	}
	for _, question := range *q {
		if question.ID == id {
			return question, true
		}
	}
	return QuizQuestion{}, false
}

// Visual returns the cached visual, or nil.
func (a *CellAgent) Visual() *visual.Image {
	return a.visual.Load()
}

// HasVisual reports whether a visual is cached.
func (a *CellAgent) HasVisual() bool {
	return a.visual.Load() != nil
}

// SetVisual stores img if no visual is cached yet.
func (a *CellAgent) SetVisual(img *visual.Image) bool {
	if img == nil {
		return false
	}
	return a.visual.CompareAndSwap(nil, img)
}

// AppendSimplification records a re-explanation alongside the original.
func (a *CellAgent) AppendSimplification(s Simplification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.simplified = append(a.simplified, s)
}

// Simplifications returns all recorded re-explanations, oldest first.
func (a *CellAgent) Simplifications() []Simplification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.simplified)
}
