// Package builder turns a code cell into a ready CellAgent: it inspects the
// source, generates the explanation and quiz bank, and renders the visual.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/explain"
	"github.com/abhisek/celltutor/internal/inspector"
	"github.com/abhisek/celltutor/internal/llm"
	"github.com/abhisek/celltutor/internal/metrics"
	"github.com/abhisek/celltutor/internal/quiz"
	"github.com/abhisek/celltutor/internal/visual"
)

// Builder creates agents. It never reads learner history.
type Builder struct {
	inspector *inspector.Inspector
	explainer *explain.Service
	questions quiz.Generator
	renderer  visual.Renderer
	logger    *slog.Logger
}

// New creates a Builder. renderer may be nil, in which case agents are
// built without visuals.
func New(insp *inspector.Inspector, explainer *explain.Service, questions quiz.Generator, renderer visual.Renderer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if insp == nil {
		insp = inspector.New(logger)
	}
	return &Builder{
		inspector: insp,
		explainer: explainer,
		questions: questions,
		renderer:  renderer,
		logger:    logger,
	}
}

// Inspect returns the static facts for cell.
func (b *Builder) Inspect(cell agent.CodeCell) agent.Facts {
	return b.inspector.Inspect(cell)
}

// Build creates an agent for cell. The visual is rendered alongside the
// LLM work; its failure only leaves the agent without a visual. Any LLM
// failure aborts the build with ErrGenerationUnavailable.
func (b *Builder) Build(ctx context.Context, cell agent.CodeCell, cfg Config) (*agent.CellAgent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("build %s: %w", cell.ID, err)
	}
	ctx = llm.WithCell(ctx, cell.ID)

	start := time.Now()
	facts := b.inspector.Inspect(cell)
	a := agent.New(cell, facts, cfg.Detail)

	g, gctx := errgroup.WithContext(ctx)

	var img *visual.Image
	if cfg.VisualEnabled && b.renderer != nil {
		g.Go(func() error {
			img = b.tryRender(gctx, cell, facts)
			return nil
		})
	}

	var (
		expl *agent.Explanation
		bank []agent.QuizQuestion
	)
	g.Go(func() error {
		var err error
		expl, err = b.explanation(gctx, cell, facts, cfg.Detail)
		if err != nil {
			return err
		}
		bank, err = b.quizBank(gctx, cell, facts, expl.Summary, cfg.QuizCount)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build %s: %w", cell.ID, err)
	}

	a.SetExplanation(expl)
	a.SetQuiz(bank)
	a.SetVisual(img)

	metrics.AgentBuilt(string(cfg.Detail), a.HasVisual())
	b.logger.Info("agent built",
		"cell_id", cell.ID,
		"detail", string(cfg.Detail),
		"lines", cell.LineCount(),
		"questions", len(bank),
		"has_visual", a.HasVisual(),
		"degraded", facts.Degraded,
		"duration", time.Since(start))
	return a, nil
}

// EnsureExplanation generates and caches the explanation if the agent has
// none yet, and returns the cached value.
func (b *Builder) EnsureExplanation(ctx context.Context, a *agent.CellAgent) (*agent.Explanation, error) {
	if e := a.Explanation(); e != nil {
		return e, nil
	}
	ctx = llm.WithCell(ctx, a.Cell().ID)
	e, err := b.explanation(ctx, a.Cell(), a.Facts(), a.Detail())
	if err != nil {
		return nil, err
	}
	a.SetExplanation(e)
	return a.Explanation(), nil
}

// EnsureQuiz generates the quiz bank with count questions if the agent has
// none yet. An existing bank is never regenerated.
func (b *Builder) EnsureQuiz(ctx context.Context, a *agent.CellAgent, count int) ([]agent.QuizQuestion, error) {
	if a.HasQuiz() {
		return a.Quiz(), nil
	}
	ctx = llm.WithCell(ctx, a.Cell().ID)
	var summary string
	if e := a.Explanation(); e != nil {
		summary = e.Summary
	}
	bank, err := b.quizBank(ctx, a.Cell(), a.Facts(), summary, count)
	if err != nil {
		return nil, err
	}
	a.SetQuiz(bank)
	return a.Quiz(), nil
}

// RenderVisual returns the agent's visual, rendering and caching it first
// if needed. Failures are reported as ErrVisualUnavailable.
func (b *Builder) RenderVisual(ctx context.Context, a *agent.CellAgent) (*visual.Image, error) {
	if img := a.Visual(); img != nil {
		return img, nil
	}
	if b.renderer == nil {
		return nil, fmt.Errorf("%w: no renderer configured", agent.ErrVisualUnavailable)
	}
	img, err := b.renderer.Render(ctx, VisualSpec(a.Cell(), a.Facts()))
	if err != nil {
		metrics.VisualFailed()
		return nil, fmt.Errorf("%w: %w", agent.ErrVisualUnavailable, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nothing to draw for %s", agent.ErrVisualUnavailable, a.Cell().ID)
	}
	a.SetVisual(img)
	return a.Visual(), nil
}

func (b *Builder) tryRender(ctx context.Context, cell agent.CodeCell, facts agent.Facts) *visual.Image {
	img, err := b.renderer.Render(ctx, VisualSpec(cell, facts))
	if err != nil {
		metrics.VisualFailed()
		b.logger.Warn("visual render failed", "cell_id", cell.ID, "error", err)
		return nil
	}
	return img
}

func (b *Builder) explanation(ctx context.Context, cell agent.CodeCell, facts agent.Facts, detail agent.Detail) (*agent.Explanation, error) {
	summary, err := b.explainer.Summary(ctx, cell, facts)
	if err != nil {
		return nil, err
	}
	e := &agent.Explanation{Summary: summary}
	if detail == agent.DetailLineByLine {
		lines, err := b.explainer.Lines(ctx, cell)
		if err != nil {
			return nil, err
		}
		e.Lines = lines
	}
	return e, nil
}

func (b *Builder) quizBank(ctx context.Context, cell agent.CodeCell, facts agent.Facts, summary string, count int) ([]agent.QuizQuestion, error) {
	bank := make([]agent.QuizQuestion, 0, count)
	var prior []string
	for i, tier := range TierPlan(count) {
		q, err := quiz.GenerateOrFallback(ctx, b.questions, quiz.GenerateInput{
			Cell:           cell,
			Facts:          facts,
			Tier:           tier,
			Summary:        summary,
			PriorQuestions: prior,
		}, b.logger)
		if err != nil {
			return nil, err
		}
		q.ID = questionID(cell.ID, i, q.Prompt)
		bank = append(bank, *q)
		prior = append(prior, q.Prompt)
	}
	return bank, nil
}

// questionID derives a stable ID so identical builds produce identical
// banks.
func questionID(cellID string, i int, prompt string) string {
	name := fmt.Sprintf("celltutor:%s:%d:%s", cellID, i, prompt)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
