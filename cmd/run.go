package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/builder"
	"github.com/abhisek/celltutor/internal/explain"
	"github.com/abhisek/celltutor/internal/inspector"
	"github.com/abhisek/celltutor/internal/llm"
	"github.com/abhisek/celltutor/internal/quiz"
	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/runtime"
	"github.com/abhisek/celltutor/internal/visual"
)

// app bundles the wired services a command needs.
type app struct {
	registry *registry.SQLite
	builder  *builder.Builder
	runtime  *runtime.Runtime
	provider string
}

func (a *app) Close() error {
	return a.registry.Close()
}

// openApp opens the store and builds all dependencies. Without a usable
// LLM key it falls back to the offline provider so every command works.
func openApp(cmd *cobra.Command) (*app, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	llmCfg := cfg.ResolveLLM()
	if llmCfg.Provider == "offline" {
		fmt.Fprintln(cmd.ErrOrStderr(), "No LLM provider configured; using the offline provider.")
	}
	return wire(cmd.Context(), dbPath, llmCfg, cfg.ArtifactDir, slog.Default())
}

func wire(ctx context.Context, dbPath string, llmCfg llm.Config, artifactDir string, logger *slog.Logger) (*app, error) {
	reg, err := registry.OpenSQLite(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := llm.NewProvider(ctx, llmCfg, reg.Store().EventRepo())
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("LLM provider: %w", err)
	}

	explainer := explain.NewService(provider, explain.DefaultConfig())
	questions := quiz.New(provider, quiz.DefaultConfig(), logger)
	b := builder.New(inspector.New(logger), explainer, questions, visual.NewPNGRenderer(artifactDir), logger)
	judge := quiz.NewLLMJudge(provider, quiz.DefaultJudgeConfig())

	return &app{
		registry: reg,
		builder:  b,
		runtime:  runtime.New(b, explainer, judge, reg, cfg.Runtime, logger),
		provider: llmCfg.Provider,
	}, nil
}

// loadOrBuild returns the persisted agent for cell, or builds and saves a
// new one. A persisted agent whose source differs is rebuilt.
func (a *app) loadOrBuild(ctx context.Context, cell agent.CodeCell, bc builder.Config) (*agent.CellAgent, bool, error) {
	if m, err := a.registry.LoadAgent(ctx, cell.ID); err == nil && m.Source == cell.Source {
		restored := agent.FromManifest(m, a.builder.Inspect(cell))
		if m.VisualPath != "" {
			if img, err := visual.Load(m.VisualPath); err == nil {
				restored.SetVisual(img)
			}
		}
		return restored, false, nil
	}

	built, err := a.builder.Build(ctx, cell, bc)
	if err != nil {
		return nil, false, err
	}
	if err := a.registry.SaveAgent(ctx, built); err != nil {
		slog.Warn("agent manifest not saved", "cell_id", cell.ID, "error", err)
	}
	return built, true, nil
}

// readCell reads a cell from path, or stdin when path is "-".
func readCell(path, id string) (agent.CodeCell, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return agent.CodeCell{}, fmt.Errorf("read cell: %w", err)
	}
	if len(data) == 0 {
		return agent.CodeCell{}, fmt.Errorf("read cell: %s is empty", path)
	}
	return agent.NewCodeCell(id, string(data)), nil
}
