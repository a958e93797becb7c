package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"charm.land/lipgloss/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/builder"
	"github.com/abhisek/celltutor/internal/llm"
	"github.com/abhisek/celltutor/internal/runtime"
	"github.com/abhisek/celltutor/internal/ui/theme"
)

const demoFactorial = `def factorial(n):
    if n == 0:
        return 1
    res = 1
    for i in range(1, n+1):
        res *= i
    return res`

const demoGreet = `def greet(name):
    return f"Hello, {name}"`

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build two sample agents offline and run a scripted session",
	Long: `Demo needs no API key and leaves your database alone: it works in a
temporary directory with the offline provider, builds agents for a
factorial cell and a greeting cell, and plays a short scripted session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetBool("keep")
		dir, err := os.MkdirTemp("", "celltutor-demo-")
		if err != nil {
			return err
		}
		if !keep {
			defer os.RemoveAll(dir)
		}

		llmCfg := llm.DefaultConfig()
		llmCfg.Provider = "offline"
		a, err := wire(cmd.Context(), filepath.Join(dir, "demo.db"), llmCfg, filepath.Join(dir, "visuals"), slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		lineCfg := builder.Config{Detail: agent.DetailLineByLine, QuizCount: 3, VisualEnabled: true}
		fact, err := a.builder.Build(ctx, agent.NewCodeCell("factorial", demoFactorial), lineCfg)
		if err != nil {
			return err
		}
		greet, err := a.builder.Build(ctx, agent.NewCodeCell("greet", demoGreet), builder.DefaultConfig())
		if err != nil {
			return err
		}
		for _, ag := range []*agent.CellAgent{fact, greet} {
			if err := a.registry.SaveAgent(ctx, ag); err != nil {
				return err
			}
		}
		lipgloss.Fprintln(out, theme.Title.Render("Built agents: "+fact.Cell().ID+", "+greet.Cell().ID))

		section(out, "Explanation of factorial")
		s, res, err := a.runtime.Start(ctx, fact, "demo")
		if err != nil {
			return err
		}
		lipgloss.Fprintln(out, theme.Explanation(res.Explanation))

		section(out, "Visual")
		if res, err := a.runtime.RequestVisual(ctx, s); err == nil {
			lipgloss.Fprintln(out, theme.Field("Diagram", orMemory(res.Image.Path)))
			if res.Image.AnimationPath != "" {
				lipgloss.Fprintln(out, theme.Field("Animation", res.Image.AnimationPath))
			}
		} else {
			lipgloss.Fprintln(out, theme.Warning.Render(err.Error()))
		}

		section(out, "Ask a question")
		res, err = a.runtime.Ask(ctx, s, "What happens when n is 0?")
		if err != nil {
			return err
		}
		lipgloss.Fprintln(out, res.Answer)

		section(out, "Quiz (first answer right, the rest wrong)")
		if err := demoQuiz(ctx, out, a.runtime, s); err != nil {
			return err
		}

		section(out, "Second visit")
		res, err = a.runtime.Explain(ctx, s)
		if err != nil {
			return err
		}
		if res.Simplified != nil {
			lipgloss.Fprintln(out, theme.Card.Render(res.Simplified.Text))
		} else {
			lipgloss.Fprintln(out, theme.Hint.Render("No simplification needed."))
		}
		if res.Learner != nil {
			lipgloss.Fprintln(out, theme.Field("Pass rate", theme.Bar(res.Learner.PassRate, 20)))
		}

		if keep {
			lipgloss.Fprintln(out)
			lipgloss.Fprintln(out, theme.Field("Kept", dir))
		}
		return nil
	},
}

func demoQuiz(ctx context.Context, out io.Writer, rt *runtime.Runtime, s *runtime.Session) error {
	res, err := rt.StartQuiz(ctx, s)
	if err != nil {
		return err
	}
	for n := 1; res.Question != nil; n++ {
		q := res.Question
		lipgloss.Fprintln(out, theme.Question(n, q))

		answer := "Yes"
		if n == 1 {
			answer = q.Expected.Answer
		}
		lipgloss.Fprintln(out, theme.Hint.Render("> "+answer))

		res, err = rt.SubmitAnswer(ctx, s, answer, uuid.NewString())
		if err != nil {
			return err
		}
		lipgloss.Fprintln(out, theme.Verdict(res.Evaluation))
		lipgloss.Fprintln(out)
	}
	return nil
}

func section(out io.Writer, title string) {
	lipgloss.Fprintln(out)
	lipgloss.Fprintln(out, theme.Title.Render(title))
	lipgloss.Fprintln(out, theme.Rule(len(title)))
}

func init() {
	demoCmd.Flags().Bool("keep", false, "Keep the temporary database and diagrams")
}
