package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/ui/theme"
)

var buildCmd = &cobra.Command{
	Use:   "build FILE",
	Short: "Build and persist a tutor agent for a code cell",
	Long: `Build inspects the cell, generates its explanation and quiz bank, renders
its diagram, and stores the agent so later commands reuse it. Use "-" to
read the cell from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("cell-id")
		cell, err := readCell(args[0], id)
		if err != nil {
			return err
		}

		bc := cfg.Build
		if cmd.Flags().Changed("detail") {
			v, _ := cmd.Flags().GetString("detail")
			bc.Detail = agent.Detail(v)
		}
		if cmd.Flags().Changed("quiz") {
			bc.QuizCount, _ = cmd.Flags().GetInt("quiz")
		}
		if cmd.Flags().Changed("visual") {
			bc.VisualEnabled, _ = cmd.Flags().GetBool("visual")
		}
		if err := bc.Validate(); err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		built, err := a.builder.Build(cmd.Context(), cell, bc)
		if err != nil {
			return err
		}
		if err := a.registry.SaveAgent(cmd.Context(), built); err != nil {
			return fmt.Errorf("save agent: %w", err)
		}

		out := cmd.OutOrStdout()
		lipgloss.Fprintln(out, theme.Title.Render("Agent "+cell.ID))
		lipgloss.Fprintln(out, theme.Field("Provider", a.provider))
		lipgloss.Fprintln(out, theme.Field("Detail", built.Detail()))
		lipgloss.Fprintln(out, theme.Field("Lines", cell.LineCount()))
		if facts := built.Facts(); facts.Degraded {
			lipgloss.Fprintln(out, theme.Warning.Render("Source could not be parsed; explanation uses raw lines only."))
		}
		lipgloss.Fprintln(out, theme.Field("Questions", len(built.Quiz())))
		if img := built.Visual(); img != nil {
			lipgloss.Fprintln(out, theme.Field("Diagram", orMemory(img.Path)))
			if img.AnimationPath != "" {
				lipgloss.Fprintln(out, theme.Field("Animation", img.AnimationPath))
			}
		} else if bc.VisualEnabled {
			lipgloss.Fprintln(out, theme.Warning.Render("No diagram could be drawn for this cell."))
		}
		lipgloss.Fprintln(out)
		lipgloss.Fprintln(out, theme.Explanation(built.Explanation()))
		return nil
	},
}

func orMemory(path string) string {
	if path == "" {
		return "(in memory)"
	}
	return path
}

func init() {
	buildCmd.Flags().String("cell-id", "", "Cell identifier (default: derived from the source)")
	buildCmd.Flags().String("detail", "", "Explanation detail: coarse or line-by-line")
	buildCmd.Flags().Int("quiz", 0, "Number of quiz questions to generate")
	buildCmd.Flags().Bool("visual", true, "Render a diagram of the cell")
}
