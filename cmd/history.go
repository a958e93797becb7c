package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/runtime"
	"github.com/abhisek/celltutor/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a learner's attempts on a cell and the derived state",
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")
		cellID, _ := cmd.Flags().GetString("cell")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		reg, err := registry.OpenSQLite(dbPath, nil)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer reg.Close()

		out := cmd.OutOrStdout()
		if learner == "" {
			learners, err := reg.Learners(cmd.Context(), cellID)
			if err != nil {
				return err
			}
			if len(learners) == 0 {
				fmt.Fprintf(out, "No attempts recorded on %s.\n", cellID)
				return nil
			}
			lipgloss.Fprintln(out, theme.Title.Render("Learners on "+cellID))
			for _, l := range learners {
				fmt.Fprintln(out, " ", l)
			}
			return nil
		}

		history, err := reg.History(cmd.Context(), learner, cellID)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Fprintf(out, "No attempts by %s on %s.\n", learner, cellID)
			return nil
		}

		fmt.Fprintf(out, "%-6s  %-19s  %-8s  %-4s  %s\n", "Seq", "Timestamp", "Tier", "OK", "Answer")
		lipgloss.Fprintln(out, theme.Rule(72))
		for _, at := range history {
			ok := theme.Correct.Render("✓")
			if !at.Correct {
				ok = theme.Incorrect.Render("✗")
			}
			lipgloss.Fprintf(out, "%-6d  %-19s  %-8s  %-4s  %s\n",
				at.Sequence,
				at.Timestamp.Local().Format("2006-01-02 15:04:05"),
				at.Tier,
				ok,
				truncate(at.Answer, 28))
		}

		window := cfg.Runtime.Window
		if window == 0 {
			window = runtime.DefaultConfig().Window
		}
		st := registry.Derive(history, window)
		target := runtime.TargetTier(st)

		lipgloss.Fprintln(out)
		lipgloss.Fprintln(out, theme.Field("Attempts", fmt.Sprintf("%d (%d correct)", st.Attempts, st.Correct)))
		lipgloss.Fprintln(out, theme.Field("Pass rate", theme.Bar(st.PassRate, 20)))
		lipgloss.Fprintln(out, theme.Field("Recent", fmt.Sprintf("%.0f%% over %d", st.RecentPassRate*100, st.RecentCount)))
		if st.PreviousCount > 0 {
			lipgloss.Fprintln(out, theme.Field("Previous", fmt.Sprintf("%.0f%% over %d", st.PreviousPassRate*100, st.PreviousCount)))
		}
		lipgloss.Fprintln(out, theme.Field("Next tier", theme.Tier(target)))
		return nil
	},
}

func init() {
	historyCmd.Flags().String("learner", "", "Learner identifier (omit to list learners)")
	historyCmd.Flags().String("cell", "", "Cell identifier (required)")
	_ = historyCmd.MarkFlagRequired("cell")
}
