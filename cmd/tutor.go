package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/screens/tutor"
)

var tutorCmd = &cobra.Command{
	Use:   "tutor FILE",
	Short: "Run an interactive tutoring session on a code cell",
	Long: `Tutor explains the cell, then quizzes you with questions that adapt to
your results. The agent is built on first use and reused afterwards.

While reading the explanation press q to start the quiz, v to render the
diagram, a to ask about the code, and Esc to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")
		id, _ := cmd.Flags().GetString("cell-id")
		logFile, _ := cmd.Flags().GetString("log-file")
		if args[0] == "-" {
			return fmt.Errorf("tutor reads answers from the terminal; pass the cell as a file")
		}
		cell, err := readCell(args[0], id)
		if err != nil {
			return err
		}

		// Log lines would tear the terminal UI.
		logOut := io.Discard
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
		prev := slog.Default()
		slog.SetDefault(newLogger(logOut, cfg.Log))
		defer slog.SetDefault(prev)

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ag, built, err := a.loadOrBuild(cmd.Context(), cell, cfg.Build)
		if err != nil {
			return err
		}
		if built {
			fmt.Fprintln(cmd.ErrOrStderr(), "Built agent", cell.ID)
		}

		m := tutor.New(cmd.Context(), a.runtime, ag, learner)
		final, err := tea.NewProgram(m,
			tea.WithContext(cmd.Context()),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()),
		).Run()
		if err != nil {
			return fmt.Errorf("run session: %w", err)
		}
		if fm, ok := final.(*tutor.Model); ok {
			return fm.Err()
		}
		return nil
	},
}

func init() {
	tutorCmd.Flags().String("learner", "", "Learner identifier (required)")
	tutorCmd.Flags().String("cell-id", "", "Cell identifier (default: derived from the source)")
	tutorCmd.Flags().String("log-file", "", "Write logs here while the session runs (default: discard)")
	_ = tutorCmd.MarkFlagRequired("learner")
}
