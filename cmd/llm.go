package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/llm"
	"github.com/abhisek/celltutor/internal/store"
	"github.com/abhisek/celltutor/internal/ui/theme"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM request/response events",
}

// openEvents opens the store and returns its event repo.
func openEvents(cmd *cobra.Command) (*store.Store, store.EventRepo, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return s, s.EventRepo(), nil
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, events, err := openEvents(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		list, err := events.QueryLLMRequests(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No LLM events found.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-16s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		lipgloss.Fprintln(out, theme.Rule(102))

		for _, e := range list {
			ok := theme.Correct.Render("✓")
			if !e.Success {
				ok = theme.Incorrect.Render("✗")
			}
			lipgloss.Fprintf(out, "%-5d  %-19s  %-16s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.Purpose, 16),
				truncate(e.Model, 28),
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View full request/response for an LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, events, err := openEvents(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := events.GetLLMRequest(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		out := cmd.OutOrStdout()
		lipgloss.Fprintln(out, theme.Field("ID", e.ID))
		lipgloss.Fprintln(out, theme.Field("Time", e.Timestamp.Local().Format("2006-01-02 15:04:05")))
		lipgloss.Fprintln(out, theme.Field("Provider", e.Provider))
		lipgloss.Fprintln(out, theme.Field("Model", e.Model))
		lipgloss.Fprintln(out, theme.Field("Purpose", e.Purpose))
		lipgloss.Fprintln(out, theme.Field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)))
		lipgloss.Fprintln(out, theme.Field("Latency", fmt.Sprintf("%dms", e.LatencyMs)))
		lipgloss.Fprintln(out, theme.Field("Success", e.Success))
		if e.ErrorMessage != "" {
			lipgloss.Fprintln(out, theme.Field("Error", theme.Incorrect.Render(e.ErrorMessage)))
		}

		for _, part := range []struct{ title, body string }{
			{"REQUEST", e.RequestBody},
			{"RESPONSE", e.ResponseBody},
		} {
			lipgloss.Fprintln(out)
			lipgloss.Fprintln(out, theme.Title.Render(part.title))
			lipgloss.Fprintln(out, theme.Rule(60))
			if part.body == "" {
				lipgloss.Fprintln(out, theme.Hint.Render("(not captured)"))
				continue
			}
			fmt.Fprintln(out, part.body)
		}
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, events, err := openEvents(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := events.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		lipgloss.Fprintln(out, theme.Title.Render("Usage by Purpose"))
		lipgloss.Fprintln(out, theme.Rule(80))
		fmt.Fprintf(out, "%-18s  %6s  %6s  %10s  %10s  %10s  %8s\n",
			"Purpose", "Calls", "Errors", "Input", "Output", "Total", "Avg Ms")
		lipgloss.Fprintln(out, theme.Rule(80))

		var totalCalls, totalErrs, totalIn, totalOut int
		for _, u := range byPurpose {
			fmt.Fprintf(out, "%-18s  %6d  %6d  %10d  %10d  %10d  %8.0f\n",
				truncate(u.Key, 18), u.Requests, u.Errors, u.InputTokens, u.OutputTokens,
				u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
			totalCalls += u.Requests
			totalErrs += u.Errors
			totalIn += u.InputTokens
			totalOut += u.OutputTokens
		}
		lipgloss.Fprintln(out, theme.Rule(80))
		fmt.Fprintf(out, "%-18s  %6d  %6d  %10d  %10d  %10d\n",
			"TOTAL", totalCalls, totalErrs, totalIn, totalOut, totalIn+totalOut)

		byModel, err := events.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		if len(byModel) == 0 {
			return nil
		}

		lipgloss.Fprintln(out)
		lipgloss.Fprintln(out, theme.Title.Render("Estimated Cost (USD)"))
		lipgloss.Fprintln(out, theme.Rule(80))
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
		lipgloss.Fprintln(out, theme.Rule(80))

		var totalCost float64
		var unknown []string
		for _, u := range byModel {
			cost := llm.LookupCost(u.Key)
			if cost == nil {
				unknown = append(unknown, u.Key)
				fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %10s\n",
					truncate(u.Key, 32), u.Requests, u.InputTokens, u.OutputTokens, "?")
				continue
			}
			c := cost.Cost(u.InputTokens, u.OutputTokens)
			totalCost += c
			fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %10s\n",
				truncate(u.Key, 32), u.Requests, u.InputTokens, u.OutputTokens, formatCost(c))
		}

		lipgloss.Fprintln(out, theme.Rule(80))
		label := "TOTAL"
		if len(unknown) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(totalCost))
		if len(unknown) > 0 {
			lipgloss.Fprintln(out, theme.Hint.Render("\nPricing unavailable for: "+strings.Join(unknown, ", ")))
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. explain-summary, quiz-gen, judge-answer)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
