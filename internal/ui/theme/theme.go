// Package theme holds the lipgloss styles used by the command-line output.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/celltutor/internal/agent"
)

// Palette
var (
	Primary = lipgloss.Color("#6366F1") // Indigo
	Code    = lipgloss.Color("#38BDF8") // Sky
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	Warn    = lipgloss.Color("#F59E0B") // Amber
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(12)

	Source = lipgloss.NewStyle().
		Foreground(Code)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(Warn)
)

var tierStyles = map[agent.Tier]lipgloss.Style{
	agent.TierEasy:   lipgloss.NewStyle().Foreground(Success),
	agent.TierMedium: lipgloss.NewStyle().Foreground(Warn),
	agent.TierHard:   lipgloss.NewStyle().Foreground(Error),
}

// Tier renders a tier badge such as "[hard]".
func Tier(t agent.Tier) string {
	return tierStyles[t].Render("[" + t.String() + "]")
}

// Field renders a "label  value" row.
func Field(label string, value any) string {
	return Label.Render(label) + fmt.Sprint(value)
}

// Rule returns a horizontal separator of width n.
func Rule(n int) string {
	return lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", n))
}

// Explanation renders a summary followed by any per-line notes, each next
// to its source line.
func Explanation(e *agent.Explanation) string {
	if e == nil {
		return Hint.Render("(no explanation)")
	}
	var b strings.Builder
	b.WriteString(e.Summary)
	if len(e.Lines) > 0 {
		b.WriteString("\n")
		for _, l := range e.Lines {
			text := l.Text
			if l.Placeholder {
				text = Hint.Render(text)
			}
			fmt.Fprintf(&b, "\n%3d %s\n    %s", l.Index+1, Source.Render(l.Source), text)
		}
	}
	return Card.Render(b.String())
}

// Question renders a quiz prompt with its numbered choices.
func Question(n int, q *agent.QuizQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n%s", Title.Render(fmt.Sprintf("Question %d", n)), Tier(q.Tier), q.Prompt)
	for i, c := range q.Expected.Choices {
		fmt.Fprintf(&b, "\n  %d) %s", i+1, c)
	}
	return b.String()
}

// Verdict renders an evaluation outcome with its feedback.
func Verdict(e *agent.Evaluation) string {
	if e.Correct {
		return Correct.Render("✓ ") + e.Feedback
	}
	return Incorrect.Render("✗ ") + e.Feedback
}

// Bar renders a pass-rate bar of the given width followed by a percentage.
func Bar(rate float64, width int) string {
	width = max(width, 4)
	filled := min(max(int(float64(width)*rate), 0), width)
	return lipgloss.NewStyle().Foreground(Success).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", rate*100)
}
