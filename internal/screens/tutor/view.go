package tutor

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/celltutor/internal/ui/theme"
)

type keyHint struct {
	Key         string
	Description string
}

func (m *Model) View() tea.View {
	return tea.NewView(m.render())
}

func (m *Model) render() string {
	if m.quitting {
		return m.renderSummary()
	}

	header := theme.Title.Render("celltutor") + " " + theme.Hint.Render(m.agent.Cell().ID)
	sections := []string{header, ""}

	switch m.mode {
	case modeLoading:
		sections = append(sections, theme.Hint.Render("Preparing the explanation..."))
	case modeReading:
		sections = append(sections, m.renderReading()...)
	case modeAsking:
		sections = append(sections, theme.Title.Render("Ask about this cell"), m.input.View())
	case modeAnswering:
		sections = append(sections, m.renderQuestion())
	case modeFeedback:
		sections = append(sections, m.renderFeedback())
	case modeRetry:
		sections = append(sections, theme.Warning.Render(
			fmt.Sprintf("Saving failed (%d of %d). Your answer is held until it is saved.", m.saveTries, MaxSaveRetries)))
	case modeIdle:
		sections = append(sections, m.renderIdle()...)
	}

	if m.notice != "" {
		sections = append(sections, "", theme.Warning.Render(m.notice))
	}
	if m.busy {
		sections = append(sections, "", theme.Hint.Render("Working..."))
	}
	if hints := m.keyHints(); len(hints) > 0 {
		sections = append(sections, "", renderHints(hints))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m *Model) renderReading() []string {
	out := []string{theme.Explanation(m.explanation)}
	if m.simplified != nil {
		out = append(out, "", theme.Title.Render("Put more simply"), theme.Card.Render(m.simplified.Text))
	}
	if m.diagram != "" {
		out = append(out, "", theme.Field("Diagram", m.diagram))
	}
	if m.reply != "" {
		out = append(out, "", theme.Title.Render("Answer"), m.reply)
	}
	return out
}

func (m *Model) renderQuestion() string {
	q := m.question
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n%s\n\n", theme.Title.Render(fmt.Sprintf("Question %d", m.asked+1)), theme.Tier(q.Tier), q.Prompt)
	if m.hasChoices() {
		b.WriteString(m.choice.View())
	} else {
		b.WriteString(m.input.View())
	}
	return b.String()
}

func (m *Model) renderFeedback() string {
	if m.evaluation == nil {
		return ""
	}
	out := theme.Verdict(m.evaluation)
	if q := m.answered; q != nil && !m.evaluation.Correct && q.Explanation != "" {
		out += "\n" + theme.Hint.Render(q.Explanation)
	}
	return out
}

func (m *Model) renderIdle() []string {
	out := []string{theme.Hint.Render("The quiz is over for now.")}
	if m.reply != "" {
		out = append(out, "", theme.Title.Render("Answer"), m.reply)
	}
	if m.asked > 0 {
		out = append(out, "", m.score())
	}
	return out
}

func (m *Model) renderSummary() string {
	if m.err != nil || m.asked == 0 {
		return ""
	}
	return m.score() + "\n"
}

func (m *Model) score() string {
	return theme.Title.Render(fmt.Sprintf("Summary: %d/%d correct", m.correct, m.asked))
}

func (m *Model) keyHints() []keyHint {
	if m.busy {
		return []keyHint{{"Ctrl+C", "Quit"}}
	}
	switch m.mode {
	case modeReading:
		return []keyHint{{"q", "Quiz"}, {"v", "Diagram"}, {"a", "Ask"}, {"Esc", "Quit"}}
	case modeAsking:
		return []keyHint{{"Enter", "Send"}, {"Esc", "Back"}}
	case modeAnswering:
		if m.hasChoices() {
			return []keyHint{{"↑↓", "Choose"}, {"Enter", "Submit"}, {"Esc", "Quit"}}
		}
		return []keyHint{{"Enter", "Submit"}, {"Esc", "Quit"}}
	case modeFeedback:
		return []keyHint{{"any key", "Continue"}}
	case modeRetry:
		return []keyHint{{"y", "Retry"}, {"n", "Quit"}}
	case modeIdle:
		return []keyHint{{"r", "Read again"}, {"a", "Ask"}, {"Esc", "Quit"}}
	}
	return nil
}

func renderHints(hints []keyHint) string {
	keyStyle := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = keyStyle.Render(h.Key) + " " + theme.Hint.Render(h.Description)
	}
	return strings.Join(parts, "  ")
}
