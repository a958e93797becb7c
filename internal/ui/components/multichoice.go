package components

import (
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/celltutor/internal/ui/theme"
)

// MultiChoice selects one of a question's choices with the arrow keys or
// by number.
type MultiChoice struct {
	Options   []string
	Selected  int
	Submitted bool
}

func NewMultiChoice(options []string) MultiChoice {
	return MultiChoice{Options: options}
}

// Update moves the cursor on up/down (or k/j). Enter submits the
// highlighted option; a digit key selects and submits in one step.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Submitted || len(m.Options) == 0 {
		return m, nil
	}
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter":
		m.Submitted = true
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.Options) {
			m.Selected = n - 1
			m.Submitted = true
		}
	}
	return m, nil
}

func (m MultiChoice) View() string {
	var b strings.Builder
	for i, opt := range m.Options {
		prefix := "  "
		style := lipgloss.NewStyle()
		if i == m.Selected {
			prefix = "▸ "
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%d) %s", prefix, i+1, opt)))
		if i < len(m.Options)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Value is the text of the selected option.
func (m MultiChoice) Value() string {
	if m.Selected < 0 || m.Selected >= len(m.Options) {
		return ""
	}
	return m.Options[m.Selected]
}
