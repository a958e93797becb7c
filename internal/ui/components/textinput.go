package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// TextInput is a focused single-line input for answers and questions.
type TextInput struct {
	Model textinput.Model
}

// NewTextInput returns a focused input. A limit of zero means no limit.
func NewTextInput(placeholder string, limit int) TextInput {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	if limit > 0 {
		ti.CharLimit = limit
	}
	ti.Focus()
	return TextInput{Model: ti}
}

func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

func (t TextInput) View() string {
	return t.Model.View()
}

// Value returns the trimmed input.
func (t TextInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// Reset clears the input and keeps focus.
func (t *TextInput) Reset() {
	t.Model.Reset()
}
