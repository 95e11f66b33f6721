// Package components holds reusable widgets for the play client.
package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tierloop/internal/ui/theme"
)

var choiceLabels = []string{"A", "B", "C", "D", "E", "F"}

// MultiChoice selects one option. Answers are graded by the engine, so the
// widget never knows the correct option.
type MultiChoice struct {
	Prompt   string
	Options  []string
	Cursor   int
	Chosen   int
	Answered bool
}

// NewMultiChoice creates a selector with the cursor on the first option.
func NewMultiChoice(prompt string, options []string) MultiChoice {
	return MultiChoice{Prompt: prompt, Options: options, Chosen: -1}
}

// Update moves the cursor with arrows or j/k, picks with enter, and jumps
// straight to an option with its letter or number.
func (m MultiChoice) Update(msg tea.Msg) MultiChoice {
	if m.Answered {
		return m
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m
	case "down", "j":
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
		return m
	case "enter":
		m.choose(m.Cursor)
		return m
	}
	if i, ok := optionIndex(key, len(m.Options)); ok {
		m.choose(i)
	}
	return m
}

func (m *MultiChoice) choose(i int) {
	m.Cursor = i
	m.Chosen = i
	m.Answered = true
}

// optionIndex maps "a".."d" and "1".."4" onto option indexes.
func optionIndex(key string, n int) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	c := key[0]
	var i int
	switch {
	case c >= 'a' && c <= 'z':
		i = int(c - 'a')
	case c >= '1' && c <= '9':
		i = int(c - '1')
	default:
		return 0, false
	}
	return i, i < n
}

// View renders the prompt and options.
func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(theme.Body.Bold(true).Render(m.Prompt))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		label := "?"
		if i < len(choiceLabels) {
			label = choiceLabels[i]
		}
		prefix := "  "
		if i == m.Cursor && !m.Answered {
			prefix = "▸ "
		}
		line := prefix + label + ")  " + opt

		switch {
		case m.Answered && i == m.Chosen:
			line = theme.Chosen.Render(line)
		case m.Answered:
			line = theme.Muted.Render(line)
		case i == m.Cursor:
			line = theme.Selected.Render(line)
		default:
			line = theme.Body.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
