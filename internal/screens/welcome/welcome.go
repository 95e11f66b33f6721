// Package welcome asks for the learner's name and opens a session.
package welcome

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tierloop/internal/router"
	"github.com/abhisek/tierloop/internal/screen"
	"github.com/abhisek/tierloop/internal/session"
	"github.com/abhisek/tierloop/internal/ui/components"
	"github.com/abhisek/tierloop/internal/ui/layout"
	"github.com/abhisek/tierloop/internal/ui/theme"
)

// Creator opens sessions.
type Creator interface {
	Create(ctx context.Context, identity session.Identity) (*session.Session, error)
}

// createdMsg reports the outcome of Create.
type createdMsg struct {
	ID  string
	Err error
}

// Screen collects a name and hands the new session to next.
type Screen struct {
	ctx      context.Context
	creator  Creator
	next     func(sessionID string) screen.Screen
	input    components.TextInput
	creating bool
	err      error
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
)

// New creates the welcome screen. next builds the screen that plays the
// created session.
func New(ctx context.Context, creator Creator, next func(sessionID string) screen.Screen) *Screen {
	return &Screen{
		ctx:     ctx,
		creator: creator,
		next:    next,
		input:   components.NewTextInput("Your name", 32),
	}
}

func (w *Screen) Init() tea.Cmd {
	return w.input.Init()
}

func (w *Screen) Title() string {
	return "Welcome"
}

func (w *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Start"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (w *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case createdMsg:
		w.creating = false
		if msg.Err != nil {
			w.err = msg.Err
			return w, nil
		}
		next := w.next(msg.ID)
		return w, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }

	case tea.KeyMsg:
		if msg.String() == "enter" {
			return w, w.create()
		}
	}

	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	return w, cmd
}

func (w *Screen) create() tea.Cmd {
	if w.creating {
		return nil
	}
	w.creating = true
	w.err = nil
	ctx, identity := w.ctx, session.Identity{Name: w.input.Value()}
	return func() tea.Msg {
		sess, err := w.creator.Create(ctx, identity)
		if err != nil {
			return createdMsg{Err: err}
		}
		return createdMsg{ID: sess.ID}
	}
}

func (w *Screen) View(width, height int) string {
	sections := []string{
		RenderBanner(width),
		"",
		theme.Body.Bold(true).Render("Three tiers. One bundle each. Practice rounds when you need them."),
		"",
		w.input.View(),
	}
	switch {
	case w.creating:
		sections = append(sections, "", theme.Hint.Render("Starting..."))
	case w.err != nil:
		sections = append(sections, "", theme.Incorrect.Render(w.err.Error()))
	default:
		sections = append(sections, "", theme.Hint.Render("type your name and press enter"))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
