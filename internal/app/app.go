// Package app is the root of the terminal play client.
package app

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tierloop/internal/router"
	"github.com/abhisek/tierloop/internal/screen"
	"github.com/abhisek/tierloop/internal/screens/play"
	"github.com/abhisek/tierloop/internal/screens/welcome"
	"github.com/abhisek/tierloop/internal/session"
	"github.com/abhisek/tierloop/internal/ui/layout"
)

// Engine is everything the client needs from the session service.
type Engine interface {
	welcome.Creator
	play.Engine
}

var _ Engine = (*session.Service)(nil)

// Model is the root Bubble Tea model.
type Model struct {
	router *router.Router
	width  int
	height int
}

// NewModel starts at the welcome screen; the created session is played
// against engine.
func NewModel(ctx context.Context, engine Engine) Model {
	next := func(id string) screen.Screen { return play.New(ctx, engine, id) }
	return Model{router: router.New(welcome.New(ctx, engine, next))}
}

func (m Model) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, m.router.Update(msg)
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	var status string
	if sp, ok := active.(screen.StatusProvider); ok {
		status = sp.Status()
	}
	hints := []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		hints = hp.KeyHints()
	}

	header := layout.RenderHeader(active.Title(), status, m.width)
	footer := layout.RenderFooter(hints, m.width)
	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the client and blocks until the learner quits.
func Run(ctx context.Context, engine Engine) error {
	_, err := tea.NewProgram(NewModel(ctx, engine), tea.WithContext(ctx)).Run()
	return err
}
