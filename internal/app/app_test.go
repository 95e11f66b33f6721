package app

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tierloop/internal/bundle"
	"github.com/abhisek/tierloop/internal/itembank"
	"github.com/abhisek/tierloop/internal/remediation"
	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/session"
)

func newModel(t *testing.T) Model {
	t.Helper()
	bank, err := itembank.Default(nil)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	svc := session.NewService(
		bundle.New(bank, bank.Lessons()),
		remediation.NewManager(bank, bank.Catalog()),
		review.NewComposer(bank.Catalog()),
	)
	return NewModel(context.Background(), svc)
}

func TestModel_StartsAtWelcome(t *testing.T) {
	m := newModel(t)
	if got := m.router.Active().Title(); got != "Welcome" {
		t.Errorf("active = %q, want Welcome", got)
	}
}

func TestModel_TooSmall(t *testing.T) {
	m := newModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if updated.(Model).width != 40 {
		t.Fatalf("size not recorded")
	}
	_ = updated.View()
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := newModel(t)
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
