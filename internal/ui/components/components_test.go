package components

import (
	"testing"

	tea "charm.land/bubbletea/v2"
)

func key(s string) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: rune(s[0]), Text: s}
}

func TestMultiChoice_Navigation(t *testing.T) {
	m := NewMultiChoice("2 + 2?", []string{"3", "4", "5", "6"})
	m = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	m = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	m = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if m.Cursor != 1 {
		t.Fatalf("Cursor = %d, want 1", m.Cursor)
	}
	m = m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if !m.Answered || m.Chosen != 1 {
		t.Fatalf("Answered=%v Chosen=%d, want true/1", m.Answered, m.Chosen)
	}

	// Answered selectors ignore input.
	m = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.Cursor != 1 {
		t.Errorf("cursor moved after answer")
	}
}

func TestMultiChoice_Shortcuts(t *testing.T) {
	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"a", 0, true},
		{"d", 3, true},
		{"3", 2, true},
		{"e", -1, false},
		{"9", -1, false},
		{"?", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := NewMultiChoice("q", []string{"w", "x", "y", "z"}).Update(key(tt.key))
			if m.Answered != tt.ok || m.Chosen != tt.want {
				t.Errorf("Answered=%v Chosen=%d, want %v/%d", m.Answered, m.Chosen, tt.ok, tt.want)
			}
		})
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		done, total int
		want        float64
	}{
		{0, 5, 0},
		{5, 5, 1},
		{2, 4, 0.5},
		{3, 0, 0},
		{9, 3, 1},
	}
	for _, tt := range tests {
		p := ProgressBar{Done: tt.done, Total: tt.total, Width: 30}
		if got := p.Fraction(); got != tt.want {
			t.Errorf("Fraction(%d/%d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
		if p.View() == "" {
			t.Errorf("empty view")
		}
	}
}
