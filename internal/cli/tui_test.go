package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/specsync/pkg/annotation"
)

func pickerEntries() []ScreenEntry {
	return []ScreenEntry{
		{Project: "Checkout", Screen: annotation.Screen{ID: "s1", Name: "Cart"}, Annotations: 3},
		{Project: "Checkout", Screen: annotation.Screen{ID: "s2", Name: "Empty"}},
		{Project: "Account", Screen: annotation.Screen{ID: "s3", Name: "Profile"}, Annotations: 1},
	}
}

func press(m ScreenPicker, keys ...string) (ScreenPicker, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var model tea.Model
		model, cmd = m.Update(msg)
		m = model.(ScreenPicker)
	}
	return m, cmd
}

func TestScreenPickerNavigation(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		cursor int
	}{
		{"starts at top", nil, 0},
		{"down", []string{"down"}, 1},
		{"vim keys", []string{"j", "j", "k"}, 1},
		{"stops at bottom", []string{"down", "down", "down", "down"}, 2},
		{"stops at top", []string{"up", "up"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := press(NewScreenPicker(pickerEntries()), tt.keys...)
			if m.Cursor != tt.cursor {
				t.Errorf("cursor = %d, want %d", m.Cursor, tt.cursor)
			}
		})
	}
}

func TestScreenPickerSelect(t *testing.T) {
	m, cmd := press(NewScreenPicker(pickerEntries()), "down", "down", "enter")
	if m.Selected == nil || m.Selected.Screen.ID != "s3" {
		t.Fatalf("Selected = %+v, want s3", m.Selected)
	}
	if cmd == nil {
		t.Error("selecting should quit the program")
	}
}

func TestScreenPickerSkipsEmptyScreens(t *testing.T) {
	m, cmd := press(NewScreenPicker(pickerEntries()), "down", "enter")
	if m.Selected != nil || cmd != nil {
		t.Errorf("screen without annotations was selectable: %+v", m.Selected)
	}
}

func TestScreenPickerQuit(t *testing.T) {
	for _, key := range []string{"q", "esc"} {
		m, cmd := press(NewScreenPicker(pickerEntries()), key)
		if m.Selected != nil || cmd == nil {
			t.Errorf("%s: Selected = %+v, cmd nil = %v", key, m.Selected, cmd == nil)
		}
	}
}

func TestScreenPickerScrolls(t *testing.T) {
	m := NewScreenPicker(pickerEntries())
	model, _ := m.Update(tea.WindowSizeMsg{Height: 4})
	m = model.(ScreenPicker)
	if m.Height != 5 {
		t.Fatalf("Height = %d, want minimum 5", m.Height)
	}
	m.Height = 2
	m, _ = press(m, "down", "down")
	if m.Offset != 1 {
		t.Errorf("Offset = %d, want 1", m.Offset)
	}
	m, _ = press(m, "up", "up")
	if m.Offset != 0 {
		t.Errorf("Offset = %d, want 0", m.Offset)
	}
}

func TestScreenPickerView(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := pickerEntries()
	entries[0].Screen.UpdatedAt = now.Add(-2 * time.Hour)
	entries[0].Screen.ImageWidth, entries[0].Screen.ImageHeight = 1440, 900

	m := NewScreenPicker(entries)
	m.now = func() time.Time { return now }
	view := m.View()

	for _, want := range []string{"Select Screen", "Checkout", "Cart", "1440×900", "2h ago", "[1/3]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	if empty := NewScreenPicker(nil).View(); !strings.Contains(empty, "no screens yet") {
		t.Errorf("empty view = %q", empty)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{49 * time.Hour, "2d ago"},
		{30 * 24 * time.Hour, "Feb 8, 2026"},
	}
	for _, tt := range tests {
		if got := formatRelativeTime(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("formatRelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
