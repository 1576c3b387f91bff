package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/specsync/pkg/annotation"
)

var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// ScreenPicker - Interactive screen selection
// =============================================================================

// ScreenEntry is one row of the picker.
type ScreenEntry struct {
	Project     string
	Screen      annotation.Screen
	Annotations int
}

// ScreenPicker is the bubbletea model for choosing the screen to export.
// Screens without annotations are listed but cannot be chosen.
type ScreenPicker struct {
	Entries  []ScreenEntry
	Cursor   int
	Offset   int
	Height   int
	Selected *ScreenEntry

	now func() time.Time
}

// NewScreenPicker creates a picker over entries.
func NewScreenPicker(entries []ScreenEntry) ScreenPicker {
	return ScreenPicker{Entries: entries, Height: 15, now: time.Now}
}

func (m ScreenPicker) Init() tea.Cmd {
	return nil
}

func (m ScreenPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				m.Offset = min(m.Offset, m.Cursor)
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Entries) == 0 || m.Entries[m.Cursor].Annotations == 0 {
				return m, nil
			}
			e := m.Entries[m.Cursor]
			m.Selected = &e
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m ScreenPicker) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Screen"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ export  q quit"))
	b.WriteString("\n\n")

	if len(m.Entries) == 0 {
		b.WriteString(listDimStyle.Render("  no screens yet"))
		b.WriteString("\n")
		return b.String()
	}

	now := time.Now
	if m.now != nil {
		now = m.now
	}

	end := min(m.Offset+m.Height, len(m.Entries))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		size := fmt.Sprintf("%d×%d", e.Screen.ImageWidth, e.Screen.ImageHeight)
		rows = append(rows, []string{
			cursor,
			e.Project,
			e.Screen.Name,
			size,
			strconv.Itoa(e.Annotations),
			formatRelativeTime(e.Screen.UpdatedAt, now()),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Project", "Screen", "Size", "Notes", "Updated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return listHeaderStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Entries) {
				return lipgloss.NewStyle()
			}
			style := lipgloss.NewStyle()
			if m.Entries[idx].Annotations == 0 {
				style = style.Foreground(colorDim)
			} else if col >= 3 {
				style = style.Foreground(colorGray)
			} else {
				style = style.Foreground(colorGreen)
			}
			if idx == m.Cursor {
				style = style.Bold(true)
			}
			return style
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}
