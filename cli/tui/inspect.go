package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/seam-io/seam/archive"
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_archive":
		content = m.renderInspectArchive()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectArchive() string {
	data, ok := m.data.(*archive.Summary)
	if !ok {
		return "Invalid data type for inspect_archive"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Capture Archive"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Session", data.Header.SessionID},
		{"Title", data.Header.Title},
		{"Kind", data.Header.Kind},
		{"Type", data.Header.CaptureType},
		{"Parts", fmt.Sprintf("%d", data.Header.TotalParts)},
		{"Size", fmt.Sprintf("%d bytes", data.Header.TotalSize)},
		{"Created", data.Header.CreatedAt},
	}
	if data.Header.ConversationID != "" {
		rows = append(rows,
			[]string{"Conversation", data.Header.ConversationID},
			[]string{"Platform", data.Header.Platform})
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render(row[0]+":"),
			ValueStyle.Render(row[1])))
	}

	outcome := "complete"
	if data.Index != nil && data.Index.Partial {
		outcome = "partial"
	}
	if data.Truncated {
		outcome = "truncated"
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Outcome:"),
		OutcomeStyle(outcome).Render(outcome)))

	if len(data.Segments) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Segments"))
		b.WriteString("\n")
		for _, seg := range data.Segments {
			state := "written"
			id := seg.RecordID
			if id == "" {
				state = "unwritten"
				id = "-"
			}
			b.WriteString(fmt.Sprintf("  • part %d  %s  %s  %s\n",
				seg.PartNumber,
				ValueStyle.Render(id),
				ValueStyle.Render(fmt.Sprintf("%d bytes", seg.SizeBytes)),
				OutcomeStyle(state).Render(state)))
		}
	}

	if data.Index != nil && data.Index.IndexID != "" {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Index:"),
			ValueStyle.Render(data.Index.IndexID)))
	}
	if data.Index != nil && data.Index.FailureReason != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Failure:"),
			ErrorStyle.Render(data.Index.FailureReason)))
	}

	return BoxStyle.Render(b.String())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
