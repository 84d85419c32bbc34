package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/seam-io/seam/archive"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_archives":
		content = m.renderStatsArchives()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsArchives() string {
	data, ok := m.data.(*archive.Stats)
	if !ok {
		return "Invalid data type for stats_archives"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Archive Statistics"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Archives", data.Archives, highlightColor),
		m.renderStatBox("Segments", data.Segments, highlightColor),
		m.renderStatBox("Partial", data.Partial, errorColor),
		m.renderStatBox("Updated", data.Updated, successColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Total Size:"),
		ValueStyle.Render(fmt.Sprintf("%d bytes", data.TotalBytes))))
	if data.Truncated > 0 {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Truncated:"),
			WarningStyle.Render(fmt.Sprintf("%d", data.Truncated))))
	}

	if len(data.Kinds) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("By Kind"))
		b.WriteString("\n")
		kinds := make([]string, 0, len(data.Kinds))
		for kind := range data.Kinds {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render(kind+":"),
				ValueStyle.Render(fmt.Sprintf("%d", data.Kinds[kind]))))
		}
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
