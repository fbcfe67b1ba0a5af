package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signalboard/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Dashboard message types.
type statsMsg []domain.ServerStats
type statsErrMsg struct{ err error }
type dashTickMsg time.Time

// DashboardModel is the Bubble Tea model for the server activity screen.
type DashboardModel struct {
	services Services
	stats    []domain.ServerStats
	loading  bool
	err      error
	width    int
	height   int
}

func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

// Init fires the initial data fetch.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchStatsCmd(), m.tickCmd())
}

// Update handles incoming messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsMsg:
		m.stats = []domain.ServerStats(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case statsErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(m.fetchStatsCmd(), m.tickCmd())
	}

	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	if m.loading && len(m.stats) == 0 {
		return SubtextStyle.Render("Loading server activity...")
	}
	if m.err != nil && len(m.stats) == 0 {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	table := m.renderStatsTable()
	width := m.width - 2
	if width < 50 {
		width = 50
	}
	box := BorderStyle.Width(width).Render(table)
	return lipgloss.JoinVertical(lipgloss.Left, box)
}

// SetSize updates the model dimensions.
func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Stats returns the loaded stats (for testing).
func (m DashboardModel) Stats() []domain.ServerStats { return m.stats }

func (m DashboardModel) renderStatsTable() string {
	var lines []string
	lines = append(lines, HeaderStyle.Render("  Server Activity"))
	lines = append(lines, SubtextStyle.Render("  Server ID             Signals   Last Signal"))
	lines = append(lines, SubtextStyle.Render("  "+strings.Repeat("─", 48)))

	for _, s := range m.stats {
		last := "never"
		if s.LastSignalTime > 0 {
			last = time.UnixMilli(s.LastSignalTime).Local().Format("2006-01-02 15:04")
		}
		lines = append(lines, fmt.Sprintf("  %-20s  %7d   %s", s.ServerID, s.TotalSignals, last))
	}

	if len(m.stats) == 0 {
		lines = append(lines, SubtextStyle.Render("  No server activity yet"))
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) fetchStatsCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Stats == nil {
			return statsErrMsg{err: fmt.Errorf("stats service not available")}
		}
		stats, err := m.services.Stats.AggregateByServer(context.Background())
		if err != nil {
			return statsErrMsg{err: err}
		}
		return statsMsg(stats)
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(15*time.Second, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}
