package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signalboard/internal/domain"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Signal browser message types.
type browserSignalsMsg []domain.Signal
type browserSignalsErrMsg struct{ err error }
type signalLogsMsg struct {
	signalID string
	logs     []domain.SignalLogEntry
}
type signalLogsErrMsg struct{ err error }

// SignalBrowserModel is the Bubble Tea model for browsing the user's posted
// signals and their change history.
type SignalBrowserModel struct {
	services  Services
	signals   []domain.Signal
	serverIDs []string
	serverIdx int // 0 = all servers
	cursor    int
	logs      []domain.SignalLogEntry
	logsFor   string
	loading   bool
	err       error
	width     int
	height    int
}

func NewSignalBrowserModel(svc Services) SignalBrowserModel {
	return SignalBrowserModel{
		services: svc,
		loading:  true,
	}
}

// Init fires the initial signal fetch.
func (m SignalBrowserModel) Init() tea.Cmd {
	return m.fetchSignalsCmd()
}

// Update handles incoming messages.
func (m SignalBrowserModel) Update(msg tea.Msg) (SignalBrowserModel, tea.Cmd) {
	switch msg := msg.(type) {
	case browserSignalsMsg:
		m.signals = []domain.Signal(msg)
		m.serverIDs = collectServerIDs(m.signals)
		m.cursor = 0
		m.logs = nil
		m.logsFor = ""
		m.loading = false
		m.err = nil
		return m, nil

	case browserSignalsErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case signalLogsMsg:
		m.logs = msg.logs
		m.logsFor = msg.signalID
		return m, nil

	case signalLogsErrMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.CycleServer):
			m.serverIdx = (m.serverIdx + 1) % (len(m.serverIDs) + 1)
			m.loading = true
			return m, m.fetchSignalsCmd()

		case key.Matches(msg, DefaultKeyMap.Refresh):
			m.loading = true
			return m, m.fetchSignalsCmd()

		case key.Matches(msg, DefaultKeyMap.ShowLogs):
			if m.cursor < len(m.signals) {
				return m, m.fetchLogsCmd(m.signals[m.cursor].ID)
			}
			return m, nil

		case msg.String() == "j" || msg.String() == "down":
			if m.cursor < len(m.signals)-1 {
				m.cursor++
			}
			return m, nil

		case msg.String() == "k" || msg.String() == "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the signal browser.
func (m SignalBrowserModel) View() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("  Signals"))
	sections = append(sections, "  "+SubtextStyle.Render("Server: ")+m.serverLabel())
	sections = append(sections, SubtextStyle.Render("  "+strings.Repeat("─", 70)))

	if m.loading {
		sections = append(sections, SubtextStyle.Render("  Loading..."))
		return strings.Join(sections, "\n")
	}
	if m.err != nil {
		sections = append(sections, ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		return strings.Join(sections, "\n")
	}
	if len(m.signals) == 0 {
		sections = append(sections, SubtextStyle.Render("  No signals posted yet"))
		return strings.Join(sections, "\n")
	}

	sections = append(sections, SubtextStyle.Render(
		fmt.Sprintf("  %-10s %-6s %-10s %-10s %-10s %-6s %s",
			"Symbol", "Side", "Entry", "Target", "Stop", "R:R", "Posted"),
	))

	for i, s := range m.signals {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		sections = append(sections, marker+formatSignalRow(s))
	}

	if m.logsFor != "" {
		sections = append(sections, "")
		sections = append(sections, HeaderStyle.Render("  History for "+m.logsFor))
		if len(m.logs) == 0 {
			sections = append(sections, SubtextStyle.Render("  No edits"))
		}
		for _, e := range m.logs {
			sections = append(sections, fmt.Sprintf("  %s  TP %s → %s  SL %s → %s  by %s",
				e.UpdatedAt.Local().Format("01-02 15:04"),
				orDash(string(e.OldTakeProfit)), orDash(string(e.NewTakeProfit)),
				orDash(string(e.OldStopLoss)), orDash(string(e.NewStopLoss)),
				e.UpdatedBy,
			))
		}
	}

	sections = append(sections, "")
	sections = append(sections, SubtextStyle.Render("  [s] server  [l] history  [R] refresh  [j/k] move"))

	return strings.Join(sections, "\n")
}

// SetSize updates the model dimensions.
func (m *SignalBrowserModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SignalCount returns the number of loaded signals (for testing).
func (m SignalBrowserModel) SignalCount() int { return len(m.signals) }

func (m SignalBrowserModel) serverLabel() string {
	if m.serverIdx == 0 || m.serverIdx > len(m.serverIDs) {
		return "ALL"
	}
	return m.serverIDs[m.serverIdx-1]
}

func (m SignalBrowserModel) selectedServer() string {
	if m.serverIdx == 0 || m.serverIdx > len(m.serverIDs) {
		return ""
	}
	return m.serverIDs[m.serverIdx-1]
}

func (m SignalBrowserModel) fetchSignalsCmd() tea.Cmd {
	serverID := m.selectedServer()
	return func() tea.Msg {
		if m.services.Signals == nil {
			return browserSignalsErrMsg{err: fmt.Errorf("signal store not available")}
		}
		signals, err := m.services.Signals.ListByUser(context.Background(), m.services.UserID, serverID, 50)
		if err != nil {
			return browserSignalsErrMsg{err: err}
		}
		return browserSignalsMsg(signals)
	}
}

func (m SignalBrowserModel) fetchLogsCmd(signalID string) tea.Cmd {
	return func() tea.Msg {
		if m.services.Signals == nil {
			return signalLogsErrMsg{err: fmt.Errorf("signal store not available")}
		}
		logs, err := m.services.Signals.ListLogs(context.Background(), signalID)
		if err != nil {
			return signalLogsErrMsg{err: err}
		}
		return signalLogsMsg{signalID: signalID, logs: logs}
	}
}

func formatSignalRow(s domain.Signal) string {
	side := LongStyle.Render("LONG ")
	if s.PositionType == domain.PositionShort {
		side = ShortStyle.Render("SHORT")
	}
	posted := time.UnixMilli(s.Timestamp).Local().Format("01-02 15:04")
	return fmt.Sprintf("%-10s %s %-10s %-10s %-10s %-6s %s",
		s.CoinSymbol, side,
		orDash(string(s.EntryPrice)), orDash(string(s.TakeProfit)), orDash(string(s.StopLoss)),
		orDash(s.RiskRewardRatio), posted,
	)
}

func collectServerIDs(signals []domain.Signal) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range signals {
		if s.ServerID == "" {
			continue
		}
		if _, ok := seen[s.ServerID]; ok {
			continue
		}
		seen[s.ServerID] = struct{}{}
		out = append(out, s.ServerID)
	}
	return out
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
