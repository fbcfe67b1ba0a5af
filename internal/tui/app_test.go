package tui

import (
	"context"
	"testing"

	"signalboard/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

// --- stub services ---

type stubSignalQuerier struct {
	signals []domain.Signal
	logs    []domain.SignalLogEntry
	err     error

	lastServerID string
}

func (s *stubSignalQuerier) ListByUser(ctx context.Context, userID, serverID string, limit int) ([]domain.Signal, error) {
	s.lastServerID = serverID
	return s.signals, s.err
}

func (s *stubSignalQuerier) ListLogs(ctx context.Context, signalID string) ([]domain.SignalLogEntry, error) {
	return s.logs, s.err
}

type stubStatsQuerier struct {
	stats []domain.ServerStats
	err   error
}

func (s *stubStatsQuerier) AggregateByServer(ctx context.Context) ([]domain.ServerStats, error) {
	return s.stats, s.err
}

type stubSymbolQuerier struct {
	symbols []domain.SymbolDescriptor
	err     error
}

func (s *stubSymbolQuerier) Search(ctx context.Context, query string) ([]domain.SymbolDescriptor, error) {
	return s.symbols, s.err
}

func testServices() Services {
	return Services{
		Signals: &stubSignalQuerier{},
		Stats:   &stubStatsQuerier{},
		Symbols: &stubSymbolQuerier{},
		UserID:  "U1",
	}
}

func TestAppModelInitialTab(t *testing.T) {
	m := NewAppModel(testServices())
	if m.ActiveTab() != TabDashboard {
		t.Fatalf("expected TabDashboard, got %d", m.ActiveTab())
	}
}

func TestAppModelTabSwitchByNumber(t *testing.T) {
	m := NewAppModel(testServices())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	app := updated.(AppModel)
	if app.ActiveTab() != TabSignals {
		t.Fatalf("expected TabSignals after pressing 2, got %d", app.ActiveTab())
	}

	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	app = updated.(AppModel)
	if app.ActiveTab() != TabSymbols {
		t.Fatalf("expected TabSymbols after pressing 3, got %d", app.ActiveTab())
	}

	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	app = updated.(AppModel)
	if app.ActiveTab() != TabDashboard {
		t.Fatalf("expected TabDashboard after pressing 1, got %d", app.ActiveTab())
	}
}

func TestAppModelTabSwitchByTab(t *testing.T) {
	m := NewAppModel(testServices())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	app := updated.(AppModel)
	if app.ActiveTab() != TabSignals {
		t.Fatalf("expected TabSignals after Tab, got %d", app.ActiveTab())
	}

	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	app = updated.(AppModel)
	if app.ActiveTab() != TabDashboard {
		t.Fatalf("expected TabDashboard after Shift+Tab, got %d", app.ActiveTab())
	}
}

func TestAppModelWindowResize(t *testing.T) {
	m := NewAppModel(testServices())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	app := updated.(AppModel)
	if app.width != 100 || app.height != 50 {
		t.Fatalf("expected 100x50, got %dx%d", app.width, app.height)
	}
}

func TestAppModelRoutesMessagesToOwningScreen(t *testing.T) {
	m := NewAppModel(testServices())

	// Stats belong to the dashboard even while another tab is active.
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	app := updated.(AppModel)

	updated, _ = app.Update(statsMsg([]domain.ServerStats{{ServerID: "S1", TotalSignals: 3}}))
	app = updated.(AppModel)
	if len(app.dashboard.Stats()) != 1 {
		t.Fatalf("expected stats delivered to dashboard, got %d", len(app.dashboard.Stats()))
	}

	updated, _ = app.Update(browserSignalsMsg([]domain.Signal{{ID: "sig1", CoinSymbol: "BTC"}}))
	app = updated.(AppModel)
	if app.signals.SignalCount() != 1 {
		t.Fatalf("expected signals delivered to browser, got %d", app.signals.SignalCount())
	}

	updated, _ = app.Update(symbolsMsg([]domain.SymbolDescriptor{{Symbol: "BTCUSDT"}}))
	app = updated.(AppModel)
	if app.symbols.SymbolCount() != 1 {
		t.Fatalf("expected symbols delivered to directory, got %d", app.symbols.SymbolCount())
	}
}

func TestAppModelViewRendersWithoutPanic(t *testing.T) {
	m := NewAppModel(testServices())
	m.width = 120
	m.height = 40
	m.propagateSize()

	for _, tab := range []Tab{TabDashboard, TabSignals, TabSymbols} {
		m.activeTab = tab
		if m.View() == "" {
			t.Fatalf("expected non-empty view for tab %d", tab)
		}
	}
}
