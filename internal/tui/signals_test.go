package tui

import (
	"strings"
	"testing"
	"time"

	"signalboard/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

func browserTestSignals() []domain.Signal {
	return []domain.Signal{
		{
			ID:              "sig1",
			Timestamp:       1735689600000,
			CoinSymbol:      "BTC",
			PositionType:    domain.PositionLong,
			EntryPrice:      "100",
			TakeProfit:      "120",
			StopLoss:        "90",
			RiskRewardRatio: "2.00",
			ServerID:        "S1",
		},
		{
			ID:           "sig2",
			Timestamp:    1735603200000,
			CoinSymbol:   "ETH",
			PositionType: domain.PositionShort,
			EntryPrice:   "3000",
			ServerID:     "S2",
		},
	}
}

func TestSignalBrowserLoadsSignals(t *testing.T) {
	m := NewSignalBrowserModel(testServices())
	m.SetSize(120, 40)

	updated, _ := m.Update(browserSignalsMsg(browserTestSignals()))
	if updated.SignalCount() != 2 {
		t.Fatalf("expected 2 signals, got %d", updated.SignalCount())
	}
	if len(updated.serverIDs) != 2 {
		t.Fatalf("expected 2 distinct servers, got %v", updated.serverIDs)
	}

	view := updated.View()
	if !strings.Contains(view, "BTC") || !strings.Contains(view, "ETH") {
		t.Fatalf("expected both signals rendered:\n%s", view)
	}
}

func TestSignalBrowserCursorMovement(t *testing.T) {
	m := NewSignalBrowserModel(testServices())
	m, _ = m.Update(browserSignalsMsg(browserTestSignals()))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.cursor != 1 {
		t.Fatalf("expected cursor 1 after j, got %d", m.cursor)
	}
	// Clamped at the last row.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.cursor != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", m.cursor)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if m.cursor != 0 {
		t.Fatalf("expected cursor 0 after k, got %d", m.cursor)
	}
}

func TestSignalBrowserServerCycleRefetches(t *testing.T) {
	store := &stubSignalQuerier{signals: browserTestSignals()}
	svc := testServices()
	svc.Signals = store

	m := NewSignalBrowserModel(svc)
	m, _ = m.Update(browserSignalsMsg(browserTestSignals()))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd == nil {
		t.Fatal("expected server cycle to schedule a refetch")
	}
	if msg := cmd(); msg == nil {
		t.Fatal("expected refetch command to produce a message")
	}
	if store.lastServerID != "S1" {
		t.Fatalf("expected refetch scoped to S1, got %q", store.lastServerID)
	}
	if m.serverLabel() != "S1" {
		t.Fatalf("expected server label S1, got %q", m.serverLabel())
	}
}

func TestSignalBrowserShowsHistory(t *testing.T) {
	logs := []domain.SignalLogEntry{{
		OldTakeProfit: "120",
		NewTakeProfit: "130",
		OldStopLoss:   "90",
		NewStopLoss:   "90",
		UpdatedAt:     time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		UpdatedBy:     "U1",
	}}
	store := &stubSignalQuerier{signals: browserTestSignals(), logs: logs}
	svc := testServices()
	svc.Signals = store

	m := NewSignalBrowserModel(svc)
	m, _ = m.Update(browserSignalsMsg(browserTestSignals()))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	if cmd == nil {
		t.Fatal("expected history fetch scheduled")
	}
	msg, ok := cmd().(signalLogsMsg)
	if !ok {
		t.Fatalf("expected signalLogsMsg, got %T", msg)
	}
	if msg.signalID != "sig1" || len(msg.logs) != 1 {
		t.Fatalf("unexpected logs message: %+v", msg)
	}

	m, _ = m.Update(msg)
	view := m.View()
	if !strings.Contains(view, "History for sig1") {
		t.Fatalf("expected history section rendered:\n%s", view)
	}
	if !strings.Contains(view, "120") || !strings.Contains(view, "130") {
		t.Fatalf("expected price diff rendered:\n%s", view)
	}
}

func TestFormatSignalRowPlaceholders(t *testing.T) {
	row := formatSignalRow(domain.Signal{
		CoinSymbol:   "DOGE",
		PositionType: domain.PositionLong,
		EntryPrice:   "0.1",
	})
	if !strings.Contains(row, "DOGE") || !strings.Contains(row, "-") {
		t.Fatalf("expected dashes for unset fields: %s", row)
	}
}

func TestCollectServerIDs(t *testing.T) {
	ids := collectServerIDs([]domain.Signal{
		{ServerID: "S1"},
		{ServerID: ""},
		{ServerID: "S2"},
		{ServerID: "S1"},
	})
	if len(ids) != 2 || ids[0] != "S1" || ids[1] != "S2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
