package tui

import (
	"strings"
	"testing"

	"signalboard/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSymbolSearchLoadsDirectory(t *testing.T) {
	m := NewSymbolSearchModel(testServices())
	m.SetSize(120, 40)

	symbols := []domain.SymbolDescriptor{
		{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteVolume24h: 3e9, PriceChangePct24h: 1.5},
		{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteVolume24h: 2e9, PriceChangePct24h: -0.7},
	}
	updated, _ := m.Update(symbolsMsg(symbols))
	if updated.SymbolCount() != 2 {
		t.Fatalf("expected 2 pairs, got %d", updated.SymbolCount())
	}

	view := updated.View()
	if !strings.Contains(view, "BTCUSDT") || !strings.Contains(view, "ETHUSDT") {
		t.Fatalf("expected both pairs rendered:\n%s", view)
	}
}

func TestSymbolSearchEnterTriggersQuery(t *testing.T) {
	q := &stubSymbolQuerier{symbols: []domain.SymbolDescriptor{{Symbol: "BTCUSDT", BaseAsset: "BTC"}}}
	svc := testServices()
	svc.Symbols = q

	m := NewSymbolSearchModel(svc)
	m.Focus()

	for _, r := range "btc" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if m.input.Value() != "btc" {
		t.Fatalf("expected input %q, got %q", "btc", m.input.Value())
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected enter to schedule a search")
	}
	msg, ok := cmd().(symbolsMsg)
	if !ok {
		t.Fatalf("expected symbolsMsg, got %T", msg)
	}
	if len(msg) != 1 || msg[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected search result: %+v", msg)
	}
}

func TestSymbolSearchEmptyDirectory(t *testing.T) {
	m := NewSymbolSearchModel(testServices())
	m.SetSize(120, 40)

	updated, _ := m.Update(symbolsMsg(nil))
	if !strings.Contains(updated.View(), "No pairs match") {
		t.Fatal("expected empty-directory message")
	}
}
