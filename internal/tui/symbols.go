package tui

import (
	"context"
	"fmt"
	"strings"

	"signalboard/internal/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Symbol search message types.
type symbolsMsg []domain.SymbolDescriptor
type symbolsErrMsg struct{ err error }

// SymbolSearchModel is the Bubble Tea model for the pair directory screen.
type SymbolSearchModel struct {
	services Services
	input    textinput.Model
	symbols  []domain.SymbolDescriptor
	loading  bool
	err      error
	width    int
	height   int
}

func NewSymbolSearchModel(svc Services) SymbolSearchModel {
	ti := textinput.New()
	ti.Placeholder = "search pairs (e.g. BTC)"
	ti.CharLimit = 20
	ti.Width = 30
	return SymbolSearchModel{
		services: svc,
		input:    ti,
		loading:  true,
	}
}

// Init fires the initial directory fetch.
func (m SymbolSearchModel) Init() tea.Cmd {
	return m.searchCmd("")
}

// Focus gives the search input keyboard focus.
func (m *SymbolSearchModel) Focus() { m.input.Focus() }

// Blur removes keyboard focus from the search input.
func (m *SymbolSearchModel) Blur() { m.input.Blur() }

// Update handles incoming messages.
func (m SymbolSearchModel) Update(msg tea.Msg) (SymbolSearchModel, tea.Cmd) {
	switch msg := msg.(type) {
	case symbolsMsg:
		m.symbols = []domain.SymbolDescriptor(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case symbolsErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter {
			m.loading = true
			return m, m.searchCmd(m.input.Value())
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the pair directory.
func (m SymbolSearchModel) View() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("  Pair Directory"))
	sections = append(sections, "  "+m.input.View())
	sections = append(sections, SubtextStyle.Render("  "+strings.Repeat("─", 56)))

	if m.loading {
		sections = append(sections, SubtextStyle.Render("  Loading..."))
		return strings.Join(sections, "\n")
	}
	if m.err != nil {
		sections = append(sections, ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		return strings.Join(sections, "\n")
	}
	if len(m.symbols) == 0 {
		sections = append(sections, SubtextStyle.Render("  No pairs match"))
		return strings.Join(sections, "\n")
	}

	sections = append(sections, SubtextStyle.Render(
		fmt.Sprintf("  %-12s %-8s %16s %10s", "Symbol", "Base", "24h Volume", "24h %"),
	))

	max := m.visibleRows()
	if max > len(m.symbols) {
		max = len(m.symbols)
	}
	for _, d := range m.symbols[:max] {
		change := fmt.Sprintf("%+.2f%%", d.PriceChangePct24h)
		styled := ChangeUpStyle.Render(change)
		if d.PriceChangePct24h < 0 {
			styled = ChangeDownStyle.Render(change)
		}
		sections = append(sections, fmt.Sprintf("  %-12s %-8s %16.0f %10s",
			d.Symbol, d.BaseAsset, d.QuoteVolume24h, styled))
	}

	sections = append(sections, "")
	sections = append(sections, SubtextStyle.Render("  [enter] search"))

	return strings.Join(sections, "\n")
}

// SetSize updates the model dimensions.
func (m *SymbolSearchModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SymbolCount returns the number of loaded pairs (for testing).
func (m SymbolSearchModel) SymbolCount() int { return len(m.symbols) }

func (m SymbolSearchModel) searchCmd(query string) tea.Cmd {
	return func() tea.Msg {
		if m.services.Symbols == nil {
			return symbolsErrMsg{err: fmt.Errorf("symbol service not available")}
		}
		symbols, err := m.services.Symbols.Search(context.Background(), query)
		if err != nil {
			return symbolsErrMsg{err: err}
		}
		return symbolsMsg(symbols)
	}
}

func (m SymbolSearchModel) visibleRows() int {
	available := m.height - 8
	if available < 10 {
		return 10
	}
	return available
}
