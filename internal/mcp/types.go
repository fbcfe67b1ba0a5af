package mcp

import (
	"fmt"
	"strings"

	"signalboard/internal/domain"
)

const (
	defaultCandleLimit = 100
	maxCandleLimit     = 1500
	defaultSignalLimit = 50
	maxSignalLimit     = 200
)

type candlesListInput struct {
	Symbol   string `json:"symbol" jsonschema:"trading pair ending in USDT (e.g. BTCUSDT)"`
	Interval string `json:"interval" jsonschema:"candle interval: 1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of candles to return, max 1500"`
}

type candlesListOutput struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Candles  []domain.Candle `json:"candles"`
}

type priceGetInput struct {
	Symbol string `json:"symbol" jsonschema:"trading pair or bare base asset (e.g. BTCUSDT or BTC)"`
}

type priceGetOutput struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type symbolsSearchInput struct {
	Query string `json:"query,omitempty" jsonschema:"substring of the base asset; empty returns the most active pairs"`
}

type symbolsSearchOutput struct {
	Symbols []domain.SymbolDescriptor `json:"symbols"`
}

type signalsListInput struct {
	UserID   string `json:"userId" jsonschema:"platform user id whose signals to list"`
	ServerID string `json:"serverId,omitempty" jsonschema:"optional server id to filter by"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of signals to return, max 200"`
}

type signalsListOutput struct {
	Signals []domain.Signal `json:"signals"`
}

type signalLogsInput struct {
	SignalID string `json:"signalId" jsonschema:"signal id whose change history to read"`
}

type signalLogsOutput struct {
	Logs []domain.SignalLogEntry `json:"logs"`
}

type serverStatsInput struct{}

type serverStatsOutput struct {
	Servers []domain.ServerStats `json:"servers"`
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return symbol, nil
}

func normalizeInterval(interval string) (string, error) {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return "", fmt.Errorf("interval is required")
	}
	for _, supported := range domain.SupportedIntervals {
		if interval == supported {
			return interval, nil
		}
	}
	return "", fmt.Errorf("unsupported interval: %s", interval)
}

func normalizeCandleLimit(limit int) int {
	if limit <= 0 {
		return defaultCandleLimit
	}
	if limit > maxCandleLimit {
		return maxCandleLimit
	}
	return limit
}

func normalizeSignalLimit(limit int) int {
	if limit <= 0 {
		return defaultSignalLimit
	}
	if limit > maxSignalLimit {
		return maxSignalLimit
	}
	return limit
}
