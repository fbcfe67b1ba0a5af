package mcp

import (
	"context"

	"signalboard/internal/domain"
)

// MarketReader exposes read operations for market data.
type MarketReader interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	FetchLatestPrice(ctx context.Context, symbol string) (float64, error)
}

// SymbolSearcher exposes the tradable pair directory.
type SymbolSearcher interface {
	Search(ctx context.Context, query string) ([]domain.SymbolDescriptor, error)
}

// SignalReader exposes operator-level read access to stored signals. The MCP
// surface sits behind its own bearer token, not a user session, so reads are
// scoped explicitly by user id.
type SignalReader interface {
	ListByUser(ctx context.Context, userID, serverID string, limit int) ([]domain.Signal, error)
	ListLogs(ctx context.Context, signalID string) ([]domain.SignalLogEntry, error)
}

// StatsReader exposes the per-server aggregation.
type StatsReader interface {
	AggregateByServer(ctx context.Context) ([]domain.ServerStats, error)
}
