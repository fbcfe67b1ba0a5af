package tui

import (
	"context"

	"signalboard/internal/domain"
)

// SignalQuerier provides stored signal data to the console.
type SignalQuerier interface {
	ListByUser(ctx context.Context, userID, serverID string, limit int) ([]domain.Signal, error)
	ListLogs(ctx context.Context, signalID string) ([]domain.SignalLogEntry, error)
}

// StatsQuerier provides the per-server aggregation.
type StatsQuerier interface {
	AggregateByServer(ctx context.Context) ([]domain.ServerStats, error)
}

// SymbolQuerier provides the tradable pair directory.
type SymbolQuerier interface {
	Search(ctx context.Context, query string) ([]domain.SymbolDescriptor, error)
}

// Services bundles the dependencies injected into the console.
type Services struct {
	Signals SignalQuerier
	Stats   StatsQuerier
	Symbols SymbolQuerier

	// UserID scopes the signal browser to one poster's signals.
	UserID string
}
