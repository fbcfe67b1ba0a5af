// Package job holds the background pollers launched alongside the HTTP server.
package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// SymbolRefresher re-warms the symbol directory cache on a fixed cadence so
// interactive searches almost never pay the upstream round trip. The refresh
// interval sits just inside the cache TTL.
type SymbolRefresher struct {
	tracer   trace.Tracer
	refresh  Refresher
	interval time.Duration
}

type Refresher interface {
	Refresh(ctx context.Context) error
}

func NewSymbolRefresher(tracer trace.Tracer, refresh Refresher, interval time.Duration) *SymbolRefresher {
	if interval <= 0 {
		interval = 4 * time.Minute
	}
	return &SymbolRefresher{
		tracer:   tracer,
		refresh:  refresh,
		interval: interval,
	}
}

// Start warms the cache once, then refreshes on every tick. Blocks until ctx
// is cancelled.
func (r *SymbolRefresher) Start(ctx context.Context) {
	if r.refresh == nil {
		log.Println("Symbol refresher disabled: no symbol service")
		<-ctx.Done()
		return
	}

	log.Println("Symbol refresher starting...")
	r.run(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Symbol refresher stopped")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

func (r *SymbolRefresher) run(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "symbol-refresher.run")
	defer span.End()

	if err := r.refresh.Refresh(ctx); err != nil {
		log.Printf("symbol directory refresh error: %v", err)
	}
}
