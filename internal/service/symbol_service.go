package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"signalboard/internal/cache"
	"signalboard/internal/domain"
	"signalboard/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

const (
	symbolCapBrowse = 50  // empty query: just the most active pairs
	symbolCapSearch = 100 // filtered query
)

// ListingProvider fetches the raw exchange listing the directory is built from.
type ListingProvider interface {
	FetchExchangeListing(ctx context.Context) (*provider.ExchangeListing, error)
}

// SymbolService is the searchable directory of tradable pairs: the raw
// exchange listing filtered to live canonical-quote pairs, joined with 24h
// ticker stats and ranked by quote volume. The full normalized listing is
// cached; filtering happens per request in memory.
type SymbolService struct {
	tracer   trace.Tracer
	provider ListingProvider
	cache    *cache.MarketCache
	ttl      CacheTTLs
}

func NewSymbolService(tracer trace.Tracer, p ListingProvider, mc *cache.MarketCache, ttl CacheTTLs) *SymbolService {
	if ttl.Symbols <= 0 {
		ttl = DefaultCacheTTLs()
	}
	return &SymbolService{tracer: tracer, provider: p, cache: mc, ttl: ttl}
}

const symbolListingKey = "binance:symbols:listing"

// Search returns pairs whose base asset contains query, most traded first.
// An empty query returns the top of the directory.
func (s *SymbolService) Search(ctx context.Context, query string) ([]domain.SymbolDescriptor, error) {
	ctx, span := s.tracer.Start(ctx, "symbol-service.search")
	defer span.End()

	all, err := s.listing(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToUpper(strings.TrimSpace(query))
	limit := symbolCapBrowse
	if query != "" {
		limit = symbolCapSearch
	}

	out := make([]domain.SymbolDescriptor, 0, limit)
	for _, d := range all {
		if query != "" && !strings.Contains(strings.ToUpper(d.BaseAsset), query) {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Refresh drops the cached listing and rebuilds it. The background refresher
// calls this so interactive searches rarely pay the upstream round trip.
func (s *SymbolService) Refresh(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "symbol-service.refresh")
	defer span.End()

	listing, err := s.build(ctx)
	if err != nil {
		return err
	}
	s.cache.Set(ctx, symbolListingKey, listing, s.ttl.Symbols)
	return nil
}

func (s *SymbolService) listing(ctx context.Context) ([]domain.SymbolDescriptor, error) {
	var cached []domain.SymbolDescriptor
	if s.cache.Get(ctx, symbolListingKey, &cached) {
		return cached, nil
	}
	listing, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, symbolListingKey, listing, s.ttl.Symbols)
	return listing, nil
}

// build fetches the raw listing and normalizes it: live canonical-quote pairs
// only, USD quotes promoted to the canonical suffix, joined with ticker stats
// and sorted by 24h quote volume descending.
func (s *SymbolService) build(ctx context.Context) ([]domain.SymbolDescriptor, error) {
	raw, err := s.provider.FetchExchangeListing(ctx)
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]Ticker, len(raw.Tickers))
	for _, t := range raw.Tickers {
		volumes[t.Symbol] = Ticker{
			QuoteVolume:   parseFloat(t.QuoteVolume),
			PriceChangePc: parseFloat(t.PriceChangePercent),
		}
	}

	out := make([]domain.SymbolDescriptor, 0, len(raw.Symbols))
	for _, sym := range raw.Symbols {
		if !listable(sym, raw.Kind) {
			continue
		}
		t := volumes[sym.Symbol]
		out = append(out, domain.SymbolDescriptor{
			Symbol:            canonicalSymbol(sym.Symbol, raw.Kind),
			BaseAsset:         sym.BaseAsset,
			QuoteVolume24h:    t.QuoteVolume,
			PriceChangePct24h: t.PriceChangePc,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].QuoteVolume24h > out[j].QuoteVolume24h
	})
	return out, nil
}

// Ticker is the joined 24h stats for one pair.
type Ticker struct {
	QuoteVolume   float64
	PriceChangePc float64
}

// listable keeps only pairs the chart pipeline can serve: actively trading,
// quoted in the canonical currency (or USD on the US spot mirror), and for
// futures only plain perpetuals, no dated or exotic contracts.
func listable(sym provider.ListedSymbol, kind provider.EndpointKind) bool {
	if sym.Status != "TRADING" {
		return false
	}
	if strings.Contains(sym.BaseAsset, "_") {
		return false
	}
	switch kind {
	case provider.KindFutures:
		return sym.ContractType == "PERPETUAL" && strings.HasSuffix(sym.Symbol, domain.QuoteSuffix)
	case provider.KindSpotUS:
		return strings.HasSuffix(sym.Symbol, "USD") && !strings.HasSuffix(sym.Symbol, domain.QuoteSuffix)
	default:
		return strings.HasSuffix(sym.Symbol, domain.QuoteSuffix)
	}
}

// canonicalSymbol promotes USD-quoted pairs to the canonical suffix so every
// consumer sees one symbol space regardless of which endpoint answered.
func canonicalSymbol(symbol string, kind provider.EndpointKind) string {
	if kind == provider.KindSpotUS && !strings.HasSuffix(symbol, domain.QuoteSuffix) {
		return symbol + "T"
	}
	return symbol
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
