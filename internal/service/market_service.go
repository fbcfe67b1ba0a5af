package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signalboard/internal/cache"
	"signalboard/internal/domain"
	"signalboard/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

// MarketProvider is the upstream fetcher the market service consults on cache
// misses.
type MarketProvider interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// CacheTTLs carries the per-kind cache lifetimes. Candles go stale fast;
// the symbol directory can live longer.
type CacheTTLs struct {
	Candles time.Duration
	Price   time.Duration
	Symbols time.Duration
}

func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Candles: 30 * time.Second,
		Price:   10 * time.Second,
		Symbols: 5 * time.Minute,
	}
}

// MarketService serves candles and prices cache-first. The cache is populated
// only on upstream success; a failed fetch is retried on the very next call.
type MarketService struct {
	tracer   trace.Tracer
	provider MarketProvider
	cache    *cache.MarketCache
	ttl      CacheTTLs
}

func NewMarketService(tracer trace.Tracer, p MarketProvider, mc *cache.MarketCache, ttl CacheTTLs) *MarketService {
	if ttl.Candles <= 0 {
		ttl = DefaultCacheTTLs()
	}
	return &MarketService{tracer: tracer, provider: p, cache: mc, ttl: ttl}
}

func candleKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("binance:klines:%s:%s:%d", symbol, interval, limit)
}

// FetchCandles validates the symbol, consults the cache, and falls back to the
// upstream fetcher on a miss.
func (s *MarketService) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.fetch-candles")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := provider.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if !validInterval(interval) {
		interval = "1h"
	}
	if limit <= 0 || limit > 1500 {
		limit = 500
	}

	key := candleKey(symbol, interval, limit)
	var cached []domain.Candle
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	candles, err := s.provider.FetchCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, candles, s.ttl.Candles)
	return candles, nil
}

// FetchLatestPrice returns the most recent traded price for a symbol or bare
// base asset, through a short-TTL cache.
func (s *MarketService) FetchLatestPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.fetch-latest-price")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	// Key on the promoted pair so a bare base asset and its pair share one
	// cache entry.
	if !strings.HasSuffix(symbol, domain.QuoteSuffix) {
		symbol += domain.QuoteSuffix
	}

	key := "binance:price:" + symbol
	var cached float64
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	price, err := s.provider.FetchPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, key, price, s.ttl.Price)
	return price, nil
}

func validInterval(interval string) bool {
	for _, iv := range domain.SupportedIntervals {
		if iv == interval {
			return true
		}
	}
	return false
}
