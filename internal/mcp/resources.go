package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"signalboard/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, market MarketReader, symbols SymbolSearcher, stats StatsReader) {
	server.AddResource(&mcp.Resource{
		URI:         "market://supported-intervals",
		Name:        "supported-intervals",
		Description: "List of candle intervals supported by the service",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, domain.SupportedIntervals)
	})

	server.AddResource(&mcp.Resource{
		URI:         "signals://server-stats",
		Name:        "server-stats",
		Description: "Per-server signal totals and last activity",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if stats == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}
		result, err := stats.AggregateByServer(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, serverStatsOutput{Servers: result})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "symbols://search{?q}",
		Name:        "symbols-search",
		Description: "Tradable pair directory, optionally filtered by the q query param",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if symbols == nil {
			return nil, fmt.Errorf("symbol service unavailable")
		}
		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "symbols" || parsed.Host != "search" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		result, err := symbols.Search(ctx, parsed.Query().Get("q"))
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, symbolsSearchOutput{Symbols: result})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "candles://{symbol}/{interval}{?limit}",
		Name:        "candles-by-symbol-interval",
		Description: "OHLCV candles for a symbol and interval; optional limit query param",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if market == nil {
			return nil, fmt.Errorf("market service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "candles" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		symbol, err := normalizeSymbol(parsed.Host)
		if err != nil {
			return nil, err
		}
		interval, err := normalizeInterval(strings.Trim(strings.TrimSpace(parsed.Path), "/"))
		if err != nil {
			return nil, err
		}

		limit := defaultCandleLimit
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			limit = normalizeCandleLimit(n)
		}

		candles, err := market.FetchCandles(ctx, symbol, interval, limit)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, candlesListOutput{Symbol: symbol, Interval: interval, Candles: candles})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
