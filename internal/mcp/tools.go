package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, market MarketReader, symbols SymbolSearcher, signals SignalReader, stats StatsReader) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "candles_list",
		Description: "Get OHLCV candles by symbol, interval, and limit",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in candlesListInput) (*mcp.CallToolResult, candlesListOutput, error) {
		if market == nil {
			return nil, candlesListOutput{}, fmt.Errorf("market service unavailable")
		}
		symbol, err := normalizeSymbol(in.Symbol)
		if err != nil {
			return nil, candlesListOutput{}, err
		}
		interval, err := normalizeInterval(in.Interval)
		if err != nil {
			return nil, candlesListOutput{}, err
		}
		limit := normalizeCandleLimit(in.Limit)

		result, err := market.FetchCandles(ctx, symbol, interval, limit)
		if err != nil {
			return nil, candlesListOutput{}, err
		}
		return nil, candlesListOutput{Symbol: symbol, Interval: interval, Candles: result}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "price_get",
		Description: "Get the latest traded price for a symbol or base asset",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in priceGetInput) (*mcp.CallToolResult, priceGetOutput, error) {
		if market == nil {
			return nil, priceGetOutput{}, fmt.Errorf("market service unavailable")
		}
		symbol, err := normalizeSymbol(in.Symbol)
		if err != nil {
			return nil, priceGetOutput{}, err
		}
		price, err := market.FetchLatestPrice(ctx, symbol)
		if err != nil {
			return nil, priceGetOutput{}, err
		}
		return nil, priceGetOutput{Symbol: symbol, Price: price}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "symbols_search",
		Description: "Search the tradable pair directory, ranked by 24h volume",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in symbolsSearchInput) (*mcp.CallToolResult, symbolsSearchOutput, error) {
		if symbols == nil {
			return nil, symbolsSearchOutput{}, fmt.Errorf("symbol service unavailable")
		}
		result, err := symbols.Search(ctx, in.Query)
		if err != nil {
			return nil, symbolsSearchOutput{}, err
		}
		return nil, symbolsSearchOutput{Symbols: result}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_list",
		Description: "List a user's posted trading signals, newest first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsListInput) (*mcp.CallToolResult, signalsListOutput, error) {
		if signals == nil {
			return nil, signalsListOutput{}, fmt.Errorf("signal store unavailable")
		}
		userID := strings.TrimSpace(in.UserID)
		if userID == "" {
			return nil, signalsListOutput{}, fmt.Errorf("userId is required")
		}
		result, err := signals.ListByUser(ctx, userID, strings.TrimSpace(in.ServerID), normalizeSignalLimit(in.Limit))
		if err != nil {
			return nil, signalsListOutput{}, err
		}
		return nil, signalsListOutput{Signals: result}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_logs",
		Description: "Get the take-profit/stop-loss change history of a signal",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalLogsInput) (*mcp.CallToolResult, signalLogsOutput, error) {
		if signals == nil {
			return nil, signalLogsOutput{}, fmt.Errorf("signal store unavailable")
		}
		signalID := strings.TrimSpace(in.SignalID)
		if signalID == "" {
			return nil, signalLogsOutput{}, fmt.Errorf("signalId is required")
		}
		logs, err := signals.ListLogs(ctx, signalID)
		if err != nil {
			return nil, signalLogsOutput{}, err
		}
		return nil, signalLogsOutput{Logs: logs}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_server_stats",
		Description: "Per-server signal totals and last activity, most active first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ serverStatsInput) (*mcp.CallToolResult, serverStatsOutput, error) {
		if stats == nil {
			return nil, serverStatsOutput{}, fmt.Errorf("signal service unavailable")
		}
		result, err := stats.AggregateByServer(ctx)
		if err != nil {
			return nil, serverStatsOutput{}, err
		}
		return nil, serverStatsOutput{Servers: result}, nil
	})
}
