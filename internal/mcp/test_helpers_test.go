package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signalboard/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubMarketReader struct {
	candles []domain.Candle
	price   float64

	lastSymbol   string
	lastInterval string
	lastLimit    int
}

func (s *stubMarketReader) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	s.lastSymbol = symbol
	s.lastInterval = interval
	s.lastLimit = limit
	return append([]domain.Candle(nil), s.candles...), nil
}

func (s *stubMarketReader) FetchLatestPrice(ctx context.Context, symbol string) (float64, error) {
	s.lastSymbol = symbol
	if s.price == 0 {
		return 0, fmt.Errorf("%w: no price", domain.ErrUpstreamUnavailable)
	}
	return s.price, nil
}

type stubSymbolSearcher struct {
	symbols   []domain.SymbolDescriptor
	lastQuery string
}

func (s *stubSymbolSearcher) Search(ctx context.Context, query string) ([]domain.SymbolDescriptor, error) {
	s.lastQuery = query
	return append([]domain.SymbolDescriptor(nil), s.symbols...), nil
}

type stubSignalReader struct {
	signals []domain.Signal
	logs    []domain.SignalLogEntry

	lastUserID   string
	lastServerID string
	lastLimit    int
}

func (s *stubSignalReader) ListByUser(ctx context.Context, userID, serverID string, limit int) ([]domain.Signal, error) {
	s.lastUserID = userID
	s.lastServerID = serverID
	s.lastLimit = limit
	return append([]domain.Signal(nil), s.signals...), nil
}

func (s *stubSignalReader) ListLogs(ctx context.Context, signalID string) ([]domain.SignalLogEntry, error) {
	return append([]domain.SignalLogEntry(nil), s.logs...), nil
}

type stubStatsReader struct {
	stats []domain.ServerStats
}

func (s *stubStatsReader) AggregateByServer(ctx context.Context) ([]domain.ServerStats, error) {
	return append([]domain.ServerStats(nil), s.stats...), nil
}

func testServer() (*sdkmcp.Server, *stubMarketReader, *stubSignalReader) {
	market := &stubMarketReader{
		candles: []domain.Candle{{OpenTime: 1700000000, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000}},
		price:   64000,
	}
	symbols := &stubSymbolSearcher{
		symbols: []domain.SymbolDescriptor{{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteVolume24h: 3e9}},
	}
	signals := &stubSignalReader{
		signals: []domain.Signal{{
			ID: "sig1", CoinSymbol: "BTC", PositionType: domain.PositionLong,
			EntryPrice: "100", ServerID: "S1", UserID: "U1",
		}},
		logs: []domain.SignalLogEntry{{ID: 1, OldTakeProfit: "120", NewTakeProfit: "130", UpdatedBy: "U1"}},
	}
	stats := &stubStatsReader{
		stats: []domain.ServerStats{{ServerID: "S1", TotalSignals: 3, LastSignalTime: 1735689600000}},
	}

	srv := NewServer(nil, market, symbols, signals, stats, ServerConfig{RequestTimeout: time.Second})
	return srv, market, signals
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
