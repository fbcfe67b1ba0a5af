package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signalboard/internal/cache"
	"signalboard/internal/domain"
	"signalboard/internal/provider"
	"signalboard/internal/repository"
	"signalboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type handlerStoreStub struct {
	signals map[string]domain.Signal
	logs    map[string][]domain.SignalLogEntry
}

func newHandlerStoreStub() *handlerStoreStub {
	return &handlerStoreStub{
		signals: make(map[string]domain.Signal),
		logs:    make(map[string][]domain.SignalLogEntry),
	}
}

func (s *handlerStoreStub) Insert(ctx context.Context, sig domain.Signal) error {
	s.signals[sig.ID] = sig
	return nil
}

func (s *handlerStoreStub) Get(ctx context.Context, id string) (*domain.Signal, error) {
	sig, ok := s.signals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := sig
	return &out, nil
}

func (s *handlerStoreStub) UpdatePrices(ctx context.Context, id string, takeProfit, stopLoss domain.Price) error {
	sig, ok := s.signals[id]
	if !ok {
		return domain.ErrNotFound
	}
	sig.TakeProfit = takeProfit
	sig.StopLoss = stopLoss
	s.signals[id] = sig
	return nil
}

func (s *handlerStoreStub) AppendLog(ctx context.Context, signalID string, entry domain.SignalLogEntry) error {
	s.logs[signalID] = append(s.logs[signalID], entry)
	return nil
}

func (s *handlerStoreStub) ListLogs(ctx context.Context, signalID string) ([]domain.SignalLogEntry, error) {
	return s.logs[signalID], nil
}

func (s *handlerStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.signals[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.signals, id)
	return nil
}

func (s *handlerStoreStub) ListByUser(ctx context.Context, userID, serverID string, limit int) ([]domain.Signal, error) {
	var out []domain.Signal
	for _, sig := range s.signals {
		if sig.UserID == userID {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *handlerStoreStub) ListServerTimestamps(ctx context.Context) ([]repository.ServerTimestamp, error) {
	return nil, nil
}

type handlerCoordStub struct{}

func (handlerCoordStub) PostNewSignal(ctx context.Context, ident domain.Identity, s domain.Signal) (string, error) {
	return "T1", nil
}

func (handlerCoordStub) SyncMessage(ident domain.Identity, s domain.Signal) {}

func (handlerCoordStub) DeleteThread(ident domain.Identity, signalID, threadID string) {}

type handlerMarketStub struct{}

func (handlerMarketStub) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return []domain.Candle{{OpenTime: 1700000000, Close: 100}}, nil
}

func (handlerMarketStub) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	return 64000, nil
}

type handlerListingStub struct{}

func (handlerListingStub) FetchExchangeListing(ctx context.Context) (*provider.ExchangeListing, error) {
	return &provider.ExchangeListing{
		Kind: provider.KindFutures,
		Symbols: []provider.ListedSymbol{
			{Symbol: "BTCUSDT", BaseAsset: "BTC", Status: "TRADING", ContractType: "PERPETUAL"},
		},
		Tickers: []provider.Ticker24h{
			{Symbol: "BTCUSDT", QuoteVolume: "100", PriceChangePercent: "1.0"},
		},
	}, nil
}

func newTestRouter(t *testing.T, store service.SignalStore) (*gin.Engine, *SessionCodec) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")
	sessions := NewSessionCodec("test-secret", time.Hour)
	h := &Handler{
		tracer:        tracer,
		signalService: service.NewSignalService(tracer, store, handlerCoordStub{}),
		marketService: service.NewMarketService(tracer, handlerMarketStub{}, cache.NewMarketCache(nil), service.DefaultCacheTTLs()),
		symbolService: service.NewSymbolService(tracer, handlerListingStub{}, cache.NewMarketCache(nil), service.DefaultCacheTTLs()),
		sessions:      sessions,
	}

	router := gin.New()
	h.RegisterRoutes(router)
	return router, sessions
}

func bearerFor(t *testing.T, sessions *SessionCodec, userID string) string {
	t.Helper()
	token, err := sessions.Issue(domain.Identity{UserID: userID, DisplayName: "alice", AccessToken: "tok"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router, _ := newTestRouter(t, newHandlerStoreStub())

	if w := doRequest(router, http.MethodGet, "/api/signals", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/signals", "Bearer garbage", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid token, got %d", w.Code)
	}
}

func TestHealthIsOpen(t *testing.T) {
	router, _ := newTestRouter(t, newHandlerStoreStub())

	if w := doRequest(router, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreateSignalHappyPath(t *testing.T) {
	store := newHandlerStoreStub()
	router, sessions := newTestRouter(t, store)

	body := `{"coinSymbol":"btc","positionType":"long","entryPrice":"100","takeProfit":"120","stopLoss":"90","serverId":"S1","channelId":"C1"}`
	w := doRequest(router, http.MethodPost, "/api/signals", bearerFor(t, sessions, "U1"), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var sig domain.Signal
	if err := json.Unmarshal(w.Body.Bytes(), &sig); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if sig.CoinSymbol != "BTC" || sig.ThreadID != "T1" || sig.UserID != "U1" {
		t.Fatalf("unexpected signal: %+v", sig)
	}
	if _, ok := store.signals[sig.ID]; !ok {
		t.Fatal("expected signal persisted")
	}
}

func TestCreateSignalValidationError(t *testing.T) {
	router, sessions := newTestRouter(t, newHandlerStoreStub())

	body := `{"coinSymbol":"","positionType":"long","entryPrice":"100","channelId":"C1"}`
	w := doRequest(router, http.MethodPost, "/api/signals", bearerFor(t, sessions, "U1"), body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetSignalOwnership(t *testing.T) {
	store := newHandlerStoreStub()
	store.signals["sig1"] = domain.Signal{ID: "sig1", UserID: "U2", CoinSymbol: "BTC"}
	router, sessions := newTestRouter(t, store)

	if w := doRequest(router, http.MethodGet, "/api/signals/sig1", bearerFor(t, sessions, "U1"), ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another owner's signal, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/signals/missing", bearerFor(t, sessions, "U1"), ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent signal, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/signals/sig1", bearerFor(t, sessions, "U2"), ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for the owner, got %d", w.Code)
	}
}

func TestUpdateSignalRejectsUnknownFields(t *testing.T) {
	store := newHandlerStoreStub()
	store.signals["sig1"] = domain.Signal{ID: "sig1", UserID: "U1", EntryPrice: "100", TakeProfit: "120", StopLoss: "90"}
	router, sessions := newTestRouter(t, store)

	w := doRequest(router, http.MethodPatch, "/api/signals/sig1", bearerFor(t, sessions, "U1"), `{"entryPrice":"200"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown patch field, got %d", w.Code)
	}
	if got := store.signals["sig1"].EntryPrice; got != "100" {
		t.Fatalf("expected entry price untouched, got %q", got)
	}
}

func TestUpdateSignalPatchesPrices(t *testing.T) {
	store := newHandlerStoreStub()
	store.signals["sig1"] = domain.Signal{ID: "sig1", UserID: "U1", EntryPrice: "100", TakeProfit: "120", StopLoss: "90", ThreadID: "T1"}
	router, sessions := newTestRouter(t, store)

	w := doRequest(router, http.MethodPatch, "/api/signals/sig1", bearerFor(t, sessions, "U1"), `{"takeProfit":"130"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := store.signals["sig1"].TakeProfit; got != "130" {
		t.Fatalf("expected take profit 130, got %q", got)
	}
	if got := store.signals["sig1"].StopLoss; got != "90" {
		t.Fatalf("expected stop loss untouched, got %q", got)
	}
}

func TestDeleteSignalReturnsNoContent(t *testing.T) {
	store := newHandlerStoreStub()
	store.signals["sig1"] = domain.Signal{ID: "sig1", UserID: "U1", ThreadID: "T1"}
	router, sessions := newTestRouter(t, store)

	w := doRequest(router, http.MethodDelete, "/api/signals/sig1", bearerFor(t, sessions, "U1"), "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if _, ok := store.signals["sig1"]; ok {
		t.Fatal("expected signal removed")
	}
}

func TestListSignalsValidatesLimit(t *testing.T) {
	router, sessions := newTestRouter(t, newHandlerStoreStub())

	for _, q := range []string{"limit=0", "limit=201", "limit=abc"} {
		if w := doRequest(router, http.MethodGet, "/api/signals?"+q, bearerFor(t, sessions, "U1"), ""); w.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetCandlesRequiresSymbol(t *testing.T) {
	router, sessions := newTestRouter(t, newHandlerStoreStub())

	if w := doRequest(router, http.MethodGet, "/api/klines", bearerFor(t, sessions, "U1"), ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without symbol, got %d", w.Code)
	}
}

func TestGetCandlesReturnsSeries(t *testing.T) {
	router, sessions := newTestRouter(t, newHandlerStoreStub())

	w := doRequest(router, http.MethodGet, "/api/klines?symbol=BTCUSDT&interval=1h", bearerFor(t, sessions, "U1"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Symbol  string          `json:"symbol"`
		Candles []domain.Candle `json:"candles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Symbol != "BTCUSDT" || len(resp.Candles) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSearchSymbolsReturnsDirectory(t *testing.T) {
	router, sessions := newTestRouter(t, newHandlerStoreStub())

	w := doRequest(router, http.MethodGet, "/api/symbols?q=btc", bearerFor(t, sessions, "U1"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Symbols []domain.SymbolDescriptor `json:"symbols"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(resp.Symbols) != 1 || resp.Symbols[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected directory: %+v", resp.Symbols)
	}
}
