package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"signalboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Endpoint is one upstream base URL plus the market flavor behind it. The
// flavor drives symbol rewriting (binance.us quotes in USD, not USDT) and the
// pair-filtering rules in the symbol directory.
type Endpoint struct {
	Name string
	Base string
	Kind EndpointKind
}

type EndpointKind string

const (
	KindFutures EndpointKind = "futures"
	KindSpot    EndpointKind = "spot"
	KindSpotUS  EndpointKind = "spot_us"
)

// DefaultEndpoints is the fallback order: futures first, then the two spot
// mirrors. Each call walks the list and takes the first response that parses
// and is non-empty.
var DefaultEndpoints = []Endpoint{
	{Name: "futures", Base: "https://fapi.binance.com/fapi/v1", Kind: KindFutures},
	{Name: "spot_us", Base: "https://api.binance.us/api/v3", Kind: KindSpotUS},
	{Name: "spot_vision", Base: "https://data-api.binance.vision/api/v3", Kind: KindSpot},
}

// Binance fetches market data through an ordered list of equivalent endpoints
// with a bounded per-attempt timeout. A timeout behaves exactly like a failed
// endpoint: fall through, or ErrUpstreamUnavailable once the list is exhausted.
type Binance struct {
	tracer    trace.Tracer
	client    *http.Client
	endpoints []Endpoint
}

func NewBinance(tracer trace.Tracer, timeout time.Duration, endpoints []Endpoint) *Binance {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &Binance{
		tracer:    tracer,
		client:    &http.Client{Timeout: timeout},
		endpoints: endpoints,
	}
}

// ValidateSymbol rejects anything not carrying the canonical quote suffix
// before a single network call is made.
func ValidateSymbol(symbol string) error {
	if !strings.HasSuffix(symbol, domain.QuoteSuffix) {
		return fmt.Errorf("%w: %q must end in %s", domain.ErrInvalidSymbol, symbol, domain.QuoteSuffix)
	}
	return nil
}

// endpointSymbol rewrites the canonical symbol for endpoints quoting in USD.
func endpointSymbol(symbol string, kind EndpointKind) string {
	if kind == KindSpotUS {
		return strings.TrimSuffix(symbol, "T")
	}
	return symbol
}

// FetchCandles returns up to limit bars for symbol+interval, oldest first,
// open times normalized to epoch seconds.
func (b *Binance) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	ctx, span := b.tracer.Start(ctx, "binance.fetch-candles")
	defer span.End()

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	var lastErr error
	for _, ep := range b.endpoints {
		u := fmt.Sprintf("%s/klines?symbol=%s&interval=%s&limit=%d",
			ep.Base, url.QueryEscape(endpointSymbol(symbol, ep.Kind)), url.QueryEscape(interval), limit)

		var raw [][]any
		if err := b.getJSON(ctx, u, &raw); err != nil {
			lastErr = err
			continue
		}
		if len(raw) == 0 {
			lastErr = fmt.Errorf("endpoint %s returned no klines", ep.Name)
			continue
		}

		candles, err := parseKlines(raw)
		if err != nil {
			lastErr = fmt.Errorf("endpoint %s: %w", ep.Name, err)
			continue
		}
		return candles, nil
	}
	return nil, fmt.Errorf("%w: fetch candles for %s: %v", domain.ErrUpstreamUnavailable, symbol, lastErr)
}

// FetchPrice returns the latest traded price for symbol. Bare base assets are
// promoted to the canonical pair first (BTC -> BTCUSDT).
func (b *Binance) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, span := b.tracer.Start(ctx, "binance.fetch-price")
	defer span.End()

	pair := strings.ToUpper(strings.TrimSpace(symbol))
	if pair == "" {
		return 0, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if !strings.HasSuffix(pair, domain.QuoteSuffix) {
		pair += domain.QuoteSuffix
	}

	var lastErr error
	for _, ep := range b.endpoints {
		u := fmt.Sprintf("%s/ticker/price?symbol=%s", ep.Base, url.QueryEscape(endpointSymbol(pair, ep.Kind)))

		var body struct {
			Price string `json:"price"`
		}
		if err := b.getJSON(ctx, u, &body); err != nil {
			lastErr = err
			continue
		}
		price, err := strconv.ParseFloat(body.Price, 64)
		if err != nil || price <= 0 {
			lastErr = fmt.Errorf("endpoint %s returned unparseable price %q", ep.Name, body.Price)
			continue
		}
		return price, nil
	}
	return 0, fmt.Errorf("%w: fetch price for %s: %v", domain.ErrUpstreamUnavailable, pair, lastErr)
}

// ExchangeListing is the raw exchange-info + 24h ticker pair from one endpoint,
// before the symbol directory filters and normalizes it.
type ExchangeListing struct {
	Kind    EndpointKind
	Symbols []ListedSymbol
	Tickers []Ticker24h
}

type ListedSymbol struct {
	Symbol       string `json:"symbol"`
	BaseAsset    string `json:"baseAsset"`
	Status       string `json:"status"`
	ContractType string `json:"contractType"`
}

type Ticker24h struct {
	Symbol             string `json:"symbol"`
	QuoteVolume        string `json:"quoteVolume"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// FetchExchangeListing fetches exchange info and 24h ticker stats from the same
// endpoint; both must succeed together for the join to be coherent.
func (b *Binance) FetchExchangeListing(ctx context.Context) (*ExchangeListing, error) {
	ctx, span := b.tracer.Start(ctx, "binance.fetch-exchange-listing")
	defer span.End()

	var lastErr error
	for _, ep := range b.endpoints {
		var info struct {
			Symbols []ListedSymbol `json:"symbols"`
		}
		if err := b.getJSON(ctx, ep.Base+"/exchangeInfo", &info); err != nil {
			lastErr = err
			continue
		}
		var tickers []Ticker24h
		if err := b.getJSON(ctx, ep.Base+"/ticker/24hr", &tickers); err != nil {
			lastErr = err
			continue
		}
		if len(info.Symbols) == 0 || len(tickers) == 0 {
			lastErr = fmt.Errorf("endpoint %s returned an empty listing", ep.Name)
			continue
		}
		return &ExchangeListing{Kind: ep.Kind, Symbols: info.Symbols, Tickers: tickers}, nil
	}
	return nil, fmt.Errorf("%w: fetch exchange listing: %v", domain.ErrUpstreamUnavailable, lastErr)
}

func (b *Binance) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", u, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// parseKlines maps the upstream array-of-arrays kline payload
// [openTimeMs, open, high, low, close, volume, ...] into candles.
func parseKlines(raw [][]any) ([]domain.Candle, error) {
	candles := make([]domain.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("kline row has %d fields", len(k))
		}
		openMs, ok := k[0].(float64)
		if !ok {
			return nil, fmt.Errorf("kline open time is not numeric")
		}
		c := domain.Candle{OpenTime: int64(openMs) / 1000}
		for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			s, ok := k[i+1].(string)
			if !ok {
				return nil, fmt.Errorf("kline field %d is not a string", i+1)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline field %d: %w", i+1, err)
			}
			*dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}
