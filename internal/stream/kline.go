// Package stream feeds live kline ticks from the exchange's websocket fan-out
// into an in-memory chart. One subscription covers one symbol+interval pair.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"signalboard/internal/domain"
	"signalboard/internal/indicator"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
)

const defaultStreamBase = "wss://fstream.binance.com/ws"

// klineEvent is the upstream kline push. Only the fields the chart consumes
// are decoded.
type klineEvent struct {
	EventType string `json:"e"`
	Kline     struct {
		OpenTime int64  `json:"t"` // epoch millis
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		Closed   bool   `json:"x"`
	} `json:"k"`
}

// KlineFeed dials the exchange stream for one symbol+interval and applies each
// tick to a live chart. It reconnects with capped exponential backoff until its
// context is cancelled.
type KlineFeed struct {
	tracer   trace.Tracer
	base     string
	symbol   string
	interval string
	chart    *indicator.LiveChart
	onUpdate func(indicator.Update)
}

func NewKlineFeed(tracer trace.Tracer, symbol, interval string, chart *indicator.LiveChart) *KlineFeed {
	return &KlineFeed{
		tracer:   tracer,
		base:     defaultStreamBase,
		symbol:   symbol,
		interval: interval,
		chart:    chart,
	}
}

// WithBase overrides the stream endpoint. Tests point this at a local server.
func (f *KlineFeed) WithBase(base string) *KlineFeed {
	f.base = strings.TrimRight(base, "/")
	return f
}

// OnUpdate registers a callback invoked for every accepted tick, after the
// chart has absorbed it.
func (f *KlineFeed) OnUpdate(fn func(indicator.Update)) *KlineFeed {
	f.onUpdate = fn
	return f
}

func (f *KlineFeed) url() string {
	return fmt.Sprintf("%s/%s@kline_%s", f.base, strings.ToLower(f.symbol), f.interval)
}

// Run blocks, pumping ticks into the chart until ctx is cancelled. Each
// connection loss restarts the dial with backoff; a tick the chart rejects as
// out of order is dropped silently.
func (f *KlineFeed) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := f.pump(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Printf("kline stream %s@%s: %v, reconnecting in %s", f.symbol, f.interval, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (f *KlineFeed) pump(ctx context.Context) error {
	ctx, span := f.tracer.Start(ctx, "kline-feed.pump")
	defer span.End()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		var ev klineEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.EventType != "kline" {
			continue
		}
		candle, err := ev.candle()
		if err != nil {
			log.Printf("kline stream %s@%s: bad tick: %v", f.symbol, f.interval, err)
			continue
		}

		if update, ok := f.chart.ApplyTick(candle); ok && f.onUpdate != nil {
			f.onUpdate(update)
		}
	}
}

func (ev klineEvent) candle() (domain.Candle, error) {
	c := domain.Candle{OpenTime: ev.Kline.OpenTime / 1000}
	for _, field := range []struct {
		raw string
		dst *float64
	}{
		{ev.Kline.Open, &c.Open},
		{ev.Kline.High, &c.High},
		{ev.Kline.Low, &c.Low},
		{ev.Kline.Close, &c.Close},
		{ev.Kline.Volume, &c.Volume},
	} {
		v, err := strconv.ParseFloat(field.raw, 64)
		if err != nil {
			return domain.Candle{}, err
		}
		*field.dst = v
	}
	return c, nil
}
