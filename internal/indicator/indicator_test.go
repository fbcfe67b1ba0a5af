package indicator

import (
	"math"
	"testing"

	"signalboard/internal/domain"
)

func genCandles(n int) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := 0; i < n; i++ {
		base := 100.0 + 10.0*math.Sin(float64(i)/3.0)
		candles[i] = domain.Candle{
			OpenTime: int64(1700000000 + i*3600),
			Open:     base - 0.5,
			High:     base + 1.0,
			Low:      base - 1.0,
			Close:    base,
			Volume:   1000 + float64(i),
		}
	}
	return candles
}

func TestEMASeededWithSimpleAverage(t *testing.T) {
	candles := []domain.Candle{
		{OpenTime: 1, Close: 1},
		{OpenTime: 2, Close: 2},
		{OpenTime: 3, Close: 3},
		{OpenTime: 4, Close: 4},
		{OpenTime: 5, Close: 5},
	}

	points := EMA(candles, 3)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Time != 3 || points[0].Value != 2.0 {
		t.Fatalf("expected seed point (3, 2.0), got (%d, %v)", points[0].Time, points[0].Value)
	}
	// k = 2/(3+1) = 0.5
	if points[1].Value != 3.0 {
		t.Fatalf("expected second point 3.0, got %v", points[1].Value)
	}
	if points[2].Value != 4.0 {
		t.Fatalf("expected third point 4.0, got %v", points[2].Value)
	}
	for _, p := range points {
		if !p.Valid {
			t.Fatalf("expected all emitted points valid, got %+v", p)
		}
	}
}

func TestEMATooShortYieldsNothing(t *testing.T) {
	if points := EMA(genCandles(119), 120); points != nil {
		t.Fatalf("expected nil for input shorter than window, got %d points", len(points))
	}
}

func TestOscillatorShortSeriesAllPlaceholders(t *testing.T) {
	candles := genCandles(20)
	s := Oscillator(candles)

	if len(s.Line) != 20 || len(s.Signal) != 20 || len(s.Histogram) != 20 {
		t.Fatalf("expected all series length 20, got %d/%d/%d", len(s.Line), len(s.Signal), len(s.Histogram))
	}
	for i := 0; i < 20; i++ {
		if s.Line[i].Valid || s.Signal[i].Valid || s.Histogram[i].Valid {
			t.Fatalf("expected placeholder at index %d", i)
		}
		if s.Line[i].Time != candles[i].OpenTime {
			t.Fatalf("expected placeholder to keep bar time at index %d", i)
		}
	}
}

func TestOscillatorValidityStartsTogether(t *testing.T) {
	candles := genCandles(40)
	s := Oscillator(candles)

	// 26 + 9 - 2
	const start = 33
	for i := 0; i < start; i++ {
		if s.Line[i].Valid || s.Signal[i].Valid || s.Histogram[i].Valid {
			t.Fatalf("expected all placeholders before index %d, found valid at %d", start, i)
		}
	}
	for i := start; i < 40; i++ {
		if !s.Line[i].Valid || !s.Signal[i].Valid || !s.Histogram[i].Valid {
			t.Fatalf("expected all valid from index %d, found placeholder at %d", start, i)
		}
		got := s.Histogram[i].Value
		want := s.Line[i].Value - s.Signal[i].Value
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("histogram mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestOscillatorSignalSeededFromLineAverage(t *testing.T) {
	candles := genCandles(40)
	s := Oscillator(candles)

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	line, _, start := macdArrays(closes)
	if start != 33 {
		t.Fatalf("expected signal start 33, got %d", start)
	}

	sum := 0.0
	for i := 25; i <= start; i++ {
		sum += line[i]
	}
	want := sum / 9.0
	if math.Abs(s.Signal[start].Value-want) > 1e-12 {
		t.Fatalf("expected signal seed %v, got %v", want, s.Signal[start].Value)
	}
}
