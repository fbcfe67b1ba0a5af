// Package indicator holds the pure transforms behind the chart view: an
// exponential moving-average overlay and the 12/26/9 oscillator bundle, plus
// the incremental path that keeps both current under a live tick feed.
package indicator

import "signalboard/internal/domain"

const (
	DefaultEMAWindow = 120

	fastPeriod   = 12
	slowPeriod   = 26
	signalPeriod = 9
)

// Point is one computed indicator value. Valid=false marks a placeholder bar
// emitted to keep index alignment with the candle series; consumers must not
// read Value when Valid is false.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value,omitempty"`
	Valid bool    `json:"valid"`
}

// OscillatorSeries bundles the three outputs of the oscillator. All slices have
// the same length as the input candle series.
type OscillatorSeries struct {
	Line      []Point `json:"line"`
	Signal    []Point `json:"signal"`
	Histogram []Point `json:"histogram"`
}

// EMA computes an exponential moving average of the closes, seeded with the
// simple average of the first window closes. One point per bar from index
// window-1 onward; an input shorter than window yields nothing.
func EMA(candles []domain.Candle, window int) []Point {
	if window <= 0 {
		window = DefaultEMAWindow
	}
	if len(candles) < window {
		return nil
	}

	out := make([]Point, 0, len(candles)-window+1)
	sum := 0.0
	for i := 0; i < window; i++ {
		sum += candles[i].Close
	}
	ema := sum / float64(window)
	out = append(out, Point{Time: candles[window-1].OpenTime, Value: ema, Valid: true})

	k := 2.0 / float64(window+1)
	for i := window; i < len(candles); i++ {
		ema = (candles[i].Close-ema)*k + ema
		out = append(out, Point{Time: candles[i].OpenTime, Value: ema, Valid: true})
	}
	return out
}

// Oscillator computes the fast/slow EMA difference (line), its 9-period EMA
// (signal) and line-minus-signal (histogram) over the closes. The periods are
// fixed. Bars before a sub-average has enough samples come back as placeholder
// points, so an input shorter than the slow period yields an all-placeholder
// series of the same length.
func Oscillator(candles []domain.Candle) OscillatorSeries {
	n := len(candles)
	s := OscillatorSeries{
		Line:      make([]Point, n),
		Signal:    make([]Point, n),
		Histogram: make([]Point, n),
	}
	for i := 0; i < n; i++ {
		t := candles[i].OpenTime
		s.Line[i] = Point{Time: t}
		s.Signal[i] = Point{Time: t}
		s.Histogram[i] = Point{Time: t}
	}
	if n < slowPeriod {
		return s
	}

	closes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
	}
	line, signal, signalStart := macdArrays(closes)

	// All three outputs become valid together (once the signal seed exists) so
	// downstream consumers keep a single alignment rule.
	for i := signalStart; i >= 0 && i < n; i++ {
		s.Line[i] = Point{Time: candles[i].OpenTime, Value: line[i], Valid: true}
		s.Signal[i] = Point{Time: candles[i].OpenTime, Value: signal[i], Valid: true}
		s.Histogram[i] = Point{Time: candles[i].OpenTime, Value: line[i] - signal[i], Valid: true}
	}
	return s
}

// macdArrays computes the oscillator line and its signal EMA over the closes,
// aligned to the input. The line starts where both EMAs exist (slowPeriod-1);
// the signal is seeded by the simple average of the line's first signalPeriod
// values and starts at the returned index. signalStart is -1 when the input is
// too short for the signal to seed.
func macdArrays(closes []float64) (line, signal []float64, signalStart int) {
	n := len(closes)
	line = make([]float64, n)
	signal = make([]float64, n)
	if n < slowPeriod {
		return line, signal, -1
	}

	emaFast := emaSeries(closes, fastPeriod)
	emaSlow := emaSeries(closes, slowPeriod)
	for i := slowPeriod - 1; i < n; i++ {
		line[i] = emaFast[i] - emaSlow[i]
	}

	signalStart = slowPeriod + signalPeriod - 2
	if n <= signalStart {
		return line, signal, -1
	}
	sum := 0.0
	for i := slowPeriod - 1; i <= signalStart; i++ {
		sum += line[i]
	}
	signal[signalStart] = sum / float64(signalPeriod)
	k := 2.0 / float64(signalPeriod+1)
	for i := signalStart + 1; i < n; i++ {
		signal[i] = (line[i]-signal[i-1])*k + signal[i-1]
	}
	return line, signal, signalStart
}

// emaSeries returns the EMA of values with the given period, aligned to the
// input: indexes before period-1 hold zero and are never read by callers.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)
	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}
