package indicator

import (
	"sync"

	"signalboard/internal/domain"
)

// trailState carries every EMA chain value at one bar: the overlay EMA, the
// fast/slow EMAs and the signal EMA. Holding the state at the last two bars is
// all an in-place or appending tick update needs.
type trailState struct {
	overlay float64
	emaFast float64
	emaSlow float64
	signal  float64
}

// LiveChart is the in-memory candle series plus its computed indicator view,
// kept current by a streaming tick feed. A tick whose open time equals the last
// bar's updates that bar in place, a newer one appends, an older one is
// discarded. Only the trailing indicator point is recomputed per tick, with the
// same numeric result as a full recompute.
type LiveChart struct {
	mu        sync.Mutex
	emaWindow int
	maxBars   int

	candles []domain.Candle
	ema     []Point
	osc     OscillatorSeries

	prev trailState // chain state at index len-2
	cur  trailState // chain state at index len-1
}

// Update is the delta a consumer needs to refresh its display after a tick.
type Update struct {
	Candle    domain.Candle
	Appended  bool
	EMA       *Point
	Line      *Point
	Signal    *Point
	Histogram *Point
}

func NewLiveChart(candles []domain.Candle, emaWindow int) *LiveChart {
	if emaWindow <= 0 {
		emaWindow = DefaultEMAWindow
	}
	lc := &LiveChart{emaWindow: emaWindow, maxBars: 2000}
	lc.candles = append([]domain.Candle(nil), candles...)
	lc.recompute()
	return lc
}

// seededLen is the series length after which every chain has left its seeding
// window, so a trailing tick touches exactly one point per chain and the O(1)
// update rule applies.
func (lc *LiveChart) seededLen() int {
	n := slowPeriod + signalPeriod
	if lc.emaWindow+1 > n {
		n = lc.emaWindow + 1
	}
	return n
}

func (lc *LiveChart) recompute() {
	lc.ema = EMA(lc.candles, lc.emaWindow)
	lc.osc = Oscillator(lc.candles)
	lc.prev, lc.cur = trailState{}, trailState{}

	n := len(lc.candles)
	if n < lc.seededLen() {
		return
	}

	closes := make([]float64, n)
	for i, c := range lc.candles {
		closes[i] = c.Close
	}
	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)
	_, signal, _ := macdArrays(closes)

	lc.cur = trailState{
		overlay: lc.ema[len(lc.ema)-1].Value,
		emaFast: fast[n-1],
		emaSlow: slow[n-1],
		signal:  signal[n-1],
	}
	lc.prev = trailState{
		overlay: lc.ema[len(lc.ema)-2].Value,
		emaFast: fast[n-2],
		emaSlow: slow[n-2],
		signal:  signal[n-2],
	}
}

// Candles returns a copy of the current series.
func (lc *LiveChart) Candles() []domain.Candle {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]domain.Candle, len(lc.candles))
	copy(out, lc.candles)
	return out
}

// View returns the current computed series.
func (lc *LiveChart) View() ([]Point, OscillatorSeries) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.ema, lc.osc
}

// ApplyTick merges one new or revised trailing candle into the series and
// refreshes the trailing indicator point(s). It reports false for an
// out-of-order tick, which is ignored.
func (lc *LiveChart) ApplyTick(c domain.Candle) (Update, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	n := len(lc.candles)
	if n == 0 {
		lc.candles = append(lc.candles, c)
		lc.recompute()
		return lc.trailingUpdate(c, true), true
	}

	last := lc.candles[n-1]
	switch {
	case c.OpenTime == last.OpenTime:
		lc.candles[n-1] = c
		lc.refreshTrailing(false)
		return lc.trailingUpdate(c, false), true
	case c.OpenTime > last.OpenTime:
		lc.candles = append(lc.candles, c)
		if len(lc.candles) > lc.maxBars {
			// Dropping the head shifts every index; recompute from scratch.
			lc.candles = lc.candles[1:]
			lc.recompute()
			return lc.trailingUpdate(c, true), true
		}
		lc.refreshTrailing(true)
		return lc.trailingUpdate(c, true), true
	default:
		return Update{}, false
	}
}

// ReplaceHistory swaps in a freshly fetched full series, unless it is stale: a
// refetch whose last bar is older than the in-memory last bar lost the race
// with the stream and is discarded. Reports whether the replacement was taken.
func (lc *LiveChart) ReplaceHistory(candles []domain.Candle) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(candles) == 0 {
		return false
	}
	if len(lc.candles) > 0 && candles[len(candles)-1].OpenTime < lc.candles[len(lc.candles)-1].OpenTime {
		return false
	}
	lc.candles = append(lc.candles[:0], candles...)
	lc.recompute()
	return true
}

// refreshTrailing recomputes only the indicator values at the last position.
// appended tells whether the tick opened a new bar, in which case the current
// chain state first rolls into the previous slot.
func (lc *LiveChart) refreshTrailing(appended bool) {
	n := len(lc.candles)
	if n < lc.seededLen()+1 {
		// Still inside (or one bar past) a seeding window; the series is
		// short, a full recompute is the simple correct path.
		lc.recompute()
		return
	}

	if appended {
		lc.prev = lc.cur
		last := lc.candles[n-1]
		lc.ema = append(lc.ema, Point{Time: last.OpenTime})
		lc.osc.Line = append(lc.osc.Line, Point{Time: last.OpenTime})
		lc.osc.Signal = append(lc.osc.Signal, Point{Time: last.OpenTime})
		lc.osc.Histogram = append(lc.osc.Histogram, Point{Time: last.OpenTime})
	}

	close := lc.candles[n-1].Close

	kOverlay := 2.0 / float64(lc.emaWindow+1)
	kFast := 2.0 / float64(fastPeriod+1)
	kSlow := 2.0 / float64(slowPeriod+1)
	kSig := 2.0 / float64(signalPeriod+1)

	lc.cur = trailState{
		overlay: (close-lc.prev.overlay)*kOverlay + lc.prev.overlay,
		emaFast: (close-lc.prev.emaFast)*kFast + lc.prev.emaFast,
		emaSlow: (close-lc.prev.emaSlow)*kSlow + lc.prev.emaSlow,
	}
	line := lc.cur.emaFast - lc.cur.emaSlow
	lc.cur.signal = (line-lc.prev.signal)*kSig + lc.prev.signal

	t := lc.candles[n-1].OpenTime
	lc.ema[len(lc.ema)-1] = Point{Time: t, Value: lc.cur.overlay, Valid: true}
	li := len(lc.osc.Line) - 1
	lc.osc.Line[li] = Point{Time: t, Value: line, Valid: true}
	lc.osc.Signal[li] = Point{Time: t, Value: lc.cur.signal, Valid: true}
	lc.osc.Histogram[li] = Point{Time: t, Value: line - lc.cur.signal, Valid: true}
}

func (lc *LiveChart) trailingUpdate(c domain.Candle, appended bool) Update {
	u := Update{Candle: c, Appended: appended}
	if n := len(lc.ema); n > 0 {
		p := lc.ema[n-1]
		u.EMA = &p
	}
	if n := len(lc.osc.Line); n > 0 {
		if p := lc.osc.Line[n-1]; p.Valid {
			u.Line = &p
		}
		if p := lc.osc.Signal[n-1]; p.Valid {
			u.Signal = &p
		}
		if p := lc.osc.Histogram[n-1]; p.Valid {
			u.Histogram = &p
		}
	}
	return u
}
