package domain

import (
	"errors"
	"time"
)

// Error taxonomy shared across services and handlers. Wrap with
// fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrTooManyTags         = errors.New("too many tags")
	ErrRemoteSync          = errors.New("remote sync failed")
)

// QuoteSuffix is the canonical quote-currency suffix all trading symbols are
// normalized to before they reach the chart pipeline or any other component.
const QuoteSuffix = "USDT"

var SupportedIntervals = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w"}

type PositionType string

const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

func (p PositionType) IsValid() bool {
	return p == PositionLong || p == PositionShort
}

// Price is a decimal value carried as text. Signals store entry/target/stop levels
// as the user typed them; equality is plain string equality so "0" and "0.0" are
// distinct and no float rounding noise leaks into change detection.
type Price string

func (p Price) Equal(o Price) bool { return string(p) == string(o) }

func (p Price) IsZero() bool { return p == "" }

// Signal is a trading call posted by a user and mirrored, best effort, into a
// Discord forum thread.
type Signal struct {
	ID              string       `json:"id"`
	Timestamp       int64        `json:"timestamp"` // epoch millis at creation
	CoinSymbol      string       `json:"coinSymbol"`
	CoinName        string       `json:"coinName"`
	PositionType    PositionType `json:"positionType"`
	EntryPrice      Price        `json:"entryPrice"`
	TakeProfit      Price        `json:"takeProfit"`
	StopLoss        Price        `json:"stopLoss"`
	Reason          string       `json:"reason,omitempty"`
	RiskRewardRatio string       `json:"riskRewardRatio,omitempty"`
	Sender          string       `json:"sender"`
	ServerID        string       `json:"serverId"`
	ChannelID       string       `json:"channelId"`
	ThreadID        string       `json:"threadId,omitempty"` // write-once; empty means no remote thread
	UserID          string       `json:"userId"`
}

// SignalLogEntry is one append-only audit record for a take-profit/stop-loss edit.
// Both field pairs are always recorded, changed or not, so the history renders a
// consistent diff view.
type SignalLogEntry struct {
	ID            int64     `json:"id"`
	OldTakeProfit Price     `json:"oldTakeProfit"`
	NewTakeProfit Price     `json:"newTakeProfit"`
	OldStopLoss   Price     `json:"oldStopLoss"`
	NewStopLoss   Price     `json:"newStopLoss"`
	UpdatedAt     time.Time `json:"updatedAt"`
	UpdatedBy     string    `json:"updatedBy"`
}

// SignalPatch lists exactly the fields an owner may edit. A nil field keeps the
// current value. Handlers reject unknown JSON fields before this type is built.
type SignalPatch struct {
	TakeProfit *Price `json:"takeProfit"`
	StopLoss   *Price `json:"stopLoss"`
}

func (p SignalPatch) IsEmpty() bool { return p.TakeProfit == nil && p.StopLoss == nil }

// ServerStats is the per-server usage summary shown to operators.
type ServerStats struct {
	ServerID       string `json:"serverId"`
	TotalSignals   int    `json:"totalSignals"`
	LastSignalTime int64  `json:"lastSignalTime"` // epoch millis
}

// Candle is one OHLC bar. OpenTime is epoch seconds; upstream millisecond
// timestamps are normalized before a candle leaves the provider.
type Candle struct {
	OpenTime int64   `json:"time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume,omitempty"`
}

// SymbolDescriptor is a tradable pair, normalized to the canonical quote suffix.
type SymbolDescriptor struct {
	Symbol            string  `json:"symbol"` // canonical, e.g. BTCUSDT
	BaseAsset         string  `json:"baseAsset"`
	QuoteVolume24h    float64 `json:"volume"`
	PriceChangePct24h float64 `json:"priceChangePercent"`
}

// Identity is the authenticated caller as handed over by the session layer.
type Identity struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	AccessToken string // bearer credential for the messaging platform
}
