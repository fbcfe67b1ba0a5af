package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"signalboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// MaxThreadTags is Discord's cap on applied forum tags, enforced locally before
// any call leaves the process.
const MaxThreadTags = 5

const (
	colorLong  = 0x00FF00
	colorShort = 0xFF0000

	coinIconBase = "https://cdn.jsdelivr.net/gh/StarWindTW/Binance-Icons/icons"
)

// ThreadAPI is the slice of the bot gateway the coordinator needs.
type ThreadAPI interface {
	CreateThread(ctx context.Context, token, channelID, title string, embed Embed) (string, error)
	UpdateThreadMessage(ctx context.Context, token, threadID string, embed *Embed, tagIDs []string) error
	DeleteThread(ctx context.Context, token, threadID string) error
}

// SyncEvent reports the outcome of one best-effort remote operation to the
// observer seam. Tests assert on these instead of real network traffic.
type SyncEvent struct {
	Op       string // "sync-message", "delete-thread"
	SignalID string
	ThreadID string
	Err      error
}

// Coordinator keeps a signal's remote forum thread approximately in step with
// its stored fields. Local state is authoritative: apart from the initial
// thread creation, every remote call here is fire-and-forget — failures are
// logged and observed, never surfaced to the operation that scheduled them.
type Coordinator struct {
	tracer      trace.Tracer
	api         ThreadAPI
	syncTimeout time.Duration
	observer    func(SyncEvent)
}

func NewCoordinator(tracer trace.Tracer, api ThreadAPI) *Coordinator {
	return &Coordinator{
		tracer:      tracer,
		api:         api,
		syncTimeout: 15 * time.Second,
	}
}

// WithObserver registers a callback invoked after every detached sync attempt.
func (c *Coordinator) WithObserver(fn func(SyncEvent)) *Coordinator {
	c.observer = fn
	return c
}

// PostNewSignal creates the forum thread for a freshly composed signal and
// returns the thread id to store on it. This is the one synchronous, required
// remote call in the posting flow: a signal with no thread cannot be posted.
func (c *Coordinator) PostNewSignal(ctx context.Context, ident domain.Identity, s domain.Signal) (string, error) {
	ctx, span := c.tracer.Start(ctx, "thread-sync.post-new-signal")
	defer span.End()

	title := threadTitle(s)
	embed := BuildEmbed(s, ident)
	threadID, err := c.api.CreateThread(ctx, ident.AccessToken, s.ChannelID, title, embed)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return threadID, nil
}

// SyncMessage re-renders the embed from the signal's current fields and pushes
// it to the thread in a detached goroutine. No-op when the signal never got a
// thread. Callers must not depend on the outcome.
func (c *Coordinator) SyncMessage(ident domain.Identity, s domain.Signal) {
	if s.ThreadID == "" {
		return
	}
	embed := BuildEmbed(s, ident)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.syncTimeout)
		defer cancel()
		ctx, span := c.tracer.Start(ctx, "thread-sync.sync-message")
		defer span.End()

		err := c.api.UpdateThreadMessage(ctx, ident.AccessToken, s.ThreadID, &embed, nil)
		if err != nil {
			log.Printf("thread sync failed for signal %s (thread %s): %v", s.ID, s.ThreadID, err)
		}
		c.notify(SyncEvent{Op: "sync-message", SignalID: s.ID, ThreadID: s.ThreadID, Err: err})
	}()
}

// SetTags replaces the thread's applied tag set. The tag cap is checked locally
// so an oversized set never reaches the gateway. This call is synchronous: the
// caller owns any optimistic UI state to roll back on failure.
func (c *Coordinator) SetTags(ctx context.Context, ident domain.Identity, threadID string, tagIDs []string) error {
	ctx, span := c.tracer.Start(ctx, "thread-sync.set-tags")
	defer span.End()

	if len(tagIDs) > MaxThreadTags {
		return fmt.Errorf("%w: %d tags, max %d", domain.ErrTooManyTags, len(tagIDs), MaxThreadTags)
	}
	if err := c.api.UpdateThreadMessage(ctx, ident.AccessToken, threadID, nil, tagIDs); err != nil {
		return fmt.Errorf("%w: set tags on thread %s: %v", domain.ErrRemoteSync, threadID, err)
	}
	return nil
}

// DeleteThread requests remote deletion in a detached goroutine. The local
// signal delete has already happened and never waits for this.
func (c *Coordinator) DeleteThread(ident domain.Identity, signalID, threadID string) {
	if threadID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.syncTimeout)
		defer cancel()
		ctx, span := c.tracer.Start(ctx, "thread-sync.delete-thread")
		defer span.End()

		err := c.api.DeleteThread(ctx, ident.AccessToken, threadID)
		if err != nil {
			log.Printf("thread deletion failed for signal %s (thread %s): %v", signalID, threadID, err)
		}
		c.notify(SyncEvent{Op: "delete-thread", SignalID: signalID, ThreadID: threadID, Err: err})
	}()
}

func (c *Coordinator) notify(ev SyncEvent) {
	if c.observer != nil {
		c.observer(ev)
	}
}

func threadTitle(s domain.Signal) string {
	arrow := "📈"
	side := "LONG"
	if s.PositionType == domain.PositionShort {
		arrow = "📉"
		side = "SHORT"
	}
	return fmt.Sprintf("%s %s-%s", arrow, s.CoinSymbol, side)
}

// BuildEmbed renders the structured thread message from the signal's current
// field values: author line, coin/entry/target/stop fields, optional
// risk-reward field, sender footer.
func BuildEmbed(s domain.Signal, ident domain.Identity) Embed {
	side := "LONG"
	color := colorLong
	if s.PositionType == domain.PositionShort {
		side = "SHORT"
		color = colorShort
	}

	fields := []EmbedField{
		{Name: "💎 Coin", Value: code(s.CoinName), Inline: false},
		{Name: "📍 Entry", Value: code(string(s.EntryPrice)), Inline: true},
		{Name: "🎯 Target", Value: code(string(s.TakeProfit)), Inline: true},
		{Name: "🛡️ Stop", Value: code(string(s.StopLoss)), Inline: true},
	}
	if s.Reason != "" {
		fields = append(fields, EmbedField{Name: "📝 Reason", Value: s.Reason, Inline: false})
	}
	if s.RiskRewardRatio != "" {
		fields = append(fields, EmbedField{Name: "📊 R:R", Value: code(s.RiskRewardRatio + ":1"), Inline: true})
	}

	return Embed{
		Author: EmbedAuthor{
			Name:    fmt.Sprintf("%s-%s", s.CoinSymbol, side),
			IconURL: fmt.Sprintf("%s/%s.png", coinIconBase, strings.ToUpper(s.CoinSymbol)),
		},
		Title:     "Trading Signal",
		Color:     color,
		Fields:    fields,
		Footer:    EmbedFooter{Text: s.Sender, IconURL: ident.AvatarURL},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RiskRewardRatio derives the profit/loss ratio from the three price levels,
// formatted to two decimals. Empty when any level is missing or unparseable,
// or the loss distance is zero.
func RiskRewardRatio(entry, takeProfit, stopLoss domain.Price) string {
	e, err1 := strconv.ParseFloat(string(entry), 64)
	tp, err2 := strconv.ParseFloat(string(takeProfit), 64)
	sl, err3 := strconv.ParseFloat(string(stopLoss), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}
	profit := math.Abs(tp - e)
	loss := math.Abs(e - sl)
	if loss == 0 {
		return ""
	}
	return strconv.FormatFloat(profit/loss, 'f', 2, 64)
}

func code(v string) string {
	if v == "" {
		v = "unset"
	}
	return "`" + v + "`"
}
