package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"signalboard/internal/discord"
	"signalboard/internal/domain"
	"signalboard/internal/repository"

	"go.opentelemetry.io/otel/trace"
)

// SignalStore is the persistence slice the signal service depends on.
// *repository.SignalRepository satisfies it; tests substitute a stub.
type SignalStore interface {
	Insert(ctx context.Context, s domain.Signal) error
	Get(ctx context.Context, id string) (*domain.Signal, error)
	UpdatePrices(ctx context.Context, id string, takeProfit, stopLoss domain.Price) error
	AppendLog(ctx context.Context, signalID string, entry domain.SignalLogEntry) error
	ListLogs(ctx context.Context, signalID string) ([]domain.SignalLogEntry, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID, serverID string, limit int) ([]domain.Signal, error)
	ListServerTimestamps(ctx context.Context) ([]repository.ServerTimestamp, error)
}

// ThreadCoordinator is the remote-sync slice the signal service schedules
// work on. Only PostNewSignal is allowed to fail an operation.
type ThreadCoordinator interface {
	PostNewSignal(ctx context.Context, ident domain.Identity, s domain.Signal) (string, error)
	SyncMessage(ident domain.Identity, s domain.Signal)
	DeleteThread(ident domain.Identity, signalID, threadID string)
}

// SignalService owns the signal lifecycle: composing and posting, owner-gated
// reads and edits, the append-only change log, and deletion. Remote thread
// state trails local state and never blocks it.
type SignalService struct {
	tracer trace.Tracer
	store  SignalStore
	coord  ThreadCoordinator
	now    func() time.Time
}

func NewSignalService(tracer trace.Tracer, store SignalStore, coord ThreadCoordinator) *SignalService {
	return &SignalService{
		tracer: tracer,
		store:  store,
		coord:  coord,
		now:    time.Now,
	}
}

// NewSignalRequest carries the user-entered fields of a signal being posted.
type NewSignalRequest struct {
	CoinSymbol   string              `json:"coinSymbol"`
	CoinName     string              `json:"coinName"`
	PositionType domain.PositionType `json:"positionType"`
	EntryPrice   domain.Price        `json:"entryPrice"`
	TakeProfit   domain.Price        `json:"takeProfit"`
	StopLoss     domain.Price        `json:"stopLoss"`
	Reason       string              `json:"reason"`
	ServerID     string              `json:"serverId"`
	ChannelID    string              `json:"channelId"`
}

// Create validates and persists a new signal after posting its forum thread.
// Thread creation is the one remote call that can fail the operation: without
// a thread id there is nothing to keep in sync later, so no row is written.
func (s *SignalService) Create(ctx context.Context, ident domain.Identity, req NewSignalRequest) (*domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.create")
	defer span.End()

	if ident.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.CoinSymbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: coinSymbol is required", domain.ErrInvalidInput)
	}
	if !req.PositionType.IsValid() {
		return nil, fmt.Errorf("%w: positionType must be long or short", domain.ErrInvalidInput)
	}
	if req.EntryPrice.IsZero() {
		return nil, fmt.Errorf("%w: entryPrice is required", domain.ErrInvalidInput)
	}
	if req.TakeProfit.IsZero() {
		return nil, fmt.Errorf("%w: takeProfit is required", domain.ErrInvalidInput)
	}
	if req.StopLoss.IsZero() {
		return nil, fmt.Errorf("%w: stopLoss is required", domain.ErrInvalidInput)
	}
	if req.ChannelID == "" {
		return nil, fmt.Errorf("%w: channelId is required", domain.ErrInvalidInput)
	}

	now := s.now()
	sig := domain.Signal{
		ID:              newSignalID(now),
		Timestamp:       now.UnixMilli(),
		CoinSymbol:      symbol,
		CoinName:        strings.TrimSpace(req.CoinName),
		PositionType:    req.PositionType,
		EntryPrice:      req.EntryPrice,
		TakeProfit:      req.TakeProfit,
		StopLoss:        req.StopLoss,
		Reason:          strings.TrimSpace(req.Reason),
		RiskRewardRatio: discord.RiskRewardRatio(req.EntryPrice, req.TakeProfit, req.StopLoss),
		Sender:          ident.DisplayName,
		ServerID:        req.ServerID,
		ChannelID:       req.ChannelID,
		UserID:          ident.UserID,
	}
	if sig.CoinName == "" {
		sig.CoinName = symbol
	}

	threadID, err := s.coord.PostNewSignal(ctx, ident, sig)
	if err != nil {
		return nil, err
	}
	sig.ThreadID = threadID

	if err := s.store.Insert(ctx, sig); err != nil {
		return nil, fmt.Errorf("persist signal: %w", err)
	}
	return &sig, nil
}

// Get returns the caller's signal. A signal owned by someone else is
// forbidden, not hidden: the id was valid, the caller just isn't its owner.
func (s *SignalService) Get(ctx context.Context, ident domain.Identity, id string) (*domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.get")
	defer span.End()

	return s.ownedSignal(ctx, ident, id)
}

// Update applies an owner's take-profit/stop-loss patch. A patch field left
// nil keeps the stored value. When string comparison finds no actual change
// the call is a no-op: no row update, no log entry, no thread sync.
func (s *SignalService) Update(ctx context.Context, ident domain.Identity, id string, patch domain.SignalPatch) (*domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.update")
	defer span.End()

	sig, err := s.ownedSignal(ctx, ident, id)
	if err != nil {
		return nil, err
	}

	newTP := sig.TakeProfit
	if patch.TakeProfit != nil {
		newTP = *patch.TakeProfit
	}
	newSL := sig.StopLoss
	if patch.StopLoss != nil {
		newSL = *patch.StopLoss
	}
	if newTP.Equal(sig.TakeProfit) && newSL.Equal(sig.StopLoss) {
		return sig, nil
	}

	entry := domain.SignalLogEntry{
		OldTakeProfit: sig.TakeProfit,
		NewTakeProfit: newTP,
		OldStopLoss:   sig.StopLoss,
		NewStopLoss:   newSL,
		UpdatedAt:     s.now().UTC(),
		UpdatedBy:     ident.UserID,
	}

	if err := s.store.UpdatePrices(ctx, id, newTP, newSL); err != nil {
		return nil, err
	}
	// The field write is the source of truth; a failed log append keeps the
	// update but loses one history row.
	if err := s.store.AppendLog(ctx, id, entry); err != nil {
		log.Printf("append change log for signal %s: %v", id, err)
	}

	sig.TakeProfit = newTP
	sig.StopLoss = newSL
	sig.RiskRewardRatio = discord.RiskRewardRatio(sig.EntryPrice, newTP, newSL)
	s.coord.SyncMessage(ident, *sig)
	return sig, nil
}

// Logs returns the signal's change history, newest first.
func (s *SignalService) Logs(ctx context.Context, ident domain.Identity, id string) ([]domain.SignalLogEntry, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.logs")
	defer span.End()

	if _, err := s.ownedSignal(ctx, ident, id); err != nil {
		return nil, err
	}
	return s.store.ListLogs(ctx, id)
}

// Delete removes the caller's signal locally and schedules best-effort thread
// deletion. The local delete succeeds regardless of what the remote does.
func (s *SignalService) Delete(ctx context.Context, ident domain.Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "signal-service.delete")
	defer span.End()

	sig, err := s.ownedSignal(ctx, ident, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.coord.DeleteThread(ident, sig.ID, sig.ThreadID)
	return nil
}

// List returns the caller's signals newest first, optionally scoped to one
// server.
func (s *SignalService) List(ctx context.Context, ident domain.Identity, serverID string, limit int) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.list")
	defer span.End()

	if ident.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.store.ListByUser(ctx, ident.UserID, serverID, limit)
}

// AggregateByServer folds every signal's (server, timestamp) pair into
// per-server totals, most active server first.
func (s *SignalService) AggregateByServer(ctx context.Context) ([]domain.ServerStats, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.aggregate-by-server")
	defer span.End()

	pairs, err := s.store.ListServerTimestamps(ctx)
	if err != nil {
		return nil, err
	}

	byServer := make(map[string]*domain.ServerStats)
	for _, p := range pairs {
		st, ok := byServer[p.ServerID]
		if !ok {
			st = &domain.ServerStats{ServerID: p.ServerID}
			byServer[p.ServerID] = st
		}
		st.TotalSignals++
		if p.Timestamp > st.LastSignalTime {
			st.LastSignalTime = p.Timestamp
		}
	}

	out := make([]domain.ServerStats, 0, len(byServer))
	for _, st := range byServer {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSignals != out[j].TotalSignals {
			return out[i].TotalSignals > out[j].TotalSignals
		}
		return out[i].ServerID < out[j].ServerID
	})
	return out, nil
}

// ownedSignal loads the row and applies the ownership gate shared by every
// per-signal operation.
func (s *SignalService) ownedSignal(ctx context.Context, ident domain.Identity, id string) (*domain.Signal, error) {
	if ident.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	sig, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sig.UserID != ident.UserID {
		return nil, domain.ErrForbidden
	}
	return sig, nil
}

// newSignalID combines the creation time with a random suffix. Millisecond
// collisions between two posts are possible; the suffix keeps their ids apart.
func newSignalID(now time.Time) string {
	return fmt.Sprintf("%d-%06d", now.UnixMilli(), rand.Intn(1_000_000))
}
