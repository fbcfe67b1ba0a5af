package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signalboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

func (r *SignalRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "signal-repo.run-migrations")
	defer span.End()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id                TEXT PRIMARY KEY,
			timestamp         BIGINT NOT NULL,
			coin_symbol       TEXT NOT NULL,
			coin_name         TEXT NOT NULL DEFAULT '',
			position_type     TEXT NOT NULL,
			entry_price       TEXT NOT NULL,
			take_profit       TEXT NOT NULL DEFAULT '',
			stop_loss         TEXT NOT NULL DEFAULT '',
			reason            TEXT NOT NULL DEFAULT '',
			risk_reward_ratio TEXT NOT NULL DEFAULT '',
			sender            TEXT NOT NULL DEFAULT '',
			server_id         TEXT,
			channel_id        TEXT NOT NULL DEFAULT '',
			thread_id         TEXT NOT NULL DEFAULT '',
			user_id           TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_user ON signals (user_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_server ON signals (server_id)`,
		`CREATE TABLE IF NOT EXISTS signal_logs (
			id              BIGSERIAL PRIMARY KEY,
			signal_id       TEXT NOT NULL REFERENCES signals(id) ON DELETE CASCADE,
			old_take_profit TEXT NOT NULL DEFAULT '',
			new_take_profit TEXT NOT NULL DEFAULT '',
			old_stop_loss   TEXT NOT NULL DEFAULT '',
			new_stop_loss   TEXT NOT NULL DEFAULT '',
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_by      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_logs_signal ON signal_logs (signal_id, updated_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate signals schema: %w", err)
		}
	}
	return nil
}

const signalColumns = `id, timestamp, coin_symbol, coin_name, position_type, entry_price,
	take_profit, stop_loss, reason, risk_reward_ratio, sender,
	COALESCE(server_id, ''), channel_id, thread_id, user_id`

func (r *SignalRepository) Insert(ctx context.Context, s domain.Signal) error {
	_, span := r.tracer.Start(ctx, "signal-repo.insert")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO signals (id, timestamp, coin_symbol, coin_name, position_type, entry_price,
		                      take_profit, stop_loss, reason, risk_reward_ratio, sender,
		                      server_id, channel_id, thread_id, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15)`,
		s.ID, s.Timestamp, s.CoinSymbol, s.CoinName, string(s.PositionType), string(s.EntryPrice),
		string(s.TakeProfit), string(s.StopLoss), s.Reason, s.RiskRewardRatio, s.Sender,
		s.ServerID, s.ChannelID, s.ThreadID, s.UserID,
	)
	return err
}

// Get returns the signal row by id. Ownership policy lives in the service layer;
// the repository only distinguishes present from absent.
func (r *SignalRepository) Get(ctx context.Context, id string) (*domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.get")
	defer span.End()

	row := r.pool.QueryRow(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = $1`, id)
	s, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// UpdatePrices writes the new take-profit/stop-loss values. The change log entry
// is appended separately; the two writes are sequential, not atomic.
func (r *SignalRepository) UpdatePrices(ctx context.Context, id string, takeProfit, stopLoss domain.Price) error {
	_, span := r.tracer.Start(ctx, "signal-repo.update-prices")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE signals SET take_profit = $2, stop_loss = $3 WHERE id = $1`,
		id, string(takeProfit), string(stopLoss),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SignalRepository) AppendLog(ctx context.Context, signalID string, entry domain.SignalLogEntry) error {
	_, span := r.tracer.Start(ctx, "signal-repo.append-log")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO signal_logs (signal_id, old_take_profit, new_take_profit,
		                          old_stop_loss, new_stop_loss, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		signalID,
		string(entry.OldTakeProfit), string(entry.NewTakeProfit),
		string(entry.OldStopLoss), string(entry.NewStopLoss),
		entry.UpdatedAt.UTC(), entry.UpdatedBy,
	)
	return err
}

// ListLogs returns the change history for a signal, newest first.
func (r *SignalRepository) ListLogs(ctx context.Context, signalID string) ([]domain.SignalLogEntry, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-logs")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, old_take_profit, new_take_profit, old_stop_loss, new_stop_loss, updated_at, updated_by
		 FROM signal_logs
		 WHERE signal_id = $1
		 ORDER BY updated_at DESC, id DESC`,
		signalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.SignalLogEntry, 0, 8)
	for rows.Next() {
		var e domain.SignalLogEntry
		var oldTP, newTP, oldSL, newSL string
		var updatedAt time.Time
		if err := rows.Scan(&e.ID, &oldTP, &newTP, &oldSL, &newSL, &updatedAt, &e.UpdatedBy); err != nil {
			return nil, err
		}
		e.OldTakeProfit = domain.Price(oldTP)
		e.NewTakeProfit = domain.Price(newTP)
		e.OldStopLoss = domain.Price(oldSL)
		e.NewStopLoss = domain.Price(newSL)
		e.UpdatedAt = updatedAt.UTC()
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

// Delete removes the signal; its log entries cascade with it.
func (r *SignalRepository) Delete(ctx context.Context, id string) error {
	_, span := r.tracer.Start(ctx, "signal-repo.delete")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM signals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByUser returns the caller's signals newest first, optionally filtered by
// server, capped at limit.
func (r *SignalRepository) ListByUser(ctx context.Context, userID, serverID string, limit int) ([]domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-by-user")
	defer span.End()

	args := []any{userID}
	var sb strings.Builder
	sb.WriteString(`SELECT ` + signalColumns + ` FROM signals WHERE user_id = $1`)
	if serverID != "" {
		args = append(args, serverID)
		sb.WriteString(fmt.Sprintf(" AND server_id = $%d", len(args)))
	}
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signals := make([]domain.Signal, 0, limit)
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *s)
	}
	return signals, rows.Err()
}

// ServerTimestamp is one (server, creation time) pair used by the in-memory
// per-server aggregation.
type ServerTimestamp struct {
	ServerID  string
	Timestamp int64
}

// ListServerTimestamps scans every signal row that carries a server id. The
// store offers no server-side aggregation, so callers fold these in memory.
func (r *SignalRepository) ListServerTimestamps(ctx context.Context) ([]ServerTimestamp, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-server-timestamps")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT server_id, timestamp FROM signals WHERE server_id IS NOT NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServerTimestamp
	for rows.Next() {
		var st ServerTimestamp
		if err := rows.Scan(&st.ServerID, &st.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var s domain.Signal
	var positionType, entryPrice, takeProfit, stopLoss string
	if err := row.Scan(
		&s.ID, &s.Timestamp, &s.CoinSymbol, &s.CoinName, &positionType, &entryPrice,
		&takeProfit, &stopLoss, &s.Reason, &s.RiskRewardRatio, &s.Sender,
		&s.ServerID, &s.ChannelID, &s.ThreadID, &s.UserID,
	); err != nil {
		return nil, err
	}
	s.PositionType = domain.PositionType(positionType)
	s.EntryPrice = domain.Price(entryPrice)
	s.TakeProfit = domain.Price(takeProfit)
	s.StopLoss = domain.Price(stopLoss)
	return &s, nil
}
