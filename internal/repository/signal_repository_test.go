package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"signalboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

func newTestRepo(pool PgxPool) *SignalRepository {
	return NewSignalRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))
}

func TestRunMigrationsExecutesSchema(t *testing.T) {
	pool := &signalStubPool{}
	repo := newTestRepo(pool)

	if err := repo.RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 4 {
		t.Fatalf("expected 4 schema statements, got %d", len(pool.execSQL))
	}
	if !strings.Contains(pool.execSQL[0], "CREATE TABLE IF NOT EXISTS signals") {
		t.Fatalf("unexpected first statement: %s", pool.execSQL[0])
	}
}

func TestInsertPassesAllColumns(t *testing.T) {
	pool := &signalStubPool{}
	repo := newTestRepo(pool)

	err := repo.Insert(context.Background(), domain.Signal{
		ID:           "sig1",
		Timestamp:    1735689600000,
		CoinSymbol:   "BTC",
		PositionType: domain.PositionLong,
		EntryPrice:   "100",
		ServerID:     "S1",
		ChannelID:    "C1",
		ThreadID:     "T1",
		UserID:       "U1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execArgs) != 1 || len(pool.execArgs[0]) != 15 {
		t.Fatalf("expected one Exec with 15 args, got %v", pool.execArgs)
	}
	if pool.execArgs[0][0] != "sig1" || pool.execArgs[0][14] != "U1" {
		t.Fatalf("unexpected arg order: %v", pool.execArgs[0])
	}
}

func TestGetMapsNoRowsToNotFound(t *testing.T) {
	pool := &signalStubPool{rowErr: pgx.ErrNoRows}
	repo := newTestRepo(pool)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetScansRow(t *testing.T) {
	pool := &signalStubPool{rowData: []any{
		"sig1", int64(1735689600000), "BTC", "Bitcoin", "long", "100",
		"120", "90", "support retest", "2.00", "alice",
		"S1", "C1", "T1", "U1",
	}}
	repo := newTestRepo(pool)

	sig, err := repo.Get(context.Background(), "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.ID != "sig1" || sig.CoinSymbol != "BTC" || sig.PositionType != domain.PositionLong {
		t.Fatalf("unexpected signal: %+v", sig)
	}
	if sig.EntryPrice != "100" || sig.TakeProfit != "120" || sig.StopLoss != "90" {
		t.Fatalf("unexpected prices: %+v", sig)
	}
	if sig.ServerID != "S1" || sig.UserID != "U1" {
		t.Fatalf("unexpected ids: %+v", sig)
	}
}

func TestUpdatePricesZeroRowsIsNotFound(t *testing.T) {
	pool := &signalStubPool{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := newTestRepo(pool)

	err := repo.UpdatePrices(context.Background(), "missing", "120", "90")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePricesAffectedRowSucceeds(t *testing.T) {
	pool := &signalStubPool{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := newTestRepo(pool)

	if err := repo.UpdatePrices(context.Background(), "sig1", "120", "90"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execArgs) != 1 || len(pool.execArgs[0]) != 3 {
		t.Fatalf("unexpected exec args: %v", pool.execArgs)
	}
}

func TestDeleteZeroRowsIsNotFound(t *testing.T) {
	pool := &signalStubPool{execTag: pgconn.NewCommandTag("DELETE 0")}
	repo := newTestRepo(pool)

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUserBuildsServerFilter(t *testing.T) {
	pool := &signalStubPool{}
	repo := newTestRepo(pool)
	ctx := context.Background()

	if _, err := repo.ListByUser(ctx, "U1", "", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(pool.querySQL[0], "server_id") {
		t.Fatalf("expected no server filter, got: %s", pool.querySQL[0])
	}
	if len(pool.queryArgs[0]) != 2 {
		t.Fatalf("expected [user, limit] args, got %v", pool.queryArgs[0])
	}

	if _, err := repo.ListByUser(ctx, "U1", "S1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(pool.querySQL[1], "AND server_id = $2") {
		t.Fatalf("expected server filter, got: %s", pool.querySQL[1])
	}
	args := pool.queryArgs[1]
	if len(args) != 3 || args[1] != "S1" || args[2] != 50 {
		t.Fatalf("expected [user, server, default limit], got %v", args)
	}
}

func TestListLogsScansEntries(t *testing.T) {
	updatedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pool := &signalStubPool{rowsData: [][]any{
		{int64(2), "120", "130", "90", "90", updatedAt, "U1"},
		{int64(1), "110", "120", "85", "90", updatedAt.Add(-time.Hour), "U1"},
	}}
	repo := newTestRepo(pool)

	logs, err := repo.ListLogs(context.Background(), "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(logs))
	}
	first := logs[0]
	if first.ID != 2 || first.OldTakeProfit != "120" || first.NewTakeProfit != "130" {
		t.Fatalf("unexpected entry: %+v", first)
	}
	if !first.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("unexpected timestamp: %v", first.UpdatedAt)
	}
}

func TestListServerTimestampsScansPairs(t *testing.T) {
	pool := &signalStubPool{rowsData: [][]any{
		{"S1", int64(100)},
		{"S2", int64(200)},
	}}
	repo := newTestRepo(pool)

	pairs, err := repo.ListServerTimestamps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 2 || pairs[0].ServerID != "S1" || pairs[1].Timestamp != 200 {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

type signalStubPool struct {
	execSQL  []string
	execArgs [][]any
	execTag  pgconn.CommandTag

	querySQL  []string
	queryArgs [][]any
	rowsData  [][]any

	rowData []any
	rowErr  error
}

func (s *signalStubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	s.execArgs = append(s.execArgs, args)
	return s.execTag, nil
}

func (s *signalStubPool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (s *signalStubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.querySQL = append(s.querySQL, sql)
	s.queryArgs = append(s.queryArgs, args)
	dataCopy := make([][]any, len(s.rowsData))
	for i := range s.rowsData {
		row := make([]any, len(s.rowsData[i]))
		copy(row, s.rowsData[i])
		dataCopy[i] = row
	}
	return &signalStubRows{data: dataCopy}, nil
}

func (s *signalStubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &signalStubRow{data: s.rowData, err: s.rowErr}
}

type signalStubRows struct {
	data [][]any
	idx  int
}

func (r *signalStubRows) Close() {}

func (r *signalStubRows) Err() error { return nil }

func (r *signalStubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *signalStubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *signalStubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *signalStubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return fmt.Errorf("invalid scan index")
	}
	return scanInto(r.data[r.idx-1], dest)
}

func (r *signalStubRows) Values() ([]any, error) { return nil, nil }

func (r *signalStubRows) RawValues() [][]byte { return nil }

func (r *signalStubRows) Conn() *pgx.Conn { return nil }

type signalStubRow struct {
	data []any
	err  error
}

func (r *signalStubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.data, dest)
}

func scanInto(row []any, dest []any) error {
	if len(row) != len(dest) {
		return fmt.Errorf("scan arity mismatch: %d values, %d targets", len(row), len(dest))
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = row[i].(string)
		case *int64:
			*ptr = row[i].(int64)
		case *time.Time:
			*ptr = row[i].(time.Time)
		default:
			return fmt.Errorf("unsupported dest type %T", d)
		}
	}
	return nil
}
