package history

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRecorder captures Exec calls; Query and QueryRow are unused here.
type execRecorder struct {
	sql  []string
	args [][]interface{}
	err  error
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	e.sql = append(e.sql, sql)
	e.args = append(e.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), e.err
}

func (e *execRecorder) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (e *execRecorder) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return nil
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	require.NoError(t, r.Record(context.Background(), Run{}))

	runs, err := r.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(10_000))
}

func TestClientContext(t *testing.T) {
	ip, ua := ClientFromContext(context.Background())
	assert.Empty(t, ip)
	assert.Empty(t, ua)

	ctx := ContextWithClient(context.Background(), "203.0.113.9", "curl/8.0")
	ip, ua = ClientFromContext(ctx)
	assert.Equal(t, "203.0.113.9", ip)
	assert.Equal(t, "curl/8.0", ua)
}

func TestPostgresRecorder_RecordArgs(t *testing.T) {
	db := &execRecorder{}
	rec := NewPostgresRecorder(db)

	id := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := rec.Record(context.Background(), Run{
		ID:         id,
		FileName:   "bulk.xlsx",
		Sheet:      "Sponsored Products Campaigns",
		Status:     StatusSuccess,
		TotalRows:  12,
		Counts:     map[string]int{"PATMap": 3},
		DurationMS: 42,
		CreatedAt:  now,
	})
	require.NoError(t, err)

	require.Len(t, db.args, 1)
	args := db.args[0]
	require.Len(t, args, 12)
	assert.Equal(t, pgtype.UUID{Bytes: id, Valid: true}, args[0])
	assert.Equal(t, "bulk.xlsx", args[1])
	assert.Equal(t, `{"PATMap":3}`, args[6])
	assert.Equal(t, []string{}, args[7])
	assert.Equal(t, now, args[11])
}

func TestPostgresRecorder_RecordError(t *testing.T) {
	db := &execRecorder{err: errors.New("connection reset")}
	err := NewPostgresRecorder(db).Record(context.Background(), Run{ID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

// TestPostgresRecorder_Integration runs against a real database when
// HISTORY_TEST_DATABASE_URL is set.
func TestPostgresRecorder_Integration(t *testing.T) {
	url := os.Getenv("HISTORY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HISTORY_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, config.DatabaseConfig{URL: url, MaxConns: 2})
	require.NoError(t, err)
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	rec := NewPostgresRecorder(tx)
	require.NoError(t, rec.EnsureSchema(ctx))

	run := Run{
		ID:        uuid.New(),
		FileName:  "bulk.csv",
		Sheet:     "Sponsored Products Campaigns",
		Status:    StatusFailed,
		ErrorCode: "COL002",
		Counts:    map[string]int{},
		Warnings:  []string{"targeting column missing"},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond).Add(time.Hour),
	}
	require.NoError(t, rec.Record(ctx, run))

	runs, err := rec.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "COL002", runs[0].ErrorCode)
	assert.Equal(t, run.Warnings, runs[0].Warnings)
}
