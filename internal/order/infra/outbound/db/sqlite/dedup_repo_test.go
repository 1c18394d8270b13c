package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/orderflow/internal/order/domain"
)

func setupTestDB(t *testing.T) *DedupRepoSQLite {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // cada conexión a :memory: es una base distinta
	t.Cleanup(func() { db.Close() })

	repo := NewDedupRepoSQLite(db, "order_dedup")
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func TestDedupSQLite_FindPut(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	_, found, err := repo.Find(ctx, "A1")
	require.NoError(t, err)
	assert.False(t, found)

	rec := domain.NewDedupRecord("A1", now)
	require.NoError(t, repo.Put(ctx, rec))

	got, found, err := repo.Find(ctx, "A1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec.ProcessedAt, got.ProcessedAt)
	assert.Equal(t, rec.ExpiresAt, got.ExpiresAt)

	// Put es incondicional
	later := domain.NewDedupRecord("A1", now.Add(time.Hour))
	require.NoError(t, repo.Put(ctx, later))
	got, _, err = repo.Find(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, later.ProcessedAt, got.ProcessedAt)
}

func TestDedupSQLite_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	ok, err := repo.PutIfAbsent(ctx, domain.NewDedupRecord("A1", now))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.PutIfAbsent(ctx, domain.NewDedupRecord("A1", now.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, ok)

	got, _, err := repo.Find(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, now, got.ProcessedAt)

	// Vencido: se reemplaza
	expired := now.Add(domain.DedupRetention)
	ok, err = repo.PutIfAbsent(ctx, domain.NewDedupRecord("A1", expired))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDedupSQLite_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, domain.NewDedupRecord("old", now.Add(-40*24*time.Hour))))
	require.NoError(t, repo.Put(ctx, domain.NewDedupRecord("new", now)))

	n, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, found, err := repo.Find(ctx, "new")
	require.NoError(t, err)
	assert.True(t, found)
}
