package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// DedupRepoPostgres guarda las marcas con la forma persistida (order_id, timestamp, ttl).
// Postgres no expira filas: Find puede devolver registros vencidos y el Sweeper los purga.
type DedupRepoPostgres struct {
	db    *sql.DB
	table string
}

func NewDedupRepoPostgres(db *sql.DB, table string) *DedupRepoPostgres {
	return &DedupRepoPostgres{db: db, table: quoteIdent(table)}
}

// InitSchema crea la tabla y el índice por ttl si no existen.
func (r *DedupRepoPostgres) InitSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			order_id    TEXT PRIMARY KEY,
			"timestamp" TEXT NOT NULL,
			ttl         BIGINT NOT NULL
		)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (ttl)`, quoteIdent(strings.Trim(r.table, `"`)+"_ttl_idx"), r.table),
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init dedup schema: %w", err)
		}
	}
	return nil
}

func (r *DedupRepoPostgres) Find(ctx context.Context, orderID string) (domain.DedupRecord, bool, error) {
	var item domain.DedupItem
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT order_id, "timestamp", ttl FROM %s WHERE order_id = $1`, r.table),
		orderID,
	).Scan(&item.OrderID, &item.Timestamp, &item.TTL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DedupRecord{}, false, nil
		}
		return domain.DedupRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	rec, err := item.Record()
	if err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	return rec, true, nil
}

func (r *DedupRepoPostgres) Put(ctx context.Context, rec domain.DedupRecord) error {
	item := rec.Item()
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (order_id, "timestamp", ttl) VALUES ($1, $2, $3)
		 ON CONFLICT (order_id) DO UPDATE SET "timestamp" = EXCLUDED."timestamp", ttl = EXCLUDED.ttl`, r.table),
		item.OrderID, item.Timestamp, item.TTL,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// PutIfAbsent sólo reemplaza una fila existente si ya está vencida.
func (r *DedupRepoPostgres) PutIfAbsent(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	item := rec.Item()
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %[1]s (order_id, "timestamp", ttl) VALUES ($1, $2, $3)
		 ON CONFLICT (order_id) DO UPDATE SET "timestamp" = EXCLUDED."timestamp", ttl = EXCLUDED.ttl
		 WHERE %[1]s.ttl <= $4`, r.table),
		item.OrderID, item.Timestamp, item.TTL, rec.ProcessedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return n > 0, nil
}

// PurgeExpired borra las filas con ttl <= now.
func (r *DedupRepoPostgres) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE ttl <= $1`, r.table),
		now.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var (
	_ domain.DedupStore    = (*DedupRepoPostgres)(nil)
	_ domain.ExpiredPurger = (*DedupRepoPostgres)(nil)
)
