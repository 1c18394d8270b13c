package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// DedupRepoSQLite es el store de dedup para despliegues locales de un solo proceso.
// SQLite no expira filas: Find puede devolver registros vencidos y el Sweeper los purga.
type DedupRepoSQLite struct {
	db    *sql.DB
	table string
}

func NewDedupRepoSQLite(db *sql.DB, table string) *DedupRepoSQLite {
	return &DedupRepoSQLite{db: db, table: quoteIdent(table)}
}

// InitSchema crea la tabla y el índice por ttl si no existen.
func (r *DedupRepoSQLite) InitSchema(ctx context.Context) error {
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

func (r *DedupRepoSQLite) Find(ctx context.Context, orderID string) (domain.DedupRecord, bool, error) {
	var item domain.DedupItem
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT order_id, "timestamp", ttl FROM %s WHERE order_id = ?`, r.table),
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

func (r *DedupRepoSQLite) Put(ctx context.Context, rec domain.DedupRecord) error {
	item := rec.Item()
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (order_id, "timestamp", ttl) VALUES (?, ?, ?)
		 ON CONFLICT (order_id) DO UPDATE SET "timestamp" = EXCLUDED."timestamp", ttl = EXCLUDED.ttl`, r.table),
		item.OrderID, item.Timestamp, item.TTL,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// PutIfAbsent sólo reemplaza una fila existente si ya está vencida.
func (r *DedupRepoSQLite) PutIfAbsent(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	item := rec.Item()
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %[1]s (order_id, "timestamp", ttl) VALUES (?, ?, ?)
		 ON CONFLICT (order_id) DO UPDATE SET "timestamp" = EXCLUDED."timestamp", ttl = EXCLUDED.ttl
		 WHERE %[1]s.ttl <= ?`, r.table),
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
func (r *DedupRepoSQLite) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE ttl <= ?`, r.table),
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
	_ domain.DedupStore    = (*DedupRepoSQLite)(nil)
	_ domain.ExpiredPurger = (*DedupRepoSQLite)(nil)
)
