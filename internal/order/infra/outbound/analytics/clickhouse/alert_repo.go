package clickhouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// AlertArchiveRepo archiva cada alerta en ClickHouse para analítica de fallos.
type AlertArchiveRepo struct {
	db *sql.DB
}

// NewAlertArchiveRepo abre la conexión y comprueba que responde.
func NewAlertArchiveRepo(ctx context.Context, addr, dbName, user, password string) (*AlertArchiveRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
			Username: user,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &AlertArchiveRepo{db: conn}, nil
}

// Publish inserta la alerta. Una fila por alerta; ClickHouse agrupa las inserciones en partes.
func (r *AlertArchiveRepo) Publish(ctx context.Context, alert domain.Alert) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO order_alerts (correlation_id, order_id, subject, error_message, raw_error, raised_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		alert.CorrelationID,
		alert.OrderID,
		alert.Subject,
		alert.ErrorMessage,
		alert.RawError,
		alert.RaisedAt,
	)
	if err != nil {
		return fmt.Errorf("archive alert %s: %w", alert.CorrelationID, err)
	}
	return nil
}

// InitSchema crea la tabla en ClickHouse si no existe.
func (r *AlertArchiveRepo) InitSchema(ctx context.Context) error {
	// Particionada por mes y ordenada por pedido para buscar el historial de fallos de un pedido.
	query := `
		CREATE TABLE IF NOT EXISTS order_alerts (
			correlation_id String,
			order_id       String,
			subject        String,
			error_message  String,
			raw_error      String,
			raised_at      DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(raised_at)
		ORDER BY (order_id, raised_at);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

func (r *AlertArchiveRepo) Close() error {
	return r.db.Close()
}

// Verificación estática de la interfaz.
var _ domain.AlertPublisher = (*AlertArchiveRepo)(nil)
