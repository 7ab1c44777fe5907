package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, cred *Credentials) (*Repository, error) {
	db, err := sql.Open("postgres", cred.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) RecordOrder(ctx context.Context, order domain.CompletedOrder) (bool, error) {
	draftJSON, err := json.Marshal(order.Draft)
	if err != nil {
		return false, fmt.Errorf("marshal draft: %w", err)
	}
	payload, err := json.Marshal(NewOrderPaidPayload(order))
	if err != nil {
		return false, fmt.Errorf("marshal outbox payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, order_number, draft_id, session_id, customer_email, total, currency,
		                    payment_method, provider, provider_reference, status, draft, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (draft_id) DO NOTHING
		RETURNING id`,
		uuid.New(),
		order.OrderNumber,
		order.Draft.ID,
		order.SessionID,
		order.Draft.Customer.Email,
		order.Draft.Pricing.Total,
		order.Draft.Currency,
		order.Draft.PaymentMethod.String(),
		order.Provider,
		order.ProviderReference,
		string(order.Status),
		draftJSON,
		order.PaidAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_id, event_type, payload)
		VALUES ($1, $2, $3)`,
		order.OrderNumber, EventOrderPaid, payload); err != nil {
		return false, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

const orderColumns = `order_number, session_id, provider, provider_reference, status, draft, paid_at`

func scanOrder(row interface{ Scan(...any) error }) (domain.CompletedOrder, error) {
	var (
		o         domain.CompletedOrder
		status    string
		draftJSON []byte
	)
	if err := row.Scan(&o.OrderNumber, &o.SessionID, &o.Provider, &o.ProviderReference, &status, &draftJSON, &o.PaidAt); err != nil {
		return o, err
	}
	o.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(draftJSON, &o.Draft); err != nil {
		return o, fmt.Errorf("unmarshal order draft: %w", err)
	}
	o.PaidAt = o.PaidAt.UTC()
	return o, nil
}

func (r *Repository) GetOrderByNumber(ctx context.Context, number string) (domain.CompletedOrder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CompletedOrder{}, ErrOrderNotFound
	}
	if err != nil {
		return domain.CompletedOrder{}, fmt.Errorf("query order by number: %w", err)
	}
	return o, nil
}

func (r *Repository) ListOrdersBySession(ctx context.Context, sessionID string) ([]domain.CompletedOrder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE session_id = $1 ORDER BY paid_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query orders by session: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.CompletedOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("outbox event %d not pending", id)
	}
	return nil
}

func (r *Repository) PurgeProcessedEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge outbox events: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) Close() error {
	return r.db.Close()
}
