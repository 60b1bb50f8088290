package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"github.com/ramukaka/market/internal/domain"
)

const paymentIDIndex = "idx_orders_payment_id"

// PostgresRepository stores orders and writes the order.placed outbox event in the same transaction.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "market_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	payload, err := json.Marshal(NewOrderPlacedPayload(order))
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (id, checkout_id, customer_id, customer_name, customer_address, customer_pincode,
	              customer_mobile, customer_village, items, total, status, payment_method, payment_id,
	              customer_has_viewed_update, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.CheckoutID,
		order.CustomerID,
		order.CustomerName,
		order.CustomerAddress,
		order.CustomerPincode,
		order.CustomerMobile,
		order.CustomerVillage,
		itemsJSON,
		order.Total,
		order.Status,
		order.PaymentMethod,
		order.PaymentID,
		order.CustomerHasViewedUpdate,
		order.CreatedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == paymentIDIndex {
				return ErrDuplicatePayment
			}
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	outbox := `INSERT INTO orders_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, outbox, order.ID, EventOrderPlaced, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

const orderColumns = `id, checkout_id, customer_id, customer_name, customer_address, customer_pincode,
	customer_mobile, customer_village, items, total, status, payment_method, payment_id,
	customer_has_viewed_update, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON []byte
	var paymentID sql.NullString
	if err := row.Scan(
		&order.ID,
		&order.CheckoutID,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerAddress,
		&order.CustomerPincode,
		&order.CustomerMobile,
		&order.CustomerVillage,
		&itemsJSON,
		&order.Total,
		&order.Status,
		&order.PaymentMethod,
		&paymentID,
		&order.CustomerHasViewedUpdate,
		&order.CreatedAt,
	); err != nil {
		return nil, err
	}
	if paymentID.Valid {
		order.PaymentID = &paymentID.String
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return &order, nil
}

func (r *PostgresRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, id)
}

func (r *PostgresRepository) GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*domain.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE checkout_id = $1`, checkoutID)
}

func (r *PostgresRepository) getOrder(ctx context.Context, query, arg string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) ListOrdersByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query orders by customer id: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	query := `UPDATE orders SET status = $1, customer_has_viewed_update = FALSE WHERE id::text = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.GetOrderByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

func (r *PostgresRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM orders_outbox WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateId, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) MarkEventAsProcessed(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE orders_outbox SET processed_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
