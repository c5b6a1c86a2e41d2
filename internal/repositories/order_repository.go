package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/espressolabs/coffee-shop-platform/internal/models"
	"github.com/espressolabs/coffee-shop-platform/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	GetOrderByCodeAndUser(ctx context.Context, code string, userID uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	ListOrders(ctx context.Context, page, size int) ([]*models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, code string, status *models.OrderStatus, paymentStatus *models.PaymentStatus) error
	GetOrdersOverview(ctx context.Context, since time.Time) (*models.OrderStats, error)
}

// IsDuplicateCode reports a unique violation on the human readable order
// code; callers generate a fresh code and retry.
func IsDuplicateCode(err error) bool {
	var pqErr *pq.Error

	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

const orderColumns = `id, code, user_id, items, total_amount, payment_method, payment_status, status,
	address, note, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {

	order := &models.Order{}

	var itemsJSON, addressJSON []byte

	err := row.Scan(&order.ID, &order.Code, &order.UserID, &itemsJSON, &order.TotalAmount,
		&order.PaymentMethod, &order.PaymentStatus, &order.Status, &addressJSON, &order.Note,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}

	if err := json.Unmarshal(addressJSON, &order.Address); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order address: %w", err)
	}

	return order, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	addressJSON, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to marshal order address: %w", err)
	}

	query := `
		INSERT INTO orders (id, code, user_id, items, total_amount, payment_method, payment_status,
			status, address, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, order.ID, order.Code, order.UserID, itemsJSON,
		order.TotalAmount, order.PaymentMethod, order.PaymentStatus, order.Status, addressJSON, order.Note).
		Scan(&order.CreatedAt, &order.UpdatedAt)
}

func (r *orderRepository) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE code = $1`

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	return order, nil
}

func (r *orderRepository) GetOrderByCodeAndUser(ctx context.Context, code string, userID uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE code = $1 AND user_id = $2`

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, code, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(dbCtx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying database: %w", err)
	}

	defer rows.Close()

	return collectOrders(rows)
}

func (r *orderRepository) ListOrders(ctx context.Context, page, size int) ([]*models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("querying database: %w", err)
	}

	offset := (page - 1) * size

	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying database: %w", err)
	}

	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func collectOrders(rows *sql.Rows) ([]*models.Order, error) {

	var orders []*models.Order

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateOrderStatus sets the provided status fields. Orders are otherwise
// immutable: item snapshots and totals are never touched after creation.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, code string, status *models.OrderStatus, paymentStatus *models.PaymentStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders
		SET status = COALESCE($2, status),
			payment_status = COALESCE($3, payment_status),
			updated_at = NOW()
		WHERE code = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, code, status, paymentStatus)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetOrdersOverview aggregates one reporting window in a single statement.
func (r *orderRepository) GetOrdersOverview(ctx context.Context, since time.Time) (*models.OrderStats, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered'), 0)
		FROM orders
		WHERE created_at >= $1
	`

	stats := &models.OrderStats{}

	err := r.DB.QueryRowContext(dbCtx, query, since).
		Scan(&stats.TotalOrders, &stats.ConfirmedOrders, &stats.DeliveredOrders,
			&stats.PendingOrders, &stats.CancelledOrders, &stats.TotalSales)
	if err != nil {
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return stats, nil
}
