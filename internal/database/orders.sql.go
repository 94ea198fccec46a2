package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, owner_id, order_number, session_id, table_id, status, total_amount, notes, customer_name,
    waiter_id, cook_id, served_by, preparing_at, ready_at, served_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.OrderNumber,
		&i.SessionID,
		&i.TableID,
		&i.Status,
		&i.TotalAmount,
		&i.Notes,
		&i.CustomerName,
		&i.WaiterID,
		&i.CookID,
		&i.ServedBy,
		&i.PreparingAt,
		&i.ReadyAt,
		&i.ServedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE owner_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::uuid IS NULL OR session_id = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`

type ListOrdersParams struct {
	OwnerID   uuid.UUID
	Status    pgtype.Text
	SessionID pgtype.UUID
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listOrders,
		arg.OwnerID,
		arg.Status,
		arg.SessionID,
		arg.Limit,
		arg.Offset,
	))
}

const listActiveOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE owner_id = $1 AND status IN ('PENDING', 'CONFIRMED', 'PREPARING', 'READY')
ORDER BY created_at`

func (q *Queries) ListActiveOrders(ctx context.Context, ownerID uuid.UUID) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listActiveOrders, ownerID))
}

const listOrdersBySession = `SELECT ` + orderColumns + ` FROM orders
WHERE session_id = $1 AND owner_id = $2
ORDER BY created_at`

type ListOrdersBySessionParams struct {
	SessionID uuid.UUID
	OwnerID   uuid.UUID
}

func (q *Queries) ListOrdersBySession(ctx context.Context, arg ListOrdersBySessionParams) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listOrdersBySession, arg.SessionID, arg.OwnerID))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND owner_id = $2`

type GetOrderParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.OwnerID))
}

const getOrderForUpdate = getOrder + `
FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.OwnerID))
}

const createOrder = `INSERT INTO orders (owner_id, order_number, session_id, table_id, status, total_amount, notes,
    customer_name, waiter_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OwnerID      uuid.UUID
	OrderNumber  string
	SessionID    pgtype.UUID
	TableID      pgtype.UUID
	Status       string
	TotalAmount  decimal.Decimal
	Notes        pgtype.Text
	CustomerName pgtype.Text
	WaiterID     pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OwnerID,
		arg.OrderNumber,
		arg.SessionID,
		arg.TableID,
		arg.Status,
		arg.TotalAmount,
		arg.Notes,
		arg.CustomerName,
		arg.WaiterID,
	)
	return scanOrder(row)
}

const updateOrderNotes = `UPDATE orders SET notes = $3, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + orderColumns

type UpdateOrderNotesParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Notes   pgtype.Text
}

func (q *Queries) UpdateOrderNotes(ctx context.Context, arg UpdateOrderNotesParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderNotes, arg.ID, arg.OwnerID, arg.Notes))
}

const recalculateOrderTotal = `UPDATE orders
SET total_amount = (SELECT COALESCE(SUM(price * quantity), 0) FROM order_items WHERE order_id = $1),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

// RecalculateOrderTotal rewrites total_amount from the surviving items. Run it
// in the same transaction as the item writes.
func (q *Queries) RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, recalculateOrderTotal, id))
}

const transitionOrderStatus = `UPDATE orders
SET status = $4::text,
    waiter_id = COALESCE($5, waiter_id),
    cook_id = COALESCE($6, cook_id),
    served_by = COALESCE($7, served_by),
    preparing_at = CASE WHEN $4::text = 'PREPARING' THEN now() ELSE preparing_at END,
    ready_at = CASE WHEN $4::text = 'READY' THEN now() ELSE ready_at END,
    served_at = CASE WHEN $4::text = 'DELIVERED' THEN now() ELSE served_at END,
    updated_at = now()
WHERE id = $1 AND owner_id = $2 AND status = ANY($3::text[])
RETURNING ` + orderColumns

type TransitionOrderStatusParams struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	FromStatuses []string
	ToStatus     string
	WaiterID     pgtype.UUID
	CookID       pgtype.UUID
	ServedBy     pgtype.UUID
}

// TransitionOrderStatus only matches while the order is in one of
// FromStatuses, so pgx.ErrNoRows covers both a missing order and a stale
// status.
func (q *Queries) TransitionOrderStatus(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, transitionOrderStatus,
		arg.ID,
		arg.OwnerID,
		arg.FromStatuses,
		arg.ToStatus,
		arg.WaiterID,
		arg.CookID,
		arg.ServedBy,
	)
	return scanOrder(row)
}

const deleteOrder = `DELETE FROM orders WHERE id = $1 AND owner_id = $2
RETURNING id`

type DeleteOrderParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) DeleteOrder(ctx context.Context, arg DeleteOrderParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteOrder, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}

const sumSessionOrderTotals = `SELECT COALESCE(SUM(oi.price * oi.quantity), 0)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.session_id = $1 AND o.status <> 'CANCELLED'`

// SumSessionOrderTotals returns the unrounded sum of line totals across the
// session's non-cancelled orders.
func (q *Queries) SumSessionOrderTotals(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.db.QueryRow(ctx, sumSessionOrderTotals, sessionID).Scan(&total)
	return total, err
}

type OrderStatusCount struct {
	Status      string
	OrderCount  int64
	TotalAmount decimal.Decimal
}

const countOrdersByStatusSince = `SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
FROM orders
WHERE owner_id = $1 AND created_at >= $2
GROUP BY status
ORDER BY status`

type CountOrdersByStatusSinceParams struct {
	OwnerID uuid.UUID
	Since   time.Time
}

func (q *Queries) CountOrdersByStatusSince(ctx context.Context, arg CountOrdersByStatusSinceParams) ([]OrderStatusCount, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatusSince, arg.OwnerID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderStatusCount{}
	for rows.Next() {
		var i OrderStatusCount
		if err := rows.Scan(&i.Status, &i.OrderCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
