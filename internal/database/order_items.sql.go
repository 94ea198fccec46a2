package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderItemColumns = `id, order_id, menu_item_id, quantity, price, selections, notes, created_at`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.Quantity,
		&i.Price,
		&i.Selections,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

func collectOrderItems(rows pgx.Rows, err error) ([]OrderItem, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = $1
ORDER BY created_at, id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	return collectOrderItems(q.db.Query(ctx, listOrderItemsByOrder, orderID))
}

const listOrderItemsByOrders = `SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY created_at, id`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	return collectOrderItems(q.db.Query(ctx, listOrderItemsByOrders, orderIDs))
}

// SessionOrderItem is an order item joined with the menu data a checkout or
// payment snapshot needs.
type SessionOrderItem struct {
	OrderItem
	OrderNumber         string
	MenuItemName        string
	MenuItemDescription pgtype.Text
	CategoryID          uuid.UUID
	CategoryName        string
}

const listSessionOrderItems = `SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price, oi.selections, oi.notes, oi.created_at,
    o.order_number, m.name, m.description, c.id, c.name
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN menu_items m ON m.id = oi.menu_item_id
JOIN categories c ON c.id = m.category_id
WHERE o.session_id = $1 AND o.status <> 'CANCELLED'
ORDER BY c.sort_order, c.name, oi.created_at, oi.id`

func (q *Queries) ListSessionOrderItems(ctx context.Context, sessionID uuid.UUID) ([]SessionOrderItem, error) {
	rows, err := q.db.Query(ctx, listSessionOrderItems, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SessionOrderItem{}
	for rows.Next() {
		var i SessionOrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.MenuItemID,
			&i.Quantity,
			&i.Price,
			&i.Selections,
			&i.Notes,
			&i.CreatedAt,
			&i.OrderNumber,
			&i.MenuItemName,
			&i.MenuItemDescription,
			&i.CategoryID,
			&i.CategoryName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getOrderItem = `SELECT ` + orderItemColumns + ` FROM order_items
WHERE id = $1 AND order_id = $2`

type GetOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, arg.ID, arg.OrderID))
}

const createOrderItem = `INSERT INTO order_items (order_id, menu_item_id, quantity, price, selections, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      decimal.Decimal
	Selections []byte
	Notes      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.Quantity,
		arg.Price,
		arg.Selections,
		arg.Notes,
	)
	return scanOrderItem(row)
}

const updateOrderItem = `UPDATE order_items
SET menu_item_id = $3, quantity = $4, price = $5, selections = $6, notes = $7
WHERE id = $1 AND order_id = $2
RETURNING ` + orderItemColumns

type UpdateOrderItemParams struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      decimal.Decimal
	Selections []byte
	Notes      pgtype.Text
}

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItem,
		arg.ID,
		arg.OrderID,
		arg.MenuItemID,
		arg.Quantity,
		arg.Price,
		arg.Selections,
		arg.Notes,
	)
	return scanOrderItem(row)
}

const deleteOrderItem = `DELETE FROM order_items WHERE id = $1 AND order_id = $2
RETURNING id`

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteOrderItem, arg.ID, arg.OrderID).Scan(&id)
	return id, err
}
