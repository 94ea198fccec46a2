package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, owner_id, payment_number, session_id, bill_split_id, restaurant_name, restaurant_address,
    restaurant_phone, customer_name, customer_phone, table_number, table_name, payment_method, subtotal,
    discount_amount, extra_charges_amount, final_amount, received_amount, change_amount, extra_charges, notes,
    processed_by, created_at, updated_at`

const paymentItemColumns = `id, payment_id, order_item_id, menu_item_name, menu_item_description, category_name,
    unit_price, quantity, total_price, selections, notes`

func scanPayment(row pgx.Row) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.PaymentNumber,
		&i.SessionID,
		&i.BillSplitID,
		&i.RestaurantName,
		&i.RestaurantAddress,
		&i.RestaurantPhone,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.TableNumber,
		&i.TableName,
		&i.PaymentMethod,
		&i.Subtotal,
		&i.DiscountAmount,
		&i.ExtraChargesAmount,
		&i.FinalAmount,
		&i.ReceivedAmount,
		&i.ChangeAmount,
		&i.ExtraCharges,
		&i.Notes,
		&i.ProcessedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanPaymentItem(row pgx.Row) (PaymentItem, error) {
	var i PaymentItem
	err := row.Scan(
		&i.ID,
		&i.PaymentID,
		&i.OrderItemID,
		&i.MenuItemName,
		&i.MenuItemDescription,
		&i.CategoryName,
		&i.UnitPrice,
		&i.Quantity,
		&i.TotalPrice,
		&i.Selections,
		&i.Notes,
	)
	return i, err
}

func collectPayments(rows pgx.Rows, err error) ([]Payment, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createPayment = `INSERT INTO payments (owner_id, payment_number, session_id, bill_split_id, restaurant_name,
    restaurant_address, restaurant_phone, customer_name, customer_phone, table_number, table_name, payment_method,
    subtotal, discount_amount, extra_charges_amount, final_amount, received_amount, change_amount, extra_charges,
    notes, processed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OwnerID            uuid.UUID
	PaymentNumber      string
	SessionID          uuid.UUID
	BillSplitID        pgtype.UUID
	RestaurantName     pgtype.Text
	RestaurantAddress  pgtype.Text
	RestaurantPhone    pgtype.Text
	CustomerName       pgtype.Text
	CustomerPhone      pgtype.Text
	TableNumber        pgtype.Int4
	TableName          pgtype.Text
	PaymentMethod      string
	Subtotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	ExtraChargesAmount decimal.Decimal
	FinalAmount        decimal.Decimal
	ReceivedAmount     decimal.NullDecimal
	ChangeAmount       decimal.NullDecimal
	ExtraCharges       []byte
	Notes              pgtype.Text
	ProcessedBy        pgtype.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OwnerID,
		arg.PaymentNumber,
		arg.SessionID,
		arg.BillSplitID,
		arg.RestaurantName,
		arg.RestaurantAddress,
		arg.RestaurantPhone,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.TableNumber,
		arg.TableName,
		arg.PaymentMethod,
		arg.Subtotal,
		arg.DiscountAmount,
		arg.ExtraChargesAmount,
		arg.FinalAmount,
		arg.ReceivedAmount,
		arg.ChangeAmount,
		arg.ExtraCharges,
		arg.Notes,
		arg.ProcessedBy,
	)
	return scanPayment(row)
}

const createPaymentItem = `INSERT INTO payment_items (payment_id, order_item_id, menu_item_name, menu_item_description,
    category_name, unit_price, quantity, total_price, selections, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + paymentItemColumns

type CreatePaymentItemParams struct {
	PaymentID           uuid.UUID
	OrderItemID         pgtype.UUID
	MenuItemName        string
	MenuItemDescription pgtype.Text
	CategoryName        pgtype.Text
	UnitPrice           decimal.Decimal
	Quantity            decimal.Decimal
	TotalPrice          decimal.Decimal
	Selections          []byte
	Notes               pgtype.Text
}

func (q *Queries) CreatePaymentItem(ctx context.Context, arg CreatePaymentItemParams) (PaymentItem, error) {
	row := q.db.QueryRow(ctx, createPaymentItem,
		arg.PaymentID,
		arg.OrderItemID,
		arg.MenuItemName,
		arg.MenuItemDescription,
		arg.CategoryName,
		arg.UnitPrice,
		arg.Quantity,
		arg.TotalPrice,
		arg.Selections,
		arg.Notes,
	)
	return scanPaymentItem(row)
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments
WHERE id = $1 AND owner_id = $2`

type GetPaymentParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetPayment(ctx context.Context, arg GetPaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, arg.ID, arg.OwnerID))
}

const listPayments = `SELECT ` + paymentColumns + ` FROM payments
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListPaymentsParams struct {
	OwnerID uuid.UUID
	Limit   int32
	Offset  int32
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]Payment, error) {
	return collectPayments(q.db.Query(ctx, listPayments, arg.OwnerID, arg.Limit, arg.Offset))
}

const listPaymentsBySession = `SELECT ` + paymentColumns + ` FROM payments
WHERE session_id = $1 AND owner_id = $2
ORDER BY created_at`

type ListPaymentsBySessionParams struct {
	SessionID uuid.UUID
	OwnerID   uuid.UUID
}

func (q *Queries) ListPaymentsBySession(ctx context.Context, arg ListPaymentsBySessionParams) ([]Payment, error) {
	return collectPayments(q.db.Query(ctx, listPaymentsBySession, arg.SessionID, arg.OwnerID))
}

const listPaymentItems = `SELECT ` + paymentItemColumns + ` FROM payment_items
WHERE payment_id = $1
ORDER BY menu_item_name, id`

func (q *Queries) ListPaymentItems(ctx context.Context, paymentID uuid.UUID) ([]PaymentItem, error) {
	rows, err := q.db.Query(ctx, listPaymentItems, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PaymentItem{}
	for rows.Next() {
		i, err := scanPaymentItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// UpdatePayment edits settlement-correction fields only. Snapshot columns and
// payment items are never rewritten.
const updatePayment = `UPDATE payments
SET payment_method = $3, discount_amount = $4, extra_charges_amount = $5, final_amount = $6,
    received_amount = $7, change_amount = $8, notes = $9, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + paymentColumns

type UpdatePaymentParams struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	PaymentMethod      string
	DiscountAmount     decimal.Decimal
	ExtraChargesAmount decimal.Decimal
	FinalAmount        decimal.Decimal
	ReceivedAmount     decimal.NullDecimal
	ChangeAmount       decimal.NullDecimal
	Notes              pgtype.Text
}

func (q *Queries) UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePayment,
		arg.ID,
		arg.OwnerID,
		arg.PaymentMethod,
		arg.DiscountAmount,
		arg.ExtraChargesAmount,
		arg.FinalAmount,
		arg.ReceivedAmount,
		arg.ChangeAmount,
		arg.Notes,
	)
	return scanPayment(row)
}

const sumSessionPayments = `SELECT COALESCE(SUM(final_amount), 0) FROM payments WHERE session_id = $1`

func (q *Queries) SumSessionPayments(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.db.QueryRow(ctx, sumSessionPayments, sessionID).Scan(&total)
	return total, err
}

type PaymentMethodSum struct {
	PaymentMethod string
	PaymentCount  int64
	TotalAmount   decimal.Decimal
}

const sumPaymentsSince = `SELECT payment_method, COUNT(*), COALESCE(SUM(final_amount), 0)
FROM payments
WHERE owner_id = $1 AND created_at >= $2
GROUP BY payment_method
ORDER BY payment_method`

type SumPaymentsSinceParams struct {
	OwnerID uuid.UUID
	Since   time.Time
}

func (q *Queries) SumPaymentsSince(ctx context.Context, arg SumPaymentsSinceParams) ([]PaymentMethodSum, error) {
	rows, err := q.db.Query(ctx, sumPaymentsSince, arg.OwnerID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PaymentMethodSum{}
	for rows.Next() {
		var i PaymentMethodSum
		if err := rows.Scan(&i.PaymentMethod, &i.PaymentCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
