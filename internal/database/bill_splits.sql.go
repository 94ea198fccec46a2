package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const billSplitColumns = `id, owner_id, session_id, order_id, split_type, label, total_amount, paid_amount, status,
    created_at, updated_at`

func scanBillSplit(row pgx.Row) (BillSplit, error) {
	var i BillSplit
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.SessionID,
		&i.OrderID,
		&i.SplitType,
		&i.Label,
		&i.TotalAmount,
		&i.PaidAmount,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createBillSplit = `INSERT INTO bill_splits (owner_id, session_id, order_id, split_type, label, total_amount)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + billSplitColumns

type CreateBillSplitParams struct {
	OwnerID     uuid.UUID
	SessionID   uuid.UUID
	OrderID     pgtype.UUID
	SplitType   string
	Label       pgtype.Text
	TotalAmount decimal.Decimal
}

func (q *Queries) CreateBillSplit(ctx context.Context, arg CreateBillSplitParams) (BillSplit, error) {
	row := q.db.QueryRow(ctx, createBillSplit,
		arg.OwnerID,
		arg.SessionID,
		arg.OrderID,
		arg.SplitType,
		arg.Label,
		arg.TotalAmount,
	)
	return scanBillSplit(row)
}

const getBillSplit = `SELECT ` + billSplitColumns + ` FROM bill_splits
WHERE id = $1 AND owner_id = $2`

type GetBillSplitParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetBillSplit(ctx context.Context, arg GetBillSplitParams) (BillSplit, error) {
	return scanBillSplit(q.db.QueryRow(ctx, getBillSplit, arg.ID, arg.OwnerID))
}

const getBillSplitForUpdate = getBillSplit + `
FOR UPDATE`

func (q *Queries) GetBillSplitForUpdate(ctx context.Context, arg GetBillSplitParams) (BillSplit, error) {
	return scanBillSplit(q.db.QueryRow(ctx, getBillSplitForUpdate, arg.ID, arg.OwnerID))
}

const listBillSplitsBySession = `SELECT ` + billSplitColumns + ` FROM bill_splits
WHERE session_id = $1 AND owner_id = $2
ORDER BY created_at, id`

type ListBillSplitsBySessionParams struct {
	SessionID uuid.UUID
	OwnerID   uuid.UUID
}

func (q *Queries) ListBillSplitsBySession(ctx context.Context, arg ListBillSplitsBySessionParams) ([]BillSplit, error) {
	rows, err := q.db.Query(ctx, listBillSplitsBySession, arg.SessionID, arg.OwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BillSplit{}
	for rows.Next() {
		i, err := scanBillSplit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateBillSplitPayment = `UPDATE bill_splits
SET paid_amount = $2, status = $3, updated_at = now()
WHERE id = $1
RETURNING ` + billSplitColumns

type UpdateBillSplitPaymentParams struct {
	ID         uuid.UUID
	PaidAmount decimal.Decimal
	Status     string
}

func (q *Queries) UpdateBillSplitPayment(ctx context.Context, arg UpdateBillSplitPaymentParams) (BillSplit, error) {
	return scanBillSplit(q.db.QueryRow(ctx, updateBillSplitPayment, arg.ID, arg.PaidAmount, arg.Status))
}
