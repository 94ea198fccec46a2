package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, owner_id, number, name, capacity, is_active, grid_x, grid_y, sort_order, created_at, updated_at`

func scanDiningTable(row pgx.Row) (DiningTable, error) {
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Number,
		&i.Name,
		&i.Capacity,
		&i.IsActive,
		&i.GridX,
		&i.GridY,
		&i.SortOrder,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listTables = `SELECT ` + tableColumns + ` FROM dining_tables
WHERE owner_id = $1
ORDER BY sort_order, number`

func (q *Queries) ListTables(ctx context.Context, ownerID uuid.UUID) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listTables, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DiningTable{}
	for rows.Next() {
		i, err := scanDiningTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getTable = `SELECT ` + tableColumns + ` FROM dining_tables
WHERE id = $1 AND owner_id = $2`

type GetTableParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getTable, arg.ID, arg.OwnerID))
}

// GetActiveTableByID looks a table up without an owner. Only the public QR
// entry point uses it; the table's owner becomes the session's owner.
const getActiveTableByID = `SELECT ` + tableColumns + ` FROM dining_tables
WHERE id = $1 AND is_active = TRUE`

func (q *Queries) GetActiveTableByID(ctx context.Context, id uuid.UUID) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getActiveTableByID, id))
}

const getTableByNumber = `SELECT ` + tableColumns + ` FROM dining_tables
WHERE owner_id = $1 AND number = $2`

type GetTableByNumberParams struct {
	OwnerID uuid.UUID
	Number  int32
}

func (q *Queries) GetTableByNumber(ctx context.Context, arg GetTableByNumberParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getTableByNumber, arg.OwnerID, arg.Number))
}

const createTable = `INSERT INTO dining_tables (owner_id, number, name, capacity, grid_x, grid_y, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + tableColumns

type CreateTableParams struct {
	OwnerID   uuid.UUID
	Number    int32
	Name      pgtype.Text
	Capacity  int32
	GridX     int32
	GridY     int32
	SortOrder int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, createTable,
		arg.OwnerID,
		arg.Number,
		arg.Name,
		arg.Capacity,
		arg.GridX,
		arg.GridY,
		arg.SortOrder,
	)
	return scanDiningTable(row)
}

const updateTable = `UPDATE dining_tables
SET number = $3, name = $4, capacity = $5, is_active = $6, grid_x = $7, grid_y = $8, sort_order = $9, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + tableColumns

type UpdateTableParams struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Number    int32
	Name      pgtype.Text
	Capacity  int32
	IsActive  bool
	GridX     int32
	GridY     int32
	SortOrder int32
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, updateTable,
		arg.ID,
		arg.OwnerID,
		arg.Number,
		arg.Name,
		arg.Capacity,
		arg.IsActive,
		arg.GridX,
		arg.GridY,
		arg.SortOrder,
	)
	return scanDiningTable(row)
}

const countTableReferences = `SELECT
    (SELECT COUNT(*) FROM orders WHERE table_id = $1) +
    (SELECT COUNT(*) FROM sessions WHERE table_id = $1 AND is_active = TRUE)`

// CountTableReferences counts orders plus active sessions pointing at a table.
func (q *Queries) CountTableReferences(ctx context.Context, tableID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countTableReferences, tableID).Scan(&n)
	return n, err
}

const deleteTable = `DELETE FROM dining_tables WHERE id = $1 AND owner_id = $2
RETURNING id`

type DeleteTableParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) DeleteTable(ctx context.Context, arg DeleteTableParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteTable, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}
