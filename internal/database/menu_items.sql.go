package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const menuItemColumns = `id, owner_id, category_id, department_id, name, description, price, image_path,
    is_active, is_available, sort_order, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.CategoryID,
		&i.DepartmentID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.ImagePath,
		&i.IsActive,
		&i.IsAvailable,
		&i.SortOrder,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuItems = `SELECT ` + menuItemColumns + ` FROM menu_items
WHERE owner_id = $1 AND ($2::uuid IS NULL OR category_id = $2)
ORDER BY category_id, sort_order, name`

type ListMenuItemsParams struct {
	OwnerID    uuid.UUID
	CategoryID pgtype.UUID
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.OwnerID, arg.CategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getMenuItem = `SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1 AND owner_id = $2`

type GetMenuItemParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, arg.ID, arg.OwnerID))
}

const getNextMenuItemSortOrder = `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM menu_items
WHERE owner_id = $1 AND category_id = $2`

type GetNextMenuItemSortOrderParams struct {
	OwnerID    uuid.UUID
	CategoryID uuid.UUID
}

func (q *Queries) GetNextMenuItemSortOrder(ctx context.Context, arg GetNextMenuItemSortOrderParams) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextMenuItemSortOrder, arg.OwnerID, arg.CategoryID).Scan(&n)
	return n, err
}

const createMenuItem = `INSERT INTO menu_items (owner_id, category_id, department_id, name, description, price, image_path, is_available, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	OwnerID      uuid.UUID
	CategoryID   uuid.UUID
	DepartmentID pgtype.UUID
	Name         string
	Description  pgtype.Text
	Price        decimal.Decimal
	ImagePath    pgtype.Text
	IsAvailable  bool
	SortOrder    int32
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.OwnerID,
		arg.CategoryID,
		arg.DepartmentID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImagePath,
		arg.IsAvailable,
		arg.SortOrder,
	)
	return scanMenuItem(row)
}

const updateMenuItem = `UPDATE menu_items
SET category_id = $3, department_id = $4, name = $5, description = $6, price = $7, image_path = $8,
    is_active = $9, is_available = $10, sort_order = $11, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	CategoryID   uuid.UUID
	DepartmentID pgtype.UUID
	Name         string
	Description  pgtype.Text
	Price        decimal.Decimal
	ImagePath    pgtype.Text
	IsActive     bool
	IsAvailable  bool
	SortOrder    int32
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.OwnerID,
		arg.CategoryID,
		arg.DepartmentID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImagePath,
		arg.IsActive,
		arg.IsAvailable,
		arg.SortOrder,
	)
	return scanMenuItem(row)
}

const countOrderItemsByMenuItem = `SELECT COUNT(*) FROM order_items WHERE menu_item_id = $1`

func (q *Queries) CountOrderItemsByMenuItem(ctx context.Context, menuItemID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrderItemsByMenuItem, menuItemID).Scan(&n)
	return n, err
}

const deleteMenuItem = `DELETE FROM menu_items WHERE id = $1 AND owner_id = $2
RETURNING id`

type DeleteMenuItemParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) DeleteMenuItem(ctx context.Context, arg DeleteMenuItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteMenuItem, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}
