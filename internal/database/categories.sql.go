package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, owner_id, name, description, is_active, sort_order, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var i Category
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.Description,
		&i.IsActive,
		&i.SortOrder,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type ListCategoriesRow struct {
	Category
	MenuItemCount int64
}

const listCategories = `SELECT c.id, c.owner_id, c.name, c.description, c.is_active, c.sort_order, c.created_at, c.updated_at,
    (SELECT COUNT(*) FROM menu_items m WHERE m.category_id = c.id) AS menu_item_count
FROM categories c
WHERE c.owner_id = $1
ORDER BY c.sort_order, c.name`

func (q *Queries) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]ListCategoriesRow, error) {
	rows, err := q.db.Query(ctx, listCategories, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCategoriesRow{}
	for rows.Next() {
		var i ListCategoriesRow
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Name,
			&i.Description,
			&i.IsActive,
			&i.SortOrder,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.MenuItemCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories
WHERE id = $1 AND owner_id = $2`

type GetCategoryParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetCategory(ctx context.Context, arg GetCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategory, arg.ID, arg.OwnerID))
}

const getCategoryByName = `SELECT ` + categoryColumns + ` FROM categories
WHERE owner_id = $1 AND lower(name) = lower($2)`

type GetCategoryByNameParams struct {
	OwnerID uuid.UUID
	Name    string
}

func (q *Queries) GetCategoryByName(ctx context.Context, arg GetCategoryByNameParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategoryByName, arg.OwnerID, arg.Name))
}

const createCategory = `INSERT INTO categories (owner_id, name, description, sort_order)
VALUES ($1, $2, $3, $4)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, arg.OwnerID, arg.Name, arg.Description, arg.SortOrder)
	return scanCategory(row)
}

const updateCategory = `UPDATE categories
SET name = $3, description = $4, is_active = $5, sort_order = $6, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	IsActive    bool
	SortOrder   int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.Description,
		arg.IsActive,
		arg.SortOrder,
	)
	return scanCategory(row)
}

const countMenuItemsByCategory = `SELECT COUNT(*) FROM menu_items WHERE category_id = $1`

func (q *Queries) CountMenuItemsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countMenuItemsByCategory, categoryID).Scan(&n)
	return n, err
}

const deleteCategory = `DELETE FROM categories WHERE id = $1 AND owner_id = $2
RETURNING id`

type DeleteCategoryParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) DeleteCategory(ctx context.Context, arg DeleteCategoryParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteCategory, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}
