package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const departmentColumns = `id, owner_id, name, description, is_active, sort_order, created_at, updated_at`

func scanDepartment(row pgx.Row) (Department, error) {
	var i Department
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

type ListDepartmentsRow struct {
	Department
	MenuItemCount int64
}

const listDepartments = `SELECT d.id, d.owner_id, d.name, d.description, d.is_active, d.sort_order, d.created_at, d.updated_at,
    (SELECT COUNT(*) FROM menu_items m WHERE m.department_id = d.id) AS menu_item_count
FROM departments d
WHERE d.owner_id = $1
ORDER BY d.sort_order, d.name`

func (q *Queries) ListDepartments(ctx context.Context, ownerID uuid.UUID) ([]ListDepartmentsRow, error) {
	rows, err := q.db.Query(ctx, listDepartments, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListDepartmentsRow{}
	for rows.Next() {
		var i ListDepartmentsRow
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

const getDepartment = `SELECT ` + departmentColumns + ` FROM departments
WHERE id = $1 AND owner_id = $2`

type GetDepartmentParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetDepartment(ctx context.Context, arg GetDepartmentParams) (Department, error) {
	return scanDepartment(q.db.QueryRow(ctx, getDepartment, arg.ID, arg.OwnerID))
}

const getDepartmentByName = `SELECT ` + departmentColumns + ` FROM departments
WHERE owner_id = $1 AND lower(name) = lower($2)`

type GetDepartmentByNameParams struct {
	OwnerID uuid.UUID
	Name    string
}

func (q *Queries) GetDepartmentByName(ctx context.Context, arg GetDepartmentByNameParams) (Department, error) {
	return scanDepartment(q.db.QueryRow(ctx, getDepartmentByName, arg.OwnerID, arg.Name))
}

const createDepartment = `INSERT INTO departments (owner_id, name, description, sort_order)
VALUES ($1, $2, $3, $4)
RETURNING ` + departmentColumns

type CreateDepartmentParams struct {
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
}

func (q *Queries) CreateDepartment(ctx context.Context, arg CreateDepartmentParams) (Department, error) {
	row := q.db.QueryRow(ctx, createDepartment, arg.OwnerID, arg.Name, arg.Description, arg.SortOrder)
	return scanDepartment(row)
}

const updateDepartment = `UPDATE departments
SET name = $3, description = $4, is_active = $5, sort_order = $6, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + departmentColumns

type UpdateDepartmentParams struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	IsActive    bool
	SortOrder   int32
}

func (q *Queries) UpdateDepartment(ctx context.Context, arg UpdateDepartmentParams) (Department, error) {
	row := q.db.QueryRow(ctx, updateDepartment,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.Description,
		arg.IsActive,
		arg.SortOrder,
	)
	return scanDepartment(row)
}

const countMenuItemsByDepartment = `SELECT COUNT(*) FROM menu_items WHERE department_id = $1`

func (q *Queries) CountMenuItemsByDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countMenuItemsByDepartment, departmentID).Scan(&n)
	return n, err
}

const deleteDepartment = `DELETE FROM departments WHERE id = $1 AND owner_id = $2
RETURNING id`

type DeleteDepartmentParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) DeleteDepartment(ctx context.Context, arg DeleteDepartmentParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteDepartment, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}
