package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const selectionColumns = `id, menu_item_id, name, is_required, allow_multiple, sort_order, created_at`

const selectionOptionColumns = `id, selection_id, name, price_add, is_available, sort_order`

func scanSelection(row pgx.Row) (Selection, error) {
	var i Selection
	err := row.Scan(
		&i.ID,
		&i.MenuItemID,
		&i.Name,
		&i.IsRequired,
		&i.AllowMultiple,
		&i.SortOrder,
		&i.CreatedAt,
	)
	return i, err
}

func scanSelectionOption(row pgx.Row) (SelectionOption, error) {
	var i SelectionOption
	err := row.Scan(
		&i.ID,
		&i.SelectionID,
		&i.Name,
		&i.PriceAdd,
		&i.IsAvailable,
		&i.SortOrder,
	)
	return i, err
}

const listSelectionsByMenuItem = `SELECT ` + selectionColumns + ` FROM selections
WHERE menu_item_id = $1
ORDER BY sort_order, name`

func (q *Queries) ListSelectionsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]Selection, error) {
	rows, err := q.db.Query(ctx, listSelectionsByMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Selection{}
	for rows.Next() {
		i, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOptionsBySelection = `SELECT ` + selectionOptionColumns + ` FROM selection_options
WHERE selection_id = $1
ORDER BY sort_order, name`

func (q *Queries) ListOptionsBySelection(ctx context.Context, selectionID uuid.UUID) ([]SelectionOption, error) {
	rows, err := q.db.Query(ctx, listOptionsBySelection, selectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SelectionOption{}
	for rows.Next() {
		i, err := scanSelectionOption(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getSelection = `SELECT ` + selectionColumns + ` FROM selections
WHERE id = $1 AND menu_item_id = $2`

type GetSelectionParams struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
}

func (q *Queries) GetSelection(ctx context.Context, arg GetSelectionParams) (Selection, error) {
	return scanSelection(q.db.QueryRow(ctx, getSelection, arg.ID, arg.MenuItemID))
}

const createSelection = `INSERT INTO selections (menu_item_id, name, is_required, allow_multiple, sort_order)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + selectionColumns

type CreateSelectionParams struct {
	MenuItemID    uuid.UUID
	Name          string
	IsRequired    bool
	AllowMultiple bool
	SortOrder     int32
}

func (q *Queries) CreateSelection(ctx context.Context, arg CreateSelectionParams) (Selection, error) {
	row := q.db.QueryRow(ctx, createSelection,
		arg.MenuItemID,
		arg.Name,
		arg.IsRequired,
		arg.AllowMultiple,
		arg.SortOrder,
	)
	return scanSelection(row)
}

const updateSelection = `UPDATE selections
SET name = $3, is_required = $4, allow_multiple = $5, sort_order = $6
WHERE id = $1 AND menu_item_id = $2
RETURNING ` + selectionColumns

type UpdateSelectionParams struct {
	ID            uuid.UUID
	MenuItemID    uuid.UUID
	Name          string
	IsRequired    bool
	AllowMultiple bool
	SortOrder     int32
}

func (q *Queries) UpdateSelection(ctx context.Context, arg UpdateSelectionParams) (Selection, error) {
	row := q.db.QueryRow(ctx, updateSelection,
		arg.ID,
		arg.MenuItemID,
		arg.Name,
		arg.IsRequired,
		arg.AllowMultiple,
		arg.SortOrder,
	)
	return scanSelection(row)
}

const deleteSelection = `DELETE FROM selections WHERE id = $1 AND menu_item_id = $2
RETURNING id`

type DeleteSelectionParams struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
}

func (q *Queries) DeleteSelection(ctx context.Context, arg DeleteSelectionParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteSelection, arg.ID, arg.MenuItemID).Scan(&id)
	return id, err
}

const createSelectionOption = `INSERT INTO selection_options (selection_id, name, price_add, is_available, sort_order)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + selectionOptionColumns

type CreateSelectionOptionParams struct {
	SelectionID uuid.UUID
	Name        string
	PriceAdd    decimal.Decimal
	IsAvailable bool
	SortOrder   int32
}

func (q *Queries) CreateSelectionOption(ctx context.Context, arg CreateSelectionOptionParams) (SelectionOption, error) {
	row := q.db.QueryRow(ctx, createSelectionOption,
		arg.SelectionID,
		arg.Name,
		arg.PriceAdd,
		arg.IsAvailable,
		arg.SortOrder,
	)
	return scanSelectionOption(row)
}

const deleteOptionsBySelection = `DELETE FROM selection_options WHERE selection_id = $1`

func (q *Queries) DeleteOptionsBySelection(ctx context.Context, selectionID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOptionsBySelection, selectionID)
	return err
}

type OptionWithSelection struct {
	OptionID      uuid.UUID
	OptionName    string
	PriceAdd      decimal.Decimal
	IsAvailable   bool
	SelectionID   uuid.UUID
	SelectionName string
	MenuItemID    uuid.UUID
}

const getOptionsByIDs = `SELECT o.id, o.name, o.price_add, o.is_available, s.id, s.name, s.menu_item_id
FROM selection_options o
JOIN selections s ON s.id = o.selection_id
WHERE o.id = ANY($1::uuid[])`

// GetOptionsByIDs resolves option ids against the current selection rows.
// Ids that no longer exist are simply absent from the result.
func (q *Queries) GetOptionsByIDs(ctx context.Context, ids []uuid.UUID) ([]OptionWithSelection, error) {
	rows, err := q.db.Query(ctx, getOptionsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OptionWithSelection{}
	for rows.Next() {
		var i OptionWithSelection
		if err := rows.Scan(
			&i.OptionID,
			&i.OptionName,
			&i.PriceAdd,
			&i.IsAvailable,
			&i.SelectionID,
			&i.SelectionName,
			&i.MenuItemID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
