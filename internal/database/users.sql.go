package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, full_name, role, restaurant_owner_id,
    restaurant_name, restaurant_address, restaurant_phone, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.RestaurantOwnerID,
		&i.RestaurantName,
		&i.RestaurantAddress,
		&i.RestaurantPhone,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectUsers(rows pgx.Rows, err error) ([]User, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createUser = `INSERT INTO users (email, hashed_password, full_name, role, restaurant_owner_id, restaurant_name)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email             string
	HashedPassword    string
	FullName          string
	Role              string
	RestaurantOwnerID pgtype.UUID
	RestaurantName    pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
		arg.RestaurantOwnerID,
		arg.RestaurantName,
	)
	return scanUser(row)
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users
WHERE email = $1 AND is_active = TRUE`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users
WHERE id = $1 AND is_active = TRUE`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listStaffByOwner = `SELECT ` + userColumns + ` FROM users
WHERE restaurant_owner_id = $1
ORDER BY full_name`

func (q *Queries) ListStaffByOwner(ctx context.Context, ownerID uuid.UUID) ([]User, error) {
	return collectUsers(q.db.Query(ctx, listStaffByOwner, ownerID))
}

const getStaffMember = `SELECT ` + userColumns + ` FROM users
WHERE id = $1 AND restaurant_owner_id = $2`

type GetStaffMemberParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetStaffMember(ctx context.Context, arg GetStaffMemberParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getStaffMember, arg.ID, arg.OwnerID))
}

const updateStaffMember = `UPDATE users
SET full_name = $3, role = $4, is_active = $5, hashed_password = COALESCE($6, hashed_password), updated_at = now()
WHERE id = $1 AND restaurant_owner_id = $2
RETURNING ` + userColumns

type UpdateStaffMemberParams struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	FullName       string
	Role           string
	IsActive       bool
	HashedPassword pgtype.Text
}

func (q *Queries) UpdateStaffMember(ctx context.Context, arg UpdateStaffMemberParams) (User, error) {
	row := q.db.QueryRow(ctx, updateStaffMember,
		arg.ID,
		arg.OwnerID,
		arg.FullName,
		arg.Role,
		arg.IsActive,
		arg.HashedPassword,
	)
	return scanUser(row)
}

const deactivateStaffMember = `UPDATE users SET is_active = FALSE, updated_at = now()
WHERE id = $1 AND restaurant_owner_id = $2 AND is_active = TRUE
RETURNING id`

type DeactivateStaffMemberParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) DeactivateStaffMember(ctx context.Context, arg DeactivateStaffMemberParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deactivateStaffMember, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}

const updateRestaurantSettings = `UPDATE users
SET restaurant_name = $2, restaurant_address = $3, restaurant_phone = $4, updated_at = now()
WHERE id = $1 AND role = 'OWNER'
RETURNING ` + userColumns

type UpdateRestaurantSettingsParams struct {
	OwnerID           uuid.UUID
	RestaurantName    pgtype.Text
	RestaurantAddress pgtype.Text
	RestaurantPhone   pgtype.Text
}

func (q *Queries) UpdateRestaurantSettings(ctx context.Context, arg UpdateRestaurantSettingsParams) (User, error) {
	row := q.db.QueryRow(ctx, updateRestaurantSettings,
		arg.OwnerID,
		arg.RestaurantName,
		arg.RestaurantAddress,
		arg.RestaurantPhone,
	)
	return scanUser(row)
}
