package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `id, owner_id, origin, table_id, session_token, customer_name, customer_phone, customer_email,
    party_size, status, is_active, notes, check_in_time, check_out_time, created_at, updated_at`

func scanSession(row pgx.Row) (Session, error) {
	var i Session
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Origin,
		&i.TableID,
		&i.SessionToken,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.CustomerEmail,
		&i.PartySize,
		&i.Status,
		&i.IsActive,
		&i.Notes,
		&i.CheckInTime,
		&i.CheckOutTime,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listSessions = `SELECT ` + sessionColumns + ` FROM sessions
WHERE owner_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR origin = $3)
  AND ($4::boolean IS NULL OR is_active = $4)
  AND ($5::uuid IS NULL OR table_id = $5)
ORDER BY check_in_time DESC`

type ListSessionsParams struct {
	OwnerID  uuid.UUID
	Status   pgtype.Text
	Origin   pgtype.Text
	IsActive pgtype.Bool
	TableID  pgtype.UUID
}

func (q *Queries) ListSessions(ctx context.Context, arg ListSessionsParams) ([]Session, error) {
	rows, err := q.db.Query(ctx, listSessions,
		arg.OwnerID,
		arg.Status,
		arg.Origin,
		arg.IsActive,
		arg.TableID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Session{}
	for rows.Next() {
		i, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getSession = `SELECT ` + sessionColumns + ` FROM sessions
WHERE id = $1 AND owner_id = $2`

type GetSessionParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetSession(ctx context.Context, arg GetSessionParams) (Session, error) {
	return scanSession(q.db.QueryRow(ctx, getSession, arg.ID, arg.OwnerID))
}

const getSessionForUpdate = getSession + `
FOR UPDATE`

func (q *Queries) GetSessionForUpdate(ctx context.Context, arg GetSessionParams) (Session, error) {
	return scanSession(q.db.QueryRow(ctx, getSessionForUpdate, arg.ID, arg.OwnerID))
}

const getSessionByToken = `SELECT ` + sessionColumns + ` FROM sessions
WHERE session_token = $1 AND is_active = TRUE`

func (q *Queries) GetSessionByToken(ctx context.Context, token string) (Session, error) {
	return scanSession(q.db.QueryRow(ctx, getSessionByToken, token))
}

const getActiveQRSessionByTable = `SELECT ` + sessionColumns + ` FROM sessions
WHERE table_id = $1 AND origin = 'QR' AND is_active = TRUE
ORDER BY check_in_time DESC
LIMIT 1`

func (q *Queries) GetActiveQRSessionByTable(ctx context.Context, tableID uuid.UUID) (Session, error) {
	return scanSession(q.db.QueryRow(ctx, getActiveQRSessionByTable, tableID))
}

const createSession = `INSERT INTO sessions (owner_id, origin, table_id, session_token, customer_name, customer_phone,
    customer_email, party_size, status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + sessionColumns

type CreateSessionParams struct {
	OwnerID       uuid.UUID
	Origin        string
	TableID       pgtype.UUID
	SessionToken  pgtype.Text
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	CustomerEmail pgtype.Text
	PartySize     int32
	Status        string
	Notes         pgtype.Text
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRow(ctx, createSession,
		arg.OwnerID,
		arg.Origin,
		arg.TableID,
		arg.SessionToken,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerEmail,
		arg.PartySize,
		arg.Status,
		arg.Notes,
	)
	return scanSession(row)
}

const updateSession = `UPDATE sessions
SET table_id = $3, customer_name = $4, customer_phone = $5, customer_email = $6, party_size = $7,
    status = $8::text, notes = $9,
    is_active = ($8::text <> 'COMPLETED'),
    check_out_time = CASE WHEN $8::text = 'COMPLETED' THEN COALESCE(check_out_time, now()) ELSE NULL END,
    updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + sessionColumns

type UpdateSessionParams struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	TableID       pgtype.UUID
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	CustomerEmail pgtype.Text
	PartySize     int32
	Status        string
	Notes         pgtype.Text
}

func (q *Queries) UpdateSession(ctx context.Context, arg UpdateSessionParams) (Session, error) {
	row := q.db.QueryRow(ctx, updateSession,
		arg.ID,
		arg.OwnerID,
		arg.TableID,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerEmail,
		arg.PartySize,
		arg.Status,
		arg.Notes,
	)
	return scanSession(row)
}

// AdvanceSessionStatus moves a session to Status only while its current
// status is one of FromStatuses. Zero rows affected means nothing changed.
const advanceSessionStatus = `UPDATE sessions SET status = $3, updated_at = now()
WHERE id = $1 AND owner_id = $2 AND status = ANY($4::text[])`

type AdvanceSessionStatusParams struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Status       string
	FromStatuses []string
}

func (q *Queries) AdvanceSessionStatus(ctx context.Context, arg AdvanceSessionStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, advanceSessionStatus, arg.ID, arg.OwnerID, arg.Status, arg.FromStatuses)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const completeSession = `UPDATE sessions
SET status = 'COMPLETED', is_active = FALSE, check_out_time = now(), updated_at = now()
WHERE id = $1 AND owner_id = $2 AND status <> 'COMPLETED'
RETURNING ` + sessionColumns

type CompleteSessionParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) CompleteSession(ctx context.Context, arg CompleteSessionParams) (Session, error) {
	return scanSession(q.db.QueryRow(ctx, completeSession, arg.ID, arg.OwnerID))
}

const countSessionDependents = `SELECT
    (SELECT COUNT(*) FROM orders WHERE session_id = $1) +
    (SELECT COUNT(*) FROM payments WHERE session_id = $1)`

// CountSessionDependents counts orders plus payments recorded on a session.
func (q *Queries) CountSessionDependents(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countSessionDependents, sessionID).Scan(&n)
	return n, err
}

const deleteSession = `DELETE FROM sessions WHERE id = $1 AND owner_id = $2
RETURNING id`

type DeleteSessionParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) DeleteSession(ctx context.Context, arg DeleteSessionParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteSession, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}

const countActiveSessions = `SELECT COUNT(*) FROM sessions WHERE owner_id = $1 AND is_active = TRUE`

func (q *Queries) CountActiveSessions(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countActiveSessions, ownerID).Scan(&n)
	return n, err
}
