package database

import (
	"context"

	"github.com/google/uuid"
)

// The upsert takes a row lock on (owner, name, period), so concurrent callers
// are serialized and each receives a distinct value.
const nextSequenceValue = `INSERT INTO owner_sequences (owner_id, name, period, value)
VALUES ($1, $2, $3, 1)
ON CONFLICT (owner_id, name, period) DO UPDATE SET value = owner_sequences.value + 1
RETURNING value`

type NextSequenceValueParams struct {
	OwnerID uuid.UUID
	Name    string
	Period  string
}

func (q *Queries) NextSequenceValue(ctx context.Context, arg NextSequenceValueParams) (int64, error) {
	var value int64
	err := q.db.QueryRow(ctx, nextSequenceValue, arg.OwnerID, arg.Name, arg.Period).Scan(&value)
	return value, err
}
