package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// maxNumberRetries bounds retries when a generated order or payment number
// hits its unique constraint.
const maxNumberRetries = 3

// moneyTolerance is the largest difference between a client-declared amount
// and the server-computed one that is still accepted.
var moneyTolerance = decimal.NewFromFloat(0.01)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(moneyTolerance)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

// numberPeriod is the per-day bucket used for order and payment numbers.
func numberPeriod(t time.Time) string {
	return t.Format("20060102")
}
