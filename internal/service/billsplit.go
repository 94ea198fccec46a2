package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the bill split service.
var (
	ErrInvalidSplitType   = errors.New("invalid splitType")
	ErrEmptySplits        = errors.New("splits are required")
	ErrInvalidSplitAmount = errors.New("split amount must be > 0")
	ErrNothingToSplit     = errors.New("session has no order total to split")
	ErrSplitSumMismatch   = errors.New("splits do not sum to the session total")
	ErrInvalidOrderID     = errors.New("invalid orderId")
)

// BillSplitStore defines the DB methods the bill split service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type BillSplitStore interface {
	GetSessionForUpdate(ctx context.Context, arg database.GetSessionParams) (database.Session, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	SumSessionOrderTotals(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error)
	CreateBillSplit(ctx context.Context, arg database.CreateBillSplitParams) (database.BillSplit, error)
}

// NewBillSplitStore creates a BillSplitStore from a DBTX (pool or tx).
type NewBillSplitStore func(db database.DBTX) BillSplitStore

// SplitPortion is one caller-supplied share of the session total.
type SplitPortion struct {
	Amount decimal.Decimal
	Label  string
}

// CreateBillSplitRequest partitions a session's order total.
type CreateBillSplitRequest struct {
	OwnerID   uuid.UUID
	SessionID uuid.UUID
	OrderID   string
	SplitType string
	Splits    []SplitPortion
}

// BillSplitService creates bill splits.
type BillSplitService struct {
	pool     TxBeginner
	newStore NewBillSplitStore
}

func NewBillSplitService(pool TxBeginner, newStore NewBillSplitStore) *BillSplitService {
	return &BillSplitService{pool: pool, newStore: newStore}
}

// Create persists one PENDING split per portion. The portions must sum to
// the session's raw order total within 0.01.
func (s *BillSplitService) Create(ctx context.Context, req CreateBillSplitRequest) ([]database.BillSplit, error) {
	if !enum.IsSplitType(req.SplitType) {
		return nil, ErrInvalidSplitType
	}
	if len(req.Splits) == 0 {
		return nil, ErrEmptySplits
	}
	sum := decimal.Zero
	for i, p := range req.Splits {
		if !p.Amount.IsPositive() {
			return nil, fmt.Errorf("splits[%d]: %w", i, ErrInvalidSplitAmount)
		}
		sum = sum.Add(p.Amount)
	}
	orderID := pgtype.UUID{}
	if req.OrderID != "" {
		id, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, ErrInvalidOrderID
		}
		orderID = pgtype.UUID{Bytes: id, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	session, err := store.GetSessionForUpdate(ctx, database.GetSessionParams{ID: req.SessionID, OwnerID: req.OwnerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Status == enum.SessionStatusCompleted {
		return nil, ErrSessionCompleted
	}

	if orderID.Valid {
		order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID.Bytes, OwnerID: req.OwnerID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOrderNotFound
			}
			return nil, fmt.Errorf("get order: %w", err)
		}
		if !order.SessionID.Valid || order.SessionID.Bytes != session.ID {
			return nil, ErrOrderNotFound
		}
	}

	total, err := store.SumSessionOrderTotals(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("sum session orders: %w", err)
	}
	if !total.IsPositive() {
		return nil, ErrNothingToSplit
	}
	if !withinTolerance(sum, total) {
		return nil, fmt.Errorf("%w: total %s, splits %s", ErrSplitSumMismatch, total.StringFixed(2), sum.StringFixed(2))
	}

	splits := make([]database.BillSplit, 0, len(req.Splits))
	for _, p := range req.Splits {
		split, err := store.CreateBillSplit(ctx, database.CreateBillSplitParams{
			OwnerID:     req.OwnerID,
			SessionID:   session.ID,
			OrderID:     orderID,
			SplitType:   req.SplitType,
			Label:       optionalText(p.Label),
			TotalAmount: p.Amount,
		})
		if err != nil {
			return nil, fmt.Errorf("create bill split: %w", err)
		}
		splits = append(splits, split)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return splits, nil
}
