package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/dinein-pos/api/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the payment service.
var (
	ErrInvalidPaymentMethod = errors.New("invalid paymentMethod")
	ErrInvalidAmount        = errors.New("amounts must not be negative")
	ErrInvalidFinalAmount   = errors.New("finalAmount must be > 0")
	ErrFinalAmountMismatch  = errors.New("finalAmount does not equal totalAmount + extra charges - discount")
	ErrInsufficientReceived = errors.New("receivedAmount is less than finalAmount")
	ErrInvalidPaymentAmount = errors.New("paymentAmount must be > 0")
	ErrExceedsRemaining     = errors.New("paymentAmount exceeds remaining balance")
	ErrBillSplitNotFound    = errors.New("bill split not found")
	ErrPaymentNotFound      = errors.New("payment not found")
)

// PaymentStore defines the DB methods the payment service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type PaymentStore interface {
	NextSequenceValue(ctx context.Context, arg database.NextSequenceValueParams) (int64, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	GetSessionForUpdate(ctx context.Context, arg database.GetSessionParams) (database.Session, error)
	AdvanceSessionStatus(ctx context.Context, arg database.AdvanceSessionStatusParams) (int64, error)
	ListSessionOrderItems(ctx context.Context, sessionID uuid.UUID) ([]database.SessionOrderItem, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	CreatePaymentItem(ctx context.Context, arg database.CreatePaymentItemParams) (database.PaymentItem, error)
	GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	ListPaymentItems(ctx context.Context, paymentID uuid.UUID) ([]database.PaymentItem, error)
	UpdatePayment(ctx context.Context, arg database.UpdatePaymentParams) (database.Payment, error)
	GetBillSplitForUpdate(ctx context.Context, arg database.GetBillSplitParams) (database.BillSplit, error)
	UpdateBillSplitPayment(ctx context.Context, arg database.UpdateBillSplitPaymentParams) (database.BillSplit, error)
	GetOptionsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.OptionWithSelection, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// ExtraCharge is a service charge or tax line. Percentage charges apply to
// the payment's totalAmount.
type ExtraCharge struct {
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"isPercentage"`
}

// CreatePaymentRequest records a payment against a session.
type CreatePaymentRequest struct {
	OwnerID        uuid.UUID
	SessionID      uuid.UUID
	ProcessedBy    uuid.UUID
	PaymentMethod  string
	TotalAmount    decimal.Decimal
	ExtraCharges   []ExtraCharge
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	ReceivedAmount decimal.NullDecimal
	Notes          string
}

// PaySplitRequest pays (part of) a bill split.
type PaySplitRequest struct {
	OwnerID        uuid.UUID
	BillSplitID    uuid.UUID
	ProcessedBy    uuid.UUID
	PaymentAmount  decimal.Decimal
	PaymentMethod  string
	ReceivedAmount decimal.NullDecimal
	Notes          string
}

// PaymentPatch corrects settlement fields on an existing payment. Nil
// fields are left as stored; a non-nil invalid ReceivedAmount clears it.
type PaymentPatch struct {
	PaymentMethod      *string
	DiscountAmount     *decimal.Decimal
	ExtraChargesAmount *decimal.Decimal
	FinalAmount        *decimal.Decimal
	ReceivedAmount     *decimal.NullDecimal
	Notes              *pgtype.Text
}

// PaymentResult is a payment with its snapshot lines.
type PaymentResult struct {
	Payment   database.Payment
	Items     []database.PaymentItem
	BillSplit *database.BillSplit
}

// ReceiptItem is a payment line with its option ids resolved to names.
type ReceiptItem struct {
	Item       database.PaymentItem
	Selections []ReceiptSelection
}

// ReceiptSelection lists the chosen option names of one selection.
type ReceiptSelection struct {
	Name    string
	Options []string
}

// PaymentService handles payment snapshots and bill-split settlement.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
	now      func() time.Time
}

func NewPaymentService(pool TxBeginner, newStore NewPaymentStore) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore, now: time.Now}
}

// ExtraChargesTotal sums flat charges and percentage charges of total,
// rounded to cents.
func ExtraChargesTotal(total decimal.Decimal, charges []ExtraCharge) decimal.Decimal {
	sum := decimal.Zero
	hundred := decimal.NewFromInt(100)
	for _, c := range charges {
		if c.IsPercentage {
			sum = sum.Add(total.Mul(c.Amount).Div(hundred))
		} else {
			sum = sum.Add(c.Amount)
		}
	}
	return sum.Round(2)
}

// CreateSessionPayment snapshots the session's restaurant, customer, table
// and order lines into a new payment. The session moves to BILLING if it is
// not there yet; it is never completed here.
func (s *PaymentService) CreateSessionPayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResult, error) {
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.TotalAmount.IsNegative() || req.DiscountAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	for _, c := range req.ExtraCharges {
		if c.Amount.IsNegative() {
			return nil, ErrInvalidAmount
		}
	}
	if !req.FinalAmount.IsPositive() {
		return nil, ErrInvalidFinalAmount
	}
	extra := ExtraChargesTotal(req.TotalAmount, req.ExtraCharges)
	expected := req.TotalAmount.Add(extra).Sub(req.DiscountAmount)
	if !withinTolerance(req.FinalAmount, expected) {
		return nil, fmt.Errorf("%w: expected %s", ErrFinalAmountMismatch, expected.StringFixed(2))
	}
	change, err := changeFor(req.FinalAmount, req.ReceivedAmount)
	if err != nil {
		return nil, err
	}
	extraJSON, err := json.Marshal(nonNilCharges(req.ExtraCharges))
	if err != nil {
		return nil, fmt.Errorf("encode extra charges: %w", err)
	}

	params := database.CreatePaymentParams{
		OwnerID:            req.OwnerID,
		SessionID:          req.SessionID,
		PaymentMethod:      req.PaymentMethod,
		Subtotal:           req.TotalAmount,
		DiscountAmount:     req.DiscountAmount,
		ExtraChargesAmount: extra,
		FinalAmount:        req.FinalAmount,
		ReceivedAmount:     req.ReceivedAmount,
		ChangeAmount:       change,
		ExtraCharges:       extraJSON,
		Notes:              optionalText(req.Notes),
		ProcessedBy:        optionalUUID(req.ProcessedBy),
	}

	return s.withNumberRetry(ctx, func(ctx context.Context, store PaymentStore) (*PaymentResult, error) {
		return s.snapshot(ctx, store, params, decimal.NewFromInt(1))
	})
}

// PaySplit records a payment against a bill split. The split row is locked;
// the amount may not exceed its remaining balance. Payment lines are the
// session's order lines prorated by paymentAmount / split total.
func (s *PaymentService) PaySplit(ctx context.Context, req PaySplitRequest) (*PaymentResult, error) {
	if !req.PaymentAmount.IsPositive() {
		return nil, ErrInvalidPaymentAmount
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = enum.PaymentMethodCash
	}
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	change, err := changeFor(req.PaymentAmount, req.ReceivedAmount)
	if err != nil {
		return nil, err
	}

	return s.withNumberRetry(ctx, func(ctx context.Context, store PaymentStore) (*PaymentResult, error) {
		split, err := store.GetBillSplitForUpdate(ctx, database.GetBillSplitParams{ID: req.BillSplitID, OwnerID: req.OwnerID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrBillSplitNotFound
			}
			return nil, fmt.Errorf("get bill split: %w", err)
		}

		remaining := split.TotalAmount.Sub(split.PaidAmount)
		if req.PaymentAmount.GreaterThan(remaining) {
			return nil, fmt.Errorf("%w: remaining %s", ErrExceedsRemaining, remaining.StringFixed(2))
		}

		ratio := req.PaymentAmount.Div(split.TotalAmount)
		result, err := s.snapshot(ctx, store, database.CreatePaymentParams{
			OwnerID:        req.OwnerID,
			SessionID:      split.SessionID,
			BillSplitID:    pgtype.UUID{Bytes: split.ID, Valid: true},
			PaymentMethod:  req.PaymentMethod,
			Subtotal:       req.PaymentAmount,
			FinalAmount:    req.PaymentAmount,
			ReceivedAmount: req.ReceivedAmount,
			ChangeAmount:   change,
			ExtraCharges:   []byte("[]"),
			Notes:          optionalText(req.Notes),
			ProcessedBy:    optionalUUID(req.ProcessedBy),
		}, ratio)
		if err != nil {
			return nil, err
		}

		paid := split.PaidAmount.Add(req.PaymentAmount)
		updated, err := store.UpdateBillSplitPayment(ctx, database.UpdateBillSplitPaymentParams{
			ID:         split.ID,
			PaidAmount: paid,
			Status:     SplitStatus(paid, split.TotalAmount),
		})
		if err != nil {
			return nil, fmt.Errorf("update bill split: %w", err)
		}
		result.BillSplit = &updated
		return result, nil
	})
}

// withNumberRetry runs fn in a transaction, retrying when the generated
// payment number collides.
func (s *PaymentService) withNumberRetry(ctx context.Context, fn func(context.Context, PaymentStore) (*PaymentResult, error)) (*PaymentResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		result, err := s.runTx(ctx, fn)
		if err == nil {
			metrics.PaymentsRecorded.WithLabelValues(result.Payment.PaymentMethod).Inc()
			return result, nil
		}
		if isUniqueViolation(err, "payments_owner_id_payment_number_key") {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *PaymentService) runTx(ctx context.Context, fn func(context.Context, PaymentStore) (*PaymentResult, error)) (*PaymentResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	result, err := fn(ctx, s.newStore(tx))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// snapshot locks the session, copies restaurant/customer/table fields and
// the order lines (scaled by ratio) into a new payment, and moves the
// session to BILLING.
func (s *PaymentService) snapshot(ctx context.Context, store PaymentStore, params database.CreatePaymentParams, ratio decimal.Decimal) (*PaymentResult, error) {
	session, err := store.GetSessionForUpdate(ctx, database.GetSessionParams{ID: params.SessionID, OwnerID: params.OwnerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Status == enum.SessionStatusCompleted {
		return nil, ErrSessionCompleted
	}

	owner, err := store.GetUserByID(ctx, params.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("get restaurant owner: %w", err)
	}
	params.RestaurantName = owner.RestaurantName
	params.RestaurantAddress = owner.RestaurantAddress
	params.RestaurantPhone = owner.RestaurantPhone
	params.CustomerName = session.CustomerName
	params.CustomerPhone = session.CustomerPhone

	if session.TableID.Valid {
		table, err := store.GetTable(ctx, database.GetTableParams{ID: session.TableID.Bytes, OwnerID: params.OwnerID})
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get table: %w", err)
		}
		if err == nil {
			params.TableNumber = pgtype.Int4{Int32: table.Number, Valid: true}
			params.TableName = table.Name
		}
	}

	lines, err := store.ListSessionOrderItems(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session order items: %w", err)
	}

	now := s.now()
	seq, err := store.NextSequenceValue(ctx, database.NextSequenceValueParams{
		OwnerID: params.OwnerID,
		Name:    "payment",
		Period:  numberPeriod(now),
	})
	if err != nil {
		return nil, fmt.Errorf("next payment sequence: %w", err)
	}
	params.PaymentNumber = fmt.Sprintf("PAY-%s-%04d", numberPeriod(now), seq)

	payment, err := store.CreatePayment(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	items := make([]database.PaymentItem, 0, len(lines))
	for _, line := range lines {
		qty := decimal.NewFromInt32(line.Quantity)
		lineTotal := line.Price.Mul(qty)
		item, err := store.CreatePaymentItem(ctx, database.CreatePaymentItemParams{
			PaymentID:           payment.ID,
			OrderItemID:         pgtype.UUID{Bytes: line.ID, Valid: true},
			MenuItemName:        line.MenuItemName,
			MenuItemDescription: line.MenuItemDescription,
			CategoryName:        optionalText(line.CategoryName),
			UnitPrice:           line.Price,
			Quantity:            qty.Mul(ratio).Round(2),
			TotalPrice:          lineTotal.Mul(ratio).Round(2),
			Selections:          line.Selections,
			Notes:               line.Notes,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment item: %w", err)
		}
		items = append(items, item)
	}

	if _, err := store.AdvanceSessionStatus(ctx, database.AdvanceSessionStatusParams{
		ID:           session.ID,
		OwnerID:      params.OwnerID,
		Status:       enum.SessionStatusBilling,
		FromStatuses: statusesBefore(enum.SessionStatusBilling),
	}); err != nil {
		return nil, fmt.Errorf("advance session: %w", err)
	}

	return &PaymentResult{Payment: payment, Items: items}, nil
}

// Correct applies a settlement correction. Snapshot fields and payment
// lines are never touched.
func (s *PaymentService) Correct(ctx context.Context, ownerID, paymentID uuid.UUID, patch PaymentPatch) (database.Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Payment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	updated, err := s.correct(ctx, s.newStore(tx), ownerID, paymentID, patch)
	if err != nil {
		return database.Payment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return database.Payment{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

func (s *PaymentService) correct(ctx context.Context, store PaymentStore, ownerID, paymentID uuid.UUID, patch PaymentPatch) (database.Payment, error) {
	current, err := store.GetPayment(ctx, database.GetPaymentParams{ID: paymentID, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Payment{}, ErrPaymentNotFound
		}
		return database.Payment{}, fmt.Errorf("get payment: %w", err)
	}

	params := database.UpdatePaymentParams{
		ID:                 current.ID,
		OwnerID:            ownerID,
		PaymentMethod:      current.PaymentMethod,
		DiscountAmount:     current.DiscountAmount,
		ExtraChargesAmount: current.ExtraChargesAmount,
		FinalAmount:        current.FinalAmount,
		ReceivedAmount:     current.ReceivedAmount,
		Notes:              current.Notes,
	}
	if patch.PaymentMethod != nil {
		if !enum.IsPaymentMethod(*patch.PaymentMethod) {
			return database.Payment{}, ErrInvalidPaymentMethod
		}
		params.PaymentMethod = *patch.PaymentMethod
	}
	if patch.DiscountAmount != nil {
		params.DiscountAmount = *patch.DiscountAmount
	}
	if patch.ExtraChargesAmount != nil {
		params.ExtraChargesAmount = *patch.ExtraChargesAmount
	}
	if patch.FinalAmount != nil {
		params.FinalAmount = *patch.FinalAmount
	}
	if patch.ReceivedAmount != nil {
		params.ReceivedAmount = *patch.ReceivedAmount
	}
	if patch.Notes != nil {
		params.Notes = *patch.Notes
	}

	if params.DiscountAmount.IsNegative() || params.ExtraChargesAmount.IsNegative() {
		return database.Payment{}, ErrInvalidAmount
	}
	if !params.FinalAmount.IsPositive() {
		return database.Payment{}, ErrInvalidFinalAmount
	}
	change, err := changeFor(params.FinalAmount, params.ReceivedAmount)
	if err != nil {
		return database.Payment{}, err
	}
	params.ChangeAmount = change

	updated, err := store.UpdatePayment(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Payment{}, ErrPaymentNotFound
		}
		return database.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	return updated, nil
}

// Receipt loads a payment and resolves the option ids stored on its lines
// against current selection data. Ids that no longer resolve are dropped.
func (s *PaymentService) Receipt(ctx context.Context, ownerID, paymentID uuid.UUID) (database.Payment, []ReceiptItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Payment{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	return receipt(ctx, s.newStore(tx), ownerID, paymentID)
}

func receipt(ctx context.Context, store PaymentStore, ownerID, paymentID uuid.UUID) (database.Payment, []ReceiptItem, error) {
	payment, err := store.GetPayment(ctx, database.GetPaymentParams{ID: paymentID, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Payment{}, nil, ErrPaymentNotFound
		}
		return database.Payment{}, nil, fmt.Errorf("get payment: %w", err)
	}
	items, err := store.ListPaymentItems(ctx, payment.ID)
	if err != nil {
		return database.Payment{}, nil, fmt.Errorf("list payment items: %w", err)
	}

	picks := make([][]SelectionChoice, len(items))
	var ids []uuid.UUID
	for i, it := range items {
		if err := json.Unmarshal(it.Selections, &picks[i]); err != nil {
			continue
		}
		for _, c := range picks[i] {
			for _, raw := range c.OptionIDs {
				if id, err := uuid.Parse(raw); err == nil {
					ids = append(ids, id)
				}
			}
		}
	}

	byID := map[uuid.UUID]database.OptionWithSelection{}
	if len(ids) > 0 {
		opts, err := store.GetOptionsByIDs(ctx, ids)
		if err != nil {
			return database.Payment{}, nil, fmt.Errorf("resolve options: %w", err)
		}
		for _, o := range opts {
			byID[o.OptionID] = o
		}
	}

	out := make([]ReceiptItem, len(items))
	for i, it := range items {
		out[i] = ReceiptItem{Item: it, Selections: []ReceiptSelection{}}
		index := map[string]int{}
		for _, c := range picks[i] {
			for _, raw := range c.OptionIDs {
				id, err := uuid.Parse(raw)
				if err != nil {
					continue
				}
				opt, ok := byID[id]
				if !ok {
					continue
				}
				j, ok := index[opt.SelectionName]
				if !ok {
					j = len(out[i].Selections)
					index[opt.SelectionName] = j
					out[i].Selections = append(out[i].Selections, ReceiptSelection{Name: opt.SelectionName})
				}
				out[i].Selections[j].Options = append(out[i].Selections[j].Options, opt.OptionName)
			}
		}
	}
	return payment, out, nil
}

// SplitStatus derives a bill split's status from its paid amount.
func SplitStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return enum.BillSplitStatusPaid
	case paid.IsPositive():
		return enum.BillSplitStatusPartialPaid
	default:
		return enum.BillSplitStatusPending
	}
}

func changeFor(final decimal.Decimal, received decimal.NullDecimal) (decimal.NullDecimal, error) {
	if !received.Valid {
		return decimal.NullDecimal{}, nil
	}
	if received.Decimal.LessThan(final) {
		return decimal.NullDecimal{}, ErrInsufficientReceived
	}
	return decimal.NullDecimal{Decimal: received.Decimal.Sub(final), Valid: true}, nil
}

func statusesBefore(target string) []string {
	all := []string{
		enum.SessionStatusSeated,
		enum.SessionStatusOrdering,
		enum.SessionStatusOrdered,
		enum.SessionStatusServing,
		enum.SessionStatusDining,
		enum.SessionStatusBilling,
		enum.SessionStatusCompleted,
	}
	var out []string
	for _, s := range all {
		if enum.SessionStatusBefore(s, target) {
			out = append(out, s)
		}
	}
	return out
}

func nonNilCharges(c []ExtraCharge) []ExtraCharge {
	if c == nil {
		return []ExtraCharge{}
	}
	return c
}

func optionalUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
