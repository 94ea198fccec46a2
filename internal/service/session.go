package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the session service.
var (
	ErrInvalidPartySize     = errors.New("party size must be > 0")
	ErrInvalidSessionStatus = errors.New("invalid session status")
	ErrSessionCompleted     = errors.New("session is already completed")
	ErrSessionHasDependents = errors.New("session has orders or payments")
)

// SessionStore defines the DB methods the session service needs.
// Satisfied by *database.Queries.
type SessionStore interface {
	GetActiveTableByID(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	GetActiveQRSessionByTable(ctx context.Context, tableID uuid.UUID) (database.Session, error)
	GetSession(ctx context.Context, arg database.GetSessionParams) (database.Session, error)
	CreateSession(ctx context.Context, arg database.CreateSessionParams) (database.Session, error)
	CompleteSession(ctx context.Context, arg database.CompleteSessionParams) (database.Session, error)
	CountSessionDependents(ctx context.Context, sessionID uuid.UUID) (int64, error)
	DeleteSession(ctx context.Context, arg database.DeleteSessionParams) (uuid.UUID, error)
	ListSessionOrderItems(ctx context.Context, sessionID uuid.UUID) ([]database.SessionOrderItem, error)
	ListPaymentsBySession(ctx context.Context, arg database.ListPaymentsBySessionParams) ([]database.Payment, error)
}

// SeatRequest seats a party on behalf of staff.
type SeatRequest struct {
	OwnerID       uuid.UUID
	TableID       string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	PartySize     int32
	Status        string
	Notes         string
}

// CheckoutCategory groups a session's lines by menu category.
type CheckoutCategory struct {
	CategoryID   uuid.UUID
	CategoryName string
	Items        []database.SessionOrderItem
	Subtotal     decimal.Decimal
	ItemCount    int64
}

// CheckoutSummary is the read-only bill for a session.
type CheckoutSummary struct {
	Session         database.Session
	Categories      []CheckoutCategory
	Subtotal        decimal.Decimal
	ItemCount       int64
	Payments        []database.Payment
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
}

// SessionService handles session lifecycle logic.
type SessionService struct {
	store SessionStore
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{store: store}
}

// StartQRSession starts a customer session at a table, or joins the table's
// existing active QR session. The second return value reports a join.
func (s *SessionService) StartQRSession(ctx context.Context, tableID uuid.UUID, partySize int32, customerName string) (database.Session, bool, error) {
	if partySize <= 0 {
		partySize = 1
	}

	table, err := s.store.GetActiveTableByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Session{}, false, ErrTableNotFound
		}
		return database.Session{}, false, fmt.Errorf("get table: %w", err)
	}

	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		existing, err := s.store.GetActiveQRSessionByTable(ctx, table.ID)
		if err == nil {
			return existing, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Session{}, false, fmt.Errorf("get active qr session: %w", err)
		}

		session, err := s.store.CreateSession(ctx, database.CreateSessionParams{
			OwnerID:      table.OwnerID,
			Origin:       enum.SessionOriginQR,
			TableID:      pgtype.UUID{Bytes: table.ID, Valid: true},
			SessionToken: pgtype.Text{String: newSessionToken(), Valid: true},
			CustomerName: optionalText(customerName),
			PartySize:    partySize,
			Status:       enum.SessionStatusSeated,
		})
		if err == nil {
			return session, false, nil
		}
		// Another scan created the table's session first; join it.
		if !isUniqueViolation(err, "sessions_active_qr_table_key") {
			return database.Session{}, false, fmt.Errorf("create session: %w", err)
		}
	}
	return database.Session{}, false, fmt.Errorf("start qr session: table %s kept conflicting", table.ID)
}

// Seat creates a staff-originated session.
func (s *SessionService) Seat(ctx context.Context, req SeatRequest) (database.Session, error) {
	if req.PartySize == 0 {
		req.PartySize = 1
	}
	if req.PartySize < 0 {
		return database.Session{}, ErrInvalidPartySize
	}
	status := enum.SessionStatusSeated
	if req.Status != "" {
		if !enum.IsSessionStatus(req.Status) {
			return database.Session{}, ErrInvalidSessionStatus
		}
		status = req.Status
	}

	tableID := pgtype.UUID{}
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return database.Session{}, ErrInvalidTableID
		}
		if _, err := s.store.GetTable(ctx, database.GetTableParams{ID: tid, OwnerID: req.OwnerID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Session{}, ErrTableNotFound
			}
			return database.Session{}, fmt.Errorf("get table: %w", err)
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	session, err := s.store.CreateSession(ctx, database.CreateSessionParams{
		OwnerID:       req.OwnerID,
		Origin:        enum.SessionOriginStaff,
		TableID:       tableID,
		CustomerName:  optionalText(req.CustomerName),
		CustomerPhone: optionalText(req.CustomerPhone),
		CustomerEmail: optionalText(req.CustomerEmail),
		PartySize:     req.PartySize,
		Status:        status,
		Notes:         optionalText(req.Notes),
	})
	if err != nil {
		return database.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Summary aggregates non-cancelled order lines by category together with
// the payments already recorded on the session.
func (s *SessionService) Summary(ctx context.Context, ownerID, sessionID uuid.UUID) (*CheckoutSummary, error) {
	session, err := s.store.GetSession(ctx, database.GetSessionParams{ID: sessionID, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	lines, err := s.store.ListSessionOrderItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session order items: %w", err)
	}
	payments, err := s.store.ListPaymentsBySession(ctx, database.ListPaymentsBySessionParams{
		SessionID: sessionID,
		OwnerID:   ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	summary := &CheckoutSummary{
		Session:    session,
		Categories: []CheckoutCategory{},
		Payments:   payments,
	}
	index := make(map[uuid.UUID]int)
	for _, line := range lines {
		i, ok := index[line.CategoryID]
		if !ok {
			i = len(summary.Categories)
			index[line.CategoryID] = i
			summary.Categories = append(summary.Categories, CheckoutCategory{
				CategoryID:   line.CategoryID,
				CategoryName: line.CategoryName,
			})
		}
		lineTotal := line.Price.Mul(decimal.NewFromInt32(line.Quantity))
		cat := &summary.Categories[i]
		cat.Items = append(cat.Items, line)
		cat.Subtotal = cat.Subtotal.Add(lineTotal)
		cat.ItemCount += int64(line.Quantity)
		summary.Subtotal = summary.Subtotal.Add(lineTotal)
		summary.ItemCount += int64(line.Quantity)
	}
	for _, p := range payments {
		summary.PaidAmount = summary.PaidAmount.Add(p.FinalAmount)
	}
	summary.RemainingAmount = summary.Subtotal.Sub(summary.PaidAmount)
	if summary.RemainingAmount.IsNegative() {
		summary.RemainingAmount = decimal.Zero
	}
	return summary, nil
}

// Checkout completes the session and stamps its check-out time. There is no
// way back from COMPLETED.
func (s *SessionService) Checkout(ctx context.Context, ownerID, sessionID uuid.UUID) (database.Session, error) {
	session, err := s.store.CompleteSession(ctx, database.CompleteSessionParams{ID: sessionID, OwnerID: ownerID})
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Session{}, fmt.Errorf("complete session: %w", err)
	}
	if _, err := s.store.GetSession(ctx, database.GetSessionParams{ID: sessionID, OwnerID: ownerID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Session{}, ErrSessionNotFound
		}
		return database.Session{}, fmt.Errorf("get session: %w", err)
	}
	return database.Session{}, ErrSessionCompleted
}

// Delete removes a session that has no orders and no payments.
func (s *SessionService) Delete(ctx context.Context, ownerID, sessionID uuid.UUID) error {
	if _, err := s.store.GetSession(ctx, database.GetSessionParams{ID: sessionID, OwnerID: ownerID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session: %w", err)
	}
	n, err := s.store.CountSessionDependents(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("count session dependents: %w", err)
	}
	if n > 0 {
		return ErrSessionHasDependents
	}
	if _, err := s.store.DeleteSession(ctx, database.DeleteSessionParams{ID: sessionID, OwnerID: ownerID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func newSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
