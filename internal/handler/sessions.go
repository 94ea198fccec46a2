package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/dinein-pos/api/internal/qr"
	"github.com/dinein-pos/api/internal/service"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// SessionServicer defines the service methods needed by session handlers.
// Satisfied by *service.SessionService.
type SessionServicer interface {
	Seat(ctx context.Context, req service.SeatRequest) (database.Session, error)
	Summary(ctx context.Context, ownerID, sessionID uuid.UUID) (*service.CheckoutSummary, error)
	Checkout(ctx context.Context, ownerID, sessionID uuid.UUID) (database.Session, error)
	Delete(ctx context.Context, ownerID, sessionID uuid.UUID) error
}

// SessionStore defines the database methods needed by session handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SessionStore interface {
	ListSessions(ctx context.Context, arg database.ListSessionsParams) ([]database.Session, error)
	GetSession(ctx context.Context, arg database.GetSessionParams) (database.Session, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	UpdateSession(ctx context.Context, arg database.UpdateSessionParams) (database.Session, error)
	ListPaymentsBySession(ctx context.Context, arg database.ListPaymentsBySessionParams) ([]database.Payment, error)
	ListBillSplitsBySession(ctx context.Context, arg database.ListBillSplitsBySessionParams) ([]database.BillSplit, error)
	sessionOrderReader
}

// SessionHandler handles staff-side session endpoints: seating, editing,
// checkout and session payments.
type SessionHandler struct {
	svc      SessionServicer
	payments PaymentServicer
	store    SessionStore
	qr       qr.Generator
	events   EventPublisher
}

func NewSessionHandler(svc SessionServicer, payments PaymentServicer, store SessionStore, gen qr.Generator, events EventPublisher) *SessionHandler {
	return &SessionHandler{svc: svc, payments: payments, store: store, qr: gen, events: events}
}

// RegisterRoutes registers session endpoints. Expected to be mounted at
// /sessions.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Seat)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/qr.png", h.QR)
		r.Get("/checkout", h.Summary)
		r.Post("/checkout", h.Checkout)
		r.Get("/payments", h.ListPayments)
		r.Post("/payments", h.CreatePayment)
		r.Get("/bill-splits", h.ListBillSplits)
	})
}

// --- Request / Response types ---

type seatRequest struct {
	TableID       string `json:"tableId"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	CustomerEmail string `json:"customerEmail"`
	PartySize     int32  `json:"partySize"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

type updateSessionRequest struct {
	TableID       Optional[string] `json:"tableId"`
	CustomerName  Optional[string] `json:"customerName"`
	CustomerPhone Optional[string] `json:"customerPhone"`
	CustomerEmail Optional[string] `json:"customerEmail"`
	PartySize     Optional[int32]  `json:"partySize"`
	Status        Optional[string] `json:"status"`
	Notes         Optional[string] `json:"notes"`
}

type sessionResponse struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"ownerId"`
	Origin        string     `json:"origin"`
	TableID       *uuid.UUID `json:"tableId"`
	SessionToken  *string    `json:"sessionToken,omitempty"`
	CustomerName  *string    `json:"customerName"`
	CustomerPhone *string    `json:"customerPhone"`
	CustomerEmail *string    `json:"customerEmail"`
	PartySize     int32      `json:"partySize"`
	Status        string     `json:"status"`
	IsActive      bool       `json:"isActive"`
	Notes         *string    `json:"notes"`
	CheckInTime   time.Time  `json:"checkInTime"`
	CheckOutTime  *time.Time `json:"checkOutTime"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type checkoutLineResponse struct {
	OrderItemID  uuid.UUID `json:"orderItemId"`
	OrderID      uuid.UUID `json:"orderId"`
	OrderNumber  string    `json:"orderNumber"`
	MenuItemID   uuid.UUID `json:"menuItemId"`
	MenuItemName string    `json:"menuItemName"`
	Quantity     int32     `json:"quantity"`
	Price        money     `json:"price"`
	Total        money     `json:"total"`
	Notes        *string   `json:"notes"`
}

type checkoutCategoryResponse struct {
	CategoryID   uuid.UUID              `json:"categoryId"`
	CategoryName string                 `json:"categoryName"`
	Items        []checkoutLineResponse `json:"items"`
	Subtotal     money                  `json:"subtotal"`
	ItemCount    int64                  `json:"itemCount"`
}

type checkoutSummaryResponse struct {
	Session         sessionResponse            `json:"session"`
	Categories      []checkoutCategoryResponse `json:"categories"`
	Subtotal        money                      `json:"subtotal"`
	ItemCount       int64                      `json:"itemCount"`
	Payments        []paymentResponse          `json:"payments"`
	PaidAmount      money                      `json:"paidAmount"`
	RemainingAmount money                      `json:"remainingAmount"`
}

func toSessionResponse(s database.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		OwnerID:       s.OwnerID,
		Origin:        s.Origin,
		TableID:       uuidPtr(s.TableID),
		SessionToken:  textPtr(s.SessionToken),
		CustomerName:  textPtr(s.CustomerName),
		CustomerPhone: textPtr(s.CustomerPhone),
		CustomerEmail: textPtr(s.CustomerEmail),
		PartySize:     s.PartySize,
		Status:        s.Status,
		IsActive:      s.IsActive,
		Notes:         textPtr(s.Notes),
		CheckInTime:   s.CheckInTime,
		CheckOutTime:  timePtr(s.CheckOutTime),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toCheckoutSummaryResponse(sum *service.CheckoutSummary) checkoutSummaryResponse {
	resp := checkoutSummaryResponse{
		Session:         toSessionResponse(sum.Session),
		Categories:      make([]checkoutCategoryResponse, len(sum.Categories)),
		Subtotal:        toMoney(sum.Subtotal),
		ItemCount:       sum.ItemCount,
		Payments:        make([]paymentResponse, len(sum.Payments)),
		PaidAmount:      toMoney(sum.PaidAmount),
		RemainingAmount: toMoney(sum.RemainingAmount),
	}
	for i, c := range sum.Categories {
		cat := checkoutCategoryResponse{
			CategoryID:   c.CategoryID,
			CategoryName: c.CategoryName,
			Items:        make([]checkoutLineResponse, len(c.Items)),
			Subtotal:     toMoney(c.Subtotal),
			ItemCount:    c.ItemCount,
		}
		for j, it := range c.Items {
			cat.Items[j] = checkoutLineResponse{
				OrderItemID:  it.ID,
				OrderID:      it.OrderID,
				OrderNumber:  it.OrderNumber,
				MenuItemID:   it.MenuItemID,
				MenuItemName: it.MenuItemName,
				Quantity:     it.Quantity,
				Price:        toMoney(it.Price),
				Total:        toMoney(it.Price.Mul(decimal.NewFromInt32(it.Quantity))),
				Notes:        textPtr(it.Notes),
			}
		}
		resp.Categories[i] = cat
	}
	for i, p := range sum.Payments {
		resp.Payments[i] = toPaymentResponse(p, nil)
	}
	return resp
}

// --- Handlers ---

// List returns sessions filtered by ?status=, ?origin= and ?active=.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := database.ListSessionsParams{OwnerID: claims.OwnerID}
	if v := q.Get("status"); v != "" {
		if !enum.IsSessionStatus(v) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		params.Status = pgtype.Text{String: v, Valid: true}
	}
	if v := strings.ToUpper(q.Get("origin")); v != "" {
		if v != enum.SessionOriginStaff && v != enum.SessionOriginQR {
			writeError(w, http.StatusBadRequest, "origin must be STAFF or QR")
			return
		}
		params.Origin = pgtype.Text{String: v, Valid: true}
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		params.IsActive = pgtype.Bool{Bool: active, Valid: true}
	}
	if v := q.Get("tableId"); v != "" {
		tableID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tableId")
			return
		}
		params.TableID = optUUID(tableID)
	}

	sessions, err := h.store.ListSessions(r.Context(), params)
	if err != nil {
		writeInternal(w, "list sessions", err)
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toSessionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Seat opens a staff session, optionally at a table.
func (h *SessionHandler) Seat(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req seatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.Seat(r.Context(), service.SeatRequest{
		OwnerID:       claims.OwnerID,
		TableID:       req.TableID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		PartySize:     req.PartySize,
		Status:        req.Status,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, "seat session", err)
		return
	}

	resp := toSessionResponse(session)
	publish(h.events, claims.OwnerID, ws.EventSessionUpdated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// Update edits a session. Any status of the flow may be set directly;
// absent fields keep their value and null clears nullable ones.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, ok := h.session(w, r)
	if !ok {
		return
	}

	var req updateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := database.UpdateSessionParams{
		ID:            current.ID,
		OwnerID:       current.OwnerID,
		TableID:       current.TableID,
		CustomerName:  applyText(req.CustomerName, current.CustomerName),
		CustomerPhone: applyText(req.CustomerPhone, current.CustomerPhone),
		CustomerEmail: applyText(req.CustomerEmail, current.CustomerEmail),
		PartySize:     current.PartySize,
		Status:        current.Status,
		Notes:         applyText(req.Notes, current.Notes),
	}
	if req.TableID.Set {
		if req.TableID.Null || req.TableID.Value == "" {
			params.TableID = pgtype.UUID{}
		} else {
			tableID, err := uuid.Parse(req.TableID.Value)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid tableId")
				return
			}
			if _, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: tableID, OwnerID: current.OwnerID}); err != nil {
				if isNoRows(err) {
					writeError(w, http.StatusBadRequest, "table not found")
					return
				}
				writeInternal(w, "get table", err)
				return
			}
			params.TableID = optUUID(tableID)
		}
	}
	if req.PartySize.Present() {
		if req.PartySize.Value <= 0 {
			writeError(w, http.StatusBadRequest, service.ErrInvalidPartySize.Error())
			return
		}
		params.PartySize = req.PartySize.Value
	}
	if req.Status.Present() {
		if !enum.IsSessionStatus(req.Status.Value) {
			writeError(w, http.StatusBadRequest, service.ErrInvalidSessionStatus.Error())
			return
		}
		params.Status = req.Status.Value
	}

	session, err := h.store.UpdateSession(r.Context(), params)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "table already has an active QR session")
			return
		}
		writeInternal(w, "update session", err)
		return
	}

	resp := toSessionResponse(session)
	publish(h.events, session.OwnerID, ws.EventSessionUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes a session without orders or payments.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	sessionID, ok := urlID(w, r, "id", "session")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), claims.OwnerID, sessionID); err != nil {
		writeServiceError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QR renders a code linking straight to the session's customer page.
func (h *SessionHandler) QR(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if !session.SessionToken.Valid {
		writeError(w, http.StatusBadRequest, "session has no customer token")
		return
	}

	png, err := h.qr.SessionPNG(session.SessionToken.String)
	if err != nil {
		writeInternal(w, "render session qr", err)
		return
	}
	writePNG(w, png)
}

// Summary returns the read-only bill grouped by category.
func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	sessionID, ok := urlID(w, r, "id", "session")
	if !ok {
		return
	}

	sum, err := h.svc.Summary(r.Context(), claims.OwnerID, sessionID)
	if err != nil {
		writeServiceError(w, "session summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckoutSummaryResponse(sum))
}

// Checkout completes the session.
func (h *SessionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	sessionID, ok := urlID(w, r, "id", "session")
	if !ok {
		return
	}

	session, err := h.svc.Checkout(r.Context(), claims.OwnerID, sessionID)
	if err != nil {
		writeServiceError(w, "checkout session", err)
		return
	}

	resp := toSessionResponse(session)
	publish(h.events, claims.OwnerID, ws.EventSessionUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	payments, err := h.store.ListPaymentsBySession(r.Context(), database.ListPaymentsBySessionParams{SessionID: session.ID, OwnerID: session.OwnerID})
	if err != nil {
		writeInternal(w, "list session payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreatePayment snapshots the session's current lines into a payment. The
// session moves to BILLING but stays open until checkout.
func (h *SessionHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	sessionID, ok := urlID(w, r, "id", "session")
	if !ok {
		return
	}

	var req createPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.payments.CreateSessionPayment(r.Context(), service.CreatePaymentRequest{
		OwnerID:        claims.OwnerID,
		SessionID:      sessionID,
		ProcessedBy:    claims.UserID,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    req.TotalAmount,
		ExtraCharges:   req.ExtraCharges,
		DiscountAmount: req.DiscountAmount,
		FinalAmount:    req.FinalAmount,
		ReceivedAmount: req.ReceivedAmount,
		Notes:          req.Notes,
	})
	if err != nil {
		writeServiceError(w, "create payment", err)
		return
	}

	resp := toPaymentCreatedResponse(res)
	publish(h.events, claims.OwnerID, ws.EventPaymentRecorded, resp.paymentResponse)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandler) ListBillSplits(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	splits, err := h.store.ListBillSplitsBySession(r.Context(), database.ListBillSplitsBySessionParams{SessionID: session.ID, OwnerID: session.OwnerID})
	if err != nil {
		writeInternal(w, "list bill splits", err)
		return
	}

	orders := []orderResponse{}
	if len(splits) > 0 {
		orders, err = loadSessionOrders(r.Context(), h.store, session.OwnerID, session.ID, false)
		if err != nil {
			writeInternal(w, "list bill split orders", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toBillSplitDetails(splits, orders))
}

// session loads the {id} session of the caller's owner.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (database.Session, bool) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return database.Session{}, false
	}
	sessionID, ok := urlID(w, r, "id", "session")
	if !ok {
		return database.Session{}, false
	}

	session, err := h.store.GetSession(r.Context(), database.GetSessionParams{ID: sessionID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "session not found")
			return database.Session{}, false
		}
		writeInternal(w, "get session", err)
		return database.Session{}, false
	}
	return session, true
}
