package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dinein-pos/api/internal/auth"
	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardStore defines the database methods needed by the kitchen and
// floor dashboard.
type DashboardStore interface {
	ListActiveOrders(ctx context.Context, ownerID uuid.UUID) ([]database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItem, error)
	CountOrdersByStatusSince(ctx context.Context, arg database.CountOrdersByStatusSinceParams) ([]database.OrderStatusCount, error)
	SumPaymentsSince(ctx context.Context, arg database.SumPaymentsSinceParams) ([]database.PaymentMethodSum, error)
	CountActiveSessions(ctx context.Context, ownerID uuid.UUID) (int64, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// DashboardHandler serves the live order board and the daily summary.
type DashboardHandler struct {
	orders OrderServicer
	store  DashboardStore
	events EventPublisher
	now    func() time.Time
}

func NewDashboardHandler(orders OrderServicer, store DashboardStore, events EventPublisher) *DashboardHandler {
	return &DashboardHandler{orders: orders, store: store, events: events, now: time.Now}
}

// RegisterRoutes registers dashboard endpoints. Expected to be mounted at
// /dashboard.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ActiveOrders)
	r.Patch("/orders", h.Transition)
	r.Get("/summary", h.Summary)
}

// --- Request / Response types ---

type transitionRequest struct {
	OrderID string `json:"orderId"`
	Action  string `json:"action"`
	UserID  string `json:"userId"`
}

type statusCountResponse struct {
	Status      string `json:"status"`
	OrderCount  int64  `json:"orderCount"`
	TotalAmount money  `json:"totalAmount"`
}

type methodSumResponse struct {
	PaymentMethod string `json:"paymentMethod"`
	PaymentCount  int64  `json:"paymentCount"`
	TotalAmount   money  `json:"totalAmount"`
}

type summaryResponse struct {
	Date           string                `json:"date"`
	Orders         []statusCountResponse `json:"orders"`
	Payments       []methodSumResponse   `json:"payments"`
	Revenue        money                 `json:"revenue"`
	ActiveSessions int64                 `json:"activeSessions"`
}

// --- Handlers ---

// ActiveOrders returns every order still moving through the kitchen with
// its items, oldest first.
func (h *DashboardHandler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	orders, err := h.store.ListActiveOrders(r.Context(), claims.OwnerID)
	if err != nil {
		writeInternal(w, "list active orders", err)
		return
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	if len(ids) > 0 {
		items, err := h.store.ListOrderItemsByOrders(r.Context(), ids)
		if err != nil {
			writeInternal(w, "list active order items", err)
			return
		}
		for _, it := range items {
			byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
		}
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		items := byOrder[o.ID]
		if items == nil {
			items = []database.OrderItem{}
		}
		resp[i] = toOrderResponse(o, items)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Transition applies a status action to an order. userId, when given, is
// recorded as the acting staff member instead of the caller.
func (h *DashboardHandler) Transition(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid orderId is required")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	actor := claims.UserID
	if req.UserID != "" {
		var valid bool
		actor, valid = h.resolveActor(w, r, claims.OwnerID, req.UserID)
		if !valid {
			return
		}
	}

	order, err := h.orders.Transition(r.Context(), claims.OwnerID, orderID, req.Action, actor)
	if err != nil {
		writeServiceError(w, "transition order", err)
		return
	}

	resp := toOrderResponse(order, nil)
	publish(h.events, claims.OwnerID, ws.EventOrderStatusChanged, resp)
	writeJSON(w, http.StatusOK, resp)
}

// resolveActor accepts a staff member or the owner of the caller's restaurant.
// Unknown users and users of another restaurant are both "invalid userId".
func (h *DashboardHandler) resolveActor(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId")
		return uuid.Nil, false
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusBadRequest, "invalid userId")
			return uuid.Nil, false
		}
		writeInternal(w, "get actor", err)
		return uuid.Nil, false
	}
	userOwner, err := auth.ResolveOwnerID(user.ID, user.Role, nullUUID(user.RestaurantOwnerID))
	if err != nil || userOwner != ownerID || !user.IsActive {
		writeError(w, http.StatusBadRequest, "invalid userId")
		return uuid.Nil, false
	}
	return user.ID, true
}

// Summary reports order counts by status and takings by payment method
// since local midnight of ?date= (YYYY-MM-DD, default today).
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	now := h.now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, now.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		since = t
	}

	counts, err := h.store.CountOrdersByStatusSince(r.Context(), database.CountOrdersByStatusSinceParams{OwnerID: claims.OwnerID, Since: since})
	if err != nil {
		writeInternal(w, "count orders by status", err)
		return
	}
	sums, err := h.store.SumPaymentsSince(r.Context(), database.SumPaymentsSinceParams{OwnerID: claims.OwnerID, Since: since})
	if err != nil {
		writeInternal(w, "sum payments", err)
		return
	}
	active, err := h.store.CountActiveSessions(r.Context(), claims.OwnerID)
	if err != nil {
		writeInternal(w, "count active sessions", err)
		return
	}

	resp := summaryResponse{
		Date:           since.Format("2006-01-02"),
		Orders:         make([]statusCountResponse, len(counts)),
		Payments:       make([]methodSumResponse, len(sums)),
		ActiveSessions: active,
	}
	for i, c := range counts {
		resp.Orders[i] = statusCountResponse{Status: c.Status, OrderCount: c.OrderCount, TotalAmount: toMoney(c.TotalAmount)}
	}
	revenue := decimal.Zero
	for i, s := range sums {
		resp.Payments[i] = methodSumResponse{PaymentMethod: s.PaymentMethod, PaymentCount: s.PaymentCount, TotalAmount: toMoney(s.TotalAmount)}
		revenue = revenue.Add(s.TotalAmount)
	}
	resp.Revenue = toMoney(revenue)
	writeJSON(w, http.StatusOK, resp)
}
