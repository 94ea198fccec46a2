package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/dinein-pos/api/internal/service"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	ModifyOrder(ctx context.Context, req service.ModifyOrderRequest) (*service.OrderResult, error)
	AddItem(ctx context.Context, ownerID, orderID uuid.UUID, in service.OrderItemInput) (*service.OrderResult, error)
	UpdateItem(ctx context.Context, ownerID, orderID, itemID uuid.UUID, patch service.OrderItemPatch) (*service.OrderResult, error)
	DeleteItem(ctx context.Context, ownerID, orderID, itemID uuid.UUID) (*service.OrderResult, error)
	Transition(ctx context.Context, ownerID, orderID uuid.UUID, action string, actorID uuid.UUID) (database.Order, error)
	Cancel(ctx context.Context, ownerID, orderID uuid.UUID) (database.Order, error)
	DeleteOrder(ctx context.Context, ownerID, orderID uuid.UUID) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	events EventPublisher
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, events EventPublisher) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, events: events}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Modify)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/items", h.AddItem)
	r.Put("/{id}/items/{itemId}", h.UpdateItem)
	r.Delete("/{id}/items/{itemId}", h.DeleteItem)
}

// --- Request / Response types ---

type orderItemRequest struct {
	ID         string                    `json:"id"`
	MenuItemID string                    `json:"menuItemId"`
	Quantity   int32                     `json:"quantity"`
	Price      decimal.NullDecimal       `json:"price"`
	Notes      *string                   `json:"notes"`
	Selections []service.SelectionChoice `json:"selections"`
}

type createOrderRequest struct {
	SessionID    string              `json:"sessionId"`
	TableID      string              `json:"tableId"`
	CustomerName string              `json:"customerName"`
	Notes        string              `json:"notes"`
	TotalAmount  decimal.NullDecimal `json:"totalAmount"`
	Items        []orderItemRequest  `json:"items"`
}

type modifyOrderRequest struct {
	Items []orderItemRequest `json:"items"`
	Notes *string            `json:"notes"`
}

type updateOrderItemRequest struct {
	MenuItemID *string                    `json:"menuItemId"`
	Quantity   *int32                     `json:"quantity"`
	Price      decimal.NullDecimal        `json:"price"`
	Notes      *string                    `json:"notes"`
	Selections *[]service.SelectionChoice `json:"selections"`
}

type orderItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"orderId"`
	MenuItemID uuid.UUID       `json:"menuItemId"`
	Quantity   int32           `json:"quantity"`
	Price      money           `json:"price"`
	Subtotal   money           `json:"subtotal"`
	Selections json.RawMessage `json:"selections"`
	Notes      *string         `json:"notes"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	OwnerID      uuid.UUID           `json:"ownerId"`
	OrderNumber  string              `json:"orderNumber"`
	SessionID    *uuid.UUID          `json:"sessionId"`
	TableID      *uuid.UUID          `json:"tableId"`
	Status       string              `json:"status"`
	TotalAmount  money               `json:"totalAmount"`
	Notes        *string             `json:"notes"`
	CustomerName *string             `json:"customerName"`
	WaiterID     *uuid.UUID          `json:"waiterId"`
	CookID       *uuid.UUID          `json:"cookId"`
	ServedBy     *uuid.UUID          `json:"servedBy"`
	PreparingAt  *time.Time          `json:"preparingAt"`
	ReadyAt      *time.Time          `json:"readyAt"`
	ServedAt     *time.Time          `json:"servedAt"`
	Items        []orderItemResponse `json:"items,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:         it.ID,
		OrderID:    it.OrderID,
		MenuItemID: it.MenuItemID,
		Quantity:   it.Quantity,
		Price:      toMoney(it.Price),
		Subtotal:   toMoney(it.Price.Mul(decimal.NewFromInt32(it.Quantity))),
		Selections: rawJSON(it.Selections),
		Notes:      textPtr(it.Notes),
		CreatedAt:  it.CreatedAt,
	}
}

// sessionOrderReader loads a session's orders and their items.
type sessionOrderReader interface {
	ListOrdersBySession(ctx context.Context, arg database.ListOrdersBySessionParams) ([]database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItem, error)
}

// loadSessionOrders returns a session's orders with their items, fetched in
// one batched item query. Cancelled orders are skipped unless withCancelled.
func loadSessionOrders(ctx context.Context, store sessionOrderReader, ownerID, sessionID uuid.UUID, withCancelled bool) ([]orderResponse, error) {
	all, err := store.ListOrdersBySession(ctx, database.ListOrdersBySessionParams{SessionID: sessionID, OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	orders := make([]database.Order, 0, len(all))
	ids := make([]uuid.UUID, 0, len(all))
	for _, o := range all {
		if !withCancelled && o.Status == enum.OrderStatusCancelled {
			continue
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}

	byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	if len(ids) > 0 {
		items, err := store.ListOrderItemsByOrders(ctx, ids)
		if err != nil {
			return nil, err
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
	return resp, nil
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		OwnerID:      o.OwnerID,
		OrderNumber:  o.OrderNumber,
		SessionID:    uuidPtr(o.SessionID),
		TableID:      uuidPtr(o.TableID),
		Status:       o.Status,
		TotalAmount:  toMoney(o.TotalAmount),
		Notes:        textPtr(o.Notes),
		CustomerName: textPtr(o.CustomerName),
		WaiterID:     uuidPtr(o.WaiterID),
		CookID:       uuidPtr(o.CookID),
		ServedBy:     uuidPtr(o.ServedBy),
		PreparingAt:  timePtr(o.PreparingAt),
		ReadyAt:      timePtr(o.ReadyAt),
		ServedAt:     timePtr(o.ServedAt),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = toOrderItemResponse(it)
		}
	}
	return resp
}

func toItemInputs(in []orderItemRequest) []service.OrderItemInput {
	out := make([]service.OrderItemInput, len(in))
	for i, it := range in {
		out[i] = service.OrderItemInput{
			ID:         it.ID,
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Price:      it.Price,
			Notes:      it.Notes,
			Selections: it.Selections,
		}
	}
	return out
}

func (req createOrderRequest) toService(ownerID, waiterID uuid.UUID) service.CreateOrderRequest {
	return service.CreateOrderRequest{
		OwnerID:      ownerID,
		WaiterID:     waiterID,
		SessionID:    req.SessionID,
		TableID:      req.TableID,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		TotalAmount:  req.TotalAmount,
		Items:        toItemInputs(req.Items),
	}
}

// --- Handlers ---

// List returns orders filtered by ?status= and ?sessionId=, paginated with
// ?limit= and ?offset=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	params := database.ListOrdersParams{OwnerID: claims.OwnerID, Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("status"); v != "" {
		if !enum.IsOrderStatus(v) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		params.Status = pgtype.Text{String: v, Valid: true}
	}
	if v := r.URL.Query().Get("sessionId"); v != "" {
		sessionID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid sessionId")
			return
		}
		params.SessionID = optUUID(sessionID)
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternal(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create places a staff order. Line prices are recomputed from the menu.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.CreateOrder(r.Context(), req.toService(claims.OwnerID, claims.UserID))
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	resp := toOrderResponse(res.Order, res.Items)
	publish(h.events, claims.OwnerID, ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns an order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeInternal(w, "get order", err)
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Modify replaces the item list of a PENDING or CONFIRMED order.
func (h *OrderHandler) Modify(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	var req modifyOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.ModifyOrder(r.Context(), service.ModifyOrderRequest{
		OwnerID: claims.OwnerID,
		OrderID: orderID,
		Items:   toItemInputs(req.Items),
		Notes:   req.Notes,
	})
	h.respondUpdated(w, claims.OwnerID, "modify order", res, err)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), claims.OwnerID, orderID); err != nil {
		writeServiceError(w, "delete order", err)
		return
	}

	publish(h.events, claims.OwnerID, ws.EventOrderDeleted, map[string]uuid.UUID{"id": orderID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.svc.Cancel(r.Context(), claims.OwnerID, orderID)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	resp := toOrderResponse(order, nil)
	publish(h.events, claims.OwnerID, ws.EventOrderStatusChanged, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	var req orderItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.AddItem(r.Context(), claims.OwnerID, orderID, toItemInputs([]orderItemRequest{req})[0])
	h.respondUpdated(w, claims.OwnerID, "add order item", res, err)
}

func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "itemId", "order item")
	if !ok {
		return
	}

	var req updateOrderItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.UpdateItem(r.Context(), claims.OwnerID, orderID, itemID, service.OrderItemPatch{
		MenuItemID: req.MenuItemID,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Notes:      req.Notes,
		Selections: req.Selections,
	})
	h.respondUpdated(w, claims.OwnerID, "update order item", res, err)
}

func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "itemId", "order item")
	if !ok {
		return
	}

	res, err := h.svc.DeleteItem(r.Context(), claims.OwnerID, orderID, itemID)
	h.respondUpdated(w, claims.OwnerID, "delete order item", res, err)
}

// respondUpdated writes the order after an item-level change and notifies
// the owner's screens.
func (h *OrderHandler) respondUpdated(w http.ResponseWriter, ownerID uuid.UUID, op string, res *service.OrderResult, err error) {
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	resp := toOrderResponse(res.Order, res.Items)
	publish(h.events, ownerID, ws.EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}
