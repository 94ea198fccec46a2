package handler

import (
	"context"
	"net/http"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/service"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// QRSessionStarter starts or joins a table's customer session.
// Satisfied by *service.SessionService.
type QRSessionStarter interface {
	StartQRSession(ctx context.Context, tableID uuid.UUID, partySize int32, customerName string) (database.Session, bool, error)
}

// PublicStore defines the database methods needed by the unauthenticated
// customer endpoints. Every lookup is keyed by session token.
type PublicStore interface {
	GetSessionByToken(ctx context.Context, token string) (database.Session, error)
	ListOrdersBySession(ctx context.Context, arg database.ListOrdersBySessionParams) ([]database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItem, error)
	ListCategories(ctx context.Context, ownerID uuid.UUID) ([]database.ListCategoriesRow, error)
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	ListSelectionsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.Selection, error)
	ListOptionsBySelection(ctx context.Context, selectionID uuid.UUID) ([]database.SelectionOption, error)
}

// PublicHandler serves the customer-facing QR ordering flow.
type PublicHandler struct {
	sessions QRSessionStarter
	orders   OrderServicer
	store    PublicStore
	events   EventPublisher
}

func NewPublicHandler(sessions QRSessionStarter, orders OrderServicer, store PublicStore, events EventPublisher) *PublicHandler {
	return &PublicHandler{sessions: sessions, orders: orders, store: store, events: events}
}

// RegisterRoutes registers customer endpoints. Expected to be mounted at
// /public.
func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Post("/tables/{tableId}/sessions", h.StartSession)
	r.Route("/sessions/{token}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/menu", h.Menu)
		r.Post("/orders", h.CreateOrder)
	})
}

// --- Request / Response types ---

type startSessionRequest struct {
	GuestCount   int32  `json:"guestCount"`
	CustomerName string `json:"customerName"`
}

type startSessionResponse struct {
	sessionResponse
	Joined bool `json:"joined"`
}

type publicSessionResponse struct {
	Session sessionResponse `json:"session"`
	Orders  []orderResponse `json:"orders"`
}

type menuCategoryResponse struct {
	categoryResponse
	Items []menuItemResponse `json:"items"`
}

// --- Handlers ---

// StartSession opens a QR session at the table, or joins the one already
// running there. Answers 201 when a session was created and 200 on a join.
func (h *PublicHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	tableID, ok := urlID(w, r, "tableId", "table")
	if !ok {
		return
	}

	var req startSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.GuestCount < 0 {
		writeError(w, http.StatusBadRequest, service.ErrInvalidPartySize.Error())
		return
	}

	session, joined, err := h.sessions.StartQRSession(r.Context(), tableID, req.GuestCount, req.CustomerName)
	if err != nil {
		writeServiceError(w, "start qr session", err)
		return
	}

	status := http.StatusCreated
	if joined {
		status = http.StatusOK
	} else {
		publish(h.events, session.OwnerID, ws.EventSessionUpdated, toSessionResponse(session))
	}
	writeJSON(w, status, startSessionResponse{sessionResponse: toSessionResponse(session), Joined: joined})
}

// GetSession returns the token's session together with its orders.
func (h *PublicHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromToken(w, r)
	if !ok {
		return
	}

	orders, err := loadSessionOrders(r.Context(), h.store, session.OwnerID, session.ID, true)
	if err != nil {
		writeInternal(w, "list session orders", err)
		return
	}

	resp := publicSessionResponse{Session: toSessionResponse(session), Orders: orders}
	writeJSON(w, http.StatusOK, resp)
}

// Menu returns the restaurant's active categories holding the items a
// customer can order right now, each with its available options.
func (h *PublicHandler) Menu(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromToken(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	categories, err := h.store.ListCategories(ctx, session.OwnerID)
	if err != nil {
		writeInternal(w, "list categories", err)
		return
	}
	items, err := h.store.ListMenuItems(ctx, database.ListMenuItemsParams{OwnerID: session.OwnerID, CategoryID: pgtype.UUID{}})
	if err != nil {
		writeInternal(w, "list menu items", err)
		return
	}

	byCategory := make(map[uuid.UUID][]menuItemResponse)
	for _, m := range items {
		if !m.IsActive || !m.IsAvailable {
			continue
		}
		item := toMenuItemResponse(m)
		item.Selections, err = loadSelections(ctx, h.store, m.ID, true)
		if err != nil {
			writeInternal(w, "load selections", err)
			return
		}
		byCategory[m.CategoryID] = append(byCategory[m.CategoryID], item)
	}

	resp := []menuCategoryResponse{}
	for _, c := range categories {
		if !c.IsActive || len(byCategory[c.ID]) == 0 {
			continue
		}
		resp = append(resp, menuCategoryResponse{categoryResponse: toCategoryResponse(c.Category), Items: byCategory[c.ID]})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateOrder places a customer order into the token's session. Pricing and
// validation follow the staff order path; no waiter is recorded.
func (h *PublicHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromToken(w, r)
	if !ok {
		return
	}
	if !session.IsActive {
		writeError(w, http.StatusBadRequest, service.ErrSessionClosed.Error())
		return
	}

	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SessionID = session.ID.String()
	req.TableID = ""
	if req.CustomerName == "" && session.CustomerName.Valid {
		req.CustomerName = session.CustomerName.String
	}

	res, err := h.orders.CreateOrder(r.Context(), req.toService(session.OwnerID, uuid.Nil))
	if err != nil {
		writeServiceError(w, "create public order", err)
		return
	}

	resp := toOrderResponse(res.Order, res.Items)
	publish(h.events, session.OwnerID, ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *PublicHandler) sessionFromToken(w http.ResponseWriter, r *http.Request) (database.Session, bool) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusNotFound, "session not found")
		return database.Session{}, false
	}
	session, err := h.store.GetSessionByToken(r.Context(), token)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "session not found")
			return database.Session{}, false
		}
		writeInternal(w, "get session by token", err)
		return database.Session{}, false
	}
	return session, true
}
