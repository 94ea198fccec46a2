package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context, ownerID uuid.UUID) ([]database.DiningTable, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	GetTableByNumber(ctx context.Context, arg database.GetTableByNumberParams) (database.DiningTable, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.DiningTable, error)
	CountTableReferences(ctx context.Context, tableID uuid.UUID) (int64, error)
	DeleteTable(ctx context.Context, arg database.DeleteTableParams) (uuid.UUID, error)
	ListSessions(ctx context.Context, arg database.ListSessionsParams) ([]database.Session, error)
}

// TableHandler handles dining table CRUD endpoints.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers table endpoints. Reads are open to all staff,
// writes need an admin.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type createTableRequest struct {
	Number    int32  `json:"number"`
	Name      string `json:"name"`
	Capacity  int32  `json:"capacity"`
	GridX     int32  `json:"gridX"`
	GridY     int32  `json:"gridY"`
	SortOrder int32  `json:"sortOrder"`
}

type updateTableRequest struct {
	Number    Optional[int32]  `json:"number"`
	Name      Optional[string] `json:"name"`
	Capacity  Optional[int32]  `json:"capacity"`
	IsActive  Optional[bool]   `json:"isActive"`
	GridX     Optional[int32]  `json:"gridX"`
	GridY     Optional[int32]  `json:"gridY"`
	SortOrder Optional[int32]  `json:"sortOrder"`
}

type tableResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Number    int32     `json:"number"`
	Name      *string   `json:"name"`
	Capacity  int32     `json:"capacity"`
	IsActive  bool      `json:"isActive"`
	GridX     int32     `json:"gridX"`
	GridY     int32     `json:"gridY"`
	SortOrder int32     `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// tableDetailResponse adds every active session at the table. Staff and QR
// sessions are listed side by side with their origin.
type tableDetailResponse struct {
	tableResponse
	ActiveSessions []sessionResponse `json:"activeSessions"`
}

func toTableResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Number:    t.Number,
		Name:      textPtr(t.Name),
		Capacity:  t.Capacity,
		IsActive:  t.IsActive,
		GridX:     t.GridX,
		GridY:     t.GridY,
		SortOrder: t.SortOrder,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// --- Handlers ---

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	tables, err := h.store.ListTables(r.Context(), claims.OwnerID)
	if err != nil {
		writeInternal(w, "list tables", err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a table together with its active sessions.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	tableID, ok := urlID(w, r, "id", "table")
	if !ok {
		return
	}

	table, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: tableID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		writeInternal(w, "get table", err)
		return
	}

	sessions, err := h.store.ListSessions(r.Context(), database.ListSessionsParams{
		OwnerID:  claims.OwnerID,
		IsActive: pgtype.Bool{Bool: true, Valid: true},
		TableID:  optUUID(table.ID),
	})
	if err != nil {
		writeInternal(w, "list table sessions", err)
		return
	}

	resp := tableDetailResponse{tableResponse: toTableResponse(table), ActiveSessions: make([]sessionResponse, len(sessions))}
	for i, s := range sessions {
		resp.ActiveSessions[i] = toSessionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req createTableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Number <= 0 {
		writeError(w, http.StatusBadRequest, "number must be > 0")
		return
	}
	if req.Capacity == 0 {
		req.Capacity = 4
	}
	if req.Capacity < 0 {
		writeError(w, http.StatusBadRequest, "capacity must be > 0")
		return
	}

	if !h.numberAvailable(w, r, claims.OwnerID, req.Number, uuid.Nil) {
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		OwnerID:   claims.OwnerID,
		Number:    req.Number,
		Name:      optText(req.Name),
		Capacity:  req.Capacity,
		GridX:     req.GridX,
		GridY:     req.GridY,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "table number already exists")
			return
		}
		writeInternal(w, "create table", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	tableID, ok := urlID(w, r, "id", "table")
	if !ok {
		return
	}

	var req updateTableRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: tableID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		writeInternal(w, "get table", err)
		return
	}

	params := database.UpdateTableParams{
		ID:        current.ID,
		OwnerID:   claims.OwnerID,
		Number:    current.Number,
		Name:      applyText(req.Name, current.Name),
		Capacity:  current.Capacity,
		IsActive:  current.IsActive,
		GridX:     current.GridX,
		GridY:     current.GridY,
		SortOrder: current.SortOrder,
	}
	if req.Number.Present() {
		if req.Number.Value <= 0 {
			writeError(w, http.StatusBadRequest, "number must be > 0")
			return
		}
		if req.Number.Value != current.Number && !h.numberAvailable(w, r, claims.OwnerID, req.Number.Value, current.ID) {
			return
		}
		params.Number = req.Number.Value
	}
	if req.Capacity.Present() {
		if req.Capacity.Value <= 0 {
			writeError(w, http.StatusBadRequest, "capacity must be > 0")
			return
		}
		params.Capacity = req.Capacity.Value
	}
	if req.IsActive.Present() {
		params.IsActive = req.IsActive.Value
	}
	if req.GridX.Present() {
		params.GridX = req.GridX.Value
	}
	if req.GridY.Present() {
		params.GridY = req.GridY.Value
	}
	if req.SortOrder.Present() {
		params.SortOrder = req.SortOrder.Value
	}

	table, err := h.store.UpdateTable(r.Context(), params)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "table number already exists")
			return
		}
		writeInternal(w, "update table", err)
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Delete removes a table that no order or active session references.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	tableID, ok := urlID(w, r, "id", "table")
	if !ok {
		return
	}

	if _, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: tableID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		writeInternal(w, "get table", err)
		return
	}

	refs, err := h.store.CountTableReferences(r.Context(), tableID)
	if err != nil {
		writeInternal(w, "count table references", err)
		return
	}
	if refs > 0 {
		writeError(w, http.StatusBadRequest, "table is referenced by orders or active sessions")
		return
	}

	if _, err := h.store.DeleteTable(r.Context(), database.DeleteTableParams{ID: tableID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, "table is referenced by orders or active sessions")
			return
		}
		writeInternal(w, "delete table", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// numberAvailable answers 400 when another table of the owner already uses
// number. self is excluded so an update may keep its own number.
func (h *TableHandler) numberAvailable(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, number int32, self uuid.UUID) bool {
	existing, err := h.store.GetTableByNumber(r.Context(), database.GetTableByNumberParams{OwnerID: ownerID, Number: number})
	if err == nil && existing.ID != self {
		writeError(w, http.StatusBadRequest, "table number already exists")
		return false
	}
	if err != nil && !isNoRows(err) {
		writeInternal(w, "lookup table by number", err)
		return false
	}
	return true
}
