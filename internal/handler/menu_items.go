package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuItemStore defines the database methods needed by menu item handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuItemStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	GetCategory(ctx context.Context, arg database.GetCategoryParams) (database.Category, error)
	GetDepartment(ctx context.Context, arg database.GetDepartmentParams) (database.Department, error)
	GetNextMenuItemSortOrder(ctx context.Context, arg database.GetNextMenuItemSortOrderParams) (int32, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	CountOrderItemsByMenuItem(ctx context.Context, menuItemID uuid.UUID) (int64, error)
	DeleteMenuItem(ctx context.Context, arg database.DeleteMenuItemParams) (uuid.UUID, error)
	ListSelectionsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.Selection, error)
	ListOptionsBySelection(ctx context.Context, selectionID uuid.UUID) ([]database.SelectionOption, error)
}

// MenuItemHandler handles menu item CRUD endpoints.
type MenuItemHandler struct {
	store MenuItemStore
}

// NewMenuItemHandler creates a new MenuItemHandler.
func NewMenuItemHandler(store MenuItemStore) *MenuItemHandler {
	return &MenuItemHandler{store: store}
}

// RegisterRoutes registers menu item endpoints. Expected to be mounted at
// /menu-items.
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
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

type createMenuItemRequest struct {
	CategoryID   string          `json:"categoryId"`
	DepartmentID string          `json:"departmentId"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImagePath    string          `json:"imagePath"`
	IsAvailable  *bool           `json:"isAvailable"`
	SortOrder    *int32          `json:"sortOrder"`
}

type updateMenuItemRequest struct {
	CategoryID   Optional[string]          `json:"categoryId"`
	DepartmentID Optional[string]          `json:"departmentId"`
	Name         Optional[string]          `json:"name"`
	Description  Optional[string]          `json:"description"`
	Price        Optional[decimal.Decimal] `json:"price"`
	ImagePath    Optional[string]          `json:"imagePath"`
	IsActive     Optional[bool]            `json:"isActive"`
	IsAvailable  Optional[bool]            `json:"isAvailable"`
	SortOrder    Optional[int32]           `json:"sortOrder"`
}

type menuItemResponse struct {
	ID           uuid.UUID           `json:"id"`
	OwnerID      uuid.UUID           `json:"ownerId"`
	CategoryID   uuid.UUID           `json:"categoryId"`
	DepartmentID *uuid.UUID          `json:"departmentId"`
	Name         string              `json:"name"`
	Description  *string             `json:"description"`
	Price        money               `json:"price"`
	ImagePath    *string             `json:"imagePath"`
	IsActive     bool                `json:"isActive"`
	IsAvailable  bool                `json:"isAvailable"`
	SortOrder    int32               `json:"sortOrder"`
	Selections   []selectionResponse `json:"selections,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		CategoryID:   m.CategoryID,
		DepartmentID: uuidPtr(m.DepartmentID),
		Name:         m.Name,
		Description:  textPtr(m.Description),
		Price:        toMoney(m.Price),
		ImagePath:    textPtr(m.ImagePath),
		IsActive:     m.IsActive,
		IsAvailable:  m.IsAvailable,
		SortOrder:    m.SortOrder,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// --- Handlers ---

// List returns the owner's menu items, optionally filtered by ?categoryId=.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	params := database.ListMenuItemsParams{OwnerID: claims.OwnerID}
	if v := r.URL.Query().Get("categoryId"); v != "" {
		catID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid categoryId")
			return
		}
		params.CategoryID = optUUID(catID)
	}

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		writeInternal(w, "list menu items", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one menu item with its selections and options.
func (h *MenuItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "id", "menu item")
	if !ok {
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		writeInternal(w, "get menu item", err)
		return
	}

	selections, err := loadSelections(r.Context(), h.store, item.ID, false)
	if err != nil {
		writeInternal(w, "list menu item selections", err)
		return
	}

	resp := toMenuItemResponse(item)
	resp.Selections = selections
	writeJSON(w, http.StatusOK, resp)
}

func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req createMenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !req.Price.IsPositive() {
		writeError(w, http.StatusBadRequest, "price must be > 0")
		return
	}

	catID, ok := h.ownedCategory(w, r, claims.OwnerID, req.CategoryID)
	if !ok {
		return
	}
	deptID, ok := h.ownedDepartment(w, r, claims.OwnerID, req.DepartmentID)
	if !ok {
		return
	}

	var sortOrder int32
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		next, err := h.store.GetNextMenuItemSortOrder(r.Context(), database.GetNextMenuItemSortOrderParams{OwnerID: claims.OwnerID, CategoryID: catID})
		if err != nil {
			writeInternal(w, "next menu item sort order", err)
			return
		}
		sortOrder = next
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		OwnerID:      claims.OwnerID,
		CategoryID:   catID,
		DepartmentID: deptID,
		Name:         req.Name,
		Description:  optText(req.Description),
		Price:        req.Price.Round(2),
		ImagePath:    optText(req.ImagePath),
		IsAvailable:  available,
		SortOrder:    sortOrder,
	})
	if err != nil {
		writeInternal(w, "create menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update changes the fields present in the body. An explicit null
// departmentId detaches the item from its department.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "id", "menu item")
	if !ok {
		return
	}

	var req updateMenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		writeInternal(w, "get menu item", err)
		return
	}

	params := database.UpdateMenuItemParams{
		ID:           current.ID,
		OwnerID:      claims.OwnerID,
		CategoryID:   current.CategoryID,
		DepartmentID: current.DepartmentID,
		Name:         current.Name,
		Description:  applyText(req.Description, current.Description),
		Price:        current.Price,
		ImagePath:    applyText(req.ImagePath, current.ImagePath),
		IsActive:     current.IsActive,
		IsAvailable:  current.IsAvailable,
		SortOrder:    current.SortOrder,
	}
	if req.Name.Set {
		name := strings.TrimSpace(req.Name.Value)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		params.Name = name
	}
	if req.Price.Set {
		if !req.Price.Value.IsPositive() {
			writeError(w, http.StatusBadRequest, "price must be > 0")
			return
		}
		params.Price = req.Price.Value.Round(2)
	}
	if req.CategoryID.Set {
		catID, ok := h.ownedCategory(w, r, claims.OwnerID, req.CategoryID.Value)
		if !ok {
			return
		}
		params.CategoryID = catID
	}
	if req.DepartmentID.Set {
		deptID, ok := h.ownedDepartment(w, r, claims.OwnerID, req.DepartmentID.Value)
		if !ok {
			return
		}
		params.DepartmentID = deptID
	}
	if req.IsActive.Present() {
		params.IsActive = req.IsActive.Value
	}
	if req.IsAvailable.Present() {
		params.IsAvailable = req.IsAvailable.Value
	}
	if req.SortOrder.Present() {
		params.SortOrder = req.SortOrder.Value
	}

	item, err := h.store.UpdateMenuItem(r.Context(), params)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		writeInternal(w, "update menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete removes a menu item no order has ever referenced. Items with order
// history are kept and should be deactivated instead.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "id", "menu item")
	if !ok {
		return
	}

	if _, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		writeInternal(w, "get menu item", err)
		return
	}

	count, err := h.store.CountOrderItemsByMenuItem(r.Context(), itemID)
	if err != nil {
		writeInternal(w, "count menu item orders", err)
		return
	}
	if count > 0 {
		writeError(w, http.StatusBadRequest, "menu item is referenced by orders; deactivate it instead")
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), database.DeleteMenuItemParams{ID: itemID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		writeInternal(w, "delete menu item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// ownedCategory parses a category id and checks it belongs to the owner.
func (h *MenuItemHandler) ownedCategory(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, raw string) (uuid.UUID, bool) {
	catID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid categoryId is required")
		return uuid.Nil, false
	}
	if _, err := h.store.GetCategory(r.Context(), database.GetCategoryParams{ID: catID, OwnerID: ownerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusBadRequest, "category not found")
			return uuid.Nil, false
		}
		writeInternal(w, "get category", err)
		return uuid.Nil, false
	}
	return catID, true
}

// ownedDepartment is like ownedCategory but an empty id means no department.
func (h *MenuItemHandler) ownedDepartment(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, raw string) (pgtype.UUID, bool) {
	if raw == "" {
		return pgtype.UUID{}, true
	}
	deptID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid departmentId")
		return pgtype.UUID{}, false
	}
	if _, err := h.store.GetDepartment(r.Context(), database.GetDepartmentParams{ID: deptID, OwnerID: ownerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusBadRequest, "department not found")
			return pgtype.UUID{}, false
		}
		writeInternal(w, "get department", err)
		return pgtype.UUID{}, false
	}
	return optUUID(deptID), true
}
