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
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategories(ctx context.Context, ownerID uuid.UUID) ([]database.ListCategoriesRow, error)
	GetCategory(ctx context.Context, arg database.GetCategoryParams) (database.Category, error)
	GetCategoryByName(ctx context.Context, arg database.GetCategoryByNameParams) (database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	CountMenuItemsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	DeleteCategory(ctx context.Context, arg database.DeleteCategoryParams) (uuid.UUID, error)
}

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	store CategoryStore
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes registers category CRUD endpoints on the given Chi router.
// Expected to be mounted at /categories.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

// groupRequest is the body for creating a category or department.
type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int32  `json:"sortOrder"`
}

type updateGroupRequest struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	IsActive    Optional[bool]   `json:"isActive"`
	SortOrder   Optional[int32]  `json:"sortOrder"`
}

type categoryResponse struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"ownerId"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	SortOrder     int32     `json:"sortOrder"`
	IsActive      bool      `json:"isActive"`
	MenuItemCount *int64    `json:"menuItemCount,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Name:        c.Name,
		Description: textPtr(c.Description),
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// --- Handlers ---

// List returns the owner's categories with their menu item counts.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListCategories(r.Context(), claims.OwnerID)
	if err != nil {
		writeInternal(w, "list categories", err)
		return
	}

	resp := make([]categoryResponse, len(rows))
	for i, row := range rows {
		resp[i] = toCategoryResponse(row.Category)
		count := row.MenuItemCount
		resp[i].MenuItemCount = &count
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a category. Names are unique per owner.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if !h.nameAvailable(w, r, claims.OwnerID, req.Name, uuid.Nil) {
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		OwnerID:     claims.OwnerID,
		Name:        req.Name,
		Description: optText(req.Description),
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "category name already exists")
			return
		}
		writeInternal(w, "create category", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update modifies an existing category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	catID, ok := urlID(w, r, "id", "category")
	if !ok {
		return
	}

	var req updateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current, err := h.store.GetCategory(r.Context(), database.GetCategoryParams{ID: catID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeInternal(w, "get category", err)
		return
	}

	params := database.UpdateCategoryParams{
		ID:          current.ID,
		OwnerID:     claims.OwnerID,
		Name:        current.Name,
		Description: applyText(req.Description, current.Description),
		IsActive:    current.IsActive,
		SortOrder:   current.SortOrder,
	}
	if req.Name.Set {
		name := strings.TrimSpace(req.Name.Value)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		if name != current.Name && !h.nameAvailable(w, r, claims.OwnerID, name, current.ID) {
			return
		}
		params.Name = name
	}
	if req.IsActive.Present() {
		params.IsActive = req.IsActive.Value
	}
	if req.SortOrder.Present() {
		params.SortOrder = req.SortOrder.Value
	}

	category, err := h.store.UpdateCategory(r.Context(), params)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "category name already exists")
			return
		}
		writeInternal(w, "update category", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes a category that no menu item references.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	catID, ok := urlID(w, r, "id", "category")
	if !ok {
		return
	}

	if _, err := h.store.GetCategory(r.Context(), database.GetCategoryParams{ID: catID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeInternal(w, "get category", err)
		return
	}

	count, err := h.store.CountMenuItemsByCategory(r.Context(), catID)
	if err != nil {
		writeInternal(w, "count category menu items", err)
		return
	}
	if count > 0 {
		writeError(w, http.StatusBadRequest, "category still has menu items")
		return
	}

	if _, err := h.store.DeleteCategory(r.Context(), database.DeleteCategoryParams{ID: catID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeInternal(w, "delete category", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) nameAvailable(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, name string, self uuid.UUID) bool {
	existing, err := h.store.GetCategoryByName(r.Context(), database.GetCategoryByNameParams{OwnerID: ownerID, Name: name})
	if err == nil && existing.ID != self {
		writeError(w, http.StatusBadRequest, "category name already exists")
		return false
	}
	if err != nil && !isNoRows(err) {
		writeInternal(w, "lookup category by name", err)
		return false
	}
	return true
}
