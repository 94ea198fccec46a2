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

// DepartmentStore defines the database methods needed by department handlers.
type DepartmentStore interface {
	ListDepartments(ctx context.Context, ownerID uuid.UUID) ([]database.ListDepartmentsRow, error)
	GetDepartment(ctx context.Context, arg database.GetDepartmentParams) (database.Department, error)
	GetDepartmentByName(ctx context.Context, arg database.GetDepartmentByNameParams) (database.Department, error)
	CreateDepartment(ctx context.Context, arg database.CreateDepartmentParams) (database.Department, error)
	UpdateDepartment(ctx context.Context, arg database.UpdateDepartmentParams) (database.Department, error)
	CountMenuItemsByDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error)
	DeleteDepartment(ctx context.Context, arg database.DeleteDepartmentParams) (uuid.UUID, error)
}

// DepartmentHandler manages kitchen departments (grill, bar, ...) that menu
// items can be routed to.
type DepartmentHandler struct {
	store DepartmentStore
}

func NewDepartmentHandler(store DepartmentStore) *DepartmentHandler {
	return &DepartmentHandler{store: store}
}

func (h *DepartmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type departmentResponse struct {
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

func toDepartmentResponse(d database.Department) departmentResponse {
	return departmentResponse{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		Description: textPtr(d.Description),
		SortOrder:   d.SortOrder,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListDepartments(r.Context(), claims.OwnerID)
	if err != nil {
		writeInternal(w, "list departments", err)
		return
	}

	resp := make([]departmentResponse, len(rows))
	for i, row := range rows {
		resp[i] = toDepartmentResponse(row.Department)
		count := row.MenuItemCount
		resp[i].MenuItemCount = &count
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	dept, err := h.store.CreateDepartment(r.Context(), database.CreateDepartmentParams{
		OwnerID:     claims.OwnerID,
		Name:        req.Name,
		Description: optText(req.Description),
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "department name already exists")
			return
		}
		writeInternal(w, "create department", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDepartmentResponse(dept))
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	deptID, ok := urlID(w, r, "id", "department")
	if !ok {
		return
	}

	var req updateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current, err := h.store.GetDepartment(r.Context(), database.GetDepartmentParams{ID: deptID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "department not found")
			return
		}
		writeInternal(w, "get department", err)
		return
	}

	params := database.UpdateDepartmentParams{
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

	dept, err := h.store.UpdateDepartment(r.Context(), params)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "department not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "department name already exists")
			return
		}
		writeInternal(w, "update department", err)
		return
	}

	writeJSON(w, http.StatusOK, toDepartmentResponse(dept))
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	deptID, ok := urlID(w, r, "id", "department")
	if !ok {
		return
	}

	if _, err := h.store.GetDepartment(r.Context(), database.GetDepartmentParams{ID: deptID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "department not found")
			return
		}
		writeInternal(w, "get department", err)
		return
	}

	count, err := h.store.CountMenuItemsByDepartment(r.Context(), deptID)
	if err != nil {
		writeInternal(w, "count department menu items", err)
		return
	}
	if count > 0 {
		writeError(w, http.StatusBadRequest, "department still has menu items")
		return
	}

	if _, err := h.store.DeleteDepartment(r.Context(), database.DeleteDepartmentParams{ID: deptID, OwnerID: claims.OwnerID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "department not found")
			return
		}
		writeInternal(w, "delete department", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DepartmentHandler) nameAvailable(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, name string, self uuid.UUID) bool {
	existing, err := h.store.GetDepartmentByName(r.Context(), database.GetDepartmentByNameParams{OwnerID: ownerID, Name: name})
	if err == nil && existing.ID != self {
		writeError(w, http.StatusBadRequest, "department name already exists")
		return false
	}
	if err != nil && !isNoRows(err) {
		writeInternal(w, "lookup department by name", err)
		return false
	}
	return true
}
