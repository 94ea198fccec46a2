package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// StaffStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	ListStaffByOwner(ctx context.Context, ownerID uuid.UUID) ([]database.User, error)
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetStaffMember(ctx context.Context, arg database.GetStaffMemberParams) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateStaffMember(ctx context.Context, arg database.UpdateStaffMemberParams) (database.User, error)
	DeactivateStaffMember(ctx context.Context, arg database.DeactivateStaffMemberParams) (uuid.UUID, error)
}

// StaffHandler manages the accounts of a restaurant's employees.
type StaffHandler struct {
	store StaffStore
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store StaffStore) *StaffHandler {
	return &StaffHandler{store: store}
}

// RegisterRoutes registers staff endpoints. Expected to be mounted at /staff
// behind middleware.RequireAdmin.
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createStaffRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type updateStaffRequest struct {
	FullName Optional[string] `json:"fullName"`
	Role     Optional[string] `json:"role"`
	IsActive Optional[bool]   `json:"isActive"`
	Password Optional[string] `json:"password"`
}

type staffResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toStaffResponse(u database.User) staffResponse {
	resp := staffResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.RestaurantOwnerID.Valid {
		resp.OwnerID = u.RestaurantOwnerID.Bytes
	}
	return resp
}

// --- Handlers ---

// List returns every staff member of the caller's restaurant, active or not.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	users, err := h.store.ListStaffByOwner(r.Context(), claims.OwnerID)
	if err != nil {
		writeInternal(w, "list staff", err)
		return
	}

	resp := make([]staffResponse, len(users))
	for i, u := range users {
		resp[i] = toStaffResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff account under the caller's restaurant.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req createStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email, password, fullName and role are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if !enum.IsStaffRole(req.Role) {
		writeError(w, http.StatusBadRequest, "role must be one of MANAGER, WAITER, COOK, CASHIER")
		return
	}

	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	} else if !isNoRows(err) {
		writeInternal(w, "lookup user by email", err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternal(w, "hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:             req.Email,
		HashedPassword:    string(hashed),
		FullName:          strings.TrimSpace(req.FullName),
		Role:              req.Role,
		RestaurantOwnerID: optUUID(claims.OwnerID),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		writeInternal(w, "create staff", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStaffResponse(user))
}

// Update changes name, role, active flag or password. Absent fields keep
// their stored value.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	staffID, ok := urlID(w, r, "id", "staff")
	if !ok {
		return
	}

	var req updateStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current, err := h.store.GetStaffMember(r.Context(), database.GetStaffMemberParams{ID: staffID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeInternal(w, "get staff", err)
		return
	}

	params := database.UpdateStaffMemberParams{
		ID:       staffID,
		OwnerID:  claims.OwnerID,
		FullName: current.FullName,
		Role:     current.Role,
		IsActive: current.IsActive,
	}
	if req.FullName.Set {
		if strings.TrimSpace(req.FullName.Value) == "" {
			writeError(w, http.StatusBadRequest, "fullName cannot be empty")
			return
		}
		params.FullName = strings.TrimSpace(req.FullName.Value)
	}
	if req.Role.Set {
		if !enum.IsStaffRole(req.Role.Value) {
			writeError(w, http.StatusBadRequest, "role must be one of MANAGER, WAITER, COOK, CASHIER")
			return
		}
		params.Role = req.Role.Value
	}
	if req.IsActive.Present() {
		params.IsActive = req.IsActive.Value
	}
	if req.Password.Present() {
		if len(req.Password.Value) < minPasswordLength {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password.Value), bcrypt.DefaultCost)
		if err != nil {
			writeInternal(w, "hash password", err)
			return
		}
		params.HashedPassword = pgtype.Text{String: string(hashed), Valid: true}
	}

	user, err := h.store.UpdateStaffMember(r.Context(), params)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeInternal(w, "update staff", err)
		return
	}

	writeJSON(w, http.StatusOK, toStaffResponse(user))
}

// Delete deactivates a staff account. The row is kept because orders and
// payments reference it.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	staffID, ok := urlID(w, r, "id", "staff")
	if !ok {
		return
	}

	_, err := h.store.DeactivateStaffMember(r.Context(), database.DeactivateStaffMemberParams{ID: staffID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeInternal(w, "delete staff", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
