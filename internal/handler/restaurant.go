package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RestaurantStore defines the database methods needed by restaurant handlers.
// Restaurant settings live on the owner's user row.
type RestaurantStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateRestaurantSettings(ctx context.Context, arg database.UpdateRestaurantSettingsParams) (database.User, error)
}

// RestaurantHandler serves the caller's restaurant profile.
type RestaurantHandler struct {
	store RestaurantStore
}

func NewRestaurantHandler(store RestaurantStore) *RestaurantHandler {
	return &RestaurantHandler{store: store}
}

// RegisterRoutes mounts /restaurant. Writes are admin-only.
func (h *RestaurantHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.With(middleware.RequireAdmin).Post("/", h.Create)
	r.With(middleware.RequireAdmin).Put("/", h.Update)
}

type createRestaurantRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type updateRestaurantRequest struct {
	Name    Optional[string] `json:"name"`
	Address Optional[string] `json:"address"`
	Phone   Optional[string] `json:"phone"`
}

type restaurantResponse struct {
	OwnerID    uuid.UUID `json:"ownerId"`
	Name       *string   `json:"name"`
	Address    *string   `json:"address"`
	Phone      *string   `json:"phone"`
	Configured bool      `json:"configured"`
}

func toRestaurantResponse(u database.User) restaurantResponse {
	return restaurantResponse{
		OwnerID:    u.ID,
		Name:       textPtr(u.RestaurantName),
		Address:    textPtr(u.RestaurantAddress),
		Phone:      textPtr(u.RestaurantPhone),
		Configured: u.RestaurantName.Valid,
	}
}

func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	owner, err := h.store.GetUserByID(r.Context(), claims.OwnerID)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		writeInternal(w, "get restaurant", err)
		return
	}

	writeJSON(w, http.StatusOK, toRestaurantResponse(owner))
}

// Create sets up the restaurant profile once. A configured restaurant is
// changed through PUT.
func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req createRestaurantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	owner, err := h.store.GetUserByID(r.Context(), claims.OwnerID)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		writeInternal(w, "get restaurant", err)
		return
	}
	if owner.RestaurantName.Valid {
		writeError(w, http.StatusConflict, "restaurant already configured")
		return
	}

	updated, err := h.store.UpdateRestaurantSettings(r.Context(), database.UpdateRestaurantSettingsParams{
		OwnerID:           claims.OwnerID,
		RestaurantName:    optText(strings.TrimSpace(req.Name)),
		RestaurantAddress: optText(req.Address),
		RestaurantPhone:   optText(req.Phone),
	})
	if err != nil {
		writeInternal(w, "create restaurant", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRestaurantResponse(updated))
}

func (h *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req updateRestaurantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name.Set && (req.Name.Null || strings.TrimSpace(req.Name.Value) == "") {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	owner, err := h.store.GetUserByID(r.Context(), claims.OwnerID)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		writeInternal(w, "get restaurant", err)
		return
	}

	updated, err := h.store.UpdateRestaurantSettings(r.Context(), database.UpdateRestaurantSettingsParams{
		OwnerID:           claims.OwnerID,
		RestaurantName:    applyText(req.Name, owner.RestaurantName),
		RestaurantAddress: applyText(req.Address, owner.RestaurantAddress),
		RestaurantPhone:   applyText(req.Phone, owner.RestaurantPhone),
	})
	if err != nil {
		writeInternal(w, "update restaurant", err)
		return
	}

	writeJSON(w, http.StatusOK, toRestaurantResponse(updated))
}
