package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/middleware"
	"github.com/dinein-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxSelectionOptions = 20

// selectionReader loads a menu item's selections with their options.
type selectionReader interface {
	ListSelectionsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.Selection, error)
	ListOptionsBySelection(ctx context.Context, selectionID uuid.UUID) ([]database.SelectionOption, error)
}

// SelectionStore defines the database methods needed by selection handlers.
type SelectionStore interface {
	selectionReader
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	CreateSelection(ctx context.Context, arg database.CreateSelectionParams) (database.Selection, error)
	UpdateSelection(ctx context.Context, arg database.UpdateSelectionParams) (database.Selection, error)
	DeleteSelection(ctx context.Context, arg database.DeleteSelectionParams) (uuid.UUID, error)
	CreateSelectionOption(ctx context.Context, arg database.CreateSelectionOptionParams) (database.SelectionOption, error)
	DeleteOptionsBySelection(ctx context.Context, selectionID uuid.UUID) error
}

// NewSelectionStore creates a SelectionStore from a DBTX (pool or tx).
type NewSelectionStore func(db database.DBTX) SelectionStore

// SelectionHandler manages the modifier groups of a menu item.
type SelectionHandler struct {
	store    SelectionStore
	pool     service.TxBeginner
	newStore NewSelectionStore
}

func NewSelectionHandler(store SelectionStore, pool service.TxBeginner, newStore NewSelectionStore) *SelectionHandler {
	return &SelectionHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers selection endpoints on the /menu-items router,
// next to the menu item routes they belong to.
func (h *SelectionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}/selections", h.List)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/{id}/selections", h.Create)
		r.Put("/{id}/selections/{sid}", h.Update)
		r.Delete("/{id}/selections/{sid}", h.Delete)
	})
}

// --- Request / Response types ---

type optionRequest struct {
	Name        string          `json:"name"`
	PriceAdd    decimal.Decimal `json:"priceAdd"`
	IsAvailable *bool           `json:"isAvailable"`
	SortOrder   int32           `json:"sortOrder"`
}

type selectionRequest struct {
	Name          string          `json:"name"`
	IsRequired    bool            `json:"isRequired"`
	AllowMultiple bool            `json:"allowMultiple"`
	SortOrder     int32           `json:"sortOrder"`
	Options       []optionRequest `json:"options"`
}

type optionResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PriceAdd    money     `json:"priceAdd"`
	IsAvailable bool      `json:"isAvailable"`
	SortOrder   int32     `json:"sortOrder"`
}

type selectionResponse struct {
	ID            uuid.UUID        `json:"id"`
	MenuItemID    uuid.UUID        `json:"menuItemId"`
	Name          string           `json:"name"`
	IsRequired    bool             `json:"isRequired"`
	AllowMultiple bool             `json:"allowMultiple"`
	SortOrder     int32            `json:"sortOrder"`
	Options       []optionResponse `json:"options"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func toSelectionResponse(s database.Selection, opts []database.SelectionOption) selectionResponse {
	resp := selectionResponse{
		ID:            s.ID,
		MenuItemID:    s.MenuItemID,
		Name:          s.Name,
		IsRequired:    s.IsRequired,
		AllowMultiple: s.AllowMultiple,
		SortOrder:     s.SortOrder,
		Options:       make([]optionResponse, len(opts)),
		CreatedAt:     s.CreatedAt,
	}
	for i, o := range opts {
		resp.Options[i] = optionResponse{
			ID:          o.ID,
			Name:        o.Name,
			PriceAdd:    toMoney(o.PriceAdd),
			IsAvailable: o.IsAvailable,
			SortOrder:   o.SortOrder,
		}
	}
	return resp
}

// loadSelections returns a menu item's selections with their options. With
// availableOnly, unavailable options are left out.
func loadSelections(ctx context.Context, store selectionReader, menuItemID uuid.UUID, availableOnly bool) ([]selectionResponse, error) {
	selections, err := store.ListSelectionsByMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	resp := make([]selectionResponse, 0, len(selections))
	for _, s := range selections {
		opts, err := store.ListOptionsBySelection(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		if availableOnly {
			kept := make([]database.SelectionOption, 0, len(opts))
			for _, o := range opts {
				if o.IsAvailable {
					kept = append(kept, o)
				}
			}
			opts = kept
		}
		resp = append(resp, toSelectionResponse(s, opts))
	}
	return resp, nil
}

func (req selectionRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(req.Options) == 0 {
		return fmt.Errorf("at least one option is required")
	}
	if len(req.Options) > maxSelectionOptions {
		return fmt.Errorf("a selection can have at most %d options", maxSelectionOptions)
	}
	for i, o := range req.Options {
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("options[%d]: name is required", i)
		}
		if o.PriceAdd.IsNegative() {
			return fmt.Errorf("options[%d]: priceAdd must be >= 0", i)
		}
	}
	return nil
}

// --- Handlers ---

func (h *SelectionHandler) List(w http.ResponseWriter, r *http.Request) {
	menuItem, ok := h.menuItem(w, r)
	if !ok {
		return
	}

	resp, err := loadSelections(r.Context(), h.store, menuItem.ID, false)
	if err != nil {
		writeInternal(w, "list selections", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SelectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	menuItem, ok := h.menuItem(w, r)
	if !ok {
		return
	}

	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		writeInternal(w, "begin tx", err)
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck
	store := h.newStore(tx)

	sel, err := store.CreateSelection(r.Context(), database.CreateSelectionParams{
		MenuItemID:    menuItem.ID,
		Name:          strings.TrimSpace(req.Name),
		IsRequired:    req.IsRequired,
		AllowMultiple: req.AllowMultiple,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		writeInternal(w, "create selection", err)
		return
	}
	opts, err := createOptions(r.Context(), store, sel.ID, req.Options)
	if err != nil {
		writeInternal(w, "create selection options", err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		writeInternal(w, "commit tx", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSelectionResponse(sel, opts))
}

// Update rewrites a selection and replaces all of its options. Options are
// recreated, so their ids change on every update.
func (h *SelectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	menuItem, ok := h.menuItem(w, r)
	if !ok {
		return
	}
	selID, ok := urlID(w, r, "sid", "selection")
	if !ok {
		return
	}

	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		writeInternal(w, "begin tx", err)
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck
	store := h.newStore(tx)

	sel, err := store.UpdateSelection(r.Context(), database.UpdateSelectionParams{
		ID:            selID,
		MenuItemID:    menuItem.ID,
		Name:          strings.TrimSpace(req.Name),
		IsRequired:    req.IsRequired,
		AllowMultiple: req.AllowMultiple,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "selection not found")
			return
		}
		writeInternal(w, "update selection", err)
		return
	}
	if err := store.DeleteOptionsBySelection(r.Context(), sel.ID); err != nil {
		writeInternal(w, "delete selection options", err)
		return
	}
	opts, err := createOptions(r.Context(), store, sel.ID, req.Options)
	if err != nil {
		writeInternal(w, "create selection options", err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		writeInternal(w, "commit tx", err)
		return
	}
	writeJSON(w, http.StatusOK, toSelectionResponse(sel, opts))
}

func (h *SelectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	menuItem, ok := h.menuItem(w, r)
	if !ok {
		return
	}
	selID, ok := urlID(w, r, "sid", "selection")
	if !ok {
		return
	}

	if _, err := h.store.DeleteSelection(r.Context(), database.DeleteSelectionParams{ID: selID, MenuItemID: menuItem.ID}); err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "selection not found")
			return
		}
		writeInternal(w, "delete selection", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// menuItem resolves the {id} path param to a menu item of the caller's owner.
func (h *SelectionHandler) menuItem(w http.ResponseWriter, r *http.Request) (database.MenuItem, bool) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return database.MenuItem{}, false
	}
	itemID, ok := urlID(w, r, "id", "menu item")
	if !ok {
		return database.MenuItem{}, false
	}

	item, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return database.MenuItem{}, false
		}
		writeInternal(w, "get menu item", err)
		return database.MenuItem{}, false
	}
	return item, true
}

func createOptions(ctx context.Context, store SelectionStore, selectionID uuid.UUID, in []optionRequest) ([]database.SelectionOption, error) {
	opts := make([]database.SelectionOption, 0, len(in))
	for i, o := range in {
		available := true
		if o.IsAvailable != nil {
			available = *o.IsAvailable
		}
		sortOrder := o.SortOrder
		if sortOrder == 0 {
			sortOrder = int32(i)
		}
		opt, err := store.CreateSelectionOption(ctx, database.CreateSelectionOptionParams{
			SelectionID: selectionID,
			Name:        strings.TrimSpace(o.Name),
			PriceAdd:    o.PriceAdd.Round(2),
			IsAvailable: available,
			SortOrder:   sortOrder,
		})
		if err != nil {
			return nil, fmt.Errorf("options[%d]: %w", i, err)
		}
		opts = append(opts, opt)
	}
	return opts, nil
}
