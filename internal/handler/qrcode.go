package handler

import (
	"context"
	"net/http"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/qr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// QRStore defines the database methods needed to render table QR codes.
type QRStore interface {
	GetActiveTableByID(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
}

// QRHandler serves the static QR code printed on each table. The code links
// to the customer session start page for that table.
type QRHandler struct {
	store QRStore
	gen   qr.Generator
}

func NewQRHandler(store QRStore, gen qr.Generator) *QRHandler {
	return &QRHandler{store: store, gen: gen}
}

// RegisterRoutes mounts the public QR image routes.
func (h *QRHandler) RegisterRoutes(r chi.Router) {
	r.Get("/qr/tables/{tableId}.png", h.TablePNG)
}

func (h *QRHandler) TablePNG(w http.ResponseWriter, r *http.Request) {
	tableID, ok := urlID(w, r, "tableId", "table")
	if !ok {
		return
	}

	table, err := h.store.GetActiveTableByID(r.Context(), tableID)
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		writeInternal(w, "get table", err)
		return
	}

	png, err := h.gen.TablePNG(table.ID)
	if err != nil {
		writeInternal(w, "render table qr", err)
		return
	}
	writePNG(w, png)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}
