package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/service"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillSplitServicer defines the service methods needed by bill split handlers.
// Satisfied by *service.BillSplitService.
type BillSplitServicer interface {
	Create(ctx context.Context, req service.CreateBillSplitRequest) ([]database.BillSplit, error)
}

// BillSplitStore defines the database methods needed to read bill splits.
type BillSplitStore interface {
	sessionOrderReader
	GetBillSplit(ctx context.Context, arg database.GetBillSplitParams) (database.BillSplit, error)
}

// BillSplitHandler handles bill split endpoints.
type BillSplitHandler struct {
	svc      BillSplitServicer
	payments PaymentServicer
	store    BillSplitStore
	events   EventPublisher
}

func NewBillSplitHandler(svc BillSplitServicer, payments PaymentServicer, store BillSplitStore, events EventPublisher) *BillSplitHandler {
	return &BillSplitHandler{svc: svc, payments: payments, store: store, events: events}
}

// RegisterRoutes registers bill split endpoints. Expected to be mounted at
// /bill-splits.
func (h *BillSplitHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/payments", h.Pay)
}

// --- Request / Response types ---

type splitPortionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label"`
}

type createBillSplitRequest struct {
	SessionID   string                `json:"sessionId"`
	QRSessionID string                `json:"qrSessionId"`
	OrderID     string                `json:"orderId"`
	SplitType   string                `json:"splitType"`
	Splits      []splitPortionRequest `json:"splits"`
}

type paySplitRequest struct {
	PaymentAmount  decimal.Decimal     `json:"paymentAmount"`
	PaymentMethod  string              `json:"paymentMethod"`
	ReceivedAmount decimal.NullDecimal `json:"receivedAmount"`
	Notes          string              `json:"notes"`
}

type billSplitResponse struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"ownerId"`
	SessionID       uuid.UUID  `json:"sessionId"`
	OrderID         *uuid.UUID `json:"orderId"`
	SplitType       string     `json:"splitType"`
	Label           *string    `json:"label"`
	TotalAmount     money      `json:"totalAmount"`
	PaidAmount      money      `json:"paidAmount"`
	RemainingAmount money      `json:"remainingAmount"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toBillSplitResponse(b database.BillSplit) billSplitResponse {
	remaining := b.TotalAmount.Sub(b.PaidAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return billSplitResponse{
		ID:              b.ID,
		OwnerID:         b.OwnerID,
		SessionID:       b.SessionID,
		OrderID:         uuidPtr(b.OrderID),
		SplitType:       b.SplitType,
		Label:           textPtr(b.Label),
		TotalAmount:     toMoney(b.TotalAmount),
		PaidAmount:      toMoney(b.PaidAmount),
		RemainingAmount: toMoney(remaining),
		Status:          b.Status,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// billSplitDetailResponse is a split with the orders it covers.
type billSplitDetailResponse struct {
	billSplitResponse
	Orders []orderResponse `json:"orders"`
}

// toBillSplitDetails pairs each split with its session's orders. A split
// tied to one order shows only that order.
func toBillSplitDetails(splits []database.BillSplit, orders []orderResponse) []billSplitDetailResponse {
	resp := make([]billSplitDetailResponse, len(splits))
	for i, s := range splits {
		covered := orders
		if s.OrderID.Valid {
			covered = []orderResponse{}
			for _, o := range orders {
				if o.ID == uuid.UUID(s.OrderID.Bytes) {
					covered = append(covered, o)
				}
			}
		}
		resp[i] = billSplitDetailResponse{billSplitResponse: toBillSplitResponse(s), Orders: covered}
	}
	return resp
}

// --- Handlers ---

// Create partitions a session's order total into PENDING splits.
func (h *BillSplitHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	var req createBillSplitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rawSession := req.SessionID
	if rawSession == "" {
		rawSession = req.QRSessionID
	}
	sessionID, err := uuid.Parse(rawSession)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid sessionId is required")
		return
	}

	portions := make([]service.SplitPortion, len(req.Splits))
	for i, s := range req.Splits {
		portions[i] = service.SplitPortion{Amount: s.Amount, Label: s.Label}
	}

	splits, err := h.svc.Create(r.Context(), service.CreateBillSplitRequest{
		OwnerID:   claims.OwnerID,
		SessionID: sessionID,
		OrderID:   req.OrderID,
		SplitType: req.SplitType,
		Splits:    portions,
	})
	if err != nil {
		writeServiceError(w, "create bill split", err)
		return
	}

	resp := make([]billSplitResponse, len(splits))
	for i, s := range splits {
		resp[i] = toBillSplitResponse(s)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *BillSplitHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	splitID, ok := urlID(w, r, "id", "bill split")
	if !ok {
		return
	}

	split, err := h.store.GetBillSplit(r.Context(), database.GetBillSplitParams{ID: splitID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "bill split not found")
			return
		}
		writeInternal(w, "get bill split", err)
		return
	}

	orders, err := loadSessionOrders(r.Context(), h.store, split.OwnerID, split.SessionID, false)
	if err != nil {
		writeInternal(w, "list bill split orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillSplitDetails([]database.BillSplit{split}, orders)[0])
}

// Pay records a payment against one split. Paying more than the split's
// remaining amount is rejected.
func (h *BillSplitHandler) Pay(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	splitID, ok := urlID(w, r, "id", "bill split")
	if !ok {
		return
	}

	var req paySplitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.payments.PaySplit(r.Context(), service.PaySplitRequest{
		OwnerID:        claims.OwnerID,
		BillSplitID:    splitID,
		ProcessedBy:    claims.UserID,
		PaymentAmount:  req.PaymentAmount,
		PaymentMethod:  req.PaymentMethod,
		ReceivedAmount: req.ReceivedAmount,
		Notes:          req.Notes,
	})
	if err != nil {
		writeServiceError(w, "pay bill split", err)
		return
	}

	resp := toPaymentCreatedResponse(res)
	publish(h.events, claims.OwnerID, ws.EventPaymentRecorded, resp.paymentResponse)
	writeJSON(w, http.StatusCreated, resp)
}
