package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/middleware"
	"github.com/dinein-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService; narrow interface for testability.
type PaymentServicer interface {
	CreateSessionPayment(ctx context.Context, req service.CreatePaymentRequest) (*service.PaymentResult, error)
	PaySplit(ctx context.Context, req service.PaySplitRequest) (*service.PaymentResult, error)
	Correct(ctx context.Context, ownerID, paymentID uuid.UUID, patch service.PaymentPatch) (database.Payment, error)
	Receipt(ctx context.Context, ownerID, paymentID uuid.UUID) (database.Payment, []service.ReceiptItem, error)
}

// PaymentStore defines the database methods needed by payment read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PaymentStore interface {
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
	GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	ListPaymentItems(ctx context.Context, paymentID uuid.UUID) ([]database.PaymentItem, error)
}

// PaymentHandler handles payment read, correction and receipt endpoints.
// Payments are created through sessions and bill splits.
type PaymentHandler struct {
	svc   PaymentServicer
	store PaymentStore
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store PaymentStore) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store}
}

// RegisterRoutes registers payment endpoints. Expected to be mounted at
// /payments.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
	r.With(middleware.RequireAdmin).Put("/{id}", h.Correct)
}

// --- Request / Response types ---

type createPaymentRequest struct {
	PaymentMethod  string                `json:"paymentMethod"`
	TotalAmount    decimal.Decimal       `json:"totalAmount"`
	ExtraCharges   []service.ExtraCharge `json:"extraCharges"`
	DiscountAmount decimal.Decimal       `json:"discountAmount"`
	FinalAmount    decimal.Decimal       `json:"finalAmount"`
	ReceivedAmount decimal.NullDecimal   `json:"receivedAmount"`
	Notes          string                `json:"notes"`
}

type correctPaymentRequest struct {
	PaymentMethod      Optional[string]          `json:"paymentMethod"`
	DiscountAmount     Optional[decimal.Decimal] `json:"discountAmount"`
	ExtraChargesAmount Optional[decimal.Decimal] `json:"extraChargesAmount"`
	FinalAmount        Optional[decimal.Decimal] `json:"finalAmount"`
	ReceivedAmount     Optional[decimal.Decimal] `json:"receivedAmount"`
	Notes              Optional[string]          `json:"notes"`
}

type paymentItemResponse struct {
	ID                  uuid.UUID       `json:"id"`
	OrderItemID         *uuid.UUID      `json:"orderItemId"`
	MenuItemName        string          `json:"menuItemName"`
	MenuItemDescription *string         `json:"menuItemDescription"`
	CategoryName        *string         `json:"categoryName"`
	UnitPrice           money           `json:"unitPrice"`
	Quantity            money           `json:"quantity"`
	TotalPrice          money           `json:"totalPrice"`
	Selections          json.RawMessage `json:"selections"`
	Notes               *string         `json:"notes"`
}

type paymentResponse struct {
	ID                 uuid.UUID             `json:"id"`
	OwnerID            uuid.UUID             `json:"ownerId"`
	PaymentNumber      string                `json:"paymentNumber"`
	SessionID          uuid.UUID             `json:"sessionId"`
	BillSplitID        *uuid.UUID            `json:"billSplitId"`
	RestaurantName     *string               `json:"restaurantName"`
	RestaurantAddress  *string               `json:"restaurantAddress"`
	RestaurantPhone    *string               `json:"restaurantPhone"`
	CustomerName       *string               `json:"customerName"`
	CustomerPhone      *string               `json:"customerPhone"`
	TableNumber        *int32                `json:"tableNumber"`
	TableName          *string               `json:"tableName"`
	PaymentMethod      string                `json:"paymentMethod"`
	Subtotal           money                 `json:"subtotal"`
	DiscountAmount     money                 `json:"discountAmount"`
	ExtraChargesAmount money                 `json:"extraChargesAmount"`
	FinalAmount        money                 `json:"finalAmount"`
	ReceivedAmount     *money                `json:"receivedAmount"`
	ChangeAmount       *money                `json:"changeAmount"`
	ExtraCharges       json.RawMessage       `json:"extraCharges"`
	Notes              *string               `json:"notes"`
	ProcessedBy        *uuid.UUID            `json:"processedBy"`
	Items              []paymentItemResponse `json:"items,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

// paymentCreatedResponse carries the id under every key older clients read.
type paymentCreatedResponse struct {
	paymentResponse
	PaymentID      uuid.UUID          `json:"paymentId"`
	PaymentIDSnake uuid.UUID          `json:"payment_id"`
	Data           paymentResponse    `json:"data"`
	BillSplit      *billSplitResponse `json:"billSplit,omitempty"`
}

type receiptItemResponse struct {
	paymentItemResponse
	Selections map[string][]string `json:"selections"`
}

type receiptResponse struct {
	Payment paymentResponse       `json:"payment"`
	Items   []receiptItemResponse `json:"items"`
}

func toPaymentItemResponse(it database.PaymentItem) paymentItemResponse {
	return paymentItemResponse{
		ID:                  it.ID,
		OrderItemID:         uuidPtr(it.OrderItemID),
		MenuItemName:        it.MenuItemName,
		MenuItemDescription: textPtr(it.MenuItemDescription),
		CategoryName:        textPtr(it.CategoryName),
		UnitPrice:           toMoney(it.UnitPrice),
		Quantity:            toMoney(it.Quantity),
		TotalPrice:          toMoney(it.TotalPrice),
		Selections:          rawJSON(it.Selections),
		Notes:               textPtr(it.Notes),
	}
}

func toPaymentResponse(p database.Payment, items []database.PaymentItem) paymentResponse {
	resp := paymentResponse{
		ID:                 p.ID,
		OwnerID:            p.OwnerID,
		PaymentNumber:      p.PaymentNumber,
		SessionID:          p.SessionID,
		BillSplitID:        uuidPtr(p.BillSplitID),
		RestaurantName:     textPtr(p.RestaurantName),
		RestaurantAddress:  textPtr(p.RestaurantAddress),
		RestaurantPhone:    textPtr(p.RestaurantPhone),
		CustomerName:       textPtr(p.CustomerName),
		CustomerPhone:      textPtr(p.CustomerPhone),
		TableNumber:        int4Ptr(p.TableNumber),
		TableName:          textPtr(p.TableName),
		PaymentMethod:      p.PaymentMethod,
		Subtotal:           toMoney(p.Subtotal),
		DiscountAmount:     toMoney(p.DiscountAmount),
		ExtraChargesAmount: toMoney(p.ExtraChargesAmount),
		FinalAmount:        toMoney(p.FinalAmount),
		ReceivedAmount:     toMoneyPtr(p.ReceivedAmount),
		ChangeAmount:       toMoneyPtr(p.ChangeAmount),
		ExtraCharges:       rawJSON(p.ExtraCharges),
		Notes:              textPtr(p.Notes),
		ProcessedBy:        uuidPtr(p.ProcessedBy),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if items != nil {
		resp.Items = make([]paymentItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = toPaymentItemResponse(it)
		}
	}
	return resp
}

func toPaymentCreatedResponse(res *service.PaymentResult) paymentCreatedResponse {
	p := toPaymentResponse(res.Payment, res.Items)
	resp := paymentCreatedResponse{
		paymentResponse: p,
		PaymentID:       p.ID,
		PaymentIDSnake:  p.ID,
		Data:            p,
	}
	if res.BillSplit != nil {
		split := toBillSplitResponse(*res.BillSplit)
		resp.BillSplit = &split
	}
	return resp
}

func int4Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

// --- Handlers ---

// List returns the owner's payments, newest first.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	payments, err := h.store.ListPayments(r.Context(), database.ListPaymentsParams{
		OwnerID: claims.OwnerID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeInternal(w, "list payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a payment with its snapshot lines.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	paymentID, ok := urlID(w, r, "id", "payment")
	if !ok {
		return
	}

	payment, err := h.store.GetPayment(r.Context(), database.GetPaymentParams{ID: paymentID, OwnerID: claims.OwnerID})
	if err != nil {
		if isNoRows(err) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		writeInternal(w, "get payment", err)
		return
	}

	items, err := h.store.ListPaymentItems(r.Context(), payment.ID)
	if err != nil {
		writeInternal(w, "list payment items", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(payment, items))
}

// Correct adjusts settlement amounts, method or notes of a payment. The
// snapshot lines are never touched.
func (h *PaymentHandler) Correct(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	paymentID, ok := urlID(w, r, "id", "payment")
	if !ok {
		return
	}

	var req correctPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var patch service.PaymentPatch
	if req.PaymentMethod.Present() {
		patch.PaymentMethod = &req.PaymentMethod.Value
	}
	if req.DiscountAmount.Present() {
		patch.DiscountAmount = &req.DiscountAmount.Value
	}
	if req.ExtraChargesAmount.Present() {
		patch.ExtraChargesAmount = &req.ExtraChargesAmount.Value
	}
	if req.FinalAmount.Present() {
		patch.FinalAmount = &req.FinalAmount.Value
	}
	if req.ReceivedAmount.Set {
		received := decimal.NullDecimal{Decimal: req.ReceivedAmount.Value, Valid: !req.ReceivedAmount.Null}
		patch.ReceivedAmount = &received
	}
	if req.Notes.Set {
		notes := applyText(req.Notes, pgtype.Text{})
		patch.Notes = &notes
	}

	payment, err := h.svc.Correct(r.Context(), claims.OwnerID, paymentID, patch)
	if err != nil {
		writeServiceError(w, "correct payment", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(payment, nil))
}

// Receipt returns a payment with each line's stored option ids resolved to
// current selection and option names.
func (h *PaymentHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	paymentID, ok := urlID(w, r, "id", "payment")
	if !ok {
		return
	}

	payment, items, err := h.svc.Receipt(r.Context(), claims.OwnerID, paymentID)
	if err != nil {
		writeServiceError(w, "build receipt", err)
		return
	}

	resp := receiptResponse{Payment: toPaymentResponse(payment, nil), Items: make([]receiptItemResponse, len(items))}
	for i, it := range items {
		selections := make(map[string][]string, len(it.Selections))
		for _, s := range it.Selections {
			selections[s.Name] = append(selections[s.Name], s.Options...)
		}
		resp.Items[i] = receiptItemResponse{paymentItemResponse: toPaymentItemResponse(it.Item), Selections: selections}
	}
	writeJSON(w, http.StatusOK, resp)
}
