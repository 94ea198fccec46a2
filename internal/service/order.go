package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/dinein-pos/api/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID   = errors.New("invalid menuItemId")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrInvalidSelectionID  = errors.New("invalid selectionId")
	ErrInvalidOptionID     = errors.New("invalid optionId")
	ErrSelectionMismatch   = errors.New("selection does not belong to menu item")
	ErrDuplicateSelection  = errors.New("selection chosen more than once")
	ErrOptionMismatch      = errors.New("option does not belong to selection")
	ErrOptionUnavailable   = errors.New("option is not available")
	ErrTooManyOptions      = errors.New("selection allows a single option")
	ErrRequiredSelection   = errors.New("required selection missing")
	ErrPriceMismatch       = errors.New("price mismatch")
	ErrInvalidTotal        = errors.New("totalAmount must be > 0")
	ErrTotalMismatch       = errors.New("totalAmount does not match items")
	ErrInvalidSessionID    = errors.New("invalid sessionId")
	ErrInvalidTableID      = errors.New("invalid tableId")
	ErrInvalidOrderItemID  = errors.New("invalid order item id")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session is not active")
	ErrTableNotFound       = errors.New("table not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderItemNotFound   = errors.New("order item not found")
	ErrOrderNotEditable    = errors.New("order can only be modified while PENDING or CONFIRMED")
	ErrOrderNotDeletable   = errors.New("order can only be deleted while PENDING or CANCELLED")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInvalidTransition   = errors.New("action not allowed for current order status")
)

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	NextSequenceValue(ctx context.Context, arg database.NextSequenceValueParams) (int64, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	ListSelectionsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.Selection, error)
	GetOptionsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.OptionWithSelection, error)
	GetSession(ctx context.Context, arg database.GetSessionParams) (database.Session, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	AdvanceSessionStatus(ctx context.Context, arg database.AdvanceSessionStatusParams) (int64, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrderNotes(ctx context.Context, arg database.UpdateOrderNotesParams) (database.Order, error)
	RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (database.Order, error)
	TransitionOrderStatus(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	DeleteOrder(ctx context.Context, arg database.DeleteOrderParams) (uuid.UUID, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// SelectionChoice is the customer's pick for one selection of a menu item.
// Picks are stored as JSON on the order item.
type SelectionChoice struct {
	SelectionID string   `json:"selectionId"`
	OptionIDs   []string `json:"optionIds"`
}

// OrderItemInput is one line of a create or modify request. ID is only set
// when modifying an existing line.
type OrderItemInput struct {
	ID         string
	MenuItemID string
	Quantity   int32
	Price      decimal.NullDecimal // client-declared unit price, optional
	Notes      *string
	Selections []SelectionChoice // nil keeps the stored picks on modify
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	OwnerID      uuid.UUID
	WaiterID     uuid.UUID // zero for customer self-orders
	SessionID    string
	TableID      string
	CustomerName string
	Notes        string
	TotalAmount  decimal.NullDecimal
	Items        []OrderItemInput
}

// ModifyOrderRequest replaces the item list of an editable order.
type ModifyOrderRequest struct {
	OwnerID uuid.UUID
	OrderID uuid.UUID
	Items   []OrderItemInput
	Notes   *string
}

// OrderItemPatch updates a single line. Nil fields are left as stored; a
// non-nil empty Notes clears the notes.
type OrderItemPatch struct {
	MenuItemID *string
	Quantity   *int32
	Price      decimal.NullDecimal
	Notes      *string
	Selections *[]SelectionChoice
}

// OrderResult is an order with its items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: time.Now}
}

// pricedLine is an order line after server-side pricing.
type pricedLine struct {
	menuItemID uuid.UUID
	quantity   int32
	unitPrice  decimal.Decimal
	selections []byte
	notes      pgtype.Text
}

// CreateOrder validates and prices the items and creates the order
// atomically. Retries on order_number unique violations.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.TotalAmount.Valid && !req.TotalAmount.Decimal.IsPositive() {
		return nil, ErrInvalidTotal
	}

	var lastErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isUniqueViolation(err, "orders_owner_id_order_number_key") {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve session and table ---
	sessionID := pgtype.UUID{}
	tableID := pgtype.UUID{}
	origin := enum.SessionOriginStaff
	var session database.Session
	if req.SessionID != "" {
		sid, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, ErrInvalidSessionID
		}
		session, err = store.GetSession(ctx, database.GetSessionParams{ID: sid, OwnerID: req.OwnerID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrSessionNotFound
			}
			return nil, fmt.Errorf("get session: %w", err)
		}
		if !session.IsActive || session.Status == enum.SessionStatusCompleted {
			return nil, ErrSessionClosed
		}
		sessionID = pgtype.UUID{Bytes: sid, Valid: true}
		tableID = session.TableID
		origin = session.Origin
	}
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		if _, err := store.GetTable(ctx, database.GetTableParams{ID: tid, OwnerID: req.OwnerID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	// --- Price items ---
	total := decimal.Zero
	lines := make([]pricedLine, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		line, err := priceLine(ctx, store, req.OwnerID, item)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		total = total.Add(line.unitPrice.Mul(decimal.NewFromInt32(line.quantity)))
		lines = append(lines, line)
	}
	if req.TotalAmount.Valid && !withinTolerance(req.TotalAmount.Decimal, total) {
		return nil, ErrTotalMismatch
	}

	// --- Generate order number ---
	now := s.now()
	seq, err := store.NextSequenceValue(ctx, database.NextSequenceValueParams{
		OwnerID: req.OwnerID,
		Name:    "order",
		Period:  numberPeriod(now),
	})
	if err != nil {
		return nil, fmt.Errorf("next order sequence: %w", err)
	}
	orderNumber := fmt.Sprintf("ORD-%s-%04d", numberPeriod(now), seq)

	waiterID := pgtype.UUID{}
	if req.WaiterID != uuid.Nil {
		waiterID = pgtype.UUID{Bytes: req.WaiterID, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OwnerID:      req.OwnerID,
		OrderNumber:  orderNumber,
		SessionID:    sessionID,
		TableID:      tableID,
		Status:       enum.OrderStatusPending,
		TotalAmount:  total,
		Notes:        optionalText(req.Notes),
		CustomerName: optionalText(req.CustomerName),
		WaiterID:     waiterID,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.menuItemID,
			Quantity:   line.quantity,
			Price:      line.unitPrice,
			Selections: line.selections,
			Notes:      line.notes,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if sessionID.Valid {
		if _, err := store.AdvanceSessionStatus(ctx, database.AdvanceSessionStatusParams{
			ID:           session.ID,
			OwnerID:      req.OwnerID,
			Status:       enum.SessionStatusOrdered,
			FromStatuses: []string{enum.SessionStatusSeated, enum.SessionStatusOrdering},
		}); err != nil {
			return nil, fmt.Errorf("advance session: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(origin).Inc()
	return &OrderResult{Order: order, Items: items}, nil
}

// ModifyOrder applies a full replacement item list: lines with an id are
// updated (or removed when quantity <= 0), lines without an id are inserted
// (or dropped when quantity <= 0) and stored lines missing from the list are
// removed. The total is
// recomputed before commit.
func (s *OrderService) ModifyOrder(ctx context.Context, req ModifyOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	return s.withEditableOrder(ctx, req.OwnerID, req.OrderID, func(store OrderStore, order database.Order) error {
		existing, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		byID := make(map[uuid.UUID]database.OrderItem, len(existing))
		for _, it := range existing {
			byID[it.ID] = it
		}

		var (
			deletes []uuid.UUID
			updates []database.UpdateOrderItemParams
			inserts []database.CreateOrderItemParams
		)
		seen := make(map[uuid.UUID]bool)

		for i, in := range req.Items {
			if in.ID == "" {
				if in.Quantity <= 0 {
					continue
				}
				line, err := priceLine(ctx, store, req.OwnerID, in)
				if err != nil {
					return fmt.Errorf("items[%d]: %w", i, err)
				}
				inserts = append(inserts, database.CreateOrderItemParams{
					OrderID:    order.ID,
					MenuItemID: line.menuItemID,
					Quantity:   line.quantity,
					Price:      line.unitPrice,
					Selections: line.selections,
					Notes:      line.notes,
				})
				continue
			}

			id, err := uuid.Parse(in.ID)
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, ErrInvalidOrderItemID)
			}
			current, ok := byID[id]
			if !ok || seen[id] {
				return fmt.Errorf("items[%d]: %w", i, ErrOrderItemNotFound)
			}
			seen[id] = true

			if in.Quantity <= 0 {
				deletes = append(deletes, id)
				continue
			}

			params, changed, err := applyItemInput(ctx, store, req.OwnerID, current, in)
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			if changed {
				updates = append(updates, params)
			}
		}
		for _, it := range existing {
			if !seen[it.ID] {
				deletes = append(deletes, it.ID)
			}
		}

		for _, id := range deletes {
			if _, err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: id, OrderID: order.ID}); err != nil {
				return fmt.Errorf("delete order item: %w", err)
			}
		}
		for _, p := range updates {
			if _, err := store.UpdateOrderItem(ctx, p); err != nil {
				return fmt.Errorf("update order item: %w", err)
			}
		}
		for _, p := range inserts {
			if _, err := store.CreateOrderItem(ctx, p); err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		if req.Notes != nil && *req.Notes != order.Notes.String {
			if _, err := store.UpdateOrderNotes(ctx, database.UpdateOrderNotesParams{
				ID:      order.ID,
				OwnerID: req.OwnerID,
				Notes:   optionalText(*req.Notes),
			}); err != nil {
				return fmt.Errorf("update order notes: %w", err)
			}
		}
		return nil
	})
}

// AddItem appends a line to an editable order.
func (s *OrderService) AddItem(ctx context.Context, ownerID, orderID uuid.UUID, in OrderItemInput) (*OrderResult, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.withEditableOrder(ctx, ownerID, orderID, func(store OrderStore, order database.Order) error {
		line, err := priceLine(ctx, store, ownerID, in)
		if err != nil {
			return err
		}
		_, err = store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.menuItemID,
			Quantity:   line.quantity,
			Price:      line.unitPrice,
			Selections: line.selections,
			Notes:      line.notes,
		})
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
		return nil
	})
}

// UpdateItem patches one line of an editable order.
func (s *OrderService) UpdateItem(ctx context.Context, ownerID, orderID, itemID uuid.UUID, patch OrderItemPatch) (*OrderResult, error) {
	if patch.Quantity != nil && *patch.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.withEditableOrder(ctx, ownerID, orderID, func(store OrderStore, order database.Order) error {
		current, err := store.GetOrderItem(ctx, database.GetOrderItemParams{ID: itemID, OrderID: order.ID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderItemNotFound
			}
			return fmt.Errorf("get order item: %w", err)
		}

		in := OrderItemInput{
			Quantity: current.Quantity,
			Price:    patch.Price,
			Notes:    patch.Notes,
		}
		if patch.MenuItemID != nil {
			in.MenuItemID = *patch.MenuItemID
		}
		if patch.Quantity != nil {
			in.Quantity = *patch.Quantity
		}
		if patch.Selections != nil {
			in.Selections = *patch.Selections
			if in.Selections == nil {
				in.Selections = []SelectionChoice{}
			}
		}

		params, changed, err := applyItemInput(ctx, store, ownerID, current, in)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if _, err := store.UpdateOrderItem(ctx, params); err != nil {
			return fmt.Errorf("update order item: %w", err)
		}
		return nil
	})
}

// DeleteItem removes one line from an editable order.
func (s *OrderService) DeleteItem(ctx context.Context, ownerID, orderID, itemID uuid.UUID) (*OrderResult, error) {
	return s.withEditableOrder(ctx, ownerID, orderID, func(store OrderStore, order database.Order) error {
		if _, err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: itemID, OrderID: order.ID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderItemNotFound
			}
			return fmt.Errorf("delete order item: %w", err)
		}
		return nil
	})
}

// withEditableOrder locks the order, runs fn, recomputes the total from the
// surviving items and commits, all in one transaction.
func (s *OrderService) withEditableOrder(ctx context.Context, ownerID, orderID uuid.UUID, fn func(OrderStore, database.Order) error) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending && order.Status != enum.OrderStatusConfirmed {
		return nil, ErrOrderNotEditable
	}

	if err := fn(store, order); err != nil {
		return nil, err
	}

	order, err = store.RecalculateOrderTotal(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("recalculate total: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: order, Items: items}, nil
}

type transitionRule struct {
	from   string
	to     string
	assign func(p *database.TransitionOrderStatusParams, actor pgtype.UUID)
}

var transitionRules = map[string]transitionRule{
	enum.OrderActionConfirm: {
		from:   enum.OrderStatusPending,
		to:     enum.OrderStatusConfirmed,
		assign: func(p *database.TransitionOrderStatusParams, actor pgtype.UUID) { p.WaiterID = actor },
	},
	enum.OrderActionStartPreparing: {
		from:   enum.OrderStatusConfirmed,
		to:     enum.OrderStatusPreparing,
		assign: func(p *database.TransitionOrderStatusParams, actor pgtype.UUID) { p.CookID = actor },
	},
	enum.OrderActionMarkReady: {
		from: enum.OrderStatusPreparing,
		to:   enum.OrderStatusReady,
	},
	enum.OrderActionMarkDelivered: {
		from:   enum.OrderStatusReady,
		to:     enum.OrderStatusDelivered,
		assign: func(p *database.TransitionOrderStatusParams, actor pgtype.UUID) { p.ServedBy = actor },
	},
}

// Transition applies a dashboard action. The update only matches while the
// order is still in the action's required status, so a concurrent change
// yields ErrInvalidTransition and no mutation.
func (s *OrderService) Transition(ctx context.Context, ownerID, orderID uuid.UUID, action string, actorID uuid.UUID) (database.Order, error) {
	rule, ok := transitionRules[action]
	if !ok {
		return database.Order{}, ErrInvalidAction
	}

	params := database.TransitionOrderStatusParams{
		ID:           orderID,
		OwnerID:      ownerID,
		FromStatuses: []string{rule.from},
		ToStatus:     rule.to,
	}
	if rule.assign != nil && actorID != uuid.Nil {
		rule.assign(&params, pgtype.UUID{Bytes: actorID, Valid: true})
	}
	return s.transition(ctx, params)
}

// Cancel moves a PENDING or CONFIRMED order to CANCELLED.
func (s *OrderService) Cancel(ctx context.Context, ownerID, orderID uuid.UUID) (database.Order, error) {
	return s.transition(ctx, database.TransitionOrderStatusParams{
		ID:           orderID,
		OwnerID:      ownerID,
		FromStatuses: []string{enum.OrderStatusPending, enum.OrderStatusConfirmed},
		ToStatus:     enum.OrderStatusCancelled,
	})
}

func (s *OrderService) transition(ctx context.Context, params database.TransitionOrderStatusParams) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.TransitionOrderStatus(ctx, params)
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return database.Order{}, fmt.Errorf("commit tx: %w", err)
		}
		metrics.OrderTransitions.WithLabelValues(order.Status).Inc()
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, fmt.Errorf("transition order: %w", err)
	}

	current, err := store.GetOrder(ctx, database.GetOrderParams{ID: params.ID, OwnerID: params.OwnerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return database.Order{}, fmt.Errorf("%w: order is %s", ErrInvalidTransition, current.Status)
}

// DeleteOrder removes a PENDING or CANCELLED order and its items.
func (s *OrderService) DeleteOrder(ctx context.Context, ownerID, orderID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending && order.Status != enum.OrderStatusCancelled {
		return ErrOrderNotDeletable
	}
	if _, err := store.DeleteOrder(ctx, database.DeleteOrderParams{ID: orderID, OwnerID: ownerID}); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Helpers ---

// applyItemInput builds the update for an existing line. Empty MenuItemID,
// nil Selections and nil Notes keep the stored values. The stored unit price
// is kept unless the menu item or the selections change, in which case the
// line is repriced from current menu data.
func applyItemInput(ctx context.Context, store OrderStore, ownerID uuid.UUID, current database.OrderItem, in OrderItemInput) (database.UpdateOrderItemParams, bool, error) {
	menuItemID := current.MenuItemID
	if in.MenuItemID != "" {
		id, err := uuid.Parse(in.MenuItemID)
		if err != nil {
			return database.UpdateOrderItemParams{}, false, ErrInvalidMenuItemID
		}
		menuItemID = id
	}
	in.MenuItemID = menuItemID.String()

	stored := normalizeStored(current.Selections)
	selections := stored
	if in.Selections != nil {
		b, err := canonicalSelections(in.Selections)
		if err != nil {
			return database.UpdateOrderItemParams{}, false, err
		}
		selections = b
	} else if err := json.Unmarshal(stored, &in.Selections); err != nil {
		return database.UpdateOrderItemParams{}, false, fmt.Errorf("decode stored selections: %w", err)
	}

	params := database.UpdateOrderItemParams{
		ID:         current.ID,
		OrderID:    current.OrderID,
		MenuItemID: current.MenuItemID,
		Quantity:   in.Quantity,
		Price:      current.Price,
		Selections: current.Selections,
		Notes:      current.Notes,
	}
	if in.Notes != nil {
		params.Notes = optionalText(*in.Notes)
	}

	repriced := menuItemID != current.MenuItemID || !bytes.Equal(selections, stored)
	if repriced {
		line, err := priceLine(ctx, store, ownerID, in)
		if err != nil {
			return database.UpdateOrderItemParams{}, false, err
		}
		params.MenuItemID = line.menuItemID
		params.Price = line.unitPrice
		params.Selections = line.selections
	}

	changed := repriced ||
		params.Quantity != current.Quantity ||
		params.Notes != current.Notes
	return params, changed, nil
}

// priceLine validates a line against the owner's menu and computes its unit
// price as menu price plus every chosen option's priceAdd.
func priceLine(ctx context.Context, store OrderStore, ownerID uuid.UUID, in OrderItemInput) (pricedLine, error) {
	menuItemID, err := uuid.Parse(in.MenuItemID)
	if err != nil {
		return pricedLine{}, ErrInvalidMenuItemID
	}
	menuItem, err := store.GetMenuItem(ctx, database.GetMenuItemParams{ID: menuItemID, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricedLine{}, ErrMenuItemNotFound
		}
		return pricedLine{}, fmt.Errorf("get menu item: %w", err)
	}
	if !menuItem.IsActive || !menuItem.IsAvailable {
		return pricedLine{}, ErrMenuItemUnavailable
	}

	selections, err := store.ListSelectionsByMenuItem(ctx, menuItemID)
	if err != nil {
		return pricedLine{}, fmt.Errorf("list selections: %w", err)
	}
	selByID := make(map[uuid.UUID]database.Selection, len(selections))
	for _, sel := range selections {
		selByID[sel.ID] = sel
	}

	var optionIDs []uuid.UUID
	for _, choice := range in.Selections {
		for _, raw := range choice.OptionIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return pricedLine{}, ErrInvalidOptionID
			}
			optionIDs = append(optionIDs, id)
		}
	}
	optByID := map[uuid.UUID]database.OptionWithSelection{}
	if len(optionIDs) > 0 {
		opts, err := store.GetOptionsByIDs(ctx, optionIDs)
		if err != nil {
			return pricedLine{}, fmt.Errorf("get options: %w", err)
		}
		for _, o := range opts {
			optByID[o.OptionID] = o
		}
	}

	unitPrice := menuItem.Price
	chosen := make(map[uuid.UUID]bool)
	for _, choice := range in.Selections {
		selID, err := uuid.Parse(choice.SelectionID)
		if err != nil {
			return pricedLine{}, ErrInvalidSelectionID
		}
		sel, ok := selByID[selID]
		if !ok {
			return pricedLine{}, ErrSelectionMismatch
		}
		if chosen[selID] {
			return pricedLine{}, ErrDuplicateSelection
		}
		if len(choice.OptionIDs) == 0 {
			continue
		}
		if !sel.AllowMultiple && len(choice.OptionIDs) > 1 {
			return pricedLine{}, fmt.Errorf("%w: %s", ErrTooManyOptions, sel.Name)
		}
		seenOpt := make(map[uuid.UUID]bool)
		for _, raw := range choice.OptionIDs {
			optID := uuid.MustParse(raw)
			opt, ok := optByID[optID]
			if !ok || opt.SelectionID != selID || seenOpt[optID] {
				return pricedLine{}, ErrOptionMismatch
			}
			if !opt.IsAvailable {
				return pricedLine{}, fmt.Errorf("%w: %s", ErrOptionUnavailable, opt.OptionName)
			}
			seenOpt[optID] = true
			unitPrice = unitPrice.Add(opt.PriceAdd)
		}
		chosen[selID] = true
	}
	for _, sel := range selections {
		if sel.IsRequired && !chosen[sel.ID] {
			return pricedLine{}, fmt.Errorf("%w: %s", ErrRequiredSelection, sel.Name)
		}
	}

	unitPrice = unitPrice.Round(2)
	if in.Price.Valid && !withinTolerance(in.Price.Decimal, unitPrice) {
		return pricedLine{}, fmt.Errorf("%w: declared %s, expected %s", ErrPriceMismatch, in.Price.Decimal.StringFixed(2), unitPrice.StringFixed(2))
	}

	stored, err := canonicalSelections(in.Selections)
	if err != nil {
		return pricedLine{}, err
	}
	notes := pgtype.Text{}
	if in.Notes != nil {
		notes = optionalText(*in.Notes)
	}
	return pricedLine{
		menuItemID: menuItemID,
		quantity:   in.Quantity,
		unitPrice:  unitPrice,
		selections: stored,
		notes:      notes,
	}, nil
}

// canonicalSelections serializes choices in a stable order (empty picks
// dropped) so stored selections can be compared byte for byte.
func canonicalSelections(choices []SelectionChoice) ([]byte, error) {
	out := make([]SelectionChoice, 0, len(choices))
	for _, c := range choices {
		if len(c.OptionIDs) == 0 {
			continue
		}
		ids := append([]string(nil), c.OptionIDs...)
		sort.Strings(ids)
		out = append(out, SelectionChoice{SelectionID: c.SelectionID, OptionIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SelectionID < out[j].SelectionID })
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode selections: %w", err)
	}
	return b, nil
}

// normalizeStored re-canonicalizes stored JSON; PostgreSQL jsonb does not
// preserve the original byte layout.
func normalizeStored(raw []byte) []byte {
	var choices []SelectionChoice
	if err := json.Unmarshal(raw, &choices); err != nil {
		return raw
	}
	b, err := canonicalSelections(choices)
	if err != nil {
		return raw
	}
	return b
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
