package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock transaction ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner, handing out a fresh mockTx per call.
type mockTxBeginner struct {
	commitErr error
	err       error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &mockTx{commitErr: m.commitErr}, nil
}

// --- In-memory store ---

// memStore is an in-memory stand-in for *database.Queries covering every
// store interface of this package. All methods are safe for concurrent use.
// Writes are not rolled back with the mock transaction.
type memStore struct {
	mu sync.Mutex

	users      map[uuid.UUID]database.User
	tables     map[uuid.UUID]database.DiningTable
	categories map[uuid.UUID]string
	menuItems  map[uuid.UUID]database.MenuItem
	selections map[uuid.UUID]database.Selection
	options    map[uuid.UUID]database.SelectionOption
	sessions   map[uuid.UUID]database.Session
	orders     map[uuid.UUID]database.Order
	orderItems map[uuid.UUID]database.OrderItem
	payments   map[uuid.UUID]database.Payment
	payItems   map[uuid.UUID][]database.PaymentItem
	splits     map[uuid.UUID]database.BillSplit
	sequences  map[string]int64

	// createOrderErr, when set, is returned by the next n CreateOrder calls.
	createOrderErr   error
	createOrderFails int
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]database.User{},
		tables:     map[uuid.UUID]database.DiningTable{},
		categories: map[uuid.UUID]string{},
		menuItems:  map[uuid.UUID]database.MenuItem{},
		selections: map[uuid.UUID]database.Selection{},
		options:    map[uuid.UUID]database.SelectionOption{},
		sessions:   map[uuid.UUID]database.Session{},
		orders:     map[uuid.UUID]database.Order{},
		orderItems: map[uuid.UUID]database.OrderItem{},
		payments:   map[uuid.UUID]database.Payment{},
		payItems:   map[uuid.UUID][]database.PaymentItem{},
		splits:     map[uuid.UUID]database.BillSplit{},
		sequences:  map[string]int64{},
	}
}

// --- Seeding helpers ---

func (m *memStore) addOwner(name string) database.User {
	u := database.User{
		ID:             uuid.New(),
		Email:          name + "@example.com",
		FullName:       name,
		Role:           enum.UserRoleOwner,
		RestaurantName: pgtype.Text{String: name, Valid: true},
		IsActive:       true,
	}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addTable(ownerID uuid.UUID, number int32) database.DiningTable {
	t := database.DiningTable{ID: uuid.New(), OwnerID: ownerID, Number: number, Capacity: 4, IsActive: true}
	m.tables[t.ID] = t
	return t
}

func (m *memStore) addMenuItem(ownerID uuid.UUID, name, price string) database.MenuItem {
	catID := uuid.New()
	m.categories[catID] = "Mains"
	item := database.MenuItem{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		CategoryID:  catID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		IsActive:    true,
		IsAvailable: true,
	}
	m.menuItems[item.ID] = item
	return item
}

func (m *memStore) addSelection(menuItemID uuid.UUID, name string, required, multiple bool) database.Selection {
	sel := database.Selection{ID: uuid.New(), MenuItemID: menuItemID, Name: name, IsRequired: required, AllowMultiple: multiple}
	m.selections[sel.ID] = sel
	return sel
}

func (m *memStore) addOption(selectionID uuid.UUID, name, priceAdd string) database.SelectionOption {
	opt := database.SelectionOption{
		ID:          uuid.New(),
		SelectionID: selectionID,
		Name:        name,
		PriceAdd:    decimal.RequireFromString(priceAdd),
		IsAvailable: true,
	}
	m.options[opt.ID] = opt
	return opt
}

func (m *memStore) addSession(ownerID uuid.UUID, tableID uuid.UUID, status string) database.Session {
	s := database.Session{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Origin:       enum.SessionOriginStaff,
		TableID:      pgtype.UUID{Bytes: tableID, Valid: tableID != uuid.Nil},
		CustomerName: pgtype.Text{String: "Alice", Valid: true},
		PartySize:    2,
		Status:       status,
		IsActive:     status != enum.SessionStatusCompleted,
		CheckInTime:  time.Now(),
	}
	m.sessions[s.ID] = s
	return s
}

func (m *memStore) order(id uuid.UUID) database.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memStore) session(id uuid.UUID) database.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memStore) split(id uuid.UUID) database.BillSplit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.splits[id]
}

func (m *memStore) itemsOf(orderID uuid.UUID) []database.OrderItem {
	var out []database.OrderItem
	for _, it := range m.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// --- Users, tables, sequences ---

func (m *memStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[arg.ID]
	if !ok || t.OwnerID != arg.OwnerID {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) GetActiveTableByID(ctx context.Context, id uuid.UUID) (database.DiningTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok || !t.IsActive {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) NextSequenceValue(ctx context.Context, arg database.NextSequenceValueParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := arg.OwnerID.String() + "/" + arg.Name + "/" + arg.Period
	m.sequences[key]++
	return m.sequences[key], nil
}

// --- Menu ---

func (m *memStore) GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.menuItems[arg.ID]
	if !ok || it.OwnerID != arg.OwnerID {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (m *memStore) ListSelectionsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.Selection{}
	for _, s := range m.selections {
		if s.MenuItemID == menuItemID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) GetOptionsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.OptionWithSelection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.OptionWithSelection{}
	for _, id := range ids {
		opt, ok := m.options[id]
		if !ok {
			continue
		}
		sel := m.selections[opt.SelectionID]
		out = append(out, database.OptionWithSelection{
			OptionID:      opt.ID,
			OptionName:    opt.Name,
			PriceAdd:      opt.PriceAdd,
			IsAvailable:   opt.IsAvailable,
			SelectionID:   sel.ID,
			SelectionName: sel.Name,
			MenuItemID:    sel.MenuItemID,
		})
	}
	return out, nil
}

// --- Sessions ---

func (m *memStore) GetSession(ctx context.Context, arg database.GetSessionParams) (database.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[arg.ID]
	if !ok || s.OwnerID != arg.OwnerID {
		return database.Session{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *memStore) GetSessionForUpdate(ctx context.Context, arg database.GetSessionParams) (database.Session, error) {
	return m.GetSession(ctx, arg)
}

func (m *memStore) GetActiveQRSessionByTable(ctx context.Context, tableID uuid.UUID) (database.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Origin == enum.SessionOriginQR && s.IsActive && s.TableID.Valid && s.TableID.Bytes == tableID {
			return s, nil
		}
	}
	return database.Session{}, pgx.ErrNoRows
}

func (m *memStore) CreateSession(ctx context.Context, arg database.CreateSessionParams) (database.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if arg.Origin == enum.SessionOriginQR {
		for _, s := range m.sessions {
			if s.Origin == enum.SessionOriginQR && s.IsActive && s.TableID == arg.TableID {
				return database.Session{}, &pgconn.PgError{Code: "23505", ConstraintName: "sessions_active_qr_table_key"}
			}
		}
	}
	s := database.Session{
		ID:            uuid.New(),
		OwnerID:       arg.OwnerID,
		Origin:        arg.Origin,
		TableID:       arg.TableID,
		SessionToken:  arg.SessionToken,
		CustomerName:  arg.CustomerName,
		CustomerPhone: arg.CustomerPhone,
		CustomerEmail: arg.CustomerEmail,
		PartySize:     arg.PartySize,
		Status:        arg.Status,
		IsActive:      arg.Status != enum.SessionStatusCompleted,
		Notes:         arg.Notes,
		CheckInTime:   time.Now(),
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memStore) AdvanceSessionStatus(ctx context.Context, arg database.AdvanceSessionStatusParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[arg.ID]
	if !ok || s.OwnerID != arg.OwnerID {
		return 0, nil
	}
	for _, from := range arg.FromStatuses {
		if s.Status == from {
			s.Status = arg.Status
			m.sessions[s.ID] = s
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) CompleteSession(ctx context.Context, arg database.CompleteSessionParams) (database.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[arg.ID]
	if !ok || s.OwnerID != arg.OwnerID || s.Status == enum.SessionStatusCompleted {
		return database.Session{}, pgx.ErrNoRows
	}
	s.Status = enum.SessionStatusCompleted
	s.IsActive = false
	s.CheckOutTime = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memStore) CountSessionDependents(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if o.SessionID.Valid && o.SessionID.Bytes == sessionID {
			n++
		}
	}
	for _, p := range m.payments {
		if p.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteSession(ctx context.Context, arg database.DeleteSessionParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[arg.ID]
	if !ok || s.OwnerID != arg.OwnerID {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.sessions, arg.ID)
	return arg.ID, nil
}

func (m *memStore) ListSessionOrderItems(ctx context.Context, sessionID uuid.UUID) ([]database.SessionOrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.SessionOrderItem{}
	for _, o := range m.orders {
		if !o.SessionID.Valid || o.SessionID.Bytes != sessionID || o.Status == enum.OrderStatusCancelled {
			continue
		}
		for _, it := range m.itemsOf(o.ID) {
			mi := m.menuItems[it.MenuItemID]
			out = append(out, database.SessionOrderItem{
				OrderItem:           it,
				OrderNumber:         o.OrderNumber,
				MenuItemName:        mi.Name,
				MenuItemDescription: mi.Description,
				CategoryID:          mi.CategoryID,
				CategoryName:        m.categories[mi.CategoryID],
			})
		}
	}
	return out, nil
}

// --- Orders ---

func (m *memStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok || o.OwnerID != arg.OwnerID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.GetOrder(ctx, arg)
}

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createOrderFails > 0 {
		m.createOrderFails--
		return database.Order{}, m.createOrderErr
	}
	for _, o := range m.orders {
		if o.OwnerID == arg.OwnerID && o.OrderNumber == arg.OrderNumber {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_owner_id_order_number_key"}
		}
	}
	o := database.Order{
		ID:           uuid.New(),
		OwnerID:      arg.OwnerID,
		OrderNumber:  arg.OrderNumber,
		SessionID:    arg.SessionID,
		TableID:      arg.TableID,
		Status:       arg.Status,
		TotalAmount:  arg.TotalAmount,
		Notes:        arg.Notes,
		CustomerName: arg.CustomerName,
		WaiterID:     arg.WaiterID,
		CreatedAt:    time.Now(),
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) UpdateOrderNotes(ctx context.Context, arg database.UpdateOrderNotesParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok || o.OwnerID != arg.OwnerID {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Notes = arg.Notes
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	total := decimal.Zero
	for _, it := range m.itemsOf(id) {
		total = total.Add(it.Price.Mul(decimal.NewFromInt32(it.Quantity)))
	}
	o.TotalAmount = total
	m.orders[id] = o
	return o, nil
}

func (m *memStore) TransitionOrderStatus(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok || o.OwnerID != arg.OwnerID {
		return database.Order{}, pgx.ErrNoRows
	}
	matched := false
	for _, from := range arg.FromStatuses {
		if o.Status == from {
			matched = true
		}
	}
	if !matched {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.ToStatus
	if arg.WaiterID.Valid {
		o.WaiterID = arg.WaiterID
	}
	if arg.CookID.Valid {
		o.CookID = arg.CookID
	}
	if arg.ServedBy.Valid {
		o.ServedBy = arg.ServedBy
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) DeleteOrder(ctx context.Context, arg database.DeleteOrderParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok || o.OwnerID != arg.OwnerID {
		return uuid.Nil, pgx.ErrNoRows
	}
	for _, it := range m.itemsOf(o.ID) {
		delete(m.orderItems, it.ID)
	}
	delete(m.orders, o.ID)
	return o.ID, nil
}

func (m *memStore) SumSessionOrderTotals(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, o := range m.orders {
		if !o.SessionID.Valid || o.SessionID.Bytes != sessionID || o.Status == enum.OrderStatusCancelled {
			continue
		}
		for _, it := range m.itemsOf(o.ID) {
			total = total.Add(it.Price.Mul(decimal.NewFromInt32(it.Quantity)))
		}
	}
	return total, nil
}

// --- Order items ---

func (m *memStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.itemsOf(orderID)
	if out == nil {
		out = []database.OrderItem{}
	}
	return out, nil
}

func (m *memStore) GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.orderItems[arg.ID]
	if !ok || it.OrderID != arg.OrderID {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (m *memStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := database.OrderItem{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		MenuItemID: arg.MenuItemID,
		Quantity:   arg.Quantity,
		Price:      arg.Price,
		Selections: arg.Selections,
		Notes:      arg.Notes,
		CreatedAt:  time.Now(),
	}
	m.orderItems[it.ID] = it
	return it, nil
}

func (m *memStore) UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.orderItems[arg.ID]
	if !ok || it.OrderID != arg.OrderID {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	it.MenuItemID = arg.MenuItemID
	it.Quantity = arg.Quantity
	it.Price = arg.Price
	it.Selections = arg.Selections
	it.Notes = arg.Notes
	m.orderItems[it.ID] = it
	return it, nil
}

func (m *memStore) DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.orderItems[arg.ID]
	if !ok || it.OrderID != arg.OrderID {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.orderItems, it.ID)
	return it.ID, nil
}

// --- Payments ---

func (m *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := database.Payment{
		ID:                 uuid.New(),
		OwnerID:            arg.OwnerID,
		PaymentNumber:      arg.PaymentNumber,
		SessionID:          arg.SessionID,
		BillSplitID:        arg.BillSplitID,
		RestaurantName:     arg.RestaurantName,
		RestaurantAddress:  arg.RestaurantAddress,
		RestaurantPhone:    arg.RestaurantPhone,
		CustomerName:       arg.CustomerName,
		CustomerPhone:      arg.CustomerPhone,
		TableNumber:        arg.TableNumber,
		TableName:          arg.TableName,
		PaymentMethod:      arg.PaymentMethod,
		Subtotal:           arg.Subtotal,
		DiscountAmount:     arg.DiscountAmount,
		ExtraChargesAmount: arg.ExtraChargesAmount,
		FinalAmount:        arg.FinalAmount,
		ReceivedAmount:     arg.ReceivedAmount,
		ChangeAmount:       arg.ChangeAmount,
		ExtraCharges:       arg.ExtraCharges,
		Notes:              arg.Notes,
		ProcessedBy:        arg.ProcessedBy,
		CreatedAt:          time.Now(),
	}
	m.payments[p.ID] = p
	return p, nil
}

func (m *memStore) CreatePaymentItem(ctx context.Context, arg database.CreatePaymentItemParams) (database.PaymentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := database.PaymentItem{
		ID:                  uuid.New(),
		PaymentID:           arg.PaymentID,
		OrderItemID:         arg.OrderItemID,
		MenuItemName:        arg.MenuItemName,
		MenuItemDescription: arg.MenuItemDescription,
		CategoryName:        arg.CategoryName,
		UnitPrice:           arg.UnitPrice,
		Quantity:            arg.Quantity,
		TotalPrice:          arg.TotalPrice,
		Selections:          arg.Selections,
		Notes:               arg.Notes,
	}
	m.payItems[arg.PaymentID] = append(m.payItems[arg.PaymentID], it)
	return it, nil
}

func (m *memStore) GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[arg.ID]
	if !ok || p.OwnerID != arg.OwnerID {
		return database.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListPaymentItems(ctx context.Context, paymentID uuid.UUID) ([]database.PaymentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.PaymentItem{}, m.payItems[paymentID]...), nil
}

func (m *memStore) ListPaymentsBySession(ctx context.Context, arg database.ListPaymentsBySessionParams) ([]database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.Payment{}
	for _, p := range m.payments {
		if p.SessionID == arg.SessionID && p.OwnerID == arg.OwnerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePayment(ctx context.Context, arg database.UpdatePaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[arg.ID]
	if !ok || p.OwnerID != arg.OwnerID {
		return database.Payment{}, pgx.ErrNoRows
	}
	p.PaymentMethod = arg.PaymentMethod
	p.DiscountAmount = arg.DiscountAmount
	p.ExtraChargesAmount = arg.ExtraChargesAmount
	p.FinalAmount = arg.FinalAmount
	p.ReceivedAmount = arg.ReceivedAmount
	p.ChangeAmount = arg.ChangeAmount
	p.Notes = arg.Notes
	m.payments[p.ID] = p
	return p, nil
}

// --- Bill splits ---

func (m *memStore) CreateBillSplit(ctx context.Context, arg database.CreateBillSplitParams) (database.BillSplit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := database.BillSplit{
		ID:          uuid.New(),
		OwnerID:     arg.OwnerID,
		SessionID:   arg.SessionID,
		OrderID:     arg.OrderID,
		SplitType:   arg.SplitType,
		Label:       arg.Label,
		TotalAmount: arg.TotalAmount,
		PaidAmount:  decimal.Zero,
		Status:      enum.BillSplitStatusPending,
	}
	m.splits[b.ID] = b
	return b, nil
}

func (m *memStore) GetBillSplitForUpdate(ctx context.Context, arg database.GetBillSplitParams) (database.BillSplit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.splits[arg.ID]
	if !ok || b.OwnerID != arg.OwnerID {
		return database.BillSplit{}, pgx.ErrNoRows
	}
	return b, nil
}

func (m *memStore) UpdateBillSplitPayment(ctx context.Context, arg database.UpdateBillSplitPaymentParams) (database.BillSplit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.splits[arg.ID]
	if !ok {
		return database.BillSplit{}, pgx.ErrNoRows
	}
	b.PaidAmount = arg.PaidAmount
	b.Status = arg.Status
	m.splits[b.ID] = b
	return b, nil
}

// --- Service constructors ---

func newTestOrderService(store *memStore) *OrderService {
	return NewOrderService(&mockTxBeginner{}, func(db database.DBTX) OrderStore { return store })
}

func newTestPaymentService(store *memStore) *PaymentService {
	return NewPaymentService(&mockTxBeginner{}, func(db database.DBTX) PaymentStore { return store })
}

func newTestBillSplitService(store *memStore) *BillSplitService {
	return NewBillSplitService(&mockTxBeginner{}, func(db database.DBTX) BillSplitStore { return store })
}
