package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/dinein-pos/api/internal/handler"
	"github.com/dinein-pos/api/internal/service"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type mockQRSessionStarter struct {
	startFn func(ctx context.Context, tableID uuid.UUID, partySize int32, customerName string) (database.Session, bool, error)
}

func (m *mockQRSessionStarter) StartQRSession(ctx context.Context, tableID uuid.UUID, partySize int32, customerName string) (database.Session, bool, error) {
	return m.startFn(ctx, tableID, partySize, customerName)
}

type mockPublicStore struct {
	sessions   map[string]database.Session
	orders     []database.Order
	items      []database.OrderItem
	categories []database.ListCategoriesRow
	menuItems  []database.MenuItem
	selections map[uuid.UUID][]database.Selection
	options    map[uuid.UUID][]database.SelectionOption
}

func newMockPublicStore() *mockPublicStore {
	return &mockPublicStore{
		sessions:   make(map[string]database.Session),
		selections: make(map[uuid.UUID][]database.Selection),
		options:    make(map[uuid.UUID][]database.SelectionOption),
	}
}

func (m *mockPublicStore) GetSessionByToken(_ context.Context, token string) (database.Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return database.Session{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockPublicStore) ListOrdersBySession(_ context.Context, arg database.ListOrdersBySessionParams) ([]database.Order, error) {
	out := []database.Order{}
	for _, o := range m.orders {
		if o.OwnerID == arg.OwnerID && o.SessionID.Valid && o.SessionID.Bytes == arg.SessionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockPublicStore) ListOrderItemsByOrders(_ context.Context, ids []uuid.UUID) ([]database.OrderItem, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []database.OrderItem{}
	for _, it := range m.items {
		if want[it.OrderID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockPublicStore) ListCategories(context.Context, uuid.UUID) ([]database.ListCategoriesRow, error) {
	return m.categories, nil
}

func (m *mockPublicStore) ListMenuItems(context.Context, database.ListMenuItemsParams) ([]database.MenuItem, error) {
	return m.menuItems, nil
}

func (m *mockPublicStore) ListSelectionsByMenuItem(_ context.Context, menuItemID uuid.UUID) ([]database.Selection, error) {
	return m.selections[menuItemID], nil
}

func (m *mockPublicStore) ListOptionsBySelection(_ context.Context, selectionID uuid.UUID) ([]database.SelectionOption, error) {
	return m.options[selectionID], nil
}

type publicFixture struct {
	sessions *mockQRSessionStarter
	orders   *mockOrderService
	store    *mockPublicStore
	events   *recordingPublisher
}

func newPublicFixture() *publicFixture {
	return &publicFixture{
		sessions: &mockQRSessionStarter{},
		orders:   &mockOrderService{},
		store:    newMockPublicStore(),
		events:   &recordingPublisher{},
	}
}

func (f *publicFixture) router() *chi.Mux {
	r := chi.NewRouter()
	h := handler.NewPublicHandler(f.sessions, f.orders, f.store, f.events)
	r.Route("/public", h.RegisterRoutes)
	return r
}

func makeQRSession(ownerID uuid.UUID, token string) database.Session {
	s := makeSession(ownerID)
	s.Origin = enum.SessionOriginQR
	s.SessionToken = pgtype.Text{String: token, Valid: true}
	s.TableID = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	return s
}

// --- Tests ---

func TestPublicStartSession_Created(t *testing.T) {
	tableID := uuid.New()
	f := newPublicFixture()
	f.sessions.startFn = func(_ context.Context, id uuid.UUID, partySize int32, name string) (database.Session, bool, error) {
		if id != tableID || partySize != 3 || name != "Dana" {
			t.Errorf("args: %v %d %q", id, partySize, name)
		}
		return makeQRSession(uuid.New(), "tok-new"), false, nil
	}

	rr := doRequest(t, f.router(), "POST", "/public/tables/"+tableID.String()+"/sessions", map[string]interface{}{
		"guestCount":   3,
		"customerName": "Dana",
	})
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["joined"] != false || resp["sessionToken"] != "tok-new" {
		t.Errorf("response: %v", resp)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != ws.EventSessionUpdated {
		t.Errorf("events: got %v", got)
	}
}

func TestPublicStartSession_JoinsExisting(t *testing.T) {
	f := newPublicFixture()
	f.sessions.startFn = func(context.Context, uuid.UUID, int32, string) (database.Session, bool, error) {
		return makeQRSession(uuid.New(), "tok-live"), true, nil
	}

	// No body at all is accepted.
	rr := doRequest(t, f.router(), "POST", "/public/tables/"+uuid.NewString()+"/sessions", nil)
	assertStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["joined"] != true {
		t.Errorf("joined: got %v", resp["joined"])
	}
	if len(f.events.types()) != 0 {
		t.Error("join must not publish")
	}
}

func TestPublicStartSession_Errors(t *testing.T) {
	f := newPublicFixture()
	f.sessions.startFn = func(context.Context, uuid.UUID, int32, string) (database.Session, bool, error) {
		return database.Session{}, false, service.ErrTableNotFound
	}
	router := f.router()

	rr := doRequest(t, router, "POST", "/public/tables/not-a-uuid/sessions", nil)
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "invalid table ID")

	rr = doRequest(t, router, "POST", "/public/tables/"+uuid.NewString()+"/sessions", map[string]interface{}{"guestCount": -1})
	assertStatus(t, rr, http.StatusBadRequest)

	rr = doRequest(t, router, "POST", "/public/tables/"+uuid.NewString()+"/sessions", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestPublicGetSession_WithOrders(t *testing.T) {
	f := newPublicFixture()
	s := makeQRSession(uuid.New(), "tok")
	f.store.sessions["tok"] = s
	o := testOrder(s.OwnerID, enum.OrderStatusPending)
	o.SessionID = pgtype.UUID{Bytes: s.ID, Valid: true}
	empty := testOrder(s.OwnerID, enum.OrderStatusCancelled)
	empty.SessionID = o.SessionID
	f.store.orders = []database.Order{o, empty, testOrder(s.OwnerID, enum.OrderStatusPending)}
	f.store.items = []database.OrderItem{{ID: uuid.New(), OrderID: o.ID, Quantity: 1, Price: dec("9")}}

	rr := doRequest(t, f.router(), "GET", "/public/sessions/tok", nil)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 2 {
		t.Fatalf("orders: got %d, want 2", len(orders))
	}
	if items := orders[0].(map[string]interface{})["items"].([]interface{}); len(items) != 1 {
		t.Errorf("items: got %d", len(items))
	}
}

func TestPublicGetSession_UnknownToken(t *testing.T) {
	rr := doRequest(t, newPublicFixture().router(), "GET", "/public/sessions/nope", nil)
	assertStatus(t, rr, http.StatusNotFound)
	assertError(t, rr, "session not found")
}

func TestPublicMenu_OnlyOrderableItems(t *testing.T) {
	f := newPublicFixture()
	s := makeQRSession(uuid.New(), "tok")
	f.store.sessions["tok"] = s

	mains := makeCategory(s.OwnerID, "Mains")
	hidden := makeCategory(s.OwnerID, "Seasonal")
	hidden.IsActive = false
	emptyCat := makeCategory(s.OwnerID, "Desserts")
	f.store.categories = []database.ListCategoriesRow{{Category: mains}, {Category: hidden}, {Category: emptyCat}}

	burger := database.MenuItem{ID: uuid.New(), OwnerID: s.OwnerID, CategoryID: mains.ID, Name: "Burger", Price: dec("10"), IsActive: true, IsAvailable: true}
	soldOut := database.MenuItem{ID: uuid.New(), OwnerID: s.OwnerID, CategoryID: mains.ID, Name: "Ribs", Price: dec("20"), IsActive: true}
	seasonal := database.MenuItem{ID: uuid.New(), OwnerID: s.OwnerID, CategoryID: hidden.ID, Name: "Soup", Price: dec("5"), IsActive: true, IsAvailable: true}
	retired := database.MenuItem{ID: uuid.New(), OwnerID: s.OwnerID, CategoryID: emptyCat.ID, Name: "Flan", Price: dec("4"), IsAvailable: true}
	f.store.menuItems = []database.MenuItem{burger, soldOut, seasonal, retired}

	sel := database.Selection{ID: uuid.New(), MenuItemID: burger.ID, Name: "Cheese"}
	f.store.selections[burger.ID] = []database.Selection{sel}
	f.store.options[sel.ID] = []database.SelectionOption{
		{ID: uuid.New(), SelectionID: sel.ID, Name: "Cheddar", IsAvailable: true},
		{ID: uuid.New(), SelectionID: sel.ID, Name: "Brie"},
	}

	rr := doRequest(t, f.router(), "GET", "/public/sessions/tok/menu", nil)
	assertStatus(t, rr, http.StatusOK)

	list := decodeList(t, rr)
	if len(list) != 1 || list[0]["name"] != "Mains" {
		t.Fatalf("categories: got %v", list)
	}
	items := list[0]["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want only the available one", len(items))
	}
	sels := items[0].(map[string]interface{})["selections"].([]interface{})
	opts := sels[0].(map[string]interface{})["options"].([]interface{})
	if len(opts) != 1 || opts[0].(map[string]interface{})["name"] != "Cheddar" {
		t.Errorf("options: got %v", opts)
	}
	if len(f.store.options[sel.ID]) != 2 {
		t.Error("filtering must not mutate stored options")
	}
}

func TestPublicCreateOrder_UsesSession(t *testing.T) {
	f := newPublicFixture()
	s := makeQRSession(uuid.New(), "tok")
	f.store.sessions["tok"] = s
	f.orders.createFn = func(_ context.Context, req service.CreateOrderRequest) (*service.OrderResult, error) {
		if req.OwnerID != s.OwnerID || req.WaiterID != uuid.Nil {
			t.Errorf("owner/waiter: %v %v", req.OwnerID, req.WaiterID)
		}
		if req.SessionID != s.ID.String() || req.TableID != "" {
			t.Errorf("session/table: %q %q", req.SessionID, req.TableID)
		}
		if req.CustomerName != "Alice" {
			t.Errorf("customer name defaults to the session's: got %q", req.CustomerName)
		}
		return testOrderResult(req.OwnerID), nil
	}

	rr := doRequest(t, f.router(), "POST", "/public/sessions/tok/orders", map[string]interface{}{
		"sessionId": uuid.NewString(),
		"tableId":   uuid.NewString(),
		"items":     []map[string]interface{}{{"menuItemId": uuid.NewString(), "quantity": 1}},
	})
	assertStatus(t, rr, http.StatusCreated)
	if got := f.events.types(); len(got) != 1 || got[0] != ws.EventOrderCreated {
		t.Errorf("events: got %v", got)
	}
}

func TestPublicCreateOrder_ClosedSession(t *testing.T) {
	f := newPublicFixture()
	s := makeQRSession(uuid.New(), "tok")
	s.IsActive = false
	s.Status = enum.SessionStatusCompleted
	f.store.sessions["tok"] = s

	rr := doRequest(t, f.router(), "POST", "/public/sessions/tok/orders", map[string]interface{}{"items": []interface{}{}})
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, service.ErrSessionClosed.Error())
}
