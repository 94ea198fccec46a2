package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/enum"
	"github.com/dinein-pos/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mock TableStore ---

type mockTableStore struct {
	tables       map[uuid.UUID]database.DiningTable
	createFn     func(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error)
	updateFn     func(ctx context.Context, arg database.UpdateTableParams) (database.DiningTable, error)
	refsFn       func(ctx context.Context, tableID uuid.UUID) (int64, error)
	sessionsFn   func(ctx context.Context, arg database.ListSessionsParams) ([]database.Session, error)
	deleteErr    error
	deleteCalled bool
}

func newMockTableStore(tables ...database.DiningTable) *mockTableStore {
	m := &mockTableStore{tables: make(map[uuid.UUID]database.DiningTable)}
	for _, t := range tables {
		m.tables[t.ID] = t
	}
	return m
}

func (m *mockTableStore) ListTables(_ context.Context, ownerID uuid.UUID) ([]database.DiningTable, error) {
	out := []database.DiningTable{}
	for _, t := range m.tables {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTableStore) GetTable(_ context.Context, arg database.GetTableParams) (database.DiningTable, error) {
	t, ok := m.tables[arg.ID]
	if !ok || t.OwnerID != arg.OwnerID {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *mockTableStore) GetTableByNumber(_ context.Context, arg database.GetTableByNumberParams) (database.DiningTable, error) {
	for _, t := range m.tables {
		if t.OwnerID == arg.OwnerID && t.Number == arg.Number {
			return t, nil
		}
	}
	return database.DiningTable{}, pgx.ErrNoRows
}

func (m *mockTableStore) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.DiningTable{
		ID: uuid.New(), OwnerID: arg.OwnerID, Number: arg.Number, Name: arg.Name,
		Capacity: arg.Capacity, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}, nil
}

func (m *mockTableStore) UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.DiningTable, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	return database.DiningTable{ID: arg.ID, OwnerID: arg.OwnerID, Number: arg.Number, Name: arg.Name, Capacity: arg.Capacity, IsActive: arg.IsActive}, nil
}

func (m *mockTableStore) CountTableReferences(ctx context.Context, tableID uuid.UUID) (int64, error) {
	if m.refsFn != nil {
		return m.refsFn(ctx, tableID)
	}
	return 0, nil
}

func (m *mockTableStore) DeleteTable(_ context.Context, arg database.DeleteTableParams) (uuid.UUID, error) {
	m.deleteCalled = true
	if m.deleteErr != nil {
		return uuid.Nil, m.deleteErr
	}
	return arg.ID, nil
}

func (m *mockTableStore) ListSessions(ctx context.Context, arg database.ListSessionsParams) ([]database.Session, error) {
	if m.sessionsFn != nil {
		return m.sessionsFn(ctx, arg)
	}
	return []database.Session{}, nil
}

func setupTableRouter(store *mockTableStore) *chi.Mux {
	h := handler.NewTableHandler(store)
	return authRouter("/tables", h.RegisterRoutes)
}

func makeTable(ownerID uuid.UUID, number int32) database.DiningTable {
	return database.DiningTable{ID: uuid.New(), OwnerID: ownerID, Number: number, Capacity: 4, IsActive: true}
}

// --- Tests ---

func TestTableCreate_DefaultCapacity(t *testing.T) {
	claims := ownerClaims()
	var got database.CreateTableParams
	store := newMockTableStore()
	store.createFn = func(_ context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
		got = arg
		return database.DiningTable{ID: uuid.New(), OwnerID: arg.OwnerID, Number: arg.Number, Capacity: arg.Capacity}, nil
	}

	rr := doAuthRequest(t, setupTableRouter(store), "POST", "/tables", map[string]interface{}{"number": 7}, claims)
	assertStatus(t, rr, http.StatusCreated)

	if got.Capacity != 4 {
		t.Errorf("capacity: got %d, want default 4", got.Capacity)
	}
	if got.OwnerID != claims.OwnerID {
		t.Errorf("owner: got %v, want %v", got.OwnerID, claims.OwnerID)
	}
}

func TestTableCreate_DuplicateNumber(t *testing.T) {
	claims := ownerClaims()
	store := newMockTableStore(makeTable(claims.OwnerID, 3))

	rr := doAuthRequest(t, setupTableRouter(store), "POST", "/tables", map[string]interface{}{"number": 3}, claims)
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "table number already exists")
}

func TestTableCreate_SameNumberOtherOwner(t *testing.T) {
	claims := ownerClaims()
	store := newMockTableStore(makeTable(uuid.New(), 3))

	rr := doAuthRequest(t, setupTableRouter(store), "POST", "/tables", map[string]interface{}{"number": 3}, claims)
	assertStatus(t, rr, http.StatusCreated)
}

func TestTableCreate_StaffForbidden(t *testing.T) {
	claims := staffClaims(uuid.New(), enum.UserRoleWaiter)

	rr := doAuthRequest(t, setupTableRouter(newMockTableStore()), "POST", "/tables", map[string]interface{}{"number": 1}, claims)
	assertStatus(t, rr, http.StatusForbidden)
}

func TestTableGet_IncludesActiveSessions(t *testing.T) {
	claims := staffClaims(uuid.New(), enum.UserRoleWaiter)
	table := makeTable(claims.OwnerID, 5)
	store := newMockTableStore(table)
	store.sessionsFn = func(_ context.Context, arg database.ListSessionsParams) ([]database.Session, error) {
		if !arg.IsActive.Valid || !arg.IsActive.Bool {
			t.Error("expected active filter")
		}
		if arg.TableID.Bytes != table.ID {
			t.Errorf("table filter: got %v, want %v", arg.TableID, table.ID)
		}
		return []database.Session{
			{ID: uuid.New(), OwnerID: claims.OwnerID, Origin: enum.SessionOriginStaff, TableID: pgtype.UUID{Bytes: table.ID, Valid: true}, IsActive: true},
			{ID: uuid.New(), OwnerID: claims.OwnerID, Origin: enum.SessionOriginQR, TableID: pgtype.UUID{Bytes: table.ID, Valid: true}, IsActive: true},
		}, nil
	}

	rr := doAuthRequest(t, setupTableRouter(store), "GET", "/tables/"+table.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	sessions := resp["activeSessions"].([]interface{})
	if len(sessions) != 2 {
		t.Fatalf("active sessions: got %d, want 2", len(sessions))
	}
	if resp["number"] != float64(5) {
		t.Errorf("number: got %v", resp["number"])
	}
}

func TestTableGet_OtherOwner(t *testing.T) {
	table := makeTable(uuid.New(), 1)
	rr := doAuthRequest(t, setupTableRouter(newMockTableStore(table)), "GET", "/tables/"+table.ID.String(), nil, ownerClaims())
	assertStatus(t, rr, http.StatusNotFound)
}

func TestTableUpdate_KeepOwnNumber(t *testing.T) {
	claims := ownerClaims()
	table := makeTable(claims.OwnerID, 2)
	store := newMockTableStore(table)

	rr := doAuthRequest(t, setupTableRouter(store), "PUT", "/tables/"+table.ID.String(), map[string]interface{}{
		"number":   2,
		"capacity": 6,
	}, claims)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["capacity"] != float64(6) {
		t.Errorf("capacity: got %v, want 6", resp["capacity"])
	}
}

func TestTableUpdate_NullNameClears(t *testing.T) {
	claims := ownerClaims()
	table := makeTable(claims.OwnerID, 2)
	table.Name = pgtype.Text{String: "Window", Valid: true}
	store := newMockTableStore(table)
	var got database.UpdateTableParams
	store.updateFn = func(_ context.Context, arg database.UpdateTableParams) (database.DiningTable, error) {
		got = arg
		return database.DiningTable{ID: arg.ID, OwnerID: arg.OwnerID, Name: arg.Name}, nil
	}

	rr := doAuthRequest(t, setupTableRouter(store), "PUT", "/tables/"+table.ID.String(), map[string]interface{}{"name": nil}, claims)
	assertStatus(t, rr, http.StatusOK)
	if got.Name.Valid {
		t.Errorf("name: got %v, want cleared", got.Name)
	}
	if got.Number != 2 || got.Capacity != 4 {
		t.Errorf("absent fields changed: %+v", got)
	}
}

func TestTableDelete_Referenced(t *testing.T) {
	claims := ownerClaims()
	table := makeTable(claims.OwnerID, 9)
	store := newMockTableStore(table)
	store.refsFn = func(context.Context, uuid.UUID) (int64, error) { return 1, nil }

	rr := doAuthRequest(t, setupTableRouter(store), "DELETE", "/tables/"+table.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "table is referenced by orders or active sessions")
	if store.deleteCalled {
		t.Error("referenced table must not be deleted")
	}
}

func TestTableDelete_Unreferenced(t *testing.T) {
	claims := ownerClaims()
	table := makeTable(claims.OwnerID, 9)
	store := newMockTableStore(table)

	rr := doAuthRequest(t, setupTableRouter(store), "DELETE", "/tables/"+table.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusNoContent)
	if !store.deleteCalled {
		t.Error("expected delete")
	}
}

func TestTableDelete_ForeignKeyRace(t *testing.T) {
	claims := ownerClaims()
	table := makeTable(claims.OwnerID, 9)
	store := newMockTableStore(table)
	store.deleteErr = &pgconn.PgError{Code: "23503", ConstraintName: "orders_table_id_fkey"}

	rr := doAuthRequest(t, setupTableRouter(store), "DELETE", "/tables/"+table.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "table is referenced by orders or active sessions")
}
