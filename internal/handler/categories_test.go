package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Mock CategoryStore ---

type mockCategoryStore struct {
	categories map[uuid.UUID]database.Category
	itemCounts map[uuid.UUID]int64
	deleted    []uuid.UUID
}

func newMockCategoryStore(cats ...database.Category) *mockCategoryStore {
	m := &mockCategoryStore{
		categories: make(map[uuid.UUID]database.Category),
		itemCounts: make(map[uuid.UUID]int64),
	}
	for _, c := range cats {
		m.categories[c.ID] = c
	}
	return m
}

func (m *mockCategoryStore) ListCategories(_ context.Context, ownerID uuid.UUID) ([]database.ListCategoriesRow, error) {
	out := []database.ListCategoriesRow{}
	for _, c := range m.categories {
		if c.OwnerID == ownerID {
			out = append(out, database.ListCategoriesRow{Category: c, MenuItemCount: m.itemCounts[c.ID]})
		}
	}
	return out, nil
}

func (m *mockCategoryStore) GetCategory(_ context.Context, arg database.GetCategoryParams) (database.Category, error) {
	c, ok := m.categories[arg.ID]
	if !ok || c.OwnerID != arg.OwnerID {
		return database.Category{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockCategoryStore) GetCategoryByName(_ context.Context, arg database.GetCategoryByNameParams) (database.Category, error) {
	for _, c := range m.categories {
		if c.OwnerID == arg.OwnerID && strings.EqualFold(c.Name, arg.Name) {
			return c, nil
		}
	}
	return database.Category{}, pgx.ErrNoRows
}

func (m *mockCategoryStore) CreateCategory(_ context.Context, arg database.CreateCategoryParams) (database.Category, error) {
	c := database.Category{
		ID: uuid.New(), OwnerID: arg.OwnerID, Name: arg.Name, Description: arg.Description,
		SortOrder: arg.SortOrder, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCategoryStore) UpdateCategory(_ context.Context, arg database.UpdateCategoryParams) (database.Category, error) {
	c := database.Category{
		ID: arg.ID, OwnerID: arg.OwnerID, Name: arg.Name, Description: arg.Description,
		IsActive: arg.IsActive, SortOrder: arg.SortOrder,
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCategoryStore) CountMenuItemsByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	return m.itemCounts[categoryID], nil
}

func (m *mockCategoryStore) DeleteCategory(_ context.Context, arg database.DeleteCategoryParams) (uuid.UUID, error) {
	m.deleted = append(m.deleted, arg.ID)
	delete(m.categories, arg.ID)
	return arg.ID, nil
}

func setupCategoryRouter(store *mockCategoryStore) *chi.Mux {
	h := handler.NewCategoryHandler(store)
	return authRouter("/categories", h.RegisterRoutes)
}

func makeCategory(ownerID uuid.UUID, name string) database.Category {
	return database.Category{ID: uuid.New(), OwnerID: ownerID, Name: name, IsActive: true}
}

// --- Tests ---

func TestCategoryList_IncludesMenuItemCount(t *testing.T) {
	claims := ownerClaims()
	mains := makeCategory(claims.OwnerID, "Mains")
	store := newMockCategoryStore(mains, makeCategory(uuid.New(), "Foreign"))
	store.itemCounts[mains.ID] = 3

	rr := doAuthRequest(t, setupCategoryRouter(store), "GET", "/categories", nil, claims)
	assertStatus(t, rr, http.StatusOK)

	list := decodeList(t, rr)
	if len(list) != 1 {
		t.Fatalf("categories: got %d, want 1 (owner-scoped)", len(list))
	}
	if list[0]["menuItemCount"] != float64(3) {
		t.Errorf("menuItemCount: got %v, want 3", list[0]["menuItemCount"])
	}
}

func TestCategoryCreate_Valid(t *testing.T) {
	claims := ownerClaims()
	store := newMockCategoryStore()

	rr := doAuthRequest(t, setupCategoryRouter(store), "POST", "/categories", map[string]interface{}{
		"name":        "  Desserts ",
		"description": "Sweet things",
		"sortOrder":   2,
	}, claims)
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["name"] != "Desserts" {
		t.Errorf("name: got %v, want trimmed Desserts", resp["name"])
	}
	if resp["description"] != "Sweet things" {
		t.Errorf("description: got %v", resp["description"])
	}
	if _, ok := resp["menuItemCount"]; ok {
		t.Error("menuItemCount only appears in list responses")
	}
}

func TestCategoryCreate_MissingName(t *testing.T) {
	rr := doAuthRequest(t, setupCategoryRouter(newMockCategoryStore()), "POST", "/categories", map[string]interface{}{"description": "x"}, ownerClaims())
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "name is required")
}

func TestCategoryCreate_DuplicateName(t *testing.T) {
	claims := ownerClaims()
	store := newMockCategoryStore(makeCategory(claims.OwnerID, "Drinks"))

	rr := doAuthRequest(t, setupCategoryRouter(store), "POST", "/categories", map[string]interface{}{"name": "Drinks"}, claims)
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "category name already exists")
}

func TestCategoryCreate_InvalidBody(t *testing.T) {
	rr := doAuthRequest(t, setupCategoryRouter(newMockCategoryStore()), "POST", "/categories", "not-an-object", ownerClaims())
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "invalid request body")
}

func TestCategoryUpdate_RenameToTakenName(t *testing.T) {
	claims := ownerClaims()
	a := makeCategory(claims.OwnerID, "Starters")
	b := makeCategory(claims.OwnerID, "Mains")
	store := newMockCategoryStore(a, b)

	rr := doAuthRequest(t, setupCategoryRouter(store), "PUT", "/categories/"+a.ID.String(), map[string]interface{}{"name": "Mains"}, claims)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestCategoryUpdate_Deactivate(t *testing.T) {
	claims := ownerClaims()
	a := makeCategory(claims.OwnerID, "Starters")
	store := newMockCategoryStore(a)

	rr := doAuthRequest(t, setupCategoryRouter(store), "PUT", "/categories/"+a.ID.String(), map[string]interface{}{"isActive": false}, claims)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["isActive"] != false {
		t.Errorf("isActive: got %v", resp["isActive"])
	}
	if resp["name"] != "Starters" {
		t.Errorf("name changed: %v", resp["name"])
	}
}

func TestCategoryDelete_BlockedByMenuItems(t *testing.T) {
	claims := ownerClaims()
	c := makeCategory(claims.OwnerID, "Mains")
	store := newMockCategoryStore(c)
	store.itemCounts[c.ID] = 1

	rr := doAuthRequest(t, setupCategoryRouter(store), "DELETE", "/categories/"+c.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "category still has menu items")
	if len(store.deleted) != 0 {
		t.Error("category must not be deleted")
	}
}

func TestCategoryDelete_Empty(t *testing.T) {
	claims := ownerClaims()
	c := makeCategory(claims.OwnerID, "Seasonal")
	store := newMockCategoryStore(c)

	rr := doAuthRequest(t, setupCategoryRouter(store), "DELETE", "/categories/"+c.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusNoContent)
}
