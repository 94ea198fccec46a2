//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dinein-pos/api/internal/config"
	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/router"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow runs a full dine-in service against a real PostgreSQL
// database: menu setup, a staff-seated table, a customer QR session, the
// kitchen board, payment and checkout.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr := setupPostgresContainer(t, ctx)
	require.NoError(t, database.Migrate(connStr), "run migrations")

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err, "create pool")
	defer pool.Close()

	cfg := &config.Config{
		Port:          "8081",
		DatabaseURL:   connStr,
		JWTSecret:     "integration-test-secret",
		PublicBaseURL: "http://menu.test",
	}
	hub := ws.NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(router.New(cfg, database.New(pool), pool, hub))
	defer server.Close()
	api := &apiClient{t: t, base: server.URL}

	// --- 1. Owner signs up ---
	status, body := api.do("POST", "/auth/register", map[string]interface{}{
		"email":          "owner@test.com",
		"password":       "password123",
		"fullName":       "Test Owner",
		"restaurantName": "Test Bistro",
	})
	require.Equal(t, http.StatusCreated, status, "register: %v", body)
	api.token = body.(map[string]interface{})["accessToken"].(string)

	// --- 2. Floor and menu ---
	table1 := api.mustCreate("/tables", map[string]interface{}{"number": 1})
	table2 := api.mustCreate("/tables", map[string]interface{}{"number": 2, "capacity": 6})
	category := api.mustCreate("/categories", map[string]interface{}{"name": "Mains"})
	burger := api.mustCreate("/menu-items", map[string]interface{}{
		"categoryId": category["id"],
		"name":       "Burger",
		"price":      10,
	})
	size := api.mustCreate(fmt.Sprintf("/menu-items/%s/selections", burger["id"]), map[string]interface{}{
		"name":       "Size",
		"isRequired": true,
		"options": []map[string]interface{}{
			{"name": "Regular", "priceAdd": 0},
			{"name": "Large", "priceAdd": 2},
		},
	})
	options := size["options"].([]interface{})
	require.Len(t, options, 2)
	large, regular := optionNamed(t, options, "Large"), optionNamed(t, options, "Regular")

	status, _ = api.do("POST", "/tables", map[string]interface{}{"number": 1})
	assert.Equal(t, http.StatusBadRequest, status, "duplicate table number")

	// --- 3. Staff seats table 1 and orders ---
	seated := api.mustCreate("/sessions", map[string]interface{}{"tableId": table1["id"], "partySize": 2, "customerName": "Alice"})
	sessionID := seated["id"].(string)
	assert.Equal(t, "STAFF", seated["origin"])

	status, body = api.do("POST", "/orders", map[string]interface{}{
		"sessionId": sessionID,
		"items":     []map[string]interface{}{{"menuItemId": burger["id"], "quantity": 2}},
	})
	assert.Equal(t, http.StatusBadRequest, status, "missing required selection: %v", body)

	order := api.mustCreate("/orders", map[string]interface{}{
		"sessionId": sessionID,
		"items": []map[string]interface{}{{
			"menuItemId": burger["id"],
			"quantity":   2,
			"price":      12,
			"selections": []map[string]interface{}{{"selectionId": size["id"], "optionIds": []interface{}{large["id"]}}},
		}},
	})
	assert.Equal(t, 24.0, order["totalAmount"], "(10 + 2) x 2")
	assert.Equal(t, "PENDING", order["status"])

	// --- 4. Kitchen board walks the order to DELIVERED ---
	for _, action := range []string{"confirm", "start_preparing", "mark_ready", "mark_delivered"} {
		status, body = api.do("PATCH", "/dashboard/orders", map[string]interface{}{"orderId": order["id"], "action": action})
		require.Equal(t, http.StatusOK, status, "%s: %v", action, body)
	}
	assert.Equal(t, "DELIVERED", body.(map[string]interface{})["status"])

	status, _ = api.do("PATCH", "/dashboard/orders", map[string]interface{}{"orderId": order["id"], "action": "confirm"})
	assert.Equal(t, http.StatusBadRequest, status, "no transition out of DELIVERED")

	// --- 5. Customer scans table 2 ---
	public := &apiClient{t: t, base: server.URL}
	status, body = public.do("POST", fmt.Sprintf("/public/tables/%s/sessions", table2["id"]), map[string]interface{}{"guestCount": 3, "customerName": "Bob"})
	require.Equal(t, http.StatusCreated, status, "start qr session: %v", body)
	qrSession := body.(map[string]interface{})
	token := qrSession["sessionToken"].(string)
	assert.Equal(t, "QR", qrSession["origin"])

	status, body = public.do("POST", fmt.Sprintf("/public/tables/%s/sessions", table2["id"]), nil)
	require.Equal(t, http.StatusOK, status, "second scan joins")
	assert.Equal(t, qrSession["id"], body.(map[string]interface{})["id"])

	status, body = public.do("GET", "/public/sessions/"+token+"/menu", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.([]interface{}), 1)

	status, body = public.do("POST", "/public/sessions/"+token+"/orders", map[string]interface{}{
		"items": []map[string]interface{}{{
			"menuItemId": burger["id"],
			"quantity":   1,
			"selections": []map[string]interface{}{{"selectionId": size["id"], "optionIds": []interface{}{regular["id"]}}},
		}},
	})
	require.Equal(t, http.StatusCreated, status, "public order: %v", body)
	publicOrder := body.(map[string]interface{})
	assert.Nil(t, publicOrder["waiterId"])
	assert.Equal(t, qrSession["id"], publicOrder["sessionId"])

	status, _ = public.do("GET", "/public/sessions/not-a-token", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// --- 6. Checkout table 1 ---
	status, body = api.do("GET", "/sessions/"+sessionID+"/checkout", nil)
	require.Equal(t, http.StatusOK, status)
	summary := body.(map[string]interface{})
	assert.Equal(t, 24.0, summary["subtotal"])
	assert.Equal(t, 24.0, summary["remainingAmount"])

	payment := api.mustCreate("/sessions/"+sessionID+"/payments", map[string]interface{}{
		"paymentMethod":  "CASH",
		"totalAmount":    24,
		"finalAmount":    24,
		"receivedAmount": 30,
	})
	assert.Equal(t, 6.0, payment["changeAmount"])
	assert.Equal(t, "Test Bistro", payment["restaurantName"])

	status, body = api.do("GET", fmt.Sprintf("/payments/%s/receipt", payment["id"]), nil)
	require.Equal(t, http.StatusOK, status, "receipt: %v", body)

	status, body = api.do("POST", "/sessions/"+sessionID+"/checkout", nil)
	require.Equal(t, http.StatusOK, status, "checkout: %v", body)
	assert.Equal(t, "COMPLETED", body.(map[string]interface{})["status"])

	status, _ = api.do("POST", "/sessions/"+sessionID+"/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, status, "double checkout")

	// --- 7. Referenced rows are protected ---
	status, _ = api.do("DELETE", fmt.Sprintf("/tables/%s", table1["id"]), nil)
	assert.Equal(t, http.StatusBadRequest, status, "table with orders")
	status, _ = api.do("DELETE", fmt.Sprintf("/menu-items/%s", burger["id"]), nil)
	assert.Equal(t, http.StatusBadRequest, status, "menu item with orders")

	// A table whose only history is a completed session can go.
	table3 := api.mustCreate("/tables", map[string]interface{}{"number": 3})
	visit := api.mustCreate("/sessions", map[string]interface{}{"tableId": table3["id"], "partySize": 1})
	status, _ = api.do("DELETE", fmt.Sprintf("/tables/%s", table3["id"]), nil)
	assert.Equal(t, http.StatusBadRequest, status, "table with an active session")
	status, body = api.do("POST", fmt.Sprintf("/sessions/%s/checkout", visit["id"]), nil)
	require.Equal(t, http.StatusOK, status, "checkout empty visit: %v", body)
	status, body = api.do("DELETE", fmt.Sprintf("/tables/%s", table3["id"]), nil)
	assert.Equal(t, http.StatusNoContent, status, "table with completed sessions only: %v", body)
	status, body = api.do("GET", fmt.Sprintf("/sessions/%s", visit["id"]), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body.(map[string]interface{})["tableId"], "session keeps its history without the table")

	// --- 8. Daily summary sees the payment ---
	status, body = api.do("GET", "/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 24.0, body.(map[string]interface{})["revenue"])
	assert.Equal(t, 1.0, body.(map[string]interface{})["activeSessions"], "QR session still open")
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dinein_test"),
		tcpostgres.WithUsername("dinein"),
		tcpostgres.WithPassword("dinein"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "get connection string")
	return connStr
}

func optionNamed(t *testing.T, options []interface{}, name string) map[string]interface{} {
	t.Helper()
	for _, o := range options {
		if m := o.(map[string]interface{}); m["name"] == name {
			return m
		}
	}
	t.Fatalf("option %q not found in %v", name, options)
	return nil
}

// --- HTTP helpers ---

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

// do sends a JSON request and decodes any JSON response body.
func (c *apiClient) do(method, path string, body interface{}) (int, interface{}) {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err, "marshal body")
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err, "create request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err, "%s %s", method, path)
	defer resp.Body.Close()

	var out interface{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func (c *apiClient) mustCreate(path string, body map[string]interface{}) map[string]interface{} {
	c.t.Helper()
	status, out := c.do("POST", path, body)
	require.Equal(c.t, http.StatusCreated, status, "POST %s: %v", path, out)
	return out.(map[string]interface{})
}
