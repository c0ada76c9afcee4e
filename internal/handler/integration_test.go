//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/innstay/api/internal/cart"
	"github.com/innstay/api/internal/config"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/events"
	"github.com/innstay/api/internal/router"
	"github.com/innstay/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the hotel and restaurant flows against a real
// PostgreSQL database with every handler wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:               "8081",
		DatabaseURL:        connStr,
		JWTSecret:          "integration-test-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		PublicBaseURL:      "http://guest.test",
		DefaultPrepMinutes: 20,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run(ctx) //nolint:errcheck
	notifier := events.NewNotifier(events.NewLogPublisher(logger), logger)
	carts := cart.NewStore(time.Hour, 0)

	server := httptest.NewServer(router.New(cfg, logger, queries, pool, hub, notifier, carts))
	defer server.Close()

	// --- 1. Bootstrap an admin and log in ---
	createAdminUser(t, ctx, pool)
	admin := login(t, server, "admin@test.com", "password123")

	// --- 2. Admin sets up a room, a dish and a table ---
	room := httpPostJSON(t, server, "/rooms", map[string]interface{}{
		"number": "101", "room_type": "DOUBLE", "price_per_night": "650000", "capacity": 2,
	}, admin)
	roomID := room["id"].(string)

	dish := httpPostJSON(t, server, "/menu-items", map[string]interface{}{
		"name": "Nasi Goreng", "category": "Mains", "price": "45000", "prep_minutes": 15,
	}, admin)
	dishID := dish["id"].(string)

	table := httpPostJSON(t, server, "/tables", map[string]interface{}{"number": 5, "capacity": 4}, admin)
	tableToken := table["qr_token"].(string)

	// --- 3. Admin creates a receptionist and a kitchen account ---
	httpPostJSON(t, server, "/staff", map[string]interface{}{
		"email": "desk@test.com", "password": "password123", "full_name": "Front Desk", "role": "RECEPTIONIST",
	}, admin)
	httpPostJSON(t, server, "/staff", map[string]interface{}{
		"email": "chef@test.com", "password": "password123", "full_name": "Chef", "role": "KITCHEN",
	}, admin)
	desk := login(t, server, "desk@test.com", "password123")
	chef := login(t, server, "chef@test.com", "password123")

	// --- 4. A guest books the room for three nights ---
	checkIn := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	checkOut := time.Now().AddDate(0, 1, 3).Format("2006-01-02")
	avail := httpGetJSON(t, server, fmt.Sprintf("/public/rooms/%s/availability?check_in=%s&check_out=%s", roomID, checkIn, checkOut), "")
	if avail["available"] != true || avail["total"] != "1950000.00" {
		t.Fatalf("availability: got %v", avail)
	}

	booking := httpPostJSON(t, server, "/public/bookings", map[string]interface{}{
		"room_id": roomID, "guest_name": "Sari", "guest_email": "sari@example.com",
		"check_in": checkIn, "check_out": checkOut, "guests": 2,
	}, "")
	bookingID := booking["id"].(string)
	if booking["total_amount"] != "1950000.00" {
		t.Fatalf("booking total: got %v", booking["total_amount"])
	}

	// Overlapping stays are refused.
	status := httpStatus(t, server, "POST", "/public/bookings", map[string]interface{}{
		"room_id": roomID, "guest_name": "Budi", "guest_email": "budi@example.com",
		"check_in": checkIn, "check_out": checkOut, "guests": 1,
	}, "")
	if status != http.StatusConflict {
		t.Fatalf("double booking: got %d, want 409", status)
	}

	// --- 5. Front desk takes the booking payment ---
	paid := httpPostJSON(t, server, "/payments", map[string]interface{}{
		"booking_id": bookingID, "method": "CARD", "amount": "1950000",
	}, desk)
	if balance := paid["balance"].(map[string]interface{}); balance["remaining"] != "0.00" {
		t.Fatalf("booking balance: got %v", balance)
	}

	// --- 6. A diner orders from the table QR code ---
	order := httpPostJSON(t, server, "/public/orders", map[string]interface{}{
		"table_token": tableToken,
		"items":       []map[string]interface{}{{"menu_item_id": dishID, "quantity": 2}},
	}, "")
	orderID := order["id"].(string)
	if order["status"] != "PENDING" || order["total_amount"] != "90000.00" {
		t.Fatalf("guest order: got %v", order)
	}
	if order["tracking_url"] == nil {
		t.Fatal("guest order should carry a tracking url")
	}

	// --- 7. The order moves through the kitchen ---
	for _, step := range []struct {
		action, token, want string
	}{
		{"accept", desk, "NEW"},
		{"start_cooking", chef, "PREPARING"},
		{"mark_ready", chef, "READY"},
	} {
		resp := httpPostJSON(t, server, "/orders/"+orderID+"/status", map[string]interface{}{"action": step.action}, step.token)
		if resp["status"] != step.want {
			t.Fatalf("%s: got %v, want %s", step.action, resp["status"], step.want)
		}
	}

	// The kitchen cannot close the bill.
	if status := httpStatus(t, server, "POST", "/orders/"+orderID+"/status", map[string]interface{}{"action": "complete"}, chef); status != http.StatusForbidden {
		t.Fatalf("kitchen complete: got %d, want 403", status)
	}

	tracking := httpGetJSON(t, server, "/orders/"+orderID+"/tracking", "")
	if tracking["status"] != "READY" {
		t.Fatalf("tracking status: got %v", tracking["status"])
	}

	// --- 8. Split payment, then completion ---
	httpPostJSON(t, server, "/payments", map[string]interface{}{
		"order_id": orderID, "method": "CASH", "amount": "50000", "amount_received": "100000",
	}, desk)
	last := httpPostJSON(t, server, "/payments", map[string]interface{}{
		"order_id": orderID, "method": "QRIS", "amount": "40000", "reference": "QRIS-REF-1",
	}, desk)
	if balance := last["balance"].(map[string]interface{}); balance["paid"] != "90000.00" || balance["remaining"] != "0.00" {
		t.Fatalf("order balance: got %v", balance)
	}

	done := httpPostJSON(t, server, "/orders/"+orderID+"/status", map[string]interface{}{"action": "complete"}, desk)
	if done["status"] != "COMPLETED" {
		t.Fatalf("complete: got %v", done["status"])
	}

	// --- 9. Reports pick up the completed order ---
	today := time.Now().UTC().Format("2006-01-02")
	summary := httpGetJSON(t, server, "/reports/summary?start_date="+today+"&end_date="+today, admin)
	if summary["completed_count"] != float64(1) || summary["order_revenue"] != "90000.00" {
		t.Fatalf("summary: got %v", summary)
	}

	t.Logf("integration flow passed: container=%s room=%s booking=%s order=%s",
		pgContainer.GetContainerID(), roomID, bookingID, orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("innstay_test"),
		tcpostgres.WithUsername("innstay"),
		tcpostgres.WithPassword("innstay"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (email, hashed_password, full_name, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		"admin@test.com", string(hashedPassword), "Test Admin", "ADMIN",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

// --- HTTP helpers ---

func httpDo(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	resp := httpDo(t, server, method, path, body, token)
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("%s %s: status %d, body: %v", method, path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	return httpJSON(t, server, "POST", path, body, token)
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	return httpJSON(t, server, "GET", path, nil, token)
}

func httpStatus(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) int {
	t.Helper()
	resp := httpDo(t, server, method, path, body, token)
	resp.Body.Close()
	return resp.StatusCode
}
