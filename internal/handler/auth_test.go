package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/auth"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/handler"
	"github.com/innstay/api/internal/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

var testTokens = handler.TokenConfig{Secret: testSecret, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

// --- Mock store ---

type mockAuthStore struct {
	userByEmail map[string]database.User
	userByID    map[uuid.UUID]database.User
	resets      map[string]database.PasswordReset // key: token hash
	passwords   map[uuid.UUID]string
	updateErr   error
}

func newMockStore() *mockAuthStore {
	return &mockAuthStore{
		userByEmail: make(map[string]database.User),
		userByID:    make(map[uuid.UUID]database.User),
		resets:      make(map[string]database.PasswordReset),
		passwords:   make(map[uuid.UUID]string),
	}
}

func (m *mockAuthStore) addUser(u database.User) {
	m.userByEmail[strings.ToLower(u.Email)] = u
	m.userByID[u.ID] = u
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	u, ok := m.userByEmail[strings.ToLower(email)]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.userByID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	if _, ok := m.userByEmail[arg.Email]; ok {
		return database.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	u := database.User{
		ID:             uuid.New(),
		FullName:       arg.FullName,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		Phone:          arg.Phone,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.addUser(u)
	return u, nil
}

func (m *mockAuthStore) CreatePasswordReset(_ context.Context, arg database.CreatePasswordResetParams) (database.PasswordReset, error) {
	pr := database.PasswordReset{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: time.Now(),
	}
	m.resets[arg.TokenHash] = pr
	return pr, nil
}

func (m *mockAuthStore) ConsumePasswordReset(_ context.Context, tokenHash string) (database.PasswordReset, error) {
	pr, ok := m.resets[tokenHash]
	if !ok || pr.UsedAt.Valid || time.Now().After(pr.ExpiresAt) {
		return database.PasswordReset{}, pgx.ErrNoRows
	}
	pr.UsedAt.Time = time.Now()
	pr.UsedAt.Valid = true
	m.resets[tokenHash] = pr
	return pr, nil
}

func (m *mockAuthStore) UpdateUserPassword(_ context.Context, arg database.UpdateUserPasswordParams) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.passwords[arg.ID] = arg.HashedPassword
	return nil
}

// txAuthStore stages reset writes and applies them to the base store only
// when the transaction commits.
type txAuthStore struct {
	base   *mockAuthStore
	staged []func()
}

func (s *txAuthStore) ConsumePasswordReset(ctx context.Context, tokenHash string) (database.PasswordReset, error) {
	pr, ok := s.base.resets[tokenHash]
	if !ok || pr.UsedAt.Valid || time.Now().After(pr.ExpiresAt) {
		return database.PasswordReset{}, pgx.ErrNoRows
	}
	s.staged = append(s.staged, func() { s.base.ConsumePasswordReset(ctx, tokenHash) })
	return pr, nil
}

func (s *txAuthStore) UpdateUserPassword(ctx context.Context, arg database.UpdateUserPasswordParams) error {
	if s.base.updateErr != nil {
		return s.base.updateErr
	}
	s.staged = append(s.staged, func() { s.base.UpdateUserPassword(ctx, arg) })
	return nil
}

func newAuthHandler(store *mockAuthStore) *handler.AuthHandler {
	return newAuthHandlerWithPool(store, &mockPool{})
}

func newAuthHandlerWithPool(store *mockAuthStore, pool *mockPool) *handler.AuthHandler {
	return handler.NewAuthHandler(store, pool, func(db database.DBTX) handler.PasswordResetStore {
		tx := db.(*mockTx)
		staging := &txAuthStore{base: store}
		tx.commitFn = func(context.Context) error {
			for _, apply := range staging.staged {
				apply()
			}
			return nil
		}
		return staging
	}, testTokens)
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeTestUser(t *testing.T, role string) database.User {
	t.Helper()
	return database.User{
		ID:             uuid.New(),
		Email:          "staff@innstay.test",
		HashedPassword: hashPassword(t, "correct-password"),
		FullName:       "Test Staff",
		Role:           role,
		IsActive:       true,
	}
}

func setupAuthRouter(h *handler.AuthHandler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t, "KITCHEN")
	store.addUser(user)

	r := setupAuthRouter(newAuthHandler(store))

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "Staff@Innstay.test",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	access, _ := resp["access_token"].(string)
	if access == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Fatal("expected non-empty refresh_token")
	}

	claims, err := auth.ValidateToken(testSecret, access)
	if err != nil {
		t.Fatalf("access token should validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims.UserID: got %s, want %s", claims.UserID, user.ID)
	}
	if claims.Role != "KITCHEN" {
		t.Errorf("claims.Role: got %s, want KITCHEN", claims.Role)
	}

	u := resp["user"].(map[string]interface{})
	if u["dashboard"] != "/kitchen" {
		t.Errorf("dashboard: got %v, want /kitchen", u["dashboard"])
	}
	if _, ok := u["hashed_password"]; ok {
		t.Error("response must not expose hashed_password")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockStore()
	store.addUser(makeTestUser(t, "ADMIN"))
	r := setupAuthRouter(newAuthHandler(store))

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "staff@innstay.test",
		"password": "wrong-password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "invalid credentials" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "nobody@innstay.test",
		"password": "whatever1",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))

	rr := postJSON(t, r, "/auth/login", map[string]string{"email": "a@b.c"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Register tests ---

func TestRegister_CreatesCustomer(t *testing.T) {
	store := newMockStore()
	r := setupAuthRouter(newAuthHandler(store))

	rr := postJSON(t, r, "/auth/register", map[string]string{
		"full_name": "Guest One",
		"email":     "  Guest@Example.com ",
		"password":  "s3cretpass",
		"phone":     "+62 811 000",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	u := resp["user"].(map[string]interface{})
	if u["role"] != "CUSTOMER" {
		t.Errorf("role: got %v, want CUSTOMER", u["role"])
	}
	if u["email"] != "guest@example.com" {
		t.Errorf("email: got %v, want lowercased", u["email"])
	}
	if u["dashboard"] != "/" {
		t.Errorf("dashboard: got %v, want /", u["dashboard"])
	}

	stored, ok := store.userByEmail["guest@example.com"]
	if !ok {
		t.Fatal("user was not stored")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("s3cretpass")) != nil {
		t.Error("stored password is not a bcrypt hash of the input")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockStore()
	r := setupAuthRouter(newAuthHandler(store))
	body := map[string]string{"full_name": "A", "email": "a@example.com", "password": "password1"}

	if rr := postJSON(t, r, "/auth/register", body); rr.Code != http.StatusCreated {
		t.Fatalf("first register: got %d", rr.Code)
	}
	rr := postJSON(t, r, "/auth/register", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestRegister_Validation(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "password1"}},
		{"bad email", map[string]string{"full_name": "A", "email": "nope", "password": "password1"}},
		{"short password", map[string]string{"full_name": "A", "email": "a@example.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, r, "/auth/register", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t, "WAITER")
	store.addUser(user)
	r := setupAuthRouter(newAuthHandler(store))

	refresh, err := auth.GenerateRefreshToken(testSecret, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refresh})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] == "" {
		t.Error("expected access_token")
	}
}

func TestRefresh_WrongSecret(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t, "WAITER")
	store.addUser(user)
	r := setupAuthRouter(newAuthHandler(store))

	refresh, _ := auth.GenerateRefreshToken("other-secret", user.ID, time.Hour)
	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refresh})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_DeactivatedUser(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))

	refresh, _ := auth.GenerateRefreshToken(testSecret, uuid.New(), time.Hour)
	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refresh})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))
	rr := postJSON(t, r, "/auth/refresh", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Password reset tests ---

func TestPasswordReset_FullFlow(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t, "RECEPTIONIST")
	store.addUser(user)

	h := newAuthHandler(store)
	var sent string
	h.SetResetSender(func(_ context.Context, u database.User, token string) error {
		if u.ID != user.ID {
			t.Errorf("reset sent to %s, want %s", u.ID, user.ID)
		}
		sent = token
		return nil
	})
	r := setupAuthRouter(h)

	rr := postJSON(t, r, "/auth/reset-password", map[string]string{"email": user.Email})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("request status: got %d, want %d", rr.Code, http.StatusAccepted)
	}
	if sent == "" {
		t.Fatal("expected a reset token to be sent")
	}
	if _, ok := store.resets[sent]; ok {
		t.Fatal("raw token must not be stored")
	}
	if _, ok := store.resets[auth.HashResetToken(sent)]; !ok {
		t.Fatal("expected hashed token to be stored")
	}

	rr = postJSON(t, r, "/auth/reset-password/confirm", map[string]string{
		"token":    sent,
		"password": "brand-new-pass",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	hashed := store.passwords[user.ID]
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte("brand-new-pass")) != nil {
		t.Error("password was not updated")
	}

	// Tokens are single use.
	rr = postJSON(t, r, "/auth/reset-password/confirm", map[string]string{
		"token":    sent,
		"password": "another-pass",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("reuse status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPasswordReset_UnknownEmailStillAccepted(t *testing.T) {
	store := newMockStore()
	h := newAuthHandler(store)
	called := false
	h.SetResetSender(func(context.Context, database.User, string) error {
		called = true
		return nil
	})
	r := setupAuthRouter(h)

	rr := postJSON(t, r, "/auth/reset-password", map[string]string{"email": "ghost@example.com"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusAccepted)
	}
	if called {
		t.Error("no token should be sent for unknown email")
	}
	if len(store.resets) != 0 {
		t.Error("no reset should be stored for unknown email")
	}
}

func TestPasswordReset_FailedUpdateKeepsToken(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t, "WAITER")
	store.addUser(user)
	store.resets[auth.HashResetToken("reset-token")] = database.PasswordReset{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: auth.HashResetToken("reset-token"),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.updateErr = errors.New("connection reset")
	pool := &mockPool{}
	r := setupAuthRouter(newAuthHandlerWithPool(store, pool))

	body := map[string]string{"token": "reset-token", "password": "brand-new-pass"}
	rr := postJSON(t, r, "/auth/reset-password/confirm", body)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if pool.tx == nil || pool.tx.committed {
		t.Error("transaction must not commit when the update fails")
	}
	if store.resets[auth.HashResetToken("reset-token")].UsedAt.Valid {
		t.Fatal("token was spent without changing the password")
	}

	// The same token still works once the store recovers.
	store.updateErr = nil
	rr = postJSON(t, r, "/auth/reset-password/confirm", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("retry status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !store.resets[auth.HashResetToken("reset-token")].UsedAt.Valid {
		t.Error("token should be spent after a successful reset")
	}
	if bcrypt.CompareHashAndPassword([]byte(store.passwords[user.ID]), []byte("brand-new-pass")) != nil {
		t.Error("password was not updated")
	}
}

func TestPasswordReset_BeginFails(t *testing.T) {
	store := newMockStore()
	pool := &mockPool{beginFn: func(context.Context) (pgx.Tx, error) {
		return nil, errors.New("pool exhausted")
	}}
	r := setupAuthRouter(newAuthHandlerWithPool(store, pool))

	rr := postJSON(t, r, "/auth/reset-password/confirm", map[string]string{"token": "abc", "password": "long-enough"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestPasswordReset_ConfirmShortPassword(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))
	rr := postJSON(t, r, "/auth/reset-password/confirm", map[string]string{"token": "abc", "password": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Me tests ---

func TestMe_ReturnsDashboard(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t, "ADMIN")
	store.addUser(user)
	r := setupAuthRouter(newAuthHandler(store))

	rr := doAuthRequest(t, r, "GET", "/auth/me", nil, &auth.Claims{UserID: user.ID, Role: user.Role})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["dashboard"] != "/admin" {
		t.Errorf("dashboard: got %v, want /admin", resp["dashboard"])
	}
}

func TestMe_RequiresToken(t *testing.T) {
	r := setupAuthRouter(newAuthHandler(newMockStore()))
	req := httptest.NewRequest("GET", "/auth/me", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
