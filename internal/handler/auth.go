package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/auth"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/middleware"
	"github.com/innstay/api/internal/service"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = time.Hour
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	CreatePasswordReset(ctx context.Context, arg database.CreatePasswordResetParams) (database.PasswordReset, error)
}

// PasswordResetStore is the part of a reset confirmation that runs inside
// one transaction.
type PasswordResetStore interface {
	ConsumePasswordReset(ctx context.Context, tokenHash string) (database.PasswordReset, error)
	UpdateUserPassword(ctx context.Context, arg database.UpdateUserPasswordParams) error
}

type NewPasswordResetStore func(db database.DBTX) PasswordResetStore

// ResetSender delivers a password reset token to its owner.
type ResetSender func(ctx context.Context, user database.User, token string) error

// TokenConfig holds the signing secret and token lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	pool      service.TxBeginner
	newStore  NewPasswordResetStore
	tokens    TokenConfig
	sendReset ResetSender
	now       func() time.Time
}

// NewAuthHandler creates a new AuthHandler. Reset tokens are written to the
// log until a sender is configured with SetResetSender.
func NewAuthHandler(store AuthStore, pool service.TxBeginner, newStore NewPasswordResetStore, tokens TokenConfig) *AuthHandler {
	return &AuthHandler{
		store:     store,
		pool:      pool,
		newStore:  newStore,
		tokens:    tokens,
		sendReset: logResetToken,
		now:       time.Now,
	}
}

// SetResetSender replaces the reset token delivery.
func (h *AuthHandler) SetResetSender(fn ResetSender) {
	h.sendReset = fn
}

// RegisterRoutes registers the public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/reset-password", h.RequestPasswordReset)
	r.Post("/auth/reset-password/confirm", h.ConfirmPasswordReset)
}

// RegisterProtectedRoutes registers endpoints that need an authenticated caller.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Phone        *string   `json:"phone"`
	DepartmentID *string   `json:"department_id"`
	Position     *string   `json:"position"`
	Dashboard    string    `json:"dashboard"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		Phone:        textPtr(u.Phone),
		DepartmentID: uuidPtr(u.DepartmentID),
		Position:     textPtr(u.Position),
		Dashboard:    enum.DashboardPath(u.Role),
	}
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternal(w, "get user by email", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// Register creates a customer account and signs it in. Staff accounts are
// created by an admin through /staff.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "full_name, email and password are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternal(w, "hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		FullName:       req.FullName,
		Email:          req.Email,
		HashedPassword: string(hashed),
		Role:           enum.UserRoleCustomer,
		Phone:          optionalText(req.Phone),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeInternal(w, "create user", err)
		return
	}

	h.respondWithTokens(w, http.StatusCreated, user)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	userID, err := auth.ValidateRefreshToken(h.tokens.Secret, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		writeInternal(w, "get user by id", err)
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// RequestPasswordReset issues a one-hour reset token. The response is the
// same whether or not the email belongs to an account.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	accepted := map[string]string{"message": "if the account exists, a reset link has been sent"}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusAccepted, accepted)
			return
		}
		writeInternal(w, "get user by email", err)
		return
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		writeInternal(w, "generate reset token", err)
		return
	}

	if _, err := h.store.CreatePasswordReset(r.Context(), database.CreatePasswordResetParams{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: h.now().Add(resetTokenTTL),
	}); err != nil {
		writeInternal(w, "create password reset", err)
		return
	}

	if err := h.sendReset(r.Context(), user, token); err != nil {
		writeInternal(w, "send reset token", err)
		return
	}

	writeJSON(w, http.StatusAccepted, accepted)
}

// ConfirmPasswordReset sets a new password using a reset token. Tokens are
// single use.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Token == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "token and password are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternal(w, "hash password", err)
		return
	}

	// The token is only spent if the new password is stored.
	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		writeInternal(w, "begin tx for password reset", err)
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	txStore := h.newStore(tx)

	reset, err := txStore.ConsumePasswordReset(r.Context(), auth.HashResetToken(req.Token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		writeInternal(w, "consume password reset", err)
		return
	}

	if err := txStore.UpdateUserPassword(r.Context(), database.UpdateUserPasswordParams{
		ID:             reset.UserID,
		HashedPassword: string(hashed),
	}); err != nil {
		writeInternal(w, "update user password", err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		writeInternal(w, "commit tx for password reset", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Me returns the signed-in user and the dashboard their role lands on.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		notFound(w, "get user by id", err, "user")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, user database.User) {
	accessToken, err := auth.GenerateToken(h.tokens.Secret, user.ID, user.Role, h.tokens.AccessTTL)
	if err != nil {
		writeInternal(w, "generate access token", err)
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.tokens.Secret, user.ID, h.tokens.RefreshTTL)
	if err != nil {
		writeInternal(w, "generate refresh token", err)
		return
	}

	writeJSON(w, status, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	})
}

func logResetToken(ctx context.Context, user database.User, token string) error {
	slog.InfoContext(ctx, "password reset requested", "user_id", user.ID, "email", user.Email, "token", token)
	return nil
}
