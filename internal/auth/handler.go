package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/research-dashboard/internal/httpx"
	"github.com/ayush/research-dashboard/internal/logging"
	"github.com/ayush/research-dashboard/internal/models"
	"github.com/ayush/research-dashboard/internal/store"
)

// UserStore persists dashboard accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, hashedPw string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Sessions maps cookie values to user ids. The user id doubles as the key of
// the user's research status.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// Handler serves the account endpoints of the dashboard.
type Handler struct {
	users    UserStore
	sessions Sessions
	log      *zap.Logger
	onLogout func(userID string)
}

// Option customizes a Handler.
type Option func(*Handler)

// OnLogout registers fn to run with the user id of every session that logs
// out, e.g. to drop that user's in-flight search.
func OnLogout(fn func(userID string)) Option {
	return func(h *Handler) { h.onLogout = fn }
}

func NewHandler(users UserStore, sessions Sessions, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{users: users, sessions: sessions, log: logging.OrNop(log)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// normalizeEmail makes lookups case- and whitespace-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register opens a dashboard account. New accounts start with a zero search
// count; the password hash never leaves the server.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if username == "" || email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username, email, and password are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), username, email, string(hashed))
	if err != nil {
		h.log.Warn("register failed", zap.String("email", email), zap.Error(err))
		httpx.WriteError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	h.log.Info("account registered", zap.String("user_id", user.ID))
	httpx.WriteJSON(w, http.StatusCreated, user)
}

// Login checks credentials and sets the session cookie that scopes the
// caller's research history and search status.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	case err != nil:
		h.log.Error("load user", zap.Error(err))
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.log.Error("create session", zap.String("user_id", user.ID), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "session creation failed")
		return
	}

	setSessionCookie(w, sid, SessionTTL)
	httpx.WriteJSON(w, http.StatusOK, user)
}

// Logout ends the session and, when configured, abandons the user's search.
// It always clears the cookie, even for unknown sessions.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		h.endSession(r.Context(), cookie.Value)
	}
	setSessionCookie(w, "", -1)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) endSession(ctx context.Context, sid string) {
	userID, err := h.sessions.Lookup(ctx, sid)
	if err != nil {
		h.log.Warn("lookup session", zap.Error(err))
	}
	if err := h.sessions.Delete(ctx, sid); err != nil {
		h.log.Warn("delete session", zap.Error(err))
	}
	if userID != "" && h.onLogout != nil {
		h.onLogout(userID)
	}
}

// Me returns the signed-in user, including their search count.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.log.Error("load user", zap.String("user_id", userID), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// setSessionCookie writes the session cookie; a negative ttl deletes it.
func setSessionCookie(w http.ResponseWriter, sid string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl / time.Second)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
