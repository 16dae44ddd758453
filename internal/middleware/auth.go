package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayush/research-dashboard/internal/auth"
	"github.com/ayush/research-dashboard/internal/httpx"
	"github.com/ayush/research-dashboard/internal/logging"
)

// SessionLookup resolves a session id to a user id ("" when unknown).
type SessionLookup interface {
	Lookup(ctx context.Context, sessionID string) (string, error)
}

// RequireAuth validates the session cookie and stores the user id in the
// request context.
func RequireAuth(sessions SessionLookup, log *zap.Logger) func(http.Handler) http.Handler {
	log = logging.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			userID, err := sessions.Lookup(r.Context(), cookie.Value)
			if err != nil {
				log.Error("session lookup failed", zap.Error(err))
				httpx.WriteError(w, http.StatusUnauthorized, "session expired")
				return
			}
			if userID == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "session expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
