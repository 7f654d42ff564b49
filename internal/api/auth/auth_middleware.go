package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bugsage/bugsage/app/session"
	"github.com/bugsage/bugsage/internal/api"
	"github.com/bugsage/bugsage/internal/types"
)

// Typed context keys for the request-scoped identity. The identity is
// populated from the session cookie by Authenticate; nothing else writes it.
type contextKey string

const (
	UserIDKey       contextKey = "userID"
	UserRoleKey     contextKey = "userRole"
	SessionTokenKey contextKey = "sessionToken"
)

// SessionReader resolves an opaque token to its identity record.
type SessionReader interface {
	Get(ctx context.Context, token string) (*session.Data, error)
}

// Authenticate validates the session cookie and adds the authenticated
// identity to the request context.
func Authenticate(sessions SessionReader, cookieName string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				l.DebugContext(ctx, "Missing session cookie")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			data, err := sessions.Get(ctx, cookie.Value)
			if err != nil {
				if errors.Is(err, types.ErrUnauthenticated) {
					l.DebugContext(ctx, "Unknown or expired session token")
					api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
					return
				}
				l.ErrorContext(ctx, "Session lookup failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, data.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, data.Role)
			ctx = context.WithValue(ctx, SessionTokenKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin callers. Runs after Authenticate.
func RequireAdmin(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRoleFromContext(r.Context())
			if !ok || role != types.RoleAdmin {
				logger.WarnContext(r.Context(), "Admin access denied", slog.String("role", role))
				api.ErrorResponse(w, r, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions to get identity from context.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

func GetSessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenKey).(string)
	return token, ok
}
