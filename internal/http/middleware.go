package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ramukaka/market/internal/session"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
	HeaderRequestID = "X-Request-ID"
	SessionCookie   = "market_session"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	sessionKey
)

// AuthMiddleware trusts the user id forwarded by the authentication proxy in front of
// the service. Requests without it are anonymous.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware echoes chi's request id back to the caller.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(HeaderRequestID, id)
		}
		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware attaches the caller's session, creating one when the request carries none.
func SessionMiddleware(registry *session.Registry, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderSessionID)
			if id == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					id = c.Value
				}
			}

			sess, err := registry.Get(r.Context(), id, getUserIDFromContext(r.Context()))
			if err != nil {
				if errors.Is(err, session.ErrForeignSession) {
					respondError(w, http.StatusForbidden, "foreign_session", "session belongs to another user")
					return
				}
				log.ErrorContext(r.Context(), "session lookup failed", "error", err)
				respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}

			w.Header().Set(HeaderSessionID, sess.ID)
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func getSession(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

func getRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
