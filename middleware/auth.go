package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/services"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionResolver is the part of services.AuthService the middleware needs.
type SessionResolver interface {
	Resume(token string) (*services.Session, error)
	Authorize(session *services.Session, required models.SessionRole) error
}

// Authenticate resolves the bearer role token to a live session and stores it
// in the request context. Tampered tokens end the session and answer 401.
func Authenticate(auth SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				// WebSocket clients cannot set headers from the browser.
				token = r.URL.Query().Get("token")
			}

			session, err := auth.Resume(token)
			if err != nil {
				if errors.Is(err, services.ErrSessionTampered) {
					logger.Warn("rejected tampered session token",
						slog.String("remote_addr", r.RemoteAddr),
						slog.String("path", r.URL.Path),
					)
					writeError(w, http.StatusUnauthorized, "session integrity check failed, log in again", true)
					return
				}
				writeError(w, http.StatusUnauthorized, "authentication required", false)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole re-verifies the session role before the handler runs.
func RequireRole(auth SessionResolver, role models.SessionRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := SessionFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required", false)
				return
			}
			if err := auth.Authorize(session, role); err != nil {
				switch {
				case errors.Is(err, services.ErrForbiddenOperation):
					writeError(w, http.StatusForbidden, err.Error(), false)
				case errors.Is(err, services.ErrSessionTampered):
					writeError(w, http.StatusUnauthorized, err.Error(), true)
				default:
					writeError(w, http.StatusUnauthorized, "authentication required", false)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func SessionFromContext(ctx context.Context) (*services.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(*services.Session)
	if !ok || session == nil {
		return nil, services.ErrNotAuthenticated
	}
	return session, nil
}

// WithSession is used by handler tests to skip token resolution.
func WithSession(ctx context.Context, session *services.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
