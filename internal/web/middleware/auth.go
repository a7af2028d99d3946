package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/makerforge/printdesk/internal/domain/entities"
	"github.com/makerforge/printdesk/internal/web/session"
)

type contextKey string

// userContextKey is the request context key holding the resolved user
const userContextKey contextKey = "printdesk.user"

// ForbiddenMessage is the fixed body written when an anonymous request hits
// a protected route
const ForbiddenMessage = "You must be logged in to access this content."

// AuthMiddleware gates protected routes behind an authenticated session
type AuthMiddleware struct {
	sessionManager *session.Manager
	log            *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessionManager *session.Manager, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessionManager: sessionManager,
		log:            log,
	}
}

// RequireAuth resolves the current user before the wrapped handler runs.
// Anonymous requests are rejected with a fixed 403 response and the handler
// is never invoked; authenticated requests proceed with the user in the
// request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.sessionManager.CurrentUser(r.Context(), r)
		if !ok {
			m.log.Debug("anonymous request to protected route",
				slog.String("path", r.URL.Path))
			http.Error(w, ForbiddenMessage, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns a context carrying the resolved user
func WithUser(ctx context.Context, user *entities.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user resolved by RequireAuth, if any
func UserFromContext(ctx context.Context) (*entities.User, bool) {
	user, ok := ctx.Value(userContextKey).(*entities.User)
	return user, ok
}
