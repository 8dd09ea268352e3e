package middleware

import (
	"context"
	"net/http"
	"strings"

	"medishop/apperr"
	"medishop/models"
	"medishop/utils"
)

// Key type for context
type contextKey string

const UserContextKey = contextKey("user")

// TokenParser validates a bearer token.
type TokenParser interface {
	ParseJWT(token string) (*utils.Claims, error)
}

// PrincipalResolver loads the account behind a token subject.
type PrincipalResolver interface {
	Principal(ctx context.Context, userID string) (models.Principal, error)
}

// Auth turns bearer tokens into request principals.
type Auth struct {
	tokens TokenParser
	users  PrincipalResolver
}

func NewAuth(tokens TokenParser, users PrincipalResolver) *Auth {
	return &Auth{tokens: tokens, users: users}
}

// AuthMiddleware verifies JWT tokens and attaches the caller's principal to
// the context. Banned accounts are rejected here.
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.WriteError(w, r, apperr.Unauthorized("Authorization header missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.WriteError(w, r, apperr.Unauthorized("Invalid Authorization header format"))
			return
		}

		claims, err := a.tokens.ParseJWT(parts[1])
		if err != nil {
			utils.WriteError(w, r, apperr.Unauthorized("Invalid token"))
			return
		}
		principal, err := a.users.Principal(r.Context(), claims.UserID)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware ensures that the user has admin privileges
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok || !p.IsAdmin() {
			utils.WriteError(w, r, apperr.Forbidden("Forbidden: Admins only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, UserContextKey, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(UserContextKey).(models.Principal)
	return p, ok
}
