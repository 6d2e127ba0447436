package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"liveacademy/internal/logging"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

type userContextKey struct{}

// Authenticator verifies bearer tokens and resolves the caller through the
// user directory. Tokens are issued elsewhere; only the userId claim is read.
type Authenticator struct {
	secret []byte
	users  interfaces.UserDirectory
}

// NewAuthenticator creates a verifier for HS256 tokens signed with secret
func NewAuthenticator(secret string, users interfaces.UserDirectory) *Authenticator {
	return &Authenticator{secret: []byte(secret), users: users}
}

// Authenticate resolves the user behind a raw bearer token
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*types.User, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret not configured", interfaces.ErrUnauthorized)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrUnauthorized, err)
	}

	userID, _ := claims["userId"].(string)
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no userId", interfaces.ErrUnauthorized)
	}

	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrUnauthorized, err)
	}
	return user, nil
}

// RequireAuth rejects requests without a valid bearer token
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			sendJSON(w, http.StatusUnauthorized, messageResponse{Message: "Please authenticate"})
			return
		}

		user, err := a.Authenticate(r.Context(), raw)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected bearer token")
			sendJSON(w, http.StatusUnauthorized, messageResponse{Message: "Please authenticate"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey{}, user)))
	})
}

// RequireAdmin must run after RequireAuth
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			sendJSON(w, http.StatusForbidden, messageResponse{Message: "Access denied. Admin only."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the authenticated caller, or nil
func UserFromContext(ctx context.Context) *types.User {
	user, _ := ctx.Value(userContextKey{}).(*types.User)
	return user
}
