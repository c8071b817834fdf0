package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/access"
	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"github.com/mendelflow/mendelflowgo/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserLoader resolves the user behind a token
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Auth verifies JWT tokens and loads the active user
type Auth struct {
	secret string
	users  UserLoader
	log    *zap.Logger
}

// NewAuth creates the authentication middleware
func NewAuth(secret string, users UserLoader, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{secret: secret, users: users, log: log}
}

var (
	errUnauthorized = errors.New("unauthorized")
	errNoToken      = errors.New("authorization header required")
	errBadHeader    = errors.New("invalid authorization header format")
	errInvalidToken = errors.New("invalid or expired token")
	errUnknownUser  = errors.New("user no longer exists")
	errInactiveUser = errors.New("account is deactivated")
)

// Middleware rejects requests without a valid token for an active user
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Resolve(r)
		if err != nil {
			if errors.Is(err, apperr.ErrPersistence) {
				a.log.Error("auth user lookup failed", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
				return
			}
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Resolve returns the user for the request's token
func (a *Auth) Resolve(r *http.Request) (*models.User, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := utils.ValidateToken(tokenString, a.secret)
	if err != nil {
		return nil, errInvalidToken
	}
	id, err := utils.UserIDFromClaims(claims)
	if err != nil {
		return nil, errInvalidToken
	}

	user, err := a.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errUnknownUser
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errInactiveUser
	}
	return user, nil
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, nil
		}
		return "", errNoToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errBadHeader
	}
	return parts[1], nil
}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// Require rejects users lacking any of perms. It must run after Auth.
func Require(perms ...access.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, errUnauthorized.Error())
				return
			}
			if err := Authorize(user, perms...); err != nil {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize fails with apperr.ErrPermissionDenied unless user holds every one
// of perms
func Authorize(user *models.User, perms ...access.Permission) error {
	for _, p := range perms {
		if !access.HasPermission(user, p) {
			return apperr.Denied("missing %s", p)
		}
	}
	return nil
}

// AuthorizeAny fails with apperr.ErrPermissionDenied unless user holds at
// least one of perms
func AuthorizeAny(user *models.User, perms ...access.Permission) error {
	if !access.HasAnyPermission(user, perms...) {
		return apperr.Denied("insufficient permissions")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
