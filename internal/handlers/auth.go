package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/access"
	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/utils"
)

// LoginRequest represents a login request. Login is a username or email.
type LoginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l LoginRequest) identifier() string {
	for _, v := range []string{l.Login, l.Username, l.Email} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := decodeJSON(req, &loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	id := loginReq.identifier()
	if id == "" || loginReq.Password == "" {
		respondError(w, http.StatusBadRequest, "Login and password are required")
		return
	}

	// 1. Find User
	user, err := r.store.FindUserByLogin(req.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		r.fail(w, req, err)
		return
	}

	// 2. Check Password
	if !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	// 3. Update Last Login
	now := time.Now().UTC()
	if err := r.store.TouchLastLogin(req.Context(), user.ID, now); err != nil {
		r.log.Warn("could not record last login", zap.String("user", user.Username), zap.Error(err))
	}
	user.LastLogin = &now

	// 4. Generate Token
	token, err := utils.GenerateToken(user, r.cfg.JWTSecret, r.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	r.log.Info("user logged in", zap.String("user", user.Username), zap.String("role", string(user.Role)))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":       token,
		"expiresIn":   int(r.cfg.TokenTTL.Seconds()),
		"user":        user,
		"permissions": access.RolePermissions.Permissions(user.Role),
	})
}

// logout handles user logout. Tokens are stateless; the client drops it.
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// getMe returns the authenticated user with their permissions
func (r *Router) getMe(w http.ResponseWriter, req *http.Request) {
	user := currentUser(req)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"permissions": access.RolePermissions.Permissions(user.Role),
	})
}

// ProfileUpdate is the self-service part of a user record. Role and active
// flag are changed only through user management.
type ProfileUpdate struct {
	FullName    *string `json:"fullName"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
	Password    *string `json:"password"`
}

// updateMe updates the caller's own profile
func (r *Router) updateMe(w http.ResponseWriter, req *http.Request) {
	var in ProfileUpdate
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}

	updates := map[string]interface{}{}
	if in.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			respondError(w, http.StatusBadRequest, "Invalid email")
			return
		}
		updates["email"] = email
	}
	if in.PhoneNumber != nil {
		updates["phone_number"] = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.Password != nil {
		hash, err := hashNewPassword(*in.Password)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		updates["password"] = hash
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	user, err := r.store.UpdateUser(req.Context(), currentUser(req).ID, updates)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

const minPasswordLength = 8

func hashNewPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	return utils.HashPassword(password)
}
