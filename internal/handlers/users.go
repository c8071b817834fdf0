package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/access"
	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
)

// CreateUserRequest is the payload for a new staff account
type CreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	Role        string `json:"role"`
	Department  string `json:"department"`
	Position    string `json:"position"`
	PhoneNumber string `json:"phoneNumber"`
}

// UpdateUserRequest is an administrative update. Absent fields are kept.
type UpdateUserRequest struct {
	FullName    *string `json:"fullName"`
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"isActive"`
	Department  *string `json:"department"`
	Position    *string `json:"position"`
	PhoneNumber *string `json:"phoneNumber"`
	Password    *string `json:"password"`
}

func (r *Router) listUsers(w http.ResponseWriter, req *http.Request) {
	users, err := r.store.ListUsers(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (r *Router) createUser(w http.ResponseWriter, req *http.Request) {
	var in CreateUserRequest
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || !strings.Contains(in.Email, "@") {
		respondError(w, http.StatusBadRequest, "Username and a valid email are required")
		return
	}
	role := access.RoleViewer
	if in.Role != "" {
		parsed, ok := access.ParseRole(in.Role)
		if !ok {
			respondError(w, http.StatusBadRequest, "Unknown role")
			return
		}
		role = parsed
	}
	hash, err := hashNewPassword(in.Password)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		Password:    hash,
		FullName:    strings.TrimSpace(in.FullName),
		Role:        role,
		Department:  in.Department,
		Position:    in.Position,
		PhoneNumber: in.PhoneNumber,
		IsActive:    true,
	}
	if err := r.store.CreateUser(req.Context(), user); err != nil {
		r.fail(w, req, err)
		return
	}

	r.log.Info("user created", zap.String("user", user.Username), zap.String("role", string(role)), zap.String("by", currentUser(req).Username))
	respondJSON(w, http.StatusCreated, user)
}

func (r *Router) updateUser(w http.ResponseWriter, req *http.Request) {
	var in UpdateUserRequest
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
	if in.Role != nil {
		role, ok := access.ParseRole(*in.Role)
		if !ok {
			respondError(w, http.StatusBadRequest, "Unknown role")
			return
		}
		updates["role"] = role
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.Department != nil {
		updates["department"] = *in.Department
	}
	if in.Position != nil {
		updates["position"] = *in.Position
	}
	if in.PhoneNumber != nil {
		updates["phone_number"] = *in.PhoneNumber
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

	id := mux.Vars(req)["id"]
	if id == currentUser(req).ID && (in.Role != nil || (in.IsActive != nil && !*in.IsActive)) {
		r.fail(w, req, apperr.Validation("administrators cannot change their own role or deactivate themselves"))
		return
	}

	user, err := r.store.UpdateUser(req.Context(), id, updates)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	r.log.Info("user updated", zap.String("user", user.Username), zap.String("by", currentUser(req).Username))
	respondJSON(w, http.StatusOK, user)
}

// deactivateUser keeps the record for history and blocks further logins
func (r *Router) deactivateUser(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if id == currentUser(req).ID {
		r.fail(w, req, apperr.Validation("administrators cannot deactivate themselves"))
		return
	}
	user, err := r.store.UpdateUser(req.Context(), id, map[string]interface{}{"is_active": false})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	r.log.Info("user deactivated", zap.String("user", user.Username), zap.String("by", currentUser(req).Username))
	respondJSON(w, http.StatusOK, user)
}
