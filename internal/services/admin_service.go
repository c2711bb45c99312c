package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/propmarket/backend/internal/models"
)

type AdminService struct {
	db *sql.DB
}

func NewAdminService(db *sql.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	role, _ := r.Context().Value("role").(string)
	if role != models.RoleAdmin {
		SendErrorResponse(w, "Admin access required", http.StatusForbidden, nil)
		return false
	}
	return true
}

func (s *AdminService) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	if !s.requireAdmin(w, r) {
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid user ID", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.ExecContext(r.Context(), `
		UPDATE users SET blocked = $1, updated_at = NOW() WHERE id = $2`,
		blocked, userID)
	if err != nil {
		log.Printf("[ADMIN] Failed to update user %d: %v", userID, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		sendCoreError(w, ErrUserNotFound)
		return
	}

	log.Printf("[ADMIN] User %d blocked=%t", userID, blocked)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"userId": userID, "blocked": blocked})
}

// BlockUser blocks a user account
// @Summary Block a user
// @Description Block a user; blocked users cannot log in or participate in deals
// @Tags admin
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]interface{} "User blocked"
// @Failure 403 {string} string "Admin access required"
// @Failure 404 {string} string "User not found"
// @Security BearerAuth
// @Router /admin/users/{userId}/block [put]
func (s *AdminService) BlockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, true)
}

// UnblockUser unblocks a user account
// @Summary Unblock a user
// @Description Remove the block from a user account
// @Tags admin
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]interface{} "User unblocked"
// @Failure 403 {string} string "Admin access required"
// @Failure 404 {string} string "User not found"
// @Security BearerAuth
// @Router /admin/users/{userId}/unblock [put]
func (s *AdminService) UnblockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, false)
}

// ListUsers returns all registered users
// @Summary List users
// @Description List all users with their blocked status
// @Tags admin
// @Produce json
// @Success 200 {array} models.User "Users"
// @Failure 403 {string} string "Admin access required"
// @Security BearerAuth
// @Router /admin/users [get]
func (s *AdminService) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, email, name, role, blocked, created_at, updated_at
		FROM users ORDER BY id`)
	if err != nil {
		log.Printf("[ADMIN] Failed to list users: %v", err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Blocked, &u.CreatedAt, &u.UpdatedAt); err != nil {
			log.Printf("[ADMIN] Failed to scan user: %v", err)
			SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
			return
		}
		users = append(users, u)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}
