package dto

import (
	"time"

	"github.com/spec-kit/chatdesk-admin/internal/service"
)

// LoginRequest accepts a username or an email as login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// AuthResponse carries an issued token and the account it belongs to.
type AuthResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      service.AccountView `json:"user"`
}

// AccountCreateRequest payload for new admins and agents.
type AccountCreateRequest struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	IsActive *bool   `json:"is_active"`
	TeamID   *string `json:"team_id"`
}

// AccountUpdateRequest is a partial update. A null team_id unassigns the agent.
type AccountUpdateRequest struct {
	Name     *string        `json:"name"`
	Username *string        `json:"username"`
	Email    *string        `json:"email"`
	Password *string        `json:"password"`
	IsActive *bool          `json:"is_active"`
	TeamID   NullableString `json:"team_id"`
}
