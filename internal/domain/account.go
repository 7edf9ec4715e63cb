package domain

import "time"

// Account is a login-capable identity: an administrator or an agent.
// Username and Email are unique across all accounts regardless of role.
type Account struct {
	ID           string    `json:"id" bson:"id"`
	Name         string    `json:"name" bson:"name"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"password_hash" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	Active       bool      `json:"is_active" bson:"is_active"`
	TeamID       *string   `json:"team_id" bson:"team_id"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

func (a Account) DocumentID() string     { return a.ID }
func (a Account) CreatedTime() time.Time { return a.CreatedAt }
