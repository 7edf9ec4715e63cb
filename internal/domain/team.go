package domain

import "time"

// Session timeout bounds, in seconds.
const (
	MinSessionTimeout     = 60
	MaxSessionTimeout     = 86400
	DefaultSessionTimeout = 300
)

// Team groups agents and carries the conversation settings they share.
type Team struct {
	ID             string    `json:"id" bson:"id"`
	Name           string    `json:"name" bson:"name"`
	SessionTimeout int       `json:"session_timeout" bson:"session_timeout"`
	FinishMessage  string    `json:"finish_message" bson:"finish_message"`
	NoAgentMessage string    `json:"no_agent_message" bson:"no_agent_message"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

func (t Team) DocumentID() string     { return t.ID }
func (t Team) CreatedTime() time.Time { return t.CreatedAt }
