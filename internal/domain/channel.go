package domain

import "time"

// ChannelType enumerates inbound channel providers.
type ChannelType string

const (
	ChannelTypeSite      ChannelType = "site"
	ChannelTypeWhatsApp  ChannelType = "whatsapp"
	ChannelTypeTelegram  ChannelType = "telegram"
	ChannelTypeInstagram ChannelType = "instagram"
	ChannelTypeFacebook  ChannelType = "facebook"
	ChannelTypeEmail     ChannelType = "email"
)

// Valid reports whether t is a supported channel type.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelTypeSite, ChannelTypeWhatsApp, ChannelTypeTelegram,
		ChannelTypeInstagram, ChannelTypeFacebook, ChannelTypeEmail:
		return true
	}
	return false
}

// ChannelStatus reports provider connectivity.
type ChannelStatus string

const (
	ChannelStatusConnected    ChannelStatus = "connected"
	ChannelStatusDisconnected ChannelStatus = "disconnected"
)

// DefaultFlowName labels a channel without a flow reference.
const DefaultFlowName = "Default"

// Channel is an inbound conversation entry point.
type Channel struct {
	ID        string        `json:"id" bson:"id"`
	Name      string        `json:"name" bson:"name"`
	Type      ChannelType   `json:"type" bson:"type"`
	Status    ChannelStatus `json:"status" bson:"status"`
	Active    bool          `json:"is_active" bson:"is_active"`
	FlowID    *string       `json:"flow_id" bson:"flow_id"`
	FlowName  string        `json:"flow_name" bson:"flow_name"`
	ChatLink  *string       `json:"chat_link" bson:"chat_link"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

func (c Channel) DocumentID() string     { return c.ID }
func (c Channel) CreatedTime() time.Time { return c.CreatedAt }
