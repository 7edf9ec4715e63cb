package dto

// TeamCreateRequest payload.
type TeamCreateRequest struct {
	Name           string  `json:"name"`
	SessionTimeout *int    `json:"session_timeout"`
	FinishMessage  *string `json:"finish_message"`
	NoAgentMessage *string `json:"no_agent_message"`
}

// TeamUpdateRequest is a partial update.
type TeamUpdateRequest struct {
	Name           *string `json:"name"`
	SessionTimeout *int    `json:"session_timeout"`
	FinishMessage  *string `json:"finish_message"`
	NoAgentMessage *string `json:"no_agent_message"`
}

// FlowRequest is used for create and import. Unknown fields such as
// exportedAt are ignored.
type FlowRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Nodes       []map[string]any `json:"nodes"`
	Edges       []map[string]any `json:"edges"`
}

// FlowUpdateRequest is a partial update.
type FlowUpdateRequest struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Nodes       *[]map[string]any `json:"nodes"`
	Edges       *[]map[string]any `json:"edges"`
}

// ChannelCreateRequest payload.
type ChannelCreateRequest struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	IsActive *bool   `json:"is_active"`
	FlowID   *string `json:"flow_id"`
}

// ChannelUpdateRequest is a partial update. A null flow_id resets the
// channel to the default flow.
type ChannelUpdateRequest struct {
	Name     *string        `json:"name"`
	Type     *string        `json:"type"`
	IsActive *bool          `json:"is_active"`
	FlowID   NullableString `json:"flow_id"`
}
