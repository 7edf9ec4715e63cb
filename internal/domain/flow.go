package domain

import "time"

// GraphElement is a flow node or edge. Its contents are stored and
// returned as-is; flow execution lives elsewhere.
type GraphElement = map[string]any

// Flow is a stored conversation-flow graph.
type Flow struct {
	ID          string         `json:"id" bson:"id"`
	Name        string         `json:"name" bson:"name"`
	Description string         `json:"description" bson:"description"`
	Nodes       []GraphElement `json:"nodes" bson:"nodes"`
	Edges       []GraphElement `json:"edges" bson:"edges"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

func (f Flow) DocumentID() string     { return f.ID }
func (f Flow) CreatedTime() time.Time { return f.CreatedAt }
