package dto

import (
	"bytes"
	"encoding/json"
)

// NullableString tells an absent field apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked for fields present in the payload.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// ListResponse is one page of a listing.
type ListResponse[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// SkippedResponse names an id a bulk delete left in place.
type SkippedResponse struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkDeleteResponse reports a bulk delete.
type BulkDeleteResponse struct {
	DeletedCount int64             `json:"deleted_count"`
	Skipped      []SkippedResponse `json:"skipped"`
}

// BulkDeleteRequest accepts either a bare id array or {"ids": [...]}.
type BulkDeleteRequest struct {
	IDs []string
}

func (r *BulkDeleteRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.IDs)
	}
	var wrapped struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	r.IDs = wrapped.IDs
	return nil
}
