package model

import "time"

// Document is a record of one of the ancillary modules. Body is the free-form
// JSON object the admin sent, after validation and server-side fields.
type Document struct {
	ID        string         `json:"id"`
	Kind      string         `json:"-"`
	Body      map[string]any `json:"-"`
	UniqueKey *string        `json:"-"`
	CreatedBy *uint64        `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Flatten renders the document as a single JSON object: body fields plus id
// and timestamps.
func (d Document) Flatten() map[string]any {
	out := make(map[string]any, len(d.Body)+4)
	for k, v := range d.Body {
		out[k] = v
	}
	out["id"] = d.ID
	out["created_by"] = d.CreatedBy
	out["created_at"] = d.CreatedAt
	out["updated_at"] = d.UpdatedAt
	return out
}
