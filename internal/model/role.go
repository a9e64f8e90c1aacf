package model

import (
	"time"

	"github.com/iliyamo/hotel-admin/internal/rbac"
)

// Role is a named bundle of grants. Name is unique and stored lower-case.
type Role struct {
	ID          uint64       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []rbac.Grant `json:"permissions"`
	CreatedBy   *uint64      `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
