package model

import (
	"time"

	"github.com/iliyamo/hotel-admin/internal/rbac"
)

// Admin mirrors the 'admins' table. PasswordHash never leaves the process:
// it is excluded from JSON.
type Admin struct {
	ID           uint64         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Name         string         `json:"name"`
	ProfileImage string         `json:"profile_image"`
	RoleID       *uint64        `json:"role_id"`
	Role         *Role          `json:"role,omitempty"` // populated on read, not stored
	IsSuperAdmin bool           `json:"is_super_admin"`
	Bootstrap    bool           `json:"-"` // the first-ever admin
	Extra        map[string]any `json:"extra,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Authority derives the admin's authority from its stored flags.
func (a Admin) Authority() rbac.Authority {
	switch {
	case a.IsSuperAdmin:
		return rbac.Authority{Kind: rbac.SuperAdmin}
	case a.RoleID != nil:
		return rbac.Authority{Kind: rbac.RoleRef, RoleID: *a.RoleID}
	}
	return rbac.Authority{Kind: rbac.NoAuthority}
}
