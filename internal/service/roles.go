package service

import (
	"context"
	"strings"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/rbac"
)

type RoleService struct {
	roles RoleStore
}

func NewRoleService(roles RoleStore) *RoleService {
	if roles == nil {
		panic("role service: nil store")
	}
	return &RoleService{roles: roles}
}

type RoleInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []rbac.Grant `json:"permissions"`
}

// RolePatch carries the fields of an update; nil means unchanged.
type RolePatch struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Permissions *[]rbac.Grant `json:"permissions"`
}

func normalizeRole(r *model.Role) error {
	r.Name = strings.ToLower(strings.TrimSpace(r.Name))
	if r.Name == "" {
		return ValidationFields("Invalid role", map[string]string{"name": "required"})
	}
	grants, err := rbac.NormalizeGrants(r.Permissions)
	if err != nil {
		return ValidationFields("Invalid role", map[string]string{"permissions": err.Error()})
	}
	r.Permissions = grants
	return nil
}

func (s *RoleService) CreateRole(ctx context.Context, createdBy uint64, in RoleInput) (model.Role, error) {
	r := model.Role{Name: in.Name, Description: strings.TrimSpace(in.Description), Permissions: in.Permissions}
	if err := normalizeRole(&r); err != nil {
		return model.Role{}, err
	}
	if createdBy != 0 {
		r.CreatedBy = &createdBy
	}
	if err := s.roles.Create(ctx, &r); err != nil {
		return model.Role{}, storeErr(err, "Role")
	}
	return r, nil
}

func (s *RoleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	list, err := s.roles.List(ctx)
	return list, storeErr(err, "Role")
}

func (s *RoleService) GetRole(ctx context.Context, id uint64) (model.Role, error) {
	r, err := s.roles.Get(ctx, id)
	return r, storeErr(err, "Role")
}

func (s *RoleService) UpdateRole(ctx context.Context, id uint64, p RolePatch) (model.Role, error) {
	r, err := s.roles.Get(ctx, id)
	if err != nil {
		return model.Role{}, storeErr(err, "Role")
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.Permissions != nil {
		r.Permissions = *p.Permissions
	}
	if err := normalizeRole(&r); err != nil {
		return model.Role{}, err
	}
	if err := s.roles.Update(ctx, &r); err != nil {
		return model.Role{}, storeErr(err, "Role")
	}
	return s.GetRole(ctx, id)
}

// DeleteRole removes a role; admins holding it are left without one.
func (s *RoleService) DeleteRole(ctx context.Context, id uint64) error {
	return storeErr(s.roles.Delete(ctx, id), "Role")
}
