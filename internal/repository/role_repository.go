package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/rbac"
)

type RoleRepo struct{ db *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

const roleColumns = `id, name, description, created_by, created_at, updated_at`

func scanRole(row rowScanner) (model.Role, error) {
	var (
		r         model.Role
		createdBy sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &createdBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.Role{}, err
	}
	if createdBy.Valid {
		id := uint64(createdBy.Int64)
		r.CreatedBy = &id
	}
	r.Permissions = []rbac.Grant{}
	return r, nil
}

// Create inserts the role and its grants in one transaction.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.Name = strings.ToLower(strings.TrimSpace(role.Name))
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO roles (name, description, created_by) VALUES (?,?,?)`,
			role.Name, role.Description, role.CreatedBy)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		role.ID = uint64(id)
		if err := insertGrants(ctx, tx, role.ID, role.Permissions); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT created_at, updated_at FROM roles WHERE id = ?`, role.ID).
			Scan(&role.CreatedAt, &role.UpdatedAt)
	})
}

func insertGrants(ctx context.Context, tx *sql.Tx, roleID uint64, grants []rbac.Grant) error {
	pos := 0
	for _, g := range grants {
		actions := g.Actions
		if g.Module == rbac.Wildcard {
			// stored as a single row so it round-trips as {module: "*"}
			actions = []rbac.Action{"*"}
		}
		for _, a := range actions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_permissions (role_id, position, module, action) VALUES (?,?,?,?)`,
				roleID, pos, g.Module, string(a)); err != nil {
				return err
			}
			pos++
		}
	}
	return nil
}

// Get returns a role with its grants.
func (r *RoleRepo) Get(ctx context.Context, id uint64) (model.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id))
	if err != nil {
		return model.Role{}, notFound(err)
	}
	grants, err := r.grants(ctx, []uint64{id})
	if err != nil {
		return model.Role{}, err
	}
	role.Permissions = grants[id]
	if role.Permissions == nil {
		role.Permissions = []rbac.Grant{}
	}
	return role, nil
}

func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Role{}
	ids := []uint64{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
		ids = append(ids, role.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	grants, err := r.grants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if g := grants[out[i].ID]; g != nil {
			out[i].Permissions = g
		}
	}
	return out, nil
}

// grants loads the grants of the given roles, folding action rows back into
// one Grant per module in stored order.
func (r *RoleRepo) grants(ctx context.Context, roleIDs []uint64) (map[uint64][]rbac.Grant, error) {
	ph, args := inList(roleIDs)
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_id, module, action FROM role_permissions WHERE role_id IN (`+ph+`) ORDER BY role_id, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64][]rbac.Grant{}
	for rows.Next() {
		var (
			roleID         uint64
			module, action string
		)
		if err := rows.Scan(&roleID, &module, &action); err != nil {
			return nil, err
		}
		list := out[roleID]
		if n := len(list); n > 0 && list[n-1].Module == module {
			if module != rbac.Wildcard {
				list[n-1].Actions = append(list[n-1].Actions, rbac.Action(action))
			}
		} else if module == rbac.Wildcard {
			list = append(list, rbac.Grant{Module: module, Actions: []rbac.Action{}})
		} else {
			list = append(list, rbac.Grant{Module: module, Actions: []rbac.Action{rbac.Action(action)}})
		}
		out[roleID] = list
	}
	return out, rows.Err()
}

// Update rewrites name, description and grants.
func (r *RoleRepo) Update(ctx context.Context, role *model.Role) error {
	role.Name = strings.ToLower(strings.TrimSpace(role.Name))
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE roles SET name = ?, description = ? WHERE id = ?`,
			role.Name, role.Description, role.ID); err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ?`, role.ID); err != nil {
			return err
		}
		return insertGrants(ctx, tx, role.ID, role.Permissions)
	})
}

func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
