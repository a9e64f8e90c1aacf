package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-admin/internal/model"
)

type AdminRepo struct{ db *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

const adminColumns = `id, email, password_hash, name, profile_image, role_id, is_super_admin,
	bootstrap, extra, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanAdmin(row rowScanner) (model.Admin, error) {
	var (
		a         model.Admin
		roleID    sql.NullInt64
		bootstrap sql.NullBool
		extra     []byte
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.ProfileImage, &roleID,
		&a.IsSuperAdmin, &bootstrap, &extra, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Admin{}, err
	}
	if roleID.Valid {
		id := uint64(roleID.Int64)
		a.RoleID = &id
	}
	a.Bootstrap = bootstrap.Valid && bootstrap.Bool
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &a.Extra); err != nil {
			return model.Admin{}, fmt.Errorf("decode admin extra: %w", err)
		}
	}
	return a, nil
}

func encodeExtra(extra map[string]any) (any, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Create inserts an admin. The admin count is read under a lock in the same
// transaction and passed to authorize, which may adjust a (the first admin
// is forced super-admin) or refuse the insert. At most one row can carry the
// bootstrap marker, so two racing first registrations cannot both succeed.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin, authorize func(first bool) error) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins FOR UPDATE`).Scan(&count); err != nil {
			return err
		}
		if err := authorize(count == 0); err != nil {
			return err
		}
		extra, err := encodeExtra(a.Extra)
		if err != nil {
			return err
		}
		var bootstrap any
		if a.Bootstrap {
			bootstrap = true
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO admins (email, password_hash, name, profile_image, role_id, is_super_admin, bootstrap, extra)
			 VALUES (?,?,?,?,?,?,?,?)`,
			a.Email, a.PasswordHash, a.Name, a.ProfileImage, a.RoleID, a.IsSuperAdmin, bootstrap, extra)
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
		created, err := scanAdmin(tx.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id))
		if err != nil {
			return err
		}
		*a = created
		return nil
	})
}

func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id))
	return a, notFound(err)
}

// GetByEmail looks an admin up by normalised email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := scanAdmin(r.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = ? LIMIT 1`, email))
	return a, notFound(err)
}

func (r *AdminRepo) List(ctx context.Context) ([]model.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateProfile writes the self-editable fields.
func (r *AdminRepo) UpdateProfile(ctx context.Context, a *model.Admin) error {
	extra, err := encodeExtra(a.Extra)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE admins SET name = ?, password_hash = ?, profile_image = ?, extra = ? WHERE id = ?`,
		a.Name, a.PasswordHash, a.ProfileImage, extra, a.ID)
	return err
}

// SetRole assigns or clears the admin's role.
func (r *AdminRepo) SetRole(ctx context.Context, id uint64, roleID *uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admins SET role_id = ? WHERE id = ?`, roleID, id)
	return err
}

func (r *AdminRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
