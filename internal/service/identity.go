package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/rbac"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/storage"
	"github.com/iliyamo/hotel-admin/internal/utils"
)

const minPasswordLen = 6

type AdminStore interface {
	Create(ctx context.Context, a *model.Admin, authorize func(first bool) error) error
	GetByID(ctx context.Context, id uint64) (model.Admin, error)
	GetByEmail(ctx context.Context, email string) (model.Admin, error)
	List(ctx context.Context) ([]model.Admin, error)
	UpdateProfile(ctx context.Context, a *model.Admin) error
	SetRole(ctx context.Context, id uint64, roleID *uint64) error
	Delete(ctx context.Context, id uint64) error
}

type RoleStore interface {
	Create(ctx context.Context, r *model.Role) error
	Get(ctx context.Context, id uint64) (model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	Update(ctx context.Context, r *model.Role) error
	Delete(ctx context.Context, id uint64) error
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	Admin       model.Admin
	Authority   rbac.Authority
	Permissions rbac.Set
}

// Can is the permission gate decision for this caller.
func (i *Identity) Can(module string, action rbac.Action) bool {
	if i == nil {
		return false
	}
	return rbac.Allows(i.Authority, i.Permissions, module, action)
}

func (i *Identity) IsSuperAdmin() bool { return i != nil && i.Authority.Kind == rbac.SuperAdmin }

// IdentityService registers and authenticates admins and resolves tokens
// into identities.
type IdentityService struct {
	admins AdminStore
	roles  RoleStore
	files  FileStore
	secret string
	cost   int
}

func NewIdentityService(admins AdminStore, roles RoleStore, files FileStore, secret string, bcryptCost int) *IdentityService {
	if admins == nil || roles == nil {
		panic("identity service: nil store")
	}
	if secret == "" {
		panic("identity service: empty jwt secret")
	}
	return &IdentityService{admins: admins, roles: roles, files: files, secret: secret, cost: bcryptCost}
}

type RegisterInput struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	Name         string         `json:"name"`
	RoleID       *uint64        `json:"role_id"`
	IsSuperAdmin bool           `json:"is_super_admin"`
	Extra        map[string]any `json:"extra"`
}

// checkPassword returns the failed rule tag, or "".
func checkPassword(p string) string {
	switch {
	case len(p) < minPasswordLen:
		return "min"
	case len(p) > utils.MaxPasswordBytes:
		return "max"
	}
	return ""
}

func (in RegisterInput) check() error {
	fields := map[string]string{}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		fields["email"] = "email"
	}
	if tag := checkPassword(in.Password); tag != "" {
		fields["password"] = tag
	}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "required"
	}
	if len(fields) > 0 {
		return ValidationFields("Invalid admin details", fields)
	}
	return nil
}

// Register creates an admin. The very first admin becomes the super-admin
// regardless of what was asked; after that only a super-admin caller may
// register admins. caller is nil for unauthenticated requests.
func (s *IdentityService) Register(ctx context.Context, caller *Identity, in RegisterInput) (model.Admin, error) {
	if err := in.check(); err != nil {
		return model.Admin{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return model.Admin{}, Internal("Internal server error", err)
	}
	a := model.Admin{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Extra:        in.Extra,
	}
	err = s.admins.Create(ctx, &a, func(first bool) error {
		if first {
			a.IsSuperAdmin = true
			a.Bootstrap = true
			a.RoleID = nil
			return nil
		}
		if !caller.IsSuperAdmin() {
			return Forbidden("Only a super admin can register admins")
		}
		if in.RoleID != nil {
			if _, err := s.roles.Get(ctx, *in.RoleID); err != nil {
				return storeErr(err, "Role")
			}
		}
		a.RoleID = in.RoleID
		a.IsSuperAdmin = in.IsSuperAdmin
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Admin{}, Conflict("Email already registered")
	}
	if err != nil {
		return model.Admin{}, storeErr(err, "Admin")
	}
	return s.withRole(ctx, a)
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	Admin     model.Admin `json:"admin"`
}

// Login checks credentials and issues a token. Unknown email and wrong
// password fail identically.
func (s *IdentityService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	a, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, InvalidCredentials()
	}
	if err != nil {
		return LoginResult{}, Internal("Internal server error", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		return LoginResult{}, InvalidCredentials()
	}
	tok, err := utils.IssueAdminToken(s.secret, a.ID, a.IsSuperAdmin)
	if err != nil {
		return LoginResult{}, Internal("Internal server error", err)
	}
	a, err = s.withRole(ctx, a)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: tok.Token, ExpiresAt: tok.Exp.Unix(), Admin: a}, nil
}

// ResolveIdentity turns a bearer token into the caller's identity, reading
// authority and permissions fresh from the store.
func (s *IdentityService) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, Unauthorized("Missing token")
	}
	id, err := utils.ParseAdminToken(s.secret, token)
	if err != nil {
		return nil, Unauthorized("Invalid or expired token")
	}
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Admin")
	}
	ident := &Identity{Admin: a, Authority: a.Authority(), Permissions: rbac.Set{}}
	switch ident.Authority.Kind {
	case rbac.SuperAdmin:
		ident.Permissions = rbac.All()
	case rbac.RoleRef:
		role, err := s.roles.Get(ctx, ident.Authority.RoleID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// role vanished between reads; the admin holds nothing
		case err != nil:
			return nil, Internal("Internal server error", err)
		default:
			ident.Admin.Role = &role
			ident.Permissions = rbac.Flatten(role.Permissions)
		}
	}
	return ident, nil
}

func (s *IdentityService) GetProfile(ctx context.Context, adminID uint64) (model.Admin, error) {
	a, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return model.Admin{}, storeErr(err, "Admin")
	}
	return s.withRole(ctx, a)
}

// ProfileUpdate holds the self-editable fields; nil means unchanged.
type ProfileUpdate struct {
	Name     *string
	Password *string
	Image    *Upload
	Extra    map[string]any
}

// UpdateProfile edits the caller's own profile. A new image replaces the
// previous one, which is deleted.
func (s *IdentityService) UpdateProfile(ctx context.Context, adminID uint64, up ProfileUpdate) (model.Admin, error) {
	a, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return model.Admin{}, storeErr(err, "Admin")
	}
	if up.Name != nil {
		name := strings.TrimSpace(*up.Name)
		if name == "" {
			return model.Admin{}, ValidationFields("Invalid profile", map[string]string{"name": "required"})
		}
		a.Name = name
	}
	if up.Password != nil {
		if tag := checkPassword(*up.Password); tag != "" {
			return model.Admin{}, ValidationFields("Invalid profile", map[string]string{"password": tag})
		}
		hash, err := utils.HashPassword(*up.Password, s.cost)
		if err != nil {
			return model.Admin{}, Internal("Internal server error", err)
		}
		a.PasswordHash = hash
	}
	if up.Extra != nil {
		a.Extra = up.Extra
	}
	previous := ""
	if up.Image != nil {
		if s.files == nil {
			return model.Admin{}, Internal("Uploads are not configured", errors.New("no file store"))
		}
		ref, err := s.files.Put(ctx, "profiles", up.Image.Filename, up.Image.Body)
		if err != nil {
			return model.Admin{}, uploadErr(err)
		}
		previous, a.ProfileImage = a.ProfileImage, ref
	}
	if err := s.admins.UpdateProfile(ctx, &a); err != nil {
		if up.Image != nil {
			removeQuietly(ctx, s.files, a.ProfileImage)
		}
		return model.Admin{}, storeErr(err, "Admin")
	}
	removeQuietly(ctx, s.files, previous)
	return s.withRole(ctx, a)
}

func uploadErr(err error) error {
	if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
		return Validation(err.Error())
	}
	return Internal("Upload failed", err)
}

// ListAdmins returns every admin with its role.
func (s *IdentityService) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, storeErr(err, "Admin")
	}
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, storeErr(err, "Role")
	}
	byID := make(map[uint64]*model.Role, len(roles))
	for i := range roles {
		byID[roles[i].ID] = &roles[i]
	}
	for i := range admins {
		if admins[i].RoleID != nil {
			admins[i].Role = byID[*admins[i].RoleID]
		}
	}
	return admins, nil
}

// AssignRole sets or, with a nil roleID, clears an admin's role.
func (s *IdentityService) AssignRole(ctx context.Context, adminID uint64, roleID *uint64) (model.Admin, error) {
	a, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return model.Admin{}, storeErr(err, "Admin")
	}
	if roleID != nil {
		if _, err := s.roles.Get(ctx, *roleID); err != nil {
			return model.Admin{}, storeErr(err, "Role")
		}
	}
	if err := s.admins.SetRole(ctx, adminID, roleID); err != nil {
		return model.Admin{}, storeErr(err, "Admin")
	}
	a.RoleID = roleID
	return s.withRole(ctx, a)
}

// DeleteAdmin removes an admin. Super-admins can never be deleted.
func (s *IdentityService) DeleteAdmin(ctx context.Context, adminID uint64) error {
	a, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return storeErr(err, "Admin")
	}
	if a.IsSuperAdmin {
		return Forbidden("Super admin cannot be deleted")
	}
	if err := s.admins.Delete(ctx, adminID); err != nil {
		return storeErr(err, "Admin")
	}
	removeQuietly(ctx, s.files, a.ProfileImage)
	return nil
}

func (s *IdentityService) withRole(ctx context.Context, a model.Admin) (model.Admin, error) {
	a.Role = nil
	if a.RoleID == nil {
		return a, nil
	}
	role, err := s.roles.Get(ctx, *a.RoleID)
	if errors.Is(err, repository.ErrNotFound) {
		return a, nil
	}
	if err != nil {
		return model.Admin{}, Internal("Internal server error", err)
	}
	a.Role = &role
	return a, nil
}
