package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/rbac"
	"github.com/iliyamo/hotel-admin/internal/utils"
)

const testSecret = "test-secret"

type memFiles struct {
	put     []string
	removed []string
}

func (m *memFiles) Put(_ context.Context, folder, filename string, body io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	ref := "/uploads/" + folder + "/" + filename
	m.put = append(m.put, ref)
	return ref, nil
}

func (m *memFiles) Remove(_ context.Context, ref string) error {
	m.removed = append(m.removed, ref)
	return nil
}

func newIdentity(t *testing.T) (*IdentityService, *fakeAdmins, *fakeRoles, *memFiles) {
	t.Helper()
	admins, roles, files := newFakeAdmins(), newFakeRoles(), &memFiles{}
	return NewIdentityService(admins, roles, files, testSecret, bcrypt.MinCost), admins, roles, files
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.True(t, errors.As(err, &se), "expected *service.Error, got %T", err)
	return se.Kind
}

func TestRegisterFirstAdminBecomesSuperAdmin(t *testing.T) {
	svc, admins, _, _ := newIdentity(t)
	ctx := context.Background()

	// no caller, asks for nothing special
	a, err := svc.Register(ctx, nil, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Owner"})
	require.NoError(t, err)
	assert.True(t, a.IsSuperAdmin)
	assert.Nil(t, a.RoleID)

	stored, err := admins.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Bootstrap)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
}

func TestFirstAdminIgnoresRequestedRoleAndFlag(t *testing.T) {
	svc, admins, _, _ := newIdentity(t)
	ctx := context.Background()

	roleID := uint64(7)
	a, err := svc.Register(ctx, nil, RegisterInput{
		Email: "owner@hotel.test", Password: "secret1", Name: "Owner", RoleID: &roleID, IsSuperAdmin: false,
	})
	require.NoError(t, err)
	assert.True(t, a.IsSuperAdmin)
	assert.Nil(t, a.RoleID)

	stored, err := admins.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSuperAdmin)
	assert.True(t, stored.Bootstrap)
	assert.Nil(t, stored.RoleID)
}

func TestRegisterSecondAdminNeedsSuperAdmin(t *testing.T) {
	svc, _, roles, _ := newIdentity(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, nil, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Owner"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, nil, RegisterInput{Email: "clerk@hotel.test", Password: "secret1", Name: "Clerk"})
	assert.Equal(t, KindForbidden, kindOf(t, err))

	clerkRole := roleWith(t, roles, "front desk", rbac.Grant{Module: "bookings", Actions: []rbac.Action{rbac.View}})
	owner := &Identity{Admin: first, Authority: first.Authority(), Permissions: rbac.All()}
	a, err := svc.Register(ctx, owner, RegisterInput{Email: "clerk@hotel.test", Password: "secret1", Name: "Clerk", RoleID: &clerkRole})
	require.NoError(t, err)
	assert.False(t, a.IsSuperAdmin)
	require.NotNil(t, a.Role)
	assert.Equal(t, "front desk", a.Role.Name)

	missing := uint64(99)
	_, err = svc.Register(ctx, owner, RegisterInput{Email: "x@hotel.test", Password: "secret1", Name: "X", RoleID: &missing})
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newIdentity(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, nil, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Owner"})
	require.NoError(t, err)
	owner := &Identity{Admin: first, Authority: first.Authority()}

	_, err = svc.Register(ctx, owner, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Again"})
	assert.Equal(t, KindConflict, kindOf(t, err))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newIdentity(t)
	_, err := svc.Register(context.Background(), nil, RegisterInput{Email: "not-an-email", Password: "123", Name: " "})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindValidation, se.Kind)
	assert.Equal(t, map[string]string{"email": "email", "password": "min", "name": "required"}, se.Fields)

	_, err = svc.Register(context.Background(), nil, RegisterInput{
		Email: "owner@hotel.test", Password: strings.Repeat("p", 80), Name: "Owner",
	})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindValidation, se.Kind)
	assert.Equal(t, map[string]string{"password": "max"}, se.Fields)
}

func TestLoginFailsUniformly(t *testing.T) {
	svc, _, _, _ := newIdentity(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, nil, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Owner"})
	require.NoError(t, err)

	_, wrongPass := svc.Login(ctx, "owner@hotel.test", "nope")
	_, noUser := svc.Login(ctx, "ghost@hotel.test", "secret1")
	assert.Equal(t, KindInvalidCredentials, kindOf(t, wrongPass))
	assert.Equal(t, wrongPass.Error(), noUser.Error())

	res, err := svc.Login(ctx, "owner@hotel.test", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Greater(t, res.ExpiresAt, int64(0))
}

func TestResolveIdentityCarriesRolePermissions(t *testing.T) {
	svc, admins, roles, _ := newIdentity(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, nil, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Owner"})
	require.NoError(t, err)
	roleID := roleWith(t, roles, "housekeeper", rbac.Grant{Module: "housekeeping", Actions: []rbac.Action{rbac.View, rbac.Edit}})
	clerk := seedAdmin(t, admins, "hk@hotel.test", &roleID)

	tok, err := utils.IssueAdminToken(testSecret, clerk, false)
	require.NoError(t, err)
	ident, err := svc.ResolveIdentity(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleRef, ident.Authority.Kind)
	assert.True(t, ident.Can("housekeeping", rbac.Edit))
	assert.False(t, ident.Can("housekeeping", rbac.Delete))
	assert.False(t, ident.Can("bookings", rbac.View))

	// permissions are read fresh: dropping the role takes effect immediately
	require.NoError(t, roles.Delete(ctx, roleID))
	ident, err = svc.ResolveIdentity(ctx, tok.Token)
	require.NoError(t, err)
	assert.False(t, ident.Can("housekeeping", rbac.View))

	_, err = svc.ResolveIdentity(ctx, "garbage")
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
	_, err = svc.ResolveIdentity(ctx, "")
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
}

func TestSuperAdminResolvesToEverything(t *testing.T) {
	svc, _, _, _ := newIdentity(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, nil, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Owner"})
	require.NoError(t, err)
	res, err := svc.Login(ctx, "owner@hotel.test", "secret1")
	require.NoError(t, err)

	ident, err := svc.ResolveIdentity(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, ident.IsSuperAdmin())
	assert.True(t, ident.Can("collections", rbac.Delete))
}

func TestDeleteAdmin(t *testing.T) {
	svc, admins, _, _ := newIdentity(t)
	ctx := context.Background()

	owner, err := svc.Register(ctx, nil, RegisterInput{Email: "owner@hotel.test", Password: "secret1", Name: "Owner"})
	require.NoError(t, err)
	assert.Equal(t, KindForbidden, kindOf(t, svc.DeleteAdmin(ctx, owner.ID)))

	clerk := seedAdmin(t, admins, "clerk@hotel.test", nil)
	require.NoError(t, svc.DeleteAdmin(ctx, clerk))
	assert.Equal(t, KindNotFound, kindOf(t, svc.DeleteAdmin(ctx, clerk)))
}

func TestAssignRole(t *testing.T) {
	svc, admins, roles, _ := newIdentity(t)
	ctx := context.Background()
	clerk := seedAdmin(t, admins, "clerk@hotel.test", nil)
	roleID := roleWith(t, roles, "night audit", rbac.Grant{Module: "finance", Actions: []rbac.Action{rbac.View}})

	a, err := svc.AssignRole(ctx, clerk, &roleID)
	require.NoError(t, err)
	require.NotNil(t, a.Role)
	assert.Equal(t, roleID, a.Role.ID)

	a, err = svc.AssignRole(ctx, clerk, nil)
	require.NoError(t, err)
	assert.Nil(t, a.RoleID)
	assert.Nil(t, a.Role)

	bogus := uint64(404)
	_, err = svc.AssignRole(ctx, clerk, &bogus)
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestUpdateProfileReplacesImage(t *testing.T) {
	svc, admins, _, files := newIdentity(t)
	ctx := context.Background()
	id := seedAdmin(t, admins, "clerk@hotel.test", nil)

	name := "Renamed"
	a, err := svc.UpdateProfile(ctx, id, ProfileUpdate{Name: &name, Image: &Upload{Filename: "a.png", Body: bytes.NewReader([]byte("png"))}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", a.Name)
	assert.Equal(t, "/uploads/profiles/a.png", a.ProfileImage)
	assert.Empty(t, files.removed)

	_, err = svc.UpdateProfile(ctx, id, ProfileUpdate{Image: &Upload{Filename: "b.png", Body: bytes.NewReader([]byte("png"))}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/profiles/a.png"}, files.removed)

	short := "123"
	_, err = svc.UpdateProfile(ctx, id, ProfileUpdate{Password: &short})
	assert.Equal(t, KindValidation, kindOf(t, err))

	long := strings.Repeat("p", 80)
	_, err = svc.UpdateProfile(ctx, id, ProfileUpdate{Password: &long})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindValidation, se.Kind)
	assert.Equal(t, map[string]string{"password": "max"}, se.Fields)
}

func seedAdmin(t *testing.T, admins *fakeAdmins, email string, roleID *uint64) uint64 {
	t.Helper()
	hash, err := utils.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	a := model.Admin{Email: email, PasswordHash: hash, Name: email, RoleID: roleID}
	require.NoError(t, admins.Create(context.Background(), &a, func(bool) error { return nil }))
	return a.ID
}

func roleWith(t *testing.T, roles *fakeRoles, name string, grants ...rbac.Grant) uint64 {
	t.Helper()
	r := model.Role{Name: name, Permissions: grants}
	require.NoError(t, roles.Create(context.Background(), &r))
	return r.ID
}
