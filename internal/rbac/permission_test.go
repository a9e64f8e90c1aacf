package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowsExactPairOnly(t *testing.T) {
	perms := Flatten([]Grant{{Module: "bookings", Actions: []Action{View}}})
	auth := Authority{Kind: RoleRef, RoleID: 7}

	assert.True(t, Allows(auth, perms, "bookings", View))
	assert.False(t, Allows(auth, perms, "bookings", Edit))
	assert.False(t, Allows(auth, perms, "rooms", View))
}

func TestAllowsWildcardAndSuperAdmin(t *testing.T) {
	wild := Flatten([]Grant{{Module: Wildcard}})
	assert.True(t, Allows(Authority{Kind: RoleRef, RoleID: 1}, wild, "collections", Delete))

	assert.True(t, Allows(Authority{Kind: SuperAdmin}, Set{}, "admins", Delete))
	assert.False(t, Allows(Authority{Kind: NoAuthority}, Set{}, "admins", View))
}

func TestAllContainsEveryPair(t *testing.T) {
	all := All()
	assert.Len(t, all, len(Modules)*len(Actions)+1)
	for _, m := range Modules {
		for _, a := range Actions {
			assert.True(t, all.Has(Key(m, a)), Key(m, a))
		}
	}
	assert.Equal(t, Wildcard, all.List()[0])
}

func TestNormalizeGrants(t *testing.T) {
	got, err := NormalizeGrants([]Grant{
		{Module: " Rooms ", Actions: []Action{"VIEW", "edit", "view"}},
		{Module: "rooms", Actions: []Action{"delete"}},
		{Module: "*"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Grant{Module: "rooms", Actions: []Action{View, Edit, Delete}}, got[0])
	assert.Equal(t, Wildcard, got[1].Module)

	_, err = NormalizeGrants([]Grant{{Module: "spaceships", Actions: []Action{View}}})
	assert.Error(t, err)
	_, err = NormalizeGrants([]Grant{{Module: "rooms", Actions: []Action{"approve"}}})
	assert.Error(t, err)
	_, err = NormalizeGrants([]Grant{{Module: "rooms"}})
	assert.Error(t, err)
}
