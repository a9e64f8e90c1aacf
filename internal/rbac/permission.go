// Package rbac holds the permission model shared by the identity service and
// the HTTP permission gate. It has no I/O: grants come in, a flat set and a
// yes/no decision come out.
package rbac

import (
	"fmt"
	"strings"
)

// Action is one of the four operations a grant can allow on a module.
type Action string

const (
	View   Action = "view"
	Create Action = "create"
	Edit   Action = "edit"
	Delete Action = "delete"
)

// Actions lists every valid action in display order.
var Actions = []Action{View, Create, Edit, Delete}

// Wildcard as a grant module (or set member) allows everything.
const Wildcard = "*"

// Modules is the closed list of permission modules.
var Modules = []string{
	"admins", "roles", "rooms", "bookings", "guests", "housekeeping",
	"staff_attendance", "finance", "inventory", "valet_parking", "leads",
	"categories", "statuses", "inquiries", "collections", "catering",
	"event_packages",
}

// Grant allows a set of actions on one module.
type Grant struct {
	Module  string   `json:"module"`
	Actions []Action `json:"actions"`
}

// Key is the set member for a (module, action) pair.
func Key(module string, action Action) string { return module + ":" + string(action) }

// Set is a flattened permission set.
type Set map[string]struct{}

// Flatten turns role grants into a set. A grant on the wildcard module adds
// the wildcard member regardless of its actions.
func Flatten(grants []Grant) Set {
	s := Set{}
	for _, g := range grants {
		if g.Module == Wildcard {
			s[Wildcard] = struct{}{}
			continue
		}
		for _, a := range g.Actions {
			s[Key(g.Module, a)] = struct{}{}
		}
	}
	return s
}

// All is the set held by a super-admin: every pair plus the wildcard.
func All() Set {
	s := Set{Wildcard: {}}
	for _, m := range Modules {
		for _, a := range Actions {
			s[Key(m, a)] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(member string) bool {
	_, ok := s[member]
	return ok
}

// List returns the members sorted by module order then action order, with
// the wildcard first when present.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	if s.Has(Wildcard) {
		out = append(out, Wildcard)
	}
	for _, m := range Modules {
		for _, a := range Actions {
			if k := Key(m, a); s.Has(k) {
				out = append(out, k)
			}
		}
	}
	return out
}

// AuthorityKind distinguishes how an admin is authorised.
type AuthorityKind int

const (
	NoAuthority AuthorityKind = iota
	SuperAdmin
	RoleRef
)

// Authority is either SuperAdmin or a reference to a role. An admin with
// neither holds no permissions.
type Authority struct {
	Kind   AuthorityKind
	RoleID uint64
}

func (a Authority) String() string {
	switch a.Kind {
	case SuperAdmin:
		return "super_admin"
	case RoleRef:
		return fmt.Sprintf("role:%d", a.RoleID)
	}
	return "none"
}

// Allows is the gate decision: super-admin, or the wildcard, or the exact pair.
func Allows(auth Authority, perms Set, module string, action Action) bool {
	if auth.Kind == SuperAdmin {
		return true
	}
	return perms.Has(Wildcard) || perms.Has(Key(module, action))
}

// IsModule reports whether name is a known module.
func IsModule(name string) bool {
	for _, m := range Modules {
		if m == name {
			return true
		}
	}
	return false
}

// ParseAction normalises and checks an action name.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, true
		}
	}
	return "", false
}

// NormalizeGrants validates grants and returns them with lower-cased names
// and duplicate actions removed. Order of first appearance is kept.
func NormalizeGrants(grants []Grant) ([]Grant, error) {
	out := make([]Grant, 0, len(grants))
	index := map[string]int{}
	for _, g := range grants {
		module := strings.ToLower(strings.TrimSpace(g.Module))
		if module != Wildcard && !IsModule(module) {
			return nil, fmt.Errorf("unknown module %q", g.Module)
		}
		i, seen := index[module]
		if !seen {
			i = len(out)
			index[module] = i
			out = append(out, Grant{Module: module})
		}
		for _, raw := range g.Actions {
			a, ok := ParseAction(string(raw))
			if !ok {
				return nil, fmt.Errorf("unknown action %q for module %q", raw, module)
			}
			if !containsAction(out[i].Actions, a) {
				out[i].Actions = append(out[i].Actions, a)
			}
		}
		if module != Wildcard && len(out[i].Actions) == 0 {
			return nil, fmt.Errorf("module %q has no actions", module)
		}
	}
	return out, nil
}

func containsAction(list []Action, a Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
