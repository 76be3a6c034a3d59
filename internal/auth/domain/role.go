package domain

import (
	"errors"
	"slices"
	"strings"
)

// Role is one of a closed set of marketplace roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleDispatcher Role = "dispatcher"
	RoleCarrier    Role = "carrier"
	RoleSeller     Role = "seller"
	RoleBuyer      Role = "buyer"
)

// DefaultRole is assigned when registration or federation does not name one.
const DefaultRole = RoleBuyer

// WildcardPermission means every capability.
const WildcardPermission = "*"

var ErrUnknownRole = errors.New("domain: unknown role")

var rolePermissions = map[Role][]string{
	RoleAdmin: {WildcardPermission},
	RoleManager: {
		"accounts:read", "orders:read", "orders:update", "shipments:read",
		"shipments:update", "reports:read", "sessions:revoke",
	},
	RoleDispatcher: {
		"shipments:read", "shipments:assign", "shipments:update", "carriers:read", "tracking:read",
	},
	RoleCarrier: {
		"shipments:read", "bids:create", "bids:read", "tracking:update",
	},
	RoleSeller: {
		"listings:create", "listings:read", "listings:update", "orders:read", "shipments:create",
		"shipments:read",
	},
	RoleBuyer: {
		"listings:read", "orders:create", "orders:read", "shipments:read", "tracking:read",
	},
}

// ParseRole validates s against the closed set. Empty yields DefaultRole.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultRole, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns a fresh copy of the role's permission set.
func (r Role) Permissions() []string {
	return slices.Clone(rolePermissions[r])
}

func (r Role) String() string { return string(r) }
