package org

import (
	"fmt"
	"strings"
)

// PermissionLevel is the access tier a node requires. Levels are totally
// ordered: public < manager < admin.
type PermissionLevel string

const (
	PermissionPublic  PermissionLevel = "public"
	PermissionManager PermissionLevel = "manager"
	PermissionAdmin   PermissionLevel = "admin"
)

var permissionRank = map[PermissionLevel]int{
	PermissionPublic:  0,
	PermissionManager: 1,
	PermissionAdmin:   2,
}

// ParsePermissionLevel parses a permission level, case-insensitively.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	level := PermissionLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := permissionRank[level]; !ok {
		return "", fmt.Errorf("unknown permission level %q", s)
	}
	return level, nil
}

// IsValid reports whether p is one of the known levels.
func (p PermissionLevel) IsValid() bool {
	_, ok := permissionRank[p]
	return ok
}

// rank returns the position of p in the ordering, or ok=false for an
// unknown level.
func (p PermissionLevel) rank() (int, bool) {
	r, ok := permissionRank[p]
	return r, ok
}

// Exceeds reports whether p is strictly higher than clearance. Both sides
// fail closed: an unknown node level exceeds every clearance, and an
// unknown clearance is exceeded by every level.
func (p PermissionLevel) Exceeds(clearance PermissionLevel) bool {
	required, ok := p.rank()
	if !ok {
		return true
	}
	held, ok := clearance.rank()
	if !ok {
		return true
	}
	return required > held
}

// Role is the viewer's account role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// ClearanceFor maps a role to the highest permission level it may see.
// Unknown roles get public clearance.
func ClearanceFor(role Role) PermissionLevel {
	switch role {
	case RoleAdmin:
		return PermissionAdmin
	case RoleManager:
		return PermissionManager
	default:
		return PermissionPublic
	}
}

// AllowedLevels lists every level visible to role, lowest first.
func AllowedLevels(role Role) []PermissionLevel {
	clearance := ClearanceFor(role)
	levels := make([]PermissionLevel, 0, len(permissionRank))
	for _, l := range []PermissionLevel{PermissionPublic, PermissionManager, PermissionAdmin} {
		if !l.Exceeds(clearance) {
			levels = append(levels, l)
		}
	}
	return levels
}

// Viewer is the read-only identity consumed by redaction and action visibility.
type Viewer struct {
	UserID    string
	Role      Role
	Clearance PermissionLevel
}

// NewViewer builds a viewer whose clearance derives from role.
func NewViewer(userID string, role Role) Viewer {
	return Viewer{UserID: userID, Role: role, Clearance: ClearanceFor(role)}
}

// CanEdit reports whether the viewer may update or delete entities.
func (v Viewer) CanEdit() bool {
	return v.Role == RoleAdmin
}
