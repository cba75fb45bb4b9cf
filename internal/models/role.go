package models

// Role is the closed set of account roles. Adding a role means extending this
// list and the switch in Capabilities, nothing else.
type Role string

const (
	RoleUser      Role = "user"
	RoleWriter    Role = "writer"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleWriter, RoleModerator, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleWriter, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Capability is a named permission granted wholesale per role.
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapModerate
	CapAdmin
)

// Has reports whether c contains all capabilities in want.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Capabilities maps a role to its capability set. The sets are strictly
// nested: every role includes everything the previous one can do.
func Capabilities(r Role) Capability {
	switch r {
	case RoleAdmin:
		return CapRead | CapWrite | CapModerate | CapAdmin
	case RoleModerator:
		return CapRead | CapWrite | CapModerate
	case RoleWriter:
		return CapRead | CapWrite
	case RoleUser:
		return CapRead
	default:
		return 0
	}
}

// StaffRoles are the roles that receive private-upload notifications.
func StaffRoles() []Role {
	return []Role{RoleWriter, RoleModerator, RoleAdmin}
}
