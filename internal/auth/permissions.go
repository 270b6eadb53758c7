package auth

// Builtin role names. Every registered account starts with RoleUser.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Builtin permission names granted through roles.
const (
	PermRead  = "READ"
	PermWrite = "WRITE"
)

// BuiltinRoles are provisioned by the migrations and referenced by name.
var BuiltinRoles = []Role{
	{Name: RoleUser, Permissions: []Permission{{Name: PermRead}}},
	{Name: RoleAdmin, Permissions: []Permission{{Name: PermRead}, {Name: PermWrite}}},
}
