package auth

import "strings"

const rolePrefix = "ROLE_"

// Principal represents a verified token subject with the roles and
// permissions decoded from its scope claim.
type Principal struct {
	Subject     string
	Roles       []string
	Permissions map[string]struct{}
}

// NewPrincipal decodes a scope string into a Principal. Scope entries with
// the ROLE_ prefix become roles; everything else is a permission name.
func NewPrincipal(subject, scope string) Principal {
	p := Principal{Subject: subject, Permissions: make(map[string]struct{})}
	for _, entry := range strings.Fields(scope) {
		if name, ok := strings.CutPrefix(entry, rolePrefix); ok {
			p.Roles = append(p.Roles, name)
			continue
		}
		p.Permissions[entry] = struct{}{}
	}
	return p
}

// HasRole reports whether the principal carries the named role.
func (p Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal can execute the named action.
func (p Principal) HasPermission(name string) bool {
	_, ok := p.Permissions[name]
	return ok
}
