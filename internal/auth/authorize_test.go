package auth

import (
	"context"
	"testing"
)

func TestNewPrincipal(t *testing.T) {
	cases := []struct {
		name  string
		scope string
		roles []string
		perms []string
	}{
		{"admin", "ROLE_ADMIN READ WRITE", []string{"ADMIN"}, []string{"READ", "WRITE"}},
		{"two roles", "ROLE_ADMIN READ ROLE_USER", []string{"ADMIN", "USER"}, []string{"READ"}},
		{"role only", "ROLE_USER", []string{"USER"}, nil},
		{"empty", "", nil, nil},
		{"extra whitespace", "  ROLE_USER   READ  ", []string{"USER"}, []string{"READ"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPrincipal("alice@ldtt.org", tc.scope)
			if p.Subject != "alice@ldtt.org" {
				t.Fatalf("unexpected subject %q", p.Subject)
			}
			if len(p.Roles) != len(tc.roles) {
				t.Fatalf("roles = %v, want %v", p.Roles, tc.roles)
			}
			for _, r := range tc.roles {
				if !p.HasRole(r) {
					t.Fatalf("missing role %s in %v", r, p.Roles)
				}
			}
			if len(p.Permissions) != len(tc.perms) {
				t.Fatalf("permissions = %v, want %v", p.Permissions, tc.perms)
			}
			for _, perm := range tc.perms {
				if !p.HasPermission(perm) {
					t.Fatalf("missing permission %s", perm)
				}
			}
		})
	}
}

func TestHasRoleAndPermissionMiss(t *testing.T) {
	p := NewPrincipal("alice@ldtt.org", "ROLE_USER READ")
	if p.HasRole("ADMIN") {
		t.Fatal("unexpected ADMIN role")
	}
	if p.HasPermission("WRITE") {
		t.Fatal("unexpected WRITE permission")
	}
	// Role names are not permissions and vice versa.
	if p.HasPermission("ROLE_USER") || p.HasRole("READ") {
		t.Fatal("scope entry classified both ways")
	}
}

func TestPrincipalContextRoundtrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("expected no principal in empty context")
	}

	p := NewPrincipal("alice@ldtt.org", "ROLE_ADMIN READ")
	ctx = ContextWithPrincipal(ctx, p)
	got, ok := PrincipalFromContext(ctx)
	if !ok || got.Subject != p.Subject {
		t.Fatalf("principal roundtrip failed: %+v, %v", got, ok)
	}
}

func TestTokenContextRoundtrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := TokenFromContext(ctx); ok {
		t.Fatal("expected no token in empty context")
	}
	if ctx2 := ContextWithToken(ctx, ""); ctx2 != ctx {
		t.Fatal("empty token should not modify the context")
	}

	ctx = ContextWithToken(ctx, "abc.def.ghi")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "abc.def.ghi" {
		t.Fatalf("token roundtrip failed: %q, %v", token, ok)
	}
}
