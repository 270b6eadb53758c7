package auth

import "context"

type principalKey struct{}
type rawTokenKey struct{}

// ContextWithPrincipal returns a context carrying the verified principal.
// Handlers downstream of the authn middleware read it back with
// PrincipalFromContext to learn the subject and its decoded scope.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the principal stored by the authn middleware.
// The bool is false on contexts that never passed through it.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalKey{}).(Principal)
	return principal, ok
}

// ContextWithToken returns a context carrying the raw bearer token, so a
// handler can revoke the very credential that authenticated the request.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, rawTokenKey{}, token)
}

// TokenFromContext returns the raw bearer token for the request, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(rawTokenKey{}).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
