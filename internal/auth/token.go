package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultIssuer is the iss claim stamped into every token.
const DefaultIssuer = "LDTT"

// CodecConfig carries the immutable signing configuration. It is supplied at
// process start and never changes afterwards.
type CodecConfig struct {
	// Secret is the shared HMAC-SHA-512 signing key.
	Secret []byte
	// Issuer overrides DefaultIssuer when non-empty.
	Issuer string
	// ValidDuration is the access token validity window.
	ValidDuration time.Duration
	// RefreshableDuration is the grace window measured from issue time within
	// which an expired token is still accepted for logout and refresh.
	RefreshableDuration time.Duration
}

// Claims is the payload carried inside a signed token.
type Claims struct {
	// Scope is a space-separated string of ROLE_<name> markers and permission
	// names, e.g. "ROLE_ADMIN READ WRITE".
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Codec builds and signs token claims, and parses and verifies token strings.
// Verification consults the revocation store so a revoked jti is rejected even
// while the token is otherwise valid.
type Codec struct {
	cfg     CodecConfig
	revoked InvalidatedTokenStore
	now     func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithCodecClock overrides the codec time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec.
func NewCodec(cfg CodecConfig, revoked InvalidatedTokenStore, opts ...CodecOption) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	if cfg.ValidDuration <= 0 {
		return nil, errors.New("auth: valid duration must be greater than zero")
	}
	if cfg.RefreshableDuration <= 0 {
		return nil, errors.New("auth: refreshable duration must be greater than zero")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if revoked == nil {
		return nil, errors.New("auth: revocation store is required")
	}
	c := &Codec{cfg: cfg, revoked: revoked, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a fresh token for the account with a new random jti.
func (c *Codec) Issue(account *Account) (string, error) {
	now := c.now().UTC()
	claims := Claims{
		Scope: BuildScope(account),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Email,
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.ValidDuration)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(c.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify parses the token string, checks the HMAC signature, the effective
// expiry, and the revocation store. In refresh mode the effective expiry is
// the issue time plus the refreshable duration, so an expired access token is
// still accepted for logout and refresh inside that window.
//
// All verification failures surface as ErrUnauthenticated; only revocation
// store failures propagate unchanged.
func (c *Codec) Verify(ctx context.Context, token string, refresh bool) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		// Expiry is validated manually: refresh mode substitutes its own window.
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	})
	if err != nil {
		return nil, ErrUnauthenticated
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if claims.Issuer != c.cfg.Issuer {
		return nil, ErrUnauthenticated
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil || claims.ID == "" {
		return nil, ErrUnauthenticated
	}

	expiry := claims.ExpiresAt.Time
	if refresh {
		expiry = claims.IssuedAt.Time.Add(c.cfg.RefreshableDuration)
	}
	if !c.now().Before(expiry) {
		return nil, ErrUnauthenticated
	}

	revoked, err := c.revoked.Contains(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// RevocationExpiry returns how long a revoked jti must stay on the denylist:
// until the refresh window closes. A revocation pinned to the token's own exp
// would lapse while refresh mode still accepts the token.
func (c *Codec) RevocationExpiry(claims *Claims) time.Time {
	return claims.IssuedAt.Time.Add(c.cfg.RefreshableDuration)
}

// BuildScope concatenates ROLE_<name> for each of the account's roles,
// followed by that role's permission names, all space-separated, in the
// account's iteration order.
func BuildScope(account *Account) string {
	var parts []string
	for _, role := range account.Roles {
		parts = append(parts, "ROLE_"+role.Name)
		for _, perm := range role.Permissions {
			parts = append(parts, perm.Name)
		}
	}
	return strings.Join(parts, " ")
}
