package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service orchestrates login, introspection, logout, and refresh over the
// account directory, the token codec, and the revocation store. Each request
// is handled independently; the revocation store is the only shared mutable
// state.
type Service struct {
	accounts AccountStore
	revoked  InvalidatedTokenStore
	codec    *Codec
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(accounts AccountStore, revoked InvalidatedTokenStore, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("auth: account store is required")
	}
	if revoked == nil {
		return nil, errors.New("auth: revocation store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	s := &Service{accounts: accounts, revoked: revoked, codec: codec, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate checks the credentials and issues a token on success.
// A lookup miss is ErrUserNotFound; a password mismatch is ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", ErrUnauthenticated
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("find account: %w", err)
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return "", ErrUnauthenticated
	}
	return s.codec.Issue(account)
}

// Introspect reports whether the token passes verification. An
// unauthenticated result is not an error; any other failure propagates.
func (s *Service) Introspect(ctx context.Context, token string) (bool, error) {
	_, err := s.codec.Verify(ctx, token, false)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Logout revokes the token by inserting its jti into the revocation store.
// The token is verified in refresh mode so a recently expired access token
// can still be logged out. Logout of an already invalid token is a no-op.
// The bool reports whether a denylist entry was written.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	claims, err := s.codec.Verify(ctx, token, true)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return false, nil
		}
		return false, err
	}
	if err := s.revoked.Insert(ctx, InvalidatedToken{
		ID:         claims.ID,
		ExpiryTime: s.codec.RevocationExpiry(claims),
	}); err != nil {
		return false, err
	}
	return true, nil
}

// Refresh revokes the presented token and issues a brand-new one with a fresh
// jti for the same subject. Unlike Logout, a failed verification is an error.
func (s *Service) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := s.codec.Verify(ctx, token, true)
	if err != nil {
		return "", err
	}
	if err := s.revoked.Insert(ctx, InvalidatedToken{
		ID:         claims.ID,
		ExpiryTime: s.codec.RevocationExpiry(claims),
	}); err != nil {
		return "", fmt.Errorf("revoke token: %w", err)
	}
	account, err := s.accounts.FindBySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("resolve subject: %w", err)
	}
	return s.codec.Issue(account)
}

// Identity verifies an access token and returns the principal encoded in its
// claims. Used by transport middleware to authenticate bearer requests.
func (s *Service) Identity(ctx context.Context, token string) (Principal, error) {
	claims, err := s.codec.Verify(ctx, token, false)
	if err != nil {
		return Principal{}, err
	}
	return NewPrincipal(claims.Subject, claims.Scope), nil
}

// Register creates an account with the builtin USER role and a bcrypt
// password hash. Email is normalized to lower case.
func (s *Service) Register(ctx context.Context, email, username, password string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if username == "" {
		username = email[:strings.Index(email, "@")]
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Roles:        []Role{{Name: RoleUser}},
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Account loads the account behind a verified subject.
func (s *Service) Account(ctx context.Context, subject string) (*Account, error) {
	return s.accounts.FindBySubject(ctx, subject)
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	return nil
}
