package auth

import "context"

// AccountStore resolves accounts for authentication. Implementations must
// return ErrUserNotFound (possibly wrapped) on a lookup miss so the service
// can distinguish a missing account from a storage failure.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindBySubject resolves the subject claim of a verified token. The
	// canonical subject is the account email.
	FindBySubject(ctx context.Context, subject string) (*Account, error)
	Create(ctx context.Context, account *Account) error
}

// InvalidatedTokenStore is the denylist of revoked token identifiers.
// Insert must tolerate duplicate ids: concurrent logout and refresh of the
// same token both insert the same jti, and neither call may fail for it.
// Rows past ExpiryTime are purged outside this package.
type InvalidatedTokenStore interface {
	Contains(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, token InvalidatedToken) error
}
