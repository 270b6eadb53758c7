package auth

import "errors"

var (
	// ErrUserNotFound indicates an account lookup miss during authentication.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrUnauthenticated covers bad credentials and bad, expired, revoked, or
	// malformed tokens. It is the only failure callers are expected to branch on.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrAlreadyExists indicates a registration conflict on email or username.
	ErrAlreadyExists = errors.New("auth: already exists")
	// ErrInvalidInput indicates a malformed registration request.
	ErrInvalidInput = errors.New("auth: invalid input")
	// ErrSigning indicates the signing key is misconfigured. Not user-retriable.
	ErrSigning = errors.New("auth: token signing failed")
)
