package auth

import "time"

// Account is an identity record. Accounts are read from storage during
// authentication and never mutated by this package after registration.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role groups permissions under a name such as ADMIN or USER.
type Role struct {
	ID          string
	Name        string
	Permissions []Permission
}

// Permission is a fine-grained capability.
type Permission struct {
	ID   string
	Name string
}

// InvalidatedToken marks a token identifier as revoked. ExpiryTime is the
// revocation horizon (the end of the refresh window), after which the entry
// may be purged. Presence of an id in the revocation store rejects any token
// carrying that id regardless of the token's own expiration time.
type InvalidatedToken struct {
	ID         string
	ExpiryTime time.Time
}
