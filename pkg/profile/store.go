// Package profile defines persistent user profiles: account credentials and
// the evolving taste summary the agent maintains from conversation.
package profile

import (
	"context"
	"errors"
	"time"
)

// ErrExists is returned by Create when a profile with the same email already
// exists.
var ErrExists = errors.New("profile: already exists")

// ErrInvalidCredentials is returned by Authenticate when the email is unknown
// or the password does not match.
var ErrInvalidCredentials = errors.New("profile: invalid credentials")

// Profile is a single user account.
type Profile struct {
	// Email is the unique account identifier, stored lowercase.
	Email string
	// PasswordHash is the salted SHA-256 digest of the password, hex encoded.
	PasswordHash string
	// Salt is the per-account random salt, hex encoded.
	Salt string
	// DisplayName is the name shown in conversation.
	DisplayName string
	// TasteSummary is the agent-maintained vibe profile. Each update replaces
	// the whole text.
	TasteSummary string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists user profiles.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Create registers a new account. Returns ErrExists if the email is taken.
	Create(ctx context.Context, email, password, displayName string) (*Profile, error)

	// Get returns the profile for email, or (nil, nil) when no such profile
	// exists.
	Get(ctx context.Context, email string) (*Profile, error)

	// Authenticate verifies the password for email and returns the profile.
	// Returns ErrInvalidCredentials for an unknown email or a wrong password.
	Authenticate(ctx context.Context, email, password string) (*Profile, error)

	// SetTasteSummary overwrites the taste summary for email. Unknown emails
	// are not an error; the write is simply dropped.
	SetTasteSummary(ctx context.Context, email, summary string) error
}
