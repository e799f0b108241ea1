// Package mock provides an in-memory test double for the profile.Store
// interface.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/socialsync/pkg/profile"
)

// Store is a mock implementation of profile.Store backed by a map.
type Store struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile

	// CreateErr, GetErr, SetErr force errors from the corresponding methods
	// when non-nil.
	CreateErr error
	GetErr    error
	SetErr    error

	// SummaryWrites records every SetTasteSummary call as "email\x00summary".
	SummaryWrites []string

	// GetCalls counts the invocations of Get (including via Authenticate).
	GetCalls int
}

// NewStore returns an empty mock store.
func NewStore() *Store {
	return &Store{profiles: make(map[string]*profile.Profile)}
}

// Seed inserts a profile directly, bypassing password hashing. The password
// is stored via profile.HashPassword with a fixed salt so Authenticate works.
func (s *Store) Seed(email, password, displayName, tasteSummary string) *profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	salt := "00"
	p := &profile.Profile{
		Email:        strings.ToLower(email),
		PasswordHash: profile.HashPassword(salt, password),
		Salt:         salt,
		DisplayName:  displayName,
		TasteSummary: tasteSummary,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.profiles[p.Email] = p
	return p
}

// Create implements profile.Store.
func (s *Store) Create(ctx context.Context, email, password, displayName string) (*profile.Profile, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.profiles[email]; ok {
		return nil, profile.ErrExists
	}
	salt, err := profile.NewSalt()
	if err != nil {
		return nil, err
	}
	p := &profile.Profile{
		Email:        email,
		PasswordHash: profile.HashPassword(salt, password),
		Salt:         salt,
		DisplayName:  displayName,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.profiles[email] = p
	return copyProfile(p), nil
}

// Get implements profile.Store, returning (nil, nil) for an unknown email.
func (s *Store) Get(ctx context.Context, email string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCalls++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	p, ok := s.profiles[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, nil
	}
	return copyProfile(p), nil
}

// Authenticate implements profile.Store.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*profile.Profile, error) {
	p, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if p == nil || !profile.VerifyPassword(p.Salt, p.PasswordHash, password) {
		return nil, profile.ErrInvalidCredentials
	}
	return p, nil
}

// SetTasteSummary implements profile.Store.
func (s *Store) SetTasteSummary(ctx context.Context, email, summary string) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	s.SummaryWrites = append(s.SummaryWrites, email+"\x00"+summary)
	if p, ok := s.profiles[email]; ok {
		p.TasteSummary = summary
		p.UpdatedAt = time.Now()
	}
	return nil
}

func copyProfile(p *profile.Profile) *profile.Profile {
	cp := *p
	return &cp
}

var _ profile.Store = (*Store)(nil)
