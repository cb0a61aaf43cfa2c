package domain

import (
	"context"
	"strings"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Accounts handles registration and credential checks.
type Accounts struct {
	repo  UserRepository
	clock quartz.Clock
}

// NewAccounts constructs an Accounts service.
func NewAccounts(repo UserRepository, clock quartz.Clock) *Accounts {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Accounts{repo: repo, clock: clock}
}

// Register creates a user with a bcrypt password hash.
func (a *Accounts) Register(ctx context.Context, email, password, name string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    a.clock.Now().UTC(),
	}
	if err := a.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := a.repo.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
