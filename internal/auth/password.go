// Package auth provides password registration and JWT session handling.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
)

// UserStorage is the slice of the storage layer the authenticator needs.
// Lookups return (nil, nil) when no user matches.
type UserStorage interface {
	CreateUser(ctx context.Context, user *core.User) error
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
}

func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{storage: storage}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 6 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new user account with a hashed password. Username and
// email must both be unused.
func (a *PasswordAuthenticator) Register(ctx context.Context, username, email, credential string) (*core.User, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	user := &core.User{Username: username, Email: email}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if existing, err := a.storage.GetUserByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := a.storage.GetUserByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the username and password, returning the user if valid.
// The same error comes back for unknown users and wrong passwords.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, credential string) (*core.User, error) {
	user, err := a.storage.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
