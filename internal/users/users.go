// Package users is the credential service: registration, login and user
// lookup on top of the store, with bcrypt password hashing.
package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
	"storefront/internal/stores"
)

var (
	// ErrEmailTaken is returned on a case-sensitive exact duplicate.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and hash mismatch so
	// callers cannot probe which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type Conf struct {
	store stores.Store

	// registerMu serializes the email-exists check with the insert so two
	// concurrent registrations for the same address cannot both succeed.
	registerMu sync.Mutex
}

func NewConf(store stores.Store) (*Conf, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	return &Conf{store: store}, nil
}

// Register hashes the password and creates the user. The admin flag is
// never settable through registration.
func (c *Conf) Register(ctx context.Context, nu NewUser) (models.User, error) {
	c.registerMu.Lock()
	defer c.registerMu.Unlock()

	_, err := c.store.UserByEmail(ctx, nu.Email)
	if err == nil {
		return models.User{}, ErrEmailTaken
	}
	if !errors.Is(err, stores.ErrNotFound) {
		return models.User{}, fmt.Errorf("checking email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}

	u := models.User{
		ID:           uuid.NewString(),
		Email:        nu.Email,
		Name:         nu.Name,
		PasswordHash: string(hash),
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.store.InsertUser(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (c *Conf) Login(ctx context.Context, email, password string) (models.User, error) {
	u, err := c.store.UserByEmail(ctx, email)
	if errors.Is(err, stores.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("looking up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (c *Conf) ByID(ctx context.Context, id string) (models.User, error) {
	return c.store.UserByID(ctx, id)
}

// EnsureAdmin creates the default admin account when no user with the
// given email exists. Used by startup seeding.
func (c *Conf) EnsureAdmin(ctx context.Context, email, name, password string) (created bool, err error) {
	c.registerMu.Lock()
	defer c.registerMu.Unlock()

	if _, err := c.store.UserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, stores.ErrNotFound) {
		return false, fmt.Errorf("checking admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing admin password: %w", err)
	}
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.store.InsertUser(ctx, u); err != nil {
		return false, fmt.Errorf("inserting admin user: %w", err)
	}
	return true, nil
}
