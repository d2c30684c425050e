// Package auth provides the identity provider, cookie sessions and CSRF
// protection.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bottega/internal/core"
	"bottega/internal/log"
	"bottega/internal/storage"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IdentityProvider creates and verifies accounts.
type IdentityProvider interface {
	Register(ctx context.Context, username, email, password string) (core.User, error)
	Authenticate(ctx context.Context, email, password string) (core.User, error)
}

// UserStore is the persistence LocalProvider needs.
type UserStore interface {
	PutUser(ctx context.Context, u core.User) error
	GetUser(ctx context.Context, id string) (core.User, error)
	FindUserByEmail(ctx context.Context, email string) (core.User, error)
	PutCredentials(ctx context.Context, c storage.Credentials) error
	GetCredentials(ctx context.Context, userID string) (storage.Credentials, error)
}

// LocalProvider keeps bcrypt hashes in the credentials collection and
// profiles in the users collection.
type LocalProvider struct {
	store  UserStore
	cost   int
	logger *slog.Logger
	now    func() time.Time

	// serialises the email uniqueness check with the write
	registerMu sync.Mutex
}

func NewLocalProvider(store UserStore, cost int, logger *slog.Logger) *LocalProvider {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalProvider{
		store:  store,
		cost:   cost,
		logger: logger.With(log.FieldComponent, log.ComponentAuth),
		now:    time.Now,
	}
}

func (p *LocalProvider) Register(ctx context.Context, username, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := core.ValidateRegistration(username, email, password); err != nil {
		return core.User{}, err
	}

	p.registerMu.Lock()
	defer p.registerMu.Unlock()

	_, err := p.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return core.User{}, ErrEmailExists
	case !storage.IsNotFound(err):
		return core.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := core.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: p.now().UTC().Truncate(time.Second),
		Role:      core.RoleUser,
	}
	if err := p.store.PutCredentials(ctx, storage.Credentials{UserID: user.ID, PasswordHash: string(hash)}); err != nil {
		return core.User{}, fmt.Errorf("store credentials: %w", err)
	}
	if err := p.store.PutUser(ctx, user); err != nil {
		return core.User{}, fmt.Errorf("store user: %w", err)
	}

	p.logger.InfoContext(ctx, "User registered", log.FieldUserID, user.ID, log.FieldOperation, log.OpRegister)
	return user, nil
}

func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	user, err := p.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if storage.IsNotFound(err) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}

	cred, err := p.store.GetCredentials(ctx, user.ID)
	if storage.IsNotFound(err) {
		p.logger.WarnContext(ctx, "User has no stored credentials", log.FieldUserID, user.ID)
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		p.logger.WarnContext(ctx, "Login failed",
			log.FieldUserID, user.ID,
			log.FieldOperation, log.OpLogin,
			log.FieldErrorType, log.ErrorTypeAuth)
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}
