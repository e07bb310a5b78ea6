// Package services implements the application logic of the auth and file
// servers on top of the repositories, the token service, and object storage.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/password"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

// emailPattern enforces the basic local@domain.tld shape. It is deliberately
// loose; serious validation happens when mail is actually delivered.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// WeakPasswordError carries the itemized list of failed password rules so
// the client can show them all at once.
type WeakPasswordError struct {
	Rules []string
}

func (e *WeakPasswordError) Error() string {
	return "password does not meet requirements: " + strings.Join(e.Rules, "; ")
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService implements registration, login, token refresh, and profile
// retrieval.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *password.Hasher
	tokens      *auth.Service
}

// NewUserService wires the user service to its collaborators.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *password.Hasher, tokens *auth.Service) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
	}
}

// NormalizeEmail lowercases and trims an email address. All storage and
// comparison happens on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the email and password, hashes the password, and
// persists the new account. The stored email is normalized; uniqueness is
// case-insensitive. The returned user carries the hash internally but the
// hash must never be serialized by callers.
func (s *UserService) Register(ctx context.Context, email, plainPassword string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || plainPassword == "" {
		return nil, common.ErrMissingFields
	}

	email = NormalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, common.ErrInvalidEmail
	}

	if failed := password.Validate(plainPassword); len(failed) > 0 {
		return nil, &WeakPasswordError{Rules: failed}
	}

	repo := s.repomanager.Users(s.db)

	// Fast-path duplicate check; the unique index still catches races.
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking email uniqueness: %w", err)
	}

	hash, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	if !password.ValidHashShape(hash) {
		return nil, common.ErrInternal
	}

	user, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and issues a token pair. Unknown email and
// wrong password produce the same common.ErrInvalidCredentials so which
// factor failed never leaks.
func (s *UserService) Login(ctx context.Context, email, plainPassword string) (*TokenPair, *models.User, error) {
	if strings.TrimSpace(email) == "" || plainPassword == "" {
		return nil, nil, common.ErrMissingFields
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("error retrieving user: %w", err)
	}

	if err := s.hasher.Check(user.PasswordHash, plainPassword); err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("error checking password: %w", err)
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("error issuing tokens: %w", err)
	}

	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. Tokens are
// stateless, so the old refresh token stays usable until its own expiry.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	info, err := s.tokens.VerifyKind(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, err
	}

	// The subject must still exist; an account removed after issuance must
	// not be able to mint new access tokens.
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, info.SubjectID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	pair, err := s.generateTokenPair(info.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}
	return pair, nil
}

// GetProfile returns the account for a previously authenticated user id.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

func (s *UserService) generateTokenPair(userID string) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
