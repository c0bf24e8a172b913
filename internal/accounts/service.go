package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// Service handles login and admin bootstrap.
type Service struct {
	db     db.Querier
	issuer *TokenIssuer
	logger *logging.Logger
}

// NewService wires the account service.
func NewService(q db.Querier, issuer *TokenIssuer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{db: q, issuer: issuer, logger: logger}
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string `json:"access_token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
	User      *User  `json:"user"`
}

// Login verifies credentials and issues a token. Unknown emails, wrong
// passwords and inactive users all yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := NewRepository(s.db).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	token, exp, err := s.issuer.Issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, TokenType: "bearer", ExpiresAt: exp.Unix(), User: u}, nil
}

// EnsureAdmin creates the bootstrap admin when it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	repo := NewRepository(s.db)
	existing, err := repo.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != RoleAdmin || !existing.IsActive {
			return repo.Promote(ctx, existing.ID, RoleAdmin, true)
		}
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := repo.Create(ctx, NewUser{Email: email, PasswordHash: hash, FullName: "Administrator", Role: RoleAdmin}); err != nil {
		return fmt.Errorf("accounts: bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", "email", email)
	return nil
}
