package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service verifies credentials, issues identity tokens, and resolves
// bearer tokens back to live accounts.
type Service struct {
	accounts AccountStore
	tokens   *TokenIssuer
}

// NewService constructs the auth service.
func NewService(accounts AccountStore, tokens *TokenIssuer) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("auth: account store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	return &Service{accounts: accounts, tokens: tokens}, nil
}

// Tokens exposes the issuer so registration paths can mint a token for a
// freshly created account.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Session is the result of a successful login or registration.
type Session struct {
	Account   *Account
	Token     string
	ExpiresAt time.Time
}

// Login authenticates an email/password pair scoped to a single role.
func (s *Service) Login(ctx context.Context, email, password string, role Role) (Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	if !role.Valid() {
		return Session{}, fmt.Errorf("%w: unknown role", ErrInvalidInput)
	}
	acc, err := s.accounts.FindAccountByEmailRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	return s.establish(acc, password)
}

// LoginAny authenticates without a role scope. If the email exists under
// more than one role the login is ambiguous and the caller must use a
// role-scoped endpoint instead.
func (s *Service) LoginAny(ctx context.Context, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	accounts, err := s.accounts.FindAccountsByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if len(accounts) == 0 {
		return Session{}, ErrInvalidCredentials
	}
	if len(accounts) > 1 {
		return Session{}, ErrAmbiguousAccount
	}
	return s.establish(accounts[0], password)
}

func (s *Service) establish(acc *Account, password string) (Session, error) {
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !acc.Active {
		return Session{}, ErrAccountInactive
	}
	token, exp, err := s.tokens.Issue(acc)
	if err != nil {
		return Session{}, err
	}
	return Session{Account: acc, Token: token, ExpiresAt: exp}, nil
}

// Resolve recovers the authenticated account from a bearer token. It fails
// with ErrUnauthenticated when the token is invalid or expired, when the
// account no longer exists, or when the account is inactive. The wrapped
// cause stays reachable through errors.Is for internal callers.
func (s *Service) Resolve(ctx context.Context, token string) (*Account, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	acc, err := s.accounts.FindAccount(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
		}
		return nil, err
	}
	if !acc.Active {
		return nil, fmt.Errorf("%w: account is inactive", ErrUnauthenticated)
	}
	return acc, nil
}

// RequireAnyRole resolves the token and checks the account's role against
// the allowed set. An empty set admits any authenticated account. Role
// mismatch yields ErrForbidden, distinct from resolution failures which
// yield ErrUnauthenticated.
func (s *Service) RequireAnyRole(ctx context.Context, token string, roles ...Role) (*Account, error) {
	acc, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return acc, nil
	}
	for _, role := range roles {
		if acc.Role == role {
			return acc, nil
		}
	}
	return nil, fmt.Errorf("%w: role %s is not allowed here", ErrForbidden, acc.Role)
}
