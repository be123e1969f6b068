package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assetdesk.org/internal/auth"
)

// Token is the result of a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginService exchanges credentials for a bearer token.
type LoginService struct {
	*base
	tokens TokenIssuer
	ttl    time.Duration
	// dummy is compared against for unknown users so lookups cost the same.
	dummy string
}

func newLoginService(b *base, tokens TokenIssuer, ttl time.Duration) *LoginService {
	dummy, err := auth.HashPasswordCost("assetdesk-placeholder-password", b.cost)
	if err != nil {
		panic(fmt.Sprintf("inventory: password cost %d: %v", b.cost, err))
	}
	return &LoginService{base: b, tokens: tokens, ttl: ttl, dummy: dummy}
}

// Login verifies the password against the stored hash. Unknown, inactive and
// wrong-password attempts all fail with the same ErrUnauthorized.
func (s *LoginService) Login(ctx context.Context, username, password string) (Token, error) {
	if s.tokens == nil {
		return Token{}, errors.New("token issuer is not configured")
	}
	var (
		user  User
		found bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		u, ok, err := userByName(ctx, tx, username)
		user, found = u, ok
		return err
	})
	if err != nil {
		return Token{}, err
	}
	if !found || user.PasswordHash == "" {
		_ = auth.VerifyPassword(s.dummy, password)
		return Token{}, ErrUnauthorized
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return Token{}, ErrUnauthorized
	}
	if !user.IsActive {
		return Token{}, ErrUnauthorized
	}
	signed, exp, err := s.tokens.Issue(user.Username, s.ttl)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: exp}, nil
}
