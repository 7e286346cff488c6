package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/schoollunch/lunchwallet/internal/middleware"
	"github.com/schoollunch/lunchwallet/internal/parent"
)

// ErrInvalidToken covers malformed, expired and revoked tokens alike.
var ErrInvalidToken = errors.New("invalid token")

// Accounts is the parent lookup the token service depends on.
type Accounts interface {
	Authenticate(ctx context.Context, username, password string) (parent.Parent, error)
	Get(ctx context.Context, id string) (parent.Parent, error)
	BumpTokenVersion(ctx context.Context, id string) (int, error)
}

// Claims carried by an access token.
type Claims struct {
	Role    string `json:"role"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// Token is the login response.
type Token struct {
	ParentID    string `json:"parentId"`
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Service issues and verifies HS256 access tokens.
type Service struct {
	secret   []byte
	ttl      time.Duration
	accounts Accounts
	now      func() time.Time
}

// NewService builds a token service signing with secret.
func NewService(secret string, ttl time.Duration, accounts Accounts) *Service {
	return &Service{
		secret:   []byte(secret),
		ttl:      ttl,
		accounts: accounts,
		now:      time.Now,
	}
}

// Login authenticates the parent and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	p, err := s.accounts.Authenticate(ctx, username, password)
	if err != nil {
		return Token{}, err
	}
	signed, err := s.sign(p)
	if err != nil {
		return Token{}, err
	}
	return Token{
		ParentID:    p.ID,
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

func (s *Service) sign(p parent.Parent) (string, error) {
	now := s.now()
	claims := Claims{
		Role:    p.Role,
		Version: p.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse checks signature and expiry and returns the claims.
func (s *Service) Parse(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Verify parses the token and checks it against the current account state.
func (s *Service) Verify(ctx context.Context, token string) (middleware.Principal, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return middleware.Principal{}, err
	}
	p, err := s.accounts.Get(ctx, claims.Subject)
	if err != nil {
		return middleware.Principal{}, ErrInvalidToken
	}
	if !p.Active || p.TokenVersion != claims.Version {
		return middleware.Principal{}, ErrInvalidToken
	}
	return middleware.Principal{ParentID: p.ID, Role: p.Role, Version: p.TokenVersion}, nil
}

// Logout revokes every token issued to the parent so far.
func (s *Service) Logout(ctx context.Context, parentID string) error {
	_, err := s.accounts.BumpTokenVersion(ctx, parentID)
	return err
}
