package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenGeneration is returned when a token cannot be signed, usually
	// because a secret is missing.
	ErrTokenGeneration = errors.New("failed to generate tokens")
	// ErrInvalidToken covers every verification failure: bad signature,
	// malformed payload, wrong token type or expiry.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenType separates the two signing contexts.
type TokenType string

const (
	AccessTokenType  TokenType = "access"
	RefreshTokenType TokenType = "refresh"
)

// Identity is what a token is issued for.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the fixed shape every token decodes into.  The wire names match
// the payload {userId, email, iat, exp}; typ pins the token to one context.
type Claims struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues and verifies HS256 access and refresh tokens.  Each
// context has its own secret and lifetime, so a token minted for one is
// rejected by the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source.  Tests use it to mint tokens in the past.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// AccessTTL reports the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssuePair signs a fresh access and refresh token for id.
func (s *TokenService) IssuePair(id Identity) (TokenPair, error) {
	access, err := s.sign(id, AccessTokenType, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(id, RefreshTokenType, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess signs an access token only.
func (s *TokenService) IssueAccess(id Identity) (string, error) {
	return s.sign(id, AccessTokenType, s.accessSecret, s.accessTTL)
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(raw string) (Claims, error) {
	return s.verify(raw, AccessTokenType, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(raw string) (Claims, error) {
	return s.verify(raw, RefreshTokenType, s.refreshSecret)
}

func (s *TokenService) sign(id Identity, typ TokenType, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: empty %s secret", ErrTokenGeneration, typ)
	}
	// Truncate so iat/exp round-trip exactly through the NumericDate seconds.
	now := s.now().UTC().Truncate(time.Second)
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

func (s *TokenService) verify(raw string, typ TokenType, secret []byte) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC, including "none".
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Type != typ || claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
