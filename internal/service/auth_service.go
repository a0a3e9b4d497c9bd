package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/task-manager-api/internal/model"
	"github.com/iliyamo/task-manager-api/internal/repository"
	"github.com/iliyamo/task-manager-api/internal/utils"
	"github.com/iliyamo/task-manager-api/internal/validation"
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// TokenIssuer is the subset of utils.TokenService the auth flow needs.
type TokenIssuer interface {
	IssuePair(id utils.Identity) (utils.TokenPair, error)
	IssueAccess(id utils.Identity) (string, error)
	VerifyRefresh(raw string) (utils.Claims, error)
}

// RegisterInput carries a validated registration request.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// AuthService orchestrates registration, login and access token refresh.
type AuthService struct {
	users      UserStore
	tokens     TokenIssuer
	bcryptCost int
	now        func() time.Time
	newID      func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserStore, tokens TokenIssuer, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Register stores a new user with a bcrypt-hashed password and returns its
// public projection.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ model.PublicUser, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	if len(in.Password) > validation.MaxPasswordBytes {
		return model.PublicUser{}, validation.Errors{{Field: "password", Message: "Password must not exceed 72 bytes"}}
	}

	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return model.PublicUser{}, ErrDuplicateEmail
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	u := model.User{
		ID:           s.newID(),
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		// A concurrent registration can win between the check and the insert.
		if errors.Is(err, repository.ErrEmailExists) {
			return model.PublicUser{}, ErrDuplicateEmail
		}
		return model.PublicUser{}, fmt.Errorf("create user: %w", err)
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u.Public(), nil
}

// Login verifies credentials and issues an access/refresh pair.  An unknown
// email and a wrong password produce the same error, and both paths run one
// bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ utils.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.VerifyPassword(s.dummy(), password)
			return utils.TokenPair{}, ErrInvalidCredentials
		}
		return utils.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return utils.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(utils.Identity{UserID: u.ID, Email: u.Email})
	if err != nil {
		return utils.TokenPair{}, err
	}
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new access token.  The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ string, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Refresh")
	defer func() { endSpan(span, err) }()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserGone
		}
		return "", fmt.Errorf("load user: %w", err)
	}
	return s.tokens.IssueAccess(utils.Identity{UserID: u.ID, Email: u.Email})
}

// Me returns the stored profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (model.PublicUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PublicUser{}, ErrUserNotFound
		}
		return model.PublicUser{}, fmt.Errorf("load user: %w", err)
	}
	return u.Public(), nil
}

// dummy returns a hash of a throwaway password at the configured cost,
// computed once.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := utils.HashPassword(uuid.NewString(), s.bcryptCost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
