package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/securepulse/securepulse/pkg/auth"
	"github.com/securepulse/securepulse/pkg/events"
	"github.com/securepulse/securepulse/pkg/logger"
	"github.com/securepulse/securepulse/services/auth/internal/domain"
	"github.com/securepulse/securepulse/services/auth/internal/repository"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenPair, error)
}

// PasswordHasher is implemented by *password.Hasher.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
	DummyVerify(ctx context.Context, plaintext string) error
}

// TokenIssuer is implemented by *auth.Issuer.
type TokenIssuer interface {
	IssueAccess(id auth.Identity, ttl time.Duration) (string, error)
	IssueRefresh(id auth.Identity) (string, error)
}

type authService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	issuer   TokenIssuer
	eventBus events.Publisher
	now      func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	issuer TokenIssuer,
	eventBus events.Publisher,
) AuthService {
	return &authService{
		userRepo: userRepo,
		hasher:   hasher,
		issuer:   issuer,
		eventBus: eventBus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an active account with the user role. The email lookup
// is advisory; the store's unique index decides races.
func (s *authService) Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateEmail
	}

	passwordHash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &domain.NewUser{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		RegisteredAt: user.CreatedAt,
	})

	return user, nil
}

// Login authenticates by email and password and issues a token pair. Unknown
// email and wrong password fail identically.
func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		if err := s.hasher.DummyVerify(ctx, req.Password); err != nil {
			return nil, fmt.Errorf("failed to verify password: %w", err)
		}
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(ctx, req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		logger.InfoContext(ctx, "Login rejected", "user_id", user.ID, "reason", "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive() {
		logger.InfoContext(ctx, "Login rejected", "user_id", user.ID, "reason", "disabled")
		return nil, domain.ErrAccountDisabled
	}

	loginAt := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, loginAt); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLogin = &loginAt

	id := auth.Identity{Email: user.Email, UserID: user.ID, Role: user.Role}
	accessToken, err := s.issuer.IssueAccess(id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.issuer.IssueRefresh(id)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	logger.InfoContext(ctx, "User logged in", "user_id", user.ID)
	s.publish(ctx, events.UserLoggedIn, events.UserLoggedInEvent{
		UserID:     user.ID,
		Email:      user.Email,
		LoggedInAt: loginAt,
	})

	return &domain.TokenPair{
		AccessToken:  accessToken,
		TokenType:    auth.TokenTypeBearer,
		RefreshToken: refreshToken,
	}, nil
}

// publish is best effort: a broker outage never fails an auth flow.
func (s *authService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.eventBus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
