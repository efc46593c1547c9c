package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/diagnosis/jf-travel/pkg/auth"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/repository"
)

// TokenIssuer signs session tokens for signed-up users.
type TokenIssuer interface {
	NewAccessToken(sub int64, email, role string) (string, error)
	TTL() time.Duration
}

type AuthService interface {
	CheckAdmin(ctx context.Context, email string) bool
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.SignupResult, error)
}

type authService struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
	eventBus events.EventBus
}

func NewAuthService(userRepo repository.UserRepository, issuer TokenIssuer, eventBus events.EventBus) AuthService {
	return &authService{
		userRepo: userRepo,
		issuer:   issuer,
		eventBus: eventBus,
	}
}

// CheckAdmin answers false on any lookup failure.
func (s *authService) CheckAdmin(ctx context.Context, email string) bool {
	req := domain.SignupRequest{Email: email}
	req.Normalize()
	if req.Email == "" {
		return false
	}
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		logger.ErrorContext(ctx, "Admin check failed", "error", err)
		return false
	}
	return user != nil && user.Role == auth.RoleAdmin
}

// Signup creates the user on first sight of an email and binds the external
// identity to it. Later calls must present the same identity.
func (s *authService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.SignupResult, error) {
	req.Normalize()
	if err := req.Validate().Err(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	created := false
	if user == nil {
		hash, err := argon2id.CreateHash(req.FirebaseUID, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash identity: %w", err)
		}
		user, err = s.userRepo.Create(ctx, req.Email, req.Name, auth.RoleUser, hash)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			// lost a race with a concurrent signup for the same email
			user, err = s.userRepo.FindByEmail(ctx, req.Email)
			if err != nil {
				return nil, fmt.Errorf("failed to find user: %w", err)
			}
			if user == nil {
				return nil, domain.ErrUserNotFound
			}
		case err != nil:
			return nil, fmt.Errorf("failed to create user: %w", err)
		default:
			created = true
		}
	}

	if !created {
		if err := s.verifyIdentity(ctx, user, req.FirebaseUID); err != nil {
			return nil, err
		}
	}

	token, err := s.issuer.NewAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if created {
		logger.InfoContext(ctx, "User signed up", "user_id", user.ID)
		event := events.UserSignedUpEvent{UserID: user.ID, Email: user.Email, Name: user.Name}
		if err := s.eventBus.Publish(ctx, events.UserSignedUp, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish signup event", "error", err, "user_id", user.ID)
		}
	}

	return &domain.SignupResult{
		User:      user.ToUserInfo(),
		Token:     token,
		ExpiresIn: int64(s.issuer.TTL().Seconds()),
		Created:   created,
	}, nil
}

func (s *authService) verifyIdentity(ctx context.Context, user *domain.User, uid string) error {
	if user.FirebaseUIDHash == nil || *user.FirebaseUIDHash == "" {
		hash, err := argon2id.CreateHash(uid, argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("failed to hash identity: %w", err)
		}
		if err := s.userRepo.BindIdentity(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("failed to bind identity: %w", err)
		}
		logger.InfoContext(ctx, "Identity bound to existing user", "user_id", user.ID)
		return nil
	}

	match, err := argon2id.ComparePasswordAndHash(uid, *user.FirebaseUIDHash)
	if err != nil {
		return fmt.Errorf("failed to verify identity: %w", err)
	}
	if !match {
		logger.WarnContext(ctx, "Signup identity mismatch", "user_id", user.ID)
		return domain.ErrIdentityMismatch
	}
	return nil
}
