package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"pawmarket-backend/internal/domain"
	"pawmarket-backend/pkg/logger"
	"pawmarket-backend/pkg/utils"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrEmailTaken         = fmt.Errorf("email is already registered")
)

type AuthUsecase struct {
	userRepo          domain.UserRepository
	accessTokenExpiry time.Duration
}

func NewAuthUsecase(userRepo domain.UserRepository, accessTokenExpiry time.Duration) *AuthUsecase {
	return &AuthUsecase{
		userRepo:          userRepo,
		accessTokenExpiry: accessTokenExpiry,
	}
}

// Register creates a viewer account. Admin accounts are promoted manually in
// the database.
func (u *AuthUsecase) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	existing, err := u.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           utils.GenerateUUID(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         "viewer",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login verifies credentials and mints an access token.
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := u.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.Role, u.accessTokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}

// Me loads the authenticated user's profile.
func (u *AuthUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}
