package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// TokenConfig configures issued access tokens.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

type authService struct {
	tx          repositories.Transactor
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
	profiles    ProfileService
	mailer      Mailer
	tokens      TokenConfig
	now         Clock
	logger      *slog.Logger
}

func NewAuthService(
	tx repositories.Transactor,
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	profiles ProfileService,
	mailer Mailer,
	tokens TokenConfig,
	now Clock,
	logger *slog.Logger,
) AuthService {
	if mailer == nil {
		mailer = NewNoopMailer(logger)
	}
	return &authService{
		tx:          tx,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		profiles:    profiles,
		mailer:      mailer,
		tokens:      tokens,
		now:         clockOrNow(now),
		logger:      logger,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := utils.NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	v := validator{}
	v.check(utils.IsValidEmail(email), "email", ErrInvalidEmail.Error())
	v.check(len(input.Password) >= minPasswordLength, "password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	v.check(usernamePattern.MatchString(username), "username", "must be 3-32 letters, digits, '.', '_' or '-'")
	v.check(len(displayName) <= 64, "display_name", "must be at most 64 characters")
	if err := v.err(); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         models.RolePlayer,
		Status:       models.UserStatusActive,
	}
	profile := &models.Profile{
		Username:    username,
		DisplayName: displayName,
		Email:       &email,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.userRepo.Create(ctx, exec, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		return s.profileRepo.Create(ctx, exec, profile)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		case errors.Is(err, repositories.ErrProfileUsernameConflict):
			return nil, ErrUsernameConflict
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if err := s.mailer.SendWelcomeEmail(ctx, user.Email, profile.Username); err != nil {
		s.logger.WarnContext(ctx, "failed to send welcome email", slog.String("user_id", user.ID.String()), slog.Any("error", err))
	}

	user.Profile = profile
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Status == models.UserStatusBanned {
		return nil, ErrUserBanned
	}

	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	profile, err := s.profiles.ResolveProfile(ctx, lookupFor(user))
	switch {
	case err == nil:
		user.Profile = profile
	case errors.Is(err, ErrProfileNotFound):
	default:
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	now := s.now()
	expiresAt := now.Add(s.tokens.TTL)
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokens.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	user.PasswordHash = ""
	return &AuthResult{User: user, Token: tokenString, ExpiresAt: expiresAt}, nil
}
