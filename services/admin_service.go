package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/google/uuid"
)

type AdminUserService interface {
	ListUsers(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error)
	UpdateUserRole(ctx context.Context, actor Actor, userID uuid.UUID, role models.UserRole) (*models.User, error)
	UpdateUserStatus(ctx context.Context, actor Actor, userID uuid.UUID, status models.UserStatus) (*models.User, error)
	DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) error
	ListPendingRegistrations(ctx context.Context, limit, offset int) ([]*models.Registration, error)
}

type adminUserService struct {
	userRepo         repositories.UserRepository
	profileRepo      repositories.ProfileRepository
	registrationRepo repositories.RegistrationRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewAdminUserService(
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	registrationRepo repositories.RegistrationRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) AdminUserService {
	return &adminUserService{
		userRepo:         userRepo,
		profileRepo:      profileRepo,
		registrationRepo: registrationRepo,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *adminUserService) ListUsers(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Limit, _ = normalizePage(filter.Limit, 0)
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Role != nil && !filter.Role.Valid() {
		return models.UserListResponse{}, &ValidationError{Fields: map[string]string{"role": "must be admin, organizer or player"}}
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return models.UserListResponse{}, &ValidationError{Fields: map[string]string{"status": "must be active or banned"}}
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return models.UserListResponse{}, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uuid.UUID, len(users))
	for i := range users {
		users[i].PasswordHash = ""
		ids[i] = users[i].ID
	}
	profiles, err := s.profileRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load user profiles", slog.Any("error", err))
	}
	for i := range users {
		if p, ok := profiles[users[i].ID]; ok {
			populateProfileAvatarURLFunc(p, s.uploader)
			users[i].Profile = p
		}
	}

	return models.UserListResponse{
		Users:      users,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *adminUserService) UpdateUserRole(ctx context.Context, actor Actor, userID uuid.UUID, role models.UserRole) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if actor.UserID == userID {
		return nil, ErrCannotModifySelf
	}
	if !role.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"role": "must be admin, organizer or player"}}
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, mapAdminUserError(err)
	}
	s.logger.InfoContext(ctx, "user role changed",
		slog.String("user_id", userID.String()),
		slog.String("role", string(role)),
		slog.String("actor_id", actor.UserID.String()))
	return s.getUser(ctx, userID)
}

func (s *adminUserService) UpdateUserStatus(ctx context.Context, actor Actor, userID uuid.UUID, status models.UserStatus) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if actor.UserID == userID {
		return nil, ErrCannotModifySelf
	}
	if !status.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be active or banned"}}
	}
	if err := s.userRepo.UpdateStatus(ctx, userID, status); err != nil {
		return nil, mapAdminUserError(err)
	}
	s.logger.InfoContext(ctx, "user status changed",
		slog.String("user_id", userID.String()),
		slog.String("status", string(status)),
		slog.String("actor_id", actor.UserID.String()))
	return s.getUser(ctx, userID)
}

func (s *adminUserService) DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if !actor.IsAdmin() {
		return ErrForbiddenOperation
	}
	if actor.UserID == userID {
		return ErrCannotModifySelf
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return mapAdminUserError(err)
	}
	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", userID.String()),
		slog.String("actor_id", actor.UserID.String()))
	return nil
}

func (s *adminUserService) ListPendingRegistrations(ctx context.Context, limit, offset int) ([]*models.Registration, error) {
	limit, offset = normalizePage(limit, offset)
	registrations, err := s.registrationRepo.ListByStatus(ctx, models.RegistrationPending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending registrations: %w", err)
	}
	for _, reg := range registrations {
		populateTournamentBannerURLFunc(reg.Tournament, s.uploader)
	}
	return registrations, nil
}

func (s *adminUserService) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapAdminUserError(err)
	}
	user.PasswordHash = ""
	return user, nil
}

func mapAdminUserError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrUserInUse):
		return ErrUserInUse
	}
	return fmt.Errorf("user operation failed: %w", err)
}
