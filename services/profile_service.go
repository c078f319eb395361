package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/google/uuid"
)

type ProfileService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// ResolveProfile finds the profile of a user, tolerating profiles imported under a
	// legacy user id or matched only by email.
	ResolveProfile(ctx context.Context, lookup ProfileLookup) (*models.Profile, error)
	GetProfileForUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.Profile, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, contentType string) (*models.Profile, error)
	SearchProfiles(ctx context.Context, query string, limit, offset int) ([]models.Profile, error)
}

// ProfileLookup identifies the user whose profile is wanted. Email and LegacyID are
// optional fallbacks.
type ProfileLookup struct {
	UserID   uuid.UUID
	Email    string
	LegacyID *string
}

func lookupFor(user *models.User) ProfileLookup {
	return ProfileLookup{UserID: user.ID, Email: user.Email, LegacyID: user.LegacyID}
}

type UpdateProfileInput struct {
	Username    *string             `json:"username,omitempty"`
	DisplayName *string             `json:"display_name,omitempty"`
	Bio         *string             `json:"bio,omitempty"`
	Country     *string             `json:"country,omitempty"`
	MainGame    *string             `json:"main_game,omitempty"`
	SocialLinks *models.SocialLinks `json:"social_links,omitempty"`
}

type profileService struct {
	profileRepo repositories.ProfileRepository
	userRepo    repositories.UserRepository
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewProfileService(
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		uploader:    uploader,
		logger:      logger,
	}
}

func (s *profileService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	populateProfileAvatarURLFunc(profile, s.uploader)
	return profile, nil
}

// ResolveProfile tries, in order: the user id, the legacy user id mapped to its UUID,
// then the email. A fallback match is only accepted when the profile is orphaned or
// already keyed by the legacy UUID, and is then re-linked to lookup.UserID.
func (s *profileService) ResolveProfile(ctx context.Context, lookup ProfileLookup) (*models.Profile, error) {
	profile, err := s.profileRepo.GetLatestByUserID(ctx, lookup.UserID)
	if err == nil {
		populateProfileAvatarURLFunc(profile, s.uploader)
		return profile, nil
	}
	if !errors.Is(err, repositories.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to get profile for user %s: %w", lookup.UserID, err)
	}

	if lookup.LegacyID != nil && utils.IsLegacyID(*lookup.LegacyID) {
		legacyUUID := utils.LegacyToUUID(*lookup.LegacyID)
		profile, err = s.profileRepo.GetLatestByUserID(ctx, legacyUUID)
		switch {
		case err == nil:
			return s.adopt(ctx, lookup, profile, "legacy_id")
		case !errors.Is(err, repositories.ErrProfileNotFound):
			return nil, fmt.Errorf("failed to get profile by legacy id: %w", err)
		}
		s.logger.DebugContext(ctx, "no profile under legacy id", slog.String("user_id", lookup.UserID.String()))
	}

	if email := utils.NormalizeEmail(lookup.Email); email != "" {
		profile, err = s.profileRepo.GetLatestByEmail(ctx, email)
		switch {
		case err == nil:
			owned, ownErr := s.ownedByAnotherUser(ctx, lookup, profile)
			if ownErr != nil {
				return nil, ownErr
			}
			if !owned {
				return s.adopt(ctx, lookup, profile, "email")
			}
			s.logger.WarnContext(ctx, "profile matched by email belongs to another user",
				slog.String("user_id", lookup.UserID.String()),
				slog.String("profile_id", profile.ID.String()),
				slog.String("owner_id", profile.UserID.String()))
		case !errors.Is(err, repositories.ErrProfileNotFound):
			return nil, fmt.Errorf("failed to get profile by email: %w", err)
		}
	}

	return nil, ErrProfileNotFound
}

// ownedByAnotherUser reports whether the profile belongs to an existing user other
// than the one being resolved.
func (s *profileService) ownedByAnotherUser(ctx context.Context, lookup ProfileLookup, profile *models.Profile) (bool, error) {
	if profile.UserID == lookup.UserID {
		return false, nil
	}
	if lookup.LegacyID != nil && profile.UserID == utils.LegacyToUUID(*lookup.LegacyID) {
		return false, nil
	}
	_, err := s.userRepo.GetByID(ctx, profile.UserID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrUserNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check profile owner: %w", err)
	}
}

func (s *profileService) adopt(ctx context.Context, lookup ProfileLookup, profile *models.Profile, via string) (*models.Profile, error) {
	if profile.UserID != lookup.UserID {
		previous := profile.UserID
		if err := s.profileRepo.RelinkUser(ctx, profile.ID, lookup.UserID); err != nil {
			s.logger.WarnContext(ctx, "failed to relink profile",
				slog.String("profile_id", profile.ID.String()),
				slog.String("user_id", lookup.UserID.String()),
				slog.Any("error", err))
		} else {
			profile.UserID = lookup.UserID
			s.logger.InfoContext(ctx, "profile relinked to user",
				slog.String("profile_id", profile.ID.String()),
				slog.String("user_id", lookup.UserID.String()),
				slog.String("previous_user_id", previous.String()),
				slog.String("matched_by", via))
		}
	}
	populateProfileAvatarURLFunc(profile, s.uploader)
	return profile, nil
}

func (s *profileService) GetProfileForUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return s.ResolveProfile(ctx, lookupFor(user))
}

// UpdateProfile applies the non-nil fields. A user without any profile gets a new one,
// which requires a username.
func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	profile, err := s.ResolveProfile(ctx, lookupFor(user))
	creating := false
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		creating = true
		email := user.Email
		profile = &models.Profile{UserID: user.ID, Email: &email}
	}

	v := validator{}
	if input.Username != nil {
		profile.Username = strings.TrimSpace(*input.Username)
	}
	// Imported handles may predate the pattern; only new values are checked.
	if input.Username != nil || creating {
		v.check(usernamePattern.MatchString(profile.Username), "username", "must be 3-32 letters, digits, '.', '_' or '-'")
	}
	if input.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if profile.DisplayName == "" {
		profile.DisplayName = profile.Username
	}
	v.check(utf8.RuneCountInString(profile.DisplayName) <= 64, "display_name", "must be at most 64 characters")
	if input.Bio != nil {
		profile.Bio = trimmedOrNil(input.Bio)
		v.check(utf8.RuneCountInString(derefString(profile.Bio)) <= 500, "bio", "must be at most 500 characters")
	}
	if input.Country != nil {
		profile.Country = trimmedOrNil(input.Country)
		if profile.Country != nil {
			upper := strings.ToUpper(*profile.Country)
			profile.Country = &upper
			v.check(isCountryCode(upper), "country", "must be an ISO 3166-1 alpha-2 code")
		}
	}
	if input.MainGame != nil {
		profile.MainGame = trimmedOrNil(input.MainGame)
		if profile.MainGame != nil {
			game := normalizeGame(*profile.MainGame)
			profile.MainGame = &game
		}
	}
	if input.SocialLinks != nil {
		profile.SocialLinks = *input.SocialLinks
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if creating {
		err = s.profileRepo.Create(ctx, nil, profile)
	} else {
		err = s.profileRepo.Update(ctx, profile)
	}
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrProfileUsernameConflict):
			return nil, ErrUsernameConflict
		case errors.Is(err, repositories.ErrProfileNotFound):
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	populateProfileAvatarURLFunc(profile, s.uploader)
	return profile, nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *profileService) UploadAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, contentType string) (*models.Profile, error) {
	profile, err := s.GetProfileForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	newKey := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, newKey, contentType, file); err != nil {
		if errors.Is(err, storage.ErrUploadsDisabled) {
			return nil, ErrUploadsDisabled
		}
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	oldKey := profile.AvatarKey
	if err := s.profileRepo.UpdateAvatarKey(ctx, profile.ID, &newKey); err != nil {
		if delErr := s.uploader.Delete(ctx, newKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up uploaded avatar", slog.String("key", newKey), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to save avatar key: %w", err)
	}

	if oldKey != nil && *oldKey != "" && *oldKey != newKey {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete old avatar", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	profile.AvatarKey = &newKey
	profile.AvatarURL = nil
	populateProfileAvatarURLFunc(profile, s.uploader)
	return profile, nil
}

func (s *profileService) SearchProfiles(ctx context.Context, query string, limit, offset int) ([]models.Profile, error) {
	limit, offset = normalizePage(limit, offset)
	profiles, err := s.profileRepo.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	for i := range profiles {
		populateProfileAvatarURLFunc(&profiles[i], s.uploader)
	}
	return profiles, nil
}
