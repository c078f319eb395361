package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/esports-arena/live"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	defaultCurrency   = "USD"
	maxTeamSize       = 16
	slugAttempts      = 3
	maxTournamentSize = 4096
)

type TournamentService interface {
	CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	// GetTournament accepts a UUID, a legacy id or a slug.
	GetTournament(ctx context.Context, ref string) (*models.Tournament, error)
	ListTournaments(ctx context.Context, input ListTournamentsInput) ([]models.Tournament, error)
	UpdateTournamentDetails(ctx context.Context, actor Actor, id uuid.UUID, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, actor Actor, id uuid.UUID, status models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, actor Actor, id uuid.UUID) error
	UploadBanner(ctx context.Context, actor Actor, id uuid.UUID, file io.Reader, contentType string) (*models.Tournament, error)
}

type CreateTournamentInput struct {
	Name              string                   `json:"name"`
	Description       *string                  `json:"description,omitempty"`
	Game              string                   `json:"game"`
	Mode              models.TournamentMode    `json:"mode"`
	TeamSize          int                      `json:"team_size"`
	Format            models.TournamentFormat  `json:"format"`
	RegDeadline       time.Time                `json:"reg_deadline"`
	StartDate         time.Time                `json:"start_date"`
	EndDate           time.Time                `json:"end_date"`
	Location          *string                  `json:"location,omitempty"`
	IsOnline          *bool                    `json:"is_online,omitempty"`
	MaxParticipants   int                      `json:"max_participants"`
	EntryFee          int64                    `json:"entry_fee"`
	PrizePool         int64                    `json:"prize_pool"`
	Currency          string                   `json:"currency"`
	PrizeDistribution models.PrizeDistribution `json:"prize_distribution"`
	Rules             *string                  `json:"rules,omitempty"`
}

type UpdateTournamentInput struct {
	Name              *string                   `json:"name,omitempty"`
	Description       *string                   `json:"description,omitempty"`
	Game              *string                   `json:"game,omitempty"`
	Mode              *models.TournamentMode    `json:"mode,omitempty"`
	TeamSize          *int                      `json:"team_size,omitempty"`
	Format            *models.TournamentFormat  `json:"format,omitempty"`
	RegDeadline       *time.Time                `json:"reg_deadline,omitempty"`
	StartDate         *time.Time                `json:"start_date,omitempty"`
	EndDate           *time.Time                `json:"end_date,omitempty"`
	Location          *string                   `json:"location,omitempty"`
	IsOnline          *bool                     `json:"is_online,omitempty"`
	MaxParticipants   *int                      `json:"max_participants,omitempty"`
	EntryFee          *int64                    `json:"entry_fee,omitempty"`
	PrizePool         *int64                    `json:"prize_pool,omitempty"`
	Currency          *string                   `json:"currency,omitempty"`
	PrizeDistribution *models.PrizeDistribution `json:"prize_distribution,omitempty"`
	Rules             *string                   `json:"rules,omitempty"`
}

type ListTournamentsInput struct {
	Game        *string
	Status      *models.TournamentStatus
	Mode        *models.TournamentMode
	OrganizerID *uuid.UUID
	Search      string
	Limit       int
	Offset      int
}

type tournamentService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	profileRepo    repositories.ProfileRepository
	uploader       storage.FileUploader
	hub            Broadcaster
	now            Clock
	logger         *slog.Logger
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	profileRepo repositories.ProfileRepository,
	uploader storage.FileUploader,
	hub Broadcaster,
	now Clock,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		profileRepo:    profileRepo,
		uploader:       uploader,
		hub:            broadcasterOrNoop(hub),
		now:            clockOrNow(now),
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if !actor.IsOrganizer() {
		return nil, ErrForbiddenOperation
	}

	isOnline := true
	if input.IsOnline != nil {
		isOnline = *input.IsOnline
	}
	t := &models.Tournament{
		Name:              strings.TrimSpace(input.Name),
		Description:       trimmedOrNil(input.Description),
		Game:              normalizeGame(input.Game),
		Mode:              input.Mode,
		TeamSize:          input.TeamSize,
		Format:            input.Format,
		OrganizerID:       actor.UserID,
		RegDeadline:       input.RegDeadline,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		Location:          trimmedOrNil(input.Location),
		IsOnline:          isOnline,
		MaxParticipants:   input.MaxParticipants,
		EntryFee:          input.EntryFee,
		PrizePool:         input.PrizePool,
		Currency:          strings.ToUpper(strings.TrimSpace(input.Currency)),
		PrizeDistribution: input.PrizeDistribution,
		Rules:             trimmedOrNil(input.Rules),
		Status:            models.StatusSoon,
	}
	if t.Mode == "" {
		t.Mode = models.ModeSolo
	}
	if t.Mode == models.ModeSolo {
		t.TeamSize = 1
	}
	if t.Currency == "" {
		t.Currency = defaultCurrency
	}
	if t.PrizeDistribution == nil {
		t.PrizeDistribution = models.PrizeDistribution{}
	}

	if err := validateTournament(t); err != nil {
		return nil, err
	}

	var err error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		t.Slug = makeTournamentSlug(t.Name)
		err = s.tournamentRepo.Create(ctx, t)
		if !errors.Is(err, repositories.ErrTournamentSlugConflict) {
			break
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentInvalidOrg):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrTournamentInvalidData):
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", t.ID.String()),
		slog.String("slug", t.Slug),
		slog.String("organizer_id", actor.UserID.String()))
	s.populate(ctx, t)
	return t, nil
}

// makeTournamentSlug appends a short random suffix so equal names get distinct slugs.
func makeTournamentSlug(name string) string {
	base := slug.Make(name)
	if len(base) > 60 {
		base = strings.Trim(base[:60], "-")
	}
	if base == "" {
		base = "tournament"
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func validateTournament(t *models.Tournament) error {
	v := validator{}
	nameLen := utf8.RuneCountInString(t.Name)
	v.check(nameLen >= 3 && nameLen <= 100, "name", "must be 3-100 characters")
	v.check(t.Game != "", "game", "is required")
	v.check(t.Mode == models.ModeSolo || t.Mode == models.ModeTeam, "mode", "must be solo or team")
	if t.Mode == models.ModeTeam {
		v.check(t.TeamSize >= 2 && t.TeamSize <= maxTeamSize, "team_size", fmt.Sprintf("must be between 2 and %d for team tournaments", maxTeamSize))
	}
	v.check(t.Format.Valid(), "format", "is not a supported format")
	v.check(t.MaxParticipants > 0 && t.MaxParticipants <= maxTournamentSize, "max_participants", fmt.Sprintf("must be between 1 and %d", maxTournamentSize))
	v.check(t.EntryFee >= 0, "entry_fee", "must not be negative")
	v.check(t.PrizePool >= 0, "prize_pool", "must not be negative")
	v.check(isCurrencyCode(t.Currency), "currency", "must be a 3-letter ISO 4217 code")

	places := make(map[int]bool, len(t.PrizeDistribution))
	for _, tier := range t.PrizeDistribution {
		v.check(tier.Place > 0, "prize_distribution", "places must be positive")
		v.check(!places[tier.Place], "prize_distribution", "places must be unique")
		v.check(tier.Amount >= 0, "prize_distribution", "amounts must not be negative")
		places[tier.Place] = true
	}
	v.check(t.PrizeDistribution.Total() <= t.PrizePool, "prize_distribution", "total exceeds the prize pool")

	if err := v.err(); err != nil {
		return err
	}
	return validateTournamentDates(t.RegDeadline, t.StartDate, t.EndDate)
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *tournamentService) GetTournament(ctx context.Context, ref string) (*models.Tournament, error) {
	var (
		t   *models.Tournament
		err error
	)
	if id, idErr := utils.NormalizeID(ref); idErr == nil {
		t, err = s.tournamentRepo.GetByID(ctx, id)
	} else {
		t, err = s.tournamentRepo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(ref)))
	}
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %q: %w", ref, err)
	}
	s.populate(ctx, t)
	return t, nil
}

func (s *tournamentService) getByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, input ListTournamentsInput) ([]models.Tournament, error) {
	limit, offset := normalizePage(input.Limit, input.Offset)
	filter := repositories.ListTournamentsFilter{
		Status:      input.Status,
		Mode:        input.Mode,
		OrganizerID: input.OrganizerID,
		Search:      strings.TrimSpace(input.Search),
		Limit:       limit,
		Offset:      offset,
	}
	if input.Game != nil {
		game := normalizeGame(*input.Game)
		filter.Game = &game
	}

	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		populateTournamentBannerURLFunc(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateTournamentDetails(ctx context.Context, actor Actor, id uuid.UUID, input UpdateTournamentInput) (*models.Tournament, error) {
	t, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(t.OrganizerID) {
		return nil, ErrForbiddenOperation
	}
	if t.Status == models.StatusCompleted || t.Status == models.StatusCanceled {
		return nil, ErrTournamentNotEditable
	}
	originalMode, originalTeamSize := t.Mode, t.TeamSize

	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		t.Description = trimmedOrNil(input.Description)
	}
	if input.Game != nil {
		t.Game = normalizeGame(*input.Game)
	}
	if input.Mode != nil {
		t.Mode = *input.Mode
	}
	if input.TeamSize != nil {
		t.TeamSize = *input.TeamSize
	}
	if t.Mode == models.ModeSolo {
		t.TeamSize = 1
	}
	if input.Format != nil {
		t.Format = *input.Format
	}
	if input.RegDeadline != nil {
		t.RegDeadline = *input.RegDeadline
	}
	if input.StartDate != nil {
		t.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		t.EndDate = *input.EndDate
	}
	if input.Location != nil {
		t.Location = trimmedOrNil(input.Location)
	}
	if input.IsOnline != nil {
		t.IsOnline = *input.IsOnline
	}
	if input.MaxParticipants != nil {
		t.MaxParticipants = *input.MaxParticipants
	}
	if input.EntryFee != nil {
		t.EntryFee = *input.EntryFee
	}
	if input.PrizePool != nil {
		t.PrizePool = *input.PrizePool
	}
	if input.Currency != nil {
		t.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.PrizeDistribution != nil {
		t.PrizeDistribution = *input.PrizeDistribution
	}
	if input.Rules != nil {
		t.Rules = trimmedOrNil(input.Rules)
	}

	if err := validateTournament(t); err != nil {
		return nil, err
	}
	if t.RegisteredCount > 0 {
		v := validator{}
		v.check(t.MaxParticipants >= t.RegisteredCount, "max_participants", "cannot be below the number of registered participants")
		v.check(t.Mode == originalMode, "mode", "cannot change once participants registered")
		v.check(t.TeamSize == originalTeamSize, "team_size", "cannot change once participants registered")
		if err := v.err(); err != nil {
			return nil, err
		}
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to update tournament %s: %w", id, err)
	}

	s.populate(ctx, t)
	s.hub.BroadcastToRoom(live.TournamentRoom(t.ID), tournamentMessage(live.TypeTournamentUpdated, t.ID, t))
	return t, nil
}

func (s *tournamentService) UpdateTournamentStatus(ctx context.Context, actor Actor, id uuid.UUID, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}

	var t *models.Tournament
	var previous models.TournamentStatus
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		t, err = s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(t.OrganizerID) {
			return ErrForbiddenOperation
		}
		if !isValidStatusTransition(t.Status, status) {
			return fmt.Errorf("%w: from '%s' to '%s'", ErrTournamentInvalidStatusTransition, t.Status, status)
		}
		previous = t.Status
		if previous == status {
			return nil
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, id, status)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		if errors.Is(err, ErrForbiddenOperation) || errors.Is(err, ErrTournamentInvalidStatusTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update tournament status: %w", err)
	}
	if previous == status {
		s.populate(ctx, t)
		return t, nil
	}
	t.Status = status
	t.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "tournament status changed",
		slog.String("tournament_id", id.String()),
		slog.String("from", string(previous)),
		slog.String("to", string(status)))
	s.populate(ctx, t)
	s.hub.BroadcastToRoom(live.TournamentRoom(t.ID), tournamentMessage(live.TypeTournamentUpdated, t.ID, t))
	return t, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, actor Actor, id uuid.UUID) error {
	t, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(t.OrganizerID) {
		return ErrForbiddenOperation
	}
	if t.Status != models.StatusSoon && t.Status != models.StatusCanceled {
		return ErrTournamentNotDeletable
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}

	if t.BannerKey != nil && *t.BannerKey != "" {
		if err := s.uploader.Delete(ctx, *t.BannerKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete tournament banner", slog.String("key", *t.BannerKey), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.String("tournament_id", id.String()))
	return nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, actor Actor, id uuid.UUID, file io.Reader, contentType string) (*models.Tournament, error) {
	t, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(t.OrganizerID) {
		return nil, ErrForbiddenOperation
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	newKey := fmt.Sprintf("tournaments/%s/banner_%s%s", id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, newKey, contentType, file); err != nil {
		if errors.Is(err, storage.ErrUploadsDisabled) {
			return nil, ErrUploadsDisabled
		}
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	oldKey := t.BannerKey
	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &newKey); err != nil {
		if delErr := s.uploader.Delete(ctx, newKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up uploaded banner", slog.String("key", newKey), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to save banner key: %w", err)
	}
	if oldKey != nil && *oldKey != "" && *oldKey != newKey {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete old banner", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	t.BannerKey = &newKey
	t.BannerURL = nil
	s.populate(ctx, t)
	return t, nil
}

// populate fills the banner URL and the organizer profile. Missing profiles are not an error.
func (s *tournamentService) populate(ctx context.Context, t *models.Tournament) {
	populateTournamentBannerURLFunc(t, s.uploader)
	if t.Organizer != nil {
		return
	}
	organizer, err := s.profileRepo.GetLatestByUserID(ctx, t.OrganizerID)
	if err != nil {
		if !errors.Is(err, repositories.ErrProfileNotFound) {
			s.logger.WarnContext(ctx, "failed to populate organizer profile",
				slog.String("tournament_id", t.ID.String()), slog.Any("error", err))
		}
		return
	}
	populateProfileAvatarURLFunc(organizer, s.uploader)
	t.Organizer = organizer
}
