package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/esports-arena/live"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/google/uuid"
)

// RegistrationService инкапсулирует бизнес-логику регистраций на турниры.
type RegistrationService interface {
	Register(ctx context.Context, userID, tournamentID uuid.UUID, input RegisterForTournamentInput) (*models.Registration, error)
	Withdraw(ctx context.Context, userID, tournamentID uuid.UUID) (*models.Registration, error)
	UpdateStatus(ctx context.Context, actor Actor, registrationID uuid.UUID, input UpdateRegistrationStatusInput) (*models.Registration, error)
	UpdatePayment(ctx context.Context, actor Actor, registrationID uuid.UUID, input UpdatePaymentInput) (*models.Registration, error)
	// ListForTournament shows every registration to the organizer and admins, and
	// approved ones without private fields to everyone else. actor may be nil.
	ListForTournament(ctx context.Context, actor *Actor, tournamentID uuid.UUID, status *models.RegistrationStatus) ([]*models.Registration, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error)
}

type RegisterForTournamentInput struct {
	InGameName   string   `json:"in_game_name"`
	TeamName     *string  `json:"team_name,omitempty"`
	TeamMembers  []string `json:"team_members,omitempty"`
	ContactEmail *string  `json:"contact_email,omitempty"`
}

type UpdateRegistrationStatusInput struct {
	Status models.RegistrationStatus `json:"status"`
	Note   *string                   `json:"note,omitempty"`
}

type UpdatePaymentInput struct {
	PaymentStatus    models.PaymentStatus `json:"payment_status"`
	PaymentReference *string              `json:"payment_reference,omitempty"`
}

type registrationService struct {
	tx               repositories.Transactor
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	profileRepo      repositories.ProfileRepository
	uploader         storage.FileUploader
	mailer           Mailer
	hub              Broadcaster
	publicURL        string
	now              Clock
	logger           *slog.Logger
}

func NewRegistrationService(
	tx repositories.Transactor,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	uploader storage.FileUploader,
	mailer Mailer,
	hub Broadcaster,
	publicURL string,
	now Clock,
	logger *slog.Logger,
) RegistrationService {
	if mailer == nil {
		mailer = NewNoopMailer(logger)
	}
	return &registrationService{
		tx:               tx,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		profileRepo:      profileRepo,
		uploader:         uploader,
		mailer:           mailer,
		hub:              broadcasterOrNoop(hub),
		publicURL:        publicURL,
		now:              clockOrNow(now),
		logger:           logger,
	}
}

func (s *registrationService) Register(ctx context.Context, userID, tournamentID uuid.UUID, input RegisterForTournamentInput) (*models.Registration, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if user.Status == models.UserStatusBanned {
		return nil, ErrUserBanned
	}

	var reg *models.Registration
	var registered int
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !t.RegistrationOpen(s.now()) {
			return ErrRegistrationNotOpen
		}

		reg, err = buildRegistration(t, user, input)
		if err != nil {
			return err
		}

		existing, err := s.registrationRepo.GetByTournamentAndUser(ctx, exec, tournamentID, userID)
		switch {
		case err == nil:
			if existing.Status != models.RegistrationWithdrawn {
				return ErrRegistrationConflict
			}
		case errors.Is(err, repositories.ErrRegistrationNotFound):
			existing = nil
		default:
			return err
		}

		active, err := s.registrationRepo.CountActive(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if active >= t.MaxParticipants {
			return ErrTournamentFull
		}

		if existing != nil {
			reg.ID = existing.ID
			reg.CreatedAt = existing.CreatedAt
			if existing.PaymentStatus == models.PaymentPaid && !t.IsFree() {
				reg.PaymentStatus = models.PaymentPaid
				reg.PaymentReference = existing.PaymentReference
			}
			err = s.registrationRepo.Reactivate(ctx, exec, reg)
		} else {
			err = s.registrationRepo.Create(ctx, exec, reg)
		}
		registered = active + 1
		return err
	})
	if err != nil {
		return nil, mapRegistrationError(err)
	}

	s.logger.InfoContext(ctx, "user registered for tournament",
		slog.String("user_id", userID.String()),
		slog.String("tournament_id", tournamentID.String()),
		slog.String("registration_id", reg.ID.String()))
	s.broadcast(reg, registered)
	return reg, nil
}

// buildRegistration validates the input against the tournament mode. In team mode the
// roster must list exactly TeamSize players; the captain's in-game name is added when
// the roster omits it.
func buildRegistration(t *models.Tournament, user *models.User, input RegisterForTournamentInput) (*models.Registration, error) {
	reg := &models.Registration{
		TournamentID:  t.ID,
		UserID:        user.ID,
		InGameName:    strings.TrimSpace(input.InGameName),
		TeamMembers:   []string{},
		Status:        models.RegistrationPending,
		PaymentStatus: models.PaymentPending,
	}
	if t.IsFree() {
		reg.PaymentStatus = models.PaymentWaived
	}

	v := validator{}
	nameLen := utf8.RuneCountInString(reg.InGameName)
	v.check(nameLen >= 1 && nameLen <= 64, "in_game_name", "must be 1-64 characters")

	email := user.Email
	if contact := trimmedOrNil(input.ContactEmail); contact != nil {
		email = utils.NormalizeEmail(*contact)
		v.check(utils.IsValidEmail(email), "contact_email", ErrInvalidEmail.Error())
	}
	reg.ContactEmail = &email

	if t.Mode == models.ModeTeam {
		reg.TeamName = trimmedOrNil(input.TeamName)
		v.check(reg.TeamName != nil, "team_name", "is required for team tournaments")

		members := make([]string, 0, len(input.TeamMembers)+1)
		seen := make(map[string]bool, len(input.TeamMembers)+1)
		duplicate := false
		for _, m := range input.TeamMembers {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			key := strings.ToLower(m)
			if seen[key] {
				duplicate = true
				continue
			}
			seen[key] = true
			members = append(members, m)
		}
		if reg.InGameName != "" && !seen[strings.ToLower(reg.InGameName)] {
			members = append([]string{reg.InGameName}, members...)
		}
		v.check(!duplicate, "team_members", "must not contain duplicates")
		v.check(len(members) == t.TeamSize, "team_members", fmt.Sprintf("must list exactly %d players including the captain", t.TeamSize))
		reg.TeamMembers = members
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) Withdraw(ctx context.Context, userID, tournamentID uuid.UUID) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByTournamentAndUser(ctx, nil, tournamentID, userID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	if !reg.Status.Active() {
		return nil, ErrRegistrationNotFound
	}

	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	if !s.now().Before(t.StartDate) || t.Status == models.StatusActive || t.Status == models.StatusCompleted {
		return nil, ErrTournamentStarted
	}

	if err := s.registrationRepo.UpdateStatus(ctx, nil, reg.ID, models.RegistrationWithdrawn, nil); err != nil {
		return nil, mapRegistrationError(err)
	}
	reg.Status = models.RegistrationWithdrawn
	reg.Note = nil
	reg.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "registration withdrawn",
		slog.String("registration_id", reg.ID.String()),
		slog.String("tournament_id", tournamentID.String()))
	s.broadcast(reg, t.RegisteredCount-1)
	return reg, nil
}

func (s *registrationService) UpdateStatus(ctx context.Context, actor Actor, registrationID uuid.UUID, input UpdateRegistrationStatusInput) (*models.Registration, error) {
	switch input.Status {
	case models.RegistrationPending, models.RegistrationApproved, models.RegistrationRejected:
	default:
		return nil, &ValidationError{Fields: map[string]string{"status": "must be pending, approved or rejected"}}
	}
	note := trimmedOrNil(input.Note)

	var reg *models.Registration
	var t *models.Tournament
	var registered int
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		reg, err = s.registrationRepo.GetByID(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		t, err = s.tournamentRepo.GetByIDForUpdate(ctx, exec, reg.TournamentID)
		if err != nil {
			return err
		}
		if !actor.CanManage(t.OrganizerID) {
			return ErrForbiddenOperation
		}
		if t.Status == models.StatusCompleted || t.Status == models.StatusCanceled {
			return ErrTournamentNotEditable
		}
		if reg.Status == models.RegistrationWithdrawn {
			return &ValidationError{Fields: map[string]string{"status": "registration was withdrawn by the player"}}
		}

		if input.Status == models.RegistrationApproved && reg.Status != models.RegistrationApproved {
			if !reg.PaymentStatus.Settled() {
				return ErrPaymentRequired
			}
			approved, err := s.registrationRepo.CountApproved(ctx, exec, t.ID)
			if err != nil {
				return err
			}
			if approved >= t.MaxParticipants {
				return ErrTournamentFull
			}
		}
		// A rejected row coming back takes a slot again.
		if input.Status.Active() && !reg.Status.Active() {
			active, err := s.registrationRepo.CountActive(ctx, exec, t.ID)
			if err != nil {
				return err
			}
			if active >= t.MaxParticipants {
				return ErrTournamentFull
			}
		}
		registered = t.RegisteredCount + activeDelta(reg.Status, input.Status)

		if err := s.registrationRepo.UpdateStatus(ctx, exec, reg.ID, input.Status, note); err != nil {
			return err
		}
		reg.Status = input.Status
		reg.Note = note
		reg.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, mapRegistrationError(err)
	}

	s.logger.InfoContext(ctx, "registration status changed",
		slog.String("registration_id", reg.ID.String()),
		slog.String("status", string(reg.Status)),
		slog.String("actor_id", actor.UserID.String()))
	s.notify(ctx, reg, t)
	s.broadcast(reg, registered)
	return reg, nil
}

func (s *registrationService) UpdatePayment(ctx context.Context, actor Actor, registrationID uuid.UUID, input UpdatePaymentInput) (*models.Registration, error) {
	if !input.PaymentStatus.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"payment_status": "must be pending, paid, refunded or waived"}}
	}

	reg, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	t, err := s.tournamentRepo.GetByID(ctx, reg.TournamentID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	if !actor.CanManage(t.OrganizerID) {
		return nil, ErrForbiddenOperation
	}

	reference := trimmedOrNil(input.PaymentReference)
	if err := s.registrationRepo.UpdatePayment(ctx, reg.ID, input.PaymentStatus, reference); err != nil {
		return nil, mapRegistrationError(err)
	}
	reg.PaymentStatus = input.PaymentStatus
	if reference != nil {
		reg.PaymentReference = reference
	}
	reg.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "registration payment updated",
		slog.String("registration_id", reg.ID.String()),
		slog.String("payment_status", string(reg.PaymentStatus)))
	s.broadcast(reg, t.RegisteredCount)
	return reg, nil
}

func (s *registrationService) ListForTournament(ctx context.Context, actor *Actor, tournamentID uuid.UUID, status *models.RegistrationStatus) ([]*models.Registration, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}

	manager := actor != nil && actor.CanManage(t.OrganizerID)
	var statuses []models.RegistrationStatus
	switch {
	case !manager:
		if status != nil && *status != models.RegistrationApproved {
			return []*models.Registration{}, nil
		}
		statuses = []models.RegistrationStatus{models.RegistrationApproved}
	case status != nil:
		statuses = []models.RegistrationStatus{*status}
	}

	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	userIDs := make([]uuid.UUID, 0, len(registrations))
	for _, reg := range registrations {
		userIDs = append(userIDs, reg.UserID)
	}
	profiles, err := s.profileRepo.ListByUserIDs(ctx, userIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load registrant profiles", slog.Any("error", err))
		profiles = nil
	}
	for _, reg := range registrations {
		if p, ok := profiles[reg.UserID]; ok {
			populateProfileAvatarURLFunc(p, s.uploader)
			reg.Profile = p
		}
		if !manager {
			reg.ContactEmail = nil
			reg.PaymentReference = nil
			reg.Note = nil
		}
	}
	return registrations, nil
}

func (s *registrationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error) {
	registrations, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for user %s: %w", userID, err)
	}
	for _, reg := range registrations {
		populateTournamentBannerURLFunc(reg.Tournament, s.uploader)
	}
	return registrations, nil
}

// activeDelta is the change in occupied slots when a registration moves from one status to another.
func activeDelta(from, to models.RegistrationStatus) int {
	switch {
	case from.Active() && !to.Active():
		return -1
	case !from.Active() && to.Active():
		return 1
	}
	return 0
}

func (s *registrationService) broadcast(reg *models.Registration, registeredCount int) {
	if registeredCount < 0 {
		registeredCount = 0
	}
	payload := map[string]interface{}{
		"registration_id":  reg.ID,
		"user_id":          reg.UserID,
		"status":           reg.Status,
		"payment_status":   reg.PaymentStatus,
		"registered_count": registeredCount,
	}
	s.hub.BroadcastToRoom(live.TournamentRoom(reg.TournamentID), tournamentMessage(live.TypeRegistrationUpdated, reg.TournamentID, payload))
}

func (s *registrationService) notify(ctx context.Context, reg *models.Registration, t *models.Tournament) {
	if reg.ContactEmail == nil || *reg.ContactEmail == "" {
		return
	}
	link := ""
	if s.publicURL != "" {
		link = s.publicURL + "/tournaments/" + t.Slug
	}
	err := s.mailer.SendRegistrationStatusEmail(ctx, *reg.ContactEmail, RegistrationStatusEmail{
		TournamentName: t.Name,
		Status:         string(reg.Status),
		Note:           derefString(reg.Note),
		Link:           link,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to send registration status email",
			slog.String("registration_id", reg.ID.String()), slog.Any("error", err))
	}
}

func mapRegistrationError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrRegistrationTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrRegistrationConflict):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrRegistrationUserInvalid):
		return ErrUserNotFound
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	for _, sentinel := range []error{
		ErrRegistrationNotOpen, ErrTournamentFull, ErrRegistrationConflict, ErrForbiddenOperation,
		ErrTournamentNotEditable, ErrPaymentRequired, ErrTournamentStarted,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("registration operation failed: %w", err)
}
