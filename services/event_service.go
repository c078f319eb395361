package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/google/uuid"
)

type EventService interface {
	CreateEvent(ctx context.Context, actor Actor, input EventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context, input ListEventsInput) ([]models.Event, error)
	UpdateEvent(ctx context.Context, actor Actor, id uuid.UUID, input EventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, actor Actor, id uuid.UUID) error
	Attend(ctx context.Context, userID, eventID uuid.UUID) (*models.Event, error)
	CancelAttendance(ctx context.Context, userID, eventID uuid.UUID) error
	ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error)
}

// EventInput is used for both create and full update.
type EventInput struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Game         *string    `json:"game,omitempty"`
	Location     *string    `json:"location,omitempty"`
	IsOnline     bool       `json:"is_online"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       time.Time  `json:"ends_at"`
	Capacity     int        `json:"capacity"`
	TournamentID *uuid.UUID `json:"tournament_id,omitempty"`
}

type ListEventsInput struct {
	Game     *string
	Upcoming bool
	Limit    int
	Offset   int
}

type eventService struct {
	tx          repositories.Transactor
	eventRepo   repositories.EventRepository
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
	uploader    storage.FileUploader
	now         Clock
	logger      *slog.Logger
}

func NewEventService(
	tx repositories.Transactor,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	uploader storage.FileUploader,
	now Clock,
	logger *slog.Logger,
) EventService {
	return &eventService{
		tx:          tx,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		uploader:    uploader,
		now:         clockOrNow(now),
		logger:      logger,
	}
}

func applyEventInput(e *models.Event, input EventInput) error {
	e.Title = strings.TrimSpace(input.Title)
	e.Description = trimmedOrNil(input.Description)
	e.Game = nil
	if g := trimmedOrNil(input.Game); g != nil {
		game := normalizeGame(*g)
		e.Game = &game
	}
	e.Location = trimmedOrNil(input.Location)
	e.IsOnline = input.IsOnline
	e.StartsAt = input.StartsAt
	e.EndsAt = input.EndsAt
	e.Capacity = input.Capacity
	e.TournamentID = input.TournamentID

	v := validator{}
	titleLen := utf8.RuneCountInString(e.Title)
	v.check(titleLen >= 3 && titleLen <= 120, "title", "must be 3-120 characters")
	v.check(!e.StartsAt.IsZero(), "starts_at", "is required")
	v.check(!e.EndsAt.IsZero(), "ends_at", "is required")
	if !e.StartsAt.IsZero() && !e.EndsAt.IsZero() {
		v.check(e.StartsAt.Before(e.EndsAt), "ends_at", "must be after starts_at")
	}
	v.check(e.Capacity >= 0, "capacity", "must not be negative (0 means unlimited)")
	v.check(e.IsOnline || e.Location != nil, "location", "is required for offline events")
	return v.err()
}

func (s *eventService) CreateEvent(ctx context.Context, actor Actor, input EventInput) (*models.Event, error) {
	if !actor.IsOrganizer() {
		return nil, ErrForbiddenOperation
	}
	e := &models.Event{OrganizerID: actor.UserID}
	if err := applyEventInput(e, input); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, mapEventError(err)
	}
	s.logger.InfoContext(ctx, "event created",
		slog.String("event_id", e.ID.String()),
		slog.String("organizer_id", actor.UserID.String()))
	return e, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapEventError(err)
	}
	return e, nil
}

func (s *eventService) ListEvents(ctx context.Context, input ListEventsInput) ([]models.Event, error) {
	limit, offset := normalizePage(input.Limit, input.Offset)
	filter := repositories.ListEventsFilter{
		Upcoming: input.Upcoming,
		Now:      s.now(),
		Limit:    limit,
		Offset:   offset,
	}
	if g := trimmedOrNil(input.Game); g != nil {
		game := normalizeGame(*g)
		filter.Game = &game
	}
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, actor Actor, id uuid.UUID, input EventInput) (*models.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapEventError(err)
	}
	if !actor.CanManage(e.OrganizerID) {
		return nil, ErrForbiddenOperation
	}
	if err := applyEventInput(e, input); err != nil {
		return nil, err
	}
	if !e.Unlimited() && e.Capacity < e.AttendeeCount {
		return nil, &ValidationError{Fields: map[string]string{
			"capacity": fmt.Sprintf("cannot be lower than the current attendee count (%d)", e.AttendeeCount),
		}}
	}
	if err := s.eventRepo.Update(ctx, e); err != nil {
		return nil, mapEventError(err)
	}
	return e, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, actor Actor, id uuid.UUID) error {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return mapEventError(err)
	}
	if !actor.CanManage(e.OrganizerID) {
		return ErrForbiddenOperation
	}
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return mapEventError(err)
	}
	s.logger.InfoContext(ctx, "event deleted", slog.String("event_id", id.String()))
	return nil
}

func (s *eventService) Attend(ctx context.Context, userID, eventID uuid.UUID) (*models.Event, error) {
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

	var e *models.Event
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		e, err = s.eventRepo.GetByIDForUpdate(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if !s.now().Before(e.StartsAt) {
			return ErrEventStarted
		}
		if !e.Unlimited() && e.AttendeeCount >= e.Capacity {
			return ErrEventFull
		}
		if err := s.eventRepo.AddAttendee(ctx, exec, eventID, userID); err != nil {
			return err
		}
		e.AttendeeCount++
		return nil
	})
	if err != nil {
		return nil, mapEventError(err)
	}
	return e, nil
}

func (s *eventService) CancelAttendance(ctx context.Context, userID, eventID uuid.UUID) error {
	if err := s.eventRepo.RemoveAttendee(ctx, eventID, userID); err != nil {
		return mapEventError(err)
	}
	return nil
}

func (s *eventService) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapEventError(err)
	}
	attendees, err := s.eventRepo.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}

	ids := make([]uuid.UUID, len(attendees))
	for i, a := range attendees {
		ids[i] = a.UserID
	}
	profiles, err := s.profileRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load attendee profiles", slog.Any("error", err))
		return attendees, nil
	}
	for i := range attendees {
		if p, ok := profiles[attendees[i].UserID]; ok {
			populateProfileAvatarURLFunc(p, s.uploader)
			attendees[i].Profile = p
		}
	}
	return attendees, nil
}

func mapEventError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound),
		errors.Is(err, repositories.ErrAttendeeEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrEventInvalidRef):
		return &ValidationError{Fields: map[string]string{"tournament_id": "references an unknown tournament"}}
	case errors.Is(err, repositories.ErrAttendeeConflict):
		return ErrAlreadyAttending
	case errors.Is(err, repositories.ErrAttendeeNotFound):
		return ErrNotAttending
	case errors.Is(err, ErrEventFull), errors.Is(err, ErrEventStarted):
		return err
	}
	return fmt.Errorf("event operation failed: %w", err)
}
