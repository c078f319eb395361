package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/esports-arena/models"
	"github.com/google/uuid"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventInvalidRef       = errors.New("event references an unknown organizer or tournament")
	ErrAttendeeConflict      = errors.New("user already attends this event")
	ErrAttendeeNotFound      = errors.New("attendance not found")
	ErrAttendeeEventNotFound = errors.New("attendance references an unknown event or user")
)

type ListEventsFilter struct {
	Game     *string
	Upcoming bool
	Now      time.Time
	Limit    int
	Offset   int
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountUpcoming(ctx context.Context, now time.Time) (int, error)

	AddAttendee(ctx context.Context, exec SQLExecutor, eventID, userID uuid.UUID) error
	RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error
	ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const eventColumns = `
	e.id, e.title, e.description, e.game, e.location, e.is_online, e.starts_at, e.ends_at, e.capacity,
	e.organizer_id, e.tournament_id, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS attendee_count`

func scanEvent(row rowScanner) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Game, &e.Location, &e.IsOnline, &e.StartsAt, &e.EndsAt, &e.Capacity,
		&e.OrganizerID, &e.TournamentID, &e.CreatedAt, &e.UpdatedAt,
		&e.AttendeeCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return e, nil
}

func (r *postgresEventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (title, description, game, location, is_online, starts_at, ends_at, capacity, organizer_id, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Game, e.Location, e.IsOnline, e.StartsAt, e.EndsAt, e.Capacity,
		e.OrganizerID, e.TournamentID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23503" {
			return ErrEventInvalidRef
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresEventRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1 FOR UPDATE OF e`
	return scanEvent(pick(exec, r.db).QueryRowContext(ctx, query, id))
}

func (r *postgresEventRepository) List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Game != nil {
		query += fmt.Sprintf(" AND e.game = $%d", argID)
		args = append(args, *filter.Game)
		argID++
	}
	if filter.Upcoming {
		query += fmt.Sprintf(" AND e.starts_at > $%d", argID)
		args = append(args, filter.Now)
		argID++
		query += " ORDER BY e.starts_at ASC"
	} else {
		query += " ORDER BY e.starts_at DESC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

func (r *postgresEventRepository) Update(ctx context.Context, e *models.Event) error {
	query := `
		UPDATE events SET
			title = $1,
			description = $2,
			game = $3,
			location = $4,
			is_online = $5,
			starts_at = $6,
			ends_at = $7,
			capacity = $8,
			tournament_id = $9,
			updated_at = now()
		WHERE id = $10
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Game, e.Location, e.IsOnline, e.StartsAt, e.EndsAt, e.Capacity, e.TournamentID,
		e.ID,
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23503" {
			return ErrEventInvalidRef
		}
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE starts_at > $1`, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count upcoming events: %w", err)
	}
	return count, nil
}

func (r *postgresEventRepository) AddAttendee(ctx context.Context, exec SQLExecutor, eventID, userID uuid.UUID) error {
	_, err := pick(exec, r.db).ExecContext(ctx,
		`INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2)`, eventID, userID)
	if err != nil {
		if pqErr, ok := pqError(err); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "event_attendees_pkey" {
					return ErrAttendeeConflict
				}
			case "23503":
				return ErrAttendeeEventNotFound
			}
		}
		return fmt.Errorf("failed to add attendee: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove attendee: %w", err)
	}
	return checkAffectedRows(result, ErrAttendeeNotFound)
}

func (r *postgresEventRepository) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, user_id, created_at FROM event_attendees WHERE event_id = $1 ORDER BY created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	attendees := make([]models.EventAttendee, 0)
	for rows.Next() {
		var a models.EventAttendee
		if err := rows.Scan(&a.EventID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendee rows: %w", err)
	}
	return attendees, nil
}
