package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("registration conflict: user already registered for this tournament")
	ErrRegistrationUserInvalid       = errors.New("registration user invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Registration, error)
	GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID uuid.UUID) (*models.Registration, error)
	// Reactivate rewrites a withdrawn registration with fresh details.
	Reactivate(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.RegistrationStatus, note *string) error
	UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, reference *string) error
	ListByTournament(ctx context.Context, tournamentID uuid.UUID, statuses []models.RegistrationStatus) ([]*models.Registration, error)
	// ListByUser includes the tournament of every registration.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error)
	// ListByStatus includes the tournament of every registration, oldest first.
	ListByStatus(ctx context.Context, status models.RegistrationStatus, limit, offset int) ([]*models.Registration, error)
	CountActive(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error)
	CountApproved(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Count(ctx context.Context, status *models.RegistrationStatus) (int, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `
	r.id, r.tournament_id, r.user_id, r.in_game_name, r.team_name, r.team_members, r.contact_email,
	r.payment_status, r.payment_reference, r.status, r.note, r.created_at, r.updated_at`

func registrationDest(reg *models.Registration) []interface{} {
	return []interface{}{
		&reg.ID, &reg.TournamentID, &reg.UserID, &reg.InGameName, &reg.TeamName, pq.Array(&reg.TeamMembers),
		&reg.ContactEmail, &reg.PaymentStatus, &reg.PaymentReference, &reg.Status, &reg.Note,
		&reg.CreatedAt, &reg.UpdatedAt,
	}
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	if err := row.Scan(registrationDest(reg)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration: %w", err)
	}
	if reg.TeamMembers == nil {
		reg.TeamMembers = []string{}
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (
			tournament_id, user_id, in_game_name, team_name, team_members, contact_email,
			payment_status, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := pick(exec, r.db).QueryRowContext(ctx, query,
		reg.TournamentID, reg.UserID, reg.InGameName, reg.TeamName, pq.Array(reg.TeamMembers), reg.ContactEmail,
		reg.PaymentStatus, reg.Status,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)

	if err != nil {
		if pqErr, ok := pqError(err); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "registrations_tournament_id_user_id_key" {
					return ErrRegistrationConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "registrations_user_id_fkey":
					return ErrRegistrationUserInvalid
				case "registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.id = $1`
	return scanRegistration(pick(exec, r.db).QueryRowContext(ctx, query, id))
}

func (r *postgresRegistrationRepository) GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID uuid.UUID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.tournament_id = $1 AND r.user_id = $2`
	return scanRegistration(pick(exec, r.db).QueryRowContext(ctx, query, tournamentID, userID))
}

func (r *postgresRegistrationRepository) Reactivate(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		UPDATE registrations SET
			in_game_name = $1,
			team_name = $2,
			team_members = $3,
			contact_email = $4,
			payment_status = $5,
			status = $6,
			note = NULL,
			updated_at = now()
		WHERE id = $7
		RETURNING updated_at`

	err := pick(exec, r.db).QueryRowContext(ctx, query,
		reg.InGameName, reg.TeamName, pq.Array(reg.TeamMembers), reg.ContactEmail,
		reg.PaymentStatus, reg.Status, reg.ID,
	).Scan(&reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to reactivate registration: %w", err)
	}
	reg.Note = nil
	return nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.RegistrationStatus, note *string) error {
	query := `UPDATE registrations SET status = $1, note = $2, updated_at = now() WHERE id = $3`
	result, err := pick(exec, r.db).ExecContext(ctx, query, status, note, id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, reference *string) error {
	query := `
		UPDATE registrations SET
			payment_status = $1,
			payment_reference = COALESCE($2, payment_reference),
			updated_at = now()
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, reference, id)
	if err != nil {
		return fmt.Errorf("failed to update registration payment: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID, statuses []models.RegistrationStatus) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.tournament_id = $1`
	args := []interface{}{tournamentID}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query += " AND r.status = ANY($2)"
		args = append(args, pq.Array(values))
	}
	query += " ORDER BY r.created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `, ` + tournamentColumns + `
		FROM registrations r
		JOIN tournaments t ON t.id = r.tournament_id
		WHERE r.user_id = $1
		ORDER BY t.start_date DESC`
	return r.listWithTournament(ctx, query, userID)
}

func (r *postgresRegistrationRepository) ListByStatus(ctx context.Context, status models.RegistrationStatus, limit, offset int) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `, ` + tournamentColumns + `
		FROM registrations r
		JOIN tournaments t ON t.id = r.tournament_id
		WHERE r.status = $1
		ORDER BY r.created_at ASC
		LIMIT $2 OFFSET $3`
	return r.listWithTournament(ctx, query, status, limit, offset)
}

func (r *postgresRegistrationRepository) listWithTournament(ctx context.Context, query string, args ...interface{}) ([]*models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		t := &models.Tournament{}
		dest := append(registrationDest(reg),
			&t.ID, &t.Slug, &t.Name, &t.Description, &t.Game, &t.Mode, &t.TeamSize, &t.Format, &t.OrganizerID,
			&t.RegDeadline, &t.StartDate, &t.EndDate, &t.Location, &t.IsOnline, &t.MaxParticipants,
			&t.EntryFee, &t.PrizePool, &t.Currency, &t.PrizeDistribution, &t.Rules, &t.BannerKey, &t.Status,
			&t.CreatedAt, &t.UpdatedAt, &t.RegisteredCount,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan registration with tournament: %w", err)
		}
		if reg.TeamMembers == nil {
			reg.TeamMembers = []string{}
		}
		reg.Tournament = t
		registrations = append(registrations, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) CountActive(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error) {
	return r.countForTournament(ctx, exec, tournamentID, `status IN ('pending', 'approved')`)
}

func (r *postgresRegistrationRepository) CountApproved(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error) {
	return r.countForTournament(ctx, exec, tournamentID, `status = 'approved'`)
}

func (r *postgresRegistrationRepository) countForTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, cond string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM registrations WHERE tournament_id = $1 AND ` + cond
	if err := pick(exec, r.db).QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM registrations WHERE user_id = $1 AND status <> 'withdrawn'`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count user registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) Count(ctx context.Context, status *models.RegistrationStatus) (int, error) {
	var count int
	var err error
	if status != nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE status = $1`, *status).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}
