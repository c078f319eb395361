package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
	"github.com/google/uuid"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentSlugConflict = errors.New("tournament slug conflict")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
	ErrTournamentInvalidData  = errors.New("tournament violates a database constraint")
)

type ListTournamentsFilter struct {
	Game        *string
	Status      *models.TournamentStatus
	Mode        *models.TournamentMode
	OrganizerID *uuid.UUID
	Search      string
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.TournamentStatus) error
	UpdateBannerKey(ctx context.Context, tournamentID uuid.UUID, bannerKey *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, status *models.TournamentStatus) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	return pick(exec, r.db)
}

// registered_count counts registrations that hold a slot.
const tournamentColumns = `
	t.id, t.slug, t.name, t.description, t.game, t.mode, t.team_size, t.format, t.organizer_id,
	t.reg_deadline, t.start_date, t.end_date, t.location, t.is_online, t.max_participants,
	t.entry_fee, t.prize_pool, t.currency, t.prize_distribution, t.rules, t.banner_key, t.status,
	t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM registrations r
		WHERE r.tournament_id = t.id AND r.status IN ('pending', 'approved')) AS registered_count`

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Slug, &t.Name, &t.Description, &t.Game, &t.Mode, &t.TeamSize, &t.Format, &t.OrganizerID,
		&t.RegDeadline, &t.StartDate, &t.EndDate, &t.Location, &t.IsOnline, &t.MaxParticipants,
		&t.EntryFee, &t.PrizePool, &t.Currency, &t.PrizeDistribution, &t.Rules, &t.BannerKey, &t.Status,
		&t.CreatedAt, &t.UpdatedAt,
		&t.RegisteredCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			slug, name, description, game, mode, team_size, format, organizer_id,
			reg_deadline, start_date, end_date, location, is_online, max_participants,
			entry_fee, prize_pool, currency, prize_distribution, rules, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Slug, t.Name, t.Description, t.Game, t.Mode, t.TeamSize, t.Format, t.OrganizerID,
		t.RegDeadline, t.StartDate, t.EndDate, t.Location, t.IsOnline, t.MaxParticipants,
		t.EntryFee, t.PrizePool, t.Currency, t.PrizeDistribution, t.Rules, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE t.id = $1`
	return scanTournament(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE t.slug = $1`
	return scanTournament(r.db.QueryRowContext(ctx, query, slug))
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE t.id = $1 FOR UPDATE OF t`
	return scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Game != nil {
		query += fmt.Sprintf(" AND t.game = $%d", argID)
		args = append(args, *filter.Game)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Mode != nil {
		query += fmt.Sprintf(" AND t.mode = $%d", argID)
		args = append(args, *filter.Mode)
		argID++
	}
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND t.organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (t.name ILIKE $%d OR t.description ILIKE $%d)", argID, argID)
		args = append(args, likePattern(filter.Search))
		argID++
	}

	query += " ORDER BY t.start_date DESC, t.created_at DESC"

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
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

// Update writes the editable details. Status and banner have their own methods.
func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			game = $3,
			mode = $4,
			team_size = $5,
			format = $6,
			reg_deadline = $7,
			start_date = $8,
			end_date = $9,
			location = $10,
			is_online = $11,
			max_participants = $12,
			entry_fee = $13,
			prize_pool = $14,
			currency = $15,
			prize_distribution = $16,
			rules = $17,
			updated_at = now()
		WHERE id = $18
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Game, t.Mode, t.TeamSize, t.Format,
		t.RegDeadline, t.StartDate, t.EndDate, t.Location, t.IsOnline, t.MaxParticipants,
		t.EntryFee, t.PrizePool, t.Currency, t.PrizeDistribution, t.Rules,
		t.ID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTournamentNotFound
	}
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, tournamentID uuid.UUID, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Count(ctx context.Context, status *models.TournamentStatus) (int, error) {
	var count int
	var err error
	if status != nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments WHERE status = $1`, *status).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return count, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_slug_key" {
				return ErrTournamentSlugConflict
			}
		case "23503":
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
		case "23514":
			return ErrTournamentInvalidData
		}
	}
	return err
}
