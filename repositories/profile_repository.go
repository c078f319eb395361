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
	ErrProfileNotFound         = errors.New("profile not found")
	ErrProfileUsernameConflict = errors.New("profile username conflict")
)

type ProfileRepository interface {
	Create(ctx context.Context, exec SQLExecutor, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// GetLatestByUserID returns the most recently updated profile of the user.
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	// GetLatestByEmail matches the profile email case-insensitively.
	GetLatestByEmail(ctx context.Context, email string) (*models.Profile, error)
	ListByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	UpdateAvatarKey(ctx context.Context, profileID uuid.UUID, avatarKey *string) error
	RelinkUser(ctx context.Context, profileID, userID uuid.UUID) error
	Search(ctx context.Context, query string, limit, offset int) ([]models.Profile, error)
}

type postgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(db *sql.DB) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

const profileColumns = `id, user_id, username, display_name, email, bio, country, main_game,
	avatar_key, social_links, created_at, updated_at`

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Username, &p.DisplayName, &p.Email, &p.Bio, &p.Country, &p.MainGame,
		&p.AvatarKey, &p.SocialLinks, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}

func handleProfileError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok && pqErr.Code == "23505" && pqErr.Constraint == "profiles_username_key" {
		return ErrProfileUsernameConflict
	}
	return err
}

func (r *postgresProfileRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, username, display_name, email, bio, country, main_game, social_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := pick(exec, r.db).QueryRowContext(ctx, query,
		p.UserID, p.Username, p.DisplayName, p.Email, p.Bio, p.Country, p.MainGame, p.SocialLinks,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if mapped := handleProfileError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *postgresProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresProfileRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE user_id = $1
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *postgresProfileRepository) GetLatestByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE lower(email) = lower($1)
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1`
	return scanProfile(r.db.QueryRowContext(ctx, query, email))
}

// ListByUserIDs returns the latest profile of each user that has one.
func (r *postgresProfileRepository) ListByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	result := make(map[uuid.UUID]*models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	query := `SELECT DISTINCT ON (user_id) ` + profileColumns + ` FROM profiles
		WHERE user_id = ANY($1::uuid[])
		ORDER BY user_id, updated_at DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, uuidArray(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles by user: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}
	return result, nil
}

func (r *postgresProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles SET
			username = $1,
			display_name = $2,
			email = $3,
			bio = $4,
			country = $5,
			main_game = $6,
			social_links = $7,
			updated_at = now()
		WHERE id = $8
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.Username, p.DisplayName, p.Email, p.Bio, p.Country, p.MainGame, p.SocialLinks, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProfileNotFound
		}
		if mapped := handleProfileError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (r *postgresProfileRepository) UpdateAvatarKey(ctx context.Context, profileID uuid.UUID, avatarKey *string) error {
	query := `UPDATE profiles SET avatar_key = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, avatarKey, profileID)
	if err != nil {
		return fmt.Errorf("failed to update profile avatar: %w", err)
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

// RelinkUser points a profile at another user id. Used when a profile found through a
// fallback lookup belongs to a stale or legacy user id.
func (r *postgresProfileRepository) RelinkUser(ctx context.Context, profileID, userID uuid.UUID) error {
	query := `UPDATE profiles SET user_id = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, profileID)
	if err != nil {
		return fmt.Errorf("failed to relink profile: %w", err)
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

func (r *postgresProfileRepository) Search(ctx context.Context, term string, limit, offset int) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE username ILIKE $1 OR display_name ILIKE $1
		ORDER BY username
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, likePattern(term), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}
	return profiles, nil
}
