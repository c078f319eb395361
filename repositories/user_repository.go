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
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("user email conflict")
	ErrUserLegacyIDConflict = errors.New("user legacy id conflict")
	ErrUserInUse            = errors.New("user is referenced by tournaments or events")
)

type UserRepository interface {
	Create(ctx context.Context, exec SQLExecutor, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLegacyID(ctx context.Context, legacyID string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.UserRole) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, status *models.UserStatus) (int, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, email, password_hash, role, status, legacy_id, created_at, updated_at`

func (r *postgresUserRepository) Create(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, role, status, legacy_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := pick(exec, r.db).QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.LegacyID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrUserEmailConflict
			case "users_legacy_id_key":
				return ErrUserLegacyIDConflict
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresUserRepository) GetByLegacyID(ctx context.Context, legacyID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE legacy_id = lower($1)`
	return r.scanUser(r.db.QueryRowContext(ctx, query, legacyID))
}

func (r *postgresUserRepository) scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.LegacyID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// List returns one page of users plus the total number matching the filter. Search
// matches the email or the username of any profile belonging to the user.
func (r *postgresUserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argID := 1

	if filter.Search != "" {
		where += fmt.Sprintf(` AND (u.email ILIKE $%d OR EXISTS (
			SELECT 1 FROM profiles p WHERE p.user_id = u.id AND p.username ILIKE $%d))`, argID, argID)
		args = append(args, likePattern(filter.Search))
		argID++
	}
	if filter.Role != nil {
		where += fmt.Sprintf(" AND u.role = $%d", argID)
		args = append(args, *filter.Role)
		argID++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND u.status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT u.id, u.email, u.password_hash, u.role, u.status, u.legacy_id, u.created_at, u.updated_at
		FROM users u` + where + " ORDER BY u.created_at DESC, u.id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, total, nil
}

func (r *postgresUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.UserRole) error {
	query := `UPDATE users SET role = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	query := `UPDATE users SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

// Delete removes the user. Tournaments and events they organize keep the user alive
// through their foreign keys, which surfaces as ErrUserInUse.
func (r *postgresUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23503" {
			return ErrUserInUse
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Count(ctx context.Context, status *models.UserStatus) (int, error) {
	var count int
	var err error
	if status != nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE status = $1`, *status).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
