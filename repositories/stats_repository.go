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
	ErrStatsNotFound      = errors.New("player stats not found")
	ErrStatsUserInvalid   = errors.New("stats user invalid")
	ErrInvalidSortOrder   = errors.New("invalid leaderboard sort")
	ErrMatchTournamentRef = errors.New("match references an unknown tournament")
)

type StatsRepository interface {
	// ApplyMatch stores the match line and folds it into the player's per-game totals.
	ApplyMatch(ctx context.Context, exec SQLExecutor, rec *models.MatchRecord, tournamentWon bool) error
	Get(ctx context.Context, userID uuid.UUID, game string) (*models.PlayerStats, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PlayerStats, error)
	RecentMatches(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchRecord, error)
	Leaderboard(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) ([]models.LeaderboardEntry, error)
	CountPlayers(ctx context.Context, game string) (int, error)
	// CountAhead counts players of the game whose sort metric is strictly greater.
	CountAhead(ctx context.Context, game string, sort models.LeaderboardSort, metric float64) (int, error)
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

// metricExpressions must compute exactly what PlayerStats.Metric computes.
var metricExpressions = map[models.LeaderboardSort]string{
	models.SortPoints:  `ps.points`,
	models.SortWins:    `ps.wins`,
	models.SortMatches: `ps.matches_played`,
	models.SortWinRate: `(CASE WHEN ps.matches_played > 0 THEN ps.wins::float8 / ps.matches_played ELSE 0 END)`,
	models.SortKDA:     `((ps.kills + ps.assists)::float8 / GREATEST(ps.deaths, 1))`,
}

const statsColumns = `ps.user_id, ps.game, ps.matches_played, ps.wins, ps.losses, ps.draws,
	ps.kills, ps.deaths, ps.assists, ps.points, ps.tournaments_played, ps.tournaments_won, ps.updated_at`

func statsDest(s *models.PlayerStats) []interface{} {
	return []interface{}{
		&s.UserID, &s.Game, &s.MatchesPlayed, &s.Wins, &s.Losses, &s.Draws,
		&s.Kills, &s.Deaths, &s.Assists, &s.Points, &s.TournamentsPlayed, &s.TournamentsWon, &s.UpdatedAt,
	}
}

func (r *postgresStatsRepository) ApplyMatch(ctx context.Context, exec SQLExecutor, rec *models.MatchRecord, tournamentWon bool) error {
	executor := pick(exec, r.db)

	tournamentsPlayed := 0
	if rec.TournamentID != nil {
		var seen bool
		err := executor.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM match_results WHERE user_id = $1 AND game = $2 AND tournament_id = $3)`,
			rec.UserID, rec.Game, *rec.TournamentID,
		).Scan(&seen)
		if err != nil {
			return fmt.Errorf("failed to check tournament participation: %w", err)
		}
		if !seen {
			tournamentsPlayed = 1
		}
	}

	var playedAt sql.NullTime
	if !rec.PlayedAt.IsZero() {
		playedAt = sql.NullTime{Time: rec.PlayedAt, Valid: true}
	}
	insert := `
		INSERT INTO match_results (user_id, game, tournament_id, result, kills, deaths, assists, points, recorded_by, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
		RETURNING id, played_at, created_at`
	err := executor.QueryRowContext(ctx, insert,
		rec.UserID, rec.Game, rec.TournamentID, rec.Result, rec.Kills, rec.Deaths, rec.Assists, rec.Points,
		rec.RecordedBy, playedAt,
	).Scan(&rec.ID, &rec.PlayedAt, &rec.CreatedAt)
	if err != nil {
		return r.handleStatsError(err)
	}

	var win, loss, draw, won int
	switch rec.Result {
	case models.ResultWin:
		win = 1
	case models.ResultLoss:
		loss = 1
	case models.ResultDraw:
		draw = 1
	}
	if tournamentWon {
		won = 1
	}

	upsert := `
		INSERT INTO player_stats AS ps (
			user_id, game, matches_played, wins, losses, draws, kills, deaths, assists, points,
			tournaments_played, tournaments_won
		) VALUES ($1, $2, 1, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, game) DO UPDATE SET
			matches_played     = ps.matches_played + 1,
			wins               = ps.wins + EXCLUDED.wins,
			losses             = ps.losses + EXCLUDED.losses,
			draws              = ps.draws + EXCLUDED.draws,
			kills              = ps.kills + EXCLUDED.kills,
			deaths             = ps.deaths + EXCLUDED.deaths,
			assists            = ps.assists + EXCLUDED.assists,
			points             = ps.points + EXCLUDED.points,
			tournaments_played = ps.tournaments_played + EXCLUDED.tournaments_played,
			tournaments_won    = ps.tournaments_won + EXCLUDED.tournaments_won,
			updated_at         = now()`
	_, err = executor.ExecContext(ctx, upsert,
		rec.UserID, rec.Game, win, loss, draw, rec.Kills, rec.Deaths, rec.Assists, rec.Points,
		tournamentsPlayed, won,
	)
	return r.handleStatsError(err)
}

func (r *postgresStatsRepository) handleStatsError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok && pqErr.Code == "23503" {
		if pqErr.Constraint == "match_results_tournament_id_fkey" {
			return ErrMatchTournamentRef
		}
		return ErrStatsUserInvalid
	}
	return fmt.Errorf("failed to apply match: %w", err)
}

func (r *postgresStatsRepository) Get(ctx context.Context, userID uuid.UUID, game string) (*models.PlayerStats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats ps WHERE ps.user_id = $1 AND ps.game = $2`
	var s models.PlayerStats
	if err := r.db.QueryRowContext(ctx, query, userID, game).Scan(statsDest(&s)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	s.ComputeDerived()
	return &s, nil
}

func (r *postgresStatsRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PlayerStats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats ps WHERE ps.user_id = $1 ORDER BY ps.game`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player stats: %w", err)
	}
	defer rows.Close()

	stats := make([]models.PlayerStats, 0)
	for rows.Next() {
		var s models.PlayerStats
		if err := rows.Scan(statsDest(&s)...); err != nil {
			return nil, fmt.Errorf("failed to scan player stats: %w", err)
		}
		s.ComputeDerived()
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player stats rows: %w", err)
	}
	return stats, nil
}

func (r *postgresStatsRepository) RecentMatches(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchRecord, error) {
	query := `
		SELECT id, user_id, game, tournament_id, result, kills, deaths, assists, points, recorded_by, played_at, created_at
		FROM match_results
		WHERE user_id = $1
		ORDER BY played_at DESC, created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.MatchRecord, 0)
	for rows.Next() {
		var m models.MatchRecord
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.Game, &m.TournamentID, &m.Result, &m.Kills, &m.Deaths, &m.Assists,
			&m.Points, &m.RecordedBy, &m.PlayedAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

// Leaderboard orders by the sort metric, then wins, matches played and user id. Each
// entry carries the player's latest profile, if any.
func (r *postgresStatsRepository) Leaderboard(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) ([]models.LeaderboardEntry, error) {
	metric, ok := metricExpressions[sort]
	if !ok {
		return nil, ErrInvalidSortOrder
	}
	query := `
		SELECT ` + statsColumns + `, p.username, p.display_name, p.avatar_key
		FROM player_stats ps
		LEFT JOIN LATERAL (
			SELECT username, display_name, avatar_key FROM profiles
			WHERE profiles.user_id = ps.user_id
			ORDER BY updated_at DESC
			LIMIT 1
		) p ON true
		WHERE ps.game = $1
		ORDER BY ` + metric + ` DESC, ps.wins DESC, ps.matches_played DESC, ps.user_id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, game, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		var username, displayName sql.NullString
		dest := append(statsDest(&e.Stats), &username, &displayName, &e.AvatarKey)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Stats.ComputeDerived()
		e.UserID = e.Stats.UserID
		e.Username = username.String
		e.DisplayName = displayName.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return entries, nil
}

func (r *postgresStatsRepository) CountPlayers(ctx context.Context, game string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM player_stats WHERE game = $1`, game).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

func (r *postgresStatsRepository) CountAhead(ctx context.Context, game string, sort models.LeaderboardSort, metric float64) (int, error) {
	expr, ok := metricExpressions[sort]
	if !ok {
		return 0, ErrInvalidSortOrder
	}
	var count int
	query := `SELECT COUNT(*) FROM player_stats ps WHERE ps.game = $1 AND ` + expr + ` > $2`
	if err := r.db.QueryRowContext(ctx, query, game, metric).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players ahead: %w", err)
	}
	return count, nil
}
