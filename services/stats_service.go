package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-arena/live"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const recentMatchesLimit = 10

type StatsService interface {
	RecordMatch(ctx context.Context, actor Actor, input RecordMatchInput) (*models.MatchRecord, error)
	GetPlayerStats(ctx context.Context, userID uuid.UUID) (*models.PerformanceSummary, error)
}

type RecordMatchInput struct {
	UserID        uuid.UUID          `json:"user_id"`
	Game          string             `json:"game"`
	TournamentID  *uuid.UUID         `json:"tournament_id,omitempty"`
	Result        models.MatchResult `json:"result"`
	Kills         int                `json:"kills"`
	Deaths        int                `json:"deaths"`
	Assists       int                `json:"assists"`
	Points        int                `json:"points"`
	TournamentWon bool               `json:"tournament_won"`
	PlayedAt      *time.Time         `json:"played_at,omitempty"`
}

type statsService struct {
	tx               repositories.Transactor
	statsRepo        repositories.StatsRepository
	userRepo         repositories.UserRepository
	tournamentRepo   repositories.TournamentRepository
	profileRepo      repositories.ProfileRepository
	registrationRepo repositories.RegistrationRepository
	uploader         storage.FileUploader
	hub              Broadcaster
	logger           *slog.Logger
}

func NewStatsService(
	tx repositories.Transactor,
	statsRepo repositories.StatsRepository,
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	profileRepo repositories.ProfileRepository,
	registrationRepo repositories.RegistrationRepository,
	uploader storage.FileUploader,
	hub Broadcaster,
	logger *slog.Logger,
) StatsService {
	return &statsService{
		tx:               tx,
		statsRepo:        statsRepo,
		userRepo:         userRepo,
		tournamentRepo:   tournamentRepo,
		profileRepo:      profileRepo,
		registrationRepo: registrationRepo,
		uploader:         uploader,
		hub:              broadcasterOrNoop(hub),
		logger:           logger,
	}
}

func (s *statsService) RecordMatch(ctx context.Context, actor Actor, input RecordMatchInput) (*models.MatchRecord, error) {
	if !actor.IsOrganizer() {
		return nil, ErrForbiddenOperation
	}

	rec := &models.MatchRecord{
		UserID:       input.UserID,
		Game:         normalizeGame(input.Game),
		TournamentID: input.TournamentID,
		Result:       input.Result,
		Kills:        input.Kills,
		Deaths:       input.Deaths,
		Assists:      input.Assists,
		Points:       input.Points,
		RecordedBy:   actor.UserID,
	}
	if input.PlayedAt != nil {
		rec.PlayedAt = *input.PlayedAt
	}

	if rec.TournamentID != nil {
		t, err := s.tournamentRepo.GetByID(ctx, *rec.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, ErrTournamentNotFound
			}
			return nil, fmt.Errorf("failed to get tournament %s: %w", *rec.TournamentID, err)
		}
		if !actor.CanManage(t.OrganizerID) {
			return nil, ErrForbiddenOperation
		}
		if rec.Game == "" {
			rec.Game = t.Game
		}
		if rec.Game != t.Game {
			return nil, &ValidationError{Fields: map[string]string{"game": "must match the tournament game"}}
		}
	}

	v := validator{}
	v.check(rec.UserID != uuid.Nil, "user_id", "is required")
	v.check(rec.Game != "", "game", "is required")
	v.check(rec.Result.Valid(), "result", "must be win, loss or draw")
	v.check(rec.Kills >= 0, "kills", "must not be negative")
	v.check(rec.Deaths >= 0, "deaths", "must not be negative")
	v.check(rec.Assists >= 0, "assists", "must not be negative")
	v.check(!input.TournamentWon || rec.TournamentID != nil, "tournament_won", "requires tournament_id")
	if err := v.err(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.statsRepo.ApplyMatch(ctx, exec, rec, input.TournamentWon)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrStatsUserInvalid):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrMatchTournamentRef):
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to record match: %w", err)
	}

	s.logger.InfoContext(ctx, "match recorded",
		slog.String("match_id", rec.ID.String()),
		slog.String("user_id", rec.UserID.String()),
		slog.String("game", rec.Game),
		slog.String("result", string(rec.Result)))

	room := live.LeaderboardRoom(rec.Game)
	s.hub.BroadcastToRoom(room, live.Message{
		Type:    live.TypeLeaderboardUpdated,
		RoomID:  room,
		Payload: map[string]interface{}{"game": rec.Game, "user_id": rec.UserID},
	})
	return rec, nil
}

// GetPlayerStats collects everything the performance page shows in one call.
func (s *statsService) GetPlayerStats(ctx context.Context, userID uuid.UUID) (*models.PerformanceSummary, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	summary := &models.PerformanceSummary{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		games, err := s.statsRepo.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list stats: %w", err)
		}
		summary.Games = games
		return nil
	})
	g.Go(func() error {
		matches, err := s.statsRepo.RecentMatches(gctx, userID, recentMatchesLimit)
		if err != nil {
			return fmt.Errorf("failed to list recent matches: %w", err)
		}
		summary.RecentMatches = matches
		return nil
	})
	g.Go(func() error {
		count, err := s.registrationRepo.CountByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to count registrations: %w", err)
		}
		summary.Registrations = count
		return nil
	})
	g.Go(func() error {
		profile, err := s.profileRepo.GetLatestByUserID(gctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrProfileNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}
		populateProfileAvatarURLFunc(profile, s.uploader)
		summary.Profile = profile
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if summary.Games == nil {
		summary.Games = []models.PlayerStats{}
	}
	if summary.RecentMatches == nil {
		summary.RecentMatches = []models.MatchRecord{}
	}
	summary.Totals = totalStats(userID, summary.Games)
	return summary, nil
}

func totalStats(userID uuid.UUID, games []models.PlayerStats) models.PlayerStats {
	total := models.PlayerStats{UserID: userID, Game: "all"}
	for i := range games {
		games[i].ComputeDerived()
		gs := games[i]
		total.MatchesPlayed += gs.MatchesPlayed
		total.Wins += gs.Wins
		total.Losses += gs.Losses
		total.Draws += gs.Draws
		total.Kills += gs.Kills
		total.Deaths += gs.Deaths
		total.Assists += gs.Assists
		total.Points += gs.Points
		total.TournamentsPlayed += gs.TournamentsPlayed
		total.TournamentsWon += gs.TournamentsWon
		if gs.UpdatedAt.After(total.UpdatedAt) {
			total.UpdatedAt = gs.UpdatedAt
		}
	}
	total.ComputeDerived()
	return total
}
