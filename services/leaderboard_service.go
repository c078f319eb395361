package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/google/uuid"
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) (*models.Leaderboard, error)
	GetPlayerRank(ctx context.Context, game string, userID uuid.UUID, sort models.LeaderboardSort) (*models.PlayerRank, error)
}

type leaderboardService struct {
	statsRepo repositories.StatsRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewLeaderboardService(statsRepo repositories.StatsRepository, uploader storage.FileUploader, logger *slog.Logger) LeaderboardService {
	return &leaderboardService{statsRepo: statsRepo, uploader: uploader, logger: logger}
}

func resolveSort(sort models.LeaderboardSort) (models.LeaderboardSort, error) {
	if sort == "" {
		return models.SortPoints, nil
	}
	if !sort.Valid() {
		return "", &ValidationError{Fields: map[string]string{"sort": "must be one of points, wins, win_rate, kda, matches"}}
	}
	return sort, nil
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) (*models.Leaderboard, error) {
	game = normalizeGame(game)
	if game == "" {
		return nil, &ValidationError{Fields: map[string]string{"game": "is required"}}
	}
	sort, err := resolveSort(sort)
	if err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	total, err := s.statsRepo.CountPlayers(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}
	board := &models.Leaderboard{Game: game, Sort: sort, TotalPlayers: total, Entries: []models.LeaderboardEntry{}}
	if total == 0 || offset >= total {
		return board, nil
	}

	entries, err := s.statsRepo.Leaderboard(ctx, game, sort, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return board, nil
	}

	// A page that starts inside a tie must continue the rank of the previous page.
	firstRank := 1
	if offset > 0 {
		ahead, err := s.statsRepo.CountAhead(ctx, game, sort, entries[0].Stats.Metric(sort))
		if err != nil {
			return nil, fmt.Errorf("failed to rank leaderboard page: %w", err)
		}
		firstRank = ahead + 1
	}
	rankEntries(entries, sort, offset, firstRank)

	for i := range entries {
		if entries[i].AvatarKey != nil && s.uploader != nil {
			if url := s.uploader.GetPublicURL(*entries[i].AvatarKey); url != "" {
				entries[i].AvatarURL = &url
			}
		}
	}
	board.Entries = entries
	return board, nil
}

// rankEntries assigns standard competition ranks (1, 1, 3) to an ordered page.
func rankEntries(entries []models.LeaderboardEntry, sort models.LeaderboardSort, offset, firstRank int) {
	for i := range entries {
		if i == 0 {
			entries[i].Rank = firstRank
			continue
		}
		if entries[i].Stats.Metric(sort) == entries[i-1].Stats.Metric(sort) {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = offset + i + 1
		}
	}
}

func (s *leaderboardService) GetPlayerRank(ctx context.Context, game string, userID uuid.UUID, sort models.LeaderboardSort) (*models.PlayerRank, error) {
	game = normalizeGame(game)
	if game == "" {
		return nil, &ValidationError{Fields: map[string]string{"game": "is required"}}
	}
	sort, err := resolveSort(sort)
	if err != nil {
		return nil, err
	}

	stats, err := s.statsRepo.Get(ctx, userID, game)
	if err != nil {
		if errors.Is(err, repositories.ErrStatsNotFound) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	stats.ComputeDerived()

	ahead, err := s.statsRepo.CountAhead(ctx, game, sort, stats.Metric(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to rank player: %w", err)
	}
	total, err := s.statsRepo.CountPlayers(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}

	return &models.PlayerRank{
		Game:         game,
		Sort:         sort,
		Rank:         ahead + 1,
		TotalPlayers: total,
		Stats:        *stats,
	}, nil
}
