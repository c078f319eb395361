package models

import "github.com/google/uuid"

type LeaderboardSort string

const (
	SortPoints  LeaderboardSort = "points"
	SortWins    LeaderboardSort = "wins"
	SortWinRate LeaderboardSort = "win_rate"
	SortKDA     LeaderboardSort = "kda"
	SortMatches LeaderboardSort = "matches"
)

func (s LeaderboardSort) Valid() bool {
	switch s {
	case SortPoints, SortWins, SortWinRate, SortKDA, SortMatches:
		return true
	}
	return false
}

type LeaderboardEntry struct {
	Rank        int         `json:"rank"`
	UserID      uuid.UUID   `json:"user_id"`
	Username    string      `json:"username,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	AvatarURL   *string     `json:"avatar_url,omitempty"`
	Stats       PlayerStats `json:"stats"`

	AvatarKey *string `json:"-"`
}

type Leaderboard struct {
	Game         string             `json:"game"`
	Sort         LeaderboardSort    `json:"sort"`
	TotalPlayers int                `json:"total_players"`
	Entries      []LeaderboardEntry `json:"entries"`
}

type PlayerRank struct {
	Game         string          `json:"game"`
	Sort         LeaderboardSort `json:"sort"`
	Rank         int             `json:"rank"`
	TotalPlayers int             `json:"total_players"`
	Stats        PlayerStats     `json:"stats"`
}

// Metric returns the value the leaderboard sorts by.
func (s PlayerStats) Metric(sort LeaderboardSort) float64 {
	switch sort {
	case SortWins:
		return float64(s.Wins)
	case SortMatches:
		return float64(s.MatchesPlayed)
	case SortWinRate:
		return s.WinRate
	case SortKDA:
		return s.KDA
	default:
		return float64(s.Points)
	}
}
