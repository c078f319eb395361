package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultDraw MatchResult = "draw"
)

func (r MatchResult) Valid() bool {
	return r == ResultWin || r == ResultLoss || r == ResultDraw
}

// PlayerStats aggregates a player's results in one game.
type PlayerStats struct {
	UserID            uuid.UUID `json:"user_id"`
	Game              string    `json:"game"`
	MatchesPlayed     int       `json:"matches_played"`
	Wins              int       `json:"wins"`
	Losses            int       `json:"losses"`
	Draws             int       `json:"draws"`
	Kills             int       `json:"kills"`
	Deaths            int       `json:"deaths"`
	Assists           int       `json:"assists"`
	Points            int       `json:"points"`
	TournamentsPlayed int       `json:"tournaments_played"`
	TournamentsWon    int       `json:"tournaments_won"`
	WinRate           float64   `json:"win_rate"`
	KDA               float64   `json:"kda"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ComputeDerived fills WinRate and KDA from the raw counters.
func (s *PlayerStats) ComputeDerived() {
	s.WinRate = 0
	if s.MatchesPlayed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.MatchesPlayed)
	}
	deaths := s.Deaths
	if deaths < 1 {
		deaths = 1
	}
	s.KDA = float64(s.Kills+s.Assists) / float64(deaths)
}

// MatchRecord is one reported match line for a single player.
type MatchRecord struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"user_id"`
	Game         string      `json:"game"`
	TournamentID *uuid.UUID  `json:"tournament_id,omitempty"`
	Result       MatchResult `json:"result"`
	Kills        int         `json:"kills"`
	Deaths       int         `json:"deaths"`
	Assists      int         `json:"assists"`
	Points       int         `json:"points"`
	RecordedBy   uuid.UUID   `json:"recorded_by"`
	PlayedAt     time.Time   `json:"played_at"`
	CreatedAt    time.Time   `json:"created_at"`
}

// PerformanceSummary totals a player's stats over every game.
type PerformanceSummary struct {
	UserID        uuid.UUID     `json:"user_id"`
	Profile       *Profile      `json:"profile,omitempty"`
	Games         []PlayerStats `json:"games"`
	Totals        PlayerStats   `json:"totals"`
	RecentMatches []MatchRecord `json:"recent_matches"`
	Registrations int           `json:"registrations"`
}
