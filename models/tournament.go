package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TournamentStatus представляет статусы турнира, соответствующие CHECK в БД.
type TournamentStatus string

const (
	StatusSoon         TournamentStatus = "soon"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusSoon, StatusRegistration, StatusActive, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

type TournamentMode string

const (
	ModeSolo TournamentMode = "solo"
	ModeTeam TournamentMode = "team"
)

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSwiss             TournamentFormat = "swiss"
	FormatBattleRoyale      TournamentFormat = "battle_royale"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin, FormatSwiss, FormatBattleRoyale:
		return true
	}
	return false
}

// PrizeTier is the payout for one finishing place, in minor currency units.
type PrizeTier struct {
	Place  int   `json:"place"`
	Amount int64 `json:"amount"`
}

type PrizeDistribution []PrizeTier

func (p PrizeDistribution) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

func (p *PrizeDistribution) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = PrizeDistribution{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("prize_distribution: unsupported source type")
	}
}

// Total sums every tier.
func (p PrizeDistribution) Total() int64 {
	var sum int64
	for _, tier := range p {
		sum += tier.Amount
	}
	return sum
}

// Tournament представляет турнир.
type Tournament struct {
	ID                uuid.UUID         `json:"id"`
	Slug              string            `json:"slug"`
	Name              string            `json:"name"`
	Description       *string           `json:"description,omitempty"`
	Game              string            `json:"game"`
	Mode              TournamentMode    `json:"mode"`
	TeamSize          int               `json:"team_size"`
	Format            TournamentFormat  `json:"format"`
	OrganizerID       uuid.UUID         `json:"organizer_id"`
	RegDeadline       time.Time         `json:"reg_deadline"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	Location          *string           `json:"location,omitempty"`
	IsOnline          bool              `json:"is_online"`
	MaxParticipants   int               `json:"max_participants"`
	EntryFee          int64             `json:"entry_fee"`
	PrizePool         int64             `json:"prize_pool"`
	Currency          string            `json:"currency"`
	PrizeDistribution PrizeDistribution `json:"prize_distribution"`
	Rules             *string           `json:"rules,omitempty"`
	Status            TournamentStatus  `json:"status"`
	RegisteredCount   int               `json:"registered_count"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	BannerKey *string `json:"-"`
	BannerURL *string `json:"banner_url,omitempty"`

	Organizer *Profile `json:"organizer,omitempty"`
}

// IsFree reports whether registering requires no payment.
func (t *Tournament) IsFree() bool {
	return t.EntryFee == 0
}

// RegistrationOpen reports whether new registrations are accepted at the given moment.
func (t *Tournament) RegistrationOpen(now time.Time) bool {
	return t.Status == StatusRegistration && !now.After(t.RegDeadline)
}
