package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Game          *string    `json:"game,omitempty"`
	Location      *string    `json:"location,omitempty"`
	IsOnline      bool       `json:"is_online"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Capacity      int        `json:"capacity"`
	OrganizerID   uuid.UUID  `json:"organizer_id"`
	TournamentID  *uuid.UUID `json:"tournament_id,omitempty"`
	AttendeeCount int        `json:"attendee_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Unlimited events have no capacity limit.
func (e *Event) Unlimited() bool {
	return e.Capacity == 0
}

type EventAttendee struct {
	EventID   uuid.UUID `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Profile   *Profile  `json:"profile,omitempty"`
}
