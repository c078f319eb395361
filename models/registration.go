package models

import (
	"time"

	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationApproved  RegistrationStatus = "approved"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationWithdrawn RegistrationStatus = "withdrawn"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected, RegistrationWithdrawn:
		return true
	}
	return false
}

// Active registrations hold a slot in the tournament.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationPending || s == RegistrationApproved
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentWaived   PaymentStatus = "waived"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded, PaymentWaived:
		return true
	}
	return false
}

// Settled payments allow approval.
func (s PaymentStatus) Settled() bool {
	return s == PaymentPaid || s == PaymentWaived
}

type Registration struct {
	ID               uuid.UUID          `json:"id"`
	TournamentID     uuid.UUID          `json:"tournament_id"`
	UserID           uuid.UUID          `json:"user_id"`
	InGameName       string             `json:"in_game_name"`
	TeamName         *string            `json:"team_name,omitempty"`
	TeamMembers      []string           `json:"team_members"`
	ContactEmail     *string            `json:"contact_email,omitempty"`
	PaymentStatus    PaymentStatus      `json:"payment_status"`
	PaymentReference *string            `json:"payment_reference,omitempty"`
	Status           RegistrationStatus `json:"status"`
	Note             *string            `json:"note,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	Tournament *Tournament `json:"tournament,omitempty"`
	Profile    *Profile    `json:"profile,omitempty"`
}
