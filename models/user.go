package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RolePlayer:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusBanned
}

// User is the authentication identity. Gaming identity lives in Profile.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	LegacyID     *string    `json:"legacy_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Profile *Profile `json:"profile,omitempty"`
}

type UserFilter struct {
	Search string
	Role   *UserRole
	Status *UserStatus
	Page   int
	Limit  int
}

type UserListResponse struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}
