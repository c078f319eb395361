package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/Dosada05/esports-arena/storage"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrRegistrationNotOpen    = errors.New("tournament registration is not open")
	ErrTournamentFull         = errors.New("tournament registration is full")
	ErrTournamentStarted      = errors.New("tournament has already started")
	ErrTournamentNotEditable  = errors.New("tournament can no longer be edited")
	ErrTournamentNotDeletable = errors.New("only upcoming or canceled tournaments can be deleted")
	ErrPaymentRequired        = errors.New("registration payment is not settled")
	ErrEventFull              = errors.New("event is full")
	ErrEventStarted           = errors.New("event has already started")
	ErrUnsupportedFileType    = errors.New("unsupported file type")

	// Ошибки конфликтов
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUsernameConflict     = errors.New("username is already in use")
	ErrRegistrationConflict = errors.New("user is already registered for this tournament")
	ErrAlreadyAttending     = errors.New("user already attends this event")
	ErrUserInUse            = errors.New("user organizes tournaments or events and cannot be deleted")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrUserBanned           = errors.New("user is banned")
	ErrCannotModifySelf     = errors.New("administrators cannot change or delete their own account here")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound         = errors.New("user not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrStatsNotFound        = errors.New("player has no stats for this game")
	ErrEventNotFound        = errors.New("event not found")
	ErrNotAttending         = errors.New("user does not attend this event")

	// Ошибки турниров
	ErrTournamentDatesRequired           = errors.New("tournament registration deadline, start and end dates are required")
	ErrTournamentInvalidRegDate          = errors.New("tournament registration deadline must not be after start date")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")

	ErrUploadsDisabled = storage.ErrUploadsDisabled
)

// ValidationError carries per-field messages. It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// validator collects field errors.
type validator map[string]string

func (v validator) check(ok bool, field, message string) {
	if !ok {
		if _, exists := v[field]; !exists {
			v[field] = message
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(v)}
}
