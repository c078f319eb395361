package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/esports-arena/live"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Broadcaster pushes live updates to websocket rooms.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToRoom(string, interface{}) {}

func broadcasterOrNoop(b Broadcaster) Broadcaster {
	if b == nil {
		return noopBroadcaster{}
	}
	return b
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanManage reports whether the actor may manage a resource owned by ownerID.
func (a Actor) CanManage(ownerID uuid.UUID) bool {
	return a.IsAdmin() || (a.Role == models.RoleOrganizer && a.UserID == ownerID)
}

func (a Actor) IsOrganizer() bool {
	return a.Role == models.RoleOrganizer || a.Role == models.RoleAdmin
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// trimmedOrNil trims s and drops it when empty.
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeGame(game string) string {
	return strings.ToLower(strings.TrimSpace(game))
}

// normalizePage applies the default and maximum page size.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validateTournamentDates(reg, start, end time.Time) error {
	if reg.IsZero() || start.IsZero() || end.IsZero() {
		return ErrTournamentDatesRequired
	}
	if reg.After(start) {
		return fmt.Errorf("%w: registration deadline (%s) cannot be after start date (%s)", ErrTournamentInvalidRegDate, reg.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start date (%s) must be before end date (%s)", ErrTournamentInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusSoon:         {models.StatusRegistration, models.StatusCanceled},
		models.StatusRegistration: {models.StatusActive, models.StatusCanceled},
		models.StatusActive:       {models.StatusCompleted, models.StatusCanceled},
		models.StatusCompleted:    {},
		models.StatusCanceled:     {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

func populateTournamentBannerURLFunc(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.BannerKey != nil && *tournament.BannerKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*tournament.BannerKey); url != "" {
			tournament.BannerURL = &url
		}
	}
}

func populateProfileAvatarURLFunc(profile *models.Profile, uploader storage.FileUploader) {
	if profile != nil && profile.AvatarKey != nil && *profile.AvatarKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*profile.AvatarKey); url != "" {
			profile.AvatarURL = &url
		}
	}
}

func tournamentMessage(msgType string, tournamentID uuid.UUID, payload interface{}) live.Message {
	return live.Message{Type: msgType, Payload: payload, RoomID: live.TournamentRoom(tournamentID)}
}

func GetExtensionFromContentType(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedFileType, contentType)
	}
}
