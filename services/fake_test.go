package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/google/uuid"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// ------------------------
// Fake Transactor
// ------------------------

// FakeTx runs the function without a real transaction.
type FakeTx struct {
	Calls int
}

func (f *FakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.Calls++
	return fn(nil)
}

// ------------------------
// Fake User Repo
// ------------------------

type FakeUserRepository struct {
	CreateFunc        func(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	GetByLegacyIDFunc func(ctx context.Context, legacyID string) (*models.User, error)
	ListFunc          func(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateRoleFunc    func(ctx context.Context, id uuid.UUID, role models.UserRole) error
	UpdateStatusFunc  func(ctx context.Context, id uuid.UUID, status models.UserStatus) error
	DeleteFunc        func(ctx context.Context, id uuid.UUID) error
	CountFunc         func(ctx context.Context, status *models.UserStatus) (int, error)
}

func (f *FakeUserRepository) Create(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, exec, user)
	}
	user.ID = uuid.New()
	return nil
}

func (f *FakeUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrUserNotFound
}

func (f *FakeUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.GetByEmailFunc != nil {
		return f.GetByEmailFunc(ctx, email)
	}
	return nil, repositories.ErrUserNotFound
}

func (f *FakeUserRepository) GetByLegacyID(ctx context.Context, legacyID string) (*models.User, error) {
	if f.GetByLegacyIDFunc != nil {
		return f.GetByLegacyIDFunc(ctx, legacyID)
	}
	return nil, repositories.ErrUserNotFound
}

func (f *FakeUserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, filter)
	}
	return []models.User{}, 0, nil
}

func (f *FakeUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.UserRole) error {
	if f.UpdateRoleFunc != nil {
		return f.UpdateRoleFunc(ctx, id, role)
	}
	return nil
}

func (f *FakeUserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	if f.UpdateStatusFunc != nil {
		return f.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (f *FakeUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return nil
}

func (f *FakeUserRepository) Count(ctx context.Context, status *models.UserStatus) (int, error) {
	if f.CountFunc != nil {
		return f.CountFunc(ctx, status)
	}
	return 0, nil
}

// ------------------------
// Fake Profile Repo
// ------------------------

type FakeProfileRepository struct {
	CreateFunc            func(ctx context.Context, exec repositories.SQLExecutor, profile *models.Profile) error
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetLatestByUserIDFunc func(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetLatestByEmailFunc  func(ctx context.Context, email string) (*models.Profile, error)
	ListByUserIDsFunc     func(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.Profile, error)
	UpdateFunc            func(ctx context.Context, profile *models.Profile) error
	UpdateAvatarKeyFunc   func(ctx context.Context, profileID uuid.UUID, avatarKey *string) error
	RelinkUserFunc        func(ctx context.Context, profileID, userID uuid.UUID) error
	SearchFunc            func(ctx context.Context, query string, limit, offset int) ([]models.Profile, error)
}

func (f *FakeProfileRepository) Create(ctx context.Context, exec repositories.SQLExecutor, profile *models.Profile) error {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, exec, profile)
	}
	profile.ID = uuid.New()
	return nil
}

func (f *FakeProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *FakeProfileRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if f.GetLatestByUserIDFunc != nil {
		return f.GetLatestByUserIDFunc(ctx, userID)
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *FakeProfileRepository) GetLatestByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if f.GetLatestByEmailFunc != nil {
		return f.GetLatestByEmailFunc(ctx, email)
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *FakeProfileRepository) ListByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	if f.ListByUserIDsFunc != nil {
		return f.ListByUserIDsFunc(ctx, userIDs)
	}
	return map[uuid.UUID]*models.Profile{}, nil
}

func (f *FakeProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, profile)
	}
	return nil
}

func (f *FakeProfileRepository) UpdateAvatarKey(ctx context.Context, profileID uuid.UUID, avatarKey *string) error {
	if f.UpdateAvatarKeyFunc != nil {
		return f.UpdateAvatarKeyFunc(ctx, profileID, avatarKey)
	}
	return nil
}

func (f *FakeProfileRepository) RelinkUser(ctx context.Context, profileID, userID uuid.UUID) error {
	if f.RelinkUserFunc != nil {
		return f.RelinkUserFunc(ctx, profileID, userID)
	}
	return nil
}

func (f *FakeProfileRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.Profile, error) {
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, query, limit, offset)
	}
	return []models.Profile{}, nil
}

// ------------------------
// Fake Tournament Repo
// ------------------------

type FakeTournamentRepository struct {
	CreateFunc           func(ctx context.Context, tournament *models.Tournament) error
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetBySlugFunc        func(ctx context.Context, slug string) (*models.Tournament, error)
	GetByIDForUpdateFunc func(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	ListFunc             func(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateFunc           func(ctx context.Context, tournament *models.Tournament) error
	UpdateStatusFunc     func(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, status models.TournamentStatus) error
	UpdateBannerKeyFunc  func(ctx context.Context, tournamentID uuid.UUID, bannerKey *string) error
	DeleteFunc           func(ctx context.Context, id uuid.UUID) error
	CountFunc            func(ctx context.Context, status *models.TournamentStatus) (int, error)
}

func (f *FakeTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, tournament)
	}
	tournament.ID = uuid.New()
	return nil
}

func (f *FakeTournamentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrTournamentNotFound
}

func (f *FakeTournamentRepository) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	if f.GetBySlugFunc != nil {
		return f.GetBySlugFunc(ctx, slug)
	}
	return nil, repositories.ErrTournamentNotFound
}

// GetByIDForUpdate falls back to GetByIDFunc so tests only need to stub one lookup.
func (f *FakeTournamentRepository) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	if f.GetByIDForUpdateFunc != nil {
		return f.GetByIDForUpdateFunc(ctx, exec, id)
	}
	return f.GetByID(ctx, id)
}

func (f *FakeTournamentRepository) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, filter)
	}
	return []models.Tournament{}, nil
}

func (f *FakeTournamentRepository) Update(ctx context.Context, tournament *models.Tournament) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, tournament)
	}
	return nil
}

func (f *FakeTournamentRepository) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, status models.TournamentStatus) error {
	if f.UpdateStatusFunc != nil {
		return f.UpdateStatusFunc(ctx, exec, id, status)
	}
	return nil
}

func (f *FakeTournamentRepository) UpdateBannerKey(ctx context.Context, tournamentID uuid.UUID, bannerKey *string) error {
	if f.UpdateBannerKeyFunc != nil {
		return f.UpdateBannerKeyFunc(ctx, tournamentID, bannerKey)
	}
	return nil
}

func (f *FakeTournamentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return nil
}

func (f *FakeTournamentRepository) Count(ctx context.Context, status *models.TournamentStatus) (int, error) {
	if f.CountFunc != nil {
		return f.CountFunc(ctx, status)
	}
	return 0, nil
}

// ------------------------
// Fake Registration Repo
// ------------------------

type FakeRegistrationRepository struct {
	CreateFunc                 func(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error
	GetByIDFunc                func(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Registration, error)
	GetByTournamentAndUserFunc func(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID uuid.UUID) (*models.Registration, error)
	ReactivateFunc             func(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error
	UpdateStatusFunc           func(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, status models.RegistrationStatus, note *string) error
	UpdatePaymentFunc          func(ctx context.Context, id uuid.UUID, status models.PaymentStatus, reference *string) error
	ListByTournamentFunc       func(ctx context.Context, tournamentID uuid.UUID, statuses []models.RegistrationStatus) ([]*models.Registration, error)
	ListByUserFunc             func(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error)
	ListByStatusFunc           func(ctx context.Context, status models.RegistrationStatus, limit, offset int) ([]*models.Registration, error)
	CountActiveFunc            func(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID) (int, error)
	CountApprovedFunc          func(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID) (int, error)
	CountByUserFunc            func(ctx context.Context, userID uuid.UUID) (int, error)
	CountFunc                  func(ctx context.Context, status *models.RegistrationStatus) (int, error)
}

func (f *FakeRegistrationRepository) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, exec, reg)
	}
	reg.ID = uuid.New()
	return nil
}

func (f *FakeRegistrationRepository) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Registration, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, exec, id)
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (f *FakeRegistrationRepository) GetByTournamentAndUser(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID uuid.UUID) (*models.Registration, error) {
	if f.GetByTournamentAndUserFunc != nil {
		return f.GetByTournamentAndUserFunc(ctx, exec, tournamentID, userID)
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (f *FakeRegistrationRepository) Reactivate(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	if f.ReactivateFunc != nil {
		return f.ReactivateFunc(ctx, exec, reg)
	}
	return nil
}

func (f *FakeRegistrationRepository) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, status models.RegistrationStatus, note *string) error {
	if f.UpdateStatusFunc != nil {
		return f.UpdateStatusFunc(ctx, exec, id, status, note)
	}
	return nil
}

func (f *FakeRegistrationRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, reference *string) error {
	if f.UpdatePaymentFunc != nil {
		return f.UpdatePaymentFunc(ctx, id, status, reference)
	}
	return nil
}

func (f *FakeRegistrationRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID, statuses []models.RegistrationStatus) ([]*models.Registration, error) {
	if f.ListByTournamentFunc != nil {
		return f.ListByTournamentFunc(ctx, tournamentID, statuses)
	}
	return []*models.Registration{}, nil
}

func (f *FakeRegistrationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error) {
	if f.ListByUserFunc != nil {
		return f.ListByUserFunc(ctx, userID)
	}
	return []*models.Registration{}, nil
}

func (f *FakeRegistrationRepository) ListByStatus(ctx context.Context, status models.RegistrationStatus, limit, offset int) ([]*models.Registration, error) {
	if f.ListByStatusFunc != nil {
		return f.ListByStatusFunc(ctx, status, limit, offset)
	}
	return []*models.Registration{}, nil
}

func (f *FakeRegistrationRepository) CountActive(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID) (int, error) {
	if f.CountActiveFunc != nil {
		return f.CountActiveFunc(ctx, exec, tournamentID)
	}
	return 0, nil
}

func (f *FakeRegistrationRepository) CountApproved(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID) (int, error) {
	if f.CountApprovedFunc != nil {
		return f.CountApprovedFunc(ctx, exec, tournamentID)
	}
	return 0, nil
}

func (f *FakeRegistrationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	if f.CountByUserFunc != nil {
		return f.CountByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (f *FakeRegistrationRepository) Count(ctx context.Context, status *models.RegistrationStatus) (int, error) {
	if f.CountFunc != nil {
		return f.CountFunc(ctx, status)
	}
	return 0, nil
}

// ------------------------
// Fake Stats Repo
// ------------------------

type FakeStatsRepository struct {
	ApplyMatchFunc    func(ctx context.Context, exec repositories.SQLExecutor, rec *models.MatchRecord, tournamentWon bool) error
	GetFunc           func(ctx context.Context, userID uuid.UUID, game string) (*models.PlayerStats, error)
	ListByUserFunc    func(ctx context.Context, userID uuid.UUID) ([]models.PlayerStats, error)
	RecentMatchesFunc func(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchRecord, error)
	LeaderboardFunc   func(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) ([]models.LeaderboardEntry, error)
	CountPlayersFunc  func(ctx context.Context, game string) (int, error)
	CountAheadFunc    func(ctx context.Context, game string, sort models.LeaderboardSort, metric float64) (int, error)
}

func (f *FakeStatsRepository) ApplyMatch(ctx context.Context, exec repositories.SQLExecutor, rec *models.MatchRecord, tournamentWon bool) error {
	if f.ApplyMatchFunc != nil {
		return f.ApplyMatchFunc(ctx, exec, rec, tournamentWon)
	}
	rec.ID = uuid.New()
	return nil
}

func (f *FakeStatsRepository) Get(ctx context.Context, userID uuid.UUID, game string) (*models.PlayerStats, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, userID, game)
	}
	return nil, repositories.ErrStatsNotFound
}

func (f *FakeStatsRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PlayerStats, error) {
	if f.ListByUserFunc != nil {
		return f.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (f *FakeStatsRepository) RecentMatches(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchRecord, error) {
	if f.RecentMatchesFunc != nil {
		return f.RecentMatchesFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (f *FakeStatsRepository) Leaderboard(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) ([]models.LeaderboardEntry, error) {
	if f.LeaderboardFunc != nil {
		return f.LeaderboardFunc(ctx, game, sort, limit, offset)
	}
	return nil, nil
}

func (f *FakeStatsRepository) CountPlayers(ctx context.Context, game string) (int, error) {
	if f.CountPlayersFunc != nil {
		return f.CountPlayersFunc(ctx, game)
	}
	return 0, nil
}

func (f *FakeStatsRepository) CountAhead(ctx context.Context, game string, sort models.LeaderboardSort, metric float64) (int, error) {
	if f.CountAheadFunc != nil {
		return f.CountAheadFunc(ctx, game, sort, metric)
	}
	return 0, nil
}

// ------------------------
// Fake Event Repo
// ------------------------

type FakeEventRepository struct {
	CreateFunc           func(ctx context.Context, event *models.Event) error
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetByIDForUpdateFunc func(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Event, error)
	ListFunc             func(ctx context.Context, filter repositories.ListEventsFilter) ([]models.Event, error)
	UpdateFunc           func(ctx context.Context, event *models.Event) error
	DeleteFunc           func(ctx context.Context, id uuid.UUID) error
	CountUpcomingFunc    func(ctx context.Context, now time.Time) (int, error)
	AddAttendeeFunc      func(ctx context.Context, exec repositories.SQLExecutor, eventID, userID uuid.UUID) error
	RemoveAttendeeFunc   func(ctx context.Context, eventID, userID uuid.UUID) error
	ListAttendeesFunc    func(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error)
}

func (f *FakeEventRepository) Create(ctx context.Context, event *models.Event) error {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, event)
	}
	event.ID = uuid.New()
	return nil
}

func (f *FakeEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrEventNotFound
}

func (f *FakeEventRepository) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Event, error) {
	if f.GetByIDForUpdateFunc != nil {
		return f.GetByIDForUpdateFunc(ctx, exec, id)
	}
	return f.GetByID(ctx, id)
}

func (f *FakeEventRepository) List(ctx context.Context, filter repositories.ListEventsFilter) ([]models.Event, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, filter)
	}
	return []models.Event{}, nil
}

func (f *FakeEventRepository) Update(ctx context.Context, event *models.Event) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, event)
	}
	return nil
}

func (f *FakeEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return nil
}

func (f *FakeEventRepository) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	if f.CountUpcomingFunc != nil {
		return f.CountUpcomingFunc(ctx, now)
	}
	return 0, nil
}

func (f *FakeEventRepository) AddAttendee(ctx context.Context, exec repositories.SQLExecutor, eventID, userID uuid.UUID) error {
	if f.AddAttendeeFunc != nil {
		return f.AddAttendeeFunc(ctx, exec, eventID, userID)
	}
	return nil
}

func (f *FakeEventRepository) RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	if f.RemoveAttendeeFunc != nil {
		return f.RemoveAttendeeFunc(ctx, eventID, userID)
	}
	return nil
}

func (f *FakeEventRepository) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	if f.ListAttendeesFunc != nil {
		return f.ListAttendeesFunc(ctx, eventID)
	}
	return []models.EventAttendee{}, nil
}

// ------------------------
// Fake uploader, mailer and broadcaster
// ------------------------

type FakeUploader struct {
	Uploaded  []string
	Deleted   []string
	UploadErr error
}

func (f *FakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}
	f.Uploaded = append(f.Uploaded, key)
	return &storage.UploadResult{Key: key}, nil
}

func (f *FakeUploader) Delete(ctx context.Context, key string) error {
	f.Deleted = append(f.Deleted, key)
	return nil
}

func (f *FakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type FakeMailer struct {
	Welcome []string
	Status  []RegistrationStatusEmail
	Err     error
}

func (f *FakeMailer) SendWelcomeEmail(ctx context.Context, to, username string) error {
	f.Welcome = append(f.Welcome, to)
	return f.Err
}

func (f *FakeMailer) SendRegistrationStatusEmail(ctx context.Context, to string, data RegistrationStatusEmail) error {
	f.Status = append(f.Status, data)
	return f.Err
}

type FakeBroadcaster struct {
	mu       sync.Mutex
	Rooms    []string
	Messages []interface{}
}

func (f *FakeBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rooms = append(f.Rooms, roomID)
	f.Messages = append(f.Messages, message)
}
