package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/esports-arena/live"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validCreateInput() CreateTournamentInput {
	return CreateTournamentInput{
		Name:            "Spring Cup",
		Game:            " Valorant ",
		Format:          models.FormatSingleElimination,
		RegDeadline:     testNow.Add(24 * time.Hour),
		StartDate:       testNow.Add(48 * time.Hour),
		EndDate:         testNow.Add(72 * time.Hour),
		MaxParticipants: 16,
		PrizePool:       1000,
		PrizeDistribution: models.PrizeDistribution{
			{Place: 1, Amount: 700},
			{Place: 2, Amount: 300},
		},
	}
}

func TestCreateTournamentDefaults(t *testing.T) {
	organizer := Actor{UserID: uuid.New(), Role: models.RoleOrganizer}
	var saved *models.Tournament
	repo := &FakeTournamentRepository{
		CreateFunc: func(ctx context.Context, tr *models.Tournament) error {
			saved = tr
			tr.ID = uuid.New()
			return nil
		},
	}
	svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, &FakeUploader{}, nil, fixedClock(testNow), testLogger)

	tournament, err := svc.CreateTournament(context.Background(), organizer, validCreateInput())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "valorant", tournament.Game)
	assert.Equal(t, models.ModeSolo, tournament.Mode)
	assert.Equal(t, 1, tournament.TeamSize)
	assert.Equal(t, "USD", tournament.Currency)
	assert.Equal(t, models.StatusSoon, tournament.Status)
	assert.True(t, tournament.IsOnline)
	assert.Equal(t, organizer.UserID, tournament.OrganizerID)
	assert.True(t, strings.HasPrefix(tournament.Slug, "spring-cup-"), tournament.Slug)
}

func TestCreateTournamentRetriesSlugConflict(t *testing.T) {
	calls := 0
	repo := &FakeTournamentRepository{
		CreateFunc: func(ctx context.Context, tr *models.Tournament) error {
			calls++
			if calls == 1 {
				return repositories.ErrTournamentSlugConflict
			}
			return nil
		},
	}
	svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, nil, nil, nil, testLogger)

	_, err := svc.CreateTournament(context.Background(), Actor{UserID: uuid.New(), Role: models.RoleAdmin}, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCreateTournamentForbiddenForPlayers(t *testing.T) {
	svc := NewTournamentService(&FakeTx{}, &FakeTournamentRepository{}, &FakeProfileRepository{}, nil, nil, nil, testLogger)
	_, err := svc.CreateTournament(context.Background(), Actor{UserID: uuid.New(), Role: models.RolePlayer}, validCreateInput())
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestCreateTournamentValidation(t *testing.T) {
	organizer := Actor{UserID: uuid.New(), Role: models.RoleOrganizer}
	svc := NewTournamentService(&FakeTx{}, &FakeTournamentRepository{}, &FakeProfileRepository{}, nil, nil, nil, testLogger)

	tests := []struct {
		name   string
		mutate func(in *CreateTournamentInput)
		field  string
	}{
		{"short name", func(in *CreateTournamentInput) { in.Name = "ab" }, "name"},
		{"missing game", func(in *CreateTournamentInput) { in.Game = "  " }, "game"},
		{"team without size", func(in *CreateTournamentInput) { in.Mode = models.ModeTeam; in.TeamSize = 1 }, "team_size"},
		{"unknown format", func(in *CreateTournamentInput) { in.Format = "ladder" }, "format"},
		{"no slots", func(in *CreateTournamentInput) { in.MaxParticipants = 0 }, "max_participants"},
		{"bad currency", func(in *CreateTournamentInput) { in.Currency = "euro" }, "currency"},
		{"prizes exceed pool", func(in *CreateTournamentInput) { in.PrizePool = 500 }, "prize_distribution"},
		{"duplicate place", func(in *CreateTournamentInput) {
			in.PrizeDistribution = models.PrizeDistribution{{Place: 1, Amount: 1}, {Place: 1, Amount: 1}}
		}, "prize_distribution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput()
			tt.mutate(&in)
			_, err := svc.CreateTournament(context.Background(), organizer, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestCreateTournamentDateOrder(t *testing.T) {
	svc := NewTournamentService(&FakeTx{}, &FakeTournamentRepository{}, &FakeProfileRepository{}, nil, nil, nil, testLogger)
	organizer := Actor{UserID: uuid.New(), Role: models.RoleOrganizer}

	in := validCreateInput()
	in.RegDeadline = in.StartDate.Add(time.Hour)
	_, err := svc.CreateTournament(context.Background(), organizer, in)
	assert.ErrorIs(t, err, ErrTournamentInvalidRegDate)

	in = validCreateInput()
	in.EndDate = in.StartDate
	_, err = svc.CreateTournament(context.Background(), organizer, in)
	assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)

	in = validCreateInput()
	in.StartDate = time.Time{}
	_, err = svc.CreateTournament(context.Background(), organizer, in)
	assert.ErrorIs(t, err, ErrTournamentDatesRequired)
}

func TestGetTournamentByLegacyIDAndSlug(t *testing.T) {
	legacy := "5f8d0d55b54764421b7156c5"
	var byID uuid.UUID
	var bySlug string
	repo := &FakeTournamentRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
			byID = id
			return &models.Tournament{ID: id}, nil
		},
		GetBySlugFunc: func(ctx context.Context, s string) (*models.Tournament, error) {
			bySlug = s
			return &models.Tournament{ID: uuid.New(), Slug: s}, nil
		},
	}
	svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, nil, nil, nil, testLogger)

	_, err := svc.GetTournament(context.Background(), legacy)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, byID)

	_, err = svc.GetTournament(context.Background(), " Spring-Cup-abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "spring-cup-abc123", bySlug)
}

func TestGetTournamentNotFound(t *testing.T) {
	svc := NewTournamentService(&FakeTx{}, &FakeTournamentRepository{}, &FakeProfileRepository{}, nil, nil, nil, testLogger)
	_, err := svc.GetTournament(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestUpdateTournamentStatusTransitions(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		from, to models.TournamentStatus
		wantErr  error
	}{
		{models.StatusSoon, models.StatusRegistration, nil},
		{models.StatusRegistration, models.StatusActive, nil},
		{models.StatusActive, models.StatusCompleted, nil},
		{models.StatusSoon, models.StatusActive, ErrTournamentInvalidStatusTransition},
		{models.StatusCompleted, models.StatusActive, ErrTournamentInvalidStatusTransition},
		{models.StatusCanceled, models.StatusRegistration, ErrTournamentInvalidStatusTransition},
		{models.StatusSoon, "paused", ErrTournamentInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			hub := &FakeBroadcaster{}
			repo := &FakeTournamentRepository{
				GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
					return &models.Tournament{ID: id, OrganizerID: owner, Status: tt.from}, nil
				},
			}
			svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, nil, hub, fixedClock(testNow), testLogger)

			got, err := svc.UpdateTournamentStatus(context.Background(), Actor{UserID: owner, Role: models.RoleOrganizer}, uuid.New(), tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hub.Rooms)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
			require.Len(t, hub.Messages, 1)
			assert.Equal(t, live.TournamentRoom(got.ID), hub.Rooms[0])
			msg := hub.Messages[0].(live.Message)
			assert.Equal(t, live.TypeTournamentUpdated, msg.Type)
			assert.Equal(t, live.TournamentRoom(got.ID), msg.RoomID)
			assert.Equal(t, tt.to, msg.Payload.(*models.Tournament).Status)
		})
	}
}

func TestListTournamentsFilter(t *testing.T) {
	organizer := uuid.New()
	registration := models.StatusRegistration
	team := models.ModeTeam
	tests := []struct {
		name  string
		input ListTournamentsInput
		want  repositories.ListTournamentsFilter
	}{
		{"defaults", ListTournamentsInput{}, repositories.ListTournamentsFilter{Limit: 20}},
		{"all filters", ListTournamentsInput{
			Game: strPtr(" Dota 2 "), Status: &registration, Mode: &team, OrganizerID: &organizer,
			Search: "  cup ", Limit: 50, Offset: 100,
		}, repositories.ListTournamentsFilter{
			Game: strPtr("dota 2"), Status: &registration, Mode: &team, OrganizerID: &organizer,
			Search: "cup", Limit: 50, Offset: 100,
		}},
		{"limit capped", ListTournamentsInput{Limit: 101, Offset: -5}, repositories.ListTournamentsFilter{Limit: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got repositories.ListTournamentsFilter
			banner := "banners/t.png"
			repo := &FakeTournamentRepository{
				ListFunc: func(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
					got = filter
					return []models.Tournament{{Name: "Cup", BannerKey: &banner}}, nil
				},
			}
			svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, &FakeUploader{}, nil, nil, testLogger)

			list, err := svc.ListTournaments(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, list, 1)
			require.NotNil(t, list[0].BannerURL)
			assert.Equal(t, "https://cdn.test/banners/t.png", *list[0].BannerURL)
		})
	}
}

func TestUpdateTournamentStatusLocksRow(t *testing.T) {
	owner := uuid.New()
	tx := &FakeTx{}
	locked := false
	var written models.TournamentStatus
	repo := &FakeTournamentRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
			t.Fatal("status change must read the row under lock")
			return nil, nil
		},
		GetByIDForUpdateFunc: func(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
			locked = true
			return &models.Tournament{ID: id, OrganizerID: owner, Status: models.StatusRegistration}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, status models.TournamentStatus) error {
			require.True(t, locked)
			written = status
			return nil
		},
	}
	svc := NewTournamentService(tx, repo, &FakeProfileRepository{}, nil, nil, fixedClock(testNow), testLogger)

	got, err := svc.UpdateTournamentStatus(context.Background(), Actor{UserID: owner, Role: models.RoleOrganizer}, uuid.New(), models.StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)
	assert.Equal(t, models.StatusCanceled, written)
	assert.Equal(t, 1, tx.Calls)
}

func TestUpdateTournamentStatusNotFound(t *testing.T) {
	svc := NewTournamentService(&FakeTx{}, &FakeTournamentRepository{}, &FakeProfileRepository{}, nil, nil, nil, testLogger)
	_, err := svc.UpdateTournamentStatus(context.Background(), Actor{UserID: uuid.New(), Role: models.RoleAdmin}, uuid.New(), models.StatusActive)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestUpdateTournamentDetailsRequiresOwnership(t *testing.T) {
	repo := &FakeTournamentRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
			return &models.Tournament{ID: id, OrganizerID: uuid.New(), Status: models.StatusSoon}, nil
		},
	}
	svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, nil, nil, nil, testLogger)

	name := "Renamed Cup"
	_, err := svc.UpdateTournamentDetails(context.Background(), Actor{UserID: uuid.New(), Role: models.RoleOrganizer}, uuid.New(), UpdateTournamentInput{Name: &name})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestUpdateTournamentDetailsLocksRosterShape(t *testing.T) {
	owner := uuid.New()
	repo := &FakeTournamentRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
			return &models.Tournament{
				ID: id, OrganizerID: owner, Status: models.StatusRegistration,
				Name: "Spring Cup", Game: "valorant", Mode: models.ModeSolo, TeamSize: 1,
				Format: models.FormatSwiss, Currency: "USD", MaxParticipants: 16, RegisteredCount: 10,
				RegDeadline: testNow.Add(time.Hour), StartDate: testNow.Add(2 * time.Hour), EndDate: testNow.Add(3 * time.Hour),
			}, nil
		},
		UpdateFunc: func(ctx context.Context, tr *models.Tournament) error {
			t.Fatal("invalid update must not be saved")
			return nil
		},
	}
	svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, nil, nil, nil, testLogger)

	max := 8
	mode := models.ModeTeam
	size := 5
	_, err := svc.UpdateTournamentDetails(context.Background(), Actor{UserID: owner, Role: models.RoleOrganizer}, uuid.New(),
		UpdateTournamentInput{MaxParticipants: &max, Mode: &mode, TeamSize: &size})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "max_participants")
	assert.Contains(t, verr.Fields, "mode")
	assert.Contains(t, verr.Fields, "team_size")
}

func TestDeleteTournamentOnlyBeforeRegistration(t *testing.T) {
	owner := uuid.New()
	banner := "tournaments/banner.png"
	status := models.StatusRegistration
	deleted := false
	repo := &FakeTournamentRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
			return &models.Tournament{ID: id, OrganizerID: owner, Status: status, BannerKey: &banner}, nil
		},
		DeleteFunc: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	uploader := &FakeUploader{}
	svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, uploader, nil, nil, testLogger)
	actor := Actor{UserID: owner, Role: models.RoleOrganizer}

	err := svc.DeleteTournament(context.Background(), actor, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotDeletable)
	assert.False(t, deleted)

	status = models.StatusCanceled
	require.NoError(t, svc.DeleteTournament(context.Background(), actor, uuid.New()))
	assert.True(t, deleted)
	assert.Equal(t, []string{banner}, uploader.Deleted)
}

func TestUploadBannerDisabledStorage(t *testing.T) {
	owner := uuid.New()
	repo := &FakeTournamentRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
			return &models.Tournament{ID: id, OrganizerID: owner}, nil
		},
	}
	svc := NewTournamentService(&FakeTx{}, repo, &FakeProfileRepository{}, &FakeUploader{UploadErr: ErrUploadsDisabled}, nil, nil, testLogger)

	_, err := svc.UploadBanner(context.Background(), Actor{UserID: owner, Role: models.RoleOrganizer}, uuid.New(), strings.NewReader("x"), "image/png")
	assert.True(t, errors.Is(err, ErrUploadsDisabled))
}
