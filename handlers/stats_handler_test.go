package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/services"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsService struct {
	RecordMatchFunc    func(ctx context.Context, actor services.Actor, input services.RecordMatchInput) (*models.MatchRecord, error)
	GetPlayerStatsFunc func(ctx context.Context, userID uuid.UUID) (*models.PerformanceSummary, error)
}

func (f *fakeStatsService) RecordMatch(ctx context.Context, actor services.Actor, input services.RecordMatchInput) (*models.MatchRecord, error) {
	return f.RecordMatchFunc(ctx, actor, input)
}

func (f *fakeStatsService) GetPlayerStats(ctx context.Context, userID uuid.UUID) (*models.PerformanceSummary, error) {
	return f.GetPlayerStatsFunc(ctx, userID)
}

type fakeLeaderboardService struct {
	GetLeaderboardFunc func(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) (*models.Leaderboard, error)
	GetPlayerRankFunc  func(ctx context.Context, game string, userID uuid.UUID, sort models.LeaderboardSort) (*models.PlayerRank, error)
}

func (f *fakeLeaderboardService) GetLeaderboard(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) (*models.Leaderboard, error) {
	return f.GetLeaderboardFunc(ctx, game, sort, limit, offset)
}

func (f *fakeLeaderboardService) GetPlayerRank(ctx context.Context, game string, userID uuid.UUID, sort models.LeaderboardSort) (*models.PlayerRank, error) {
	return f.GetPlayerRankFunc(ctx, game, userID, sort)
}

func statsRouter(h *StatsHandler, userID *uuid.UUID, role models.UserRole) http.Handler {
	r := chi.NewRouter()
	if userID != nil {
		r.Use(withUser(*userID, role))
	}
	r.Post("/matches", h.RecordMatch)
	r.Get("/users/{userID}/stats", h.GetPlayerStats)
	r.Get("/leaderboards/{game}", h.GetLeaderboard)
	r.Get("/leaderboards/{game}/players/{userID}", h.GetPlayerRank)
	return r
}

func TestRecordMatchHandler(t *testing.T) {
	organizerID := uuid.New()
	playerID := uuid.New()
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"recorded", nil, http.StatusCreated},
		{"forbidden", services.ErrForbiddenOperation, http.StatusForbidden},
		{"invalid", &services.ValidationError{Fields: map[string]string{"result": "must be win, loss or draw"}}, http.StatusUnprocessableEntity},
		{"unknown player", services.ErrUserNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeStatsService{
				RecordMatchFunc: func(ctx context.Context, actor services.Actor, input services.RecordMatchInput) (*models.MatchRecord, error) {
					assert.Equal(t, services.Actor{UserID: organizerID, Role: models.RoleOrganizer}, actor)
					assert.Equal(t, playerID, input.UserID)
					assert.Equal(t, models.ResultWin, input.Result)
					assert.Equal(t, 12, input.Kills)
					assert.True(t, input.TournamentWon)
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.MatchRecord{ID: uuid.New(), UserID: input.UserID, Result: input.Result}, nil
				},
			}
			router := statsRouter(NewStatsHandler(svc, &fakeLeaderboardService{}), &organizerID, models.RoleOrganizer)

			body := `{"userId":"` + playerID.String() + `","game":"valorant","result":"win","kills":12,"tournamentWon":true}`
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(body)))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestGetPlayerStatsHandlerAcceptsLegacyID(t *testing.T) {
	legacy := "5f8d0d55b54764421b7156c3"
	want := utils.LegacyToUUID(legacy)
	svc := &fakeStatsService{
		GetPlayerStatsFunc: func(ctx context.Context, userID uuid.UUID) (*models.PerformanceSummary, error) {
			if userID != want {
				return nil, services.ErrUserNotFound
			}
			return &models.PerformanceSummary{UserID: userID, Registrations: 4}, nil
		},
	}
	router := statsRouter(NewStatsHandler(svc, &fakeLeaderboardService{}), nil, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+legacy+"/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Stats models.PerformanceSummary `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, want, body.Stats.UserID)
	assert.Equal(t, 4, body.Stats.Registrations)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString()+"/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLeaderboardHandler(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantSort   models.LeaderboardSort
		wantLimit  int
		wantOffset int
		wantStatus int
	}{
		{"defaults", "/leaderboards/valorant", "", 0, 0, http.StatusOK},
		{"sorted page", "/leaderboards/valorant?sort=kda&limit=25&page=3", models.SortKDA, 25, 50, http.StatusOK},
		{"bad limit", "/leaderboards/valorant?limit=x", "", 0, 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			lb := &fakeLeaderboardService{
				GetLeaderboardFunc: func(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) (*models.Leaderboard, error) {
					called = true
					assert.Equal(t, "valorant", game)
					assert.Equal(t, tt.wantSort, sort)
					assert.Equal(t, tt.wantLimit, limit)
					assert.Equal(t, tt.wantOffset, offset)
					return &models.Leaderboard{Game: game, Sort: models.SortPoints, TotalPlayers: 7}, nil
				},
			}
			router := statsRouter(NewStatsHandler(&fakeStatsService{}, lb), nil, "")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
		})
	}
}

func TestGetLeaderboardHandlerInvalidSort(t *testing.T) {
	lb := &fakeLeaderboardService{
		GetLeaderboardFunc: func(ctx context.Context, game string, sort models.LeaderboardSort, limit, offset int) (*models.Leaderboard, error) {
			return nil, &services.ValidationError{Fields: map[string]string{"sort": "unsupported sort field"}}
		},
	}
	router := statsRouter(NewStatsHandler(&fakeStatsService{}, lb), nil, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboards/valorant?sort=elo", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetPlayerRankHandler(t *testing.T) {
	ranked := uuid.New()
	lb := &fakeLeaderboardService{
		GetPlayerRankFunc: func(ctx context.Context, game string, userID uuid.UUID, sort models.LeaderboardSort) (*models.PlayerRank, error) {
			assert.Equal(t, "cs2", game)
			assert.Equal(t, models.SortWins, sort)
			if userID != ranked {
				return nil, services.ErrStatsNotFound
			}
			return &models.PlayerRank{Game: game, Sort: sort, Rank: 2, TotalPlayers: 9}, nil
		},
	}
	router := statsRouter(NewStatsHandler(&fakeStatsService{}, lb), nil, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboards/cs2/players/"+ranked.String()+"?sort=wins", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Rank models.PlayerRank `json:"rank"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Rank.Rank)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboards/cs2/players/"+uuid.NewString()+"?sort=wins", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
