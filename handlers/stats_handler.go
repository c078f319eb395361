package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/services"
	"github.com/go-chi/chi/v5"
)

type StatsHandler struct {
	statsService       services.StatsService
	leaderboardService services.LeaderboardService
}

func NewStatsHandler(statsService services.StatsService, leaderboardService services.LeaderboardService) *StatsHandler {
	return &StatsHandler{statsService: statsService, leaderboardService: leaderboardService}
}

// RecordMatch godoc
// @Summary Записать результат матча
// @Tags stats
// @Description Организаторы и администраторы. Обновляет статистику игрока и рассылает LEADERBOARD_UPDATED.
// @Accept json
// @Produce json
// @Param body body services.RecordMatchInput true "Результат матча"
// @Success 201 {object} models.MatchRecord
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /matches [post]
func (h *StatsHandler) RecordMatch(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.RecordMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.statsService.RecordMatch(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetPlayerStats godoc
// @Summary Статистика игрока
// @Tags stats
// @Description Статистика по всем играм, итоги, последние матчи и число регистраций.
// @Produce json
// @Param userID path string true "UUID или legacy ID пользователя"
// @Success 200 {object} models.PerformanceSummary
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Router /users/{userID}/stats [get]
func (h *StatsHandler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.statsService.GetPlayerStats(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetLeaderboard godoc
// @Summary Таблица лидеров
// @Tags leaderboards
// @Produce json
// @Param game path string true "Игра"
// @Param sort query string false "points (по умолчанию), wins, win_rate, kda, matches"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} models.Leaderboard
// @Failure 422 {object} map[string]interface{} "Недопустимая сортировка"
// @Router /leaderboards/{game} [get]
func (h *StatsHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	if game == "" {
		badRequestResponse(w, r, errors.New("missing game in URL path"))
		return
	}
	limit, offset, err := getPagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sort := models.LeaderboardSort(r.URL.Query().Get("sort"))
	board, err := h.leaderboardService.GetLeaderboard(r.Context(), game, sort, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetPlayerRank godoc
// @Summary Место игрока в таблице лидеров
// @Tags leaderboards
// @Produce json
// @Param game path string true "Игра"
// @Param userID path string true "UUID или legacy ID пользователя"
// @Param sort query string false "points (по умолчанию), wins, win_rate, kda, matches"
// @Success 200 {object} models.PlayerRank
// @Failure 404 {object} map[string]string "У игрока нет статистики по игре"
// @Router /leaderboards/{game}/players/{userID} [get]
func (h *StatsHandler) GetPlayerRank(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sort := models.LeaderboardSort(r.URL.Query().Get("sort"))
	rank, err := h.leaderboardService.GetPlayerRank(r.Context(), game, userID, sort)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rank": rank}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
