package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/services"
	"github.com/go-chi/chi/v5"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

// CreateTournament godoc
// @Summary Создать турнир
// @Tags tournaments
// @Description Доступно организаторам и администраторам.
// @Accept json
// @Produce json
// @Param body body services.CreateTournamentInput true "Данные турнира"
// @Success 201 {object} models.Tournament
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /tournaments [post]
func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTournament godoc
// @Summary Получить турнир
// @Tags tournaments
// @Produce json
// @Param tournamentRef path string true "UUID, legacy ID или slug"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentRef} [get]
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "tournamentRef")
	if ref == "" {
		badRequestResponse(w, r, errors.New("missing tournament reference in URL path"))
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), ref)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTournaments godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param game query string false "Игра"
// @Param status query string false "soon, registration, active, completed, canceled"
// @Param mode query string false "solo или team"
// @Param organizer_id query string false "ID организатора"
// @Param q query string false "Поиск по названию"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Tournament
// @Router /tournaments [get]
func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	organizerID, err := getUUIDQuery(r, "organizer_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.ListTournamentsInput{
		Game:        getStringQuery(r, "game"),
		OrganizerID: organizerID,
		Search:      r.URL.Query().Get("q"),
		Limit:       limit,
		Offset:      offset,
	}
	if status := getStringQuery(r, "status"); status != nil {
		s := models.TournamentStatus(*status)
		input.Status = &s
	}
	if mode := getStringQuery(r, "mode"); mode != nil {
		m := models.TournamentMode(*mode)
		input.Mode = &m
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateTournamentDetails godoc
// @Summary Обновить турнир
// @Tags tournaments
// @Description Частичное обновление. Только организатор турнира или администратор.
// @Accept json
// @Produce json
// @Param tournamentID path string true "ID турнира"
// @Param body body services.UpdateTournamentInput true "Изменяемые поля"
// @Success 200 {object} models.Tournament
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [patch]
func (h *TournamentHandler) UpdateTournamentDetails(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentRef")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournamentDetails(r.Context(), actor, tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateTournamentStatusRequest struct {
	Status models.TournamentStatus `json:"status"`
}

// UpdateTournamentStatus godoc
// @Summary Сменить статус турнира
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path string true "ID турнира"
// @Param body body updateTournamentStatusRequest true "Новый статус"
// @Success 200 {object} models.Tournament
// @Failure 400 {object} map[string]string "Недопустимый переход"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/status [put]
func (h *TournamentHandler) UpdateTournamentStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentRef")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateTournamentStatusRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournamentStatus(r.Context(), actor, tournamentID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteTournament godoc
// @Summary Удалить турнир
// @Tags tournaments
// @Param tournamentID path string true "ID турнира"
// @Success 204 "Удален"
// @Failure 400 {object} map[string]string "Турнир нельзя удалить"
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [delete]
func (h *TournamentHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentRef")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), actor, tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadBanner godoc
// @Summary Загрузить баннер турнира
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path string true "ID турнира"
// @Param banner formData file true "Изображение"
// @Success 200 {object} models.Tournament
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/banner [post]
func (h *TournamentHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentRef")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, contentType, err := readUploadedFile(w, r, "banner")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	tournament, err := h.tournamentService.UploadBanner(r.Context(), actor, tournamentID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
