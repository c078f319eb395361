package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-arena/middleware"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(registrationService services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// Register godoc
// @Summary Зарегистрироваться на турнир
// @Tags registrations
// @Description Для командных турниров нужны team_name и состав ровно из team_size игроков (капитан добавляется автоматически).
// @Accept json
// @Produce json
// @Param tournamentID path string true "ID турнира"
// @Param body body services.RegisterForTournamentInput true "Данные регистрации"
// @Success 201 {object} models.Registration
// @Failure 400 {object} map[string]string "Регистрация закрыта"
// @Failure 409 {object} map[string]string "Уже зарегистрирован или мест нет"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/registrations [post]
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentRef")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RegisterForTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.Register(r.Context(), userID, tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Withdraw godoc
// @Summary Отозвать регистрацию
// @Tags registrations
// @Produce json
// @Param tournamentID path string true "ID турнира"
// @Success 200 {object} models.Registration
// @Failure 400 {object} map[string]string "Турнир уже начался"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/registrations/me [delete]
func (h *RegistrationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentRef")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.Withdraw(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListForTournament godoc
// @Summary Регистрации турнира
// @Tags registrations
// @Description Организатор и администраторы видят все заявки, остальные только одобренные.
// @Produce json
// @Param tournamentID path string true "ID турнира"
// @Param status query string false "pending, approved, rejected, withdrawn"
// @Success 200 {array} models.Registration
// @Router /tournaments/{tournamentID}/registrations [get]
func (h *RegistrationHandler) ListForTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentRef")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.RegistrationStatus
	if raw := getStringQuery(r, "status"); raw != nil {
		s := models.RegistrationStatus(*raw)
		if !s.Valid() {
			failedValidationResponse(w, r, map[string]string{"status": "must be pending, approved, rejected or withdrawn"})
			return
		}
		status = &s
	}

	registrations, err := h.registrationService.ListForTournament(r.Context(), optionalActor(r), tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMine godoc
// @Summary Мои регистрации
// @Tags registrations
// @Produce json
// @Success 200 {array} models.Registration
// @Security BearerAuth
// @Router /users/me/registrations [get]
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	registrations, err := h.registrationService.ListForUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatus godoc
// @Summary Одобрить или отклонить заявку
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrationID path string true "ID регистрации"
// @Param body body services.UpdateRegistrationStatusInput true "Статус и комментарий"
// @Success 200 {object} models.Registration
// @Failure 400 {object} map[string]string "Оплата не подтверждена"
// @Failure 403 {object} map[string]string "Нет прав"
// @Security BearerAuth
// @Router /registrations/{registrationID}/status [put]
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateRegistrationStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.UpdateStatus(r.Context(), actor, registrationID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdatePayment godoc
// @Summary Обновить статус оплаты
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrationID path string true "ID регистрации"
// @Param body body services.UpdatePaymentInput true "Статус оплаты"
// @Success 200 {object} models.Registration
// @Security BearerAuth
// @Router /registrations/{registrationID}/payment [put]
func (h *RegistrationHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdatePaymentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.UpdatePayment(r.Context(), actor, registrationID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
