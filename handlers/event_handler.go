package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-arena/middleware"
	"github.com/Dosada05/esports-arena/services"
)

type EventHandler struct {
	eventService services.EventService
}

func NewEventHandler(eventService services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// CreateEvent godoc
// @Summary Создать событие
// @Tags events
// @Accept json
// @Produce json
// @Param body body services.EventInput true "Данные события (capacity 0 = без ограничений)"
// @Success 201 {object} models.Event
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /events [post]
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.EventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetEvent godoc
// @Summary Получить событие
// @Tags events
// @Produce json
// @Param eventID path string true "ID события"
// @Success 200 {object} models.Event
// @Failure 404 {object} map[string]string "Событие не найдено"
// @Router /events/{eventID} [get]
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.GetEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListEvents godoc
// @Summary Список событий
// @Tags events
// @Produce json
// @Param game query string false "Игра"
// @Param upcoming query bool false "Только предстоящие"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Event
// @Router /events [get]
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	upcoming, err := getBoolQuery(r, "upcoming")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	events, err := h.eventService.ListEvents(r.Context(), services.ListEventsInput{
		Game:     getStringQuery(r, "game"),
		Upcoming: upcoming,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateEvent godoc
// @Summary Обновить событие
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path string true "ID события"
// @Param body body services.EventInput true "Данные события"
// @Success 200 {object} models.Event
// @Failure 403 {object} map[string]string "Нет прав"
// @Security BearerAuth
// @Router /events/{eventID} [put]
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.EventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.UpdateEvent(r.Context(), actor, eventID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteEvent godoc
// @Summary Удалить событие
// @Tags events
// @Param eventID path string true "ID события"
// @Success 204 "Удалено"
// @Security BearerAuth
// @Router /events/{eventID} [delete]
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.eventService.DeleteEvent(r.Context(), actor, eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Attend godoc
// @Summary Записаться на событие
// @Tags events
// @Produce json
// @Param eventID path string true "ID события"
// @Success 200 {object} models.Event
// @Failure 409 {object} map[string]string "Уже записан или мест нет"
// @Security BearerAuth
// @Router /events/{eventID}/attendees [post]
func (h *EventHandler) Attend(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.Attend(r.Context(), userID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelAttendance godoc
// @Summary Отменить участие в событии
// @Tags events
// @Param eventID path string true "ID события"
// @Success 204 "Отменено"
// @Failure 404 {object} map[string]string "Пользователь не записан"
// @Security BearerAuth
// @Router /events/{eventID}/attendees/me [delete]
func (h *EventHandler) CancelAttendance(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.eventService.CancelAttendance(r.Context(), userID, eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAttendees godoc
// @Summary Участники события
// @Tags events
// @Produce json
// @Param eventID path string true "ID события"
// @Success 200 {array} models.EventAttendee
// @Router /events/{eventID}/attendees [get]
func (h *EventHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	attendees, err := h.eventService.ListAttendees(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"attendees": attendees}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
