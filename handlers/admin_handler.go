package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/services"
)

type AdminUserHandler struct {
	adminUserService services.AdminUserService
}

func NewAdminUserHandler(s services.AdminUserService) *AdminUserHandler {
	return &AdminUserHandler{adminUserService: s}
}

// ListUsers godoc
// @Summary Список пользователей
// @Tags admin
// @Produce json
// @Param search query string false "Email или username"
// @Param role query string false "admin, organizer, player"
// @Param status query string false "active, banned"
// @Param page query int false "Страница (с 1)"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} models.UserListResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := getIntQuery(r, "page", 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := getIntQuery(r, "limit", 20)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	filter := models.UserFilter{
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	}
	if role := getStringQuery(r, "role"); role != nil {
		v := models.UserRole(*role)
		filter.Role = &v
	}
	if status := getStringQuery(r, "status"); status != nil {
		v := models.UserStatus(*status)
		filter.Status = &v
	}

	res, err := h.adminUserService.ListUsers(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateUserRoleRequest struct {
	Role models.UserRole `json:"role"`
}

// UpdateUserRole godoc
// @Summary Сменить роль пользователя
// @Tags admin
// @Accept json
// @Produce json
// @Param userID path string true "ID пользователя"
// @Param body body updateUserRoleRequest true "Роль"
// @Success 200 {object} models.User
// @Security BearerAuth
// @Router /admin/users/{userID}/role [put]
func (h *AdminUserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateUserRoleRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.adminUserService.UpdateUserRole(r.Context(), actor, userID, input.Role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateUserStatusRequest struct {
	Status models.UserStatus `json:"status"`
}

// UpdateUserStatus godoc
// @Summary Заблокировать или разблокировать пользователя
// @Tags admin
// @Accept json
// @Produce json
// @Param userID path string true "ID пользователя"
// @Param body body updateUserStatusRequest true "active или banned"
// @Success 200 {object} models.User
// @Security BearerAuth
// @Router /admin/users/{userID}/status [put]
func (h *AdminUserHandler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateUserStatusRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.adminUserService.UpdateUserStatus(r.Context(), actor, userID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteUser godoc
// @Summary Удалить пользователя
// @Tags admin
// @Param userID path string true "ID пользователя"
// @Success 204 "Удален"
// @Failure 409 {object} map[string]string "Пользователь организует турниры или события"
// @Security BearerAuth
// @Router /admin/users/{userID} [delete]
func (h *AdminUserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.adminUserService.DeleteUser(r.Context(), actor, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPendingRegistrations godoc
// @Summary Заявки на модерации
// @Tags admin
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Registration
// @Security BearerAuth
// @Router /admin/registrations/pending [get]
func (h *AdminUserHandler) ListPendingRegistrations(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registrations, err := h.adminUserService.ListPendingRegistrations(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
