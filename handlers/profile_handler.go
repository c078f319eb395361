package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-arena/middleware"
	"github.com/Dosada05/esports-arena/services"
)

type ProfileHandler struct {
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetProfile godoc
// @Summary Профиль по ID
// @Tags profiles
// @Produce json
// @Param profileID path string true "UUID или legacy ID профиля"
// @Success 200 {object} models.Profile
// @Failure 404 {object} map[string]string "Профиль не найден"
// @Router /profiles/{profileID} [get]
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := getIDFromURL(r, "profileID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), profileID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetUserProfile godoc
// @Summary Профиль пользователя
// @Tags profiles
// @Description Ищет профиль по ID пользователя, затем по legacy ID и email, затем берет самый свежий.
// @Produce json
// @Param userID path string true "UUID или legacy ID пользователя"
// @Success 200 {object} models.Profile
// @Failure 404 {object} map[string]string "Профиль не найден"
// @Router /users/{userID}/profile [get]
func (h *ProfileHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.profileService.GetProfileForUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMyProfile godoc
// @Summary Мой профиль
// @Tags profiles
// @Produce json
// @Success 200 {object} models.Profile
// @Security BearerAuth
// @Router /profiles/me [get]
func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	profile, err := h.profileService.GetProfileForUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMyProfile godoc
// @Summary Обновить мой профиль
// @Tags profiles
// @Description Частичное обновление; профиль создается, если его еще нет. Ключи принимаются в camelCase и snake_case.
// @Accept json
// @Produce json
// @Param body body services.UpdateProfileInput true "Поля профиля"
// @Success 200 {object} models.Profile
// @Failure 409 {object} map[string]string "Username занят"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /profiles/me [patch]
func (h *ProfileHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.profileService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadMyAvatar godoc
// @Summary Загрузить аватар
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Изображение (jpeg, png, gif, webp)"
// @Success 200 {object} models.Profile
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /profiles/me/avatar [post]
func (h *ProfileHandler) UploadMyAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	file, contentType, err := readUploadedFile(w, r, "avatar")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	profile, err := h.profileService.UploadAvatar(r.Context(), userID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SearchProfiles godoc
// @Summary Поиск профилей
// @Tags profiles
// @Produce json
// @Param q query string true "Username или display name"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Profile
// @Router /profiles [get]
func (h *ProfileHandler) SearchProfiles(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	query := r.URL.Query().Get("q")
	profiles, err := h.profileService.SearchProfiles(r.Context(), query, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profiles": profiles}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
