package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/esports-arena/middleware"
	"github.com/Dosada05/esports-arena/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register godoc
// @Summary Регистрация пользователя
// @Tags auth
// @Description Создает пользователя и игровой профиль, возвращает токен доступа.
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Email, пароль, username"
// @Success 201 {object} services.AuthResult
// @Failure 400 {object} map[string]string "Некорректный запрос"
// @Failure 409 {object} map[string]string "Email или username уже заняты"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" || input.Username == "" {
		badRequestResponse(w, r, errors.New("email, password and username are required"))
		return
	}

	result, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Login godoc
// @Summary Вход
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Email и пароль"
// @Success 200 {object} services.AuthResult
// @Failure 401 {object} map[string]string "Неверные учетные данные"
// @Failure 403 {object} map[string]string "Пользователь заблокирован"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	result, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Me godoc
// @Summary Текущий пользователь
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{} "user с профилем"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
