package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/esports-arena/middleware"
	"github.com/Dosada05/esports-arena/services"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type jsonResponse map[string]interface{}

const maxBodyBytes = 1_048_576 // 1MB

// readJSON decodes a single JSON object into dst. Keys may be camelCase or snake_case;
// both are matched against the snake_case struct tags.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBodyBytes))

	var raw interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	normalized, err := json.Marshal(utils.SnakeCaseKeys(raw))
	if err != nil {
		return fmt.Errorf("body could not be normalized: %w", err)
	}

	strict := json.NewDecoder(bytes.NewReader(normalized))
	strict.DisallowUnknownFields()
	if err := strict.Decode(dst); err != nil {
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var invalidUnmarshalError *json.InvalidUnmarshalError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxError):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field != "" {
			return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
		}
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
	case errors.Is(err, io.EOF):
		return errors.New("body must not be empty")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return fmt.Errorf("body contains unknown key %s", fieldName)
	case errors.As(err, &maxBytesError):
		return fmt.Errorf("body must not be larger than %d bytes", maxBodyBytes)
	case errors.As(err, &invalidUnmarshalError):
		panic(err)
	default:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "the requested resource could not be found"
	}
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		failedValidationResponse(w, r, validationErr.Fields)

	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrRegistrationNotFound),
		errors.Is(err, services.ErrStatsNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrNotAttending):
		notFoundResponse(w, r, err.Error())

	case errors.Is(err, services.ErrUserEmailConflict),
		errors.Is(err, services.ErrUsernameConflict),
		errors.Is(err, services.ErrRegistrationConflict),
		errors.Is(err, services.ErrAlreadyAttending),
		errors.Is(err, services.ErrUserInUse),
		errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrEventFull):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrUnsupportedFileType),
		errors.Is(err, services.ErrTournamentDatesRequired),
		errors.Is(err, services.ErrTournamentInvalidRegDate),
		errors.Is(err, services.ErrTournamentInvalidDateRange),
		errors.Is(err, services.ErrTournamentInvalidStatus),
		errors.Is(err, services.ErrTournamentInvalidStatusTransition),
		errors.Is(err, services.ErrRegistrationNotOpen),
		errors.Is(err, services.ErrTournamentStarted),
		errors.Is(err, services.ErrTournamentNotEditable),
		errors.Is(err, services.ErrTournamentNotDeletable),
		errors.Is(err, services.ErrPaymentRequired),
		errors.Is(err, services.ErrEventStarted),
		errors.Is(err, services.ErrCannotModifySelf):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAuthenticationFailed):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrUserBanned):
		forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrUploadsDisabled):
		errorResponse(w, r, http.StatusServiceUnavailable, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}

// getIDFromURL reads a UUID or legacy 24-hex id from the route.
func getIDFromURL(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s in URL path", paramName)
	}
	id, err := utils.NormalizeID(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s in URL path: %w", paramName, err)
	}
	return id, nil
}

func normalizeGameParam(game string) string {
	return strings.ToLower(strings.TrimSpace(game))
}

func getUUIDQuery(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := utils.NormalizeID(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s query parameter: %w", key, err)
	}
	return &id, nil
}

func getStringQuery(r *http.Request, key string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	return &raw
}

func getIntQuery(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s query parameter: must be a non-negative integer", key)
	}
	return v, nil
}

func getBoolQuery(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s query parameter: must be a boolean", key)
	}
	return v, nil
}

// getPagination reads limit and offset. page is accepted as an alternative to offset.
func getPagination(r *http.Request) (limit, offset int, err error) {
	limit, err = getIntQuery(r, "limit", 0)
	if err != nil {
		return 0, 0, err
	}
	offset, err = getIntQuery(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	page, err := getIntQuery(r, "page", 0)
	if err != nil {
		return 0, 0, err
	}
	if page > 1 && offset == 0 {
		size := limit
		if size == 0 {
			size = 20
		}
		offset = (page - 1) * size
	}
	return limit, offset, nil
}

func currentActor(r *http.Request) (services.Actor, error) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return services.Actor{}, err
	}
	role, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{UserID: userID, Role: role}, nil
}

// optionalActor returns nil for anonymous requests.
func optionalActor(r *http.Request) *services.Actor {
	actor, err := currentActor(r)
	if err != nil {
		return nil
	}
	return &actor
}

const maxUploadBytes = 5 << 20

// readUploadedFile opens the multipart field and reports its content type.
func readUploadedFile(w http.ResponseWriter, r *http.Request, field string) (io.ReadCloser, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1024)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("invalid multipart form (max %d bytes): %w", maxUploadBytes, err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q file field: %w", field, err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return file, contentType, nil
}
