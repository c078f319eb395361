package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

var (
	errMissingToken = errors.New("missing bearer token")
	errUserBanned   = errors.New("user is banned")
)

// UserLookup loads the account a token was issued for.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticate rejects requests without a valid HS256 bearer token. The account is
// reloaded on every request: banned users get 403 and the stored role replaces the
// role claim, so admin changes apply before the token expires.
func Authenticate(secret []byte, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseRequestToken(r, secret)
			if err == nil {
				claims, err = loadAccount(r.Context(), users, claims)
			}
			if err != nil {
				rejectRequest(w, r, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate stores the claims when a valid token is present and lets
// anonymous requests through. An invalid token is still rejected.
func OptionalAuthenticate(secret []byte, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseRequestToken(r, secret)
			if errors.Is(err, errMissingToken) {
				next.ServeHTTP(w, r)
				return
			}
			if err == nil {
				claims, err = loadAccount(r.Context(), users, claims)
			}
			if err != nil {
				rejectRequest(w, r, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loadAccount returns a copy of claims carrying the user's current role.
func loadAccount(ctx context.Context, users UserLookup, claims jwt.MapClaims) (jwt.MapClaims, error) {
	userID, err := GetUserIDFromContext(WithClaims(ctx, claims))
	if err != nil {
		return nil, &tokenError{err}
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == models.UserStatusBanned {
		return nil, errUserBanned
	}
	fresh := make(jwt.MapClaims, len(claims))
	for k, v := range claims {
		fresh[k] = v
	}
	fresh[jwtClaimRole] = string(user.Role)
	return fresh, nil
}

func rejectRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, errUserBanned):
		writeError(w, http.StatusForbidden, "user account is banned")
	case errors.Is(err, repositories.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "user account no longer exists")
	case errors.Is(err, errMissingToken), isTokenError(err):
		logger.DebugContext(r.Context(), "authentication failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusUnauthorized, "invalid or missing authentication token")
	default:
		logger.ErrorContext(r.Context(), "failed to load authenticated user",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Authorize must run after Authenticate.
func Authorize(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole, err := GetUserRoleFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing authentication token")
				return
			}
			for _, role := range roles {
				if role == userRole {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "operation not allowed for the current user")
		})
	}
}

// tokenError marks failures caused by the token itself rather than the user store.
type tokenError struct{ err error }

func (e *tokenError) Error() string { return e.err.Error() }
func (e *tokenError) Unwrap() error { return e.err }

func isTokenError(err error) bool {
	var te *tokenError
	return errors.As(err, &te)
}

func parseRequestToken(r *http.Request, secret []byte) (jwt.MapClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errMissingToken
	}
	scheme, tokenString, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
		return nil, &tokenError{errors.New("malformed authorization header")}
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, &tokenError{err}
	}
	if !token.Valid {
		return nil, &tokenError{errors.New("token is not valid")}
	}
	return claims, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, "{\n\t\"error\": %q\n}\n", message)
}
