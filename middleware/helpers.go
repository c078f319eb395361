package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Определяем константы для имен JWT claims
const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var ErrNoClaims = errors.New("user claims not found in context or invalid type")

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrNoClaims
	}

	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return uuid.Nil, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	userIDStr, ok := userIDClaim.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimUserID, userIDClaim)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid user ID value in '%s' claim: %q", jwtClaimUserID, userIDStr)
	}
	return userID, nil
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", ErrNoClaims
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimRole)
	}

	roleStr, ok := roleClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
	}

	role := models.UserRole(roleStr)
	if !role.Valid() {
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
	return role, nil
}

// WithClaims returns ctx carrying claims as Authenticate would store them.
func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}
