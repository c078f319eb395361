package services

import (
	"context"
	"testing"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCannotModifySelf(t *testing.T) {
	admin := Actor{UserID: uuid.New(), Role: models.RoleAdmin}
	users := &FakeUserRepository{
		UpdateRoleFunc: func(ctx context.Context, id uuid.UUID, role models.UserRole) error {
			t.Fatal("self modification must be rejected before the repository")
			return nil
		},
	}
	svc := NewAdminUserService(users, &FakeProfileRepository{}, &FakeRegistrationRepository{}, nil, testLogger)

	_, err := svc.UpdateUserRole(context.Background(), admin, admin.UserID, models.RolePlayer)
	assert.ErrorIs(t, err, ErrCannotModifySelf)
	_, err = svc.UpdateUserStatus(context.Background(), admin, admin.UserID, models.UserStatusBanned)
	assert.ErrorIs(t, err, ErrCannotModifySelf)
	assert.ErrorIs(t, svc.DeleteUser(context.Background(), admin, admin.UserID), ErrCannotModifySelf)
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	svc := NewAdminUserService(&FakeUserRepository{}, &FakeProfileRepository{}, &FakeRegistrationRepository{}, nil, testLogger)
	organizer := Actor{UserID: uuid.New(), Role: models.RoleOrganizer}

	_, err := svc.UpdateUserRole(context.Background(), organizer, uuid.New(), models.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
	assert.ErrorIs(t, svc.DeleteUser(context.Background(), organizer, uuid.New()), ErrForbiddenOperation)
}

func TestUpdateUserStatusBansUser(t *testing.T) {
	admin := Actor{UserID: uuid.New(), Role: models.RoleAdmin}
	target := uuid.New()
	var stored models.UserStatus
	users := &FakeUserRepository{
		UpdateStatusFunc: func(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
			stored = status
			return nil
		},
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, Status: stored, PasswordHash: "hash"}, nil
		},
	}
	svc := NewAdminUserService(users, &FakeProfileRepository{}, &FakeRegistrationRepository{}, nil, testLogger)

	user, err := svc.UpdateUserStatus(context.Background(), admin, target, models.UserStatusBanned)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusBanned, user.Status)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.UpdateUserStatus(context.Background(), admin, target, "suspended")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestDeleteUserInUse(t *testing.T) {
	users := &FakeUserRepository{
		DeleteFunc: func(ctx context.Context, id uuid.UUID) error { return repositories.ErrUserInUse },
	}
	svc := NewAdminUserService(users, &FakeProfileRepository{}, &FakeRegistrationRepository{}, nil, testLogger)

	err := svc.DeleteUser(context.Background(), Actor{UserID: uuid.New(), Role: models.RoleAdmin}, uuid.New())
	assert.ErrorIs(t, err, ErrUserInUse)
}

func TestListUsersNormalizesFilter(t *testing.T) {
	userID := uuid.New()
	users := &FakeUserRepository{
		ListFunc: func(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
			assert.Equal(t, 1, filter.Page)
			assert.Equal(t, 100, filter.Limit)
			assert.Equal(t, "ace", filter.Search)
			return []models.User{{ID: userID, PasswordHash: "hash"}}, 1, nil
		},
	}
	profiles := &FakeProfileRepository{
		ListByUserIDsFunc: func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
			return map[uuid.UUID]*models.Profile{userID: {UserID: userID, Username: "ace"}}, nil
		},
	}
	svc := NewAdminUserService(users, profiles, &FakeRegistrationRepository{}, nil, testLogger)

	resp, err := svc.ListUsers(context.Background(), models.UserFilter{Search: " ace ", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalCount)
	require.Len(t, resp.Users, 1)
	assert.Empty(t, resp.Users[0].PasswordHash)
	assert.Equal(t, "ace", resp.Users[0].Profile.Username)

	bad := models.UserRole("root")
	_, err = svc.ListUsers(context.Background(), models.UserFilter{Role: &bad})
	assert.ErrorIs(t, err, ErrValidationFailed)
}
