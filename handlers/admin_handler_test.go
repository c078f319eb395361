package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdminUserService struct {
	ListUsersFunc                func(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error)
	UpdateUserRoleFunc           func(ctx context.Context, actor services.Actor, userID uuid.UUID, role models.UserRole) (*models.User, error)
	UpdateUserStatusFunc         func(ctx context.Context, actor services.Actor, userID uuid.UUID, status models.UserStatus) (*models.User, error)
	DeleteUserFunc               func(ctx context.Context, actor services.Actor, userID uuid.UUID) error
	ListPendingRegistrationsFunc func(ctx context.Context, limit, offset int) ([]*models.Registration, error)
}

func (f *fakeAdminUserService) ListUsers(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error) {
	return f.ListUsersFunc(ctx, filter)
}

func (f *fakeAdminUserService) UpdateUserRole(ctx context.Context, actor services.Actor, userID uuid.UUID, role models.UserRole) (*models.User, error) {
	return f.UpdateUserRoleFunc(ctx, actor, userID, role)
}

func (f *fakeAdminUserService) UpdateUserStatus(ctx context.Context, actor services.Actor, userID uuid.UUID, status models.UserStatus) (*models.User, error) {
	return f.UpdateUserStatusFunc(ctx, actor, userID, status)
}

func (f *fakeAdminUserService) DeleteUser(ctx context.Context, actor services.Actor, userID uuid.UUID) error {
	return f.DeleteUserFunc(ctx, actor, userID)
}

func (f *fakeAdminUserService) ListPendingRegistrations(ctx context.Context, limit, offset int) ([]*models.Registration, error) {
	return f.ListPendingRegistrationsFunc(ctx, limit, offset)
}

type fakeDashboardService struct {
	stats models.DashboardStats
	err   error
}

func (f *fakeDashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	return f.stats, f.err
}

func adminRouter(h *AdminUserHandler, adminID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(withUser(adminID, models.RoleAdmin))
	r.Get("/admin/users", h.ListUsers)
	r.Put("/admin/users/{userID}/role", h.UpdateUserRole)
	r.Put("/admin/users/{userID}/status", h.UpdateUserStatus)
	r.Delete("/admin/users/{userID}", h.DeleteUser)
	r.Get("/admin/registrations/pending", h.ListPendingRegistrations)
	return r
}

func TestListUsersHandler(t *testing.T) {
	banned := models.UserStatusBanned
	organizer := models.RoleOrganizer
	tests := []struct {
		name       string
		url        string
		want       models.UserFilter
		wantStatus int
	}{
		{
			name:       "defaults",
			url:        "/admin/users",
			want:       models.UserFilter{Page: 1, Limit: 20},
			wantStatus: http.StatusOK,
		},
		{
			name:       "all filters",
			url:        "/admin/users?page=2&limit=50&search=ace&role=organizer&status=banned",
			want:       models.UserFilter{Search: "ace", Role: &organizer, Status: &banned, Page: 2, Limit: 50},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad page",
			url:        "/admin/users?page=first",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAdminUserService{
				ListUsersFunc: func(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error) {
					assert.Equal(t, tt.want, filter)
					return models.UserListResponse{
						Users:      []models.User{{ID: uuid.New(), Email: "ace@example.com"}},
						TotalCount: 1,
						Page:       filter.Page,
						Limit:      filter.Limit,
					}, nil
				},
			}
			rec := httptest.NewRecorder()
			adminRouter(NewAdminUserHandler(svc), uuid.New()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body models.UserListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, 1, body.TotalCount)
			assert.Equal(t, tt.want.Page, body.Page)
			require.Len(t, body.Users, 1)
			assert.Equal(t, "ace@example.com", body.Users[0].Email)
		})
	}
}

func TestUpdateUserStatusHandler(t *testing.T) {
	adminID := uuid.New()
	target := uuid.New()
	tests := []struct {
		name       string
		userID     uuid.UUID
		body       string
		wantStatus int
	}{
		{"ban", target, `{"status":"banned"}`, http.StatusOK},
		{"self", adminID, `{"status":"banned"}`, http.StatusBadRequest},
		{"unknown user", uuid.New(), `{"status":"banned"}`, http.StatusNotFound},
		{"malformed", target, `{"status":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAdminUserService{
				UpdateUserStatusFunc: func(ctx context.Context, actor services.Actor, userID uuid.UUID, status models.UserStatus) (*models.User, error) {
					assert.Equal(t, services.Actor{UserID: adminID, Role: models.RoleAdmin}, actor)
					assert.Equal(t, models.UserStatusBanned, status)
					switch userID {
					case adminID:
						return nil, services.ErrCannotModifySelf
					case target:
						return &models.User{ID: userID, Status: status}, nil
					}
					return nil, services.ErrUserNotFound
				},
			}
			rec := httptest.NewRecorder()
			adminRouter(NewAdminUserHandler(svc), adminID).ServeHTTP(rec,
				httptest.NewRequest(http.MethodPut, "/admin/users/"+tt.userID.String()+"/status", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateUserRoleHandler(t *testing.T) {
	adminID := uuid.New()
	target := uuid.New()
	svc := &fakeAdminUserService{
		UpdateUserRoleFunc: func(ctx context.Context, actor services.Actor, userID uuid.UUID, role models.UserRole) (*models.User, error) {
			assert.Equal(t, target, userID)
			return &models.User{ID: userID, Role: role}, nil
		},
	}

	rec := httptest.NewRecorder()
	adminRouter(NewAdminUserHandler(svc), adminID).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPut, "/admin/users/"+target.String()+"/role", strings.NewReader(`{"role":"organizer"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.RoleOrganizer, body.User.Role)
}

func TestDeleteUserHandler(t *testing.T) {
	adminID := uuid.New()
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"deleted", nil, http.StatusNoContent},
		{"organizes tournaments", services.ErrUserInUse, http.StatusConflict},
		{"self", services.ErrCannotModifySelf, http.StatusBadRequest},
		{"unknown", services.ErrUserNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAdminUserService{
				DeleteUserFunc: func(ctx context.Context, actor services.Actor, userID uuid.UUID) error {
					return tt.err
				},
			}
			rec := httptest.NewRecorder()
			adminRouter(NewAdminUserHandler(svc), adminID).ServeHTTP(rec,
				httptest.NewRequest(http.MethodDelete, "/admin/users/"+uuid.NewString(), nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestListPendingRegistrationsHandler(t *testing.T) {
	svc := &fakeAdminUserService{
		ListPendingRegistrationsFunc: func(ctx context.Context, limit, offset int) ([]*models.Registration, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 30, offset)
			return []*models.Registration{{ID: uuid.New(), InGameName: "ace", Status: models.RegistrationPending}}, nil
		},
	}

	rec := httptest.NewRecorder()
	adminRouter(NewAdminUserHandler(svc), uuid.New()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/admin/registrations/pending?limit=10&offset=30", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Registrations []map[string]interface{} `json:"registrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Registrations, 1)
	assert.Equal(t, "pending", body.Registrations[0]["status"])
}

func TestDashboardStatsHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := NewDashboardHandler(&fakeDashboardService{stats: models.DashboardStats{UsersTotal: 12, PendingRegistrations: 3}})
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body models.DashboardStats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 12, body.UsersTotal)
		assert.Equal(t, 3, body.PendingRegistrations)
	})

	t.Run("store error", func(t *testing.T) {
		h := NewDashboardHandler(&fakeDashboardService{err: errors.New("connection reset")})
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
