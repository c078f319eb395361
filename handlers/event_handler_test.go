package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventService struct {
	CreateEventFunc      func(ctx context.Context, actor services.Actor, input services.EventInput) (*models.Event, error)
	GetEventFunc         func(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEventsFunc       func(ctx context.Context, input services.ListEventsInput) ([]models.Event, error)
	UpdateEventFunc      func(ctx context.Context, actor services.Actor, id uuid.UUID, input services.EventInput) (*models.Event, error)
	DeleteEventFunc      func(ctx context.Context, actor services.Actor, id uuid.UUID) error
	AttendFunc           func(ctx context.Context, userID, eventID uuid.UUID) (*models.Event, error)
	CancelAttendanceFunc func(ctx context.Context, userID, eventID uuid.UUID) error
	ListAttendeesFunc    func(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error)
}

func (f *fakeEventService) CreateEvent(ctx context.Context, actor services.Actor, input services.EventInput) (*models.Event, error) {
	return f.CreateEventFunc(ctx, actor, input)
}

func (f *fakeEventService) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return f.GetEventFunc(ctx, id)
}

func (f *fakeEventService) ListEvents(ctx context.Context, input services.ListEventsInput) ([]models.Event, error) {
	return f.ListEventsFunc(ctx, input)
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, actor services.Actor, id uuid.UUID, input services.EventInput) (*models.Event, error) {
	return f.UpdateEventFunc(ctx, actor, id, input)
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, actor services.Actor, id uuid.UUID) error {
	return f.DeleteEventFunc(ctx, actor, id)
}

func (f *fakeEventService) Attend(ctx context.Context, userID, eventID uuid.UUID) (*models.Event, error) {
	return f.AttendFunc(ctx, userID, eventID)
}

func (f *fakeEventService) CancelAttendance(ctx context.Context, userID, eventID uuid.UUID) error {
	return f.CancelAttendanceFunc(ctx, userID, eventID)
}

func (f *fakeEventService) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	return f.ListAttendeesFunc(ctx, eventID)
}

func eventRouter(h *EventHandler, userID *uuid.UUID, role models.UserRole) http.Handler {
	r := chi.NewRouter()
	if userID != nil {
		r.Use(withUser(*userID, role))
	}
	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)
	r.Get("/events/{eventID}", h.GetEvent)
	r.Put("/events/{eventID}", h.UpdateEvent)
	r.Delete("/events/{eventID}", h.DeleteEvent)
	r.Get("/events/{eventID}/attendees", h.ListAttendees)
	r.Post("/events/{eventID}/attendees", h.Attend)
	r.Delete("/events/{eventID}/attendees/me", h.CancelAttendance)
	return r
}

func TestListEventsHandlerParsesQuery(t *testing.T) {
	var got services.ListEventsInput
	svc := &fakeEventService{
		ListEventsFunc: func(ctx context.Context, input services.ListEventsInput) ([]models.Event, error) {
			got = input
			return []models.Event{{Title: "LAN night"}}, nil
		},
	}
	router := eventRouter(NewEventHandler(svc), nil, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?upcoming=true&game=cs2&limit=5&page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.True(t, got.Upcoming)
	require.NotNil(t, got.Game)
	assert.Equal(t, "cs2", *got.Game)
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, 5, got.Offset)

	var body struct {
		Events []map[string]interface{} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "LAN night", body.Events[0]["title"])
}

func TestListEventsHandlerRejectsBadUpcoming(t *testing.T) {
	router := eventRouter(NewEventHandler(&fakeEventService{}), nil, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?upcoming=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventHandler(t *testing.T) {
	userID := uuid.New()
	svc := &fakeEventService{
		CreateEventFunc: func(ctx context.Context, actor services.Actor, input services.EventInput) (*models.Event, error) {
			assert.Equal(t, userID, actor.UserID)
			assert.Equal(t, "LAN night", input.Title)
			assert.True(t, input.IsOnline)
			assert.Equal(t, 32, input.Capacity)
			assert.Equal(t, time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC), input.StartsAt.UTC())
			return &models.Event{ID: uuid.New(), Title: input.Title}, nil
		},
	}
	router := eventRouter(NewEventHandler(svc), &userID, models.RoleOrganizer)

	body := `{"title":"LAN night","isOnline":true,"capacity":32,"startsAt":"2026-04-01T18:00:00Z","endsAt":"2026-04-01T23:00:00Z"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAttendEventHandler(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"attending", nil, http.StatusOK},
		{"already started", services.ErrEventStarted, http.StatusBadRequest},
		{"full", services.ErrEventFull, http.StatusConflict},
		{"duplicate", services.ErrAlreadyAttending, http.StatusConflict},
		{"unknown event", services.ErrEventNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{
				AttendFunc: func(ctx context.Context, uid, eid uuid.UUID) (*models.Event, error) {
					assert.Equal(t, userID, uid)
					assert.Equal(t, eventID, eid)
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.Event{ID: eid, AttendeeCount: 1}, nil
				},
			}
			router := eventRouter(NewEventHandler(svc), &userID, models.RolePlayer)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/"+eventID.String()+"/attendees", nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestAttendEventRequiresUser(t *testing.T) {
	router := eventRouter(NewEventHandler(&fakeEventService{}), nil, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/"+uuid.NewString()+"/attendees", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelAttendanceHandler(t *testing.T) {
	userID := uuid.New()
	attending := uuid.New()
	svc := &fakeEventService{
		CancelAttendanceFunc: func(ctx context.Context, uid, eid uuid.UUID) error {
			if eid == attending {
				return nil
			}
			return services.ErrNotAttending
		},
	}
	router := eventRouter(NewEventHandler(svc), &userID, models.RolePlayer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/events/"+attending.String()+"/attendees/me", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/events/"+uuid.NewString()+"/attendees/me", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEventHandler(t *testing.T) {
	userID := uuid.New()
	owned := uuid.New()
	svc := &fakeEventService{
		DeleteEventFunc: func(ctx context.Context, actor services.Actor, id uuid.UUID) error {
			if id == owned {
				return nil
			}
			return services.ErrForbiddenOperation
		},
	}
	router := eventRouter(NewEventHandler(svc), &userID, models.RoleOrganizer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/events/"+owned.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/events/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
