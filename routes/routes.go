package routes

import (
	"log/slog"
	"net/http"
	"time"

	_ "github.com/Dosada05/esports-arena/docs"
	"github.com/Dosada05/esports-arena/handlers"
	"github.com/Dosada05/esports-arena/middleware"
	"github.com/Dosada05/esports-arena/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options carries the router settings that do not come from handlers.
type Options struct {
	JWTSecret      []byte
	Users          middleware.UserLookup
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Stats        *handlers.StatsHandler
	Event        *handlers.EventHandler
	Admin        *handlers.AdminUserHandler
	Dashboard    *handlers.DashboardHandler
	WebSocket    *handlers.WebSocketHandler
	Health       *handlers.HealthHandler
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(requestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret, opts.Users, opts.Logger)
	optionalAuth := middleware.OptionalAuthenticate(opts.JWTSecret, opts.Users, opts.Logger)
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/healthz", h.Health.Health)
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/ws", func(r chi.Router) {
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
		r.Get("/leaderboards/{game}", h.WebSocket.ServeLeaderboard)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.With(authenticate).Get("/me", h.Auth.Me)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.Profile.SearchProfiles)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/me", h.Profile.GetMyProfile)
				r.Patch("/me", h.Profile.UpdateMyProfile)
				r.Post("/me/avatar", h.Profile.UploadMyAvatar)
			})
			r.Get("/{profileID}", h.Profile.GetProfile)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(authenticate).Get("/me/registrations", h.Registration.ListMine)
			r.Get("/{userID}/profile", h.Profile.GetUserProfile)
			r.Get("/{userID}/stats", h.Stats.GetPlayerStats)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListTournaments)
			r.With(authenticate, organizerOnly).Post("/", h.Tournament.CreateTournament)

			r.Route("/{tournamentRef}", func(r chi.Router) {
				r.Get("/", h.Tournament.GetTournament)
				r.With(optionalAuth).Get("/registrations", h.Registration.ListForTournament)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Post("/registrations", h.Registration.Register)
					r.Delete("/registrations/me", h.Registration.Withdraw)
				})

				r.Group(func(r chi.Router) {
					r.Use(authenticate, organizerOnly)
					r.Patch("/", h.Tournament.UpdateTournamentDetails)
					r.Put("/status", h.Tournament.UpdateTournamentStatus)
					r.Delete("/", h.Tournament.DeleteTournament)
					r.Post("/banner", h.Tournament.UploadBanner)
				})
			})
		})

		r.Route("/registrations/{registrationID}", func(r chi.Router) {
			r.Use(authenticate, organizerOnly)
			r.Put("/status", h.Registration.UpdateStatus)
			r.Put("/payment", h.Registration.UpdatePayment)
		})

		r.With(authenticate, organizerOnly).Post("/matches", h.Stats.RecordMatch)

		r.Route("/leaderboards/{game}", func(r chi.Router) {
			r.Get("/", h.Stats.GetLeaderboard)
			r.Get("/players/{userID}", h.Stats.GetPlayerRank)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.Event.ListEvents)
			r.With(authenticate, organizerOnly).Post("/", h.Event.CreateEvent)

			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", h.Event.GetEvent)
				r.Get("/attendees", h.Event.ListAttendees)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Post("/attendees", h.Event.Attend)
					r.Delete("/attendees/me", h.Event.CancelAttendance)
				})

				r.Group(func(r chi.Router) {
					r.Use(authenticate, organizerOnly)
					r.Put("/", h.Event.UpdateEvent)
					r.Delete("/", h.Event.DeleteEvent)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Get("/dashboard", h.Dashboard.Stats)
			r.Get("/users", h.Admin.ListUsers)
			r.Put("/users/{userID}/role", h.Admin.UpdateUserRole)
			r.Put("/users/{userID}/status", h.Admin.UpdateUserStatus)
			r.Delete("/users/{userID}", h.Admin.DeleteUser)
			r.Get("/registrations/pending", h.Admin.ListPendingRegistrations)
		})
	})
}

// requestLogger writes one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.InfoContext(r.Context(), "http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", chiMiddleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
