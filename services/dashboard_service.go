package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	userRepo         repositories.UserRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	eventRepo        repositories.EventRepository
	now              Clock
}

func NewDashboardService(
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	eventRepo repositories.EventRepository,
	now Clock,
) DashboardService {
	return &dashboardService{
		userRepo:         userRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		now:              clockOrNow(now),
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	banned := models.UserStatusBanned
	active := models.StatusActive
	open := models.StatusRegistration
	pending := models.RegistrationPending

	g, gctx := errgroup.WithContext(ctx)
	count := func(name string, dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}

	count("users", &stats.UsersTotal, func(ctx context.Context) (int, error) {
		return s.userRepo.Count(ctx, nil)
	})
	count("banned users", &stats.BannedUsers, func(ctx context.Context) (int, error) {
		return s.userRepo.Count(ctx, &banned)
	})
	count("tournaments", &stats.TournamentsTotal, func(ctx context.Context) (int, error) {
		return s.tournamentRepo.Count(ctx, nil)
	})
	count("active tournaments", &stats.ActiveTournaments, func(ctx context.Context) (int, error) {
		return s.tournamentRepo.Count(ctx, &active)
	})
	count("open registrations", &stats.OpenRegistrations, func(ctx context.Context) (int, error) {
		return s.tournamentRepo.Count(ctx, &open)
	})
	count("pending registrations", &stats.PendingRegistrations, func(ctx context.Context) (int, error) {
		return s.registrationRepo.Count(ctx, &pending)
	})
	count("upcoming events", &stats.UpcomingEvents, func(ctx context.Context) (int, error) {
		return s.eventRepo.CountUpcoming(ctx, s.now())
	})

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
