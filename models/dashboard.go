package models

type DashboardStats struct {
	UsersTotal           int `json:"users_total"`
	BannedUsers          int `json:"banned_users"`
	TournamentsTotal     int `json:"tournaments_total"`
	ActiveTournaments    int `json:"active_tournaments"`
	OpenRegistrations    int `json:"open_registrations"`
	PendingRegistrations int `json:"pending_registrations"`
	UpcomingEvents       int `json:"upcoming_events"`
}
