package model

// DashboardStats aggregates the counters shown on the admin dashboard.
type DashboardStats struct {
	TotalPatients        int     `json:"totalPatients"`
	TotalDoctors         int     `json:"totalDoctors"`
	TodayAppointments    int     `json:"todayAppointments"`
	UpcomingAppointments int     `json:"upcomingAppointments"`
	AverageRating        float64 `json:"averageRating"`
}
