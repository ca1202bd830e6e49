package dashboard

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository"
)

const (
	statsCacheKey   = "dashboard:stats"
	defaultCacheTTL = 30 * time.Second
	dateLayout      = "2006-01-02"
)

type Service interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)
}

type service struct {
	patientRepo  repository.PatientRepository
	doctorRepo   repository.DoctorRepository
	apptRepo     repository.AppointmentRepository
	feedbackRepo repository.FeedbackRepository
	cache        *cache.Cache
}

// NewService caches computed stats for ttl; the dashboard polls
// frequently and the counts tolerate slight staleness.
func NewService(
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	apptRepo repository.AppointmentRepository,
	feedbackRepo repository.FeedbackRepository,
	ttl time.Duration,
) Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &service{
		patientRepo:  patientRepo,
		doctorRepo:   doctorRepo,
		apptRepo:     apptRepo,
		feedbackRepo: feedbackRepo,
		cache:        cache.New(ttl, 2*ttl),
	}
}

func (s *service) Stats(ctx context.Context) (*model.DashboardStats, error) {
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		return cached.(*model.DashboardStats), nil
	}

	patients, err := s.patientRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	doctors, err := s.doctorRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	today := time.Now().Format(dateLayout)
	todayCount, err := s.apptRepo.CountOnDate(ctx, today)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.apptRepo.CountConfirmedFrom(ctx, today)
	if err != nil {
		return nil, err
	}
	avgRating, err := s.feedbackRepo.AverageRating(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{
		TotalPatients:        len(patients),
		TotalDoctors:         len(doctors),
		TodayAppointments:    todayCount,
		UpcomingAppointments: upcoming,
		AverageRating:        avgRating,
	}
	s.cache.SetDefault(statsCacheKey, stats)
	return stats, nil
}
