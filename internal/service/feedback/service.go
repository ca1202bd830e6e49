package feedback

import (
	"context"

	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository"
	"github.com/medisched/hms-api/internal/service/event"
	"github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/metrics"
)

const (
	minRating = 1
	maxRating = 5
)

type Service interface {
	Submit(ctx context.Context, actor *auth.Claims, req *model.CreateFeedbackRequest) (*model.Feedback, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Feedback, error)
	Update(ctx context.Context, actor *auth.Claims, id uuid.UUID, req *model.UpdateFeedbackRequest) (*model.Feedback, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*model.Feedback, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Feedback, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Feedback, error)
	ListByPatient(ctx context.Context, actor *auth.Claims, patientID uuid.UUID) ([]*model.Feedback, error)
}

type service struct {
	repo     repository.FeedbackRepository
	apptRepo repository.AppointmentRepository
	emitter  event.Emitter
	metrics  *metrics.Metrics
}

func NewService(repo repository.FeedbackRepository, apptRepo repository.AppointmentRepository, emitter event.Emitter, m *metrics.Metrics) Service {
	return &service{repo: repo, apptRepo: apptRepo, emitter: emitter, metrics: m}
}

// Submit enforces the eligibility gate: the appointment must exist and
// be Completed, the rating must be in range, and a giver may rate an
// appointment once. Patients can only submit as themselves and only on
// their own appointments.
func (s *service) Submit(ctx context.Context, actor *auth.Claims, req *model.CreateFeedbackRequest) (*model.Feedback, error) {
	if !req.GivenBy.Valid() || !req.ReceiverType.Valid() {
		s.reject("invalid_person_type")
		return nil, errors.NewBadRequest("givenBy and receiverType must be Patient or Doctor", nil)
	}
	if req.Rating < minRating || req.Rating > maxRating {
		s.reject("invalid_rating")
		return nil, errors.NewInvalidRating(req.Rating)
	}

	appt, err := s.apptRepo.Get(ctx, req.AppointmentID)
	if err != nil {
		s.reject("appointment_not_found")
		return nil, err
	}
	if appt.Status != model.AppointmentStatusCompleted {
		s.reject("not_completed")
		return nil, errors.NewBadRequest("feedback is only allowed on completed appointments", nil)
	}

	if actor != nil && actor.Role == auth.RolePatient {
		if req.GivenBy != model.PersonTypePatient || req.GivenByID != actor.SubjectID {
			s.reject("forbidden")
			return nil, errors.NewForbidden("patients may only submit feedback as themselves")
		}
		if appt.PatientID != actor.SubjectID {
			s.reject("forbidden")
			return nil, errors.NewForbidden("patients may only review their own appointments")
		}
	}

	exists, err := s.repo.Exists(ctx, req.AppointmentID, req.GivenBy, req.GivenByID)
	if err != nil {
		return nil, err
	}
	if exists {
		s.reject("duplicate")
		return nil, errors.NewDuplicateFeedback()
	}

	fb := &model.Feedback{
		AppointmentID: req.AppointmentID,
		GivenBy:       req.GivenBy,
		GivenByID:     req.GivenByID,
		ReceiverID:    req.ReceiverID,
		ReceiverType:  req.ReceiverType,
		Rating:        req.Rating,
		Comments:      req.Comments,
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		if errors.IsCode(err, errors.CodeDuplicateFeedback) {
			s.reject("duplicate")
		}
		return nil, err
	}

	s.metrics.FeedbackSubmitted.Inc()
	_ = s.emitter.Emit(ctx, model.EventFeedbackSubmitted, fb)
	return fb, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Feedback, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, actor *auth.Claims, id uuid.UUID, req *model.UpdateFeedbackRequest) (*model.Feedback, error) {
	fb, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.Role == auth.RolePatient {
		if fb.GivenBy != model.PersonTypePatient || fb.GivenByID != actor.SubjectID {
			return nil, errors.NewForbidden("patients may only edit their own feedback")
		}
	}

	if req.Rating != nil {
		if *req.Rating < minRating || *req.Rating > maxRating {
			return nil, errors.NewInvalidRating(*req.Rating)
		}
		fb.Rating = *req.Rating
	}
	if req.Comments != nil {
		fb.Comments = *req.Comments
	}

	if err := s.repo.Update(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*model.Feedback, error) {
	return s.repo.List(ctx)
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]*model.Feedback, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Feedback, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}

func (s *service) ListByPatient(ctx context.Context, actor *auth.Claims, patientID uuid.UUID) ([]*model.Feedback, error) {
	if actor != nil && actor.Role == auth.RolePatient && actor.SubjectID != patientID {
		return nil, errors.NewForbidden("patients may only view their own feedback")
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *service) reject(reason string) {
	s.metrics.FeedbackRejected.WithLabelValues(reason).Inc()
}
