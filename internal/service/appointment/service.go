package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/email"
	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository"
	"github.com/medisched/hms-api/internal/service/event"
	"github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/logger"
	"github.com/medisched/hms-api/pkg/metrics"
)

const dateLayout = "2006-01-02"

type Service interface {
	Book(ctx context.Context, actor *auth.Claims, req *model.CreateAppointmentRequest) (*model.AppointmentDetail, error)
	Get(ctx context.Context, actor *auth.Claims, id uuid.UUID) (*model.AppointmentDetail, error)
	List(ctx context.Context, actor *auth.Claims, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error)
	ListUpcoming(ctx context.Context, limit int) ([]*model.AppointmentDetail, error)
	Update(ctx context.Context, actor *auth.Claims, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo         repository.AppointmentRepository
	patientRepo  repository.PatientRepository
	doctorRepo   repository.DoctorRepository
	feedbackRepo repository.FeedbackRepository
	emitter      event.Emitter
	emailSvc     email.Service
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	feedbackRepo repository.FeedbackRepository,
	emitter event.Emitter,
	emailSvc email.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		repo:         repo,
		patientRepo:  patientRepo,
		doctorRepo:   doctorRepo,
		feedbackRepo: feedbackRepo,
		emitter:      emitter,
		emailSvc:     emailSvc,
		logger:       log,
		metrics:      m,
	}
}

// requireSelf rejects patient callers acting on another patient's
// record. Admin callers pass through.
func requireSelf(actor *auth.Claims, patientID uuid.UUID) error {
	if actor == nil || actor.Role == auth.RoleAdmin {
		return nil
	}
	if actor.SubjectID != patientID {
		return errors.NewForbidden("patients may only act on their own appointments")
	}
	return nil
}

func today() string {
	return time.Now().Format(dateLayout)
}

func (s *service) Book(ctx context.Context, actor *auth.Claims, req *model.CreateAppointmentRequest) (*model.AppointmentDetail, error) {
	status := req.Status
	if status == "" {
		status = model.AppointmentStatusPending
	}
	if !status.Valid() {
		return nil, errors.NewBadRequest("invalid appointment status: "+string(req.Status), nil)
	}
	if err := requireSelf(actor, req.PatientID); err != nil {
		return nil, err
	}
	if actor != nil && actor.Role == auth.RolePatient && status != model.AppointmentStatusPending {
		// Patient bookings always start Pending; confirmation is an
		// admin action.
		return nil, errors.NewForbidden("only admins may set the appointment status")
	}
	if req.Date < today() {
		return nil, errors.NewPastDate(req.Date)
	}

	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctorRepo.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	if status.IsActive() {
		taken, err := s.repo.IsSlotTaken(ctx, req.DoctorID, req.Date, req.Time, nil)
		if err != nil {
			return nil, err
		}
		if taken {
			s.metrics.SlotConflictsTotal.Inc()
			return nil, errors.NewSlotConflict(doctor.Name, req.Date, req.Time)
		}
	}

	specialization := req.Specialization
	if specialization == "" {
		specialization = doctor.Expertise
	}

	appt := &model.Appointment{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Specialization: specialization,
		Date:           req.Date,
		Time:           req.Time,
		Status:         status,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.IsCode(err, errors.CodeSlotConflict) {
			// Lost the race to the unique index; rewrite with the
			// doctor's name for a useful message.
			s.metrics.SlotConflictsTotal.Inc()
			return nil, errors.NewSlotConflict(doctor.Name, req.Date, req.Time)
		}
		return nil, err
	}

	s.metrics.BookingsTotal.WithLabelValues(string(appt.Status)).Inc()
	s.emit(ctx, model.EventAppointmentBooked, appt)
	s.notify(ctx, appt, patient, doctor)

	return &model.AppointmentDetail{
		Appointment: *appt,
		Patient: model.PatientSummary{
			ID:         patient.ID,
			Name:       patient.Name,
			BloodGroup: patient.BloodGroup,
			Email:      patient.Email,
			Phone:      patient.Phone,
		},
		Doctor: model.DoctorSummary{
			ID:        doctor.ID,
			Name:      doctor.Name,
			Expertise: doctor.Expertise,
			Phone:     doctor.Phone,
		},
	}, nil
}

func (s *service) Get(ctx context.Context, actor *auth.Claims, id uuid.UUID) (*model.AppointmentDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireSelf(actor, detail.PatientID); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) List(ctx context.Context, actor *auth.Claims, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}
	if actor != nil && actor.Role == auth.RolePatient {
		// Patients only ever see their own bookings.
		id := actor.SubjectID
		filters.PatientID = &id
	}
	return s.repo.List(ctx, filters)
}

func (s *service) ListUpcoming(ctx context.Context, limit int) ([]*model.AppointmentDetail, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListUpcoming(ctx, today(), limit)
}

// Update handles both the bare status change and a reschedule. Both
// paths re-validate the active-slot invariant before writing, and the
// repository syncs the schedule projection in the same transaction.
func (s *service) Update(ctx context.Context, actor *auth.Claims, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireSelf(actor, current.PatientID); err != nil {
		return nil, err
	}
	if req.Status != nil && actor != nil && actor.Role == auth.RolePatient &&
		*req.Status != model.AppointmentStatusCancelled {
		// Cancelling is the only status change a patient may make.
		return nil, errors.NewForbidden("patients may only cancel their appointments")
	}

	if req.StatusOnly() {
		return s.updateStatus(ctx, current, *req.Status)
	}
	return s.reschedule(ctx, actor, current, req)
}

func (s *service) updateStatus(ctx context.Context, current *model.Appointment, next model.AppointmentStatus) (*model.Appointment, error) {
	if !next.Valid() {
		return nil, errors.NewBadRequest("invalid appointment status: "+string(next), nil)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, errors.NewInvalidTransition(string(current.Status), string(next))
	}

	if next == model.AppointmentStatusConfirmed {
		taken, err := s.repo.IsSlotTaken(ctx, current.DoctorID, current.Date, current.Time, &current.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			s.metrics.SlotConflictsTotal.Inc()
			return nil, s.slotConflict(ctx, current.DoctorID, current.Date, current.Time)
		}
	}

	prev := current.Status
	if err := s.repo.UpdateStatus(ctx, current.ID, next); err != nil {
		return nil, err
	}
	current.Status = next

	s.metrics.StatusTransitions.WithLabelValues(string(prev), string(next)).Inc()
	s.emit(ctx, statusEventType(next), current)
	s.notifyStatusChange(ctx, current)

	return current, nil
}

func (s *service) reschedule(ctx context.Context, actor *auth.Claims, current *model.Appointment, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	next := *current
	if req.PatientID != nil {
		if err := requireSelf(actor, *req.PatientID); err != nil {
			return nil, err
		}
		if _, err := s.patientRepo.Get(ctx, *req.PatientID); err != nil {
			return nil, err
		}
		next.PatientID = *req.PatientID
	}
	if req.DoctorID != nil {
		if _, err := s.doctorRepo.Get(ctx, *req.DoctorID); err != nil {
			return nil, err
		}
		next.DoctorID = *req.DoctorID
	}
	if req.Specialization != nil {
		next.Specialization = *req.Specialization
	}
	if req.Date != nil {
		next.Date = *req.Date
	}
	if req.Time != nil {
		next.Time = *req.Time
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, errors.NewBadRequest("invalid appointment status: "+string(*req.Status), nil)
		}
		if *req.Status != current.Status && !current.Status.CanTransitionTo(*req.Status) {
			return nil, errors.NewInvalidTransition(string(current.Status), string(*req.Status))
		}
		next.Status = *req.Status
	}

	if (req.Date != nil || req.Time != nil) && next.Date < today() {
		return nil, errors.NewPastDate(next.Date)
	}

	if next.Status.IsActive() {
		taken, err := s.repo.IsSlotTaken(ctx, next.DoctorID, next.Date, next.Time, &next.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			s.metrics.SlotConflictsTotal.Inc()
			return nil, s.slotConflict(ctx, next.DoctorID, next.Date, next.Time)
		}
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		if errors.IsCode(err, errors.CodeSlotConflict) {
			s.metrics.SlotConflictsTotal.Inc()
			return nil, s.slotConflict(ctx, next.DoctorID, next.Date, next.Time)
		}
		return nil, err
	}

	if next.Status != current.Status {
		s.metrics.StatusTransitions.WithLabelValues(string(current.Status), string(next.Status)).Inc()
		s.emit(ctx, statusEventType(next.Status), &next)
		s.notifyStatusChange(ctx, &next)
	}

	return &next, nil
}

// Delete refuses while feedback references the appointment; the
// repository removes the schedule row and the appointment atomically.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.feedbackRepo.CountByAppointment(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.NewHasDependentFeedback()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, model.EventAppointmentDeleted, appt)
	return nil
}

func statusEventType(status model.AppointmentStatus) string {
	switch status {
	case model.AppointmentStatusConfirmed:
		return model.EventAppointmentConfirmed
	case model.AppointmentStatusCancelled:
		return model.EventAppointmentCancelled
	case model.AppointmentStatusCompleted:
		return model.EventAppointmentCompleted
	default:
		return model.EventAppointmentBooked
	}
}

// slotConflict builds the doctor-named conflict message, falling back
// to a generic name when the doctor lookup fails.
func (s *service) slotConflict(ctx context.Context, doctorID uuid.UUID, date, timeSlot string) error {
	name := "The doctor"
	if doctor, err := s.doctorRepo.Get(ctx, doctorID); err == nil {
		name = doctor.Name
	}
	return errors.NewSlotConflict(name, date, timeSlot)
}

func (s *service) emit(ctx context.Context, eventType string, appt *model.Appointment) {
	if err := s.emitter.Emit(ctx, eventType, appt); err != nil {
		s.logger.Error(err, "failed to stage event",
			"event_type", eventType,
			"appointment_id", appt.ID.String())
	}
}

// notify sends booking mail best-effort; delivery failures never fail
// the API call.
func (s *service) notify(ctx context.Context, appt *model.Appointment, patient *model.Patient, doctor *model.Doctor) {
	var err error
	switch appt.Status {
	case model.AppointmentStatusConfirmed:
		err = s.emailSvc.SendAppointmentConfirmed(ctx, patient.Email, patient.Name, doctor.Name, appt.Date, appt.Time)
	default:
		err = s.emailSvc.SendAppointmentBooked(ctx, patient.Email, patient.Name, doctor.Name, appt.Date, appt.Time)
	}
	if err != nil {
		s.logger.Warn("failed to send booking email",
			"appointment_id", appt.ID.String(), "error", err.Error())
	}
}

func (s *service) notifyStatusChange(ctx context.Context, appt *model.Appointment) {
	patient, err := s.patientRepo.Get(ctx, appt.PatientID)
	if err != nil {
		return
	}
	doctor, err := s.doctorRepo.Get(ctx, appt.DoctorID)
	if err != nil {
		return
	}

	switch appt.Status {
	case model.AppointmentStatusConfirmed:
		err = s.emailSvc.SendAppointmentConfirmed(ctx, patient.Email, patient.Name, doctor.Name, appt.Date, appt.Time)
	case model.AppointmentStatusCancelled:
		err = s.emailSvc.SendAppointmentCancelled(ctx, patient.Email, patient.Name, doctor.Name, appt.Date, appt.Time)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("failed to send status email",
			"appointment_id", appt.ID.String(), "error", err.Error())
	}
}
