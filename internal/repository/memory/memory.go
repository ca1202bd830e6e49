// Package memory provides map-backed repository implementations that
// mirror the postgres semantics, including the active-slot uniqueness
// and feedback uniqueness constraints. They back the service tests and
// are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/pkg/errors"
)

type Store struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]*model.Patient
	doctors      map[uuid.UUID]*model.Doctor
	appointments map[uuid.UUID]*model.Appointment
	schedules    map[uuid.UUID]uuid.UUID // appointmentID -> patientID
	feedback     map[uuid.UUID]*model.Feedback
	admins       map[string]*model.Admin
	outbox       []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		patients:     make(map[uuid.UUID]*model.Patient),
		doctors:      make(map[uuid.UUID]*model.Doctor),
		appointments: make(map[uuid.UUID]*model.Appointment),
		schedules:    make(map[uuid.UUID]uuid.UUID),
		feedback:     make(map[uuid.UUID]*model.Feedback),
		admins:       make(map[string]*model.Admin),
	}
}

// Patients returns the patient repository view of the store.
func (s *Store) Patients() *PatientRepo         { return &PatientRepo{s} }
func (s *Store) Doctors() *DoctorRepo           { return &DoctorRepo{s} }
func (s *Store) Appointments() *AppointmentRepo { return &AppointmentRepo{s} }
func (s *Store) Feedback() *FeedbackRepo        { return &FeedbackRepo{s} }
func (s *Store) Admins() *AdminRepo             { return &AdminRepo{s} }
func (s *Store) Outbox() *OutboxRepo            { return &OutboxRepo{s} }

type PatientRepo struct{ s *Store }

func (r *PatientRepo) Create(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.patients {
		if existing.Email == p.Email {
			return errors.NewConflict("a patient with this email already exists")
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.patients[p.ID] = &cp
	return nil
}

func (r *PatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, errors.NewNotFound("patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepo) GetByEmail(_ context.Context, email string) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.patients {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.NewNotFound("patient", nil)
}

func (r *PatientRepo) Update(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[p.ID]; !ok {
		return errors.NewNotFound("patient", nil)
	}
	p.UpdatedAt = time.Now()
	cp := *p
	r.s.patients[p.ID] = &cp
	return nil
}

func (r *PatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[id]; !ok {
		return errors.NewNotFound("patient", nil)
	}
	delete(r.s.patients, id)
	return nil
}

func (r *PatientRepo) List(_ context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Patient
	for _, p := range r.s.patients {
		if filters != nil && filters.SearchTerm != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.SearchTerm)) &&
			!strings.Contains(strings.ToLower(p.Email), strings.ToLower(filters.SearchTerm)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *PatientRepo) CountAppointments(_ context.Context, patientID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, a := range r.s.appointments {
		if a.PatientID == patientID {
			count++
		}
	}
	return count, nil
}

type DoctorRepo struct{ s *Store }

func (r *DoctorRepo) Create(_ context.Context, d *model.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	r.s.doctors[d.ID] = &cp
	return nil
}

func (r *DoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, errors.NewNotFound("doctor", nil)
	}
	cp := *d
	return &cp, nil
}

func (r *DoctorRepo) Update(_ context.Context, d *model.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.doctors[d.ID]; !ok {
		return errors.NewNotFound("doctor", nil)
	}
	d.UpdatedAt = time.Now()
	cp := *d
	r.s.doctors[d.ID] = &cp
	return nil
}

func (r *DoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.doctors[id]; !ok {
		return errors.NewNotFound("doctor", nil)
	}
	delete(r.s.doctors, id)
	return nil
}

func (r *DoctorRepo) List(_ context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Doctor
	for _, d := range r.s.doctors {
		if filters != nil {
			if filters.Expertise != "" && d.Expertise != filters.Expertise {
				continue
			}
			if filters.SearchTerm != "" &&
				!strings.Contains(strings.ToLower(d.Name), strings.ToLower(filters.SearchTerm)) &&
				!strings.Contains(strings.ToLower(d.Expertise), strings.ToLower(filters.SearchTerm)) {
				continue
			}
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DoctorRepo) TopRated(_ context.Context, limit int) ([]*model.DoctorRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.DoctorRating
	for _, d := range r.s.doctors {
		sum, count := 0, 0
		for _, f := range r.s.feedback {
			if f.ReceiverType == model.PersonTypeDoctor && f.ReceiverID == d.ID {
				sum += f.Rating
				count++
			}
		}
		rating := &model.DoctorRating{Doctor: *d, ReviewCount: count}
		if count > 0 {
			rating.AvgRating = float64(sum) / float64(count)
		}
		out = append(out, rating)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgRating != out[j].AvgRating {
			return out[i].AvgRating > out[j].AvgRating
		}
		return out[i].ReviewCount > out[j].ReviewCount
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DoctorRepo) CountAppointments(_ context.Context, doctorID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, a := range r.s.appointments {
		if a.DoctorID == doctorID {
			count++
		}
	}
	return count, nil
}

type AppointmentRepo struct{ s *Store }

// slotTakenLocked mirrors the postgres partial unique index: an active
// appointment occupies its (doctor, date, time) triple.
func (s *Store) slotTakenLocked(doctorID uuid.UUID, date, timeSlot string, excludeID *uuid.UUID) bool {
	for _, a := range s.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date == date && a.Time == timeSlot && a.Status.IsActive() {
			return true
		}
	}
	return false
}

func (s *Store) syncScheduleLocked(a *model.Appointment) {
	if a.Status == model.AppointmentStatusConfirmed {
		s.schedules[a.ID] = a.PatientID
	} else {
		delete(s.schedules, a.ID)
	}
}

func (s *Store) detailLocked(a *model.Appointment) *model.AppointmentDetail {
	detail := &model.AppointmentDetail{Appointment: *a}
	if p, ok := s.patients[a.PatientID]; ok {
		detail.Patient = model.PatientSummary{
			ID: p.ID, Name: p.Name, BloodGroup: p.BloodGroup,
			Email: p.Email, Phone: p.Phone,
		}
	}
	if d, ok := s.doctors[a.DoctorID]; ok {
		detail.Doctor = model.DoctorSummary{
			ID: d.ID, Name: d.Name, Expertise: d.Expertise, Phone: d.Phone,
		}
	}
	return detail
}

func (r *AppointmentRepo) Create(_ context.Context, appt *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if appt.Status.IsActive() && r.s.slotTakenLocked(appt.DoctorID, appt.Date, appt.Time, nil) {
		return errors.NewSlotConflict("The doctor", appt.Date, appt.Time)
	}
	appt.ID = uuid.New()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	cp := *appt
	r.s.appointments[appt.ID] = &cp
	r.s.syncScheduleLocked(&cp)
	return nil
}

func (r *AppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, errors.NewNotFound("appointment", nil)
	}
	cp := *a
	return &cp, nil
}

func (r *AppointmentRepo) GetDetail(_ context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, errors.NewNotFound("appointment", nil)
	}
	return r.s.detailLocked(a), nil
}

func (r *AppointmentRepo) Update(_ context.Context, appt *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[appt.ID]; !ok {
		return errors.NewNotFound("appointment", nil)
	}
	if appt.Status.IsActive() && r.s.slotTakenLocked(appt.DoctorID, appt.Date, appt.Time, &appt.ID) {
		return errors.NewSlotConflict("The doctor", appt.Date, appt.Time)
	}
	appt.UpdatedAt = time.Now()
	cp := *appt
	r.s.appointments[appt.ID] = &cp
	r.s.syncScheduleLocked(&cp)
	return nil
}

func (r *AppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return errors.NewNotFound("appointment", nil)
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	r.s.syncScheduleLocked(a)
	return nil
}

func (r *AppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[id]; !ok {
		return errors.NewNotFound("appointment", nil)
	}
	delete(r.s.schedules, id)
	delete(r.s.appointments, id)
	return nil
}

func (r *AppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.AppointmentDetail
	for _, a := range r.s.appointments {
		if filters != nil {
			if filters.DoctorID != nil && a.DoctorID != *filters.DoctorID {
				continue
			}
			if filters.PatientID != nil && a.PatientID != *filters.PatientID {
				continue
			}
			if filters.Status != "" && a.Status != filters.Status {
				continue
			}
			if filters.Date != "" && a.Date != filters.Date {
				continue
			}
		}
		out = append(out, r.s.detailLocked(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Time > out[j].Time
	})
	return out, nil
}

func (r *AppointmentRepo) ListUpcoming(_ context.Context, fromDate string, limit int) ([]*model.AppointmentDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.AppointmentDetail
	for _, a := range r.s.appointments {
		if a.Date >= fromDate && a.Status == model.AppointmentStatusConfirmed {
			out = append(out, r.s.detailLocked(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AppointmentRepo) IsSlotTaken(_ context.Context, doctorID uuid.UUID, date, timeSlot string, excludeID *uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.slotTakenLocked(doctorID, date, timeSlot, excludeID), nil
}

func (r *AppointmentRepo) HasSchedule(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.schedules[appointmentID]
	return ok, nil
}

func (r *AppointmentRepo) CountOnDate(_ context.Context, date string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, a := range r.s.appointments {
		if a.Date == date {
			count++
		}
	}
	return count, nil
}

func (r *AppointmentRepo) CountConfirmedFrom(_ context.Context, fromDate string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, a := range r.s.appointments {
		if a.Date >= fromDate && a.Status == model.AppointmentStatusConfirmed {
			count++
		}
	}
	return count, nil
}

type FeedbackRepo struct{ s *Store }

func (r *FeedbackRepo) Create(_ context.Context, fb *model.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.feedback {
		if existing.AppointmentID == fb.AppointmentID &&
			existing.GivenBy == fb.GivenBy && existing.GivenByID == fb.GivenByID {
			return errors.NewDuplicateFeedback()
		}
	}
	fb.ID = uuid.New()
	fb.CreatedAt = time.Now()
	cp := *fb
	r.s.feedback[fb.ID] = &cp
	return nil
}

func (r *FeedbackRepo) Get(_ context.Context, id uuid.UUID) (*model.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fb, ok := r.s.feedback[id]
	if !ok {
		return nil, errors.NewNotFound("feedback", nil)
	}
	cp := *fb
	return &cp, nil
}

func (r *FeedbackRepo) Update(_ context.Context, fb *model.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.feedback[fb.ID]
	if !ok {
		return errors.NewNotFound("feedback", nil)
	}
	existing.Rating = fb.Rating
	existing.Comments = fb.Comments
	return nil
}

func (r *FeedbackRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.feedback[id]; !ok {
		return errors.NewNotFound("feedback", nil)
	}
	delete(r.s.feedback, id)
	return nil
}

func (r *FeedbackRepo) List(_ context.Context) ([]*model.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedFeedbackLocked(nil), nil
}

func (r *FeedbackRepo) ListRecent(_ context.Context, limit int) ([]*model.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.s.sortedFeedbackLocked(nil)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FeedbackRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*model.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedFeedbackLocked(func(f *model.Feedback) bool {
		return f.AppointmentID == appointmentID
	}), nil
}

func (r *FeedbackRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedFeedbackLocked(func(f *model.Feedback) bool {
		a, ok := r.s.appointments[f.AppointmentID]
		return ok && a.PatientID == patientID
	}), nil
}

func (s *Store) sortedFeedbackLocked(keep func(*model.Feedback) bool) []*model.Feedback {
	var out []*model.Feedback
	for _, f := range s.feedback {
		if keep != nil && !keep(f) {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *FeedbackRepo) Exists(_ context.Context, appointmentID uuid.UUID, givenBy model.PersonType, givenByID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.feedback {
		if f.AppointmentID == appointmentID && f.GivenBy == givenBy && f.GivenByID == givenByID {
			return true, nil
		}
	}
	return false, nil
}

func (r *FeedbackRepo) CountByAppointment(_ context.Context, appointmentID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, f := range r.s.feedback {
		if f.AppointmentID == appointmentID {
			count++
		}
	}
	return count, nil
}

func (r *FeedbackRepo) AverageRating(_ context.Context) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.feedback) == 0 {
		return 0, nil
	}
	sum := 0
	for _, f := range r.s.feedback {
		sum += f.Rating
	}
	return float64(sum) / float64(len(r.s.feedback)), nil
}

type AdminRepo struct{ s *Store }

func (r *AdminRepo) Create(_ context.Context, admin *model.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[admin.Username]; ok {
		return errors.NewConflict("an admin with this username already exists")
	}
	admin.ID = uuid.New()
	admin.CreatedAt = time.Now()
	cp := *admin
	r.s.admins[admin.Username] = &cp
	return nil
}

func (r *AdminRepo) GetByUsername(_ context.Context, username string) (*model.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[username]
	if !ok {
		return nil, errors.NewNotFound("admin", nil)
	}
	cp := *a
	return &cp, nil
}

type OutboxRepo struct{ s *Store }

func (r *OutboxRepo) CreateEvent(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()
	cp := *event
	r.s.outbox = append(r.s.outbox, &cp)
	return nil
}

func (r *OutboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusPending {
			cp := *e
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, model.OutboxStatusProcessed, nil)
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	return r.setStatus(id, model.OutboxStatusFailed, &errMsg)
}

func (r *OutboxRepo) IncrementRetry(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.RetryCount++
			return nil
		}
	}
	return errors.NewNotFound("outbox event", nil)
}

func (r *OutboxRepo) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var kept []*model.OutboxEvent
	var removed int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return removed, nil
}

func (r *OutboxRepo) setStatus(id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.Status = status
			e.ErrorMessage = errMsg
			if status == model.OutboxStatusProcessed {
				now := time.Now()
				e.ProcessedAt = &now
			}
			return nil
		}
	}
	return errors.NewNotFound("outbox event", nil)
}

// Events returns a snapshot of all outbox events, oldest first.
func (r *OutboxRepo) Events() []*model.OutboxEvent {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.OutboxEvent, 0, len(r.s.outbox))
	for _, e := range r.s.outbox {
		cp := *e
		out = append(out, &cp)
	}
	return out
}
