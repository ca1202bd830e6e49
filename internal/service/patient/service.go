package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/security"
)

type Service interface {
	Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
}

type service struct {
	repo   repository.PatientRepository
	hasher security.PasswordHasher
}

func NewService(repo repository.PatientRepository, hasher security.PasswordHasher) Service {
	return &service{repo: repo, hasher: hasher}
}

func (s *service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.NewBadRequest(err.Error(), err)
	}

	patient := &model.Patient{
		Name:         req.Name,
		BloodGroup:   req.BloodGroup,
		DOB:          req.DOB,
		Address:      req.Address,
		Phone:        req.Phone,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.BloodGroup != nil {
		patient.BloodGroup = *req.BloodGroup
	}
	if req.DOB != nil {
		patient.DOB = *req.DOB
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Delete refuses to remove a patient that still has appointments on
// file; the booking history must be cleared first.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.CountAppointments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.NewConflict("cannot delete patient with existing appointments")
	}

	return s.repo.Delete(ctx, id)
}

func (s *service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return s.repo.List(ctx, filters)
}
