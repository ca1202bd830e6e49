package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository"
	"github.com/medisched/hms-api/pkg/errors"
)

const defaultTopRatedLimit = 5

type Service interface {
	Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
	TopRated(ctx context.Context, limit int) ([]*model.DoctorRating, error)
}

type service struct {
	repo repository.DoctorRepository
}

func NewService(repo repository.DoctorRepository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	doctor := &model.Doctor{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		Expertise:  req.Expertise,
		Experience: req.Experience,
		Gender:     req.Gender,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}
	if req.Address != nil {
		doctor.Address = *req.Address
	}
	if req.Expertise != nil {
		doctor.Expertise = *req.Expertise
	}
	if req.Experience != nil {
		doctor.Experience = *req.Experience
	}
	if req.Gender != nil {
		doctor.Gender = *req.Gender
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.CountAppointments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.NewConflict("cannot delete doctor with existing appointments")
	}

	return s.repo.Delete(ctx, id)
}

func (s *service) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) TopRated(ctx context.Context, limit int) ([]*model.DoctorRating, error) {
	if limit <= 0 {
		limit = defaultTopRatedLimit
	}
	return s.repo.TopRated(ctx, limit)
}
