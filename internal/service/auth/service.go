package auth

import (
	"context"
	"time"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository"
	"github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/security"
)

type Service interface {
	AdminLogin(ctx context.Context, req *model.AdminLoginRequest) (*model.TokenResponse, error)
	PatientLogin(ctx context.Context, req *model.PatientLoginRequest) (*model.TokenResponse, error)
	RegisterPatient(ctx context.Context, req *model.CreatePatientRequest) (*model.TokenResponse, error)
	RegisterAdmin(ctx context.Context, username, password string) (*model.Admin, error)
}

type service struct {
	adminRepo   repository.AdminRepository
	patientRepo repository.PatientRepository
	jwtSvc      auth.JWTService
	hasher      security.PasswordHasher
	tokenExpiry time.Duration
}

func NewService(adminRepo repository.AdminRepository, patientRepo repository.PatientRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, tokenExpiry time.Duration) Service {
	return &service{
		adminRepo:   adminRepo,
		patientRepo: patientRepo,
		jwtSvc:      jwtSvc,
		hasher:      hasher,
		tokenExpiry: tokenExpiry,
	}
}

func (s *service) AdminLogin(ctx context.Context, req *model.AdminLoginRequest) (*model.TokenResponse, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Do not reveal whether the username exists.
		return nil, errors.NewUnauthorized("invalid username or password")
	}
	if err := s.hasher.Compare(admin.PasswordHash, req.Password); err != nil {
		return nil, errors.NewUnauthorized("invalid username or password")
	}

	token, err := s.jwtSvc.Generate(admin.ID, auth.RoleAdmin, admin.Username)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &model.TokenResponse{
		Token:     token,
		Role:      string(auth.RoleAdmin),
		ExpiresAt: time.Now().Add(s.tokenExpiry),
		User:      admin,
	}, nil
}

func (s *service) PatientLogin(ctx context.Context, req *model.PatientLoginRequest) (*model.TokenResponse, error) {
	patient, err := s.patientRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.NewUnauthorized("invalid email or password")
	}
	if err := s.hasher.Compare(patient.PasswordHash, req.Password); err != nil {
		return nil, errors.NewUnauthorized("invalid email or password")
	}

	token, err := s.jwtSvc.Generate(patient.ID, auth.RolePatient, patient.Name)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &model.TokenResponse{
		Token:     token,
		Role:      string(auth.RolePatient),
		ExpiresAt: time.Now().Add(s.tokenExpiry),
		User:      patient,
	}, nil
}

func (s *service) RegisterPatient(ctx context.Context, req *model.CreatePatientRequest) (*model.TokenResponse, error) {
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
	if err := s.patientRepo.Create(ctx, patient); err != nil {
		return nil, err
	}

	token, err := s.jwtSvc.Generate(patient.ID, auth.RolePatient, patient.Name)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &model.TokenResponse{
		Token:     token,
		Role:      string(auth.RolePatient),
		ExpiresAt: time.Now().Add(s.tokenExpiry),
		User:      patient,
	}, nil
}

func (s *service) RegisterAdmin(ctx context.Context, username, password string) (*model.Admin, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.NewBadRequest(err.Error(), err)
	}

	admin := &model.Admin{
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
