package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type doctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	ExistsByLicense(ctx context.Context, license, region, excludeID string) (bool, error)
	Search(ctx context.Context, criteria filter.DoctorCriteria, page, size int) ([]models.Doctor, int, error)
	Create(ctx context.Context, doctor *models.Doctor) error
	Update(ctx context.Context, doctor *models.Doctor) error
	SetActive(ctx context.Context, id string, active bool) error
}

// CreateDoctorRequest holds payload for registering doctors.
type CreateDoctorRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	License       string `json:"license" validate:"required"`
	LicenseRegion string `json:"license_region" validate:"required,len=2"`
	Specialty     string `json:"specialty"`
	Role          string `json:"role" validate:"required"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
}

// UpdateDoctorRequest holds payload for editing doctors.
type UpdateDoctorRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	License       string `json:"license" validate:"required"`
	LicenseRegion string `json:"license_region" validate:"required,len=2"`
	Specialty     string `json:"specialty"`
	Role          string `json:"role" validate:"required"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
}

// DoctorService handles doctor reference-data use-cases.
type DoctorService struct {
	repo      doctorRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDoctorService constructs the doctor service.
func NewDoctorService(repo doctorRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Get returns a doctor by id.
func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

// Search returns doctors matching the criteria with pagination metadata.
func (s *DoctorService) Search(ctx context.Context, criteria filter.DoctorCriteria, page, size int) ([]models.Doctor, *models.Pagination, error) {
	doctors, total, err := s.repo.Search(ctx, criteria, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search doctors")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return doctors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a new doctor.
func (s *DoctorService) Create(ctx context.Context, req CreateDoctorRequest) (*models.Doctor, error) {
	doctor, err := s.build(ctx, req.FullName, req.License, req.LicenseRegion, req.Specialty, req.Role, req.Phone, req.Email, "", &req)
	if err != nil {
		return nil, err
	}
	doctor.Active = true
	doctor.CreatedBy = actorFrom(ctx)
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create doctor")
	}
	s.audit.Record("doctors", doctor.ID, "CREATE", actorFrom(ctx), doctor)
	return doctor, nil
}

// Update modifies an existing doctor.
func (s *DoctorService) Update(ctx context.Context, id string, req UpdateDoctorRequest) (*models.Doctor, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doctor, err := s.build(ctx, req.FullName, req.License, req.LicenseRegion, req.Specialty, req.Role, req.Phone, req.Email, id, &req)
	if err != nil {
		return nil, err
	}
	doctor.ID = current.ID
	doctor.Active = current.Active
	doctor.CreatedAt = current.CreatedAt
	doctor.CreatedBy = current.CreatedBy
	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update doctor")
	}
	s.audit.Record("doctors", doctor.ID, "UPDATE", actorFrom(ctx), doctor)
	return doctor, nil
}

// SetActive toggles a doctor's active flag.
func (s *DoctorService) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change doctor activation")
	}
	action := "DEACTIVATE"
	if active {
		action = "ACTIVATE"
	}
	s.audit.Record("doctors", id, action, actorFrom(ctx), nil)
	return nil
}

func (s *DoctorService) build(ctx context.Context, fullName, license, region, specialty, role, phone, email, excludeID string, req interface{}) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}
	parsedRole, err := models.ParseDoctorRole(role)
	if err != nil {
		return nil, err
	}
	doctor := &models.Doctor{
		FullName:      fullName,
		License:       license,
		LicenseRegion: strings.ToUpper(region),
		Specialty:     specialty,
		Role:          parsedRole,
		Phone:         phone,
		Email:         email,
	}
	if !doctor.ValidLicense() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "license must be 4 to 8 digits")
	}
	exists, err := s.repo.ExistsByLicense(ctx, doctor.License, doctor.LicenseRegion, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate license")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "license already registered in this region")
	}
	return doctor, nil
}
