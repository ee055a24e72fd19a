package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type patientRepository interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	ExistsByNationalID(ctx context.Context, nationalID, excludeID string) (bool, error)
	Search(ctx context.Context, criteria filter.PatientCriteria, page, size int) ([]filter.PatientRow, int, error)
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	HasSamples(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// CreatePatientRequest holds payload for registering patients.
type CreatePatientRequest struct {
	FullName   string    `json:"full_name" validate:"required"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date" validate:"required"`
	Sex        string    `json:"sex" validate:"required"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Address    string    `json:"address"`
}

// UpdatePatientRequest holds payload for editing patients.
type UpdatePatientRequest struct {
	FullName   string    `json:"full_name" validate:"required"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date" validate:"required"`
	Sex        string    `json:"sex" validate:"required"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Address    string    `json:"address"`
}

// PatientService handles patient reference-data use-cases.
type PatientService struct {
	repo      patientRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPatientService constructs the patient service.
func NewPatientService(repo patientRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Get returns a patient by id.
func (s *PatientService) Get(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// Search returns patients matching the criteria with pagination metadata.
func (s *PatientService) Search(ctx context.Context, criteria filter.PatientCriteria, page, size int) ([]filter.PatientRow, *models.Pagination, error) {
	patients, total, err := s.repo.Search(ctx, criteria, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search patients")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return patients, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a new patient.
func (s *PatientService) Create(ctx context.Context, req CreatePatientRequest) (*models.Patient, error) {
	patient, err := s.build(ctx, req.FullName, req.NationalID, req.BirthDate, req.Sex, req.Phone, req.Email, req.Address, "", &req)
	if err != nil {
		return nil, err
	}
	patient.CreatedBy = actorFrom(ctx)
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create patient")
	}
	s.audit.Record("patients", patient.ID, "CREATE", actorFrom(ctx), patient)
	return patient, nil
}

// Update modifies an existing patient.
func (s *PatientService) Update(ctx context.Context, id string, req UpdatePatientRequest) (*models.Patient, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patient, err := s.build(ctx, req.FullName, req.NationalID, req.BirthDate, req.Sex, req.Phone, req.Email, req.Address, id, &req)
	if err != nil {
		return nil, err
	}
	patient.ID = current.ID
	patient.CreatedAt = current.CreatedAt
	patient.CreatedBy = current.CreatedBy
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update patient")
	}
	s.audit.Record("patients", patient.ID, "UPDATE", actorFrom(ctx), patient)
	return patient, nil
}

// Delete removes a patient without samples.
func (s *PatientService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	hasSamples, err := s.repo.HasSamples(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check patient samples")
	}
	if hasSamples {
		return appErrors.Clone(appErrors.ErrBusinessRule, "patient has samples and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete patient")
	}
	s.audit.Record("patients", id, "DELETE", actorFrom(ctx), nil)
	return nil
}

func (s *PatientService) build(ctx context.Context, fullName, nationalID string, birthDate time.Time, sex, phone, email, address, excludeID string, req interface{}) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload")
	}
	parsedSex, err := models.ParseSex(sex)
	if err != nil {
		return nil, err
	}
	if birthDate.After(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date cannot be in the future")
	}
	patient := &models.Patient{
		FullName:   fullName,
		NationalID: nationalID,
		BirthDate:  birthDate,
		Sex:        parsedSex,
		Phone:      phone,
		Email:      email,
		Address:    address,
	}
	if !patient.ValidNationalID() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "national id failed checksum validation")
	}
	if nationalID != "" {
		exists, err := s.repo.ExistsByNationalID(ctx, nationalID, excludeID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate national id")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrBusinessRule, "national id already registered")
		}
	}
	return patient, nil
}
