package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type mockDoctorRepo struct {
	items        map[string]*models.Doctor
	licenseOwner map[string]string // license+region -> id
	searchResult []models.Doctor
	searchTotal  int
	toggled      []string
}

func (m *mockDoctorRepo) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	if d, ok := m.items[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDoctorRepo) ExistsByLicense(ctx context.Context, license, region, excludeID string) (bool, error) {
	if owner, ok := m.licenseOwner[license+"/"+region]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDoctorRepo) Search(ctx context.Context, criteria filter.DoctorCriteria, page, size int) ([]models.Doctor, int, error) {
	return m.searchResult, m.searchTotal, nil
}

func (m *mockDoctorRepo) Create(ctx context.Context, doctor *models.Doctor) error {
	if m.items == nil {
		m.items = make(map[string]*models.Doctor)
	}
	if doctor.ID == "" {
		doctor.ID = "generated"
	}
	cp := *doctor
	m.items[doctor.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) Update(ctx context.Context, doctor *models.Doctor) error {
	cp := *doctor
	m.items[doctor.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) SetActive(ctx context.Context, id string, active bool) error {
	m.toggled = append(m.toggled, id)
	if d, ok := m.items[id]; ok {
		d.Active = active
	}
	return nil
}

func newDoctorServiceForTest(repo *mockDoctorRepo) *DoctorService {
	return NewDoctorService(repo, disabledAudit(), validator.New(), zap.NewNop())
}

func TestDoctorServiceCreate(t *testing.T) {
	repo := &mockDoctorRepo{}
	svc := newDoctorServiceForTest(repo)

	doctor, err := svc.Create(context.Background(), CreateDoctorRequest{
		FullName:      "Dra. Ana Silva",
		License:       "12345",
		LicenseRegion: "sp",
		Role:          "PATHOLOGIST",
	})
	require.NoError(t, err)
	assert.Equal(t, "SP", doctor.LicenseRegion)
	assert.Equal(t, models.DoctorRolePathologist, doctor.Role)
	assert.True(t, doctor.Active)
}

func TestDoctorServiceCreateInvalidLicense(t *testing.T) {
	svc := newDoctorServiceForTest(&mockDoctorRepo{})

	_, err := svc.Create(context.Background(), CreateDoctorRequest{
		FullName:      "Dra. Ana Silva",
		License:       "12A",
		LicenseRegion: "SP",
		Role:          "PATHOLOGIST",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestDoctorServiceCreateUnknownRole(t *testing.T) {
	svc := newDoctorServiceForTest(&mockDoctorRepo{})

	_, err := svc.Create(context.Background(), CreateDoctorRequest{
		FullName:      "Dra. Ana Silva",
		License:       "12345",
		LicenseRegion: "SP",
		Role:          "SURGEON",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestDoctorServiceCreateDuplicateLicense(t *testing.T) {
	repo := &mockDoctorRepo{licenseOwner: map[string]string{"12345/SP": "other"}}
	svc := newDoctorServiceForTest(repo)

	_, err := svc.Create(context.Background(), CreateDoctorRequest{
		FullName:      "Dra. Ana Silva",
		License:       "12345",
		LicenseRegion: "SP",
		Role:          "PATHOLOGIST",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}

func TestDoctorServiceUpdateKeepsOwnLicense(t *testing.T) {
	repo := &mockDoctorRepo{
		items: map[string]*models.Doctor{
			"d1": {ID: "d1", FullName: "Dra. Ana Silva", License: "12345", LicenseRegion: "SP", Role: models.DoctorRolePathologist, Active: true},
		},
		licenseOwner: map[string]string{"12345/SP": "d1"},
	}
	svc := newDoctorServiceForTest(repo)

	doctor, err := svc.Update(context.Background(), "d1", UpdateDoctorRequest{
		FullName:      "Dra. Ana Silva Santos",
		License:       "12345",
		LicenseRegion: "SP",
		Role:          "PATHOLOGIST",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dra. Ana Silva Santos", doctor.FullName)
	assert.True(t, doctor.Active)
}

func TestDoctorServiceSetActive(t *testing.T) {
	repo := &mockDoctorRepo{items: map[string]*models.Doctor{
		"d1": {ID: "d1", Active: true},
	}}
	svc := newDoctorServiceForTest(repo)

	require.NoError(t, svc.SetActive(context.Background(), "d1", false))
	assert.False(t, repo.items["d1"].Active)

	err := svc.SetActive(context.Background(), "missing", false)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
