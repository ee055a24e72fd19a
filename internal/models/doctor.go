package models

import (
	"fmt"
	"regexp"
	"time"

	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

// DoctorRole distinguishes the two mutually exclusive roles a doctor plays:
// requesting physician on samples, pathologist on reports.
type DoctorRole string

const (
	DoctorRoleRequesting  DoctorRole = "REQUESTING"
	DoctorRolePathologist DoctorRole = "PATHOLOGIST"
)

// ParseDoctorRole validates a raw role string.
func ParseDoctorRole(raw string) (DoctorRole, error) {
	switch DoctorRole(raw) {
	case DoctorRoleRequesting, DoctorRolePathologist:
		return DoctorRole(raw), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown doctor role %q", raw))
}

var licensePattern = regexp.MustCompile(`^\d{4,8}$`)

// Doctor is a medical professional referenced by samples and reports.
type Doctor struct {
	ID            string     `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	License       string     `db:"license" json:"license"`
	LicenseRegion string     `db:"license_region" json:"license_region"`
	Specialty     string     `db:"specialty" json:"specialty"`
	Role          DoctorRole `db:"role" json:"role"`
	Phone         string     `db:"phone" json:"phone"`
	Email         string     `db:"email" json:"email"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	CreatedBy     string     `db:"created_by" json:"created_by"`
}

// ValidLicense checks the numeric license format.
func (d Doctor) ValidLicense() bool {
	return licensePattern.MatchString(d.License)
}
