package filter

import (
	"strings"
	"time"

	"github.com/histotrack/pathlab-api/internal/models"
)

// SampleCriteria is the sparse search form for samples. Absent fields impose
// no constraint.
type SampleCriteria struct {
	PatientID        string
	DoctorID         string
	Status           *models.SampleStatus
	TissueType       string
	CollectedFrom    *time.Time
	CollectedTo      *time.Time
	ReadyForAnalysis *bool
	WithoutReport    *bool
}

// HasAny reports whether at least one criterion is present.
func (c SampleCriteria) HasAny() bool {
	return c.PatientID != "" || c.DoctorID != "" || c.Status != nil ||
		c.TissueType != "" || c.CollectedFrom != nil || c.CollectedTo != nil ||
		c.ReadyForAnalysis != nil || c.WithoutReport != nil
}

// Build compiles the criteria. SQL column references assume the sample table
// aliased as s, with measurements m, sample_images i and reports r available
// for EXISTS subqueries.
func (c SampleCriteria) Build() *Builder[models.SampleSearchRow] {
	b := &Builder[models.SampleSearchRow]{}

	if c.PatientID != "" {
		id := c.PatientID
		b.Add(func(row models.SampleSearchRow) bool { return row.PatientID == id },
			"s.patient_id = ?", id)
	}
	if c.DoctorID != "" {
		id := c.DoctorID
		b.Add(func(row models.SampleSearchRow) bool { return row.RequestingDoctorID == id },
			"s.requesting_doctor_id = ?", id)
	}
	if c.Status != nil {
		status := *c.Status
		b.Add(func(row models.SampleSearchRow) bool { return row.Status == status },
			"s.status = ?", string(status))
	}
	if c.TissueType != "" {
		needle := c.TissueType
		b.Add(func(row models.SampleSearchRow) bool { return ContainsFold(row.TissueType, needle) },
			"LOWER(s.tissue_type) LIKE ?", "%"+strings.ToLower(needle)+"%")
	}
	switch {
	case c.CollectedFrom != nil && c.CollectedTo != nil:
		from, to := *c.CollectedFrom, *c.CollectedTo
		b.Add(func(row models.SampleSearchRow) bool {
			return !row.CollectionDate.Before(from) && !row.CollectionDate.After(to)
		}, "s.collection_date BETWEEN ? AND ?", from, to)
	case c.CollectedFrom != nil:
		from := *c.CollectedFrom
		b.Add(func(row models.SampleSearchRow) bool { return !row.CollectionDate.Before(from) },
			"s.collection_date >= ?", from)
	case c.CollectedTo != nil:
		to := *c.CollectedTo
		b.Add(func(row models.SampleSearchRow) bool { return !row.CollectionDate.After(to) },
			"s.collection_date <= ?", to)
	}
	if c.ReadyForAnalysis != nil && *c.ReadyForAnalysis {
		b.Add(func(row models.SampleSearchRow) bool { return row.ReadyForAnalysis() },
			"EXISTS (SELECT 1 FROM measurements m WHERE m.sample_id = s.id) AND EXISTS (SELECT 1 FROM sample_images i WHERE i.sample_id = s.id)")
	}
	if c.WithoutReport != nil && *c.WithoutReport {
		b.Add(func(row models.SampleSearchRow) bool { return !row.HasReport },
			"NOT EXISTS (SELECT 1 FROM reports r WHERE r.sample_id = s.id)")
	}

	return b
}

// DoctorCriteria is the sparse search form for doctors.
type DoctorCriteria struct {
	Name          string
	License       string
	LicenseRegion string
	Specialty     string
	Role          *models.DoctorRole
	Active        *bool
}

// HasAny reports whether at least one criterion is present.
func (c DoctorCriteria) HasAny() bool {
	return c.Name != "" || c.License != "" || c.LicenseRegion != "" ||
		c.Specialty != "" || c.Role != nil || c.Active != nil
}

// Build compiles the criteria against the doctors table aliased as d.
func (c DoctorCriteria) Build() *Builder[models.Doctor] {
	b := &Builder[models.Doctor]{}

	if c.Name != "" {
		needle := c.Name
		b.Add(func(d models.Doctor) bool { return ContainsFold(d.FullName, needle) },
			"LOWER(d.full_name) LIKE ?", "%"+strings.ToLower(needle)+"%")
	}
	if c.License != "" {
		license := c.License
		b.Add(func(d models.Doctor) bool { return d.License == license },
			"d.license = ?", license)
	}
	if c.LicenseRegion != "" {
		region := strings.ToUpper(c.LicenseRegion)
		b.Add(func(d models.Doctor) bool { return d.LicenseRegion == region },
			"d.license_region = ?", region)
	}
	if c.Specialty != "" {
		needle := c.Specialty
		b.Add(func(d models.Doctor) bool { return ContainsFold(d.Specialty, needle) },
			"LOWER(d.specialty) LIKE ?", "%"+strings.ToLower(needle)+"%")
	}
	if c.Role != nil {
		role := *c.Role
		b.Add(func(d models.Doctor) bool { return d.Role == role },
			"d.role = ?", string(role))
	}
	if c.Active != nil {
		active := *c.Active
		b.Add(func(d models.Doctor) bool { return d.Active == active },
			"d.active = ?", active)
	}

	return b
}

// PatientCriteria is the sparse search form for patients.
type PatientCriteria struct {
	Name        string
	NationalID  string
	Sex         *models.Sex
	BornFrom    *time.Time
	BornTo      *time.Time
	WithSamples *bool
}

// HasAny reports whether at least one criterion is present.
func (c PatientCriteria) HasAny() bool {
	return c.Name != "" || c.NationalID != "" || c.Sex != nil ||
		c.BornFrom != nil || c.BornTo != nil || c.WithSamples != nil
}

// PatientRow is a patient with the sample linkage needed by the
// with-samples criterion.
type PatientRow struct {
	models.Patient
	SampleCount int `db:"sample_count" json:"sample_count"`
}

// Build compiles the criteria against the patients table aliased as p.
func (c PatientCriteria) Build() *Builder[PatientRow] {
	b := &Builder[PatientRow]{}

	if c.Name != "" {
		needle := c.Name
		b.Add(func(p PatientRow) bool { return ContainsFold(p.FullName, needle) },
			"LOWER(p.full_name) LIKE ?", "%"+strings.ToLower(needle)+"%")
	}
	if c.NationalID != "" {
		id := c.NationalID
		b.Add(func(p PatientRow) bool { return p.NationalID == id },
			"p.national_id = ?", id)
	}
	if c.Sex != nil {
		sex := *c.Sex
		b.Add(func(p PatientRow) bool { return p.Sex == sex },
			"p.sex = ?", string(sex))
	}
	switch {
	case c.BornFrom != nil && c.BornTo != nil:
		from, to := *c.BornFrom, *c.BornTo
		b.Add(func(p PatientRow) bool {
			return !p.BirthDate.Before(from) && !p.BirthDate.After(to)
		}, "p.birth_date BETWEEN ? AND ?", from, to)
	case c.BornFrom != nil:
		from := *c.BornFrom
		b.Add(func(p PatientRow) bool { return !p.BirthDate.Before(from) },
			"p.birth_date >= ?", from)
	case c.BornTo != nil:
		to := *c.BornTo
		b.Add(func(p PatientRow) bool { return !p.BirthDate.After(to) },
			"p.birth_date <= ?", to)
	}
	if c.WithSamples != nil && *c.WithSamples {
		b.Add(func(p PatientRow) bool { return p.SampleCount > 0 },
			"EXISTS (SELECT 1 FROM samples s WHERE s.patient_id = p.id)")
	}

	return b
}
