package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Measurement is one versioned set of physical dimensions for a sample.
// Measurements are superseded, never deleted: recording a new one bumps the
// version and shifts the active flag.
type Measurement struct {
	ID         string              `db:"id" json:"id"`
	SampleID   string              `db:"sample_id" json:"sample_id"`
	WidthMM    decimal.Decimal     `db:"width_mm" json:"width_mm"`
	HeightMM   decimal.Decimal     `db:"height_mm" json:"height_mm"`
	DepthMM    decimal.NullDecimal `db:"depth_mm" json:"depth_mm"`
	Method     string              `db:"method" json:"method"`
	Equipment  string              `db:"equipment" json:"equipment"`
	Version    int                 `db:"version" json:"version"`
	MeasuredBy string              `db:"measured_by" json:"measured_by"`
	MeasuredAt time.Time           `db:"measured_at" json:"measured_at"`
	Notes      string              `db:"notes" json:"notes"`
	Active     bool                `db:"active" json:"active"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	CreatedBy  string              `db:"created_by" json:"created_by"`
}

// Volume returns width × height × depth (depth treated as 1 when absent) in
// cubic millimetres, rounded half-up to two decimal places.
func (m Measurement) Volume() decimal.Decimal {
	v := m.WidthMM.Mul(m.HeightMM)
	if m.DepthMM.Valid {
		v = v.Mul(m.DepthMM.Decimal)
	}
	return v.Round(2)
}

// Activate marks this measurement as the authoritative version.
func (m *Measurement) Activate() { m.Active = true }

// Deactivate clears the active flag.
func (m *Measurement) Deactivate() { m.Active = false }
