package models

import (
	"fmt"
	"time"

	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

// Sex is the biological sex recorded for a patient.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "O"
)

// ParseSex validates a raw sex code.
func ParseSex(raw string) (Sex, error) {
	switch Sex(raw) {
	case SexMale, SexFemale, SexOther:
		return Sex(raw), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown sex code %q", raw))
}

// Patient is reference data supplied to samples by identifier.
type Patient struct {
	ID         string    `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	NationalID string    `db:"national_id" json:"national_id"`
	BirthDate  time.Time `db:"birth_date" json:"birth_date"`
	Sex        Sex       `db:"sex" json:"sex"`
	Phone      string    `db:"phone" json:"phone"`
	Email      string    `db:"email" json:"email"`
	Address    string    `db:"address" json:"address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
}

// Age returns completed years at the reference time.
func (p Patient) Age(at time.Time) int {
	years := at.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}

// ValidNationalID runs the CPF check-digit algorithm over the stored id,
// ignoring punctuation. Empty ids are considered valid (the field is
// optional).
func (p Patient) ValidNationalID() bool {
	if p.NationalID == "" {
		return true
	}
	digits := make([]int, 0, 11)
	for _, r := range p.NationalID {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) != 11 {
		return false
	}
	allSame := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}
	for _, pos := range []int{9, 10} {
		sum := 0
		for i := 0; i < pos; i++ {
			sum += digits[i] * (pos + 1 - i)
		}
		check := 11 - sum%11
		if check >= 10 {
			check = 0
		}
		if digits[pos] != check {
			return false
		}
	}
	return true
}
