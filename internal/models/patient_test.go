package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSex(t *testing.T) {
	for _, raw := range []string{"M", "F", "O"} {
		sex, err := ParseSex(raw)
		require.NoError(t, err)
		assert.Equal(t, Sex(raw), sex)
	}
	_, err := ParseSex("X")
	require.Error(t, err)
}

func TestPatientAge(t *testing.T) {
	p := Patient{BirthDate: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, 35, p.Age(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, p.Age(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 34, p.Age(time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)))
}

func TestPatientValidNationalID(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"", true},
		{"529.982.247-25", true},
		{"52998224725", true},
		{"52998224724", false},
		{"11111111111", false},
		{"1234", false},
		{"529982247251", false},
	}
	for _, tc := range cases {
		p := Patient{NationalID: tc.id}
		assert.Equal(t, tc.valid, p.ValidNationalID(), "id %q", tc.id)
	}
}
