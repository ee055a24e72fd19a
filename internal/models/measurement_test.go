package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func TestMeasurementVolume(t *testing.T) {
	m := Measurement{WidthMM: dec("15.50"), HeightMM: dec("12.30"), DepthMM: nullDec("8.75")}
	assert.Equal(t, "1668.19", m.Volume().StringFixed(2))
}

func TestMeasurementVolumeWithoutDepth(t *testing.T) {
	m := Measurement{WidthMM: dec("15.50"), HeightMM: dec("12.30")}
	assert.Equal(t, "190.65", m.Volume().StringFixed(2))
}

func TestMeasurementVolumeRoundsHalfUp(t *testing.T) {
	// 1.21 × 1.25 × 0.936 = 1.41570; half-up at the third decimal.
	m := Measurement{WidthMM: dec("1.21"), HeightMM: dec("1.25"), DepthMM: nullDec("0.936")}
	assert.Equal(t, "1.42", m.Volume().StringFixed(2))

	// Exact ties break away from zero, not to even.
	ties := []struct {
		depth string
		want  string
	}{
		{"1668.065", "1668.07"},
		{"1668.075", "1668.08"},
	}
	for _, tie := range ties {
		m := Measurement{WidthMM: dec("1"), HeightMM: dec("1"), DepthMM: nullDec(tie.depth)}
		assert.Equal(t, tie.want, m.Volume().StringFixed(2))
	}
}

func TestMeasurementActivateDeactivate(t *testing.T) {
	m := Measurement{}
	m.Activate()
	assert.True(t, m.Active)
	m.Deactivate()
	assert.False(t, m.Active)
}
