package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{GeocodePer1000: 5.0, DetailsPer1000: 17.0}
}

func TestGeocode(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		calls int
		want  float64
	}{
		{"1000 calls", 1000, 5.0},
		{"single call", 1, 0.005},
		{"zero calls", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Geocode(tt.calls), 0.0001)
		})
	}
}

func TestPlaceDetails(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		calls int
		want  float64
	}{
		{"1000 calls", 1000, 17.0},
		{"500 calls", 500, 8.5},
		{"zero calls", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.PlaceDetails(tt.calls), 0.0001)
		})
	}
}

func TestRun(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	// 200 geocodes: 1.00, 150 details: 2.55
	assert.InDelta(t, 3.55, calc.Run(200, 150), 0.0001)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()
	assert.InDelta(t, 5.0, rates.GeocodePer1000, 0.001)
	assert.InDelta(t, 17.0, rates.DetailsPer1000, 0.001)
}

func TestZeroRates(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(Rates{})
	assert.Zero(t, calc.Run(1000, 1000))
}
