package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

var (
	skanderbegSquare = domain.Location{Latitude: 41.3275, Longitude: 19.8187}
	ethemBeyMosque   = domain.Location{Latitude: 41.3279, Longitude: 19.8194}
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	assert.InDelta(t, 0, DistanceMeters(skanderbegSquare, skanderbegSquare), 1e-9)
}

func TestDistanceMeters_OneDegreeLatitude(t *testing.T) {
	d := DistanceMeters(domain.Location{Latitude: 0, Longitude: 0}, domain.Location{Latitude: 1, Longitude: 0})
	assert.InDelta(t, EarthRadiusMeters*math.Pi/180, d, 0.001)
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	ab := DistanceMeters(skanderbegSquare, ethemBeyMosque)
	ba := DistanceMeters(ethemBeyMosque, skanderbegSquare)
	assert.InDelta(t, ab, ba, 1e-9)
}

func TestDistanceMeters_NeighbouringStops(t *testing.T) {
	// The mosque sits roughly 73 m north-east of the square.
	d := DistanceMeters(skanderbegSquare, ethemBeyMosque)
	assert.InDelta(t, 73, d, 2)
}

func TestDistanceMeters_Antipodal(t *testing.T) {
	d := DistanceMeters(domain.Location{Latitude: 0, Longitude: 0}, domain.Location{Latitude: 0, Longitude: 180})
	assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1)
}

func TestWithin(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		want   bool
	}{
		{name: "default radius too small", radius: DefaultArrivalRadiusMeters, want: false},
		{name: "generous radius", radius: 100, want: true},
		{name: "zero radius", radius: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(skanderbegSquare, ethemBeyMosque, tt.radius))
		})
	}

	assert.True(t, Within(skanderbegSquare, skanderbegSquare, 0), "same point is within a zero radius")
}
