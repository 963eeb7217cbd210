package navigation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{"kolkata", 22.9548, 88.4474, false},
		{"north pole", 90, 0, false},
		{"south pole antimeridian", -90, -180, false},
		{"antimeridian east", 0, 180, false},
		{"latitude too high", 200, 0, true},
		{"latitude too low", -90.0001, 0, true},
		{"longitude too high", 0, 180.5, true},
		{"longitude too low", 0, -181, true},
		{"nan latitude", math.NaN(), 0, true},
		{"infinite longitude", 0, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCoordinate(tt.lat, tt.lng)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCoordinate)
				assert.Equal(t, Coordinate{}, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lat, c.Latitude)
			assert.Equal(t, tt.lng, c.Longitude)
		})
	}
}

func TestNewWaypoint_Defaults(t *testing.T) {
	wp, err := NewWaypoint(22.96, 88.45)
	require.NoError(t, err)
	assert.Nil(t, wp.Name)
	assert.False(t, wp.SeparatesLegs)

	named := wp.WithName("Depot").WithLegSeparation(true)
	require.NotNil(t, named.Name)
	assert.Equal(t, "Depot", *named.Name)
	assert.True(t, named.SeparatesLegs)
	assert.Nil(t, wp.Name, "WithName must not modify the receiver")

	_, err = NewWaypoint(0, 500)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestLocation_Validate(t *testing.T) {
	bearing := func(v float64) *float64 { return &v }
	fix := Coordinate{Latitude: 22.95, Longitude: 88.44}

	tests := []struct {
		name    string
		loc     Location
		wantErr error
	}{
		{"no bearing", Location{Coordinate: fix}, nil},
		{"north", Location{Coordinate: fix, Bearing: bearing(0)}, nil},
		{"full turn", Location{Coordinate: fix, Bearing: bearing(360)}, nil},
		{"negative bearing", Location{Coordinate: fix, Bearing: bearing(-1)}, ErrInvalidBearing},
		{"bearing too high", Location{Coordinate: fix, Bearing: bearing(400)}, ErrInvalidBearing},
		{"nan bearing", Location{Coordinate: fix, Bearing: bearing(math.NaN())}, ErrInvalidBearing},
		{"bad coordinate", Location{Coordinate: Coordinate{Latitude: 91}, Bearing: bearing(10)}, ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
