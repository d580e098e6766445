package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wastetrace/wastetrace/internal/geo"
)

func TestHaversineKm(t *testing.T) {
	// One degree of longitude on the equator.
	assert.Equal(t, 111.2, geo.HaversineKm(0, 0, 0, 1))

	// Coincident points.
	assert.Equal(t, 0.0, geo.HaversineKm(12.9716, 77.5946, 12.9716, 77.5946))

	// Symmetric in its arguments.
	a := geo.HaversineKm(12.9716, 77.5946, 13.0280, 77.5190)
	b := geo.HaversineKm(13.0280, 77.5190, 12.9716, 77.5946)
	assert.Equal(t, a, b)
	assert.Greater(t, a, 0.0)
	assert.Less(t, a, 20.0) // both points are inside the same city
}
