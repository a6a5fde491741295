package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	// Berlin to Potsdam is roughly 26 km.
	d := DistanceKm(52.5200, 13.4050, 52.3906, 13.0645)
	assert.InDelta(t, 27.0, d, 2.0)

	assert.Zero(t, DistanceKm(48.8566, 2.3522, 48.8566, 2.3522))

	// Symmetric.
	assert.InDelta(t,
		DistanceKm(52.52, 13.405, 48.8566, 2.3522),
		DistanceKm(48.8566, 2.3522, 52.52, 13.405),
		1e-9)
}
