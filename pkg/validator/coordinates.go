package validator

import (
	"errors"
	"math"
)

var (
	ErrLatitudeRange  = errors.New("latitude must be within [-90, 90]")
	ErrLongitudeRange = errors.New("longitude must be within [-180, 180]")
)

// ValidateCoordinates checks a WGS84 degree pair.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ErrLatitudeRange
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return ErrLongitudeRange
	}
	return nil
}
