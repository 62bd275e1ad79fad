package internal

import "math"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Valid reports whether c is a finite point inside the lat/lng bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= MinLatitude && c.Lat <= MaxLatitude &&
		c.Lng >= MinLongitude && c.Lng <= MaxLongitude
}

// NormalizeCoordinate wraps longitudes that crossed the antimeridian back into
// [-180, 180]. Map widgets report wrapped longitudes such as 190 when the user
// pans past the date line. Latitude is left alone so out-of-range values still
// fail Valid.
func NormalizeCoordinate(lat, lng float64) Coordinate {
	if lng < MinLongitude || lng > MaxLongitude {
		lng = math.Mod(lng+180, 360)
		if lng < 0 {
			lng += 360
		}
		lng -= 180
	}

	return Coordinate{Lat: lat, Lng: lng}
}
