package equirect

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PixelToLonLat maps a (possibly fractional) pixel coordinate to longitude
// and latitude in radians.
func PixelToLonLat(px, py float64, width, height int) (lon, lat float64) {
	lon = px/float64(width)*2*math.Pi - math.Pi
	lat = math.Pi/2 - py/float64(height)*math.Pi
	return lon, lat
}

// LonLatToPixel is the inverse of PixelToLonLat. The result is not wrapped
// or clamped.
func LonLatToPixel(lon, lat float64, width, height int) (px, py float64) {
	px = (lon + math.Pi) / (2 * math.Pi) * float64(width)
	py = (math.Pi/2 - lat) / math.Pi * float64(height)
	return px, py
}

// Direction returns the unit render-frame direction for lon/lat.
func Direction(lon, lat float64) r3.Vec {
	sinLon, cosLon := math.Sincos(lon)
	sinLat, cosLat := math.Sincos(lat)
	return r3.Vec{X: cosLat * sinLon, Y: sinLat, Z: cosLat * cosLon}
}

// LonLat returns the longitude and latitude of a unit direction.
func LonLat(d r3.Vec) (lon, lat float64) {
	return math.Atan2(d.X, d.Z), math.Asin(clamp(d.Y, -1, 1))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
