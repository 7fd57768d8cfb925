package geo

import (
	"math"

	"transit-simulator/internal/transit"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers. The inner sqrt argument is clamped to [0,1] so rounding noise
// near zero distance cannot produce NaN.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// CumulativeDistances returns, for each point of the path, the total path
// length in kilometers from the first point. Element 0 is always 0 and the
// sequence is non-decreasing; adjacent duplicate points contribute
// zero-length segments.
func CumulativeDistances(path transit.Path) []float64 {
	n := len(path)
	if n == 0 {
		return nil
	}
	cum := make([]float64, n)
	sum := 0.0
	for i := 1; i < n; i++ {
		sum += HaversineKm(path[i-1].Lat, path[i-1].Lon, path[i].Lat, path[i].Lon)
		cum[i] = sum
	}
	return cum
}

// NormalizeFraction wraps any fraction into [0,1). Negative values and values
// past 1 wrap around rather than error, so a vehicle that is ahead of or
// behind its schedule by whole loops still lands on the path.
func NormalizeFraction(f float64) float64 {
	f = math.Mod(f, 1)
	if f < 0 {
		f += 1
	}
	return f
}

// SamplePath maps a fractional position along the path to an interpolated
// coordinate and the bearing of the segment it falls on. The path must have
// at least 2 points and cum must be its cumulative distances; callers with
// shorter paths must not call it. The fraction is normalized into [0,1)
// first.
func SamplePath(path transit.Path, cum []float64, f float64) (pos transit.Point, bearingDeg float64) {
	f = NormalizeFraction(f)
	total := cum[len(cum)-1]
	if total == 0 {
		// Degenerate path where every point coincides.
		return path[0], 0
	}
	target := f * total

	// Paths are short; a linear scan beats the bookkeeping of binary search.
	i := 1
	for i < len(cum)-1 && cum[i] < target {
		i++
	}
	p0, p1 := path[i-1], path[i]
	d0, d1 := cum[i-1], cum[i]

	frac := 0.0
	if d1 > d0 {
		frac = (target - d0) / (d1 - d0)
	}
	pos = transit.Point{
		Lat: p0.Lat + (p1.Lat-p0.Lat)*frac,
		Lon: p0.Lon + (p1.Lon-p0.Lon)*frac,
	}
	return pos, BearingDeg(p0, p1)
}

// BearingDeg returns the initial bearing from a to b in degrees [0,360).
func BearingDeg(a, b transit.Point) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	y := math.Sin(toRad(b.Lon-a.Lon)) * math.Cos(toRad(b.Lat))
	x := math.Cos(toRad(a.Lat))*math.Sin(toRad(b.Lat)) -
		math.Sin(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Cos(toRad(b.Lon-a.Lon))
	brng := math.Atan2(y, x) * 180 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}
