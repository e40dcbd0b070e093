package station

import "math"

// earthDiameter is the diameter basis of the distance approximation, in km.
const earthDiameter = 12742.0

// Distance returns the approximate great-circle distance in kilometres between
// two points given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	const p = math.Pi / 180

	a := 0.5 - math.Cos((lat2-lat1)*p)/2 +
		math.Cos(lat1*p)*math.Cos(lat2*p)*(1-math.Cos((lon2-lon1)*p))/2

	// rounding can push a slightly outside [0, 1]
	a = math.Max(0, math.Min(1, a))

	return earthDiameter * math.Asin(math.Sqrt(a))
}
