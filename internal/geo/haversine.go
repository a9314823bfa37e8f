package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two points
// given in decimal degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	lon1, lat1, lon2, lat2 = toRad(lon1), toRad(lat1), toRad(lon2), toRad(lat2)

	dlon := lon2 - lon1
	dlat := lat2 - lat1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	// rounding can push a just past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// Within reports whether p lies no further than radiusKm from origin
func Within(origin, p Point, radiusKm float64) (float64, bool) {
	d := Haversine(origin.Longitude, origin.Latitude, p.Longitude, p.Latitude)
	return d, d <= radiusKm
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
