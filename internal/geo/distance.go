// Package geo provides great-circle distance, travel-time estimation and
// slippy-map projection math. All functions are pure.
package geo

import "math"

const earthRadiusMiles = 3958.8

// TransportMode describes how a traveller moved between two stops.
type TransportMode string

const (
	ModeWalked TransportMode = "walked"
	ModeBiked  TransportMode = "biked"
	ModeDrove  TransportMode = "drove"
)

// Average speeds in mph used for travel-time estimates.
var averageSpeedMPH = map[TransportMode]float64{
	ModeWalked: 3,
	ModeBiked:  12,
	ModeDrove:  25,
}

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the haversine great-circle distance between two points in miles.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMiles * c
}

// TravelTimeMinutes estimates travel time for a distance at the mode's average speed.
func TravelTimeMinutes(distanceMiles float64, mode TransportMode) float64 {
	speed, ok := averageSpeedMPH[mode]
	if !ok {
		speed = averageSpeedMPH[ModeDrove]
	}
	return distanceMiles / speed * 60
}

// SuggestMode picks a transport mode from the distance between two points:
// under 1 mile walked, under 5 miles biked, otherwise drove.
func SuggestMode(a, b Point) TransportMode {
	d := Distance(a, b)
	switch {
	case d < 1:
		return ModeWalked
	case d < 5:
		return ModeBiked
	default:
		return ModeDrove
	}
}

// TotalDistance sums haversine distances over consecutive points.
// Fewer than two points yields 0.
func TotalDistance(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Leg pairs a point with the mode used to travel into it.
type Leg struct {
	Point Point
	Mode  TransportMode
}

// TotalTravelTime sums estimated minutes over consecutive legs, using each
// leg's inbound mode (drove when unset). Fewer than two legs yields 0.
func TotalTravelTime(legs []Leg) float64 {
	total := 0.0
	for i := 1; i < len(legs); i++ {
		mode := legs[i].Mode
		if mode == "" {
			mode = ModeDrove
		}
		total += TravelTimeMinutes(Distance(legs[i-1].Point, legs[i].Point), mode)
	}
	return total
}
