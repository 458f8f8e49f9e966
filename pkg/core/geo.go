// pkg/core/geo.go
package core

import "time"

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SensorSample is one reading from the device's location/heading sensors.
// Either field may be absent at any time.
type SensorSample struct {
	Coordinate *Coordinate
	Heading    *float64 // compass degrees, clockwise from north
	Time       time.Time
}

// HasFix reports whether the sample carries a coordinate.
func (s SensorSample) HasFix() bool {
	return s.Coordinate != nil
}

// HeadingPtr is a helper for building samples and calls with an optional heading.
func HeadingPtr(deg float64) *float64 {
	return &deg
}

// CoordPtr is a helper for optional coordinates.
func CoordPtr(lat, lon float64) *Coordinate {
	return &Coordinate{Lat: lat, Lon: lon}
}
