package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GhostbusterQuest/huntcore/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Persisted locations are always stored as 3857 WKB points, matching the web-mercator plane used by the
// radar fallback. Live math (projection, distance, bearing) stays in 4326 degrees.

// EarthRadius is the WGS84 equatorial radius in meters.
const EarthRadius = 6378137.0

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseCoordinate parses a string in the format "lat,lon" into a coordinate.
func ParseCoordinate(coords string) (core.Coordinate, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	c := core.Coordinate{Lat: lat, Lon: lon}
	if !Valid(c) {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	return c, nil
}

// Valid reports whether c lies within the WGS84 degree ranges.
func Valid(c core.Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// ToMercator converts a 4326 coordinate to 3857 meters.
func ToMercator(c core.Coordinate) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(c.Lon, c.Lat, 0)
	return x, y
}

// FromMercator converts 3857 meters back to a 4326 coordinate.
func FromMercator(x, y float64) core.Coordinate {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ := f(x, y, 0)
	return core.Coordinate{Lat: lat, Lon: lon}
}

// MercatorPoint creates a 3857 point from a coordinate, the storage representation.
func MercatorPoint(c core.Coordinate) (geom.Point, error) {
	if !Valid(c) {
		return geom.Point{}, fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, c.Lat, c.Lon)
	}
	x, y := ToMercator(c)
	p, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("building mercator point: %w", err)
	}
	return p, nil
}

// CoordinateFromMercatorPoint reverses MercatorPoint.
func CoordinateFromMercatorPoint(p geom.Point) (core.Coordinate, error) {
	coords, ok := p.Coordinates()
	if !ok {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	return FromMercator(coords.X, coords.Y), nil
}

// Distance is the great-circle distance in meters.
func Distance(a, b core.Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bearing is the initial compass bearing from start to end in [0, 360).
func Bearing(start, end core.Coordinate) float64 {
	lat1 := radians(start.Lat)
	lat2 := radians(end.Lat)
	dLon := radians(end.Lon - start.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return WrapDegrees(degrees(math.Atan2(y, x)))
}

// WrapDegrees maps any angle into [0, 360).
func WrapDegrees(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	return w
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// EncodeLocation is the stored form of a coordinate: a 3857 WKB point.
func EncodeLocation(c core.Coordinate) ([]byte, error) {
	p, err := MercatorPoint(c)
	if err != nil {
		return nil, err
	}
	return p.AsBinary(), nil
}

// DecodeLocation reverses EncodeLocation.
func DecodeLocation(wkb []byte) (core.Coordinate, error) {
	var p geom.Point
	if err := p.Scan(wkb); err != nil {
		return core.Coordinate{}, fmt.Errorf("decoding location: %w", err)
	}
	return CoordinateFromMercatorPoint(p)
}
