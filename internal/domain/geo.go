package domain

import (
	"fmt"
	"math"
)

// Point is a WGS 84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// Bounds is an axis-aligned latitude/longitude rectangle. Containment is
// inclusive on all four edges.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether p falls inside the rectangle.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

type geoMode int

const (
	geoRadius geoMode = iota
	geoBoundingBox
)

// GeoFilter is a two-variant containment predicate over building
// coordinates: a geodesic radius around a center point, or a bounding
// rectangle. Values are only constructed through NewGeoFilter, which
// enforces completeness and mutual exclusion of the two parameter sets.
type GeoFilter struct {
	mode   geoMode
	center Point
	meters float64
	box    Bounds
}

// GeoParams carries the optional geographic query parameters as supplied by
// the caller. RadiusKM selects radius mode when present, regardless of any
// bounding-box values; otherwise all four box fields must be present.
type GeoParams struct {
	Lat      float64
	Lon      float64
	RadiusKM *float64
	MinLat   *float64
	MaxLat   *float64
	MinLon   *float64
	MaxLon   *float64
}

// NewGeoFilter validates params and builds the corresponding filter.
func NewGeoFilter(p GeoParams) (*GeoFilter, error) {
	if p.RadiusKM != nil {
		if *p.RadiusKM <= 0 {
			return nil, fmt.Errorf("%w: radius_km must be positive", ErrInvalidCriteria)
		}
		return &GeoFilter{
			mode:   geoRadius,
			center: Point{Lat: p.Lat, Lon: p.Lon},
			meters: *p.RadiusKM * 1000,
		}, nil
	}

	if p.MinLat == nil || p.MaxLat == nil || p.MinLon == nil || p.MaxLon == nil {
		return nil, fmt.Errorf("%w: either radius_km or all of min_lat, max_lat, min_lon, max_lon are required", ErrInvalidCriteria)
	}
	return &GeoFilter{
		mode: geoBoundingBox,
		box:  Bounds{MinLat: *p.MinLat, MaxLat: *p.MaxLat, MinLon: *p.MinLon, MaxLon: *p.MaxLon},
	}, nil
}

// IsRadius reports whether the filter is in radius mode.
func (f *GeoFilter) IsRadius() bool { return f.mode == geoRadius }

// Radius returns the center point and radius in meters. Only meaningful in
// radius mode.
func (f *GeoFilter) Radius() (Point, float64) { return f.center, f.meters }

// Box returns the bounding rectangle. Only meaningful in bounding-box mode.
func (f *GeoFilter) Box() Bounds { return f.box }

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle (haversine) distance between two
// points in meters.
func DistanceMeters(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}
