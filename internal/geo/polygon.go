// Package geo answers point-in-polygon questions for grazing routes.
//
// Polygon edges and vertices are part of the polygon: a point lying exactly
// on a boundary (within boundaryEpsilon degrees) is inside. This holds for
// hole boundaries too, so a hole edge still belongs to the route.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidGeometry   = errors.New("invalid geometry")
)

// boundaryEpsilon is the tolerance, in degrees, for treating a point as lying
// on an edge (roughly 0.1 mm at the equator).
const boundaryEpsilon = 1e-9

type Point struct {
	Lat float64
	Lng float64
}

// orb points are [lng, lat].
func (p Point) orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func ValidatePoint(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, lng)
	}
	return nil
}

// closeRing validates the vertices of r and returns a copy whose last vertex
// repeats the first.
func closeRing(r orb.Ring) (orb.Ring, error) {
	distinct := make(map[orb.Point]struct{}, len(r))
	for _, v := range r {
		if err := ValidatePoint(v.Lat(), v.Lon()); err != nil {
			return nil, fmt.Errorf("%w: vertex %w", ErrInvalidGeometry, err)
		}
		distinct[v] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, fmt.Errorf("%w: ring needs at least 3 distinct vertices, got %d", ErrInvalidGeometry, len(distinct))
	}

	out := r.Clone()
	if !out.Closed() {
		out = append(out, out[0])
	}
	return out, nil
}

func validatePolygon(pg orb.Polygon) (orb.Polygon, error) {
	if len(pg) == 0 {
		return nil, fmt.Errorf("%w: polygon without rings", ErrInvalidGeometry)
	}
	out := make(orb.Polygon, 0, len(pg))
	for _, r := range pg {
		closed, err := closeRing(r)
		if err != nil {
			return nil, err
		}
		out = append(out, closed)
	}
	return out, nil
}

func onEdge(r orb.Ring, p orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		if planar.DistanceFromSegment(r[i], r[i+1], p) <= boundaryEpsilon {
			return true
		}
	}
	return false
}

func polygonContains(pg orb.Polygon, p orb.Point) bool {
	for _, r := range pg {
		if onEdge(r, p) {
			return true
		}
	}
	return planar.PolygonContains(pg, p)
}

// Shape is one or more polygons with a cached bounding box.
type Shape struct {
	polygons orb.MultiPolygon
	bound    orb.Bound
}

// NewShape validates every ring and closes the open ones.
func NewShape(mp orb.MultiPolygon) (Shape, error) {
	if len(mp) == 0 {
		return Shape{}, fmt.Errorf("%w: no polygons", ErrInvalidGeometry)
	}
	polygons := make(orb.MultiPolygon, 0, len(mp))
	for _, pg := range mp {
		valid, err := validatePolygon(pg)
		if err != nil {
			return Shape{}, err
		}
		polygons = append(polygons, valid)
	}
	return Shape{polygons: polygons, bound: polygons.Bound()}, nil
}

func (s Shape) Bound() orb.Bound {
	return s.bound
}

func (s Shape) Contains(p Point) bool {
	pt := p.orb()
	if !s.bound.Pad(boundaryEpsilon).Contains(pt) {
		return false
	}
	for _, pg := range s.polygons {
		if polygonContains(pg, pt) {
			return true
		}
	}
	return false
}
