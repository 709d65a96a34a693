package geo

import (
	"fmt"
	"sort"
	"sync/atomic"

	"agro-herders-service/internal/domain/agro"
)

type fence struct {
	route agro.Route
	shape Shape
}

type snapshot struct {
	fences []fence
}

// Index holds the active route set. Load swaps in a complete snapshot, so a
// concurrent PointInRoutes sees either the old or the new set in full.
type Index struct {
	current atomic.Pointer[snapshot]
}

func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(&snapshot{})
	return idx
}

// LoadError describes a route that was skipped because its polygon is invalid.
type LoadError struct {
	RouteID int64
	Err     error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("route %d: %v", e.RouteID, e.Err)
}

// Load replaces the working set. Inactive routes are ignored and routes with
// unusable geometry are skipped and reported.
func (idx *Index) Load(routes []agro.Route) []LoadError {
	var skipped []LoadError
	fences := make([]fence, 0, len(routes))
	for _, r := range routes {
		if r.Status != agro.RouteStatusActive {
			continue
		}
		shape, err := ParseGeoJSON(r.GeoJSONData)
		if err != nil {
			skipped = append(skipped, LoadError{RouteID: r.ID, Err: err})
			continue
		}
		fences = append(fences, fence{route: r, shape: shape})
	}
	sort.Slice(fences, func(i, j int) bool { return fences[i].route.ID < fences[j].route.ID })

	idx.current.Store(&snapshot{fences: fences})
	return skipped
}

// Len returns the number of routes in the current snapshot.
func (idx *Index) Len() int {
	return len(idx.current.Load().fences)
}

// PointInRoutes returns every loaded route whose polygon contains the point,
// ordered by route id. An empty result is not an error.
func (idx *Index) PointInRoutes(lat, lng float64) ([]agro.Route, error) {
	if err := ValidatePoint(lat, lng); err != nil {
		return nil, err
	}
	p := Point{Lat: lat, Lng: lng}
	snap := idx.current.Load()

	matched := make([]agro.Route, 0)
	for _, f := range snap.fences {
		if f.shape.Contains(p) {
			matched = append(matched, f.route)
		}
	}
	return matched, nil
}
