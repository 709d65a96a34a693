package geo

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ParseGeoJSON reads a Polygon, MultiPolygon, Feature or FeatureCollection.
// Positions are [lng, lat].
func ParseGeoJSON(raw []byte) (Shape, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Shape{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	var (
		mp  orb.MultiPolygon
		err error
	)
	switch head.Type {
	case "Feature":
		var f *geojson.Feature
		if f, err = geojson.UnmarshalFeature(raw); err != nil {
			return Shape{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		mp, err = collectPolygons(f.Geometry)
	case "FeatureCollection":
		var fc *geojson.FeatureCollection
		if fc, err = geojson.UnmarshalFeatureCollection(raw); err != nil {
			return Shape{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		for _, f := range fc.Features {
			var part orb.MultiPolygon
			if part, err = collectPolygons(f.Geometry); err != nil {
				break
			}
			mp = append(mp, part...)
		}
	default:
		var g *geojson.Geometry
		if g, err = geojson.UnmarshalGeometry(raw); err != nil {
			return Shape{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		mp, err = collectPolygons(g.Geometry())
	}
	if err != nil {
		return Shape{}, err
	}
	return NewShape(mp)
}

func collectPolygons(g orb.Geometry) (orb.MultiPolygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil
	case orb.MultiPolygon:
		return v, nil
	case nil:
		return nil, fmt.Errorf("%w: feature without geometry", ErrInvalidGeometry)
	default:
		return nil, fmt.Errorf("%w: unsupported GeoJSON type %q", ErrInvalidGeometry, g.GeoJSONType())
	}
}
