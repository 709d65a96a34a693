package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseRingClosesAndValidates(t *testing.T) {
	open := orb.Ring{{0, 0}, {1, 0}, {1, 1}}
	r, err := closeRing(open)
	require.NoError(t, err)
	assert.Len(t, r, 4)
	assert.True(t, r.Closed())
	assert.Len(t, open, 3, "input is not modified")

	closed := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	r, err = closeRing(closed)
	require.NoError(t, err)
	assert.Equal(t, closed, r)

	_, err = closeRing(orb.Ring{{0, 0}, {1, 0}, {0, 0}, {1, 0}})
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = closeRing(orb.Ring{{0, 0}, {1, 0}, {1, 95}})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestPolygonWithHole(t *testing.T) {
	shape, err := ParseGeoJSON([]byte(`{
		"type": "Polygon",
		"coordinates": [
			[[0,0],[10,0],[10,10],[0,10],[0,0]],
			[[4,4],[6,4],[6,6],[4,6],[4,4]]
		]
	}`))
	require.NoError(t, err)

	assert.True(t, shape.Contains(Point{Lat: 2, Lng: 2}))
	assert.False(t, shape.Contains(Point{Lat: 5, Lng: 5}), "inside hole")
	assert.True(t, shape.Contains(Point{Lat: 4, Lng: 5}), "on hole edge")
	assert.False(t, shape.Contains(Point{Lat: 11, Lng: 5}))
}

func TestParseGeoJSONVariants(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		inside  Point
		wantErr bool
	}{
		{
			name:   "feature",
			raw:    `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2]]]}}`,
			inside: Point{Lat: 1, Lng: 1},
		},
		{
			name:   "multipolygon second part",
			raw:    `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1]]],[[[5,5],[6,5],[6,6],[5,6]]]]}`,
			inside: Point{Lat: 5.5, Lng: 5.5},
		},
		{
			name:   "feature collection",
			raw:    `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2]]]}}]}`,
			inside: Point{Lat: 0.5, Lng: 1.5},
		},
		{name: "point", raw: `{"type":"Point","coordinates":[0,0]}`, wantErr: true},
		{name: "not json", raw: `{`, wantErr: true},
		{name: "two vertices", raw: `{"type":"Polygon","coordinates":[[[0,0],[1,1],[0,0]]]}`, wantErr: true},
		{name: "polygon without rings", raw: `{"type":"Polygon","coordinates":[]}`, wantErr: true},
		{name: "vertex out of range", raw: `{"type":"Polygon","coordinates":[[[0,0],[200,0],[0,1]]]}`, wantErr: true},
		{name: "line string in feature", raw: `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}`, wantErr: true},
		{name: "feature without geometry", raw: `{"type":"Feature"}`, wantErr: true},
		{name: "empty collection", raw: `{"type":"FeatureCollection","features":[]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, err := ParseGeoJSON([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGeometry)
				return
			}
			require.NoError(t, err)
			assert.True(t, shape.Contains(tt.inside))
		})
	}
}

func TestShapeBound(t *testing.T) {
	shape, err := ParseGeoJSON([]byte(corridorA))
	require.NoError(t, err)

	b := shape.Bound()
	assert.Equal(t, orb.Bound{Min: orb.Point{7.0, 9.0}, Max: orb.Point{7.5, 9.5}}, b)
	assert.True(t, b.Contains(Point{Lat: 9.5, Lng: 7.5}.orb()))
	assert.False(t, b.Contains(Point{Lat: 9.6, Lng: 7.5}.orb()))
}

func TestShapeContainsCorridorA(t *testing.T) {
	shape, err := ParseGeoJSON([]byte(corridorA))
	require.NoError(t, err)

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{name: "inside", p: Point{Lat: 9.2, Lng: 7.2}, want: true},
		{name: "east of corridor", p: Point{Lat: 9.0, Lng: 8.0}},
		{name: "west edge", p: Point{Lat: 9.2, Lng: 7.0}, want: true},
		{name: "vertex", p: Point{Lat: 9.5, Lng: 7.5}, want: true},
		{name: "just outside tolerance", p: Point{Lat: 9.2, Lng: 7.0 - 1e-6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shape.Contains(tt.p))
		})
	}
}
