// Package aoi reads areas of interest from a bbox argument or a GeoJSON
// document.
package aoi

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/robert-malhotra/burn-severity/internal/geometry"
)

var (
	// ErrEmpty is returned when a GeoJSON document holds no polygon.
	ErrEmpty = errors.New("GeoJSON document contains no polygon")

	// ErrUnsupported is returned for GeoJSON types other than Feature,
	// FeatureCollection, Polygon and MultiPolygon.
	ErrUnsupported = errors.New("unsupported GeoJSON type")
)

// FromBBox parses "west,south,east,north" into an AOI.
func FromBBox(s string) (geometry.AOI, error) {
	b, err := geometry.ParseBBox(s)
	if err != nil {
		return geometry.AOI{}, err
	}
	return geometry.NewBBoxAOI(b)
}

// Load reads a GeoJSON file. With boundsOnly the AOI is the extent of the
// file's polygons instead of the polygons themselves.
func Load(path string, boundsOnly bool) (geometry.AOI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return geometry.AOI{}, fmt.Errorf("failed to read AOI file: %w", err)
	}
	a, err := Parse(data, boundsOnly)
	if err != nil {
		return geometry.AOI{}, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Parse decodes a GeoJSON Feature, FeatureCollection or bare geometry.
// Polygons of several features are combined into one multipolygon.
func Parse(data []byte, boundsOnly bool) (geometry.AOI, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return geometry.AOI{}, fmt.Errorf("failed to decode GeoJSON: %w", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return geometry.AOI{}, fmt.Errorf("failed to decode feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return geometry.AOI{}, fmt.Errorf("failed to decode feature: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	case "Polygon", "MultiPolygon":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return geometry.AOI{}, fmt.Errorf("failed to decode geometry: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	default:
		return geometry.AOI{}, fmt.Errorf("%w: %q", ErrUnsupported, head.Type)
	}

	g, err := combine(geoms)
	if err != nil {
		return geometry.AOI{}, err
	}
	if boundsOnly {
		return geometry.NewBBoxAOI(geometry.FromBound(g.Bound()))
	}
	return geometry.NewGeometryAOI(g)
}

// combine flattens polygons into a single Polygon or MultiPolygon.
// Non-polygon geometries are skipped.
func combine(geoms []orb.Geometry) (orb.Geometry, error) {
	var mp orb.MultiPolygon
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			mp = append(mp, v)
		case orb.MultiPolygon:
			mp = append(mp, v...)
		}
	}
	switch len(mp) {
	case 0:
		return nil, ErrEmpty
	case 1:
		return mp[0], nil
	default:
		return mp, nil
	}
}
