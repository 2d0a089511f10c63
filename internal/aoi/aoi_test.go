package aoi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/robert-malhotra/burn-severity/internal/geometry"
)

const square = `{"type":"Polygon","coordinates":[[[-120,38],[-119,38],[-119,39],[-120,39],[-120,38]]]}`

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantType string
		wantBBox geometry.BBox
	}{
		{
			name:     "bare polygon",
			doc:      square,
			wantType: "Polygon",
			wantBBox: geometry.BBox{West: -120, South: 38, East: -119, North: 39},
		},
		{
			name:     "feature",
			doc:      `{"type":"Feature","properties":{"name":"Creek"},"geometry":` + square + `}`,
			wantType: "Polygon",
			wantBBox: geometry.BBox{West: -120, South: 38, East: -119, North: 39},
		},
		{
			name: "feature collection",
			doc: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":` + square + `},
				{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[-118,37],[-117,37],[-117,38],[-118,38],[-118,37]]]}},
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}}
			]}`,
			wantType: "MultiPolygon",
			wantBBox: geometry.BBox{West: -120, South: 37, East: -117, North: 39},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse([]byte(tt.doc), false)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if got := a.Geometry().GeoJSONType(); got != tt.wantType {
				t.Errorf("geometry type = %s, want %s", got, tt.wantType)
			}
			if a.BBox() != tt.wantBBox {
				t.Errorf("BBox() = %v, want %v", a.BBox(), tt.wantBBox)
			}
		})
	}
}

func TestParse_BoundsOnly(t *testing.T) {
	doc := `{"type":"Polygon","coordinates":[[[-120,38],[-119,38.5],[-120,39],[-120,38]]]}`

	a, err := Parse([]byte(doc), true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := orb.Bound{Min: orb.Point{-120, 38}, Max: orb.Point{-119, 39}}.ToPolygon()
	if !orb.Equal(a.Geometry(), want) {
		t.Errorf("Geometry() = %v, want the extent rectangle", a.Geometry())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"point", `{"type":"Point","coordinates":[0,0]}`, ErrUnsupported},
		{"no polygons", `{"type":"FeatureCollection","features":[]}`, ErrEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), false); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Parse([]byte("not json"), false); err == nil {
		t.Error("Parse() should reject malformed input")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fire.geojson")
	if err := os.WriteFile(path, []byte(square), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if a.BBox().West != -120 || a.BBox().North != 39 {
		t.Errorf("BBox() = %v", a.BBox())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.geojson"), false); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestFromBBox(t *testing.T) {
	a, err := FromBBox("-120,38,-119,39")
	if err != nil {
		t.Fatalf("FromBBox() error: %v", err)
	}
	if a.BBox() != (geometry.BBox{West: -120, South: 38, East: -119, North: 39}) {
		t.Errorf("BBox() = %v", a.BBox())
	}
	if _, err := FromBBox("-119,38,-120,39"); err == nil {
		t.Error("FromBBox() should reject west > east")
	}
}
