package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	aoiPath := filepath.Join(dir, "fire.geojson")
	require.NoError(t, os.WriteFile(aoiPath, []byte(`{"type":"Point","coordinates":[0,0]}`), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-frobnicate"}},
		{"missing dates", []string{"-bbox", "0,0,1,1"}},
		{"no area", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15"}},
		{"bbox and aoi", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-bbox", "0,0,1,1", "-aoi", aoiPath}},
		{"bounds without aoi", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-bbox", "0,0,1,1", "-aoi-bounds"}},
		{"positional", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-bbox", "0,0,1,1", "extra"}},
		{"bad bbox", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-bbox", "0,0,1"}},
		{"bad date", []string{"-start-date", "08/01/2023", "-end-date", "2023-08-15", "-bbox", "0,0,1,1"}},
		{"end before start", []string{"-start-date", "2023-08-15", "-end-date", "2023-08-01", "-bbox", "0,0,1,1"}},
		{"unknown provider", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-bbox", "0,0,1,1", "-provider", "landsat"}},
		{"missing aoi file", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-aoi", filepath.Join(dir, "nope.geojson")}},
		{"unsupported aoi geometry", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-aoi", aoiPath}},
		{"missing credentials", []string{"-start-date", "2023-08-01", "-end-date", "2023-08-15", "-bbox", "0,0,1,1", "-provider", "SH"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)

			assert.Equal(t, exitInvalidInput, code, stderr.String())
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_BadProfile(t *testing.T) {
	t.Setenv("SH_CLIENT_ID", "id")
	t.Setenv("SH_CLIENT_SECRET", "secret")
	profile := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("water:\n  method: sonar\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-start-date", "2023-08-01", "-end-date", "2023-08-15",
		"-bbox", "0,0,1,1", "-provider", "SH", "-profile", profile,
	}, &stdout, &stderr)

	assert.Equal(t, exitInvalidInput, code)
	assert.Contains(t, stderr.String(), "invalid profile")
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"-h"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-start-date")
}

func TestOptionsRequest(t *testing.T) {
	opts := options{startDate: "2023-08-01", endDate: "2023-08-15", bbox: "-120.5, 38.1, -120.2, 38.4"}

	req, err := opts.request()
	require.NoError(t, err)
	assert.Equal(t, "2023-08-15", req.End.Format("2006-01-02"))
	assert.Equal(t, []float64{-120.5, 38.1, -120.2, 38.4}, req.AOI.BBox().Slice())
}

func TestOptionsRequest_AOIBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fire.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[-120.5,38.1],[-120.2,38.2],[-120.4,38.4],[-120.5,38.1]]]}}`), 0o644))
	opts := options{startDate: "2023-08-01", endDate: "2023-08-15", aoiPath: path, aoiBounds: true}

	req, err := opts.request()
	require.NoError(t, err)
	assert.Equal(t, []float64{-120.5, 38.1, -120.2, 38.4}, req.AOI.BBox().Slice())
}
