package archive

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/cover"
	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

const itemTemplate = `{
  "type": "Feature",
  "stac_version": "1.0.0",
  "stac_extensions": [],
  "id": %q,
  "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]},
  "bbox": [0, 0, 1, 1],
  "properties": {"datetime": "2023-08-01T18:59:19Z", "published": %q, "eo:cloud_cover": %g},
  "links": [],
  "assets": {"PRODUCT": {"href": %q}}
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow(t *testing.T) window.DateWindow {
	t.Helper()
	w, err := window.New(time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC), window.Pre, 7)
	if err != nil {
		t.Fatalf("window.New() error: %v", err)
	}
	return w
}

func testAOI(t *testing.T) geometry.AOI {
	t.Helper()
	aoi, err := geometry.NewBBoxAOI(geometry.BBox{West: 0.2, South: 0.2, East: 0.8, North: 0.8})
	if err != nil {
		t.Fatalf("NewBBoxAOI() error: %v", err)
	}
	return aoi
}

func TestClient_Search(t *testing.T) {
	var server *httptest.Server
	var body map[string]any
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/search":
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode search body: %v", err)
			}
			fmt.Fprintf(w, `{"type":"FeatureCollection","features":[%s],"links":[{"rel":"next","href":"%s/search?page=2"}]}`,
				fmt.Sprintf(itemTemplate, "S2A_ONE", "2023-08-02T00:00:00Z", 4.5, server.URL+"/odata/one"), server.URL)
		case r.Method == http.MethodGet && r.URL.Query().Get("page") == "2":
			fmt.Fprintf(w, `{"type":"FeatureCollection","features":[%s],"links":[]}`,
				fmt.Sprintf(itemTemplate, "S2B_TWO", "2023-08-03T00:00:00Z", 1.0, server.URL+"/odata/two"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(Config{STACURL: server.URL, Collection: "sentinel-2-l2a", Timeout: 5 * time.Second}).
		WithLogger(quietLogger())

	fps, err := client.Search(context.Background(), testAOI(t), testWindow(t), 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(fps) != 2 {
		t.Fatalf("Search() returned %d footprints, want 2", len(fps))
	}
	if fps[0].ID != "S2A_ONE" || fps[0].CloudCover != 4.5 || fps[0].Href != server.URL+"/odata/one" {
		t.Errorf("first footprint = %+v", fps[0])
	}
	if !geometry.AreaEqual(fps[1].Area, 1) {
		t.Errorf("footprint area = %v, want 1", fps[1].Area)
	}
	if want := time.Date(2023, 8, 3, 0, 0, 0, 0, time.UTC); !fps[1].Ingestion.Equal(want) {
		t.Errorf("Ingestion = %v, want %v", fps[1].Ingestion, want)
	}

	if body["filter-lang"] != "cql2-json" || body["datetime"] != "2023-08-03T00:00:00Z/2023-08-10T23:59:59Z" {
		t.Errorf("search body = %v", body)
	}
	filterJSON, _ := json.Marshal(body["filter"])
	if !strings.Contains(string(filterJSON), "eo:cloud_cover") {
		t.Errorf("filter = %s, want a cloud cover predicate", filterJSON)
	}
}

func TestClient_SearchEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"FeatureCollection","features":[],"links":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{STACURL: server.URL}).WithLogger(quietLogger())
	_, err := client.Search(context.Background(), testAOI(t), testWindow(t), 10)
	if !errors.Is(err, ErrNoScenes) {
		t.Errorf("Search() error = %v, want ErrNoScenes", err)
	}
}

func TestClient_SearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(Config{STACURL: server.URL}).WithLogger(quietLogger())
	_, err := client.Search(context.Background(), testAOI(t), testWindow(t), 10)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Search() error = %v, want status 502", err)
	}
}

func TestClient_Download(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokenCalls++
			if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "password" || r.Form.Get("username") != "alice" {
				t.Errorf("unexpected token request: %v", r.Form)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"secret-token","token_type":"Bearer","expires_in":3600}`))
		case "/odata/one", "/odata/two":
			if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
				t.Errorf("Authorization = %q", got)
			}
			w.Write([]byte("zip-bytes-" + filepath.Base(r.URL.Path)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	// Already extracted products are not downloaded again.
	if err := os.MkdirAll(filepath.Join(dir, "S2C_OLD.SAFE"), 0o755); err != nil {
		t.Fatal(err)
	}

	client := NewClient(Config{
		TokenURL: server.URL + "/token",
		ClientID: "cdse-public",
		Username: "alice",
		Password: "pw",
	}).WithLogger(quietLogger())

	fps := []cover.Footprint{
		{ID: "S2A_ONE", Href: server.URL + "/odata/one"},
		{ID: "S2B_TWO", Href: server.URL + "/odata/two"},
		{ID: "S2C_OLD", Href: server.URL + "/odata/missing"},
	}
	paths, err := client.Download(context.Background(), fps, dir)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("Download() returned %d paths, want 3", len(paths))
	}
	data, err := os.ReadFile(filepath.Join(dir, "S2B_TWO.zip"))
	if err != nil || string(data) != "zip-bytes-two" {
		t.Errorf("S2B_TWO.zip = %q, %v", data, err)
	}
	if tokenCalls != 1 {
		t.Errorf("token requested %d times, want 1", tokenCalls)
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestClient_DecompressAndList(t *testing.T) {
	dir := t.TempDir()
	img := "S2A_ONE.SAFE/GRANULE/L2A_T10SEH/IMG_DATA/"
	writeZip(t, filepath.Join(dir, "S2A_ONE.zip"), map[string]string{
		img + "R20m/T10SEH_20230801T185919_B8A_20m.jp2":         "nir",
		img + "R20m/T10SEH_20230801T185919_B12_20m.jp2":         "swir",
		img + "R20m/T10SEH_20230801T185919_SCL_20m.jp2":         "scl",
		img + "R10m/T10SEH_20230801T185919_B02_10m.jp2":         "blue",
		"S2A_ONE.SAFE/QI_DATA/MSK_CLDPRB_20m.jp2":               "mask",
		img + "R20m/T10SEH_20230801T185919_B12_20m.jp2.aux.xml": "aux",
	})

	client := NewClient(Config{}).WithLogger(quietLogger())
	scenes, err := client.Decompress(dir)
	if err != nil {
		t.Fatalf("Decompress() error: %v", err)
	}
	if len(scenes) != 1 || filepath.Base(scenes[0]) != "S2A_ONE.SAFE" {
		t.Fatalf("Decompress() = %v", scenes)
	}
	if _, err := os.Stat(filepath.Join(dir, "S2A_ONE.zip")); !os.IsNotExist(err) {
		t.Error("archive should be removed after extraction")
	}

	all, err := client.ListFiles(scenes[0], ".jp2", "")
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListFiles(all) = %v, want 3 band files", all)
	}

	r20, err := client.ListFiles(scenes[0], ".jp2", R20m)
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	if len(r20) != 2 || !strings.HasSuffix(r20[0], "B12_20m.jp2") {
		t.Errorf("ListFiles(R20m) = %v", r20)
	}

	// A second pass leaves the extracted scene alone.
	if _, err := client.Decompress(dir); err != nil {
		t.Errorf("second Decompress() error: %v", err)
	}
}

func TestClient_Convert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "T10SEH_20230801T185919_B8A_20m.jp2")
	calls := 0
	client := NewClient(Config{}).WithConverter(func(s, d string) error {
		calls++
		return os.WriteFile(d, []byte("tiff"), 0o644)
	})

	dst, err := client.Convert(src)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if dst != filepath.Join(dir, "T10SEH_20230801T185919_B8A_20m.tiff") {
		t.Errorf("Convert() = %s", dst)
	}
	if _, err := client.Convert(src); err != nil || calls != 1 {
		t.Errorf("existing conversion should be reused (calls = %d, err = %v)", calls, err)
	}
}

func TestBandIDFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"/x/R20m/T10SEH_20230801T185919_B8A_20m.tiff", "B8A", false},
		{"T10SEH_20230801T185919_B12_20m.jp2", "B12", false},
		{"T10SEH_20230801T185919_B02.tiff", "B02", false},
		{"T10SEH_20230801T185919_SCL_20m.jp2", "", true},
		{"MTD_TL.xml", "", true},
	}
	for _, tt := range tests {
		got, err := BandIDFromPath(tt.path)
		if tt.wantErr {
			if !errors.Is(err, ErrBadBandFile) {
				t.Errorf("BandIDFromPath(%q) error = %v, want ErrBadBandFile", tt.path, err)
			}
			continue
		}
		if err != nil || string(got) != tt.want {
			t.Errorf("BandIDFromPath(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
}
