package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

// Resolution directories inside an L2A product.
const (
	R10m = "R10m"
	R20m = "R20m"
	R60m = "R60m"
)

// Resolutions lists the resolution directories finest first.
var Resolutions = []string{R10m, R20m, R60m}

// Decompress extracts every .zip in dir whose .SAFE directory does not
// exist yet, removes the archive afterwards, and returns the .SAFE
// directories present in dir.
func (c *Client) Decompress(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		archive := filepath.Join(dir, e.Name())
		if exists(strings.TrimSuffix(archive, ".zip") + ".SAFE") {
			continue
		}
		c.logger.Info("extracting product", slog.String("path", archive))
		if err := unzip(archive, dir); err != nil {
			return nil, err
		}
		if err := os.Remove(archive); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", archive, err)
		}
	}

	scenes, err := filepath.Glob(filepath.Join(dir, "*.SAFE"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	slices.Sort(scenes)
	return scenes, nil
}

func unzip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", archive, err)
	}
	defer r.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive %s: entry %q escapes destination", archive, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("archive %s: %w", archive, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return dst.Close()
}

// ListFiles returns the band files under dir ending in ext, sorted by path.
// Mask files and GDAL sidecars are skipped. When resolution is set only
// files inside that resolution directory are returned.
func (c *Client) ListFiles(dir, ext, resolution string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ext) || strings.Contains(name, "MSK") || strings.HasSuffix(name, "aux.xml") {
			return nil
		}
		if resolution != "" && filepath.Base(filepath.Dir(path)) != resolution {
			return nil
		}
		if _, err := BandIDFromPath(path); err != nil {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	slices.Sort(out)
	return out, nil
}

// Convert writes a GeoTIFF next to src and returns its path. An existing
// conversion is reused.
func (c *Client) Convert(src string) (string, error) {
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".tiff"
	if exists(dst) {
		return dst, nil
	}
	if err := c.convert(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// BandIDFromPath parses the band identifier from a product file name:
// T10SEH_20230801T185919_B8A_20m.jp2 gives B8A, and
// T10SEH_20230801T185919_B02.tiff gives B02.
func BandIDFromPath(path string) (raster.BandID, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(name, "_")
	for _, i := range []int{len(parts) - 2, len(parts) - 1} {
		if i < 1 {
			continue
		}
		p := parts[i]
		if len(p) == 3 && p[0] == 'B' {
			return raster.BandID(p), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrBadBandFile, filepath.Base(path))
}
