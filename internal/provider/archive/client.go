// Package archive implements the archive-search provider: STAC item search
// against the Copernicus catalogue, authenticated product download, and the
// local scene post-processing that turns product archives into band files.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/robert-malhotra/burn-severity/internal/cover"
	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/provider"
	"github.com/robert-malhotra/burn-severity/internal/rasterio"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

// maxPages bounds how many search result pages are followed.
const maxPages = 20

// Config holds the archive endpoints and credentials. It is passed
// explicitly at construction.
type Config struct {
	STACURL     string
	Collection  string
	DownloadURL string
	TokenURL    string
	ClientID    string
	Username    string
	Password    string
	Timeout     time.Duration
}

// ConvertFunc translates a raster file to GeoTIFF.
type ConvertFunc func(src, dst string) error

// Client searches and downloads Sentinel-2 L2A scenes.
type Client struct {
	cfg        Config
	httpClient *http.Client
	oauth      *oauth2.Config
	convert    ConvertFunc
	logger     *slog.Logger

	mu         sync.Mutex
	downloader *http.Client
}

var _ provider.Archive = (*Client)(nil)

// NewClient creates a new archive client
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{TokenURL: cfg.TokenURL},
		},
		convert: rasterio.ConvertToGeoTIFF,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithHTTPClient replaces the HTTP client used for search and token requests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// WithConverter replaces the GeoTIFF converter.
func (c *Client) WithConverter(fn ConvertFunc) *Client {
	c.convert = fn
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "archive"
}

// Search runs a STAC item search and returns the matching footprints in
// catalogue order.
func (c *Client) Search(ctx context.Context, aoi geometry.AOI, w window.DateWindow, cloudCeiling float64) ([]cover.Footprint, error) {
	body, err := json.Marshal(BuildSearch(c.cfg.Collection, aoi, w, cloudCeiling))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search: %w", err)
	}

	searchURL := strings.TrimRight(c.cfg.STACURL, "/") + "/search"
	c.logger.DebugContext(ctx, "executing STAC search",
		slog.String("url", searchURL),
		slog.String("window", w.String()),
		slog.Float64("cloud_ceiling", cloudCeiling),
	)

	var footprints []cover.Footprint
	method, target, payload := http.MethodPost, searchURL, body
	for page := 0; page < maxPages && target != ""; page++ {
		resp, err := c.doSearch(ctx, method, target, payload)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Features {
			fp, err := ItemToFootprint(item, c.cfg.DownloadURL)
			if err != nil {
				c.logger.WarnContext(ctx, "skipping item",
					slog.String("error", err.Error()),
				)
				continue
			}
			footprints = append(footprints, fp)
		}

		target = ""
		for _, link := range resp.Links {
			if link.Rel == "next" {
				method, target, payload = http.MethodGet, link.Href, nil
				break
			}
		}
	}

	c.logger.DebugContext(ctx, "STAC search completed",
		slog.Int("footprint_count", len(footprints)),
	)
	if len(footprints) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoScenes, w)
	}
	return footprints, nil
}

func (c *Client) doSearch(ctx context.Context, method, target string, body []byte) (*SearchResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", "burn-severity/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "STAC request failed",
			slog.String("error", err.Error()),
			slog.String("url", target),
		)
		return nil, fmt.Errorf("STAC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.ErrorContext(ctx, "STAC API returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(raw)),
		)
		return nil, fmt.Errorf("STAC API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode STAC response: %w", err)
	}
	return &result, nil
}

// authorized returns the download client, fetching a password-grant token
// on first use.
func (c *Client) authorized(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.downloader != nil {
		return c.downloader, nil
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.PasswordCredentialsToken(tokenCtx, c.cfg.Username, c.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain download token: %w", err)
	}

	// The token source outlives ctx, so it gets a background context.
	sourceCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	c.downloader = c.oauth.Client(sourceCtx, tok)
	return c.downloader, nil
}

// Download fetches each footprint's product archive to dir/<id>.zip.
// Products already downloaded or extracted are skipped.
func (c *Client) Download(ctx context.Context, fps []cover.Footprint, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	var paths []string
	for _, fp := range fps {
		dest := filepath.Join(dir, fp.ID+".zip")
		if exists(dest) || exists(filepath.Join(dir, fp.ID+".SAFE")) {
			c.logger.DebugContext(ctx, "product already present",
				slog.String("id", fp.ID),
			)
			paths = append(paths, dest)
			continue
		}

		client, err := c.authorized(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.downloadOne(ctx, client, fp, dest); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

func (c *Client) downloadOne(ctx context.Context, client *http.Client, fp cover.Footprint, dest string) error {
	c.logger.InfoContext(ctx, "downloading product",
		slog.String("id", fp.ID),
		slog.String("url", fp.Href),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fp.Href, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download of %s failed: %w", fp.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("download of %s returned status %d: %s", fp.ID, resp.StatusCode, string(raw))
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("download of %s interrupted: %w", fp.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
