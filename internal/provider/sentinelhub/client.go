// Package sentinelhub implements the tiling-service provider on top of the
// Sentinel Hub Process API.
package sentinelhub

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
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/robert-malhotra/burn-severity/internal/provider"
	"github.com/robert-malhotra/burn-severity/internal/raster"
	"github.com/robert-malhotra/burn-severity/internal/rasterio"
)

const (
	// DataCollection is the Sentinel-2 surface reflectance collection.
	DataCollection = "sentinel-2-l2a"

	// MosaickingLeastCC prefers the least cloudy acquisition per pixel.
	MosaickingLeastCC = "leastCC"
)

// Config holds the connection settings. It is passed explicitly at
// construction; the client holds no global credential state.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// DecodeFunc reads a downloaded tile from disk.
type DecodeFunc func(path string) (*raster.Tile, error)

// Client fetches composites from the Process API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	decode     DecodeFunc
	logger     *slog.Logger
}

var _ provider.TileFetcher = (*Client)(nil)

// NewClient creates a client that authenticates with OAuth client credentials.
func NewClient(cfg Config) *Client {
	base := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	httpClient := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		decode: func(path string) (*raster.Tile, error) {
			return rasterio.ReadTile(path, raster.BandsLast)
		},
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithHTTPClient replaces the authenticated HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// WithDecoder replaces the GeoTIFF decoder.
func (c *Client) WithDecoder(fn DecodeFunc) *Client {
	c.decode = fn
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "sentinelhub"
}

// BuildRequest builds the Process API body for req. The window end day is
// included in full.
func BuildRequest(req provider.FetchRequest) ProcessRequest {
	return ProcessRequest{
		Input: Input{
			Bounds: Bounds{
				BBox:       req.BBox.Slice(),
				Properties: BoundsProperties{CRS: crs84},
			},
			Data: []InputData{{
				Type: DataCollection,
				DataFilter: DataFilter{
					TimeRange: TimeRange{
						From: req.Window.Start.Format(time.RFC3339),
						To:   req.Window.End.Add(24*time.Hour - time.Second).Format(time.RFC3339),
					},
					MosaickingOrder: MosaickingLeastCC,
				},
			}},
		},
		Output: Output{
			Width:  req.Width,
			Height: req.Height,
			Responses: []OutputResponse{{
				Identifier: "default",
				Format:     OutputFormat{Type: "image/tiff"},
			}},
		},
		Evalscript: Evalscript(req.Bands),
	}
}

// Fetch requests one composite tile, stores the GeoTIFF at req.Dest and
// returns it decoded with bands on the last axis.
func (c *Client) Fetch(ctx context.Context, req provider.FetchRequest) (*raster.Tile, error) {
	if len(req.Bands) == 0 {
		return nil, fmt.Errorf("fetch request has no bands")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("invalid tile size %dx%d", req.Width, req.Height)
	}
	if req.Dest == "" {
		return nil, fmt.Errorf("fetch request has no destination")
	}

	body, err := json.Marshal(BuildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode process request: %w", err)
	}

	processURL := c.baseURL + "/api/v1/process"
	c.logger.DebugContext(ctx, "executing Sentinel Hub process request",
		slog.String("url", processURL),
		slog.String("bbox", req.BBox.String()),
		slog.String("window", req.Window.String()),
		slog.Int("width", req.Width),
		slog.Int("height", req.Height),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, processURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/tiff")
	httpReq.Header.Set("User-Agent", "burn-severity/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.ErrorContext(ctx, "Sentinel Hub request failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("sentinel hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		msg := string(raw)
		var apiErr ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		c.logger.ErrorContext(ctx, "Sentinel Hub returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", msg),
		)
		return nil, fmt.Errorf("sentinel hub returned status %d: %s", resp.StatusCode, msg)
	}

	if err := writeFile(req.Dest, resp.Body); err != nil {
		return nil, err
	}

	tile, err := c.decode(req.Dest)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", req.Dest, err)
	}
	if tile.Bands != len(req.Bands) {
		return nil, fmt.Errorf("tile %s has %d bands, requested %d", req.Dest, tile.Bands, len(req.Bands))
	}
	tile.BandOrder = make([]string, len(req.Bands))
	for i, b := range req.Bands {
		tile.BandOrder[i] = b.String()
	}

	c.logger.DebugContext(ctx, "Sentinel Hub tile fetched",
		slog.String("path", req.Dest),
		slog.Int("rows", tile.Rows),
		slog.Int("cols", tile.Cols),
	)
	return tile, nil
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create tile directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create tile file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write tile file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close tile file: %w", err)
	}
	return nil
}
