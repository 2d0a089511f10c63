// Package config provides configuration management for the burn severity
// mapper and its job service.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/robert-malhotra/burn-severity/internal/provider"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

// CredentialsFileEnv names a dotenv file holding provider credentials.
// Values already present in the environment take precedence over the file.
const CredentialsFileEnv = "COPERNICUS_CREDENTIALS"

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig      `envPrefix:"SERVER_"`
	Provider    ProviderConfig    `envPrefix:"PROVIDER_"`
	SentinelHub SentinelHubConfig `envPrefix:"SH_"`
	Archive     ArchiveConfig     `envPrefix:"ARCHIVE_"`
	Acquire     AcquireConfig     `envPrefix:"ACQUIRE_"`
	Window      WindowConfig      `envPrefix:"WINDOW_"`
	Output      OutputConfig      `envPrefix:"OUTPUT_"`
	Logging     LoggingConfig     `envPrefix:"LOG_"`
}

// ProviderKind returns the configured provider kind.
func (c *Config) ProviderKind() (provider.Kind, error) {
	return provider.ParseKind(c.Provider.Type)
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	// PublicURL prefixes links in job responses. Empty means relative links.
	PublicURL   string   `env:"PUBLIC_URL" envDefault:""`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*"`
	// MaxJobs bounds how many mappings run at once.
	MaxJobs int `env:"MAX_JOBS" envDefault:"2"`
}

// ProviderConfig selects the imagery provider.
type ProviderConfig struct {
	// Type is SH (tiling service) or CA (archive search); see provider.ParseKind.
	Type string `env:"TYPE" envDefault:"CA"`
}

// SentinelHubConfig contains Sentinel Hub Process API settings.
type SentinelHubConfig struct {
	BaseURL      string        `env:"BASE_URL" envDefault:"https://services.sentinel-hub.com"`
	TokenURL     string        `env:"TOKEN_URL" envDefault:"https://services.sentinel-hub.com/auth/realms/main/protocol/openid-connect/token"`
	ClientID     string        `env:"CLIENT_ID" envDefault:""`
	ClientSecret string        `env:"CLIENT_SECRET" envDefault:""`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"2m"`
	Resolution   float64       `env:"RESOLUTION" envDefault:"10"`
}

// ArchiveConfig contains Copernicus archive search and download settings.
type ArchiveConfig struct {
	STACURL     string        `env:"STAC_URL" envDefault:"https://stac.dataspace.copernicus.eu/v1"`
	Collection  string        `env:"COLLECTION" envDefault:"sentinel-2-l2a"`
	DownloadURL string        `env:"DOWNLOAD_URL" envDefault:"https://zipper.dataspace.copernicus.eu/odata/v1"`
	TokenURL    string        `env:"TOKEN_URL" envDefault:"https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"`
	ClientID    string        `env:"CLIENT_ID" envDefault:"cdse-public"`
	Username    string        `env:"USERNAME" envDefault:""`
	Password    string        `env:"PASSWORD" envDefault:""`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10m"`
	Resolution  string        `env:"RESOLUTION" envDefault:"R20m"`
}

// AcquireConfig tunes composite acquisition.
type AcquireConfig struct {
	Workers        int     `env:"WORKERS" envDefault:"5"`
	SplitThreshold int     `env:"SPLIT_THRESHOLD" envDefault:"2500"`
	GridCols       int     `env:"GRID_COLS" envDefault:"5"`
	GridRows       int     `env:"GRID_ROWS" envDefault:"3"`
	CloudThreshold float64 `env:"CLOUD_THRESHOLD" envDefault:"10"`
	CloudCeiling   float64 `env:"CLOUD_CEILING" envDefault:"10"`
}

// WindowConfig bounds the date window recalibration loop.
type WindowConfig struct {
	ExtensionDays int `env:"EXTENSION_DAYS" envDefault:"7"`
	StepDays      int `env:"STEP_DAYS" envDefault:"7"`
	MaxRetries    int `env:"MAX_RETRIES" envDefault:"10"`
	MaxDays       int `env:"MAX_DAYS" envDefault:"120"`
}

// OutputConfig names the working directory and the result files.
type OutputConfig struct {
	WorkDir    string `env:"WORKDIR" envDefault:"data"`
	Raster     string `env:"RASTER" envDefault:"data/output.tiff"`
	Legend     string `env:"LEGEND" envDefault:"data/legend.json"`
	Profile    string `env:"PROFILE" envDefault:""`
	KeepScenes bool   `env:"KEEP_SCENES" envDefault:"false"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables. When
// COPERNICUS_CREDENTIALS names a dotenv file it is loaded first.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	if path, ok := os.LookupEnv(CredentialsFileEnv); ok && path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load credentials file %s: %w", path, err)
		}
	}

	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid. Provider credentials
// are only checked by ValidateCredentials, since the server can start
// without them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Server.MaxJobs < 1 {
		return fmt.Errorf("server max jobs must be at least 1, got %d", c.Server.MaxJobs)
	}

	if _, err := provider.ParseKind(c.Provider.Type); err != nil {
		return err
	}

	if c.SentinelHub.Timeout <= 0 || c.Archive.Timeout <= 0 {
		return fmt.Errorf("provider timeouts must be positive")
	}

	if c.SentinelHub.Resolution <= 0 {
		return fmt.Errorf("sentinel hub resolution must be positive, got %g", c.SentinelHub.Resolution)
	}

	// R10m carries no B8A or B12, so only the coarser products can be stacked.
	switch c.Archive.Resolution {
	case "R20m", "R60m":
	default:
		return fmt.Errorf("archive resolution must be R20m or R60m, got %q", c.Archive.Resolution)
	}

	if c.Acquire.Workers < 1 {
		return fmt.Errorf("acquire workers must be at least 1, got %d", c.Acquire.Workers)
	}

	if c.Acquire.GridCols < 1 || c.Acquire.GridRows < 1 {
		return fmt.Errorf("acquire grid must be at least 1x1, got %dx%d", c.Acquire.GridCols, c.Acquire.GridRows)
	}

	if c.Acquire.CloudThreshold <= 0 || c.Acquire.CloudThreshold > 100 {
		return fmt.Errorf("cloud threshold must be in (0, 100], got %g", c.Acquire.CloudThreshold)
	}

	if c.Window.ExtensionDays < window.DefaultExtensionDays {
		return fmt.Errorf("window extension must be at least %d days, got %d", window.DefaultExtensionDays, c.Window.ExtensionDays)
	}

	if c.Window.StepDays < 1 {
		return fmt.Errorf("window step must be at least one day, got %d", c.Window.StepDays)
	}

	if c.Window.MaxRetries < 0 {
		return fmt.Errorf("window max retries must not be negative, got %d", c.Window.MaxRetries)
	}

	if c.Window.MaxDays < c.Window.ExtensionDays {
		return fmt.Errorf("max window days (%d) must be >= extension days (%d)", c.Window.MaxDays, c.Window.ExtensionDays)
	}

	if c.Output.WorkDir == "" || c.Output.Raster == "" || c.Output.Legend == "" {
		return fmt.Errorf("output workdir, raster and legend paths are required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// ValidateCredentials checks that the selected provider has credentials.
func (c *Config) ValidateCredentials(kind provider.Kind) error {
	switch kind {
	case provider.TilingService:
		if c.SentinelHub.ClientID == "" || c.SentinelHub.ClientSecret == "" {
			return fmt.Errorf("SH_CLIENT_ID and SH_CLIENT_SECRET are required for the SH provider")
		}
	default:
		if c.Archive.Username == "" || c.Archive.Password == "" {
			return fmt.Errorf("ARCHIVE_USERNAME and ARCHIVE_PASSWORD are required for the CA provider")
		}
	}
	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
