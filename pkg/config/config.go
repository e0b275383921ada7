// Package config loads pipeline settings from a file, an optional .env and
// SMUDGE_* environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wdm0006/smudge/pkg/dataset"
	"github.com/wdm0006/smudge/pkg/io/structio"
	"github.com/wdm0006/smudge/pkg/publish"
	"github.com/wdm0006/smudge/pkg/superstore"
)

const envPrefix = "SMUDGE_"

type Log struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
}

// Config represents the application configuration. Empty paths are filled
// from DataDir and the default file names.
type Config struct {
	DataDir         string         `yaml:"data_dir" toml:"data_dir" json:"data_dir"`
	RawPath         string         `yaml:"raw_path" toml:"raw_path" json:"raw_path"`
	PreparedPath    string         `yaml:"prepared_path" toml:"prepared_path" json:"prepared_path"`
	ActivityPath    string         `yaml:"activity_path" toml:"activity_path" json:"activity_path"`
	CatalogPath     string         `yaml:"catalog_path" toml:"catalog_path" json:"catalog_path"`
	PreviewRows     int            `yaml:"preview_rows" toml:"preview_rows" json:"preview_rows"`
	ManifestPath    string         `yaml:"manifest_path" toml:"manifest_path" json:"manifest_path"`
	MetricsTextfile string         `yaml:"metrics_textfile" toml:"metrics_textfile" json:"metrics_textfile"`
	Log             Log            `yaml:"log" toml:"log" json:"log"`
	Publish         publish.Config `yaml:"publish" toml:"publish" json:"publish"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DataDir:     "datasets",
		PreviewRows: 5,
		Log:         Log{Level: "info", Format: "console"},
	}
}

// Load reads path (yaml, toml or json by extension; empty means none), then
// the .env file next to the working directory if present, then SMUDGE_*
// variables. The result is resolved and validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := structio.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve fills empty paths from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "datasets"
	}
	p := superstore.DefaultPaths(c.DataDir)
	if c.RawPath == "" {
		c.RawPath = p.Raw
	}
	if c.PreparedPath == "" {
		c.PreparedPath = p.Prepared
	}
	if c.ActivityPath == "" {
		c.ActivityPath = p.Activity
	}
	if c.PreviewRows == 0 {
		c.PreviewRows = 5
	}
}

func (c Config) Paths() superstore.Paths {
	return superstore.Paths{Raw: c.RawPath, Prepared: c.PreparedPath, Activity: c.ActivityPath}
}

// Validate ensures all required configuration is present and valid.
func (c Config) Validate() error {
	var errs []error
	if c.PreviewRows < 0 {
		errs = append(errs, errors.New("preview_rows cannot be negative"))
	}
	for _, p := range [][2]string{{"prepared_path", c.PreparedPath}, {"activity_path", c.ActivityPath}} {
		if _, err := dataset.FormatOf(p[1]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p[0], err))
		}
	}
	if c.RawPath != "" && filepath.Clean(c.RawPath) == filepath.Clean(c.ActivityPath) {
		errs = append(errs, errors.New("activity_path would overwrite raw_path"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	switch strings.ToLower(c.Publish.Driver) {
	case publish.DriverNone, "none", publish.DriverDir, publish.DriverS3:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", publish.ErrUnknownDriver, c.Publish.Driver))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DATA_DIR":         &c.DataDir,
		"RAW_PATH":         &c.RawPath,
		"PREPARED_PATH":    &c.PreparedPath,
		"ACTIVITY_PATH":    &c.ActivityPath,
		"CATALOG_PATH":     &c.CatalogPath,
		"MANIFEST_PATH":    &c.ManifestPath,
		"METRICS_TEXTFILE": &c.MetricsTextfile,
		"LOG_LEVEL":        &c.Log.Level,
		"LOG_FORMAT":       &c.Log.Format,
		"PUBLISH_DRIVER":   &c.Publish.Driver,
		"PUBLISH_BUCKET":   &c.Publish.Bucket,
		"PUBLISH_PREFIX":   &c.Publish.Prefix,
		"PUBLISH_REGION":   &c.Publish.Region,
		"PUBLISH_ENDPOINT": &c.Publish.Endpoint,
		"PUBLISH_DIR":      &c.Publish.Dir,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "PREVIEW_ROWS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPREVIEW_ROWS: %w", envPrefix, err)
		}
		c.PreviewRows = n
	}
	if v, ok := os.LookupEnv(envPrefix + "PUBLISH_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sPUBLISH_PATH_STYLE: %w", envPrefix, err)
		}
		c.Publish.PathStyle = b
	}
	return nil
}
