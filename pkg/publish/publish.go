// Package publish copies pipeline outputs to a shared location once the
// assets have materialized.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	DriverNone = ""
	DriverDir  = "dir"
	DriverS3   = "s3"
)

var ErrUnknownDriver = errors.New("unknown publish driver")

// Publisher uploads one local file under key.
type Publisher interface {
	Publish(ctx context.Context, key, localPath string) error
}

type Config struct {
	Driver    string `yaml:"driver" toml:"driver" json:"driver"`
	Bucket    string `yaml:"bucket" toml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" toml:"prefix" json:"prefix"`
	Region    string `yaml:"region" toml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	PathStyle bool   `yaml:"path_style" toml:"path_style" json:"path_style"`
	Dir       string `yaml:"dir" toml:"dir" json:"dir"`
}

// Open builds the publisher named by cfg.Driver. The none driver returns a
// nil Publisher and no error.
func Open(ctx context.Context, cfg Config) (Publisher, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverNone, "none":
		return nil, nil
	case DriverDir:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("dir publisher: dir required")
		}
		return Dir{Root: cfg.Dir}, nil
	case DriverS3:
		s, err := NewS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

// Key joins the prefix and the base name of localPath with slashes.
func Key(prefix, localPath string) string {
	base := filepath.Base(localPath)
	if prefix == "" {
		return base
	}
	return path.Join(strings.Trim(prefix, "/"), base)
}

// All publishes each existing path under prefix. Paths that do not exist
// are skipped with a warning; the first upload error stops the loop.
func All(ctx context.Context, p Publisher, prefix string, paths []string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var keys []string
	for _, lp := range paths {
		if lp == "" {
			continue
		}
		if _, err := os.Stat(lp); err != nil {
			logger.Warn("skip publish", zap.String("path", lp), zap.Error(err))
			continue
		}
		key := Key(prefix, lp)
		if err := p.Publish(ctx, key, lp); err != nil {
			return keys, fmt.Errorf("publish %s: %w", lp, err)
		}
		logger.Info("published", zap.String("path", lp), zap.String("key", key))
		keys = append(keys, key)
	}
	return keys, nil
}

// Dir publishes by copying into a local directory tree.
type Dir struct {
	Root string
}

func (d Dir) Publish(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
