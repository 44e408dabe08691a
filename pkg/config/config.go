// Package config holds the run configuration: defaults, an optional TOML
// file and validation. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/executor"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/policy"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/s3client"
)

const (
	MinCompression = 0
	MaxCompression = 9
)

type Config struct {
	Src         string   `toml:"src"`
	Dest        string   `toml:"dest"`
	Workers     int      `toml:"n_cpus"`
	Compression int      `toml:"compress"`
	Silent      bool     `toml:"silent"`
	SourceExt   string   `toml:"src_ext"`
	DestExt     string   `toml:"dest_ext"`
	CopyAll     bool     `toml:"copy_all"`
	Excludes    []string `toml:"exclude"`
	DryRun      bool     `toml:"dryrun"`

	FailurePolicy    string `toml:"failure_policy"`
	CorruptionReport string `toml:"corruption_report"`

	PlanJSONFile   string `toml:"plan_json_file"`
	ResultJSONFile string `toml:"result_json_file"`

	Log LogConfig `toml:"log"`
	S3  S3Config  `toml:"s3"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// S3Config applies when Dest is an s3:// URI.
type S3Config struct {
	Profile string `toml:"profile"`
	Region  string `toml:"region"`
}

func Default() Config {
	return Config{
		Workers:          runtime.NumCPU(),
		Compression:      3,
		SourceExt:        ".raw",
		DestExt:          ".tiff",
		FailurePolicy:    string(executor.FailFast),
		CorruptionReport: string(policy.ReportOnce),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load returns the defaults overlaid with the TOML file at path. An empty
// path returns the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// IsRemote reports whether the destination is an S3 URI.
func (c *Config) IsRemote() bool {
	return s3client.IsS3URI(c.Dest)
}

// Validate checks values and normalizes extensions to a leading dot.
func (c *Config) Validate() error {
	if c.Src == "" || c.Dest == "" {
		return errors.New("both --src and --dest are required")
	}
	if c.Compression < MinCompression || c.Compression > MaxCompression {
		return fmt.Errorf("compression level %d out of range (use %d-%d)", c.Compression, MinCompression, MaxCompression)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Workers)
	}

	var err error
	if c.SourceExt, err = normalizeExt("source extension", c.SourceExt); err != nil {
		return err
	}
	if c.DestExt, err = normalizeExt("destination extension", c.DestExt); err != nil {
		return err
	}

	if _, err := executor.ParseFailurePolicy(c.FailurePolicy); err != nil {
		return err
	}
	if _, err := policy.ParseReportMode(c.CorruptionReport); err != nil {
		return err
	}

	for _, pattern := range c.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	if c.IsRemote() {
		if _, _, err := s3client.ParseS3URI(c.Dest); err != nil {
			return err
		}
	}
	return nil
}

func normalizeExt(name, ext string) (string, error) {
	ext = strings.TrimSpace(ext)
	if ext == "" || ext == "." {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext, nil
}

// ValidatePaths ensures a local destination is neither the source nor
// inside it; otherwise a run would scan its own output. Both arguments must
// be absolute, cleaned paths.
func (c *Config) ValidatePaths(srcAbs, destAbs string) error {
	sep := string(filepath.Separator)
	if destAbs == srcAbs || strings.HasPrefix(destAbs+sep, srcAbs+sep) {
		return errors.New("destination directory must not be inside the source directory")
	}
	return nil
}
