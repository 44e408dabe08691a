package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw2tiff-sync.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(*cfg, config.Default()) {
		t.Fatalf("Load(\"\") = %+v, want defaults", *cfg)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Fatalf("default workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.Compression != 3 || cfg.SourceExt != ".raw" || cfg.DestExt != ".tiff" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
src = "/data/in"
dest = "s3://bucket/out"
compress = 9
copy_all = true
exclude = ["**/.DS_Store", "calibration"]
failure_policy = "drain-all"

[log]
format = "json"

[s3]
region = "ap-northeast-1"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Src != "/data/in" || cfg.Dest != "s3://bucket/out" {
		t.Fatalf("unexpected paths: %q %q", cfg.Src, cfg.Dest)
	}
	if cfg.Compression != 9 || !cfg.CopyAll {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if len(cfg.Excludes) != 2 || cfg.Excludes[1] != "calibration" {
		t.Fatalf("unexpected excludes: %v", cfg.Excludes)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.S3.Region != "ap-northeast-1" {
		t.Fatalf("unexpected region: %q", cfg.S3.Region)
	}
	// Keys absent from the file keep their defaults.
	if cfg.SourceExt != ".raw" || cfg.CorruptionReport != "once" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if !cfg.IsRemote() {
		t.Fatal("expected s3 destination to be remote")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}

	path := writeConfig(t, "compres = 5\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}

	path = writeConfig(t, "compress = \"high\"\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for mistyped value")
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Src = "/in"
		cfg.Dest = "/out"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"missing src", func(c *config.Config) { c.Src = "" }, "required"},
		{"missing dest", func(c *config.Config) { c.Dest = "" }, "required"},
		{"compression too high", func(c *config.Config) { c.Compression = 10 }, "out of range"},
		{"compression negative", func(c *config.Config) { c.Compression = -1 }, "out of range"},
		{"compression zero", func(c *config.Config) { c.Compression = 0 }, ""},
		{"no workers", func(c *config.Config) { c.Workers = 0 }, "worker count"},
		{"empty source extension", func(c *config.Config) { c.SourceExt = "" }, "source extension"},
		{"bare dot extension", func(c *config.Config) { c.DestExt = "." }, "destination extension"},
		{"unknown failure policy", func(c *config.Config) { c.FailurePolicy = "retry" }, "failure policy"},
		{"unknown report mode", func(c *config.Config) { c.CorruptionReport = "always" }, "corruption report"},
		{"bad exclude", func(c *config.Config) { c.Excludes = []string{"[abc"} }, "exclude"},
		{"bad s3 uri", func(c *config.Config) { c.Dest = "s3://" }, "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNormalizesExtensions(t *testing.T) {
	cfg := config.Default()
	cfg.Src, cfg.Dest = "/in", "/out"
	cfg.SourceExt = "RAW"
	cfg.DestExt = " tif "
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.SourceExt != ".RAW" || cfg.DestExt != ".tif" {
		t.Fatalf("extensions = %q %q", cfg.SourceExt, cfg.DestExt)
	}
}

func TestValidatePaths(t *testing.T) {
	cfg := config.Default()
	root := filepath.Join(string(filepath.Separator), "data")

	tests := []struct {
		dest    string
		wantErr bool
	}{
		{filepath.Join(root, "in"), true},
		{filepath.Join(root, "in", "out"), true},
		{filepath.Join(root, "input-tiff"), false},
		{filepath.Join(root, "out"), false},
	}
	for _, tt := range tests {
		err := cfg.ValidatePaths(filepath.Join(root, "in"), tt.dest)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePaths(%q) error = %v, wantErr %v", tt.dest, err, tt.wantErr)
		}
	}
}
