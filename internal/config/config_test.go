
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Caption.Provider != "none" || !cfg.Analysis.ParallelStages || cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accessiai.yaml")
	body := `log:
  level: debug
  format: json
images:
  concurrency: 2
caption:
  provider: openai
  max_dimension: 512
analysis:
  patch: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log section not loaded: %+v", cfg.Log)
	}
	if cfg.Images.Concurrency != 2 || cfg.Caption.Provider != "openai" || cfg.Caption.MaxDimension != 512 {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if !cfg.Analysis.Patch || !cfg.Analysis.ParallelStages {
		t.Fatalf("analysis section: %+v", cfg.Analysis)
	}
	if cfg.Fetch.MaxBytes != 5*1024*1024 {
		t.Fatalf("unset key should keep default, got %d", cfg.Fetch.MaxBytes)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ACCESSIAI_CAPTION_PROVIDER", "claude")
	t.Setenv("ACCESSIAI_SERVER_ADDR", ":9999")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("explicit missing file should fail")
	}
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Caption.Provider != "claude" || cfg.Server.Addr != ":9999" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []func(*Config){
		func(c *Config) { c.Log.Level = "loud" },
		func(c *Config) { c.Log.Format = "xml" },
		func(c *Config) { c.Fetch.MaxBytes = 0 },
		func(c *Config) { c.Images.Concurrency = 0 },
		func(c *Config) { c.Caption.Provider = "bard" },
		func(c *Config) { c.Output.Format = "pdf" },
	}
	for i, mutate := range tests {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
