
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"accessiai/internal/caption"
	"accessiai/internal/report"
)

// EnvPrefix namespaces environment overrides, e.g. ACCESSIAI_CAPTION_PROVIDER.
const EnvPrefix = "ACCESSIAI"

var candidates = []string{"accessiai.yaml", "accessiai.yml", "accessiai.json", "accessiai.toml"}

type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Images   ImagesConfig   `mapstructure:"images" yaml:"images"`
	Caption  CaptionConfig  `mapstructure:"caption" yaml:"caption"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type FetchConfig struct {
	// MaxBytes caps the page body; larger pages are truncated.
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
	// Render loads the page in a headless browser instead of a plain GET.
	Render bool `mapstructure:"render" yaml:"render"`
}

type ImagesConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

type CaptionConfig struct {
	Provider     string `mapstructure:"provider" yaml:"provider"`
	Model        string `mapstructure:"model" yaml:"model"`
	MaxDimension uint   `mapstructure:"max_dimension" yaml:"max_dimension"`
}

type AnalysisConfig struct {
	ParallelStages bool `mapstructure:"parallel_stages" yaml:"parallel_stages"`
	Patch          bool `mapstructure:"patch" yaml:"patch"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Fetch:    FetchConfig{MaxBytes: 5 * 1024 * 1024},
		Images:   ImagesConfig{Concurrency: caption.DefaultConcurrency},
		Caption:  CaptionConfig{Provider: "none", MaxDimension: caption.DefaultMaxDimension},
		Analysis: AnalysisConfig{ParallelStages: true},
		Server:   ServerConfig{Addr: ":8080"},
		Output:   OutputConfig{Format: string(report.FormatJSON)},
	}
}

// Load reads path, or the first accessiai.* file in the working directory
// when path is empty, and applies ACCESSIAI_* environment overrides. A
// missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = discover()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("fetch.max_bytes", d.Fetch.MaxBytes)
	v.SetDefault("fetch.render", d.Fetch.Render)
	v.SetDefault("images.concurrency", d.Images.Concurrency)
	v.SetDefault("caption.provider", d.Caption.Provider)
	v.SetDefault("caption.model", d.Caption.Model)
	v.SetDefault("caption.max_dimension", d.Caption.MaxDimension)
	v.SetDefault("analysis.parallel_stages", d.Analysis.ParallelStages)
	v.SetDefault("analysis.patch", d.Analysis.Patch)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("output.format", d.Output.Format)
}

func discover() string {
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be > 0, got %d", c.Fetch.MaxBytes)
	}
	if c.Images.Concurrency < 1 {
		return fmt.Errorf("images.concurrency must be >= 1, got %d", c.Images.Concurrency)
	}
	if _, err := caption.NewLoader(c.Caption.Provider, c.Caption.Model); err != nil {
		return err
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}
