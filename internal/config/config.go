package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the CLI looks for a config when none is given.
const DefaultPath = "amqpdetective.toml"

const (
	defaultRootRule        = "protocol"
	defaultFormat          = "text"
	defaultMaxCaptureBytes = 256 << 20
	defaultAddr            = ":9780"
	defaultMaxUploadBytes  = 64 << 20
)

type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Server   ServerConfig   `toml:"server"`
}

type AnalysisConfig struct {
	RootRule        string `toml:"root_rule"`
	GrammarFile     string `toml:"grammar_file"`
	Format          string `toml:"format"`
	MaxCaptureBytes int64  `toml:"max_capture_bytes"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
}

func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			RootRule:        defaultRootRule,
			Format:          defaultFormat,
			MaxCaptureBytes: defaultMaxCaptureBytes,
		},
		Server: ServerConfig{
			Addr:           defaultAddr,
			CorsOrigins:    []string{"http://localhost:3000"},
			MaxUploadBytes: defaultMaxUploadBytes,
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config parse failed (%s): %s", path, strict.String())
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Analysis.RootRule = strings.TrimSpace(c.Analysis.RootRule)
	c.Analysis.GrammarFile = strings.TrimSpace(c.Analysis.GrammarFile)
	c.Analysis.Format = strings.ToLower(strings.TrimSpace(c.Analysis.Format))
	c.Analysis.MetricsTextfile = strings.TrimSpace(c.Analysis.MetricsTextfile)
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
}

func Validate(cfg Config) error {
	if cfg.Analysis.RootRule == "" {
		return fmt.Errorf("analysis.root_rule is required")
	}
	switch cfg.Analysis.Format {
	case "text", "json":
	default:
		return fmt.Errorf("analysis.format must be text or json, got %q", cfg.Analysis.Format)
	}
	if cfg.Analysis.MaxCaptureBytes <= 0 {
		return fmt.Errorf("analysis.max_capture_bytes must be positive")
	}
	if cfg.Analysis.GrammarFile != "" {
		if _, err := os.Stat(cfg.Analysis.GrammarFile); err != nil {
			return fmt.Errorf("analysis.grammar_file: %w", err)
		}
	}
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	for i, origin := range cfg.Server.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("server.cors_origins[%d] is empty", i)
		}
	}
	return nil
}
