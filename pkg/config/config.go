package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/wrappers"
	"gopkg.in/yaml.v3"
)

type ToolConfig struct {
	Enabled           *bool  `yaml:"enabled,omitempty"`
	SeverityThreshold string `yaml:"severity_threshold,omitempty"`
}

type AdvisorConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

type Config struct {
	SourceDir   string                `yaml:"source_dir"`
	ReportsDir  string                `yaml:"reports_dir"`
	ProjectName string                `yaml:"project_name"`
	FrontendDir string                `yaml:"frontend_dir"`
	ProfilesDir string                `yaml:"profiles_dir,omitempty"`
	Tools       map[string]ToolConfig `yaml:"tools"`
	Advisor     AdvisorConfig         `yaml:"advisor"`
	Log         LogConfig             `yaml:"log"`
}

func enabled(b bool) *bool { return &b }

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		SourceDir:   "/app/src",
		ReportsDir:  "/security/reports",
		ProjectName: "booking-system",
		FrontendDir: "frontend",
		Tools: map[string]ToolConfig{
			string(engine.ToolSemgrep):         {Enabled: enabled(true), SeverityThreshold: "WARNING"},
			string(engine.ToolTrivy):           {Enabled: enabled(true), SeverityThreshold: "HIGH"},
			string(engine.ToolDependencyCheck): {Enabled: enabled(true), SeverityThreshold: "HIGH"},
			string(engine.ToolGitleaks):        {Enabled: enabled(true)},
			string(engine.ToolESLintSecurity):  {Enabled: enabled(true)},
		},
		Advisor: AdvisorConfig{
			Provider: "gemini",
			Model:    "gemini-1.5-flash",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

const DefaultFile = "secscan.yaml"

func GetConfigPath() (string, error) {
	if p := os.Getenv("SECSCAN_CONFIG"); p != "" {
		return p, nil
	}
	return DefaultFile, nil
}

// LoadConfig reads path (or the default location when empty). A missing
// file yields Default(); fields absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Tools == nil {
		cfg.Tools = make(map[string]ToolConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions for security (api keys)
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects settings the scanner cannot act on.
func (c *Config) Validate() error {
	known := make(map[string]bool, len(engine.AllTools))
	for _, t := range engine.AllTools {
		known[string(t)] = true
	}
	for name, t := range c.Tools {
		if !known[name] {
			return fmt.Errorf("unknown tool %q", name)
		}
		if err := wrappers.ValidateThreshold(engine.ToolName(name), t.SeverityThreshold); err != nil {
			return err
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); c.Log.Level != "" && err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ToolEnabled treats a tool without an explicit setting as enabled.
func (c *Config) ToolEnabled(name engine.ToolName) bool {
	t, ok := c.Tools[string(name)]
	if !ok || t.Enabled == nil {
		return true
	}
	return *t.Enabled
}

func (c *Config) SetToolEnabled(name engine.ToolName, on bool) {
	t := c.Tools[string(name)]
	t.Enabled = enabled(on)
	c.Tools[string(name)] = t
}

// Thresholds returns the configured severity threshold per tool.
func (c *Config) Thresholds() map[engine.ToolName]string {
	out := make(map[engine.ToolName]string)
	for name, t := range c.Tools {
		if t.SeverityThreshold != "" {
			out[engine.ToolName(name)] = t.SeverityThreshold
		}
	}
	return out
}

// GetAPIKey falls back to GOOGLE_API_KEY for gemini.
func (c *Config) GetAPIKey() string {
	if c.Advisor.APIKey != "" {
		return c.Advisor.APIKey
	}
	if c.Advisor.Provider == "gemini" {
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}
