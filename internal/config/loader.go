package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default settings file name.
const DefaultConfigFile = ".aurorareport"

// ErrConfigNotFound is returned when the settings file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .aurorareport settings file.
// Every field is optional; unset fields keep the value already in Config.
type File struct {
	FailThreshold   *float64 `yaml:"fail_threshold,omitempty"`
	WarnThreshold   *float64 `yaml:"warn_threshold,omitempty"`
	FailLimit       *float64 `yaml:"fail_limit,omitempty"`
	WarnLimit       *float64 `yaml:"warn_limit,omitempty"`
	NormalizeLimits *bool    `yaml:"normalize_limits,omitempty"`

	OutputSPP     *int    `yaml:"output_spp,omitempty"`
	RenderTimeout *string `yaml:"render_timeout,omitempty"`
	Jobs          *int    `yaml:"jobs,omitempty"`

	BaselineDir    string   `yaml:"baseline_dir,omitempty"`
	PrimaryMarker  string   `yaml:"primary_marker,omitempty"`
	FallbackMarker string   `yaml:"fallback_marker,omitempty"`
	FallbackLabel  string   `yaml:"fallback_label,omitempty"`
	StripPrefixes  []string `yaml:"strip_prefixes,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply copies every set field of the file into cfg.
// A relative baseline_dir is resolved against fileDir.
func (cf *File) Apply(cfg *Config, fileDir string) error {
	if cf.FailThreshold != nil {
		cfg.FailThreshold = *cf.FailThreshold
	}
	if cf.WarnThreshold != nil {
		cfg.WarnThreshold = *cf.WarnThreshold
	}
	if cf.FailLimit != nil {
		cfg.FailLimit = *cf.FailLimit
	}
	if cf.WarnLimit != nil {
		cfg.WarnLimit = *cf.WarnLimit
	}
	if cf.NormalizeLimits != nil {
		cfg.NormalizeLimits = *cf.NormalizeLimits
	}
	if cf.OutputSPP != nil {
		cfg.OutputSPP = *cf.OutputSPP
	}
	if cf.Jobs != nil {
		cfg.Jobs = *cf.Jobs
	}
	if cf.RenderTimeout != nil {
		d, err := time.ParseDuration(*cf.RenderTimeout)
		if err != nil {
			return err
		}
		cfg.RenderTimeout = d
	}
	if cf.BaselineDir != "" {
		cfg.BaselineDir = absJoin(fileDir, cf.BaselineDir)
	}
	if cf.PrimaryMarker != "" {
		cfg.PrimaryMarker = cf.PrimaryMarker
	}
	if cf.FallbackMarker != "" {
		cfg.FallbackMarker = cf.FallbackMarker
	}
	if cf.FallbackLabel != "" {
		cfg.FallbackLabel = cf.FallbackLabel
	}
	if len(cf.StripPrefixes) > 0 {
		cfg.StripPrefixes = cf.StripPrefixes
	}
	return nil
}

// FindConfigFile searches for the settings file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .aurorareport in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .aurorareport in the user's home directory
//
// Returns the path to the settings file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	return ""
}
