package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/aurora-tools/aurorareport/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	if cmd.Use != "init" {
		t.Errorf("expected use 'init', got %q", cmd.Use)
	}

	flag := cmd.Flags().Lookup("output")
	if flag == nil {
		t.Fatal("expected output flag")
	}
	if flag.Shorthand != "o" || flag.DefValue != config.DefaultConfigFile {
		t.Errorf("unexpected output flag: -%s default %q", flag.Shorthand, flag.DefValue)
	}

	flag = cmd.Flags().Lookup("force")
	if flag == nil {
		t.Fatal("expected force flag")
	}
	if flag.Shorthand != "f" || flag.DefValue != "false" {
		t.Errorf("unexpected force flag: -%s default %q", flag.Shorthand, flag.DefValue)
	}
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates loadable config file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), config.DefaultConfigFile)

		cmd := NewInitCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"-o", outputPath})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Created configuration file") {
			t.Errorf("unexpected output: %s", out.String())
		}

		cf, err := config.LoadConfigFile(outputPath)
		if err != nil {
			t.Fatalf("generated file does not load: %v", err)
		}

		cfg := config.NewConfig()
		if err := cf.Apply(cfg, filepath.Dir(outputPath)); err != nil {
			t.Fatalf("generated file does not apply: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("generated settings are invalid: %v", err)
		}

		// The template documents the defaults.
		defaults := config.NewConfig()
		if cfg.FailThreshold != defaults.FailThreshold || cfg.WarnThreshold != defaults.WarnThreshold {
			t.Errorf("thresholds = %v/%v, want %v/%v",
				cfg.FailThreshold, cfg.WarnThreshold, defaults.FailThreshold, defaults.WarnThreshold)
		}
		if cfg.FailLimit != defaults.FailLimit || cfg.WarnLimit != defaults.WarnLimit {
			t.Errorf("limits = %v/%v, want %v/%v", cfg.FailLimit, cfg.WarnLimit, defaults.FailLimit, defaults.WarnLimit)
		}
		if cfg.RenderTimeout != defaults.RenderTimeout {
			t.Errorf("render timeout = %v, want %v", cfg.RenderTimeout, defaults.RenderTimeout)
		}
		if strings.Join(cfg.StripPrefixes, ",") != strings.Join(defaults.StripPrefixes, ",") {
			t.Errorf("strip prefixes = %v, want %v", cfg.StripPrefixes, defaults.StripPrefixes)
		}
	})

	t.Run("template is valid YAML", func(t *testing.T) {
		t.Parallel()

		content, err := configTemplate.ReadFile("templates/aurorareport.yaml")
		if err != nil {
			t.Fatalf("failed to read template: %v", err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			t.Fatalf("template is not valid YAML: %v", err)
		}
		for _, key := range []string{"fail_threshold", "warn_threshold", "fail_limit", "warn_limit", "output_spp"} {
			if _, ok := doc[key]; !ok {
				t.Errorf("template is missing %q", key)
			}
		}
	})

	t.Run("fails if file exists without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath})

		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Fatalf("expected 'already exists' error, got %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(content) != "existing" {
			t.Error("existing file was modified")
		}
	})

	t.Run("overwrites file with force flag", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath, "-f"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "fail_threshold:") {
			t.Error("expected file to be overwritten with the template")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "ci", "nested", "aurorareport.yaml")

		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(outputPath); err != nil {
			t.Errorf("expected config file to be created: %v", err)
		}
	})
}
