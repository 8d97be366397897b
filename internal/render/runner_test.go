package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aurora-tools/aurorareport/internal/config"
)

// The tests in this file write and execute shell scripts. They do not call
// t.Parallel: forking while another goroutine still holds a freshly written
// script open for writing makes exec fail with "text file busy".

// fakeRenderer writes an executable shell script with the given body and
// returns a config pointing at it.
func fakeRenderer(t *testing.T, body string) *config.Config {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script renderer requires a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "renderer")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil { //nolint:gosec // Test script must be executable
		t.Fatalf("write fake renderer: %v", err)
	}

	cfg := config.NewConfig()
	cfg.RendererPath = path
	return cfg
}

func testScene(t *testing.T) config.Scene {
	t.Helper()

	dir := t.TempDir()
	return config.Scene{
		Name:      "sponza",
		File:      "sponza.gltf",
		Camera:    "cam0",
		Output:    filepath.Join(dir, "sponza.png"),
		Reference: filepath.Join(dir, "golden.png"),
		Stdout:    filepath.Join(dir, "sponza.log"),
	}
}

func TestRunner_Args(t *testing.T) {
	cfg := config.NewConfig()
	cfg.RendererPath = "/opt/renderer"
	cfg.OutputSPP = 64
	r := NewRunner(cfg)

	scene := config.Scene{File: "a.gltf", Output: "a.png", Camera: "main"}
	got := strings.Join(r.Args(scene), " ")
	want := "--scene a.gltf --output a.png --camera main --output_spp 64"
	if got != want {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestRunner_Run_AppendsStdout(t *testing.T) {
	cfg := fakeRenderer(t, `echo "args: $*"
echo "Rendering completed in 42 ms"`)
	scene := testScene(t)

	if err := os.WriteFile(scene.Stdout, []byte("previous run\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(cfg)
	if err := r.Run(context.Background(), scene); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(scene.Stdout)
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	if !strings.HasPrefix(log, "previous run\n") {
		t.Errorf("existing log content was not kept: %q", log)
	}
	if !strings.Contains(log, "args: --scene sponza.gltf --output "+scene.Output+" --camera cam0 --output_spp 1000") {
		t.Errorf("renderer arguments missing from log: %q", log)
	}
	if !strings.Contains(log, "Rendering completed in 42 ms") {
		t.Errorf("renderer output missing from log: %q", log)
	}
}

func TestRunner_Run_CreatesLog(t *testing.T) {
	cfg := fakeRenderer(t, `echo done`)
	scene := testScene(t)

	if err := NewRunner(cfg).Run(context.Background(), scene); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(scene.Stdout); err != nil {
		t.Errorf("scene log not created: %v", err)
	}
}

func TestRunner_Run_PassesEnvironment(t *testing.T) {
	cfg := fakeRenderer(t, `echo "license=$AURORA_LICENSE_SERVER"`)
	scene := testScene(t)

	r := NewRunner(cfg, WithEnv([]string{"AURORA_LICENSE_SERVER=lic.example.com"}))
	if err := r.Run(context.Background(), scene); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(scene.Stdout)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "license=lic.example.com") {
		t.Errorf("environment not passed: %q", data)
	}
}

func TestRunner_Run_NonZeroExit(t *testing.T) {
	cfg := fakeRenderer(t, `echo "scene file not found" >&2
exit 3`)
	scene := testScene(t)

	err := NewRunner(cfg).Run(context.Background(), scene)
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("Run() error = %v, want ErrRenderFailed", err)
	}
	if !strings.Contains(err.Error(), "scene file not found") {
		t.Errorf("error %q does not include stderr", err)
	}
}

func TestRunner_Run_MissingExecutable(t *testing.T) {
	cfg := config.NewConfig()
	cfg.RendererPath = filepath.Join(t.TempDir(), "missing")
	scene := testScene(t)

	err := NewRunner(cfg).Run(context.Background(), scene)
	if err == nil {
		t.Fatal("Run() expected error for missing executable")
	}
	if errors.Is(err, ErrRenderFailed) || errors.Is(err, ErrRenderTimeout) {
		t.Errorf("Run() error = %v, want start failure", err)
	}
}

func TestRunner_Run_Timeout(t *testing.T) {
	cfg := fakeRenderer(t, `exec sleep 10`)
	cfg.RenderTimeout = 200 * time.Millisecond
	scene := testScene(t)

	start := time.Now()
	err := NewRunner(cfg).Run(context.Background(), scene)
	if !errors.Is(err, ErrRenderTimeout) {
		t.Fatalf("Run() error = %v, want ErrRenderTimeout", err)
	}
	if time.Since(start) > 8*time.Second {
		t.Errorf("Run() did not stop at the timeout")
	}
}

func TestRunner_Run_LogNotWritable(t *testing.T) {
	cfg := fakeRenderer(t, `echo done`)
	scene := testScene(t)
	scene.Stdout = filepath.Join(t.TempDir(), "missing-dir", "scene.log")

	if err := NewRunner(cfg).Run(context.Background(), scene); err == nil {
		t.Error("Run() expected error for unwritable log")
	}
}
