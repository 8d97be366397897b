package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseScenes(t *testing.T) {
	t.Parallel()

	base := filepath.Join(string(filepath.Separator), "work")

	t.Run("keeps file order and resolves paths", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{
	"zebra": {"scene": "z.gltf", "camera": "cam0", "output": "out/z.png", "reference": "ref/z.png", "stdout": "logs/z.txt"},
	"apple": {"scene": "/abs/a.gltf", "camera": "", "output": "out/a.png", "reference": "ref/a.png", "stdout": "logs/a.txt"}
}`)

		scenes, err := ParseScenes(data, base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(scenes) != 2 {
			t.Fatalf("expected 2 scenes, got %d", len(scenes))
		}
		if scenes[0].Name != "zebra" || scenes[1].Name != "apple" {
			t.Errorf("expected file order [zebra apple], got [%s %s]", scenes[0].Name, scenes[1].Name)
		}
		if scenes[0].Output != filepath.Join(base, "out", "z.png") {
			t.Errorf("unexpected output path %q", scenes[0].Output)
		}
		if scenes[0].Camera != "cam0" {
			t.Errorf("camera must not be treated as a path, got %q", scenes[0].Camera)
		}
		if scenes[1].File != "/abs/a.gltf" {
			t.Errorf("absolute scene path must be kept, got %q", scenes[1].File)
		}
	})

	t.Run("empty object yields no scenes", func(t *testing.T) {
		t.Parallel()
		scenes, err := ParseScenes([]byte(`{}`), base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(scenes) != 0 {
			t.Errorf("expected no scenes, got %d", len(scenes))
		}
	})

	t.Run("array is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseScenes([]byte(`[]`), base)
		if !errors.Is(err, ErrNoScenes) {
			t.Errorf("expected ErrNoScenes, got %v", err)
		}
	})

	t.Run("missing key is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseScenes([]byte(`{"a": {"scene": "a", "camera": "c", "output": "o", "reference": "r"}}`), base)
		if !errors.Is(err, ErrMissingSceneField) {
			t.Errorf("expected ErrMissingSceneField, got %v", err)
		}
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		t.Parallel()
		entry := `{"scene": "s", "camera": "c", "output": "o", "reference": "r", "stdout": "l"}`
		_, err := ParseScenes([]byte(`{"a": `+entry+`, "a": `+entry+`}`), base)
		if !errors.Is(err, ErrDuplicateScene) {
			t.Errorf("expected ErrDuplicateScene, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseScenes([]byte(`{"a": `), base); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestLoadScenesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadScenes(filepath.Join(t.TempDir(), "scenes.json"), "/")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}
