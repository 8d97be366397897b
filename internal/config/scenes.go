package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Scene describes one benchmark scene the renderer is run on and compared for.
type Scene struct {
	// Name is the key of the scene in the scenes file.
	Name string `json:"name"`

	// File is the scene description passed to the renderer via --scene.
	File string `json:"scene"`

	// Camera is the camera identifier passed via --camera.
	Camera string `json:"camera"`

	// Output is the image the renderer writes and the candidate of the comparison.
	Output string `json:"output"`

	// Reference is the golden image the output is compared against.
	Reference string `json:"reference"`

	// Stdout is the log file renderer standard output is appended to.
	Stdout string `json:"stdout"`
}

// sceneEntry mirrors one scene object; pointers detect missing keys.
type sceneEntry struct {
	Scene     *string `json:"scene"`
	Camera    *string `json:"camera"`
	Output    *string `json:"output"`
	Reference *string `json:"reference"`
	Stdout    *string `json:"stdout"`
}

// LoadScenes reads the scenes file at path and returns the scenes in file order.
// Relative paths inside the file are resolved against baseDir.
//
// Design decision: the file is walked token by token with encoding/json
// instead of being decoded into a map, because Go maps do not keep key
// order and scenes must be reported in the order they are listed.
func LoadScenes(path, baseDir string) ([]Scene, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided scenes path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read scenes file: %w", err)
	}
	return ParseScenes(data, baseDir)
}

// ParseScenes parses scenes JSON data. See LoadScenes.
func ParseScenes(data []byte, baseDir string) ([]Scene, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenes file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNoScenes
	}

	seen := make(map[string]bool)
	scenes := make([]Scene, 0)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scenes file: %w", err)
		}
		name, _ := keyTok.(string) //nolint:errcheck // object keys are always strings

		var entry sceneEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to parse scene %q: %w", name, err)
		}

		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScene, name)
		}
		seen[name] = true

		scene, err := entry.toScene(name, baseDir)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse scenes file: %w", err)
	}

	return scenes, nil
}

// toScene checks that every key is present and resolves file paths.
func (e sceneEntry) toScene(name, baseDir string) (Scene, error) {
	fields := []struct {
		key   string
		value *string
	}{
		{"scene", e.Scene},
		{"camera", e.Camera},
		{"output", e.Output},
		{"reference", e.Reference},
		{"stdout", e.Stdout},
	}
	for _, f := range fields {
		if f.value == nil {
			return Scene{}, fmt.Errorf("%w: scene %q has no %q", ErrMissingSceneField, name, f.key)
		}
	}

	return Scene{
		Name:      name,
		File:      absJoin(baseDir, *e.Scene),
		Camera:    *e.Camera,
		Output:    absJoin(baseDir, *e.Output),
		Reference: absJoin(baseDir, *e.Reference),
		Stdout:    absJoin(baseDir, *e.Stdout),
	}, nil
}
