// Package config provides configuration structures and utilities for aurorareport.
//
// A run is described by three sources, applied in this order:
//   - Defaults from NewConfig, matching the thresholds and limits the
//     regression suite has always used
//   - The optional YAML settings file (.aurorareport in the current
//     directory, config.yaml in the XDG config directory, or .aurorareport
//     in the home directory), written by 'aurorareport init'
//   - Command-line flags, which only override the file when given explicitly
//
// The scenes file is a JSON object mapping scene names to their scene,
// camera, output, reference and stdout paths. LoadScenes keeps the file's
// key order because report rows follow it.
//
// Design decision: Config is resolved once (ResolvePaths) and passed
// explicitly to every component, because:
// 1. Relative paths have two different bases (the current directory for the
// command line, the renderer's directory for report-file paths)
// 2. Components never depend on the process working directory
// 3. Tests can build a Config without touching global state
package config
