// Package main provides the entry point for the aurorareport CLI.
//
// aurorareport renders the benchmark scenes of the Aurora regression suite,
// compares fresh output against golden images, folds in the failures of an
// existing text report and writes one static HTML page with the results.
//
// Usage:
//
//	aurorareport <renderer_executable> <scenes_config.json> <report.txt>
//	aurorareport history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
