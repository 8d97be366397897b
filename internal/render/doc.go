// Package render runs the renderer under test for the benchmark scenes and
// reads rendering durations back from the scene logs.
//
// Each scene is rendered with
//
//	<renderer> --scene <scene> --output <output> --camera <camera> --output_spp <n>
//
// using a copy of the process environment. The renderer's stdout is appended
// to the scene's log file, so durations from earlier runs stay in the log
// and are all reported. Stderr is kept and its tail is included in the error
// when the renderer fails.
//
// Design decision: Run reports failures instead of ignoring them, because a
// renderer that crashed, could not start or hit the render timeout leaves a
// stale output image behind, and a comparison of that image alone would
// look like a pass. The pipeline records the failure on the scene's row and
// keeps going.
//
// Durations are the figures of every "Rendering completed in <n>" line.
// Progress output redrawn with carriage returns and overlong lines do not
// stop the scan.
package render
