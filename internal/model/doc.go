// Package model defines the core data structures used throughout aurorareport.
//
// This package contains the following main types:
//   - Status: The classification of one compared image pair
//   - Record: One titled row of the report (candidate, baseline, message)
//   - Report: A whole run, with its records and run metadata
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The pipeline, report writers and history database all need
// these types.
//
// The models are serializable to JSON for summary output and history storage.
package model
