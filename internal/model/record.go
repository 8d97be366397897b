package model

import (
	"encoding/json"
	"math"
	"path/filepath"
	"strconv"
)

// Source tells which pass of the pipeline produced a record.
type Source string

const (
	// SourceCTP marks records of the direct scene comparison pass.
	SourceCTP Source = "ctp"

	// SourceReport marks records parsed from the external text report.
	SourceReport Source = "report"
)

// Record is one titled row of the report: a candidate image shown beside its
// baseline, with a human-readable message beneath.
//
// Candidate and Baseline are absolute paths once a record leaves the
// pipeline; writers may relativize them for embedding.
type Record struct {
	// Title is the row heading, e.g. "CTP Sponza" or an image file name.
	Title string `json:"title"`

	// Message is the human-readable comparison outcome.
	Message string `json:"message"`

	// Candidate is the rendered image.
	Candidate string `json:"candidate"`

	// Baseline is the golden image. Equal to Candidate when no baseline exists.
	Baseline string `json:"baseline"`

	// Status is the classification of this row.
	Status Status `json:"status"`

	// Source is the pass that produced this row.
	Source Source `json:"source"`

	// DurationsMS are the rendering durations found in the scene log, in milliseconds.
	DurationsMS []int64 `json:"durations_ms,omitempty"`

	// Metrics are the pixel-difference figures, when a comparison ran.
	Metrics *Metrics `json:"metrics,omitempty"`

	// CandidateDigest is the BLAKE2b digest of the candidate image file.
	CandidateDigest string `json:"candidate_digest,omitempty"`
}

// CandidateName returns the base name of the candidate image.
func (r Record) CandidateName() string {
	return filepath.Base(r.Candidate)
}

// BaselineName returns the base name of the baseline image.
func (r Record) BaselineName() string {
	return filepath.Base(r.Baseline)
}

// HasBaseline reports whether the row shows a distinct baseline image.
func (r Record) HasBaseline() bool {
	return r.Baseline != "" && r.Baseline != r.Candidate
}

// Metrics are the pixel-difference figures of one comparison.
type Metrics struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	FailCount   int      `json:"fail_count"`
	WarnCount   int      `json:"warn_count"`
	FailPercent float64  `json:"fail_percent"`
	WarnPercent float64  `json:"warn_percent"`
	MeanError   float64  `json:"mean_error"`
	RMSError    float64  `json:"rms_error"`
	MaxError    float64  `json:"max_error"`
	PSNR        Decibels `json:"psnr"`
}

// Decibels is a PSNR value. Identical images have an infinite PSNR, which
// encoding/json cannot represent, so it is written as the string "+Inf".
type Decibels float64

// MarshalJSON implements json.Marshaler.
func (d Decibels) MarshalJSON() ([]byte, error) {
	f := float64(d)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decibels) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*d = Decibels(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*d = Decibels(f)
	return nil
}
