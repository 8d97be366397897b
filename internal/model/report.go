package model

import (
	"fmt"
	"strings"
	"time"
)

// Report is the result of one report-generation run.
//
// Design decision: We keep records in a single ordered slice (scene records
// first, then report-file records in file order) because the HTML output
// must follow exactly that order.
type Report struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step finished.
	FinishedAt time.Time `json:"finished_at"`

	// Renderer is the renderer executable under test.
	Renderer string `json:"renderer"`

	// ScenesFile is the scenes configuration that was used.
	ScenesFile string `json:"scenes_file"`

	// ReportFile is the external text report that was parsed.
	ReportFile string `json:"report_file"`

	// Host describes the machine the run happened on.
	Host HostInfo `json:"host"`

	// Records are the report rows in output order.
	Records []Record `json:"records"`

	// RenderErrors maps scene names to renderer failures.
	RenderErrors map[string]string `json:"render_errors,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true when the run was interrupted before all steps finished.
	Cancelled bool `json:"cancelled,omitempty"`

	// ErrorMessage holds the last step error, if any.
	ErrorMessage string `json:"error,omitempty"`
}

// HostInfo describes the machine a run happened on. Rendering durations are
// only comparable between runs on similar hosts.
type HostInfo struct {
	Hostname    string `json:"hostname,omitempty"`
	OS          string `json:"os,omitempty"`
	Platform    string `json:"platform,omitempty"`
	CPUModel    string `json:"cpu_model,omitempty"`
	LogicalCPUs int    `json:"logical_cpus,omitempty"`
	MemoryTotal uint64 `json:"memory_total,omitempty"`
}

// String returns a one-line description such as
// "render-01 (linux, ubuntu 24.04), AMD Ryzen 9 7950X x32, 64.0 GiB".
// Unknown parts are left out.
func (h HostInfo) String() string {
	var parts []string

	name := h.Hostname
	var sys []string
	for _, s := range []string{h.OS, h.Platform} {
		if s != "" {
			sys = append(sys, s)
		}
	}
	if len(sys) > 0 {
		name = strings.TrimSpace(name + " (" + strings.Join(sys, ", ") + ")")
	}
	if name != "" {
		parts = append(parts, name)
	}

	switch {
	case h.CPUModel != "" && h.LogicalCPUs > 0:
		parts = append(parts, fmt.Sprintf("%s x%d", h.CPUModel, h.LogicalCPUs))
	case h.CPUModel != "":
		parts = append(parts, h.CPUModel)
	case h.LogicalCPUs > 0:
		parts = append(parts, fmt.Sprintf("%d CPUs", h.LogicalCPUs))
	}

	if h.MemoryTotal > 0 {
		parts = append(parts, fmt.Sprintf("%.1f GiB", float64(h.MemoryTotal)/(1<<30)))
	}

	if len(parts) == 0 {
		return "unknown host"
	}
	return strings.Join(parts, ", ")
}

// NewReport creates an empty report for the given inputs.
func NewReport(renderer, scenesFile, reportFile string) *Report {
	return &Report{
		StartedAt:    time.Now(),
		Renderer:     renderer,
		ScenesFile:   scenesFile,
		ReportFile:   reportFile,
		Records:      make([]Record, 0),
		RenderErrors: make(map[string]string),
	}
}

// AddRecords appends records in order.
func (r *Report) AddRecords(records ...Record) {
	r.Records = append(r.Records, records...)
}

// RecordRenderError remembers that rendering a scene failed.
func (r *Report) RecordRenderError(scene string, err error) {
	if r.RenderErrors == nil {
		r.RenderErrors = make(map[string]string)
	}
	r.RenderErrors[scene] = err.Error()
}

// Summary counts records per status.
type Summary struct {
	Total  int            `json:"total"`
	Counts map[Status]int `json:"counts"`
}

// Summary returns the per-status counts of the report.
func (r *Report) Summary() Summary {
	s := Summary{Counts: make(map[Status]int, len(AllStatuses))}
	for _, st := range AllStatuses {
		s.Counts[st] = 0
	}
	for _, rec := range r.Records {
		s.Total++
		s.Counts[rec.Status]++
	}
	return s
}

// Count returns the number of records with the given status.
func (s Summary) Count(status Status) int {
	return s.Counts[status]
}

// Failures returns the number of failing or errored records.
func (s Summary) Failures() int {
	return s.Count(StatusFail) + s.Count(StatusError)
}

// Passed reports whether no record failed.
func (s Summary) Passed() bool {
	return s.Failures() == 0
}

// RecordsByStatus returns the records with the given status, in order.
func (r *Report) RecordsByStatus(status Status) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
