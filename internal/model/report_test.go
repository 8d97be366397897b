package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestReportSummary(t *testing.T) {
	t.Parallel()

	report := NewReport("/bin/Plasma", "/work/scenes.json", "/work/report.txt")
	report.AddRecords(
		Record{Title: "CTP a", Status: StatusMatch},
		Record{Title: "CTP b", Status: StatusFail},
		Record{Title: "c.png", Status: StatusNoBaseline},
		Record{Title: "d.png", Status: StatusError},
		Record{Title: "e.png", Status: StatusMatch},
	)

	summary := report.Summary()

	if summary.Total != 5 {
		t.Errorf("expected total 5, got %d", summary.Total)
	}
	if summary.Count(StatusMatch) != 2 {
		t.Errorf("expected 2 matches, got %d", summary.Count(StatusMatch))
	}
	if summary.Count(StatusWarning) != 0 {
		t.Errorf("expected 0 warnings, got %d", summary.Count(StatusWarning))
	}
	if summary.Failures() != 2 {
		t.Errorf("expected 2 failures, got %d", summary.Failures())
	}
	if summary.Passed() {
		t.Error("expected summary not to pass")
	}

	matches := report.RecordsByStatus(StatusMatch)
	if len(matches) != 2 || matches[0].Title != "CTP a" || matches[1].Title != "e.png" {
		t.Errorf("unexpected matches %+v", matches)
	}
}

func TestReportRenderErrors(t *testing.T) {
	t.Parallel()

	report := &Report{}
	report.RecordRenderError("Sponza", errors.New("exit status 3"))

	if report.RenderErrors["Sponza"] != "exit status 3" {
		t.Errorf("unexpected render errors %v", report.RenderErrors)
	}
}

func TestReportDuration(t *testing.T) {
	t.Parallel()

	report := NewReport("", "", "")
	if report.Duration() != 0 {
		t.Error("expected zero duration before finishing")
	}
	report.FinishedAt = report.StartedAt.Add(3 * time.Second)
	if report.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", report.Duration())
	}
}

func TestRecordHelpers(t *testing.T) {
	t.Parallel()

	t.Run("distinct baseline", func(t *testing.T) {
		t.Parallel()
		rec := Record{Candidate: "/out/a.png", Baseline: "/golden/a.png"}
		if !rec.HasBaseline() {
			t.Error("expected HasBaseline")
		}
		if rec.CandidateName() != "a.png" || rec.BaselineName() != "a.png" {
			t.Errorf("unexpected names %q %q", rec.CandidateName(), rec.BaselineName())
		}
	})

	t.Run("candidate used as baseline", func(t *testing.T) {
		t.Parallel()
		rec := Record{Candidate: "/out/a.png", Baseline: "/out/a.png"}
		if rec.HasBaseline() {
			t.Error("expected no baseline")
		}
	})
}

func TestDecibelsJSON(t *testing.T) {
	t.Parallel()

	t.Run("finite value", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(Decibels(42.5))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "42.5" {
			t.Errorf("unexpected encoding %s", data)
		}
	})

	t.Run("infinite value survives storage", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(Metrics{PSNR: Decibels(math.Inf(1))})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), `"psnr":"+Inf"`) {
			t.Errorf("unexpected encoding %s", data)
		}

		var m Metrics
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !math.IsInf(float64(m.PSNR), 1) {
			t.Errorf("expected +Inf, got %v", m.PSNR)
		}
	})
}

func TestHostInfoString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info HostInfo
		want string
	}{
		{
			name: "full",
			info: HostInfo{Hostname: "render-01", OS: "linux", Platform: "ubuntu 24.04", CPUModel: "Xeon", LogicalCPUs: 16, MemoryTotal: 32 << 30},
			want: "render-01 (linux, ubuntu 24.04), Xeon x16, 32.0 GiB",
		},
		{
			name: "cpu count only",
			info: HostInfo{Hostname: "ci", LogicalCPUs: 4},
			want: "ci, 4 CPUs",
		},
		{
			name: "empty",
			info: HostInfo{},
			want: "unknown host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
