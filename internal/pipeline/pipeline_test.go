package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.Report) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.Report) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestReport() *model.Report {
	return model.NewReport("/opt/renderer", "/work/scenes.json", "/work/report.txt")
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("expected continueOnError to default to false")
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "render"})
	p.AddSteps(&mockStep{name: "compare"}, &mockStep{name: "report_file"})

	want := []string{"render", "compare", "report_file"}
	if !slices.Equal(p.StepNames(), want) {
		t.Errorf("StepNames() = %v, want %v", p.StepNames(), want)
	}
}

// TestPipelineExecute tests step execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.Report) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(step("a"), step("b"), step("c"))
		report := newTestReport()

		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !slices.Equal(order, []string{"a", "b", "c"}) {
			t.Errorf("execution order = %v", order)
		}
		if !slices.Equal(report.PerformedSteps, []string{"a", "b", "c"}) {
			t.Errorf("PerformedSteps = %v", report.PerformedSteps)
		}
		if report.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		errStep := errors.New("report file missing")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.Report) error {
			return errStep
		}}
		after := &mockStep{name: "after"}

		p := New()
		p.AddSteps(failing, after)
		report := newTestReport()

		err := p.Execute(context.Background(), report)
		if !errors.Is(err, errStep) {
			t.Fatalf("Execute() error = %v, want %v", err, errStep)
		}
		if after.callCount != 0 {
			t.Error("step after failure should not run")
		}
		if report.ErrorMessage != errStep.Error() {
			t.Errorf("ErrorMessage = %q", report.ErrorMessage)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.Report) error {
			return errors.New("boom")
		}}
		after := &mockStep{name: "after"}

		p := New(WithContinueOnError(true))
		p.AddSteps(failing, after)

		if err := p.Execute(context.Background(), newTestReport()); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if after.callCount != 1 {
			t.Error("step after failure should run")
		}
	})

	t.Run("respects cancellation between steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "first", doFunc: func(context.Context, *model.Report) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(first, second)
		report := newTestReport()

		err := p.Execute(ctx, report)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Execute() error = %v, want context.Canceled", err)
		}
		if second.callCount != 0 {
			t.Error("second step should not run after cancellation")
		}
		if !report.Cancelled {
			t.Error("expected report to be marked cancelled")
		}
	})
}
