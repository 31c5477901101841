package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/stacwalk/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.ExtractReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.ExtractReport) error {
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

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
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

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		step := &mockStep{name: "test-step"}

		p.AddStep(step)

		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		step1 := &mockStep{name: "step-1"}
		step2 := &mockStep{name: "step-2"}
		step3 := &mockStep{name: "step-3"}

		p.AddSteps(step1, step2, step3)

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		names := p.StepNames()

		expected := []string{"first", "second", "third"}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		executionOrder := make([]string, 0)

		p := New()
		for _, name := range []string{"first", "second", "third"} {
			p.AddStep(&mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *model.ExtractReport) error {
					executionOrder = append(executionOrder, name)
					return nil
				},
			})
		}

		report := model.NewExtractReport("https://example.com/catalog.json")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{"first", "second", "third"}
		if len(executionOrder) != len(expected) {
			t.Fatalf("expected %d executions, got %d", len(expected), len(executionOrder))
		}
		for i, name := range executionOrder {
			if name != expected[i] {
				t.Errorf("execution %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})

	t.Run("records performed steps in report", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(
			&mockStep{name: "alpha"},
			&mockStep{name: "beta"},
		)

		report := model.NewExtractReport("https://example.com/catalog.json")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.PerformedSteps) != 2 {
			t.Fatalf("expected 2 performed steps, got %d", len(report.PerformedSteps))
		}
		if report.PerformedSteps[0] != "alpha" || report.PerformedSteps[1] != "beta" {
			t.Errorf("unexpected performed steps: %v", report.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("step failure")
		second := &mockStep{name: "second"}

		p := New()
		p.AddStep(&mockStep{
			name: "first",
			doFunc: func(_ context.Context, _ *model.ExtractReport) error {
				return wantErr
			},
		})
		p.AddStep(second)

		report := model.NewExtractReport("https://example.com/catalog.json")
		err := p.Execute(context.Background(), report)

		if !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
		if report.ErrorMessage != wantErr.Error() {
			t.Errorf("expected error recorded in report, got %q", report.ErrorMessage)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "second"}

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{
			name: "first",
			doFunc: func(_ context.Context, _ *model.ExtractReport) error {
				return errors.New("step failure")
			},
		})
		p.AddStep(second)

		report := model.NewExtractReport("https://example.com/catalog.json")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if second.callCount != 1 {
			t.Error("expected second step to execute")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "never-runs"}

		p := New()
		p.AddStep(step)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report := model.NewExtractReport("https://example.com/catalog.json")
		err := p.Execute(ctx, report)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step to be skipped after cancellation")
		}
		if !report.TimedOut {
			t.Error("expected report to be marked timed out")
		}
	})
}
