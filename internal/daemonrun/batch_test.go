package daemonrun_test

import (
	"context"
	"errors"
	"testing"

	"lapse/internal/daemonrun"
	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/render"
	"lapse/internal/testsupport"
	"lapse/internal/workflow"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func fakePipelines(failJob string) workflow.Option {
	return workflow.WithPipelineFactory(func(desc *render.Descriptor, dq render.DequeueContext, obs render.Observer) workflow.JobRunner {
		return runnerFunc(func(context.Context) error {
			p := render.Payload{
				JobID:              desc.JobID,
				CameraName:         desc.Camera.Name,
				JobNumber:          dq.JobNumber,
				JobsRemaining:      dq.JobsRemaining,
				RenderingDirectory: "/out/",
				RenderingFilename:  desc.JobID,
				RenderingExtension: "mp4",
			}
			obs.PrerenderStart(p)
			if desc.JobID == failJob {
				renderErr := &render.Error{Kind: render.KindReturnCode, Message: "Could not render movie, got return code 1: nope"}
				obs.RenderError(p, renderErr)
				return renderErr
			}
			obs.RenderStart(p)
			obs.RenderSuccess(p)
			return nil
		})
	})
}

func TestRenderBatchRecordsOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCamera("cam", "Bed"))
	jobs := []daemonrun.BatchJob{
		{Info: render.JobInfo{JobGUID: "one", PrintEndState: render.PrintStateCompleted}, CameraGUID: "cam"},
		{Info: render.JobInfo{JobGUID: "two", PrintEndState: render.PrintStateCompleted}, CameraGUID: "cam"},
	}

	result, err := daemonrun.RenderBatch(context.Background(), cfg, logging.NewNop(), jobs, fakePipelines("two"))
	if err != nil {
		t.Fatalf("RenderBatch: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0].JobID != "one" {
		t.Fatalf("unexpected successes %+v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].Err.Kind != render.KindReturnCode {
		t.Fatalf("unexpected failures %+v", result.Failed)
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	records, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(records))
	}
	if records[0].JobID != "two" || records[0].Status != history.StatusFailed || records[0].JobNumber != 2 {
		t.Fatalf("unexpected newest record %+v", records[0])
	}
	if records[1].RenderingPath != "/out/one.mp4" || records[1].Camera != "Bed" || records[1].JobsRemaining != 1 {
		t.Fatalf("unexpected oldest record %+v", records[1])
	}
}

func TestRenderBatchRejectsBadJobBeforeRendering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false
	rendered := 0
	factory := workflow.WithPipelineFactory(func(*render.Descriptor, render.DequeueContext, render.Observer) workflow.JobRunner {
		rendered++
		return runnerFunc(func(context.Context) error { return nil })
	})
	jobs := []daemonrun.BatchJob{
		{Info: render.JobInfo{JobGUID: "ok"}, CameraGUID: "cam"},
		{Info: render.JobInfo{JobGUID: "../escape"}, CameraGUID: "cam"},
	}
	_, err := daemonrun.RenderBatch(context.Background(), cfg, logging.NewNop(), jobs, factory)
	if err == nil {
		t.Fatal("expected submission error")
	}
	if rendered != 0 {
		t.Fatalf("expected no renders, got %d", rendered)
	}
}

func TestRenderBatchPropagatesFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false
	factory := workflow.WithPipelineFactory(func(*render.Descriptor, render.DequeueContext, render.Observer) workflow.JobRunner {
		return runnerFunc(func(context.Context) error { panic("boom") })
	})
	_, err := daemonrun.RenderBatch(context.Background(), cfg, logging.NewNop(),
		[]daemonrun.BatchJob{{Info: render.JobInfo{JobGUID: "x"}, CameraGUID: "cam"}}, factory)
	var fatal *workflow.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
}
