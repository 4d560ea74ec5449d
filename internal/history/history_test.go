package history_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/render"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "logs", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.Append(ctx, history.Record{JobID: "a", Camera: "cam", Status: history.StatusSucceeded, SnapshotCount: 10})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.ID == 0 || first.FinishedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", first)
	}
	_, err = store.Append(ctx, history.Record{
		JobID:        "b",
		Camera:       "cam",
		Status:       history.StatusFailed,
		ErrorKind:    "return-code",
		ErrorMessage: "boom",
		ScriptErrors: []history.ScriptError{{Kind: "after_render_script_error", Message: "exit 3"}},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 || records[0].JobID != "b" || records[1].JobID != "a" {
		t.Fatalf("expected newest first, got %+v", records)
	}
	if records[0].ErrorKind != "return-code" || len(records[0].ScriptErrors) != 1 {
		t.Fatalf("unexpected failed record %+v", records[0])
	}
	if records[1].ErrorKind != "" || records[1].SnapshotCount != 10 {
		t.Fatalf("unexpected success record %+v", records[1])
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one record with limit, got %d (%v)", len(limited), err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[history.StatusSucceeded] != 1 || counts[history.StatusFailed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Append(context.Background(), history.Record{JobID: "a", Camera: "c", Status: history.StatusSucceeded}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	records, err := reopened.List(context.Background(), 10)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected persisted record, got %d (%v)", len(records), err)
	}
	if _, err := os.Stat(reopened.Path()); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
}

func TestRecordFromPayload(t *testing.T) {
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	payload := render.Payload{
		JobID:                    "job",
		CameraName:               "cam",
		RenderingDirectory:       "/out/",
		RenderingFilename:        "r",
		RenderingExtension:       "mp4",
		SynchronizationDirectory: "/sync/",
		SynchronizationFilename:  "r_1",
		Synchronize:              true,
		BeforeRenderError:        &render.Error{Kind: render.KindBeforeRenderScript, Message: "nope"},
	}
	rec := history.RecordFromPayload(payload, &render.Error{Kind: render.KindSynchronizing, Message: "move failed"}, finished)
	if rec.Status != history.StatusFailed || rec.ErrorKind != "synchronizing-exception" {
		t.Fatalf("unexpected status %+v", rec)
	}
	if rec.RenderingPath != "/out/r.mp4" || rec.SyncPath != "/sync/r_1.mp4" {
		t.Fatalf("unexpected paths %q %q", rec.RenderingPath, rec.SyncPath)
	}
	if len(rec.ScriptErrors) != 1 || rec.ScriptErrors[0].Kind != "before_render_script_error" {
		t.Fatalf("unexpected script errors %+v", rec.ScriptErrors)
	}
}

func TestRecorderWritesTerminalEvents(t *testing.T) {
	store := openStore(t)
	recorder := history.NewRecorder(store, logging.NewNop())
	recorder.PrerenderStart(render.Payload{JobID: "ignored"})
	recorder.RenderSuccess(render.Payload{JobID: "ok", CameraName: "cam"})
	recorder.RenderError(render.Payload{JobID: "bad", CameraName: "cam"}, &render.Error{Kind: render.KindNoBitrate, Message: "x"})
	recorder.RenderEnd()

	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 || records[0].JobID != "bad" || records[1].JobID != "ok" {
		t.Fatalf("unexpected records %+v", records)
	}

	history.NewRecorder(nil, nil).RenderSuccess(render.Payload{})
}
