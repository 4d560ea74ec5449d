package render

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"lapse/internal/config"
	"lapse/internal/imaging"
	"lapse/internal/procrun"
)

type fakeCall struct {
	name string
	args []string
}

// fakeRunner pretends to be ffmpeg and the hook scripts. The encoder writes
// a placeholder file at its output argument.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []fakeCall
	encoderRC int
	scripts   map[string]procrun.Result
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, _ time.Duration) (procrun.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{name: name, args: append([]string(nil), args...)})
	f.mu.Unlock()
	if result, ok := f.scripts[name]; ok {
		return result, nil
	}
	if f.encoderRC != 0 {
		return procrun.Result{ExitCode: f.encoderRC, Stderr: "encoder exploded"}, nil
	}
	output := args[len(args)-1]
	if err := os.WriteFile(output, []byte("video"), 0o644); err != nil {
		return procrun.Result{ExitCode: -1}, err
	}
	return procrun.Result{}, nil
}

func (f *fakeRunner) callsTo(name string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, call := range f.calls {
		if call.name == name {
			out = append(out, call)
		}
	}
	return out
}

type recordingObserver struct {
	events   []string
	payloads []Payload
	err      *Error
}

func (r *recordingObserver) PrerenderStart(p Payload) { r.record("prerender", p) }
func (r *recordingObserver) RenderStart(p Payload)    { r.record("start", p) }
func (r *recordingObserver) RenderSuccess(p Payload)  { r.record("success", p) }
func (r *recordingObserver) RenderError(p Payload, err *Error) {
	r.err = err
	r.record("error", p)
}

func (r *recordingObserver) record(name string, p Payload) {
	r.events = append(r.events, name)
	r.payloads = append(r.payloads, p)
}

func (r *recordingObserver) last() Payload {
	return r.payloads[len(r.payloads)-1]
}

type pipelineFixture struct {
	dataDir string
	opts    Options
	runner  *fakeRunner
	camera  config.Camera
	render  config.Rendering
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	root := t.TempDir()
	runner := &fakeRunner{scripts: map[string]procrun.Result{}}
	rendering := config.Default().Rendering
	rendering.OutputTemplate = "{GCODEFILENAME}_{SNAPSHOTCOUNT}_{FPS}"
	rendering.CleanupAfterRenderComplete = false
	return &pipelineFixture{
		dataDir: filepath.Join(root, "data"),
		runner:  runner,
		camera:  testCamera(),
		render:  rendering,
		opts: Options{
			Runner:    runner,
			OutputDir: filepath.Join(root, "timelapse"),
			WorkDir:   filepath.Join(root, "work"),
			GOOS:      "linux",
		},
	}
}

func (f *pipelineFixture) descriptor(t *testing.T) *Descriptor {
	t.Helper()
	info := JobInfo{JobGUID: "job-1", PrintFileName: "benchy", PrintEndState: PrintStateCompleted}
	desc, err := NewDescriptor(info, f.dataDir, f.camera, f.render, "ffmpeg")
	if err != nil {
		t.Fatalf("NewDescriptor: %v", err)
	}
	return desc
}

func writeFrames(t *testing.T, desc *Descriptor, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		writeFile(t, desc.FramePath(i), "frame")
	}
}

func (f *pipelineFixture) run(t *testing.T, desc *Descriptor) (*Pipeline, *recordingObserver, error) {
	t.Helper()
	observer := &recordingObserver{}
	pipeline := NewPipeline(desc, DequeueContext{JobNumber: 2, JobsRemaining: 1}, observer, f.opts)
	return pipeline, observer, pipeline.Run(context.Background())
}

func TestPipelineRendersAndKeepsTempDir(t *testing.T) {
	f := newPipelineFixture(t)
	desc := f.descriptor(t)
	writeFrames(t, desc, 3)

	pipeline, observer, err := f.run(t, desc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(observer.events, ","); got != "prerender,start,success" {
		t.Fatalf("unexpected callbacks %q", got)
	}

	final := observer.last()
	if final.RenderingFilename != "benchy_3_2" || final.RenderingExtension != "mp4" {
		t.Fatalf("unexpected output name %q.%q", final.RenderingFilename, final.RenderingExtension)
	}
	if final.SnapshotCount != 3 || final.JobNumber != 2 || final.JobsRemaining != 1 || final.CameraName != "Bed Cam" {
		t.Fatalf("unexpected payload %+v", final)
	}
	if readFile(t, final.RenderingPath()) != "video" {
		t.Fatal("expected encoder output at rendering path")
	}

	calls := f.runner.callsTo("ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("expected one encoder call, got %d", len(calls))
	}
	args := calls[0].args
	if args[1] != "2.0" {
		t.Fatalf("expected clamped framerate 2.0, got %q", args[1])
	}
	if args[5] != filepath.Join(pipeline.TempDir(), SnapshotFilenameFormat) {
		t.Fatalf("unexpected input pattern %q", args[5])
	}

	for i := 0; i < 3; i++ {
		if _, err := os.Stat(filepath.Join(pipeline.TempDir(), frameName(i))); err != nil {
			t.Fatalf("expected frame %d in kept temp dir: %v", i, err)
		}
		if _, err := os.Stat(desc.FramePath(i)); !os.IsNotExist(err) {
			t.Fatalf("expected source frame %d to be moved, stat err %v", i, err)
		}
	}
}

func TestPipelineInsufficientImagesNeverEncodes(t *testing.T) {
	tests := []struct {
		name   string
		frames int
		mutate func(*config.Rendering)
	}{
		{"no frames", 0, nil},
		{"single frame", 1, nil},
		{"fps below one", 5, func(r *config.Rendering) {
			r.FPSCalculationType = config.FPSStatic
			r.FPS = 0.5
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			if tc.mutate != nil {
				tc.mutate(&f.render)
			}
			desc := f.descriptor(t)
			writeFrames(t, desc, tc.frames)

			_, observer, err := f.run(t, desc)
			if KindOf(err) != KindInsufficientImages {
				t.Fatalf("expected insufficient images, got %v", err)
			}
			if got := strings.Join(observer.events, ","); got != "prerender,error" {
				t.Fatalf("unexpected callbacks %q", got)
			}
			if observer.err == nil || observer.err.Kind != KindInsufficientImages {
				t.Fatalf("expected error callback with kind, got %v", observer.err)
			}
			if len(f.runner.callsTo("ffmpeg")) != 0 {
				t.Fatal("encoder must not run")
			}
		})
	}
}

func TestPipelineEncoderFailureCleansUp(t *testing.T) {
	f := newPipelineFixture(t)
	f.runner.encoderRC = 1
	desc := f.descriptor(t)
	writeFrames(t, desc, 4)

	pipeline, observer, err := f.run(t, desc)
	renderErr := AsError(err)
	if renderErr == nil || renderErr.Kind != KindReturnCode {
		t.Fatalf("expected return-code error, got %v", err)
	}
	if !strings.Contains(renderErr.Message, "return code 1") || !strings.Contains(renderErr.Message, "encoder exploded") {
		t.Fatalf("unexpected message %q", renderErr.Message)
	}
	if got := strings.Join(observer.events, ","); got != "prerender,start,error" {
		t.Fatalf("unexpected callbacks %q", got)
	}
	if pipeline.TempDir() == "" {
		t.Fatal("expected a temp dir to have been created")
	}
	if _, err := os.Stat(pipeline.TempDir()); !os.IsNotExist(err) {
		t.Fatalf("expected temp dir removed on failure, stat err %v", err)
	}
}

func TestPipelineConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pipelineFixture)
		want   Kind
	}{
		{"no bitrate", func(f *pipelineFixture) { f.render.Bitrate = " " }, KindNoBitrate},
		{"watermark unset", func(f *pipelineFixture) { f.render.EnableWatermark = true }, KindWatermarkPath},
		{"watermark missing", func(f *pipelineFixture) {
			f.render.EnableWatermark = true
			f.render.SelectedWatermark = filepath.Join(f.dataDir, "nope.png")
		}, KindWatermarkNonExistent},
		{"output dir is a file", func(f *pipelineFixture) {
			f.opts.OutputDir = filepath.Join(f.dataDir, "blocked")
		}, KindCreateRenderPath},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			tc.mutate(f)
			desc := f.descriptor(t)
			writeFrames(t, desc, 3)
			if tc.want == KindCreateRenderPath {
				writeFile(t, f.opts.OutputDir, "file")
			}
			_, observer, err := f.run(t, desc)
			if KindOf(err) != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
			if observer.events[len(observer.events)-1] != "error" {
				t.Fatalf("expected terminal error callback, got %v", observer.events)
			}
		})
	}
}

func TestPipelineFFmpegPathUnset(t *testing.T) {
	f := newPipelineFixture(t)
	desc := f.descriptor(t)
	desc.FFmpegPath = ""
	writeFrames(t, desc, 2)
	if _, _, err := f.run(t, desc); KindOf(err) != KindFFmpegPath {
		t.Fatalf("expected ffmpeg path error, got %v", err)
	}
}

func TestPipelineHookScriptErrorsDoNotFailRender(t *testing.T) {
	f := newPipelineFixture(t)
	f.camera.BeforeRenderScript = "/hooks/before"
	f.camera.AfterRenderScript = "/hooks/after"
	f.runner.scripts["/hooks/before"] = procrun.Result{ExitCode: 2, Stderr: "no space left\r\n"}
	f.runner.scripts["/hooks/after"] = procrun.Result{ExitCode: 3}
	desc := f.descriptor(t)
	writeFrames(t, desc, 2)

	_, observer, err := f.run(t, desc)
	if err != nil {
		t.Fatalf("expected hook failures to be non-fatal, got %v", err)
	}
	final := observer.last()
	if final.BeforeRenderError == nil || final.BeforeRenderError.Kind != KindBeforeRenderScript {
		t.Fatalf("expected before-render error, got %+v", final.BeforeRenderError)
	}
	if final.BeforeRenderError.Message != "The before-render script failed with the following error message: no space left" {
		t.Fatalf("unexpected before message %q", final.BeforeRenderError.Message)
	}
	if final.AfterRenderError == nil || final.AfterRenderError.Message != "The after-render script returned 3, which indicates an error" {
		t.Fatalf("unexpected after error %+v", final.AfterRenderError)
	}

	before := f.runner.callsTo("/hooks/before")[0].args
	wantBefore := []string{"Bed Cam", desc.SnapshotDir, SnapshotFilenameFormat, desc.FramePattern()}
	if strings.Join(before, "|") != strings.Join(wantBefore, "|") {
		t.Fatalf("unexpected before args %q", before)
	}
	after := f.runner.callsTo("/hooks/after")[0].args
	if len(after) != 10 || after[7] != final.RenderingPath() || after[6] != "mp4" {
		t.Fatalf("unexpected after args %q", after)
	}
}

func TestPipelineSynchronizesOutput(t *testing.T) {
	f := newPipelineFixture(t)
	f.render.SyncWithTimelapse = true
	f.opts.SyncDir = filepath.Join(t.TempDir(), "sync")
	desc := f.descriptor(t)
	writeFrames(t, desc, 2)
	writeFile(t, filepath.Join(f.opts.SyncDir, "benchy_2_2.mp4"), "older")

	_, observer, err := f.run(t, desc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	final := observer.last()
	if !final.Synchronize || final.SynchronizationFilename != "benchy_2_2_1" {
		t.Fatalf("unexpected sync plan %+v", final)
	}
	if readFile(t, final.SynchronizationPath()) != "video" {
		t.Fatal("expected video at sync path")
	}
	if _, err := os.Stat(final.RenderingPath()); !os.IsNotExist(err) {
		t.Fatalf("expected rendered file to be moved, stat err %v", err)
	}
}

func TestPipelineAppliesOverlayFromMetadata(t *testing.T) {
	f := newPipelineFixture(t)
	fontPath := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(fontPath, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	f.render.OverlayTextTemplate = "Frame {snapshot_number}\n{time_elapsed}"
	f.render.OverlayFontPath = fontPath
	f.render.OverlayFontSize = 24
	f.render.OverlayTextPos = []int{4, 4}
	desc := f.descriptor(t)

	black := imaging.Fill(160, 90, color.NRGBA{A: 255})
	if err := os.MkdirAll(desc.SnapshotDir, 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	var rows strings.Builder
	for i := 0; i < 2; i++ {
		if err := imaging.Encode(desc.FramePath(i), black); err != nil {
			t.Fatalf("encode frame: %v", err)
		}
		rows.WriteString(strings.Join([]string{strconv.Itoa(i), frameName(i), strconv.Itoa(1000 + 60*i)}, ",") + "\n")
	}
	writeFile(t, filepath.Join(desc.SnapshotDir, MetadataFileName), rows.String())

	pipeline, _, err := f.run(t, desc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	img, err := imaging.Decode(filepath.Join(pipeline.TempDir(), frameName(1)))
	if err != nil {
		t.Fatalf("decode overlaid frame: %v", err)
	}
	if !hasBrightPixel(img) {
		t.Fatal("expected overlay text to brighten the frame")
	}
}

func TestPreviewOverlay(t *testing.T) {
	r := config.Default().Rendering
	if img, err := PreviewOverlay(r, nil); err != nil || img != nil {
		t.Fatalf("expected no preview without a font, got %v %v", img, err)
	}

	fontPath := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(fontPath, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	r.OverlayFontPath = fontPath
	r.OverlayFontSize = 18
	r.OverlayTextColor = []int{0, 0, 0, 255}
	r.OverlayTextTemplate = "{snapshot_number} {time_elapsed}"
	img, err := PreviewOverlay(r, nil)
	if err != nil {
		t.Fatalf("PreviewOverlay: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("unexpected preview size %v", img.Bounds())
	}
	bg := color.NRGBAModel.Convert(img.At(639, 479)).(color.NRGBA)
	if bg.R != 255 || bg.G != 255 || bg.B != 255 {
		t.Fatalf("expected inverse background, got %+v", bg)
	}
}

type recordingFace struct {
	size  int
	draws *[]string
}

func (f recordingFace) MeasureMultiline(text string) (int, int) {
	return len(text) * f.size / 2, f.size
}

func (f recordingFace) DrawMultiline(_ draw.Image, _, _ int, text string, _ color.Color, _ string) {
	*f.draws = append(*f.draws, strconv.Itoa(f.size)+":"+text)
}

func TestPreviewOverlayDrawsCaptionsBeneathOverlay(t *testing.T) {
	r := config.Default().Rendering
	r.OverlayFontPath = "font.ttf"
	r.OverlayFontSize = 18
	r.OverlayTextTemplate = "frame {snapshot_number}"

	var draws []string
	load := func(_ string, size int) (TextFace, error) {
		return recordingFace{size: size, draws: &draws}, nil
	}
	if _, err := PreviewOverlay(r, load); err != nil {
		t.Fatalf("PreviewOverlay: %v", err)
	}

	want := "50:Preview,50:Click to refresh,18:frame 1234"
	if got := strings.Join(draws, ","); got != want {
		t.Fatalf("draw order %q, want %q", got, want)
	}
}

func hasBrightPixel(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r > 0x8000 {
				return true
			}
		}
	}
	return false
}
