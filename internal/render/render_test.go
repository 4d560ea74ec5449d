package render

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"lapse/internal/config"
	"lapse/internal/services"
)

func testCamera() config.Camera {
	return config.Camera{GUID: "cam-1", Name: "Bed Cam"}
}

func TestNewDescriptorDerivesTokens(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	restore := SetClockForTests(func() time.Time { return fixed })
	defer restore()

	info := JobInfo{
		JobGUID:        "job-1",
		PrintFileName:  "benchy",
		PrintStartTime: 1700000000,
		PrintEndTime:   1700000000.5,
		PrintEndState:  "CANCELED",
		SecondsAdded:   12.6,
	}
	dataDir := t.TempDir()
	desc, err := NewDescriptor(info, dataDir, testCamera(), config.Default().Rendering, "ffmpeg")
	if err != nil {
		t.Fatalf("NewDescriptor: %v", err)
	}

	if desc.SnapshotDir != filepath.Join(dataDir, "snapshots", "job-1", "cam-1") {
		t.Fatalf("unexpected snapshot dir %q", desc.SnapshotDir)
	}
	if got := desc.FramePath(7); got != filepath.Join(desc.SnapshotDir, "snapshot_000007.jpg") {
		t.Fatalf("unexpected frame path %q", got)
	}
	tok := desc.Tokens
	if tok.FailedFlag != "FAILED" || tok.FailedSeparator != "_" || tok.FailedState != "CANCELED" {
		t.Fatalf("expected failed tokens, got %+v", tok)
	}
	if tok.PrintEndTimestamp != "170000000050" {
		t.Fatalf("unexpected end timestamp %q", tok.PrintEndTimestamp)
	}
	wantEnd := time.Unix(1700000000, 5e8).Local().Format("20060102150405")
	if tok.PrintEndTime != wantEnd {
		t.Fatalf("unexpected end time %q want %q", tok.PrintEndTime, wantEnd)
	}
	if tok.TimeAdded != "13" {
		t.Fatalf("unexpected time added %q", tok.TimeAdded)
	}
	if tok.DateTimestamp != "177350096600" {
		t.Fatalf("unexpected date timestamp %q", tok.DateTimestamp)
	}
	if !desc.SubmittedAt.Equal(fixed) {
		t.Fatalf("unexpected submission time %v", desc.SubmittedAt)
	}
}

func TestNewDescriptorCompletedPrintHasNoFailedTokens(t *testing.T) {
	info := JobInfo{JobGUID: "job-2", PrintEndState: PrintStateCompleted}
	desc, err := NewDescriptor(info, t.TempDir(), config.Camera{GUID: "c"}, config.Default().Rendering, "ffmpeg")
	if err != nil {
		t.Fatalf("NewDescriptor: %v", err)
	}
	if desc.Tokens.FailedFlag != "" || desc.Tokens.FailedSeparator != "" || desc.Tokens.FailedState != "" {
		t.Fatalf("expected empty failed tokens, got %+v", desc.Tokens)
	}
	if desc.Camera.Name != "c" {
		t.Fatalf("expected camera name to default to guid, got %q", desc.Camera.Name)
	}
}

func TestNewDescriptorRejectsBadInput(t *testing.T) {
	rendering := config.Default().Rendering
	tests := []struct {
		name    string
		info    JobInfo
		camera  config.Camera
		dataDir string
		marker  error
	}{
		{"missing guid", JobInfo{}, testCamera(), "/data", services.ErrValidation},
		{"path guid", JobInfo{JobGUID: "../x"}, testCamera(), "/data", services.ErrValidation},
		{"missing camera", JobInfo{JobGUID: "j"}, config.Camera{}, "/data", services.ErrValidation},
		{"missing data dir", JobInfo{JobGUID: "j"}, testCamera(), " ", services.ErrConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDescriptor(tc.info, tc.dataDir, tc.camera, rendering, "ffmpeg")
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestNewDescriptorSnapshotsRendering(t *testing.T) {
	rendering := config.Default().Rendering
	desc, err := NewDescriptor(JobInfo{JobGUID: "j"}, t.TempDir(), testCamera(), rendering, "ffmpeg")
	if err != nil {
		t.Fatalf("NewDescriptor: %v", err)
	}
	rendering.OverlayTextPos[0] = 500
	rendering.Bitrate = "1K"
	if desc.Rendering.OverlayTextPos[0] == 500 || desc.Rendering.Bitrate == "1K" {
		t.Fatal("expected descriptor to hold its own copy of the rendering profile")
	}
}

func TestTemplateValidation(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		overlay  string
		wantKind Kind
		wantMsg  string
	}{
		{"defaults", "{FAILEDFLAG}{FAILEDSEPARATOR}{GCODEFILENAME}_{PRINTENDTIME}", "", "", ""},
		{"all output tokens", "{PRINTSTATE}{DATETIMESTAMP}{TIMEADDED}{SNAPSHOTCOUNT}{FPS}", "{snapshot_number} {time_elapsed}", "", ""},
		{"unknown output token", "{BOGUS}", "", KindOutputTemplate, "The following token is invalid: {BOGUS}"},
		{"integer output token", "render_{0}", "", KindOutputTemplate, "Integers as tokens are not allowed"},
		{"bad filename", "a/{FPS}", "", KindOutputTemplate, "not a valid filename"},
		{"unknown overlay var", "x", "{layer}", KindOverlayTemplate, "The following token is invalid: {layer}"},
		{"bad overlay spec", "x", "{file_name:05d}", KindOverlayTemplate, "A value error occurred"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := config.Default().Rendering
			r.OutputTemplate = tc.output
			r.OverlayTextTemplate = tc.overlay
			err := ValidateTemplates(r)
			if tc.wantKind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			renderErr := AsError(err)
			if renderErr == nil || renderErr.Kind != tc.wantKind {
				t.Fatalf("expected kind %q, got %v", tc.wantKind, err)
			}
			if !strings.Contains(renderErr.Message, tc.wantMsg) {
				t.Fatalf("expected message containing %q, got %q", tc.wantMsg, renderErr.Message)
			}
		})
	}
}

func TestComputeFPS(t *testing.T) {
	duration := config.Default().Rendering
	duration.RunLengthSeconds = 10
	duration.MinFPS = 2
	duration.MaxFPS = 60

	static := duration
	static.FPSCalculationType = config.FPSStatic
	static.FPS = 24

	tests := []struct {
		name    string
		r       config.Rendering
		frames  int
		want    float64
		wantTok int
	}{
		{"exact", duration, 100, 10, 10},
		{"fractional", duration, 101, 10.1, 11},
		{"clamped low", duration, 3, 2, 2},
		{"clamped high", duration, 5000, 60, 60},
		{"static", static, 3, 24, 24},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := computeFPS(tc.r, tc.frames)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("fps: got %v want %v", got, tc.want)
			}
			if tok := (OutputTokens{}).WithFPS(got).FPS; tok != tc.wantTok {
				t.Fatalf("fps token: got %d want %d", tok, tc.wantTok)
			}
		})
	}
}

func TestPlanOutputsResolvesCollisionsIndependently(t *testing.T) {
	outDir := t.TempDir()
	syncDir := t.TempDir()
	for _, name := range []string{"render.mp4", "render_1.mp4"} {
		writeFile(t, filepath.Join(outDir, name), "x")
	}

	plan, err := planOutputs("render", OutputTokens{}, outDir, syncDir, "h264")
	if err != nil {
		t.Fatalf("planOutputs: %v", err)
	}
	if plan.Filename != "render_2" || plan.Extension != "mp4" {
		t.Fatalf("unexpected render name %q.%q", plan.Filename, plan.Extension)
	}
	if plan.SyncFilename != "render" {
		t.Fatalf("expected sync name to resolve on its own, got %q", plan.SyncFilename)
	}
	if plan.Path() != filepath.Join(outDir, "render_2.mp4") {
		t.Fatalf("unexpected path %q", plan.Path())
	}
	if plan.SyncPath() != filepath.Join(syncDir, "render.mp4") {
		t.Fatalf("unexpected sync path %q", plan.SyncPath())
	}

	noSync, err := planOutputs("render", OutputTokens{}, outDir, "", "gif")
	if err != nil {
		t.Fatalf("planOutputs: %v", err)
	}
	if noSync.SyncDirectory != "" || noSync.SyncFilename != "" || noSync.Filename != "render" || noSync.Extension != "gif" {
		t.Fatalf("unexpected plan without sync: %+v", noSync)
	}
}

func TestFormatTables(t *testing.T) {
	tests := []struct {
		format, ext, codec string
	}{
		{"avi", "avi", "mpeg4"},
		{"flv", "flv", "flv1"},
		{"gif", "gif", "gif"},
		{"h264", "mp4", "h264"},
		{"mp4", "mp4", "mpeg4"},
		{"mpeg", "mpeg", "mpeg2video"},
		{"vob", "vob", "mpeg2video"},
		{"webm", "mp4", "mpeg2video"},
	}
	for _, tc := range tests {
		if got := ExtensionForFormat(tc.format); got != tc.ext {
			t.Errorf("extension for %s: got %q want %q", tc.format, got, tc.ext)
		}
		if got := CodecForFormat(tc.format); got != tc.codec {
			t.Errorf("codec for %s: got %q want %q", tc.format, got, tc.codec)
		}
	}
}

func TestApplyPrePostRoll(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, frameName(i)), string(rune('a'+i)))
	}
	if err := applyPrePostRoll(dir, SnapshotFilenameFormat, 5, 3, 2); err != nil {
		t.Fatalf("applyPrePostRoll: %v", err)
	}
	want := []string{"a", "a", "a", "a", "b", "c", "d", "e", "e", "e"}
	for i, expected := range want {
		if got := readFile(t, filepath.Join(dir, frameName(i))); got != expected {
			t.Fatalf("frame %d: got %q want %q", i, got, expected)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, frameName(len(want)))); !os.IsNotExist(err) {
		t.Fatalf("expected no frame beyond %d, stat err %v", len(want)-1, err)
	}
	if rollFrames(1.5, 10) != 15 || rollFrames(0, 30) != 0 || rollFrames(0.25, 10) != 2 {
		t.Fatal("unexpected roll frame conversion")
	}
}

func TestOverlayOrigin(t *testing.T) {
	tests := []struct {
		valign, halign string
		wantX, wantY   int
	}{
		{"top", "left", 10, 10},
		{"middle", "center", 50, 30},
		{"bottom", "right", 90, 50},
	}
	for _, tc := range tests {
		x, y, err := overlayOrigin(10, 10, 100, 50, 20, 10, tc.valign, tc.halign)
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.valign, tc.halign, err)
		}
		if x != tc.wantX || y != tc.wantY {
			t.Fatalf("%s/%s: got %d,%d want %d,%d", tc.valign, tc.halign, x, y, tc.wantX, tc.wantY)
		}
	}
	if _, _, err := overlayOrigin(0, 0, 1, 1, 1, 1, "upper", "left"); KindOf(err) != KindOverlayTextValign {
		t.Fatalf("expected valign error, got %v", err)
	}
	if _, _, err := overlayOrigin(0, 0, 1, 1, 1, 1, "top", "middle"); KindOf(err) != KindOverlayTextHalign {
		t.Fatalf("expected halign error, got %v", err)
	}
}

func TestFrameVariables(t *testing.T) {
	vars := frameVariables(FrameRecord{SnapshotNumber: 4, FileName: "a.jpg", TimeTaken: 1000 + 90061}, 1000)
	if vars[OverlayTimeElapsed] != "1 day, 1:01:01" {
		t.Fatalf("unexpected elapsed %q", vars[OverlayTimeElapsed])
	}
	if vars[OverlaySnapshotNumber] != 4 || vars[OverlayFileName] != "a.jpg" {
		t.Fatalf("unexpected variables %+v", vars)
	}
	if formatElapsed(59) != "0:00:59" || formatElapsed(2*86400+3600) != "2 days, 1:00:00" {
		t.Fatal("unexpected elapsed formatting")
	}
}

func TestBuildEncoderCommand(t *testing.T) {
	cmd := buildEncoderCommand(encoderOptions{
		Binary:       "/usr/bin/ffmpeg",
		FPS:          10,
		InputPattern: "/tmp/r/snapshot_%06d.jpg",
		Output:       "/out/render.mp4",
		Bitrate:      "8000K",
		Format:       "h264",
	}, "linux")
	want := []string{
		"-framerate", "10.0",
		"-loglevel", "error",
		"-i", "/tmp/r/snapshot_%06d.jpg",
		"-threads", "1",
		"-r", "10.0",
		"-y",
		"-b", "8000K",
		"-vcodec", "h264",
		"-vf", "[f0] format=yuv420p [out]",
		"/out/render.mp4",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("unexpected args:\n got %q\nwant %q", cmd.Args, want)
	}
	if cmd.ExecBinary() != "/usr/bin/ffmpeg" {
		t.Fatalf("unexpected binary %q", cmd.ExecBinary())
	}
	if !strings.HasPrefix(cmd.String(), "/usr/bin/ffmpeg -framerate 10.0") {
		t.Fatalf("unexpected command line %q", cmd.String())
	}
}

func TestBuildFilterStringWithWatermark(t *testing.T) {
	got := buildFilterString("/wm.png", "")
	want := "[f0] format=yuv420p [f1]; movie=/wm.png [wm]; [f1][wm] overlay=10:main_h-overlay_h-10 [out]"
	if got != want {
		t.Fatalf("unexpected filter:\n got %q\nwant %q", got, want)
	}

	cmd := buildEncoderCommand(encoderOptions{
		Binary:    `C:\ffmpeg\ffmpeg.exe`,
		FPS:       12.5,
		Watermark: `C:\wm\logo.png`,
		Bitrate:   "1M",
	}, "windows")
	filter := cmd.Args[len(cmd.Args)-2]
	if !strings.Contains(filter, `movie=C\\:/wm/logo.png [wm]`) {
		t.Fatalf("expected escaped windows watermark, got %q", filter)
	}
	if cmd.Args[1] != "12.5" {
		t.Fatalf("unexpected framerate %q", cmd.Args[1])
	}
	if !strings.HasPrefix(cmd.String(), `"C:\ffmpeg\ffmpeg.exe" `) {
		t.Fatalf("expected quoted windows binary, got %q", cmd.String())
	}
}

func TestPayloadPaths(t *testing.T) {
	p := Payload{
		RenderingDirectory:       "/out/",
		RenderingFilename:        "render",
		RenderingExtension:       "mp4",
		SynchronizationDirectory: "/sync/",
		SynchronizationFilename:  "render_1",
		BeforeRenderError:        newError(KindBeforeRenderScript, "x", nil),
	}
	if p.RenderingPath() != "/out/render.mp4" || p.SynchronizationPath() != "/sync/render_1.mp4" {
		t.Fatalf("unexpected paths %q %q", p.RenderingPath(), p.SynchronizationPath())
	}
	if len(p.ScriptErrors()) != 1 {
		t.Fatalf("expected one script error, got %d", len(p.ScriptErrors()))
	}
}

func TestErrorFormatting(t *testing.T) {
	plain := newError(KindNoBitrate, "no bitrate", nil)
	if plain.Error() != "no-bitrate: no bitrate" {
		t.Fatalf("unexpected error text %q", plain.Error())
	}
	cause := errors.New("disk full")
	wrapped := newError(KindCreateRenderPath, "cannot create", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected cause to unwrap")
	}
	if !strings.Contains(wrapped.Error(), "Inner Exception: disk full") {
		t.Fatalf("unexpected error text %q", wrapped.Error())
	}
	generic := AsError(errors.New("boom"))
	if generic.Kind != KindRenderError {
		t.Fatalf("expected generic kind, got %q", generic.Kind)
	}
	if AsError(wrapped) != wrapped {
		t.Fatal("expected existing render error to pass through")
	}
}

func TestReadSnapshotMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MetadataFileName)
	writeFile(t, path, "0,snap_a.jpg,100.5\n1, snap_b.jpg ,101.25\n")
	records, err := readSnapshotMetadata(path)
	if err != nil {
		t.Fatalf("readSnapshotMetadata: %v", err)
	}
	want := []FrameRecord{{0, "snap_a.jpg", 100.5}, {1, "snap_b.jpg", 101.25}}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("unexpected records %+v", records)
	}

	writeFile(t, path, "0,a.jpg\n")
	if _, err := readSnapshotMetadata(path); err == nil {
		t.Fatal("expected short row to fail")
	}

	writeFile(t, filepath.Join(dir, frameName(0)), "x")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	count, err := countFrameFiles(dir)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 frame file, got %d (%v)", count, err)
	}
	if count, err := countFrameFiles(filepath.Join(dir, "missing")); err != nil || count != 0 {
		t.Fatalf("expected missing dir to hold zero frames, got %d (%v)", count, err)
	}
}

func frameName(i int) string {
	return filepath.Base((&Descriptor{SnapshotFormat: SnapshotFilenameFormat}).FramePath(i))
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
