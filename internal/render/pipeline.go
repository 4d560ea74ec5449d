package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"lapse/internal/fileutil"
	"lapse/internal/imaging"
	"lapse/internal/logging"
	"lapse/internal/procrun"
	"lapse/internal/services"
)

const tempDirPrefix = "lapse_render"

// Observer receives the per-job lifecycle notifications. Exactly one of
// RenderSuccess or RenderError is delivered for every pipeline run.
type Observer interface {
	PrerenderStart(Payload)
	RenderStart(Payload)
	RenderSuccess(Payload)
	RenderError(Payload, *Error)
}

// Options carries the collaborators and host settings a pipeline needs.
type Options struct {
	Runner        procrun.Runner
	Faces         FaceLoader
	Logger        *slog.Logger
	OutputDir     string
	SyncDir       string
	WorkDir       string
	LockPath      string
	ScriptTimeout time.Duration
	GOOS          string
}

// Pipeline renders a single job. It is not safe for concurrent use and must
// not be reused after Run returns.
type Pipeline struct {
	desc     *Descriptor
	dequeue  DequeueContext
	observer Observer
	opts     Options
	logger   *slog.Logger

	tokens      OutputTokens
	frameCount  int
	metadata    []FrameRecord
	fps         float64
	outputs     outputPlan
	synchronize bool
	tempDir     string
	beforeErr   *Error
	afterErr    *Error
}

// NewPipeline binds a descriptor and its dequeue context to an observer.
func NewPipeline(desc *Descriptor, dequeue DequeueContext, observer Observer, opts Options) *Pipeline {
	if opts.Runner == nil {
		opts.Runner = procrun.ExecRunner{}
	}
	if opts.Faces == nil {
		opts.Faces = LoadImagingFace
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(desc.DataDir, "timelapse")
	}
	if observer == nil {
		observer = nopObserver{}
	}
	logger := logging.NewComponentLogger(opts.Logger, "render").With(
		logging.String(logging.FieldJobID, desc.JobID),
		logging.String(logging.FieldCamera, desc.Camera.Name),
	)
	return &Pipeline{
		desc:        desc,
		dequeue:     dequeue,
		observer:    observer,
		opts:        opts,
		logger:      logger,
		tokens:      desc.Tokens,
		synchronize: desc.Rendering.SyncWithTimelapse && strings.TrimSpace(opts.SyncDir) != "",
	}
}

// Run executes every stage and reports the outcome through the observer.
// The returned error is nil on success and a *Error otherwise. Hook script
// failures are attached to the payload but never fail the run.
func (p *Pipeline) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithJobID(ctx, p.desc.JobID)
	ctx = services.WithCamera(ctx, p.desc.Camera.Name)
	started := time.Now()

	p.observer.PrerenderStart(p.payload("Prerender is starting."))
	p.beforeErr = p.runBeforeScript(ctx)

	if err := p.render(ctx); err != nil {
		renderErr := AsError(err)
		if p.desc.Rendering.CleanupAfterRenderFail {
			p.removeTempDir()
		}
		logging.ErrorWithContext(p.logger, "render failed", "render_failed",
			logging.String(logging.FieldErrorKind, string(renderErr.Kind)),
			logging.String(logging.FieldErrorHint, renderHint(renderErr.Kind)),
			logging.Error(renderErr),
			logging.Duration("elapsed", time.Since(started)),
		)
		p.observer.RenderError(p.payload("The render process failed."), renderErr)
		return renderErr
	}

	p.logger.Info("render complete",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("output", p.finalPath()),
		logging.Int("frames", p.frameCount),
		logging.Duration("elapsed", time.Since(started)),
	)
	p.observer.RenderSuccess(p.payload("Timelapse rendering is complete."))
	return nil
}

func (p *Pipeline) render(ctx context.Context) error {
	if err := p.prerender(); err != nil {
		return err
	}

	p.logger.Info("starting render",
		logging.String(logging.FieldEventType, "render_start"),
		logging.Int("frames", p.frameCount),
		logging.Float64("fps", p.fps),
	)
	p.observer.RenderStart(p.payload("Starting to render timelapse."))

	if err := p.createTempDir(); err != nil {
		return err
	}
	if strings.TrimSpace(p.desc.FFmpegPath) == "" {
		return newError(KindFFmpegPath, "Cannot create movie, path to ffmpeg is unset. Set ffmpeg.binary in the lapse configuration", nil)
	}
	if strings.TrimSpace(p.desc.Rendering.Bitrate) == "" {
		return newError(KindNoBitrate, "Cannot create movie, desired bitrate is unset. Set rendering.bitrate in the lapse configuration", nil)
	}
	if err := p.ensureOutputDir(); err != nil {
		return err
	}
	watermark, err := p.watermarkPath()
	if err != nil {
		return err
	}

	if err := p.preprocess(); err != nil {
		return err
	}
	pre := rollFrames(p.desc.Rendering.PreRollSeconds, p.fps)
	post := rollFrames(p.desc.Rendering.PostRollSeconds, p.fps)
	if err := applyPrePostRoll(p.tempDir, p.desc.SnapshotFormat, p.frameCount, pre, post); err != nil {
		return fmt.Errorf("apply pre/post roll: %w", err)
	}
	if pre > 0 || post > 0 {
		p.logger.Debug("pre/post roll applied", logging.Int("pre_roll_frames", pre), logging.Int("post_roll_frames", post))
	}

	if err := p.encode(ctx, watermark); err != nil {
		return err
	}

	p.afterErr = p.runAfterScript(ctx)

	if p.desc.Rendering.CleanupAfterRenderComplete {
		p.removeTempDir()
	}

	if p.synchronize {
		return p.synchronizeOutput()
	}
	return nil
}

// prerender discovers frames, computes the frame rate and plans output paths.
func (p *Pipeline) prerender() error {
	if err := p.discoverFrames(); err != nil {
		return err
	}
	switch p.frameCount {
	case 0:
		return newError(KindInsufficientImages, fmt.Sprintf("No snapshots were found for the '%s' camera", p.desc.Camera.Name), nil)
	case 1:
		return newError(KindInsufficientImages, "Only 1 frame was captured, cannot make a timelapse with a single frame", nil)
	}

	p.fps = computeFPS(p.desc.Rendering, p.frameCount)
	p.tokens = p.tokens.WithFPS(p.fps)
	p.logger.Info("fps calculated",
		logging.String("fps_calculation_type", p.desc.Rendering.FPSCalculationType),
		logging.Float64("fps", p.fps),
		logging.Int("frames", p.frameCount),
		logging.Float64("run_length_seconds", p.desc.Rendering.RunLengthSeconds),
		logging.Float64("min_fps", p.desc.Rendering.MinFPS),
		logging.Float64("max_fps", p.desc.Rendering.MaxFPS),
	)
	if p.fps < 1 {
		return newError(KindInsufficientImages, "The calculated FPS is below 1, which is not allowed. Check the rendering min and max FPS as well as the number of snapshots captured", nil)
	}

	syncDir := ""
	if p.synchronize {
		syncDir = p.opts.SyncDir
	}
	plan, err := planOutputs(p.desc.Rendering.OutputTemplate, p.tokens, p.opts.OutputDir, syncDir, p.desc.Rendering.OutputFormat)
	if err != nil {
		return err
	}
	p.outputs = plan
	return nil
}

func (p *Pipeline) discoverFrames() error {
	path := metadataPath(p.desc.SnapshotDir)
	records, err := readSnapshotMetadata(path)
	if err == nil {
		p.metadata = records
		p.frameCount = len(records)
		p.tokens = p.tokens.WithSnapshotCount(p.frameCount)
		p.logger.Info("found frames with metadata", logging.Int("frames", p.frameCount))
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(p.logger, "snapshot metadata unreadable; counting frames instead", "metadata_unreadable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "overlay text will not be applied"),
			logging.String(logging.FieldErrorHint, "inspect "+path),
		)
	}

	count, err := countFrameFiles(p.desc.SnapshotDir)
	if err != nil {
		return fmt.Errorf("count snapshots: %w", err)
	}
	p.metadata = nil
	p.frameCount = count
	p.tokens = p.tokens.WithSnapshotCount(count)
	p.logger.Info("found frames via directory listing", logging.Int("frames", count))
	return nil
}

func (p *Pipeline) createTempDir() error {
	if dir := strings.TrimSpace(p.opts.WorkDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create work directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(p.opts.WorkDir, tempDirPrefix)
	if err != nil {
		return fmt.Errorf("create temporary render directory: %w", err)
	}
	p.tempDir = dir
	return nil
}

// ensureOutputDir accepts an existing directory; anything else at that path,
// or a failure to create it, is a create-render-path error.
func (p *Pipeline) ensureOutputDir() error {
	dir := p.outputs.Directory
	p.logger.Debug("ensuring output directory", logging.String("path", dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newError(KindCreateRenderPath, fmt.Sprintf("An error occurred when trying to create the rendering path at: %s", dir), err)
	}
	if !fileutil.IsDir(dir) {
		return newError(KindCreateRenderPath, fmt.Sprintf("The rendering path %s exists but is not a directory", dir), nil)
	}
	return nil
}

func (p *Pipeline) watermarkPath() (string, error) {
	if !p.desc.Rendering.EnableWatermark {
		return "", nil
	}
	path := strings.TrimSpace(p.desc.Rendering.SelectedWatermark)
	if path == "" {
		return "", newError(KindWatermarkPath, "Watermark was enabled but no watermark file was selected", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return "", newError(KindWatermarkNonExistent, "Watermark file does not exist", err)
	}
	return path, nil
}

// preprocess fills the temporary directory with frames 0..frameCount-1.
// Frames with a matching metadata record get the overlay; everything else is
// moved across unchanged.
func (p *Pipeline) preprocess() error {
	format := p.desc.SnapshotFormat
	target := func(index int) string {
		return filepath.Join(p.tempDir, fmt.Sprintf(format, index))
	}

	if p.metadata == nil {
		p.logger.Info("snapshot metadata missing; skipping overlay")
		for index := 0; index < p.frameCount; index++ {
			if err := fileutil.MoveFile(p.desc.FramePath(index), target(index)); err != nil {
				return fmt.Errorf("relocate frame %d: %w", index, err)
			}
		}
		return nil
	}

	overlay, err := newOverlayer(p.desc.Rendering, p.opts.Faces)
	if err != nil {
		return err
	}
	first := p.metadata[0].TimeTaken
	for index, record := range p.metadata {
		source := p.desc.FramePath(index)
		if overlay == nil || record.SnapshotNumber != index {
			if err := fileutil.MoveFile(source, target(index)); err != nil {
				return fmt.Errorf("relocate frame %d: %w", index, err)
			}
			continue
		}
		if !isFile(source) {
			return fmt.Errorf("cannot find file %s", source)
		}
		img, err := imaging.Decode(source)
		if err != nil {
			return err
		}
		composited, err := overlay.apply(img, frameVariables(record, first))
		if err != nil {
			return err
		}
		if err := imaging.Encode(target(index), composited); err != nil {
			return err
		}
	}
	p.logger.Info("preprocessing complete", logging.Bool("overlay", overlay != nil))
	return nil
}

func (p *Pipeline) encode(ctx context.Context, watermark string) error {
	cmd := buildEncoderCommand(encoderOptions{
		Binary:       p.desc.FFmpegPath,
		FPS:          p.fps,
		InputPattern: filepath.Join(p.tempDir, p.desc.SnapshotFormat),
		Output:       p.outputs.Path(),
		Threads:      p.desc.Rendering.ThreadCount,
		Bitrate:      p.desc.Rendering.Bitrate,
		Format:       p.desc.Rendering.OutputFormat,
		Watermark:    watermark,
	}, p.opts.GOOS)
	p.logger.Info("running ffmpeg",
		logging.String(logging.FieldEventType, "encode_start"),
		logging.String("command", cmd.String()),
	)

	release, err := acquireEncoderLock(ctx, p.opts.LockPath)
	if err != nil {
		return newError(KindRenderingException, "ffmpeg could not start because the render lock was unavailable", err)
	}
	result, err := p.opts.Runner.Run(ctx, cmd.ExecBinary(), cmd.Args, 0)
	release()

	if err != nil {
		return newError(KindRenderingException, "ffmpeg failed during rendering of movie. Check the lapse log for details", err)
	}
	if result.ExitCode != 0 {
		return newError(KindReturnCode, fmt.Sprintf("Could not render movie, got return code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)), nil)
	}
	p.logger.Info("ffmpeg finished",
		logging.String(logging.FieldEventType, "encode_complete"),
		logging.Duration("elapsed", result.Elapsed),
	)
	return nil
}

func (p *Pipeline) synchronizeOutput() error {
	source := p.outputs.Path()
	target := p.outputs.SyncPath()
	p.logger.Info("synchronizing timelapse",
		logging.String(logging.FieldEventType, "sync_start"),
		logging.String("source", source),
		logging.String("target", target),
	)
	if err := fileutil.MoveFile(source, target); err != nil {
		return newError(KindSynchronizing, fmt.Sprintf("Failed to synchronize the rendered timelapse. The video can still be found at %s", source), err)
	}
	return nil
}

func (p *Pipeline) runBeforeScript(ctx context.Context) *Error {
	args := []string{
		p.desc.Camera.Name,
		p.desc.SnapshotDir,
		p.desc.SnapshotFormat,
		p.desc.FramePattern(),
	}
	ctx = services.WithStage(ctx, "before-render")
	return runHookScript(ctx, p.opts.Runner, logging.WithContext(ctx, p.logger), KindBeforeRenderScript, "before-render", p.desc.Camera.BeforeRenderScript, args, p.opts.ScriptTimeout)
}

func (p *Pipeline) runAfterScript(ctx context.Context) *Error {
	args := []string{
		p.desc.Camera.Name,
		p.desc.SnapshotDir,
		p.desc.SnapshotFormat,
		p.desc.FramePattern(),
		p.outputs.Directory,
		p.outputs.Filename,
		p.outputs.Extension,
		p.outputs.Path(),
		p.outputs.SyncDirectory,
		p.outputs.SyncFilename,
	}
	ctx = services.WithStage(ctx, "after-render")
	return runHookScript(ctx, p.opts.Runner, logging.WithContext(ctx, p.logger), KindAfterRenderScript, "after-render", p.desc.Camera.AfterRenderScript, args, p.opts.ScriptTimeout)
}

// removeTempDir deletes the working directory. Failures are logged and never
// replace the job's own outcome.
func (p *Pipeline) removeTempDir() {
	if p.tempDir == "" {
		return
	}
	if err := os.RemoveAll(p.tempDir); err != nil {
		logging.WarnWithContext(p.logger, "temporary render directory cleanup failed", "cleanup_failed",
			logging.Error(err),
			logging.String("path", p.tempDir),
			logging.String(logging.FieldImpact, "intermediate frames remain on disk"),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
		)
		return
	}
	p.logger.Debug("temporary render directory removed", logging.String("path", p.tempDir))
}

func (p *Pipeline) finalPath() string {
	if p.synchronize {
		return p.outputs.SyncPath()
	}
	return p.outputs.Path()
}

// TempDir returns the working directory created for this run, if any.
func (p *Pipeline) TempDir() string {
	return p.tempDir
}

func (p *Pipeline) payload(reason string) Payload {
	return Payload{
		Reason:                   reason,
		JobID:                    p.desc.JobID,
		JobDirectory:             p.desc.JobDir,
		SnapshotDirectory:        p.desc.SnapshotDir,
		RenderingDirectory:       p.outputs.Directory,
		RenderingFilename:        p.outputs.Filename,
		RenderingExtension:       p.outputs.Extension,
		SynchronizationDirectory: p.outputs.SyncDirectory,
		SynchronizationFilename:  p.outputs.SyncFilename,
		Synchronize:              p.synchronize,
		SnapshotCount:            p.frameCount,
		SecondsAdded:             p.desc.Info.SecondsAdded,
		JobNumber:                p.dequeue.JobNumber,
		JobsRemaining:            p.dequeue.JobsRemaining,
		CameraName:               p.desc.Camera.Name,
		BeforeRenderError:        p.beforeErr,
		AfterRenderError:         p.afterErr,
	}
}

func renderHint(kind Kind) string {
	switch kind {
	case KindInsufficientImages:
		return "check that the camera captured snapshots and the min/max fps settings"
	case KindFFmpegPath, KindRenderingException:
		return "run `lapse deps` to verify the ffmpeg installation"
	case KindReturnCode:
		return "inspect the ffmpeg error output above"
	case KindOutputTemplate, KindOverlayTemplate:
		return "run `lapse config validate` to check rendering templates"
	case KindSynchronizing:
		return "check permissions on paths.sync_dir"
	default:
		return "check the lapse log for details"
	}
}

type nopObserver struct{}

func (nopObserver) PrerenderStart(Payload)      {}
func (nopObserver) RenderStart(Payload)         {}
func (nopObserver) RenderSuccess(Payload)       {}
func (nopObserver) RenderError(Payload, *Error) {}
