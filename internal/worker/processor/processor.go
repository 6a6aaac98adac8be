// Package processor runs one render job end to end: workspace, renderer,
// artifact lookup, optional audio, publish.
package processor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	contracts "animrender/internal/contracts/renderer/v0"
	"animrender/internal/jobs"
	"animrender/internal/pkg/errors"
	"animrender/internal/pkg/logger"
	"animrender/internal/worker/renderer"
)

// Progress and outcome notes written to the job record.
const (
	MsgQueued          = "Job queued for processing"
	MsgStarting        = "Starting Manim rendering"
	MsgRunning         = "Running Manim renderer"
	MsgRenderFailed    = "Manim rendering failed"
	MsgRenderTimedOut  = "Manim rendering timed out"
	MsgRendered        = "Manim rendering completed, locating video file"
	MsgNoVideoDir      = "No video directory found after rendering"
	MsgNoVideoFile     = "No video file found after rendering"
	MsgVideoFound      = "Video file found, processing"
	MsgCombining       = "Combining audio with video"
	MsgCombined        = "Audio and video combined successfully"
	MsgUploadingS3     = "Uploading to S3"
	MsgUploading       = "Uploading to %s"
	MsgPublishFailed   = "Failed to publish video"
	MsgUploaded        = "Video rendered and uploaded successfully"
	MsgStoredLocally   = "Video rendered successfully (local storage)"
	MsgWorkspaceFailed = "Failed to prepare render workspace"
	MsgException       = "Exception occurred during rendering"
)

// maxErrorText bounds the diagnostic kept on a job.
const maxErrorText = 64 << 10

type Deps struct {
	Registry      *jobs.Registry
	Renderer      renderer.Client
	Audio         *AudioMerger
	Publisher     *Publisher
	WorkspaceRoot string
	// Timeout bounds a whole run; zero means none.
	Timeout time.Duration
	Log     *logger.Logger
}

type Processor struct {
	registry      *jobs.Registry
	renderer      renderer.Client
	audio         *AudioMerger
	publisher     *Publisher
	workspaceRoot string
	timeout       time.Duration
	log           *logger.Logger
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Processor{
		registry:      d.Registry,
		renderer:      d.Renderer,
		audio:         d.Audio,
		publisher:     d.Publisher,
		workspaceRoot: d.WorkspaceRoot,
		timeout:       d.Timeout,
		log:           log.WithComponent("processor"),
	}
}

// Request is one submitted job as the executor sees it.
type Request struct {
	JobID    string
	Source   string
	Quality  string
	AudioURL string
}

// Process drives the job to a terminal state. The returned error is the
// failure recorded on the job, nil when it completed.
func (p *Processor) Process(ctx context.Context, req Request) (err error) {
	ctx = logger.ContextWithJobID(ctx, req.JobID)
	log := p.log.FromContext(ctx)

	// Registry writes must land even after the run deadline has passed.
	rctx := context.WithoutCancel(ctx)

	p.registry.BeginRun()
	defer p.registry.EndRun()

	if err := p.registry.MarkProcessing(rctx, req.JobID, MsgStarting); err != nil {
		log.Warn("job not runnable", "error", err.Error())
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	log.Info("render started", "quality", req.Quality, "audio", req.AudioURL != "")

	var ws *Workspace
	defer func() {
		if rec := recover(); rec != nil {
			text := fmt.Sprintf("Error during rendering: %v\n%s", rec, debug.Stack())
			log.Error("panic during render", "panic", fmt.Sprint(rec))
			err = p.failJob(rctx, req.JobID, terminal(errors.New(errors.CodeInternal, text), MsgException))
		}
		if cerr := ws.Cleanup(); cerr != nil {
			log.Warn("workspace cleanup failed", "dir", ws.Dir, "error", cerr.Error())
		}
		log.Info("render finished",
			"failed", err != nil,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	// 1. Preparar workspace y script
	ws, res := p.prepare(req)
	if res.outcome == phaseTerminal {
		return p.failJob(rctx, req.JobID, res)
	}

	// 2. Renderizar
	p.setMessage(rctx, req.JobID, MsgRunning)
	if res := p.render(ctx, ws, req); res.outcome == phaseTerminal {
		return p.failJob(rctx, req.JobID, res)
	}
	p.setMessage(rctx, req.JobID, MsgRendered)

	// 3. Localizar el video
	video, res := p.locate(ws)
	if res.outcome == phaseTerminal {
		return p.failJob(rctx, req.JobID, res)
	}
	p.setMessage(rctx, req.JobID, MsgVideoFound)

	// 4. Audio opcional; un fallo aquí no tumba el job
	var audioNote string
	if req.AudioURL != "" {
		p.setMessage(rctx, req.JobID, MsgCombining)
		merged, res := p.mergeAudio(ctx, ws, video, req.AudioURL)
		switch res.outcome {
		case phaseOK:
			video = merged
			p.setMessage(rctx, req.JobID, MsgCombined)
		case phaseRecoverable:
			log.Warn("audio merge failed, continuing with video only", "error", res.err.Error())
			audioNote = res.message
			p.setMessage(rctx, req.JobID, res.message)
		default:
			return p.failJob(rctx, req.JobID, res)
		}
	}

	// 5. Publicar
	if p.publisher.Remote() {
		p.setMessage(rctx, req.JobID, uploadingMessage(p.publisher.Provider()))
	}
	pub, res := p.publish(ctx, video, req.JobID)
	if res.outcome == phaseTerminal {
		return p.failJob(rctx, req.JobID, res)
	}

	done := MsgStoredLocally
	if p.publisher.Remote() {
		done = MsgUploaded
	}
	// The audio fallback stays visible on the completed job.
	if audioNote != "" {
		done += ". " + audioNote
	}
	if err := p.registry.Complete(rctx, req.JobID, pub.URL, done); err != nil {
		log.Error("failed to record completion", "error", err.Error())
		return err
	}
	log.Info("job completed", "object_key", pub.ObjectKey, "size", pub.Size)
	return nil
}

func (p *Processor) prepare(req Request) (*Workspace, phaseResult) {
	ws, err := NewWorkspace(p.workspaceRoot, req.JobID)
	if err != nil {
		return nil, terminal(errors.Wrap(err, "processor.workspace", err.Error()), MsgWorkspaceFailed)
	}
	if err := ws.WriteScript(req.Source); err != nil {
		return ws, terminal(errors.Wrap(err, "processor.script", err.Error()), MsgWorkspaceFailed)
	}
	return ws, ok()
}

func (p *Processor) render(ctx context.Context, ws *Workspace, req Request) phaseResult {
	_, err := p.renderer.Render(ctx, renderer.Request{Workspace: ws.Dir, Quality: req.Quality})
	if err == nil {
		return ok()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		timeout := errors.WrapWithCode(err, errors.CodeTimeout, "processor.render",
			fmt.Sprintf("%s\nrender timeout of %s exceeded", detail(err), p.timeout))
		return terminal(timeout, MsgRenderTimedOut)
	}
	return terminal(err, MsgRenderFailed)
}

func (p *Processor) locate(ws *Workspace) (string, phaseResult) {
	video, err := LocateVideo(ws.MediaDir(), contracts.ScriptStem)
	if err == nil {
		return video, ok()
	}
	msg := MsgNoVideoFile
	if errors.GetFields(err)["missing"] == missingVideosDir {
		msg = MsgNoVideoDir
	}
	return "", terminal(err, msg)
}

func (p *Processor) mergeAudio(ctx context.Context, ws *Workspace, video, audioURL string) (string, phaseResult) {
	merged, err := p.audio.Merge(ctx, ws, video, audioURL)
	if err != nil {
		return "", classify(err, fmt.Sprintf("Failed to combine audio: %s. Using video only.", detail(err)))
	}
	return merged, ok()
}

func (p *Processor) publish(ctx context.Context, video, jobID string) (Published, phaseResult) {
	pub, err := p.publisher.Publish(ctx, video, jobID)
	if err != nil {
		return Published{}, terminal(err, MsgPublishFailed)
	}
	return pub, ok()
}

func (p *Processor) setMessage(ctx context.Context, jobID, msg string) {
	if err := p.registry.SetMessage(ctx, jobID, msg); err != nil {
		p.log.FromContext(ctx).Warn("failed to update job message", "error", err.Error())
	}
}

func (p *Processor) failJob(ctx context.Context, jobID string, res phaseResult) error {
	log := p.log.FromContext(ctx)

	text := Truncate(detail(res.err), maxErrorText)

	var coded *errors.Error
	if errors.As(res.err, &coded) {
		log.Error("job failed",
			"code", string(coded.Code),
			"op", coded.Op,
			"message", res.message,
		)
	} else {
		log.Error("job failed", "error", text, "message", res.message)
	}

	if err := p.registry.Fail(ctx, jobID, text, res.message); err != nil {
		log.Error("failed to record failure", "error", err.Error())
	}
	return res.err
}

func uploadingMessage(provider string) string {
	if provider == "s3" {
		return MsgUploadingS3
	}
	return fmt.Sprintf(MsgUploading, provider)
}
