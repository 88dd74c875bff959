package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/background"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/progressfile"
	"github.com/SatNaingTun/SntImageBGChanger/internal/matting"
	"github.com/SatNaingTun/SntImageBGChanger/internal/progress"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// VideoDeps collects the collaborators of the video job use case. Publisher,
// Notifier and Mirror are optional.
type VideoDeps struct {
	Repo        port.JobRepository
	Files       *filestore.Store
	Pipeline    Renderer
	Decoder     port.VideoDecoder
	Muxer       port.Muxer
	Factory     *background.Factory
	Backgrounds *BackgroundUseCase
	Tracker     *progress.Tracker
	Publisher   port.StatusPublisher
	Notifier    port.FailureNotifier
	Mirror      port.ResultMirror
	Logger      *zap.Logger
}

type VideoRequest struct {
	FileName       string
	Video          io.Reader
	Mode           entity.Mode
	Color          string
	BlurStrength   int
	Background     []byte
	BackgroundName string
	BackgroundID   string
	NotifyEmail    string
}

type VideoSubmission struct {
	JobID       string `json:"job_id"`
	ProgressURL string `json:"progress_url"`
	OutputURL   string `json:"output_url"`
}

type ProcessVideoUseCase struct {
	VideoDeps
	dispatcher port.JobDispatcher
}

func NewProcessVideoUseCase(deps VideoDeps) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{VideoDeps: deps}
}

// SetDispatcher chooses where submitted jobs run. It must be called before Submit.
func (uc *ProcessVideoUseCase) SetDispatcher(d port.JobDispatcher) {
	uc.dispatcher = d
}

// Submit stores the upload, records a new job and hands it to the dispatcher.
// It returns as soon as the job is queued.
func (uc *ProcessVideoUseCase) Submit(ctx context.Context, req VideoRequest) (*VideoSubmission, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "ProcessVideoUseCase.Submit")
	defer span.End()

	if req.Video == nil {
		return nil, ErrInvalidVideo
	}
	base := filestore.NewName("")
	inputPath, err := uc.Files.Save(filestore.VideoUpload, base+extOr(req.FileName, ".mp4"), req.Video)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}
	if info, err := os.Stat(inputPath); err != nil || info.Size() == 0 {
		os.Remove(inputPath)
		return nil, ErrInvalidVideo
	}

	mode := req.Mode
	bgPath, err := uc.storeBackground(base, req)
	if err != nil {
		os.Remove(inputPath)
		return nil, err
	}
	if mode == entity.ModeCustom && bgPath == "" {
		mode = entity.ModeColor
	}

	outputName := base + "_changed.mp4"
	outputPath, err := uc.Files.Reserve(filestore.VideoChanged, outputName)
	if err != nil {
		return nil, err
	}

	job := entity.NewJob(mode, req.Color, req.BlurStrength, inputPath, outputPath, bgPath)
	job.NotifyEmail = req.NotifyEmail
	span.SetAttributes(attribute.String("job.id", job.ID.String()), attribute.String("mode", string(mode)))
	log := uc.Logger.With(zap.String("job_id", job.ID.String()))

	if err := uc.Repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := uc.Tracker.Start(ctx, job.ID.String()); err != nil {
		log.Warn("could not write initial progress", zap.Error(err))
	}
	if err := job.MarkStarting(); err != nil {
		return nil, err
	}
	if err := uc.Repo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	queued := *job
	if err := uc.dispatcher.Dispatch(ctx, &queued); err != nil {
		_ = uc.fail(ctx, job, "dispatch", err, log)
		return nil, fmt.Errorf("dispatch job: %w", err)
	}
	metrics.VideoJobsTotal.WithLabelValues("submitted").Inc()
	log.Info("video job submitted", zap.String("mode", string(mode)), zap.String("input", filepath.Base(inputPath)))

	return &VideoSubmission{
		JobID:       job.ID.String(),
		ProgressURL: "/api/video/progress/" + job.ID.String(),
		OutputURL:   PublicURL(filestore.VideoChanged, outputName),
	}, nil
}

func (uc *ProcessVideoUseCase) storeBackground(base string, req VideoRequest) (string, error) {
	if len(req.Background) > 0 {
		if isVideoName(req.BackgroundName) {
			return uc.Files.SaveBytes(filestore.VideoBackground, base+"_bg"+extOr(req.BackgroundName, ".mp4"), req.Background)
		}
		if _, err := imageio.Decode(req.Background); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBackground, err)
		}
		return uc.Files.SaveBytes(filestore.ImageBackground, base+"_bg"+extOr(req.BackgroundName, ".jpg"), req.Background)
	}
	if req.BackgroundID != "" && uc.Backgrounds != nil {
		spec := uc.Backgrounds.Resolve(req.BackgroundID, parseColor(req.Color))
		return spec.Path, nil
	}
	return "", nil
}

// Execute runs a job to completion: frames are processed strictly in order, a
// frame that fails is skipped, and the survivors are muxed into the output.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, job *entity.Job) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", job.ID.String()), attribute.String("mode", string(job.Mode)))

	start := time.Now()
	id := job.ID.String()
	log := uc.Logger.With(zap.String("job_id", id))

	release := uc.pin(job)
	defer release()

	ctxOpen, spanOpen := tracer.Start(ctx, "open_input")
	reader, err := uc.Decoder.Open(ctxOpen, job.InputPath)
	spanOpen.End()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return uc.fail(ctx, job, "open input", err, log)
	}
	defer reader.Close()

	info := reader.Info()
	if err := job.MarkProcessing(info.FrameCount, info.FPS); err != nil {
		return uc.fail(ctx, job, "start processing", err, log)
	}
	if err := uc.Repo.Update(ctx, job); err != nil {
		log.Warn("could not record processing state", zap.Error(err))
	}

	bg := uc.openBackground(job)
	if bg != nil {
		defer bg.Close()
	}

	ctxFrames, spanFrames := tracer.Start(ctx, "render_frames")
	frames, skipped := uc.renderAll(ctxFrames, job, reader, bg, info.FrameCount, log)
	spanFrames.SetAttributes(attribute.Int("frames", len(frames)), attribute.Int("skipped", skipped))
	spanFrames.End()
	metrics.StageDuration.WithLabelValues("render").Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		return uc.fail(ctx, job, "cancelled", err, log)
	}
	if len(frames) == 0 {
		return uc.fail(ctx, job, "process frames", errors.New("no frames could be processed"), log)
	}

	muxStart := time.Now()
	ctxMux, spanMux := tracer.Start(ctx, "mux")
	err = uc.Muxer.Mux(ctxMux, frames, info.FPS, job.OutputPath)
	spanMux.End()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return uc.fail(ctx, job, "write video", err, log)
	}
	metrics.StageDuration.WithLabelValues("mux").Observe(time.Since(muxStart).Seconds())

	if err := job.MarkDone(len(frames), skipped); err != nil {
		return err
	}
	if err := uc.Repo.Update(ctx, job); err != nil {
		log.Warn("could not record done state", zap.Error(err))
	}
	if err := uc.Tracker.Complete(ctx, id); err != nil {
		log.Warn("could not write final progress", zap.Error(err))
	}

	uc.mirrorOutput(ctx, job, log)
	uc.publishStatus(ctx, job, log)
	uc.applyRetention()

	metrics.VideoJobsTotal.WithLabelValues(string(entity.JobStatusDone)).Inc()
	metrics.StageDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
	log.Info("video job done",
		zap.Int("frames", len(frames)),
		zap.Int("skipped", skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (uc *ProcessVideoUseCase) renderAll(
	ctx context.Context,
	job *entity.Job,
	reader port.VideoReader,
	bg background.Provider,
	total int,
	log *zap.Logger,
) ([]*image.NRGBA, int) {
	id := job.ID.String()
	var frames []*image.NRGBA
	skipped := 0

	for i := 1; ctx.Err() == nil; i++ {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("input stream ended early", zap.Int("frame", i), zap.Error(err))
			break
		}

		out, err := uc.renderFrame(ctx, job, frame, bg)
		if err != nil {
			skipped++
			metrics.FramesSkippedTotal.Inc()
			log.Warn("frame skipped", zap.Int("frame", i), zap.Error(err))
		} else {
			frames = append(frames, out)
			metrics.FramesCompositedTotal.WithLabelValues("video").Inc()
		}

		if err := uc.Tracker.Update(ctx, id, i, total); err != nil {
			log.Debug("progress write failed", zap.Error(err))
		}
	}
	return frames, skipped
}

func (uc *ProcessVideoUseCase) renderFrame(ctx context.Context, job *entity.Job, frame *image.NRGBA, bg background.Provider) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame panic: %v", r)
		}
	}()

	// mp4 carries no alpha, so transparent jobs keep the foreground over black.
	if job.Mode == entity.ModeTransparent {
		m, err := uc.Pipeline.Matte(ctx, frame)
		if err != nil {
			return nil, err
		}
		return matting.Premultiply(frame, m), nil
	}

	var bgFrame *image.NRGBA
	if bg != nil {
		b := frame.Bounds()
		if bgFrame, err = bg.Frame(ctx, b.Dx(), b.Dy()); err != nil {
			return nil, fmt.Errorf("background frame: %w", err)
		}
	}
	return uc.Pipeline.Render(ctx, frame, bgFrame, job.Mode, job.BlurStrength)
}

// openBackground returns nil for modes that do not composite over a background.
func (uc *ProcessVideoUseCase) openBackground(job *entity.Job) background.Provider {
	fallback := parseColor(job.Color)
	switch job.Mode {
	case entity.ModeColor:
		return background.NewSolid(fallback)
	case entity.ModeCustom:
		spec := entity.ImageBackground(job.BackgroundPath, fallback)
		if isVideoName(job.BackgroundPath) {
			spec = entity.VideoBackground(job.BackgroundPath, fallback)
		}
		return uc.Factory.OpenOrSolid(spec)
	default:
		return nil
	}
}

func (uc *ProcessVideoUseCase) fail(ctx context.Context, job *entity.Job, stage string, cause error, log *zap.Logger) error {
	err := fmt.Errorf("%s: %w", stage, cause)
	log.Error("video job failed", zap.String("stage", stage), zap.Error(cause))

	if mErr := job.MarkFailed(err.Error()); mErr != nil {
		log.Warn("job already terminal", zap.Error(mErr))
	}
	// The job record and progress must be written even when ctx was cancelled.
	ctx = context.WithoutCancel(ctx)
	if uErr := uc.Repo.Update(ctx, job); uErr != nil {
		log.Warn("could not record failed state", zap.Error(uErr))
	}
	if pErr := uc.Tracker.Fail(ctx, job.ID.String()); pErr != nil {
		log.Warn("could not write failed progress", zap.Error(pErr))
	}
	uc.publishStatus(ctx, job, log)

	if uc.Notifier != nil && job.NotifyEmail != "" {
		if nErr := uc.Notifier.NotifyFailure(ctx, job.NotifyEmail, job.ID.String(), filepath.Base(job.InputPath), err.Error()); nErr != nil {
			log.Warn("failure notification not sent", zap.Error(nErr))
		}
	}
	metrics.VideoJobsTotal.WithLabelValues(string(entity.JobStatusFailed)).Inc()
	return err
}

// ExecuteMessage runs a job delivered through the queue. Malformed messages are
// returned as errors so the consumer can dead-letter them.
func (uc *ProcessVideoUseCase) ExecuteMessage(ctx context.Context, raw []byte) error {
	var msg entity.VideoJobMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("unmarshal job message: %w", err)
	}
	if msg.JobID == uuid.Nil || msg.InputPath == "" {
		return errors.New("job message missing job_id or input_path")
	}

	job, err := uc.Repo.FindByID(ctx, msg.JobID)
	switch {
	case errors.Is(err, entity.ErrJobNotFound):
		job = msg.Job()
		if err := uc.Repo.Create(ctx, job); err != nil {
			return fmt.Errorf("create job: %w", err)
		}
	case err != nil:
		return fmt.Errorf("find job: %w", err)
	}

	if job.IsTerminal() {
		uc.Logger.Info("job already finished, ignoring delivery",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
		)
		return nil
	}
	// A job already processing was orphaned by a worker that stopped mid-job.
	if job.Status == entity.JobStatusProcessing {
		log := uc.Logger.With(zap.String("job_id", job.ID.String()))
		return uc.fail(ctx, job, "redelivered", errors.New("worker stopped before the job finished"), log)
	}
	return uc.Execute(ctx, job)
}

// Job returns the stored record for id.
func (uc *ProcessVideoUseCase) Job(ctx context.Context, id string) (*entity.Job, error) {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, entity.ErrJobNotFound
	}
	return uc.Repo.FindByID(ctx, jobID)
}

func (uc *ProcessVideoUseCase) Progress(ctx context.Context, id string) entity.Progress {
	return uc.Tracker.Read(ctx, id)
}

func (uc *ProcessVideoUseCase) DownloadPath(name string) (string, error) {
	return uc.Files.Path(filestore.VideoChanged, name)
}

// pin protects the job's files from retention and returns the matching release.
func (uc *ProcessVideoUseCase) pin(job *entity.Job) func() {
	paths := []string{
		job.InputPath,
		job.OutputPath,
		filepath.Join(uc.Files.Dir(filestore.ProgressRecords), progressfile.FileName(job.ID.String())),
	}
	if job.BackgroundPath != "" {
		paths = append(paths, job.BackgroundPath)
	}
	for _, p := range paths {
		uc.Files.Pin(p)
	}
	return func() {
		for _, p := range paths {
			uc.Files.Unpin(p)
		}
	}
}

func (uc *ProcessVideoUseCase) applyRetention() {
	for _, cat := range []filestore.Category{filestore.VideoChanged, filestore.ProgressRecords} {
		if _, err := uc.Files.Enforce(cat); err != nil {
			uc.Logger.Warn("retention failed", zap.String("category", string(cat)), zap.Error(err))
		}
	}
}

func (uc *ProcessVideoUseCase) mirrorOutput(ctx context.Context, job *entity.Job, log *zap.Logger) {
	if uc.Mirror == nil {
		return
	}
	key := "videos/" + filepath.Base(job.OutputPath)
	if err := uc.Mirror.MirrorFile(ctx, key, job.OutputPath, "video/mp4"); err != nil {
		log.Warn("mirror video result failed", zap.String("key", key), zap.Error(err))
	}
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	if uc.Publisher == nil {
		return
	}
	data, err := json.Marshal(entity.NewVideoStatusMessage(job))
	if err != nil {
		log.Error("failed to encode status", zap.Error(err))
		return
	}
	if err := uc.Publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

// BatchRunner runs fire-and-forget work on the batch worker class.
type BatchRunner interface {
	Go(fn func(ctx context.Context)) error
}

// LocalDispatcher runs jobs in-process on the batch pool.
type LocalDispatcher struct {
	pool BatchRunner
	uc   *ProcessVideoUseCase
}

func NewLocalDispatcher(pool BatchRunner, uc *ProcessVideoUseCase) *LocalDispatcher {
	return &LocalDispatcher{pool: pool, uc: uc}
}

// Dispatch pins the job's files until the job finishes, covering the time it
// waits in the queue.
func (d *LocalDispatcher) Dispatch(_ context.Context, job *entity.Job) error {
	release := d.uc.pin(job)
	err := d.pool.Go(func(ctx context.Context) {
		defer release()
		_ = d.uc.Execute(ctx, job)
	})
	if err != nil {
		release()
		return err
	}
	return nil
}
