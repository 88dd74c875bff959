package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/background"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/memory"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/modnet"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/progressfile"
	"github.com/SatNaingTun/SntImageBGChanger/internal/matting"
	"github.com/SatNaingTun/SntImageBGChanger/internal/progress"
	"github.com/SatNaingTun/SntImageBGChanger/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type videoFixture struct {
	uc      *ProcessVideoUseCase
	files   *filestore.Store
	repo    *memory.JobRepository
	muxer   *fakeMuxer
	decoder *fakeDecoder
}

func newVideoFixture(t *testing.T, renderer Renderer, notifier *mockNotifier) videoFixture {
	t.Helper()
	log := zap.NewNop()
	files := newFiles(t)
	store, err := progressfile.New(files.Dir(filestore.ProgressRecords))
	require.NoError(t, err)

	dec := &fakeDecoder{frames: 10, width: 4, height: 4, colour: &red, fps: 24}
	mux := &fakeMuxer{}
	repo := memory.NewJobRepository()

	deps := VideoDeps{
		Repo:        repo,
		Files:       files,
		Pipeline:    renderer,
		Decoder:     dec,
		Muxer:       mux,
		Factory:     background.NewFactory(dec, log),
		Backgrounds: NewBackgroundUseCase(files, log),
		Tracker:     progress.NewTracker(store, log),
		Logger:      log,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	uc := NewProcessVideoUseCase(deps)

	pool := worker.NewPool(worker.Config{InteractiveWorkers: 1, BatchWorkers: 1, QueueSize: 4}, log)
	t.Cleanup(func() { _ = pool.Close(context.Background()) })
	uc.SetDispatcher(NewLocalDispatcher(pool, uc))

	return videoFixture{uc: uc, files: files, repo: repo, muxer: mux, decoder: dec}
}

func (fx videoFixture) waitTerminal(t *testing.T, id string) entity.Progress {
	t.Helper()
	var p entity.Progress
	require.Eventually(t, func() bool {
		p = fx.uc.Progress(context.Background(), id)
		return p.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return p
}

func TestVideoJobFullForegroundReproducesInput(t *testing.T) {
	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 1}, 8), nil)

	sub, err := fx.uc.Submit(context.Background(), VideoRequest{
		FileName: "clip.mp4",
		Video:    bytes.NewReader([]byte("mp4 bytes")),
		Mode:     entity.ModeColor,
		Color:    "#00ff00",
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/video/progress/"+sub.JobID, sub.ProgressURL)
	assert.True(t, strings.HasPrefix(sub.OutputURL, "/video/changedVideo/"))

	p := fx.waitTerminal(t, sub.JobID)
	assert.Equal(t, entity.StageDone, p.Stage)
	assert.Equal(t, float64(100), p.Progress)

	frames := fx.muxer.muxed()
	require.Len(t, frames, 10)
	for _, f := range frames {
		assert.Equal(t, red, f.NRGBAAt(0, 0))
		assert.Equal(t, red, f.NRGBAAt(3, 3))
	}
	assert.Equal(t, float64(24), fx.muxer.fps)

	job, err := fx.uc.Job(context.Background(), sub.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusDone, job.Status)
	assert.Equal(t, 10, job.ProcessedFrames)
	assert.Zero(t, job.SkippedFrames)
}

func TestVideoJobSkipsFailingFrames(t *testing.T) {
	renderer := &flakyRenderer{failOn: map[int]bool{3: true}, panicOn: map[int]bool{7: true}}
	fx := newVideoFixture(t, renderer, nil)

	job := entity.NewJob(entity.ModeBlur, "", 25, fx.writeInput(t), fx.outputPath(t), "")
	require.NoError(t, fx.repo.Create(context.Background(), job))

	require.NoError(t, fx.uc.Execute(context.Background(), job))
	assert.Equal(t, entity.JobStatusDone, job.Status)
	assert.Equal(t, 8, job.ProcessedFrames)
	assert.Equal(t, 2, job.SkippedFrames)
	assert.Len(t, fx.muxer.muxed(), 8)
}

func TestVideoJobWithNoFramesFailsAndNotifies(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("NotifyFailure", mock.Anything, "user@example.com", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 1}, 8), notifier)
	fx.decoder.frames = 0

	job := entity.NewJob(entity.ModeColor, "", 0, fx.writeInput(t), fx.outputPath(t), "")
	job.NotifyEmail = "user@example.com"
	require.NoError(t, fx.repo.Create(context.Background(), job))

	err := fx.uc.Execute(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "no frames")

	p := fx.uc.Progress(context.Background(), job.ID.String())
	assert.Equal(t, entity.StageFailed, p.Stage)
	notifier.AssertExpectations(t)
}

func TestVideoJobMuxFailureFailsJob(t *testing.T) {
	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 1}, 8), nil)
	fx.muxer.err = errors.New("encoder exited")

	job := entity.NewJob(entity.ModeColor, "", 0, fx.writeInput(t), fx.outputPath(t), "")
	require.NoError(t, fx.repo.Create(context.Background(), job))

	err := fx.uc.Execute(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, entity.JobStatusFailed, job.Status)

	stored, err := fx.repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
}

func TestVideoJobTransparentPremultipliesForeground(t *testing.T) {
	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 0}, 8), nil)
	fx.decoder.frames = 2

	job := entity.NewJob(entity.ModeTransparent, "", 0, fx.writeInput(t), fx.outputPath(t), "")
	require.NoError(t, fx.repo.Create(context.Background(), job))
	require.NoError(t, fx.uc.Execute(context.Background(), job))

	for _, f := range fx.muxer.muxed() {
		px := f.NRGBAAt(1, 1)
		assert.Zero(t, px.R)
		assert.Equal(t, uint8(255), px.A)
	}
}

func TestSubmitRejectsEmptyUpload(t *testing.T) {
	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 1}, 8), nil)

	_, err := fx.uc.Submit(context.Background(), VideoRequest{FileName: "empty.mp4", Video: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrInvalidVideo)

	_, err = fx.uc.Submit(context.Background(), VideoRequest{
		FileName:       "clip.mp4",
		Video:          bytes.NewReader([]byte("mp4")),
		Mode:           entity.ModeCustom,
		Background:     []byte("not an image"),
		BackgroundName: "bg.png",
	})
	assert.ErrorIs(t, err, ErrInvalidBackground)

	uploads, err := fx.files.List(filestore.VideoUpload)
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

func TestExecuteMessage(t *testing.T) {
	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 1}, 8), nil)

	assert.Error(t, fx.uc.ExecuteMessage(context.Background(), []byte("{not json")))
	assert.Error(t, fx.uc.ExecuteMessage(context.Background(), []byte(`{"mode":"color"}`)))

	job := entity.NewJob(entity.ModeColor, "#0000ff", 0, fx.writeInput(t), fx.outputPath(t), "")
	raw := mustJSON(t, entity.NewVideoJobMessage(job))
	require.NoError(t, fx.uc.ExecuteMessage(context.Background(), raw))

	stored, err := fx.repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusDone, stored.Status)

	// Redelivery of a finished job is a no-op.
	require.NoError(t, fx.uc.ExecuteMessage(context.Background(), raw))
}

func TestExecuteMessageFailsOrphanedJob(t *testing.T) {
	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 1}, 8), nil)
	ctx := context.Background()

	job := entity.NewJob(entity.ModeColor, "#0000ff", 0, fx.writeInput(t), fx.outputPath(t), "")
	require.NoError(t, job.MarkStarting())
	require.NoError(t, job.MarkProcessing(10, 24))
	require.NoError(t, fx.repo.Create(ctx, job))

	err := fx.uc.ExecuteMessage(ctx, mustJSON(t, entity.NewVideoJobMessage(job)))
	require.Error(t, err)

	stored, err := fx.repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "redelivered")
	assert.Equal(t, entity.StageFailed, fx.uc.Progress(ctx, job.ID.String()).Stage)
	assert.Empty(t, fx.muxer.muxed())
}

func TestJobLookupErrors(t *testing.T) {
	fx := newVideoFixture(t, matting.NewPipeline(modnet.Constant{Value: 1}, 8), nil)

	_, err := fx.uc.Job(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, entity.ErrJobNotFound)

	p := fx.uc.Progress(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, entity.InitializingProgress(), p)
}

func (fx videoFixture) writeInput(t *testing.T) string {
	t.Helper()
	path, err := fx.files.SaveBytes(filestore.VideoUpload, filestore.NewName(".mp4"), []byte("mp4"))
	require.NoError(t, err)
	return path
}

func (fx videoFixture) outputPath(t *testing.T) string {
	t.Helper()
	path, err := fx.files.Reserve(filestore.VideoChanged, filestore.NewName(".mp4"))
	require.NoError(t, err)
	return path
}
