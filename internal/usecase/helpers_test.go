package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
)

func newFiles(t *testing.T) *filestore.Store {
	t.Helper()
	limits := filestore.Limits{
		filestore.ImageUpload:     0,
		filestore.ImageChanged:    0,
		filestore.ImageBackground: 0,
		filestore.VideoUpload:     0,
		filestore.VideoFrames:     0,
		filestore.VideoChanged:    0,
		filestore.VideoBackground: 0,
		filestore.VideoRecorded:   0,
		filestore.VideoSnapshots:  0,
		filestore.VideoThumbnails: 0,
		filestore.ProgressRecords: 0,
	}
	files, err := filestore.New(t.TempDir(), limits, zap.NewNop())
	require.NoError(t, err)
	return files
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// inlineRunner runs work on the calling goroutine.
type inlineRunner struct{}

func (inlineRunner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeDecoder serves n solid frames of the given colour; frame i of a
// background video has red channel i when colour is nil.
type fakeDecoder struct {
	frames int
	width  int
	height int
	colour *color.NRGBA
	fps    float64
}

func (d *fakeDecoder) Open(_ context.Context, path string) (port.VideoReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &fakeReader{d: d}, nil
}

type fakeReader struct {
	d   *fakeDecoder
	pos int
}

func (r *fakeReader) Info() port.VideoInfo {
	return port.VideoInfo{Width: r.d.width, Height: r.d.height, FPS: r.d.fps, FrameCount: r.d.frames}
}

func (r *fakeReader) Next() (*image.NRGBA, error) {
	if r.pos >= r.d.frames {
		return nil, io.EOF
	}
	c := color.NRGBA{R: uint8(r.pos), A: 255}
	if r.d.colour != nil {
		c = *r.d.colour
	}
	r.pos++
	return imageio.Solid(r.d.width, r.d.height, c), nil
}

func (r *fakeReader) Close() error { return nil }

type fakeMuxer struct {
	mu     sync.Mutex
	frames []*image.NRGBA
	fps    float64
	err    error
}

func (m *fakeMuxer) Mux(_ context.Context, frames []*image.NRGBA, fps float64, outputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.frames = frames
	m.fps = fps
	return os.WriteFile(outputPath, []byte("mp4"), 0o644)
}

func (m *fakeMuxer) muxed() []*image.NRGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// flakyRenderer fails or panics on selected 1-based frame numbers and otherwise
// returns the frame unchanged.
type flakyRenderer struct {
	mu      sync.Mutex
	calls   int
	failOn  map[int]bool
	panicOn map[int]bool
}

func (r *flakyRenderer) Matte(_ context.Context, frame *image.NRGBA) (*entity.Matte, error) {
	b := frame.Bounds()
	return entity.NewFilledMatte(b.Dx(), b.Dy(), 1), nil
}

func (r *flakyRenderer) Render(_ context.Context, frame, _ *image.NRGBA, _ entity.Mode, _ int) (*image.NRGBA, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()
	if r.panicOn[n] {
		panic("bad frame")
	}
	if r.failOn[n] {
		return nil, errors.New("inference failed")
	}
	return frame, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyFailure(ctx context.Context, userEmail, jobID, inputName, errorMsg string) error {
	args := m.Called(ctx, userEmail, jobID, inputName, errorMsg)
	return args.Error(0)
}

type fakeThumbnailer struct {
	err error
}

func (f fakeThumbnailer) Thumbnail(_ context.Context, _ string, outputPath string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("jpg"), 0o644)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
