package ffmpeg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [{"width": 640, "height": 360, "r_frame_rate": "30000/1001",
			"avg_frame_rate": "30000/1001", "nb_frames": "120", "nb_read_packets": "121"}],
		"format": {"duration": "4.004000"}
	}`)

	info, err := parseProbe(out, 25)

	require.NoError(t, err)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 360, info.Height)
	assert.InDelta(t, 29.97, info.FPS, 0.01)
	assert.Equal(t, 121, info.FrameCount)
	assert.InDelta(t, 4.004, info.Duration, 1e-9)
}

func TestParseProbeFallbacks(t *testing.T) {
	out := []byte(`{"streams": [{"width": 2, "height": 2, "r_frame_rate": "0/0", "avg_frame_rate": "0/0"}],
		"format": {"duration": "2.0"}}`)

	info, err := parseProbe(out, 25)

	require.NoError(t, err)
	assert.Equal(t, 25.0, info.FPS)
	assert.Equal(t, 50, info.FrameCount)

	_, err = parseProbe([]byte(`{"streams": []}`), 25)
	assert.ErrorIs(t, err, ErrNoVideoStream)

	_, err = parseProbe([]byte(`not json`), 25)
	assert.Error(t, err)
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 30.0, parseRate("30/1"))
	assert.Equal(t, 12.5, parseRate("12.5"))
	assert.Equal(t, 0.0, parseRate("1/0"))
	assert.Equal(t, 0.0, parseRate("abc"))
}

func TestWriteFrameHandlesSubImages(t *testing.T) {
	full := imageio.Solid(4, 4, color.NRGBA{R: 7, A: 255})
	sub := full.SubImage(image.Rect(1, 1, 3, 3)).(*image.NRGBA)

	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, sub))
	assert.Equal(t, 2*2*4, buf.Len())
}

func TestMuxRejectsBadInput(t *testing.T) {
	m := NewMuxer(Binaries{}, zap.NewNop())
	assert.ErrorIs(t, m.Mux(context.Background(), nil, 25, "out.mp4"), ErrNoFrames)

	frames := []*image.NRGBA{imageio.Solid(2, 2, color.NRGBA{}), imageio.Solid(4, 2, color.NRGBA{})}
	assert.Error(t, m.Mux(context.Background(), frames, 25, "out.mp4"))
}

func TestMuxDecodeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ffmpeg round trip in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "out.mp4")
	frames := make([]*image.NRGBA, 10)
	for i := range frames {
		frames[i] = imageio.Solid(32, 24, color.NRGBA{R: 200, G: uint8(i * 20), B: 40, A: 255})
	}

	require.NoError(t, NewMuxer(Binaries{}, zap.NewNop()).Mux(ctx, frames, 10, out))

	r, err := NewDecoder(Binaries{}, 25, zap.NewNop()).Open(ctx, out)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 32, r.Info().Width)
	assert.Equal(t, 24, r.Info().Height)
	assert.InDelta(t, 10, r.Info().FPS, 0.01)

	n := 0
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.InDelta(t, 200, f.NRGBAAt(16, 12).R, 12)
		n++
	}
	assert.Equal(t, 10, n)

	thumb := filepath.Join(t.TempDir(), "thumb.jpg")
	require.NoError(t, NewThumbnailer(Binaries{}).Thumbnail(ctx, out, thumb))
	_, err = imageio.DecodeFile(thumb)
	assert.NoError(t, err)
}
