// Package ffmpeg decodes and encodes video by piping raw RGBA frames through the
// ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
)

var ErrNoVideoStream = errors.New("no video stream")

type Binaries struct {
	FFmpeg  string
	FFprobe string
}

func (b Binaries) ffmpeg() string {
	if b.FFmpeg == "" {
		return "ffmpeg"
	}
	return b.FFmpeg
}

func (b Binaries) ffprobe() string {
	if b.FFprobe == "" {
		return "ffprobe"
	}
	return b.FFprobe
}

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		RFrameRate    string `json:"r_frame_rate"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads stream geometry, frame rate and frame count. defaultFPS is used when
// the container reports no usable rate.
func Probe(ctx context.Context, bin Binaries, path string, defaultFPS float64) (port.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, bin.ffprobe(),
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames,nb_read_packets:format=duration",
		"-of", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return port.VideoInfo{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return port.VideoInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(output, defaultFPS)
}

func parseProbe(data []byte, defaultFPS float64) (port.VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return port.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 || out.Streams[0].Width <= 0 || out.Streams[0].Height <= 0 {
		return port.VideoInfo{}, ErrNoVideoStream
	}
	s := out.Streams[0]

	fps := parseRate(s.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(s.RFrameRate)
	}
	if fps <= 0 {
		fps = defaultFPS
	}

	count, _ := strconv.Atoi(s.NbReadPackets)
	if count <= 0 {
		count, _ = strconv.Atoi(s.NbFrames)
	}
	duration, _ := strconv.ParseFloat(out.Format.Duration, 64)
	if count <= 0 && duration > 0 && fps > 0 {
		count = int(duration*fps + 0.5)
	}

	return port.VideoInfo{
		Width:      s.Width,
		Height:     s.Height,
		FPS:        fps,
		FrameCount: count,
		Duration:   duration,
	}, nil
}

// parseRate accepts "num/den" or a plain number; anything unusable is 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
