// Package modnet adapts the portrait-matting model server to port.MatteSource.
package modnet

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/httpclient"
)

// Client posts a PNG frame to the model server and reads back a single-channel
// PNG mask (0 = background, 255 = foreground).
type Client struct {
	http     httpclient.IClient
	endpoint string
	timeout  time.Duration
}

func NewClient(client httpclient.IClient, endpoint string, timeout time.Duration) *Client {
	return &Client{http: client, endpoint: endpoint, timeout: timeout}
}

func (c *Client) Infer(ctx context.Context, frame image.Image) (*entity.Matte, error) {
	body, err := imageio.EncodePNG(frame)
	if err != nil {
		return nil, fmt.Errorf("encode model input: %w", err)
	}

	var out []byte
	err = c.http.DoHTTPRequest(ctx, &httpclient.RequestParam{
		RequestURI: c.endpoint,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": "image/png", "Accept": "image/png"},
		Body:       body,
		Response:   &out,
		Timeout:    c.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}

	mask, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode model mask: %w", err)
	}
	return MatteFromImage(mask), nil
}

// MatteFromImage reads the luminance of mask as opacity.
func MatteFromImage(mask image.Image) *entity.Matte {
	b := mask.Bounds()
	m := entity.NewMatte(b.Dx(), b.Dy())
	if g, ok := mask.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < b.Dx(); x++ {
				m.Pix[y*m.Width+x] = float32(row[x]) / 255
			}
		}
		return m
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray := color.GrayModel.Convert(mask.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Pix[y*m.Width+x] = float32(gray.Y) / 255
		}
	}
	return m
}

// Constant returns the same opacity for every pixel. Used when no model server
// is configured and in tests.
type Constant struct {
	Value float32
}

func (c Constant) Infer(_ context.Context, frame image.Image) (*entity.Matte, error) {
	b := frame.Bounds()
	return entity.NewFilledMatte(b.Dx(), b.Dy(), c.Value), nil
}
