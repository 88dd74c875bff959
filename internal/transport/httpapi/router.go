// Package httpapi exposes the matting use cases over HTTP and WebSocket with gin.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"path/filepath"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"github.com/SatNaingTun/SntImageBGChanger/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ImageService interface {
	Execute(ctx context.Context, req usecase.ImageRequest) (*usecase.ImageResult, error)
	Simple(ctx context.Context, data []byte) ([]byte, error)
	DownloadPath(name string) (string, error)
}

type FrameService interface {
	Execute(ctx context.Context, req usecase.FrameRequest) (*usecase.FrameResult, error)
	Stream(ctx context.Context, req usecase.FrameRequest) ([]byte, error)
	EndSession(session string)
}

type VideoService interface {
	Submit(ctx context.Context, req usecase.VideoRequest) (*usecase.VideoSubmission, error)
	Job(ctx context.Context, id string) (*entity.Job, error)
	Progress(ctx context.Context, id string) entity.Progress
	DownloadPath(name string) (string, error)
}

type BackgroundService interface {
	Upload(ctx context.Context, fileName string, r io.Reader) (usecase.StoredBackground, error)
	Solid(ctx context.Context, hex string) (usecase.StoredBackground, error)
}

type RecordingService interface {
	Upload(ctx context.Context, fileName string, r io.Reader) (usecase.MediaItem, error)
	List() ([]usecase.MediaItem, error)
	Path(name string) (string, error)
	Delete(name string) error
	Snapshot(ctx context.Context, data []byte) (usecase.MediaItem, error)
	Gallery() ([]usecase.MediaItem, error)
	DeleteGalleryItem(name string) error
	Archive(ctx context.Context) (string, error)
}

type Deps struct {
	Images      ImageService
	Frames      FrameService
	Videos      VideoService
	Backgrounds BackgroundService
	Recordings  RecordingService
	Logger      *zap.Logger

	// StaticRoot holds the images/ and video/ trees served read-only.
	StaticRoot     string
	DefaultColor   string
	DefaultBlur    int
	// MaxUploadBytes caps /api request bodies; 0 leaves them unbounded.
	MaxUploadBytes int64
	Health         []metrics.HealthFunc
}

type handlers struct {
	Deps
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(deps.Logger), Recovery(deps.Logger))
	h := &handlers{Deps: deps}

	observability := gin.WrapH(metrics.NewHandler(deps.Health...))
	r.GET("/metrics", observability)
	r.GET("/healthz", observability)

	static := r.Group("/", NoCache())
	if deps.StaticRoot != "" {
		static.Static("/images", filepath.Join(deps.StaticRoot, "images"))
		static.Static("/video", filepath.Join(deps.StaticRoot, "video"))
	}

	r.GET("/image/download/:filename", h.downloadImage)

	api := r.Group("/api", LimitBody(deps.MaxUploadBytes))
	{
		api.POST("/image/process", h.processImage)
		api.POST("/modnet/process", h.processSimple)

		api.POST("/video/process_frame", h.processFrame)
		api.POST("/video/process_video", h.processVideo)
		api.GET("/video/progress/:job_id", h.videoProgress)
		api.GET("/video/jobs/:job_id", h.videoJob)
		api.GET("/video/download/:filename", h.downloadVideo)

		api.POST("/background/upload", h.uploadBackground)
		api.POST("/background/solid", h.solidBackground)

		api.POST("/record/upload", h.uploadRecording)
		api.GET("/record/list", h.listRecordings)
		api.GET("/record/download/:filename", h.downloadRecording)
		api.DELETE("/record/delete/:filename", h.deleteRecording)
		api.POST("/record/snapshot", h.snapshot)

		api.GET("/gallery/list", h.gallery)
		api.DELETE("/gallery/delete/:filename", h.deleteGalleryItem)
		api.GET("/gallery/archive", h.archiveGallery)
	}

	r.GET("/ws/modnet", h.streamModnet)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}
