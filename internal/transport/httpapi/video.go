package httpapi

import (
	"net/http"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/usecase"
	"github.com/gin-gonic/gin"
)

func (h *handlers) processFrame(c *gin.Context) {
	data, _, err := requiredFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	bg, _, err := formFile(c, "bg_file")
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Frames.Execute(c.Request.Context(), usecase.FrameRequest{
		Data:         data,
		Mode:         entity.ParseMode(c.PostForm("mode")),
		Color:        c.DefaultPostForm("color", h.DefaultColor),
		Background:   bg,
		BackgroundID: c.PostForm("bg_video"),
		SessionID:    c.PostForm("session_id"),
		BlurStrength: h.blurStrength(c.PostForm("blur_strength")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// processVideo accepts the upload and returns 202 with the job id; the job
// runs in the background.
func (h *handlers) processVideo(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, uploadError(err, usecase.ErrInvalidVideo))
		return
	}
	video, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer video.Close()

	bg, bgName, err := formFile(c, "bg_file")
	if err != nil {
		respondError(c, err)
		return
	}

	sub, err := h.Videos.Submit(c.Request.Context(), usecase.VideoRequest{
		FileName:       fh.Filename,
		Video:          video,
		Mode:           entity.ParseMode(c.PostForm("mode")),
		Color:          c.DefaultPostForm("color", h.DefaultColor),
		BlurStrength:   h.blurStrength(c.PostForm("blur_strength")),
		Background:     bg,
		BackgroundName: bgName,
		BackgroundID:   c.PostForm("bg_id"),
		NotifyEmail:    c.PostForm("email"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sub)
}

func (h *handlers) videoProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.Videos.Progress(c.Request.Context(), c.Param("job_id")))
}

const timeLayout = time.RFC3339

type jobResponse struct {
	JobID           string           `json:"job_id"`
	Status          entity.JobStatus `json:"status"`
	Mode            entity.Mode      `json:"mode"`
	TotalFrames     int              `json:"total_frames"`
	ProcessedFrames int              `json:"processed_frames"`
	SkippedFrames   int              `json:"skipped_frames"`
	Error           string           `json:"error,omitempty"`
	CreatedAt       string           `json:"created_at"`
	CompletedAt     string           `json:"completed_at,omitempty"`
}

func (h *handlers) videoJob(c *gin.Context) {
	job, err := h.Videos.Job(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := jobResponse{
		JobID:           job.ID.String(),
		Status:          job.Status,
		Mode:            job.Mode,
		TotalFrames:     job.TotalFrames,
		ProcessedFrames: job.ProcessedFrames,
		SkippedFrames:   job.SkippedFrames,
		Error:           job.ErrorMessage,
		CreatedAt:       job.CreatedAt.Format(timeLayout),
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(timeLayout)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) downloadVideo(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.Videos.DownloadPath(name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, name)
}
