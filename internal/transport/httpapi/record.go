package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *handlers) uploadRecording(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, uploadError(err, errBadUpload))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	item, err := h.Recordings.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handlers) listRecordings(c *gin.Context) {
	items, err := h.Recordings.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": items})
}

func (h *handlers) downloadRecording(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.Recordings.Path(name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, name)
}

func (h *handlers) deleteRecording(c *gin.Context) {
	if err := h.Recordings.Delete(c.Param("filename")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("filename")})
}

func (h *handlers) snapshot(c *gin.Context) {
	data, _, err := requiredFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	item, err := h.Recordings.Snapshot(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handlers) gallery(c *gin.Context) {
	items, err := h.Recordings.Gallery()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handlers) deleteGalleryItem(c *gin.Context) {
	if err := h.Recordings.DeleteGalleryItem(c.Param("filename")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("filename")})
}

func (h *handlers) archiveGallery(c *gin.Context) {
	path, err := h.Recordings.Archive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	defer os.Remove(path)
	c.FileAttachment(path, "gallery_"+time.Now().UTC().Format("20060102_150405")+".zip")
}
