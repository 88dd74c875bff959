package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) uploadBackground(c *gin.Context) {
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

	bg, err := h.Backgrounds.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bg)
}

func (h *handlers) solidBackground(c *gin.Context) {
	bg, err := h.Backgrounds.Solid(c.Request.Context(), c.DefaultPostForm("color", "#ffffff"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bg)
}
