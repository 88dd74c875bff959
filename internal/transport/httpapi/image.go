package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/usecase"
	"github.com/gin-gonic/gin"
)

func (h *handlers) processImage(c *gin.Context) {
	data, name, err := requiredFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	bg, _, err := formFile(c, "bg_file")
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Images.Execute(c.Request.Context(), usecase.ImageRequest{
		Data:         data,
		FileName:     name,
		Mode:         entity.ParseMode(c.PostForm("mode")),
		Color:        c.DefaultPostForm("color", h.DefaultColor),
		Background:   bg,
		BlurStrength: h.blurStrength(c.PostForm("blur_strength")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) processSimple(c *gin.Context) {
	data, _, err := requiredFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.Images.Simple(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_base64": base64.StdEncoding.EncodeToString(out)})
}

func (h *handlers) downloadImage(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.Images.DownloadPath(name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, name)
}
