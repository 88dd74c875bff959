package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamReadLimit = 8 << 20
	streamWriteWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 64 << 10,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamModnet upgrades to a websocket that takes encoded frames as binary
// messages and answers each with the composited JPEG. Every connection owns its
// own background session.
func (h *handlers) streamModnet(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)

	session := uuid.NewString()
	defer h.Frames.EndSession(session)

	base := usecase.FrameRequest{
		Mode:         entity.ParseMode(c.DefaultQuery("mode", "color")),
		Color:        c.DefaultQuery("color", "#ffffff"),
		BackgroundID: c.Query("bg"),
		SessionID:    session,
		BlurStrength: h.blurStrength(c.Query("blur")),
	}
	log := h.Logger.With(zap.String("session", session))
	log.Info("stream connected", zap.String("mode", string(base.Mode)))

	ctx := c.Request.Context()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("stream read failed", zap.Error(err))
			}
			break
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		req := base
		req.Data = data
		out, err := h.Frames.Stream(ctx, req)
		if err != nil {
			if errors.Is(err, usecase.ErrInvalidImage) {
				log.Debug("dropping undecodable frame", zap.Error(err))
				continue
			}
			log.Warn("stream frame failed", zap.Error(err))
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(gin.H{"error": "frame failed"}); err != nil {
				break
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			log.Warn("stream write failed", zap.Error(err))
			break
		}
	}
	log.Info("stream disconnected")
}
