package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local diagnostic tool; any origin may connect.
		return true
	},
}

// streamInterval is how often workspace stats are pushed to clients.
const streamInterval = 2 * time.Second

// handleStream upgrades to a websocket and pushes workspace snapshots
// until the client disconnects.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		name, err := s.ws.Current(ctx)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		blobs, err := s.ws.Blobs(ctx)
		if err != nil {
			s.sendError(conn, err)
			return
		}

		msg := map[string]any{
			"type":      "workspace",
			"name":      name,
			"blobs":     blobs,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) sendError(conn *websocket.Conn, err error) {
	_ = conn.WriteJSON(map[string]any{"type": "error", "error": err.Error()})
}
