package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradientworks/tensorbridge/internal/engine"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleWorkspace reports the active workspace name, root folder, and
// blob count.
func (s *Server) handleWorkspace(c *gin.Context) {
	ctx := c.Request.Context()

	name, err := s.ws.Current(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	root, err := s.ws.RootFolder(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	blobs, err := s.ws.Blobs(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":       name,
		"root":       root,
		"blob_count": len(blobs),
	})
}

func (s *Server) handleBlobs(c *gin.Context) {
	blobs, err := s.ws.Blobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blobs": blobs})
}

func (s *Server) handleBlob(c *gin.Context) {
	name := c.Param("name")
	t, err := s.ws.Fetch(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "blob not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "tensor": t})
}
