package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"camgate/internal/events"
	"camgate/internal/media"
)

func (s *Server) handleListEvents(c *gin.Context) {
	evs := s.events.List()
	if evs == nil {
		evs = []events.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}

// handleEventImage serves a stored detection snapshot. Only the base
// name of the requested path is used, so lookups cannot escape the
// snapshot directory.
func (s *Server) handleEventImage(c *gin.Context) {
	requested := c.Query("path")
	if requested == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "path is required"})
		return
	}

	path := filepath.Join(s.cfg.EventDir(), filepath.Base(requested))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "image not found"})
		return
	}
	c.File(path)
}

func (s *Server) handleListRecordings(c *gin.Context) {
	recs, err := media.ListRecordings(s.cfg.RecordingDir())
	if err != nil {
		s.fail(c, err)
		return
	}
	if recs == nil {
		recs = []media.Recording{}
	}
	c.JSON(http.StatusOK, gin.H{"recordings": recs})
}

// recordingPath resolves a client-supplied file reference to a path in
// the recording directory, accepting either a bare filename or a full
// stored path.
func (s *Server) recordingPath(file string) (string, bool) {
	if file == "" {
		return "", false
	}
	path := filepath.Join(s.cfg.RecordingDir(), filepath.Base(file))
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (s *Server) handleDownloadVideo(c *gin.Context) {
	path, ok := s.recordingPath(c.Query("file"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "recording not found"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// handlePreviewVideo streams a recording for the in-browser player,
// honoring Range requests so the player can seek.
func (s *Server) handlePreviewVideo(c *gin.Context) {
	path, ok := s.recordingPath(c.Query("file"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "recording not found"})
		return
	}
	if err := media.ServeFile(c.Writer, path, c.GetHeader("Range")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
