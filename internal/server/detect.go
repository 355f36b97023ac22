package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Detection endpoints always answer 200; capture and detector failures
// come back as a no-detection result with a note, so a flaky camera does
// not break dashboard polling.

func (s *Server) handleDetectFrame(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.DetectAndPersist(c.Param("cam_id")))
}

func (s *Server) handleDetectOnlyFrame(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.DetectOnly(c.Param("cam_id")))
}

// handleStreamFrame returns a single raw JPEG, used by the dashboard's
// live view poller.
func (s *Server) handleStreamFrame(c *gin.Context) {
	frame, err := s.devices.CaptureFrame(c.Param("cam_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", frame.JPEG)
}
