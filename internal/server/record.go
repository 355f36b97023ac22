package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camgate/internal/recorder"
)

type recordStartRequest struct {
	FPS int `json:"fps"`
}

func (s *Server) handleRecordStart(c *gin.Context) {
	camID := c.Param("cam_id")

	// The body is optional; an empty or absent body means default fps.
	req := recordStartRequest{FPS: recorder.DefaultFPS}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
			return
		}
		if req.FPS == 0 {
			req.FPS = recorder.DefaultFPS
		}
	}

	job, started, err := s.recorder.Start(camID, req.FPS)
	if err != nil {
		s.fail(c, err)
		return
	}

	status := "recording_started"
	if !started {
		status = "already_recording"
	} else {
		s.log.Info("recording started",
			zap.String("camera", camID), zap.Int("fps", job.FPS))
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"cam_id":   job.CameraID,
		"file":     job.File,
		"fps":      job.FPS,
		"start_ts": job.StartTS,
	})
}

func (s *Server) handleRecordStop(c *gin.Context) {
	camID := c.Param("cam_id")

	file, err := s.recorder.Stop(camID)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("recording stopped", zap.String("camera", camID), zap.String("file", file))
	c.JSON(http.StatusOK, gin.H{
		"status": "recording_stopped",
		"cam_id": camID,
		"file":   file,
	})
}

func (s *Server) handleRecordStatus(c *gin.Context) {
	jobs := s.recorder.Status()
	if jobs == nil {
		jobs = []recorder.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"active_recordings": jobs})
}
