package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camgate/internal/registry"
)

type addCameraRequest struct {
	CamID    string `json:"cam_id"`
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type removeCameraRequest struct {
	CamID string `json:"cam_id"`
}

type servoRequest struct {
	Pan  *int `json:"pan"`
	Tilt *int `json:"tilt"`
}

type toggleAlarmRequest struct {
	Enabled bool `json:"enabled"`
}

// handleListCameras returns the dashboard view of the registry. Each
// camera gets a live reachability probe; the probes run in parallel so a
// single dead device does not stall the whole listing.
func (s *Server) handleListCameras(c *gin.Context) {
	cams := s.registry.List()
	views := make([]gin.H, len(cams))

	var wg sync.WaitGroup
	for i, cam := range cams {
		wg.Add(1)
		go func(i int, cam registry.Camera) {
			defer wg.Done()
			views[i] = gin.H{
				"cam_id": cam.ID,
				"host":   cam.Host,
				"online": s.devices.Online(cam.ID),
				"pan":    cam.Pan,
				"tilt":   cam.Tilt,
			}
		}(i, cam)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{"cameras": views})
}

// handleListCamerasFull includes credentials and servo channel mapping.
func (s *Server) handleListCamerasFull(c *gin.Context) {
	cams := s.registry.List()
	views := make([]gin.H, 0, len(cams))
	for _, cam := range cams {
		views = append(views, gin.H{
			"cam_id":   cam.ID,
			"host":     cam.Host,
			"username": cam.Username,
			"password": cam.Password,
			"pan_ch":   cam.PanCh,
			"tilt_ch":  cam.TiltCh,
			"pan":      cam.Pan,
			"tilt":     cam.Tilt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"cameras": views})
}

func (s *Server) handleAddCamera(c *gin.Context) {
	var req addCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if req.CamID == "" || req.Host == "" || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "cam_id, host, username and password are required"})
		return
	}

	cam, err := s.registry.Add(req.CamID, req.Host, req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("camera added", zap.String("camera", cam.ID), zap.String("host", cam.Host))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cam_id": cam.ID})
}

// handleRemoveCamera tears the camera down in order: recording stops
// before the registry entry goes away, and the cached device session is
// dropped last.
func (s *Server) handleRemoveCamera(c *gin.Context) {
	var req removeCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CamID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "cam_id is required"})
		return
	}

	if s.recorder.IsRecording(req.CamID) {
		if _, err := s.recorder.Stop(req.CamID); err != nil {
			s.log.Warn("failed to stop recording during removal",
				zap.String("camera", req.CamID), zap.Error(err))
		}
	}

	if err := s.registry.Remove(req.CamID); err != nil {
		s.fail(c, err)
		return
	}
	s.devices.Forget(req.CamID)

	s.log.Info("camera removed", zap.String("camera", req.CamID))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleServo moves both axes. Omitted angles keep their current value.
// The device is commanded first; the registry only persists angles the
// device accepted.
func (s *Server) handleServo(c *gin.Context) {
	camID := c.Param("cam_id")

	cam, err := s.registry.Get(camID)
	if err != nil {
		s.fail(c, err)
		return
	}

	var req servoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	pan, tilt := cam.Pan, cam.Tilt
	if req.Pan != nil {
		pan = clampAngle(*req.Pan)
	}
	if req.Tilt != nil {
		tilt = clampAngle(*req.Tilt)
	}

	if err := s.devices.Servo(camID, cam.PanCh, pan); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.devices.Servo(camID, cam.TiltCh, tilt); err != nil {
		s.fail(c, err)
		return
	}

	updated, err := s.registry.SetAngles(camID, pan, tilt)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"cam_id": camID,
		"pan":    updated.Pan,
		"tilt":   updated.Tilt,
	})
}

func (s *Server) handleToggleAlarm(c *gin.Context) {
	var req toggleAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	s.alarm.SetEnabled(req.Enabled)
	s.log.Info("alarm toggled", zap.Bool("enabled", req.Enabled))
	c.JSON(http.StatusOK, gin.H{"alarm_enabled": s.alarm.Enabled()})
}

// clampAngle bounds a requested servo angle to the device's travel before
// it is sent on the wire.
func clampAngle(v int) int {
	if v < registry.MinAngle {
		return registry.MinAngle
	}
	if v > registry.MaxAngle {
		return registry.MaxAngle
	}
	return v
}
