package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camgate/internal/alarm"
	"camgate/internal/auth"
	"camgate/internal/config"
	"camgate/internal/detect"
	"camgate/internal/devclient"
	"camgate/internal/events"
	"camgate/internal/recorder"
	"camgate/internal/registry"
	"camgate/internal/ws"
)

// Server wires the gateway components behind the HTTP API.
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	log    *zap.Logger

	registry  *registry.Registry
	devices   *devclient.Client
	recorder  *recorder.Supervisor
	pipeline  *detect.Pipeline
	events    *events.Store
	alarm     *alarm.Alarm
	auth      *auth.Authenticator
	wsHub     *ws.EventHub
	wsHandler *ws.Handler
}

// New creates a server over the given components.
func New(cfg *config.Config, log *zap.Logger, reg *registry.Registry,
	devices *devclient.Client, rec *recorder.Supervisor, pipe *detect.Pipeline,
	store *events.Store, a *alarm.Alarm, authn *auth.Authenticator) *Server {

	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: reg,
		devices:  devices,
		recorder: rec,
		pipeline: pipe,
		events:   store,
		alarm:    a,
		auth:     authn,
	}
	s.wsHub = ws.NewEventHub(log)
	s.wsHandler = ws.NewHandler(s.wsHub, log)

	// Persisted events get pushed to connected dashboards.
	pipe.OnEvent = s.wsHub.BroadcastEvent

	s.setup()
	return s
}

func (s *Server) setup() {
	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.corsMiddleware())

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/ws/events", gin.WrapH(s.wsHandler))

	api := s.router.Group("/api")
	api.POST("/login", s.handleLogin)
	api.POST("/logout", s.handleLogout)

	protected := api.Group("")
	protected.Use(s.authMiddleware())

	protected.GET("/cameras", s.handleListCameras)
	protected.GET("/cameras_full", s.handleListCamerasFull)
	protected.POST("/add_camera", s.handleAddCamera)
	protected.POST("/remove_camera", s.handleRemoveCamera)
	protected.POST("/servo/:cam_id", s.handleServo)
	protected.POST("/toggle_alarm", s.handleToggleAlarm)

	protected.GET("/events", s.handleListEvents)
	protected.GET("/event_image", s.handleEventImage)

	protected.GET("/recordings", s.handleListRecordings)
	protected.GET("/download_video", s.handleDownloadVideo)
	protected.GET("/preview_video", s.handlePreviewVideo)

	protected.POST("/record/start/:cam_id", s.handleRecordStart)
	protected.POST("/record/stop/:cam_id", s.handleRecordStop)
	protected.GET("/record/status", s.handleRecordStatus)

	protected.GET("/detect_frame/:cam_id", s.handleDetectFrame)
	protected.GET("/detect_only_frame/:cam_id", s.handleDetectOnlyFrame)
	protected.GET("/stream_frame/:cam_id", s.handleStreamFrame)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the API until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, Range")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.auth.IsEnabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("username", claims.Username)
		c.Next()
	}
}

// fail maps the error taxonomy onto HTTP status codes.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrCameraNotFound),
		errors.Is(err, recorder.ErrNotRecording):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.Is(err, registry.ErrCameraExists):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, devclient.ErrAuthFailed),
		errors.Is(err, devclient.ErrTransport),
		errors.Is(err, devclient.ErrCapture):
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
