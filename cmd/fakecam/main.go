// Command fakecam emulates a pan/tilt IP camera for local development.
// It speaks the same tiny HTTP protocol real devices do: a form login
// that hands out a session cookie, JPEG still capture, servo control and
// a status probe. Requests without a valid session are redirected to
// /login, which is exactly how the gateway learns a session has expired.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"camgate/internal/logging"
)

type fakeCam struct {
	log      *zap.Logger
	username string
	password string
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]time.Time
	servos   map[int]int
	frameNo  int
}

func main() {
	var (
		listen = flag.String("listen", ":8080", "listen address")
		user   = flag.String("user", "admin", "login username")
		pass   = flag.String("pass", "admin", "login password")
		ttl    = flag.Duration("session-ttl", 2*time.Minute, "session lifetime before the device forces a re-login")
	)
	flag.Parse()

	log, err := logging.New("info", "console", "fakecam")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cam := &fakeCam{
		log:      log,
		username: *user,
		password: *pass,
		ttl:      *ttl,
		sessions: make(map[string]time.Time),
		servos:   map[int]int{1: 90, 2: 90},
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/login", cam.loginPage)
	r.POST("/login", cam.login)
	r.GET("/capture", cam.requireSession, cam.capture)
	r.GET("/servo", cam.requireSession, cam.servo)
	r.GET("/status", cam.requireSession, cam.status)
	r.GET("/led", cam.requireSession, cam.led)

	log.Info("fake camera listening", zap.String("addr", *listen))
	if err := r.Run(*listen); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func (f *fakeCam) loginPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(
		`<html><body><form method="post" action="/login">`+
			`<input name="user"><input name="pass" type="password">`+
			`<button>Login</button></form></body></html>`))
}

func (f *fakeCam) login(c *gin.Context) {
	user := c.PostForm("user")
	pass := c.PostForm("pass")
	if user != f.username || pass != f.password {
		f.log.Warn("rejected login", zap.String("user", user))
		c.String(http.StatusForbidden, "bad credentials")
		return
	}

	sid := uuid.New().String()
	f.mu.Lock()
	f.sessions[sid] = time.Now().Add(f.ttl)
	f.mu.Unlock()

	c.SetCookie("SID", sid, int(f.ttl.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// requireSession redirects to /login when the SID cookie is missing or
// expired, mimicking device firmware behavior.
func (f *fakeCam) requireSession(c *gin.Context) {
	sid, err := c.Cookie("SID")
	if err == nil {
		f.mu.Lock()
		deadline, ok := f.sessions[sid]
		if ok && time.Now().After(deadline) {
			delete(f.sessions, sid)
			ok = false
		}
		f.mu.Unlock()
		if ok {
			c.Next()
			return
		}
	}
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

func (f *fakeCam) capture(c *gin.Context) {
	f.mu.Lock()
	f.frameNo++
	n := f.frameNo
	f.mu.Unlock()

	img := synthFrame(640, 480, n)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		c.String(http.StatusInternalServerError, "encode failed")
		return
	}
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

func (f *fakeCam) servo(c *gin.Context) {
	var ch, val int
	if _, err := fmt.Sscan(c.Query("ch"), &ch); err != nil {
		c.String(http.StatusBadRequest, "bad ch")
		return
	}
	if _, err := fmt.Sscan(c.Query("val"), &val); err != nil {
		c.String(http.StatusBadRequest, "bad val")
		return
	}
	if val < 0 || val > 180 {
		c.String(http.StatusBadRequest, "val out of range")
		return
	}

	f.mu.Lock()
	f.servos[ch] = val
	f.mu.Unlock()
	f.log.Info("servo moved", zap.Int("ch", ch), zap.Int("val", val))
	c.String(http.StatusOK, "OK")
}

func (f *fakeCam) led(c *gin.Context) {
	state := c.Query("on")
	f.log.Info("led toggled", zap.String("on", state))
	c.String(http.StatusOK, "OK")
}

func (f *fakeCam) status(c *gin.Context) {
	f.mu.Lock()
	servos := make(map[int]int, len(f.servos))
	for ch, val := range f.servos {
		servos[ch] = val
	}
	f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "servos": servos})
}

// synthFrame renders a gradient with a block that drifts across the
// image, so recorded clips visibly advance frame to frame.
func synthFrame(w, h, n int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 64, 255})
		}
	}

	bx := (n * 7) % (w - 40)
	by := (n * 3) % (h - 40)
	for y := by; y < by+40; y++ {
		for x := bx; x < bx+40; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	return img
}
