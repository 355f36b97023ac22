package devclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"camgate/internal/registry"
)

// FreshnessWindow is how long a successful login is trusted without
// re-authenticating before the next request.
const FreshnessWindow = 60 * time.Second

// DefaultTimeout bounds a single device request.
const DefaultTimeout = 2 * time.Second

// Directory resolves camera ids to their descriptors. Satisfied by
// *registry.Registry.
type Directory interface {
	Get(id string) (registry.Camera, error)
}

// Response is the outcome of one device request.
type Response struct {
	StatusCode int
	Body       []byte
}

// session is the authenticated channel to one device. The device hands out
// a SID cookie on login; the jar carries it on subsequent requests.
type session struct {
	mu        sync.Mutex
	http      *http.Client
	lastLogin time.Time
}

func newSession() *session {
	jar, _ := cookiejar.New(nil)
	return &session{
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// The device signals session expiry with a redirect to
				// /login; it must surface as a response, not be followed.
				return http.ErrUseLastResponse
			},
		},
	}
}

// Client talks to camera devices, maintaining one session per camera id.
type Client struct {
	dir Directory
	log *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a device client over the given camera directory.
func New(dir Directory, log *zap.Logger) *Client {
	return &Client{
		dir:      dir,
		log:      log,
		sessions: make(map[string]*session),
	}
}

func (c *Client) session(camID string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[camID]
	if !ok {
		s = newSession()
		c.sessions[camID] = s
	}
	return s
}

// Forget drops the session for a camera, e.g. on deregistration.
func (c *Client) Forget(camID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, camID)
}

// Login ensures the session for camID is authenticated. With force=false a
// login under FreshnessWindow old is trusted and skipped.
func (c *Client) Login(camID string, force bool) error {
	cam, err := c.dir.Get(camID)
	if err != nil {
		return err
	}
	s := c.session(camID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && time.Since(s.lastLogin) < FreshnessWindow {
		return nil
	}

	form := url.Values{
		"user": {cam.Username},
		"pass": {cam.Password},
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cam.Host+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Firmware answers 200 or redirects to the UI on success.
	if resp.StatusCode == http.StatusOK || isRedirect(resp.StatusCode) {
		s.lastLogin = time.Now()
		return nil
	}
	return fmt.Errorf("%w: login status=%d", ErrAuthFailed, resp.StatusCode)
}

// Get issues an authenticated GET against the device. A redirect response
// means the device-side session expired: exactly one fresh login and one
// retry are performed before the call fails.
func (c *Client) Get(camID, path string, params url.Values, timeout time.Duration) (*Response, error) {
	if err := c.Login(camID, false); err != nil {
		return nil, err
	}

	resp, err := c.do(camID, path, params, timeout)
	if err != nil {
		return nil, err
	}

	if isRedirect(resp.StatusCode) {
		c.log.Debug("device session expired, re-authenticating",
			zap.String("camera", camID), zap.String("path", path))
		if err := c.Login(camID, true); err != nil {
			return nil, err
		}
		resp, err = c.do(camID, path, params, timeout)
		if err != nil {
			return nil, err
		}
		if isRedirect(resp.StatusCode) {
			return nil, fmt.Errorf("%w: still redirected after re-login", ErrAuthFailed)
		}
	}
	return resp, nil
}

func (c *Client) do(camID, path string, params url.Values, timeout time.Duration) (*Response, error) {
	cam, err := c.dir.Get(camID)
	if err != nil {
		return nil, err
	}
	s := c.session(camID)

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	target := cam.Host + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Servo sets one servo channel on the device.
func (c *Client) Servo(camID string, channel, angle int) error {
	params := url.Values{
		"ch":  {fmt.Sprintf("%d", channel)},
		"val": {fmt.Sprintf("%d", angle)},
	}
	resp, err := c.Get(camID, "/servo", params, 1*time.Second)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: servo status=%d", ErrTransport, resp.StatusCode)
	}
	return nil
}

// Online probes the device's /status endpoint.
func (c *Client) Online(camID string) bool {
	resp, err := c.Get(camID, "/status", nil, 1500*time.Millisecond)
	return err == nil && resp.StatusCode == http.StatusOK
}

func isRedirect(code int) bool {
	return code >= 300 && code < 400
}
