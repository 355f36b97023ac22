package devclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"camgate/internal/registry"
)

// mockDevice emulates camera firmware: form login handing out a SID
// cookie, cookie-gated endpoints, redirect to /login when the session is
// missing or revoked.
type mockDevice struct {
	mu             sync.Mutex
	logins         int
	validSID       string
	alwaysRedirect bool
	rejectLogin    bool
}

func (d *mockDevice) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.rejectLogin || r.FormValue("user") != "admin" || r.FormValue("pass") != "secret" {
			http.Error(w, "bad credentials", http.StatusForbidden)
			return
		}
		d.logins++
		d.validSID = fmt.Sprintf("sid-%d", d.logins)
		http.SetCookie(w, &http.Cookie{Name: "SID", Value: d.validSID, Path: "/"})
		w.Header().Set("Location", "/")
		w.WriteHeader(http.StatusFound)
	})

	gated := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			d.mu.Lock()
			ok := !d.alwaysRedirect
			if ok {
				cookie, err := r.Cookie("SID")
				ok = err == nil && cookie.Value == d.validSID
			}
			d.mu.Unlock()
			if !ok {
				w.Header().Set("Location", "/login")
				w.WriteHeader(http.StatusFound)
				return
			}
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/status", gated("ok"))
	mux.HandleFunc("/servo", gated("OK"))
	mux.HandleFunc("/data", gated("payload"))
	return mux
}

func (d *mockDevice) loginCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logins
}

// revoke invalidates the device-side session so the next gated request
// redirects to /login.
func (d *mockDevice) revoke() {
	d.mu.Lock()
	d.validSID = ""
	d.mu.Unlock()
}

type staticDirectory map[string]registry.Camera

func (d staticDirectory) Get(id string) (registry.Camera, error) {
	cam, ok := d[id]
	if !ok {
		return registry.Camera{}, registry.ErrCameraNotFound
	}
	return cam, nil
}

func newTestClient(t *testing.T) (*Client, *mockDevice) {
	t.Helper()
	device := &mockDevice{}
	srv := httptest.NewServer(device.handler())
	t.Cleanup(srv.Close)

	dir := staticDirectory{
		"cam1": {ID: "cam1", Host: srv.URL, Username: "admin", Password: "secret"},
	}
	return New(dir, zap.NewNop()), device
}

func TestGetLogsInOnce(t *testing.T) {
	client, device := newTestClient(t)

	resp, err := client.Get("cam1", "/data", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payload", string(resp.Body))
	assert.Equal(t, 1, device.loginCount())
}

func TestFreshLoginSkipped(t *testing.T) {
	client, device := newTestClient(t)

	for i := 0; i < 5; i++ {
		_, err := client.Get("cam1", "/data", nil, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, device.loginCount(), "fresh session must be reused")
}

func TestRedirectTriggersForcedRelogin(t *testing.T) {
	client, device := newTestClient(t)

	_, err := client.Get("cam1", "/data", nil, 0)
	require.NoError(t, err)
	require.Equal(t, 1, device.loginCount())

	// Device drops the session server-side. The session is still inside
	// the freshness window, so only a forced login can recover.
	device.revoke()

	resp, err := client.Get("cam1", "/data", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, device.loginCount(), "redirect must force exactly one re-login")
}

func TestPersistentRedirectFails(t *testing.T) {
	client, device := newTestClient(t)
	device.mu.Lock()
	device.alwaysRedirect = true
	device.mu.Unlock()

	_, err := client.Get("cam1", "/data", nil, 0)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 2, device.loginCount(), "exactly one retry after the first redirect")
}

func TestLoginBadCredentials(t *testing.T) {
	device := &mockDevice{}
	srv := httptest.NewServer(device.handler())
	defer srv.Close()

	dir := staticDirectory{
		"cam1": {ID: "cam1", Host: srv.URL, Username: "admin", Password: "wrong"},
	}
	client := New(dir, zap.NewNop())

	err := client.Login("cam1", false)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestLoginUnknownCamera(t *testing.T) {
	client := New(staticDirectory{}, zap.NewNop())
	err := client.Login("ghost", false)
	require.ErrorIs(t, err, registry.ErrCameraNotFound)
}

func TestLoginUnreachableHost(t *testing.T) {
	dir := staticDirectory{
		"cam1": {ID: "cam1", Host: "http://127.0.0.1:1", Username: "a", Password: "b"},
	}
	client := New(dir, zap.NewNop())

	err := client.Login("cam1", false)
	require.ErrorIs(t, err, ErrTransport)
}

func TestForgetDropsSession(t *testing.T) {
	client, device := newTestClient(t)

	_, err := client.Get("cam1", "/data", nil, 0)
	require.NoError(t, err)
	require.Equal(t, 1, device.loginCount())

	client.Forget("cam1")

	_, err = client.Get("cam1", "/data", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, device.loginCount(), "a forgotten session starts from scratch")
}

func TestServo(t *testing.T) {
	client, _ := newTestClient(t)
	require.NoError(t, client.Servo("cam1", 1, 120))
}

func TestOnline(t *testing.T) {
	client, device := newTestClient(t)
	assert.True(t, client.Online("cam1"))

	device.mu.Lock()
	device.alwaysRedirect = true
	device.mu.Unlock()
	assert.False(t, client.Online("cam1"))
}

func TestSessionsAreIndependent(t *testing.T) {
	deviceA := &mockDevice{}
	srvA := httptest.NewServer(deviceA.handler())
	defer srvA.Close()
	deviceB := &mockDevice{}
	srvB := httptest.NewServer(deviceB.handler())
	defer srvB.Close()

	dir := staticDirectory{
		"a": {ID: "a", Host: srvA.URL, Username: "admin", Password: "secret"},
		"b": {ID: "b", Host: srvB.URL, Username: "admin", Password: "secret"},
	}
	client := New(dir, zap.NewNop())

	_, err := client.Get("a", "/data", nil, 0)
	require.NoError(t, err)
	_, err = client.Get("b", "/data", nil, 0)
	require.NoError(t, err)

	// Revoking A's session must not disturb B's.
	deviceA.revoke()
	_, err = client.Get("b", "/data", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deviceB.loginCount())
	_, err = client.Get("a", "/data", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, deviceA.loginCount())
}

func TestGetTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			w.WriteHeader(http.StatusOK)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}))
	defer slow.Close()

	dir := staticDirectory{
		"cam1": {ID: "cam1", Host: slow.URL, Username: "a", Password: "b"},
	}
	client := New(dir, zap.NewNop())

	_, err := client.Get("cam1", "/data", url.Values{}, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTransport)
}
