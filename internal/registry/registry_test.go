package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"camgate/internal/database"
)

func testDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func newTestRegistry(t *testing.T) (*Registry, *database.Database) {
	t.Helper()
	db := testDB(t)
	r, err := New(db, zap.NewNop())
	require.NoError(t, err)
	return r, db
}

func TestAddDefaults(t *testing.T) {
	r, _ := newTestRegistry(t)

	cam, err := r.Add("front", "http://10.0.0.5:8080", "admin", "secret")
	require.NoError(t, err)

	assert.Equal(t, "front", cam.ID)
	assert.Equal(t, DefaultPanChannel, cam.PanCh)
	assert.Equal(t, DefaultTiltChannel, cam.TiltCh)
	assert.Equal(t, DefaultAngle, cam.Pan)
	assert.Equal(t, DefaultAngle, cam.Tilt)
	assert.False(t, cam.CreatedAt.IsZero())
}

func TestAddDuplicate(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Add("cam1", "http://a", "u", "p")
	require.NoError(t, err)
	_, err = r.Add("cam1", "http://b", "u", "p")
	require.ErrorIs(t, err, ErrCameraExists)
}

func TestGetUnknown(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Get("ghost")
	require.ErrorIs(t, err, ErrCameraNotFound)
}

func TestRemove(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Add("cam1", "http://a", "u", "p")
	require.NoError(t, err)
	require.NoError(t, r.Remove("cam1"))

	_, err = r.Get("cam1")
	require.ErrorIs(t, err, ErrCameraNotFound)
	require.ErrorIs(t, r.Remove("cam1"), ErrCameraNotFound)
}

func TestSetAnglesClamped(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Add("cam1", "http://a", "u", "p")
	require.NoError(t, err)

	cam, err := r.SetAngles("cam1", -40, 260)
	require.NoError(t, err)
	assert.Equal(t, MinAngle, cam.Pan)
	assert.Equal(t, MaxAngle, cam.Tilt)

	cam, err = r.SetAngles("cam1", 45, 135)
	require.NoError(t, err)
	assert.Equal(t, 45, cam.Pan)
	assert.Equal(t, 135, cam.Tilt)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	db := testDB(t)

	r1, err := New(db, zap.NewNop())
	require.NoError(t, err)
	_, err = r1.Add("gate", "http://10.0.0.7", "admin", "pw")
	require.NoError(t, err)
	_, err = r1.SetAngles("gate", 30, 150)
	require.NoError(t, err)

	// A new registry over the same database sees the same state.
	r2, err := New(db, zap.NewNop())
	require.NoError(t, err)

	cam, err := r2.Get("gate")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.7", cam.Host)
	assert.Equal(t, 30, cam.Pan)
	assert.Equal(t, 150, cam.Tilt)
}

func TestList(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Add("a", "http://a", "u", "p")
	require.NoError(t, err)
	_, err = r.Add("b", "http://b", "u", "p")
	require.NoError(t, err)

	cams := r.List()
	assert.Len(t, cams, 2)
}
