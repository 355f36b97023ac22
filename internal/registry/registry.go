package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"camgate/internal/database"
)

// ErrCameraNotFound is returned when a camera id is not registered.
var ErrCameraNotFound = errors.New("camera not found")

// ErrCameraExists is returned when registering a duplicate camera id.
var ErrCameraExists = errors.New("camera id already exists")

// Angle bounds for the pan/tilt servos.
const (
	MinAngle     = 0
	MaxAngle     = 180
	DefaultAngle = 90
)

// Default servo channel indices on the device.
const (
	DefaultPanChannel  = 1
	DefaultTiltChannel = 2
)

// Camera describes one registered camera device. Values returned by the
// registry are snapshots; mutations go through registry methods so every
// change hits the database before the call returns.
type Camera struct {
	ID        string
	Host      string
	Username  string
	Password  string
	PanCh     int
	TiltCh    int
	Pan       int
	Tilt      int
	CreatedAt time.Time
}

// Registry manages the camera directory backed by the database.
type Registry struct {
	cameras map[string]*Camera
	mu      sync.RWMutex
	db      *database.Database
	log     *zap.Logger
}

// New creates a registry and loads persisted cameras.
func New(db *database.Database, log *zap.Logger) (*Registry, error) {
	r := &Registry{
		cameras: make(map[string]*Camera),
		db:      db,
		log:     log,
	}
	if db != nil {
		if err := r.loadFromDB(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) loadFromDB() error {
	records, err := r.db.ListCameras()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		r.cameras[rec.ID] = &Camera{
			ID:        rec.ID,
			Host:      rec.Host,
			Username:  rec.Username,
			Password:  rec.Password,
			PanCh:     rec.PanCh,
			TiltCh:    rec.TiltCh,
			Pan:       clampAngle(rec.Pan),
			Tilt:      clampAngle(rec.Tilt),
			CreatedAt: rec.CreatedAt,
		}
	}
	r.log.Info("loaded cameras from database", zap.Int("count", len(records)))
	return nil
}

// Add registers a new camera and persists it.
func (r *Registry) Add(id, host, username, password string) (Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cameras[id]; exists {
		return Camera{}, ErrCameraExists
	}

	cam := &Camera{
		ID:        id,
		Host:      host,
		Username:  username,
		Password:  password,
		PanCh:     DefaultPanChannel,
		TiltCh:    DefaultTiltChannel,
		Pan:       DefaultAngle,
		Tilt:      DefaultAngle,
		CreatedAt: time.Now(),
	}
	r.cameras[id] = cam

	if err := r.persist(cam); err != nil {
		delete(r.cameras, id)
		return Camera{}, err
	}
	return *cam, nil
}

// Remove deregisters a camera and deletes it from the database.
// The caller is responsible for stopping any active recording first.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cameras[id]; !exists {
		return ErrCameraNotFound
	}
	delete(r.cameras, id)

	if r.db != nil {
		if err := r.db.DeleteCamera(id); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a snapshot of the camera with the given id.
func (r *Registry) Get(id string) (Camera, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cam, exists := r.cameras[id]
	if !exists {
		return Camera{}, fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	return *cam, nil
}

// List returns snapshots of all cameras.
func (r *Registry) List() []Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		out = append(out, *cam)
	}
	return out
}

// SetAngles updates a camera's pan/tilt angles and persists them.
// Angles outside [0,180] are clamped.
func (r *Registry) SetAngles(id string, pan, tilt int) (Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cam, exists := r.cameras[id]
	if !exists {
		return Camera{}, fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}

	cam.Pan = clampAngle(pan)
	cam.Tilt = clampAngle(tilt)

	if r.db != nil {
		if err := r.db.UpdateCameraAngles(id, cam.Pan, cam.Tilt); err != nil {
			return Camera{}, err
		}
	}
	return *cam, nil
}

func (r *Registry) persist(cam *Camera) error {
	if r.db == nil {
		return nil
	}
	return r.db.SaveCamera(&database.CameraRecord{
		ID:        cam.ID,
		Host:      cam.Host,
		Username:  cam.Username,
		Password:  cam.Password,
		PanCh:     cam.PanCh,
		TiltCh:    cam.TiltCh,
		Pan:       cam.Pan,
		Tilt:      cam.Tilt,
		CreatedAt: cam.CreatedAt,
	})
}

func clampAngle(v int) int {
	if v < MinAngle {
		return MinAngle
	}
	if v > MaxAngle {
		return MaxAngle
	}
	return v
}
