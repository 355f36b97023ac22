package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"camgate/internal/devclient"
)

// ErrNotRecording is returned by Stop when no job exists for the camera.
var ErrNotRecording = errors.New("no active recording for camera")

// FPS bounds for recording jobs; requested rates are clamped.
const (
	MinFPS     = 1
	MaxFPS     = 10
	DefaultFPS = 10
)

// stopJoinTimeout bounds how long Stop waits for the loop to flush and
// close its sink.
const stopJoinTimeout = 1 * time.Second

// Job is a snapshot of one recording job for status reporting.
type Job struct {
	CameraID string `json:"cam_id"`
	File     string `json:"file"`
	FPS      int    `json:"fps"`
	StartTS  string `json:"start_ts"`
}

type job struct {
	cameraID string
	path     string
	fps      int
	startTS  string

	running  atomic.Bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	sink     FrameSink
}

func (j *job) snapshot() Job {
	return Job{CameraID: j.cameraID, File: j.path, FPS: j.fps, StartTS: j.startTS}
}

func (j *job) stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.quit)
	})
}

// Supervisor runs at most one recording loop per camera id.
type Supervisor struct {
	frames   detectFrames
	dir      devclient.Directory
	storeDir string
	log      *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job

	// newSink is swappable in tests.
	newSink func(path string, fps int) FrameSink
}

type detectFrames interface {
	CaptureFrame(camID string) (*devclient.Frame, error)
}

// NewSupervisor creates a recording supervisor writing files to storeDir.
func NewSupervisor(frames detectFrames, dir devclient.Directory, storeDir string, log *zap.Logger) *Supervisor {
	return &Supervisor{
		frames:   frames,
		dir:      dir,
		storeDir: storeDir,
		log:      log,
		jobs:     make(map[string]*job),
		newSink: func(path string, fps int) FrameSink {
			return newAVISink(path, fps)
		},
	}
}

// Start begins a recording job for the camera. If a job already exists the
// existing job's descriptor is returned unchanged and started is false.
func (s *Supervisor) Start(camID string, fps int) (Job, bool, error) {
	if _, err := s.dir.Get(camID); err != nil {
		return Job{}, false, err
	}

	if fps < MinFPS {
		fps = MinFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[camID]; ok {
		return existing.snapshot(), false, nil
	}

	if err := os.MkdirAll(s.storeDir, 0o755); err != nil {
		return Job{}, false, fmt.Errorf("cannot create recording dir: %w", err)
	}

	ts := time.Now().Format("20060102_150405")
	path := filepath.Join(s.storeDir, fmt.Sprintf("%s_%s.avi", camID, ts))

	j := &job{
		cameraID: camID,
		path:     path,
		fps:      fps,
		startTS:  ts,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		sink:     s.newSink(path, fps),
	}
	j.running.Store(true)
	s.jobs[camID] = j

	go s.loop(j)

	s.log.Info("recording started",
		zap.String("camera", camID), zap.String("file", path), zap.Int("fps", fps))
	return j.snapshot(), true, nil
}

// Stop signals the camera's recording loop to finish, waits briefly for it
// to flush, deregisters the job and returns the final file path.
func (s *Supervisor) Stop(camID string) (string, error) {
	s.mu.Lock()
	j, ok := s.jobs[camID]
	if !ok {
		s.mu.Unlock()
		return "", ErrNotRecording
	}
	delete(s.jobs, camID)
	s.mu.Unlock()

	j.stop()
	select {
	case <-j.done:
	case <-time.After(stopJoinTimeout):
		s.log.Warn("recording loop did not exit in time", zap.String("camera", camID))
	}

	s.log.Info("recording stopped",
		zap.String("camera", camID), zap.String("file", j.path))
	return j.path, nil
}

// Status returns a snapshot of all active jobs. No device I/O.
func (s *Supervisor) Status() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.snapshot())
	}
	return out
}

// IsRecording reports whether a job is active for the camera.
func (s *Supervisor) IsRecording(camID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[camID]
	return ok
}

// StopAll stops every active job. Used at shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.Stop(id); err != nil && !errors.Is(err, ErrNotRecording) {
			s.log.Error("failed to stop recording", zap.String("camera", id), zap.Error(err))
		}
	}
}

// loop is the capture-encode cycle of one job. Transient capture errors
// are logged and skipped; a sink that cannot be opened kills the loop.
func (s *Supervisor) loop(j *job) {
	defer close(j.done)

	interval := time.Second / time.Duration(j.fps)
	opened := false
	defer func() {
		if opened {
			if err := j.sink.Close(); err != nil {
				s.log.Error("failed to close recording sink",
					zap.String("camera", j.cameraID), zap.Error(err))
			}
		}
	}()

	for j.running.Load() {
		frame, err := s.frames.CaptureFrame(j.cameraID)
		if err != nil {
			s.log.Warn("recording frame capture failed",
				zap.String("camera", j.cameraID), zap.Error(err))
			if !s.sleep(j, interval) {
				return
			}
			continue
		}

		stamped := stampTimestamp(frame.Image, time.Now())

		if !opened {
			if err := j.sink.Open(frame.Width, frame.Height); err != nil {
				s.log.Error("recording sink unavailable, aborting job",
					zap.String("camera", j.cameraID),
					zap.String("file", j.path), zap.Error(err))
				s.abandon(j)
				return
			}
			opened = true
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, stamped, &jpeg.Options{Quality: 85}); err != nil {
			s.log.Error("failed to encode recording frame",
				zap.String("camera", j.cameraID), zap.Error(err))
		} else if err := j.sink.WriteFrame(buf.Bytes()); err != nil {
			s.log.Error("failed to append recording frame",
				zap.String("camera", j.cameraID), zap.Error(err))
		}

		if !s.sleep(j, interval) {
			return
		}
	}
}

// sleep waits one tick interval, returning false if the job was stopped.
func (s *Supervisor) sleep(j *job, interval time.Duration) bool {
	select {
	case <-j.quit:
		return false
	case <-time.After(interval):
		return true
	}
}

// abandon removes a self-terminated job from the registry.
func (s *Supervisor) abandon(j *job) {
	j.stop()
	s.mu.Lock()
	if current, ok := s.jobs[j.cameraID]; ok && current == j {
		delete(s.jobs, j.cameraID)
	}
	s.mu.Unlock()
}
