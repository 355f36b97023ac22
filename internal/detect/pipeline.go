package detect

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"camgate/internal/alarm"
	"camgate/internal/devclient"
	"camgate/internal/events"
)

// FrameCapturer supplies frames for detection. Satisfied by
// *devclient.Client.
type FrameCapturer interface {
	CaptureFrame(camID string) (*devclient.Frame, error)
}

// Result is the outcome of one detection call. Detection endpoints always
// produce a Result; internal errors land in Note instead of failing the
// call.
type Result struct {
	Detected      bool    `json:"detected"`
	Boxes         []Box   `json:"boxes"`
	MaxConfidence float64 `json:"max_confidence"`
	SavedImage    string  `json:"saved_image,omitempty"`
	AnnotatedB64  string  `json:"annotated_jpeg_b64,omitempty"`
	Note          string  `json:"note"`
}

// Pipeline runs frame capture, person detection, annotation, event
// persistence and alert dispatch.
type Pipeline struct {
	frames   FrameCapturer
	detector Detector
	store    *events.Store
	alarm    *alarm.Alarm
	eventDir string
	log      *zap.Logger

	// OnEvent, if set, is called for every persisted event.
	OnEvent func(events.Event)
}

// NewPipeline creates a detection pipeline writing snapshots to eventDir.
func NewPipeline(frames FrameCapturer, detector Detector, store *events.Store,
	a *alarm.Alarm, eventDir string, log *zap.Logger) *Pipeline {
	return &Pipeline{
		frames:   frames,
		detector: detector,
		store:    store,
		alarm:    a,
		eventDir: eventDir,
		log:      log,
	}
}

func noDetection(note string) Result {
	return Result{Boxes: []Box{}, Note: note}
}

// DetectAndPersist captures a frame, runs detection, saves the annotated
// snapshot and, on a positive detection, records an event and fires the
// alarm.
func (p *Pipeline) DetectAndPersist(camID string) Result {
	frame, err := p.frames.CaptureFrame(camID)
	if err != nil {
		return noDetection(fmt.Sprintf("camera error: %v", err))
	}

	boxes, err := p.detector.Detect(frame.Image)
	if err != nil {
		return noDetection(fmt.Sprintf("detector error: %v", err))
	}

	detected := len(boxes) > 0
	maxConf := maxConfidence(boxes)

	annotated := p.detector.Annotate(frame.Image, boxes)
	savedPath, err := p.saveSnapshot(camID, annotated)
	if err != nil {
		p.log.Error("failed to save event snapshot",
			zap.String("camera", camID), zap.Error(err))
	}

	if detected {
		event, err := p.store.Insert(camID, savedPath, maxConf)
		if err != nil {
			p.log.Error("failed to persist event",
				zap.String("camera", camID), zap.Error(err))
		} else if p.OnEvent != nil {
			p.OnEvent(event)
		}
		p.alarm.Fire()
	}

	return Result{
		Detected:      detected,
		Boxes:         ensureBoxes(boxes),
		MaxConfidence: maxConf,
		SavedImage:    savedPath,
	}
}

// DetectOnly captures a frame and runs detection without persisting an
// event. The annotated frame comes back base64-encoded for inline preview.
// The alarm still fires on detection, subject to the 1s cooldown.
func (p *Pipeline) DetectOnly(camID string) Result {
	frame, err := p.frames.CaptureFrame(camID)
	if err != nil {
		return noDetection(fmt.Sprintf("camera error: %v", err))
	}

	boxes, err := p.detector.Detect(frame.Image)
	if err != nil {
		return noDetection(fmt.Sprintf("detector error: %v", err))
	}

	detected := len(boxes) > 0
	annotated := p.detector.Annotate(frame.Image, boxes)

	var b64 string
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, annotated, &jpeg.Options{Quality: 85}); err != nil {
		p.log.Error("failed to encode annotated frame",
			zap.String("camera", camID), zap.Error(err))
	} else {
		b64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	if detected {
		p.alarm.FireCooldown()
	}

	return Result{
		Detected:      detected,
		Boxes:         ensureBoxes(boxes),
		MaxConfidence: maxConfidence(boxes),
		AnnotatedB64:  b64,
	}
}

// saveSnapshot writes the annotated frame to
// <eventDir>/<camID>_<timestamp>.jpg.
func (p *Pipeline) saveSnapshot(camID string, img image.Image) (string, error) {
	if err := os.MkdirAll(p.eventDir, 0o755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s.jpg", camID, time.Now().Format("20060102_150405"))
	path := filepath.Join(p.eventDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}
	return path, nil
}

func maxConfidence(boxes []Box) float64 {
	max := 0.0
	for _, b := range boxes {
		if b.Confidence > max {
			max = b.Confidence
		}
	}
	return max
}

func ensureBoxes(boxes []Box) []Box {
	if boxes == nil {
		return []Box{}
	}
	return boxes
}
