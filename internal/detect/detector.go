package detect

import (
	"image"

	"go.uber.org/zap"
)

// Box is one person detection in pixel coordinates, x1<x2 and y1<y2.
type Box struct {
	BBox       [4]int  `json:"bbox"` // x1, y1, x2, y2
	Confidence float64 `json:"conf"`
}

// Detector is the person-detection capability. Implementations must be
// safe for concurrent use.
type Detector interface {
	// Name returns the detector identifier (e.g. "stub", "yolo").
	Name() string

	// Detect returns person detections for a frame.
	Detect(img image.Image) ([]Box, error)

	// Annotate draws the boxes with confidence labels onto a copy of the
	// frame.
	Annotate(img image.Image, boxes []Box) image.Image
}

// StubDetector never detects anything. It keeps the system functional on
// hosts without a model service.
type StubDetector struct{}

func (StubDetector) Name() string { return "stub" }

func (StubDetector) Detect(image.Image) ([]Box, error) { return nil, nil }

func (StubDetector) Annotate(img image.Image, boxes []Box) image.Image {
	return annotate(img, boxes)
}

// Build probes the model service and constructs the best available
// detector. It never fails: any probe error falls back to the stub.
func Build(endpoint string, log *zap.Logger) Detector {
	if endpoint == "" {
		log.Info("no detector endpoint configured, using stub detector")
		return StubDetector{}
	}

	d := NewYOLODetector(endpoint)
	if err := d.Ping(); err != nil {
		log.Warn("detector service unreachable, using stub detector",
			zap.String("endpoint", endpoint), zap.Error(err))
		return StubDetector{}
	}
	log.Info("using yolo detector service", zap.String("endpoint", endpoint))
	return d
}
