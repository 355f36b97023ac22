package detect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	personClass       = "person"
	defaultConfThresh = 0.6
)

// YOLODetector runs person detection against a YOLO inference service
// over HTTP.
type YOLODetector struct {
	endpoint   string
	client     *http.Client
	confThresh float64
}

type yoloDetection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
}

type yoloResult struct {
	Detections []yoloDetection `json:"detections"`
	Count      int             `json:"count"`
}

type yoloHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// NewYOLODetector creates a detector against the given service endpoint.
func NewYOLODetector(endpoint string) *YOLODetector {
	return &YOLODetector{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 15 * time.Second, // GPU inference can be slow to warm up
		},
		confThresh: defaultConfThresh,
	}
}

func (d *YOLODetector) Name() string { return "yolo" }

// Ping checks the inference service's health endpoint.
func (d *YOLODetector) Ping() error {
	resp, err := d.client.Get(d.endpoint + "/health")
	if err != nil {
		return fmt.Errorf("failed to check detector health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detector health check returned status %d", resp.StatusCode)
	}

	var health yoloHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if !health.ModelLoaded {
		return fmt.Errorf("detector model not loaded (status %q)", health.Status)
	}
	return nil
}

// Detect sends the frame to the inference service and returns person
// detections above the confidence threshold.
func (d *YOLODetector) Detect(img image.Image) ([]Box, error) {
	var frame bytes.Buffer
	if err := jpeg.Encode(&frame, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, err
	}
	fw.Write(frame.Bytes())
	w.WriteField("conf_threshold", fmt.Sprintf("%.3f", d.confThresh))
	w.WriteField("classes_filter", personClass)
	w.Close()

	req, err := http.NewRequest(http.MethodPost, d.endpoint+"/detect", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detection failed: %s", string(body))
	}

	var result yoloResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	boxes := make([]Box, 0, len(result.Detections))
	for _, det := range result.Detections {
		if det.Class != personClass || len(det.BBox) != 4 {
			continue
		}
		boxes = append(boxes, Box{
			BBox: [4]int{
				int(det.BBox[0]), int(det.BBox[1]),
				int(det.BBox[2]), int(det.BBox[3]),
			},
			Confidence: det.Confidence,
		})
	}
	return boxes, nil
}

// Annotate draws the boxes with confidence labels onto a copy of the frame.
func (d *YOLODetector) Annotate(img image.Image, boxes []Box) image.Image {
	return annotate(img, boxes)
}
