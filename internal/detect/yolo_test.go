package detect

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func yoloService(t *testing.T, modelLoaded bool, detections []yoloDetection) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(yoloHealth{Status: "ok", ModelLoaded: modelLoaded})
	})
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "person", r.FormValue("classes_filter"))
		json.NewEncoder(w).Encode(yoloResult{Detections: detections, Count: len(detections)})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestYOLODetect(t *testing.T) {
	srv := yoloService(t, true, []yoloDetection{
		{Class: "person", Confidence: 0.87, BBox: []float64{10, 20, 110, 220}},
		{Class: "dog", Confidence: 0.95, BBox: []float64{0, 0, 50, 50}},
		{Class: "person", Confidence: 0.71, BBox: []float64{5, 5}}, // malformed bbox
	})

	d := NewYOLODetector(srv.URL)
	boxes, err := d.Detect(image.NewRGBA(image.Rect(0, 0, 64, 48)))
	require.NoError(t, err)

	require.Len(t, boxes, 1, "only well-formed person detections survive")
	assert.Equal(t, [4]int{10, 20, 110, 220}, boxes[0].BBox)
	assert.InDelta(t, 0.87, boxes[0].Confidence, 1e-9)
}

func TestYOLOPing(t *testing.T) {
	srv := yoloService(t, true, nil)
	require.NoError(t, NewYOLODetector(srv.URL).Ping())
}

func TestYOLOPingModelNotLoaded(t *testing.T) {
	srv := yoloService(t, false, nil)
	require.Error(t, NewYOLODetector(srv.URL).Ping())
}

func TestBuildFallsBackToStub(t *testing.T) {
	d := Build("", zap.NewNop())
	assert.Equal(t, "stub", d.Name())

	d = Build("http://127.0.0.1:1", zap.NewNop())
	assert.Equal(t, "stub", d.Name(), "unreachable service falls back to the stub")
}

func TestBuildSelectsYOLO(t *testing.T) {
	srv := yoloService(t, true, nil)
	d := Build(srv.URL, zap.NewNop())
	assert.Equal(t, "yolo", d.Name())
}
