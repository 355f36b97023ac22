package devclient

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
)

// Frame is one captured still from a camera.
type Frame struct {
	JPEG   []byte
	Image  image.Image
	Width  int
	Height int
}

// CaptureFrame fetches a single frame from the device's /capture endpoint
// and decodes it. No retries here; the caller owns retry policy.
func (c *Client) CaptureFrame(camID string) (*Frame, error) {
	resp, err := c.Get(camID, "/capture", nil, DefaultTimeout)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status=%d", ErrCapture, resp.StatusCode)
	}

	img, err := jpeg.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCapture, err)
	}

	bounds := img.Bounds()
	return &Frame{
		JPEG:   resp.Body,
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
