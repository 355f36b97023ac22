package devclient

import "errors"

var (
	// ErrAuthFailed means the device rejected the login exchange, or a
	// re-login retry still produced a redirect.
	ErrAuthFailed = errors.New("camera authentication failed")

	// ErrTransport means the network call to the device failed outright.
	ErrTransport = errors.New("camera transport error")

	// ErrCapture means the device returned a bad status for /capture or
	// the payload was not a decodable JPEG.
	ErrCapture = errors.New("frame capture failed")
)
